package gateway

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"offer-desk/amount"
	"offer-desk/order"
)

const (
	issuerUSD = "rhub8VRN55s94qWKDv6jmDy1pUykJzF3wq"
	issuerEUR = "rLEsXccBGNR3UPuPu2hUXPjziKC3qKSBun"
)

type captureSubmitter struct {
	txs []interface{}
	err error
}

func (c *captureSubmitter) Submit(_ context.Context, tx interface{}) (Result, error) {
	c.txs = append(c.txs, tx)
	return Result{EngineResult: EngineSuccess}, c.err
}

func usd() amount.Currency { return amount.Currency{Code: "USD", Issuer: issuerUSD} }

func TestAmountEncoding(t *testing.T) {
	tests := map[string]struct {
		value    string
		currency amount.Currency
		want     interface{}
		wantErr  bool
	}{
		"native drops":        {value: "1.5", currency: amount.Native(), want: "1500000"},
		"native integer":      {value: "25", currency: amount.Native(), want: "25000000"},
		"native max decimals": {value: "0.000001", currency: amount.Native(), want: "1"},
		"native too precise":  {value: "0.0000001", currency: amount.Native(), wantErr: true},
		"credit":              {value: "12.50", currency: usd(), want: IssuedAmount{Currency: "USD", Issuer: issuerUSD, Value: "12.5"}},
		"credit no issuer":    {value: "1", currency: amount.Currency{Code: "USD"}, wantErr: true},
		"native with issuer":  {value: "1", currency: amount.Currency{Code: amount.NativeCode, Issuer: issuerUSD}, wantErr: true},
		"unparseable":         {value: "abc", currency: usd(), wantErr: true},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := Amount(tc.value, tc.currency)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestBooksBuyPaysCounter(t *testing.T) {
	sub := &captureSubmitter{}
	books := NewBooks(sub, "rTrader", nil)

	book, err := books.Book(amount.Native(), usd())
	require.NoError(t, err)
	require.NoError(t, book.Buy(context.Background(), "100", "25"))

	require.Len(t, sub.txs, 1)
	tx := sub.txs[0].(OfferCreateTx)
	assert.Equal(t, "OfferCreate", tx.TransactionType)
	assert.Equal(t, "rTrader", tx.Account)
	assert.Equal(t, "100000000", tx.TakerPays)
	assert.Equal(t, IssuedAmount{Currency: "USD", Issuer: issuerUSD, Value: "25"}, tx.TakerGets)
}

func TestBooksSellPaysBase(t *testing.T) {
	sub := &captureSubmitter{}
	books := NewBooks(sub, "rTrader", nil)

	book, err := books.Book(amount.Native(), usd())
	require.NoError(t, err)
	require.NoError(t, book.Sell(context.Background(), "100", "25"))

	tx := sub.txs[0].(OfferCreateTx)
	assert.Equal(t, IssuedAmount{Currency: "USD", Issuer: issuerUSD, Value: "25"}, tx.TakerPays)
	assert.Equal(t, "100000000", tx.TakerGets)
}

func TestBooksPropagatesSubmitError(t *testing.T) {
	want := &order.SubmitError{EngineResult: "tecNO_LINE", EngineResultMessage: "No such line."}
	sub := &captureSubmitter{err: want}
	book, err := NewBooks(sub, "rTrader", nil).Book(usd(), amount.Currency{Code: "EUR", Issuer: issuerEUR})
	require.NoError(t, err)

	err = book.Buy(context.Background(), "1", "0.9")
	var se *order.SubmitError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "No such line.", se.EngineResultMessage)
}

func TestBooksRejectsBadPair(t *testing.T) {
	books := NewBooks(&captureSubmitter{}, "rTrader", nil)

	_, err := books.Book(usd(), usd())
	assert.ErrorIs(t, err, ErrSamePair)

	_, err = books.Book(amount.Currency{}, usd())
	assert.ErrorIs(t, err, order.ErrNoOrderBook)
}

func TestBooksInvalidAmountNotSubmitted(t *testing.T) {
	sub := &captureSubmitter{}
	book, err := NewBooks(sub, "rTrader", nil).Book(amount.Native(), usd())
	require.NoError(t, err)

	err = book.Buy(context.Background(), "0.0000001", "1")
	var pe *amount.NativePrecisionError
	require.True(t, errors.As(err, &pe), "got %v", err)
	assert.Equal(t, "NATIVE amount has too many decimals: 0.0000001", pe.Error())
	assert.Empty(t, sub.txs)
}

func TestDryRunBooks(t *testing.T) {
	book, err := DryRunBooks{}.Book(amount.Native(), usd())
	require.NoError(t, err)
	assert.NoError(t, book.Buy(context.Background(), "1", "2"))
	assert.NoError(t, book.Sell(context.Background(), "1", "2"))

	_, err = DryRunBooks{}.Book(usd(), usd())
	assert.ErrorIs(t, err, ErrSamePair)
}
