package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"offer-desk/amount"
)

type call struct {
	op            Operation
	base, counter string
}

type fakeBook struct {
	mu      sync.Mutex
	calls   []call
	release chan error
}

func newFakeBook() *fakeBook {
	return &fakeBook{release: make(chan error, 4)}
}

func (b *fakeBook) record(op Operation, base, counter string) {
	b.mu.Lock()
	b.calls = append(b.calls, call{op: op, base: base, counter: counter})
	b.mu.Unlock()
}

func (b *fakeBook) Buy(_ context.Context, base, counter string) error {
	b.record(OpBuy, base, counter)
	return <-b.release
}

func (b *fakeBook) Sell(_ context.Context, base, counter string) error {
	b.record(OpSell, base, counter)
	return <-b.release
}

func (b *fakeBook) Calls() []call {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]call(nil), b.calls...)
}

type fakeBooks struct {
	book *fakeBook
	err  error
	pair [2]amount.Currency
}

func (f *fakeBooks) Book(base, counter amount.Currency) (OrderBook, error) {
	f.pair = [2]amount.Currency{base, counter}
	if f.err != nil {
		return nil, f.err
	}
	return f.book, nil
}

type memNotifier struct {
	mu    sync.Mutex
	notes []Notification
}

func (m *memNotifier) Notify(n Notification) {
	m.mu.Lock()
	m.notes = append(m.notes, n)
	m.mu.Unlock()
}

func (m *memNotifier) All() []Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Notification(nil), m.notes...)
}

type countRecorder struct {
	mu          sync.Mutex
	transitions []string
	submitted   int
	results     map[string]int
	duplicates  int
	validation  map[string]int
}

func newCountRecorder() *countRecorder {
	return &countRecorder{results: map[string]int{}, validation: map[string]int{}}
}

func (r *countRecorder) RecordTransition(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, from+"->"+to)
}

func (r *countRecorder) RecordOfferSubmitted(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.submitted++
}

func (r *countRecorder) RecordOfferResult(_, outcome string, _ float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.results[outcome]++
}

func (r *countRecorder) RecordDuplicateSubmit() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.duplicates++
}

func (r *countRecorder) RecordValidationFailure(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validation[kind]++
}

type harness struct {
	lc       *Lifecycle
	book     *fakeBook
	books    *fakeBooks
	notifier *memNotifier
	recorder *countRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	book := newFakeBook()
	books := &fakeBooks{book: book}
	lc := NewLifecycle(NewForm(testCatalog()), books)
	h := &harness{lc: lc, book: book, books: books, notifier: &memNotifier{}, recorder: newCountRecorder()}
	lc.SetNotifier(h.notifier)
	lc.SetRecorder(h.recorder)
	lc.Update(func(f *Form) {
		f.ChangeBaseCurrency(amount.NativeCode)
		f.ChangeCounterCurrency("USD")
		f.SetBaseAmount(amount.Str("10"))
		f.SetUnitPrice(amount.Str("2"))
	})
	return h
}

func wait(t *testing.T, sub *Submission) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := sub.Wait(ctx)
	require.NotErrorIs(t, err, context.DeadlineExceeded)
	return err
}

func TestNewLifecycleClearsForm(t *testing.T) {
	f := NewForm(testCatalog())
	f.ChangeBaseCurrency("USD")
	f.SetOperation(OpSell)
	lc := NewLifecycle(f, nil)
	assert.Equal(t, StateForm, lc.State())
	snap := lc.Snapshot()
	assert.Equal(t, OpBuy, snap.Operation)
	assert.True(t, snap.BaseCurrency.IsZero())
}

func TestCreateOfferSent(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.lc.IsSubmittable())
	h.lc.ConfirmOffer()
	assert.Equal(t, StateConfirm, h.lc.State())

	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateSending, h.lc.State())

	h.book.release <- nil
	require.NoError(t, wait(t, sub))
	assert.Equal(t, StateSent, h.lc.State())
	assert.Equal(t, []call{{op: OpBuy, base: "10", counter: "20"}}, h.book.Calls())
	assert.Equal(t, amount.Native(), h.books.pair[0])
	assert.Equal(t, amount.Currency{Code: "USD", Issuer: "issuerX"}, h.books.pair[1])
	assert.Empty(t, h.notifier.All())
	assert.Equal(t, []string{"form->confirm", "confirm->sending", "sending->sent"}, h.recorder.transitions)
	assert.Equal(t, 1, h.recorder.results["sent"])
}

func TestCreateOfferSell(t *testing.T) {
	h := newHarness(t)
	h.lc.Update(func(f *Form) { f.SetOperation(OpSell) })
	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	h.book.release <- nil
	require.NoError(t, wait(t, sub))
	assert.Equal(t, []call{{op: OpSell, base: "10", counter: "20"}}, h.book.Calls())
}

func TestCreateOfferSingleInFlight(t *testing.T) {
	h := newHarness(t)
	h.lc.ConfirmOffer()
	first, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	second, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)

	h.book.release <- nil
	require.NoError(t, wait(t, first))
	assert.Len(t, h.book.Calls(), 1)
	assert.Equal(t, 1, h.recorder.submitted)
	assert.Equal(t, 1, h.recorder.duplicates)
}

func TestCreateOfferFailureObserved(t *testing.T) {
	h := newHarness(t)
	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)

	h.book.release <- &SubmitError{EngineResult: "tecUNFUNDED_OFFER", EngineResultMessage: "Insufficient balance to fund created offer."}
	err = wait(t, sub)
	var se *SubmitError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, StateError, h.lc.State())
	assert.Equal(t, "Insufficient balance to fund created offer.", h.lc.Snapshot().OfferError)
	assert.Empty(t, h.notifier.All())
	assert.Equal(t, 1, h.recorder.results["failed"])
}

func TestResetWhilePendingThenSuccess(t *testing.T) {
	h := newHarness(t)
	h.lc.ConfirmOffer()
	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)

	h.lc.ResetForm()
	assert.Equal(t, StateForm, h.lc.State())

	h.book.release <- nil
	require.NoError(t, wait(t, sub))
	assert.Equal(t, StateForm, h.lc.State())
	assert.Equal(t, []Notification{{Title: "Success!", Info: "Offer created.", Type: NotificationSuccess}}, h.notifier.All())
}

func TestResetWhilePendingThenFailure(t *testing.T) {
	h := newHarness(t)
	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	h.lc.ResetForm()

	h.book.release <- errors.New("connection reset")
	require.Error(t, wait(t, sub))
	assert.Equal(t, StateForm, h.lc.State())
	assert.Equal(t, "", h.lc.Snapshot().OfferError)
	assert.Equal(t, []Notification{{Title: "Unable to create offer!", Info: "connection reset", Type: NotificationError}}, h.notifier.All())
}

func TestCreateOfferAfterResetReusesPending(t *testing.T) {
	h := newHarness(t)
	first, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	h.lc.ResetForm()
	second, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	h.book.release <- nil
	require.NoError(t, wait(t, first))
	assert.Len(t, h.book.Calls(), 1)
}

func TestCreateOfferFromFinalState(t *testing.T) {
	h := newHarness(t)
	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	h.book.release <- nil
	require.NoError(t, wait(t, sub))

	_, err = h.lc.CreateOffer(context.Background())
	assert.ErrorIs(t, err, ErrInvalidState)

	h.lc.ResetForm()
	h.lc.Update(func(f *Form) {
		f.ChangeBaseCurrency(amount.NativeCode)
		f.ChangeCounterCurrency("USD")
		f.SetBaseAmount(amount.Str("1"))
		f.SetUnitPrice(amount.Str("3"))
	})
	sub, err = h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	h.book.release <- nil
	require.NoError(t, wait(t, sub))
	assert.Len(t, h.book.Calls(), 2)
}

func TestCreateOfferBookUnavailable(t *testing.T) {
	h := newHarness(t)
	h.books.err = ErrNoOrderBook
	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, wait(t, sub), ErrNoOrderBook)
	assert.Equal(t, StateError, h.lc.State())
	assert.Equal(t, ErrNoOrderBook.Error(), h.lc.Snapshot().OfferError)
	assert.Empty(t, h.book.Calls())
}

func TestResetFormBroadcast(t *testing.T) {
	h := newHarness(t)
	h.lc.Update(func(f *Form) {
		f.SetOperation(OpSell)
		f.SetFavorite("fav")
	})
	h.lc.ConfirmOffer()

	var got []string
	cancelA := h.lc.OnReset(func() { got = append(got, "a") })
	h.lc.OnReset(func() { got = append(got, "b") })

	h.lc.ResetForm()
	assert.Equal(t, []string{"a", "b"}, got)
	assert.Equal(t, StateForm, h.lc.State())
	snap := h.lc.Snapshot()
	assert.Equal(t, OpBuy, snap.Operation)
	assert.Equal(t, "", snap.Favorite)
	assert.Nil(t, snap.BaseAmount)
	assert.True(t, snap.CounterCurrency.IsZero())

	cancelA()
	cancelA()
	h.lc.ResetForm()
	assert.Equal(t, []string{"a", "b", "b"}, got)
}

func TestEditFormAndUnexpectedTransition(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	h := newHarness(t)
	h.lc.SetLogger(zap.New(core))

	h.lc.ConfirmOffer()
	h.lc.EditForm()
	assert.Equal(t, StateForm, h.lc.State())
	assert.Equal(t, 0, logs.Len())

	sub, err := h.lc.CreateOffer(context.Background())
	require.NoError(t, err)
	h.book.release <- nil
	require.NoError(t, wait(t, sub))

	// sent -> confirm 不在转换表中，仍然执行
	h.lc.ConfirmOffer()
	assert.Equal(t, StateConfirm, h.lc.State())
	assert.Equal(t, 1, logs.FilterMessage("unexpected state transition").Len())
}

func TestValidateGate(t *testing.T) {
	h := newHarness(t)
	assert.NoError(t, h.lc.Validate())

	h.lc.Update(func(f *Form) { f.SetUnitPrice(nil) })
	assert.ErrorIs(t, h.lc.Validate(), ErrIncomplete)

	h.lc.Update(func(f *Form) { f.SetUnitPrice(amount.Str("-1")) })
	var np *amount.NonPositiveAmountError
	assert.ErrorAs(t, h.lc.Validate(), &np)
	assert.Equal(t, 1, h.recorder.validation[amount.KindNonPositive])
}
