package gateway

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"offer-desk/amount"
	"offer-desk/order"
)

var ErrSamePair = errors.New("base and counter currency are identical")

// Submitter 提交已组装的交易，Client 实现。
type Submitter interface {
	Submit(ctx context.Context, tx interface{}) (Result, error)
}

// Books 按币种对生成账本挂单入口。
type Books struct {
	Submitter Submitter
	Account   string
	Logger    *zap.Logger
}

func NewBooks(s Submitter, account string, logger *zap.Logger) *Books {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Books{Submitter: s, Account: account, Logger: logger}
}

func (b *Books) Book(base, counter amount.Currency) (order.OrderBook, error) {
	if err := checkPair(base, counter); err != nil {
		return nil, err
	}
	return &book{books: b, base: base, counter: counter}, nil
}

type book struct {
	books   *Books
	base    amount.Currency
	counter amount.Currency
}

// Buy 收 base 付 counter。
func (k *book) Buy(ctx context.Context, baseAmount, counterAmount string) error {
	return k.submit(ctx, "buy", baseAmount, k.base, counterAmount, k.counter)
}

// Sell 收 counter 付 base。
func (k *book) Sell(ctx context.Context, baseAmount, counterAmount string) error {
	return k.submit(ctx, "sell", counterAmount, k.counter, baseAmount, k.base)
}

func (k *book) submit(ctx context.Context, side, paysValue string, pays amount.Currency, getsValue string, gets amount.Currency) error {
	tx, err := OfferCreate(k.books.Account, paysValue, pays, getsValue, gets)
	if err != nil {
		return err
	}
	k.books.Logger.Info("submitting offer",
		zap.String("side", side),
		zap.String("pays", paysValue+" "+pays.String()),
		zap.String("gets", getsValue+" "+gets.String()),
	)
	_, err = k.books.Submitter.Submit(ctx, tx)
	return err
}

// DryRunBooks 只记录日志并返回成功。
type DryRunBooks struct {
	Logger *zap.Logger
}

func (d DryRunBooks) Book(base, counter amount.Currency) (order.OrderBook, error) {
	if err := checkPair(base, counter); err != nil {
		return nil, err
	}
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return dryRunBook{logger: logger.With(zap.String("base", base.String()), zap.String("counter", counter.String()))}, nil
}

type dryRunBook struct {
	logger *zap.Logger
}

func (d dryRunBook) Buy(_ context.Context, baseAmount, counterAmount string) error {
	d.logger.Info("dry run offer", zap.String("side", "buy"), zap.String("base", baseAmount), zap.String("counter", counterAmount))
	return nil
}

func (d dryRunBook) Sell(_ context.Context, baseAmount, counterAmount string) error {
	d.logger.Info("dry run offer", zap.String("side", "sell"), zap.String("base", baseAmount), zap.String("counter", counterAmount))
	return nil
}

func checkPair(base, counter amount.Currency) error {
	if base.IsZero() || counter.IsZero() {
		return order.ErrNoOrderBook
	}
	if base == counter {
		return fmt.Errorf("%w: %s", ErrSamePair, base)
	}
	return nil
}
