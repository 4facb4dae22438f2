package order

import (
	"context"
	"errors"

	"offer-desk/amount"
)

var (
	ErrInvalidState = errors.New("offer cannot be created in current state")
	ErrNoOrderBook  = errors.New("no order book for currency pair")
)

// OrderBook 某个交易对上的下单操作，由账本网关实现。
type OrderBook interface {
	Buy(ctx context.Context, baseAmount, counterAmount string) error
	Sell(ctx context.Context, baseAmount, counterAmount string) error
}

// Books 根据表单选择的币种对返回 OrderBook。
type Books interface {
	Book(base, counter amount.Currency) (OrderBook, error)
}

// SubmitError 账本拒绝或提交失败，EngineResultMessage 原样展示给用户。
type SubmitError struct {
	EngineResult        string
	EngineResultMessage string
}

func (e *SubmitError) Error() string {
	if e.EngineResult == "" {
		return e.EngineResultMessage
	}
	return e.EngineResult + ": " + e.EngineResultMessage
}

// engineMessage 取出用于展示的失败文案。
func engineMessage(err error) string {
	var se *SubmitError
	if errors.As(err, &se) {
		return se.EngineResultMessage
	}
	return err.Error()
}

// NotificationType 通知类型
type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// Notification 用户已经离开发送页面时的带外提示。
type Notification struct {
	Title string
	Info  string
	Type  NotificationType
}

// Notifier 只管发送，不等待结果。
type Notifier interface {
	Notify(n Notification)
}

// NotifierFunc 适配普通函数。
type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) { f(n) }

// Recorder 生命周期的指标钩子，由 infrastructure/monitor 实现。
type Recorder interface {
	RecordTransition(from, to string)
	RecordOfferSubmitted(op string)
	RecordOfferResult(op, outcome string, seconds float64)
	RecordDuplicateSubmit()
	RecordValidationFailure(kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordTransition(string, string)           {}
func (nopRecorder) RecordOfferSubmitted(string)               {}
func (nopRecorder) RecordOfferResult(string, string, float64) {}
func (nopRecorder) RecordDuplicateSubmit()                    {}
func (nopRecorder) RecordValidationFailure(string)            {}
