package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"offer-desk/amount"
)

// ErrIncomplete 表单尚未填写完整。
var ErrIncomplete = errors.New("order form is incomplete")

// Submission 一次进行中的下单请求。
type Submission struct {
	Operation Operation
	done      chan struct{}
	err       error
}

func newSubmission(op Operation) *Submission {
	return &Submission{Operation: op, done: make(chan struct{})}
}

// Done 在提交结果落地（状态或通知已处理）后关闭。
func (s *Submission) Done() <-chan struct{} { return s.done }

// Err 返回提交结果，必须在 Done 关闭后读取。
func (s *Submission) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

// Wait 等待提交结束；ctx 只控制等待本身，不会取消提交。
func (s *Submission) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Lifecycle 管理表单从编辑、确认到提交结果的状态，同一时间最多一个提交在途。
// 所有修改在 mu 下串行执行，异步提交的回调也一样。
type Lifecycle struct {
	mu       sync.Mutex
	form     *Form
	state    State
	sm       *StateMachine
	books    Books
	inflight *Submission

	notifier Notifier
	logger   *zap.Logger
	recorder Recorder
	resets   *resetBroadcast
	now      func() time.Time
}

// NewLifecycle 以 form 状态开始，并把表单重置为初始值。
func NewLifecycle(form *Form, books Books) *Lifecycle {
	l := &Lifecycle{
		form:     form,
		state:    StateForm,
		sm:       NewStateMachine(),
		books:    books,
		notifier: NotifierFunc(func(Notification) {}),
		logger:   zap.NewNop(),
		recorder: nopRecorder{},
		resets:   newResetBroadcast(),
		now:      time.Now,
	}
	form.SetOperation(OpBuy)
	form.ClearForm()
	return l
}

func (l *Lifecycle) SetNotifier(n Notifier) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n != nil {
		l.notifier = n
	}
}

func (l *Lifecycle) SetLogger(logger *zap.Logger) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if logger != nil {
		l.logger = logger
	}
}

func (l *Lifecycle) SetRecorder(r Recorder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if r != nil {
		l.recorder = r
	}
}

// SetBooks 替换下单的交易对来源，只影响之后的提交。
func (l *Lifecycle) SetBooks(b Books) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.books = b
}

// OnReset 订阅 ResetForm 事件，返回取消订阅函数。
func (l *Lifecycle) OnReset(fn func()) func() {
	return l.resets.subscribe(fn)
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Update 在锁内修改表单。
func (l *Lifecycle) Update(fn func(f *Form)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.form)
}

// View 在锁内读取表单，fn 不应修改表单。
func (l *Lifecycle) View(fn func(f *Form)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fn(l.form)
}

func (l *Lifecycle) Snapshot() FormData {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.form.Snapshot()
}

func (l *Lifecycle) IsSubmittable() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.form.IsSubmittable()
}

// Validate 提交前的界面闸门：未填完返回 ErrIncomplete，否则返回第一个校验错误。
func (l *Lifecycle) Validate() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.form.IsComplete() {
		return ErrIncomplete
	}
	if err := l.form.FirstValidationError(); err != nil {
		l.recorder.RecordValidationFailure(amount.KindOf(err))
		return err
	}
	return nil
}

// ConfirmOffer form -> confirm。不检查表单是否可提交，由调用方把关。
func (l *Lifecycle) ConfirmOffer() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transition(StateConfirm)
}

// EditForm confirm -> form。
func (l *Lifecycle) EditForm() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.transition(StateForm)
}

// ResetForm 任意状态回到 form，方向重置为 buy，清空表单并广播重置事件。
// 在途的提交不会被取消，它的结果会以通知形式出现。
func (l *Lifecycle) ResetForm() {
	l.mu.Lock()
	l.transition(StateForm)
	l.form.SetOperation(OpBuy)
	l.form.ClearForm()
	l.mu.Unlock()

	l.resets.publish()
}

// CreateOffer 进入 sending 并异步调用 Buy/Sell。已有在途提交时直接返回它，不会重复下单。
func (l *Lifecycle) CreateOffer(ctx context.Context) (*Submission, error) {
	l.mu.Lock()
	if l.inflight != nil {
		sub := l.inflight
		l.recorder.RecordDuplicateSubmit()
		l.mu.Unlock()
		l.logger.Debug("offer already in flight", zap.String("op", string(sub.Operation)))
		return sub, nil
	}
	if l.sm.IsFinalState(l.state) {
		state := l.state
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	op := l.form.Operation()
	base, counter := l.form.BaseCurrency(), l.form.CounterCurrency()
	baseAmount, counterAmount := deref(l.form.BaseAmount()), deref(l.form.CounterAmount())
	books := l.books
	sub := newSubmission(op)
	l.inflight = sub
	l.transition(StateSending)
	l.recorder.RecordOfferSubmitted(string(op))
	logger := l.logger
	l.mu.Unlock()

	logger.Info("offer submitting",
		zap.String("op", string(op)),
		zap.String("base", base.String()),
		zap.String("counter", counter.String()),
		zap.String("baseAmount", baseAmount),
		zap.String("counterAmount", counterAmount),
	)

	go func() {
		start := l.now()
		var err error
		if books == nil {
			err = ErrNoOrderBook
		} else {
			var book OrderBook
			book, err = books.Book(base, counter)
			if err == nil {
				if op == OpSell {
					err = book.Sell(ctx, baseAmount, counterAmount)
				} else {
					err = book.Buy(ctx, baseAmount, counterAmount)
				}
			}
		}
		l.complete(sub, err, l.now().Sub(start))
	}()
	return sub, nil
}

// complete 只有用户仍停留在 sending 时才落到 sent/error，否则改为发通知。
func (l *Lifecycle) complete(sub *Submission, err error, elapsed time.Duration) {
	l.mu.Lock()
	l.inflight = nil
	observed := l.state == StateSending
	var note *Notification
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	switch {
	case observed && err == nil:
		l.transition(StateSent)
	case observed:
		l.transition(StateError)
		l.form.setOfferError(engineMessage(err))
	case err == nil:
		note = &Notification{Title: "Success!", Info: "Offer created.", Type: NotificationSuccess}
	default:
		note = &Notification{Title: "Unable to create offer!", Info: engineMessage(err), Type: NotificationError}
	}
	l.recorder.RecordOfferResult(string(sub.Operation), outcome, elapsed.Seconds())
	notifier, logger := l.notifier, l.logger
	l.mu.Unlock()

	fields := []zap.Field{
		zap.String("op", string(sub.Operation)),
		zap.String("outcome", outcome),
		zap.Bool("observed", observed),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		logger.Warn("offer failed", append(fields, zap.Error(err))...)
	} else {
		logger.Info("offer created", fields...)
	}
	if note != nil {
		notifier.Notify(*note)
	}

	sub.err = err
	close(sub.done)
}

// transition 调用方持有 mu。非法转换照样执行，只记录告警。
func (l *Lifecycle) transition(to State) {
	from := l.state
	if err := l.sm.ValidateTransition(from, to); err != nil {
		l.logger.Warn("unexpected state transition", zap.Error(err))
	}
	if from != to {
		l.recorder.RecordTransition(string(from), string(to))
	}
	l.state = to
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}
