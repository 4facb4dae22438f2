package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"offer-desk/amount"
	"offer-desk/infrastructure/logger"
	"offer-desk/order"
)

// ErrQuit quit/exit 命令
var ErrQuit = errors.New("quit")

// Catalog 控制台用到的币种目录
type Catalog interface {
	Currencies() []string
	IssuersFor(code string) []string
}

// Console 逐行读取命令驱动下单表单，每一行是一次独立的输入事件。
type Console struct {
	lc      *order.Lifecycle
	catalog Catalog
	logger  *logger.Logger
	sm      *order.StateMachine

	// Wait 为 true 时 submit 阻塞到结果返回
	Wait bool

	mu      sync.Mutex
	out     io.Writer
	pending sync.WaitGroup

	// last 本控制台最近一次发出的提交，只在 Exec 所在 goroutine 访问
	last *order.Submission
}

func New(lc *order.Lifecycle, catalog Catalog, out io.Writer, log *logger.Logger) *Console {
	if log == nil {
		log = logger.Wrap(zap.NewNop())
	}
	return &Console{
		lc:      lc,
		catalog: catalog,
		logger:  log,
		sm:      order.NewStateMachine(),
		out:     out,
	}
}

type command struct {
	usage string
	help  string
	run   func(c *Console, ctx context.Context, args []string) error
}

var commands map[string]command

func init() {
	commands = map[string]command{
		"op":             {"op buy|sell", "set trade operation", (*Console).cmdOperation},
		"base":           {"base CODE", "select base currency", (*Console).cmdBase},
		"counter":        {"counter CODE", "select counter currency", (*Console).cmdCounter},
		"base-issuer":    {"base-issuer ISSUER", "select base issuer", (*Console).cmdBaseIssuer},
		"counter-issuer": {"counter-issuer ISSUER", "select counter issuer", (*Console).cmdCounterIssuer},
		"amount":         {"amount VALUE|-", "set base amount, - clears", (*Console).cmdAmount},
		"price":          {"price VALUE|-", "set unit price, - clears", (*Console).cmdPrice},
		"favorite":       {"favorite ID|-", "mark the pair as favorite", (*Console).cmdFavorite},
		"show":           {"show", "print the form", (*Console).cmdShow},
		"confirm":        {"confirm", "review the offer before sending", (*Console).cmdConfirm},
		"edit":           {"edit", "back to the form from confirm", (*Console).cmdEdit},
		"submit":         {"submit", "create the offer", (*Console).cmdSubmit},
		"reset":          {"reset", "start a new offer", (*Console).cmdReset},
		"clear":          {"clear [amounts]", "clear the form or only the amounts", (*Console).cmdClear},
		"currencies":     {"currencies", "list known currencies", (*Console).cmdCurrencies},
		"issuers":        {"issuers CODE", "list issuers of a currency", (*Console).cmdIssuers},
		"help":           {"help", "list commands", (*Console).cmdHelp},
	}
}

// Run 读取 in 直到 EOF、quit 或 ctx 结束，返回前等待后台提交的输出。
func (c *Console) Run(ctx context.Context, in io.Reader) error {
	defer c.pending.Wait()
	scanner := bufio.NewScanner(in)
	c.prompt()
	for scanner.Scan() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := c.Exec(ctx, scanner.Text())
		if errors.Is(err, ErrQuit) {
			return nil
		}
		if err != nil {
			c.printf("error: %v\n", err)
		}
		c.prompt()
	}
	return scanner.Err()
}

// Exec 执行一行命令
func (c *Console) Exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	name, args := strings.ToLower(fields[0]), fields[1:]
	if name == "quit" || name == "exit" {
		return ErrQuit
	}
	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("unknown command %q, try help", name)
	}
	c.logger.LogForm("form_input", map[string]interface{}{
		"command": name,
		"args":    args,
		"state":   string(c.lc.State()),
	})
	return cmd.run(c, ctx, args)
}

// Flush 等待后台提交结果输出完毕
func (c *Console) Flush() {
	c.pending.Wait()
}

func (c *Console) prompt() {
	c.printf("%s> ", c.lc.State())
}

func (c *Console) printf(format string, args ...interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, format, args...)
}

// edit 只允许在 form 状态修改字段
func (c *Console) edit(fn func(f *order.Form)) error {
	if st := c.lc.State(); !c.sm.IsEditable(st) {
		return fmt.Errorf("form is read-only in %s, use edit or reset", st)
	}
	c.lc.Update(fn)
	return nil
}

func oneArg(args []string, usage string) (string, error) {
	if len(args) != 1 {
		return "", fmt.Errorf("usage: %s", usage)
	}
	return args[0], nil
}

// optional "-" 表示清空
func optional(v string) *string {
	if v == "-" {
		return nil
	}
	return amount.Str(v)
}

func (c *Console) cmdOperation(_ context.Context, args []string) error {
	v, err := oneArg(args, "op buy|sell")
	if err != nil {
		return err
	}
	op, ok := order.ParseOperation(strings.ToLower(v))
	if !ok {
		return fmt.Errorf("unknown operation %q", v)
	}
	return c.edit(func(f *order.Form) { f.SetOperation(op) })
}

func (c *Console) cmdBase(_ context.Context, args []string) error {
	v, err := oneArg(args, "base CODE")
	if err != nil {
		return err
	}
	return c.edit(func(f *order.Form) { f.ChangeBaseCurrency(strings.ToUpper(v)) })
}

func (c *Console) cmdCounter(_ context.Context, args []string) error {
	v, err := oneArg(args, "counter CODE")
	if err != nil {
		return err
	}
	return c.edit(func(f *order.Form) { f.ChangeCounterCurrency(strings.ToUpper(v)) })
}

func (c *Console) cmdBaseIssuer(_ context.Context, args []string) error {
	v, err := oneArg(args, "base-issuer ISSUER")
	if err != nil {
		return err
	}
	return c.edit(func(f *order.Form) { f.SetBaseIssuer(v) })
}

func (c *Console) cmdCounterIssuer(_ context.Context, args []string) error {
	v, err := oneArg(args, "counter-issuer ISSUER")
	if err != nil {
		return err
	}
	return c.edit(func(f *order.Form) { f.SetCounterIssuer(v) })
}

func (c *Console) cmdAmount(_ context.Context, args []string) error {
	v, err := oneArg(args, "amount VALUE|-")
	if err != nil {
		return err
	}
	return c.edit(func(f *order.Form) { f.SetBaseAmount(optional(v)) })
}

func (c *Console) cmdPrice(_ context.Context, args []string) error {
	v, err := oneArg(args, "price VALUE|-")
	if err != nil {
		return err
	}
	return c.edit(func(f *order.Form) { f.SetUnitPrice(optional(v)) })
}

func (c *Console) cmdFavorite(_ context.Context, args []string) error {
	v, err := oneArg(args, "favorite ID|-")
	if err != nil {
		return err
	}
	if v == "-" {
		v = ""
	}
	return c.edit(func(f *order.Form) { f.SetFavorite(v) })
}

func (c *Console) cmdShow(_ context.Context, _ []string) error {
	c.printf("%s", c.render())
	return nil
}

func (c *Console) render() string {
	var b strings.Builder
	state := c.lc.State()
	c.lc.View(func(f *order.Form) {
		fmt.Fprintf(&b, "state:    %s\n", state)
		fmt.Fprintf(&b, "op:       %s\n", f.Operation())
		fmt.Fprintf(&b, "base:     %s %s\n", show(f.BaseAmount()), currency(f.BaseCurrency()))
		fmt.Fprintf(&b, "price:    %s\n", show(f.UnitPrice()))
		fmt.Fprintf(&b, "counter:  %s %s\n", show(f.CounterAmount()), currency(f.CounterCurrency()))
		if fav := f.Favorite(); fav != "" {
			fmt.Fprintf(&b, "favorite: %s\n", fav)
		}
		if msg := f.ErrorMessage(); msg != "" {
			fmt.Fprintf(&b, "invalid:  %s\n", msg)
		}
		if msg := f.OfferError(); msg != "" {
			fmt.Fprintf(&b, "failed:   %s\n", msg)
		}
	})
	return b.String()
}

func show(v *string) string {
	if v == nil {
		return "-"
	}
	return *v
}

func currency(c amount.Currency) string {
	if c.IsZero() {
		return "(none)"
	}
	return c.String()
}

// cmdConfirm 与界面上的确认按钮一样，表单不可提交时不进入 confirm
func (c *Console) cmdConfirm(_ context.Context, _ []string) error {
	if err := c.lc.Validate(); err != nil {
		return err
	}
	c.lc.ConfirmOffer()
	c.printf("%s", c.render())
	return nil
}

func (c *Console) cmdEdit(_ context.Context, _ []string) error {
	c.lc.EditForm()
	return nil
}

func (c *Console) cmdSubmit(ctx context.Context, _ []string) error {
	st := c.lc.State()
	if st == order.StateSending {
		sub, err := c.lc.CreateOffer(ctx)
		if err != nil {
			return err
		}
		c.printf("%s offer already in flight\n", sub.Operation)
		return nil
	}
	if st == order.StateForm || st == order.StateConfirm {
		if err := c.lc.Validate(); err != nil {
			return err
		}
	}
	if st == order.StateForm {
		c.lc.ConfirmOffer()
	}
	sub, err := c.lc.CreateOffer(ctx)
	if err != nil {
		return err
	}
	// 重置后重新填写再提交时，拿回的仍是之前在途的那一笔
	if sub == c.last {
		c.printf("%s offer already in flight\n", sub.Operation)
		return nil
	}
	c.last = sub
	snap := c.lc.Snapshot()
	c.logger.LogOffer("offer_submit", string(sub.Operation), map[string]interface{}{
		"state":         string(st),
		"base":          snap.BaseCurrency.String(),
		"counter":       snap.CounterCurrency.String(),
		"baseAmount":    show(snap.BaseAmount),
		"counterAmount": show(snap.CounterAmount),
	})
	c.printf("sending %s offer...\n", sub.Operation)

	c.pending.Add(1)
	report := func() {
		defer c.pending.Done()
		<-sub.Done()
		// 用户已离开发送页时结果由通知渠道输出
		outcome := "sent"
		if sub.Err() != nil {
			outcome = "failed"
		}
		c.logger.LogOffer("offer_result", string(sub.Operation), map[string]interface{}{"outcome": outcome})
		switch c.lc.State() {
		case order.StateSent:
			c.printf("offer created\n")
		case order.StateError:
			c.printf("offer failed: %s\n", c.lc.Snapshot().OfferError)
		}
	}
	if c.Wait {
		report()
		return nil
	}
	go report()
	return nil
}

func (c *Console) cmdReset(_ context.Context, _ []string) error {
	c.lc.ResetForm()
	return nil
}

func (c *Console) cmdClear(_ context.Context, args []string) error {
	if len(args) == 1 && args[0] == "amounts" {
		return c.edit(func(f *order.Form) { f.ResetAmounts() })
	}
	if len(args) != 0 {
		return errors.New("usage: clear [amounts]")
	}
	return c.edit(func(f *order.Form) { f.ClearForm() })
}

func (c *Console) cmdCurrencies(_ context.Context, _ []string) error {
	c.printf("%s\n", strings.Join(c.catalog.Currencies(), " "))
	return nil
}

func (c *Console) cmdIssuers(_ context.Context, args []string) error {
	v, err := oneArg(args, "issuers CODE")
	if err != nil {
		return err
	}
	issuers := c.catalog.IssuersFor(strings.ToUpper(v))
	if len(issuers) == 0 {
		return fmt.Errorf("no issuers for %s", strings.ToUpper(v))
	}
	for _, issuer := range issuers {
		if issuer == "" {
			issuer = "(native)"
		}
		c.printf("%s\n", issuer)
	}
	return nil
}

func (c *Console) cmdHelp(_ context.Context, _ []string) error {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		c.printf("  %-24s %s\n", cmd.usage, cmd.help)
	}
	c.printf("  %-24s %s\n", "quit", "exit the desk")
	return nil
}
