package order

import (
	"offer-desk/amount"
)

// Catalog 提供币种的发行方列表（来自钱包网关配置）。
type Catalog interface {
	IssuersFor(code string) []string
}

// FormData 表单的只读快照。
type FormData struct {
	Operation       Operation
	BaseCurrency    amount.Currency
	CounterCurrency amount.Currency
	BaseAmount      *string
	UnitPrice       *string
	CounterAmount   *string
	Favorite        string
	OfferError      string
}

// Form 保存下单表单的币种与金额。counterAmount 只能由 amount.Recompute 写入。
// Form 本身不加锁，由 Lifecycle 串行访问。
type Form struct {
	catalog   Catalog
	validator amount.Validator

	operation       Operation
	baseCurrency    amount.Currency
	counterCurrency amount.Currency
	baseAmount      *string
	unitPrice       *string
	counterAmount   *string
	favorite        string
	offerError      string
}

// NewForm 创建空表单，交易方向默认 buy。
func NewForm(catalog Catalog) *Form {
	return &Form{
		catalog:   catalog,
		validator: amount.NewValidator(),
		operation: OpBuy,
	}
}

// SetValidator 替换金额限制。
func (f *Form) SetValidator(v amount.Validator) {
	f.validator = v
}

func (f *Form) firstIssuer(code string) string {
	if f.catalog == nil {
		return ""
	}
	issuers := f.catalog.IssuersFor(code)
	if len(issuers) == 0 {
		return ""
	}
	return issuers[0]
}

// ChangeBaseCurrency 切换基础币种，issuer 取目录中的第一个。
func (f *Form) ChangeBaseCurrency(code string) {
	f.baseCurrency = amount.Currency{Code: code, Issuer: f.firstIssuer(code)}
}

// ChangeCounterCurrency 切换计价币种，issuer 取目录中的第一个。
func (f *Form) ChangeCounterCurrency(code string) {
	f.counterCurrency = amount.Currency{Code: code, Issuer: f.firstIssuer(code)}
}

func (f *Form) SetBaseIssuer(issuer string) {
	f.baseCurrency.Issuer = issuer
}

func (f *Form) SetCounterIssuer(issuer string) {
	f.counterCurrency.Issuer = issuer
}

// SetBaseAmount 更新基础金额并同步重算对手金额。nil 表示清空。
func (f *Form) SetBaseAmount(v *string) {
	f.baseAmount = clone(v)
	f.recompute()
}

// SetUnitPrice 更新单价并同步重算对手金额。nil 表示清空。
func (f *Form) SetUnitPrice(v *string) {
	f.unitPrice = clone(v)
	f.recompute()
}

func (f *Form) recompute() {
	f.counterAmount = amount.Recompute(f.baseAmount, f.unitPrice)
}

func (f *Form) SetOperation(op Operation) {
	f.operation = op
}

func (f *Form) SetFavorite(id string) {
	f.favorite = id
}

// ResetAmounts 清空基础金额、单价和对手金额。
func (f *Form) ResetAmounts() {
	f.baseAmount = nil
	f.unitPrice = nil
	f.counterAmount = nil
}

// ClearForm 清空金额、两侧币种、收藏与下单错误。
func (f *Form) ClearForm() {
	f.ResetAmounts()
	f.baseCurrency = amount.Currency{}
	f.counterCurrency = amount.Currency{}
	f.favorite = ""
	f.offerError = ""
}

// IsComplete 粗略检查表单是否填写完整。非原生币种没有 issuer 也算未填完。
// 这里对 "0" 做字符串比较，"0.0" 之类的零值由 FirstValidationError 拒绝。
func (f *Form) IsComplete() bool {
	if !currencySelected(f.baseCurrency) || !currencySelected(f.counterCurrency) {
		return false
	}
	for _, v := range []*string{f.baseAmount, f.unitPrice, f.counterAmount} {
		if v == nil || *v == "" || *v == "0" {
			return false
		}
	}
	return true
}

func currencySelected(c amount.Currency) bool {
	if c.Code == "" {
		return false
	}
	return c.IsNative() || c.Issuer != ""
}

// amounts 固定顺序：基础金额、单价（按计价币种的精度）、对手金额。
func (f *Form) amounts() []amount.TradeAmount {
	return []amount.TradeAmount{
		{Value: f.baseAmount, Currency: f.baseCurrency},
		{Value: f.unitPrice, Currency: f.counterCurrency},
		{Value: f.counterAmount, Currency: f.counterCurrency},
	}
}

// FirstValidationError 返回第一个校验错误，全部通过返回 nil。
func (f *Form) FirstValidationError() error {
	for _, a := range f.amounts() {
		if err := f.validator.Validate(a); err != nil {
			return err
		}
	}
	return nil
}

// ErrorMessage 返回第一个校验错误的文案，没有错误时为空串。
func (f *Form) ErrorMessage() string {
	if err := f.FirstValidationError(); err != nil {
		return err.Error()
	}
	return ""
}

func (f *Form) IsValid() bool {
	return f.FirstValidationError() == nil
}

// IsSubmittable 表单完整且通过校验。
func (f *Form) IsSubmittable() bool {
	return f.IsComplete() && f.IsValid()
}

func (f *Form) Operation() Operation              { return f.operation }
func (f *Form) BaseCurrency() amount.Currency    { return f.baseCurrency }
func (f *Form) CounterCurrency() amount.Currency { return f.counterCurrency }
func (f *Form) BaseAmount() *string              { return clone(f.baseAmount) }
func (f *Form) UnitPrice() *string               { return clone(f.unitPrice) }
func (f *Form) CounterAmount() *string           { return clone(f.counterAmount) }
func (f *Form) Favorite() string                 { return f.favorite }
func (f *Form) OfferError() string               { return f.offerError }

// Snapshot 返回当前表单的拷贝。
func (f *Form) Snapshot() FormData {
	return FormData{
		Operation:       f.operation,
		BaseCurrency:    f.baseCurrency,
		CounterCurrency: f.counterCurrency,
		BaseAmount:      clone(f.baseAmount),
		UnitPrice:       clone(f.unitPrice),
		CounterAmount:   clone(f.counterAmount),
		Favorite:        f.favorite,
		OfferError:      f.offerError,
	}
}

func (f *Form) setOfferError(msg string) {
	f.offerError = msg
}

func clone(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}
