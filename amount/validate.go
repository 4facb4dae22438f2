package amount

import "math/big"

// MaxNativeAmount = (2^64-1) / 10^6，原生资产的最大可表示金额。
var MaxNativeAmount = func() Decimal {
	u64 := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(1))
	return FromBig(u64, -6)
}()

// Limits 描述协议对金额的数值限制。
type Limits struct {
	MaxNative       Decimal
	NativeDecimals  int
	MaxCreditDigits int // 账本 credit 最多 15 位有效数字，这里保留一位余量
}

// DefaultLimits 返回协议默认限制。
func DefaultLimits() Limits {
	return Limits{
		MaxNative:       MaxNativeAmount,
		NativeDecimals:  6,
		MaxCreditDigits: 14,
	}
}

// Validator 按固定优先级检查金额，只返回第一个违反的规则。
type Validator struct {
	Limits Limits
}

// NewValidator 使用默认限制。
func NewValidator() Validator {
	return Validator{Limits: DefaultLimits()}
}

var defaultValidator = NewValidator()

// Validate 使用默认限制校验金额。
func Validate(a TradeAmount) error {
	return defaultValidator.Validate(a)
}

// Validate 返回 nil 表示通过；尚未输入（Value 为 nil）不算错误。
func (v Validator) Validate(a TradeAmount) error {
	if a.Value == nil {
		return nil
	}
	value, err := Parse(*a.Value)
	if err != nil {
		return err
	}
	if value.Sign() <= 0 {
		return &NonPositiveAmountError{Currency: a.Currency}
	}
	if a.Currency.IsNative() {
		if value.GreaterThan(v.Limits.MaxNative) {
			return &NativeAmountTooLargeError{Value: value}
		}
		if !value.Equal(value.Round(v.Limits.NativeDecimals)) {
			return &NativePrecisionError{Value: value}
		}
		return nil
	}
	if value.SignificantDigits() > v.Limits.MaxCreditDigits {
		return &CreditPrecisionError{Currency: a.Currency, Value: value}
	}
	return nil
}
