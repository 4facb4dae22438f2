package amount

import (
	"errors"
	"fmt"
)

// 校验错误的类别，用作指标标签。
const (
	KindParse           = "parse"
	KindNonPositive     = "non_positive"
	KindNativeTooLarge  = "native_too_large"
	KindNativePrecision = "native_precision"
	KindCreditPrecision = "credit_precision"
)

// ParseError 金额文本不是合法的十进制数。
type ParseError struct {
	Raw   string
	cause error
}

func (e *ParseError) Error() string { return "Error parsing amount: " + e.Raw }
func (e *ParseError) Unwrap() error { return e.cause }
func (e *ParseError) Kind() string  { return KindParse }

// NonPositiveAmountError 金额 <= 0。
type NonPositiveAmountError struct {
	Currency Currency
}

func (e *NonPositiveAmountError) Error() string {
	return e.Currency.Code + " amount must be a positive number"
}
func (e *NonPositiveAmountError) Kind() string { return KindNonPositive }

// NativeAmountTooLargeError 原生资产金额超过 MaxNativeAmount。
type NativeAmountTooLargeError struct {
	Value Decimal
}

func (e *NativeAmountTooLargeError) Error() string {
	return fmt.Sprintf("%s amount is too large: %s", NativeCode, e.Value)
}
func (e *NativeAmountTooLargeError) Kind() string { return KindNativeTooLarge }

// NativePrecisionError 原生资产金额小数位超过 6 位。
type NativePrecisionError struct {
	Value Decimal
}

func (e *NativePrecisionError) Error() string {
	return fmt.Sprintf("%s amount has too many decimals: %s", NativeCode, e.Value)
}
func (e *NativePrecisionError) Kind() string { return KindNativePrecision }

// CreditPrecisionError 非原生资产的有效数字超过上限。
type CreditPrecisionError struct {
	Currency Currency
	Value    Decimal
}

func (e *CreditPrecisionError) Error() string {
	return fmt.Sprintf("%s amount has too much precision: %s", e.Currency.Code, e.Value)
}
func (e *CreditPrecisionError) Kind() string { return KindCreditPrecision }

// KindOf 返回校验错误的类别，非校验错误返回 "unknown"。
func KindOf(err error) string {
	var k interface{ Kind() string }
	if errors.As(err, &k) {
		return k.Kind()
	}
	return "unknown"
}
