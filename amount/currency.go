package amount

import "errors"

// NativeCode 账本原生资产的代码，原生资产没有 issuer。
const NativeCode = "NATIVE"

var (
	ErrCurrencyRequired = errors.New("currency code is required")
	ErrIssuerRequired   = errors.New("credit currency requires an issuer")
	ErrIssuerNotAllowed = errors.New("native currency must not have an issuer")
)

// Currency 币种与发行方，空字符串表示未选择。
type Currency struct {
	Code   string
	Issuer string
}

// Native 返回原生资产。
func Native() Currency { return Currency{Code: NativeCode} }

func (c Currency) IsNative() bool { return c.Code == NativeCode }

// IsZero 表示币种未选择。
func (c Currency) IsZero() bool { return c.Code == "" && c.Issuer == "" }

// Validate 检查 code/issuer 组合，供网关在组装交易前使用。
func (c Currency) Validate() error {
	switch {
	case c.Code == "":
		return ErrCurrencyRequired
	case c.IsNative() && c.Issuer != "":
		return ErrIssuerNotAllowed
	case !c.IsNative() && c.Issuer == "":
		return ErrIssuerRequired
	}
	return nil
}

func (c Currency) String() string {
	if c.Issuer == "" {
		return c.Code
	}
	return c.Code + "/" + c.Issuer
}

// TradeAmount 一个待校验的金额文本及其币种。Value 为 nil 表示尚未输入，和 "0" 不同。
type TradeAmount struct {
	Value    *string
	Currency Currency
}

// Str 返回 s 的指针，便于构造 TradeAmount 与表单输入。
func Str(s string) *string { return &s }
