// Package amount 提供账本金额的精确十进制表示、校验规则与对手金额推导。
package amount

import (
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// Decimal 任意精度的有符号十进制数，值类型，不可变。
type Decimal struct {
	d decimal.Decimal
}

// Parse 解析十进制文本。空串、非数字字符、多个小数点、指数写法都返回 *ParseError。
// 负数可以解析，是否为正由校验层负责。
func Parse(s string) (Decimal, error) {
	if strings.TrimSpace(s) == "" || strings.ContainsAny(s, " \t\r\n,eE") {
		return Decimal{}, &ParseError{Raw: s}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Decimal{}, &ParseError{Raw: s, cause: err}
	}
	return Decimal{d: d}, nil
}

// MustParse 用于常量和测试，解析失败直接 panic。
func MustParse(s string) Decimal {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// FromBig 以 coefficient * 10^exp 构造。
func FromBig(coefficient *big.Int, exp int32) Decimal {
	return Decimal{d: decimal.NewFromBigInt(coefficient, exp)}
}

// Zero 零值。
func Zero() Decimal { return Decimal{d: decimal.Zero} }

func (a Decimal) Mul(b Decimal) Decimal { return Decimal{d: a.d.Mul(b.d)} }

// Cmp 返回 -1 / 0 / +1。
func (a Decimal) Cmp(b Decimal) int { return a.d.Cmp(b.d) }

func (a Decimal) Equal(b Decimal) bool { return a.d.Equal(b.d) }

func (a Decimal) GreaterThan(b Decimal) bool { return a.d.GreaterThan(b.d) }

func (a Decimal) LessThanOrEqual(b Decimal) bool { return a.d.LessThanOrEqual(b.d) }

func (a Decimal) Sign() int { return a.d.Sign() }

// Round 四舍五入到 digits 位小数。
func (a Decimal) Round(digits int) Decimal { return Decimal{d: a.d.Round(int32(digits))} }

// ToFixed 返回恰好 digits 位小数的定点字符串。
func (a Decimal) ToFixed(digits int) string { return a.d.StringFixed(int32(digits)) }

// Shift 乘以 10^n，用于 native 金额与最小单位之间的换算。
func (a Decimal) Shift(n int) Decimal { return Decimal{d: a.d.Shift(int32(n))} }

// IsInteger 是否没有小数部分。
func (a Decimal) IsInteger() bool { return a.d.IsInteger() }

// SignificantDigits 规范形式（非科学计数、去掉尾零）下的有效数字个数。零计为 1。
func (a Decimal) SignificantDigits() int {
	coef := new(big.Int).Abs(a.d.Coefficient()).String()
	coef = strings.TrimRight(coef, "0")
	if coef == "" {
		return 1
	}
	return len(coef)
}

// String 规范形式：定点表示，去掉小数尾零。
func (a Decimal) String() string { return a.d.String() }
