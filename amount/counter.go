package amount

// Recompute 由基础金额与单价推导对手金额。任一输入缺失或无法解析时返回 nil，
// 不向调用方暴露解析错误：对手金额是派生字段，不是用户输入。
func Recompute(base, price *string) *string {
	if base == nil || price == nil {
		return nil
	}
	b, err := Parse(*base)
	if err != nil {
		return nil
	}
	p, err := Parse(*price)
	if err != nil {
		return nil
	}
	out := b.Mul(p).String()
	return &out
}
