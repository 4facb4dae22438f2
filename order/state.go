package order

// State 表示下单表单所处的界面阶段。
type State string

const (
	StateForm    State = "form"
	StateConfirm State = "confirm"
	StateSending State = "sending"
	StateSent    State = "sent"
	StateError   State = "error"
)

// Operation 买入或卖出基础币种。
type Operation string

const (
	OpBuy  Operation = "buy"
	OpSell Operation = "sell"
)

// ParseOperation 解析 buy/sell，其他输入返回 false。
func ParseOperation(s string) (Operation, bool) {
	switch Operation(s) {
	case OpBuy:
		return OpBuy, true
	case OpSell:
		return OpSell, true
	}
	return "", false
}
