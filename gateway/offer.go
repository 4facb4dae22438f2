package gateway

import (
	"fmt"

	"offer-desk/amount"
)

// nativeScale native 金额与 drops 之间的小数位数。
const nativeScale = 6

// IssuedAmount 非原生资产在 tx_json 中的表示。
type IssuedAmount struct {
	Currency string `json:"currency"`
	Issuer   string `json:"issuer"`
	Value    string `json:"value"`
}

// OfferCreateTx 挂单交易；TakerPays 是挂单方希望收到的资产，TakerGets 是付出的资产。
type OfferCreateTx struct {
	TransactionType string      `json:"TransactionType"`
	Account         string      `json:"Account"`
	TakerPays       interface{} `json:"TakerPays"`
	TakerGets       interface{} `json:"TakerGets"`
}

// Amount 把金额文本编码为账本格式：native 为整数 drops 字符串，其它为 IssuedAmount。
func Amount(value string, c amount.Currency) (interface{}, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("encode %s amount: %w", c.Code, err)
	}
	d, err := amount.Parse(value)
	if err != nil {
		return nil, err
	}
	if c.IsNative() {
		drops := d.Shift(nativeScale)
		if !drops.IsInteger() {
			return nil, &amount.NativePrecisionError{Value: d}
		}
		return drops.ToFixed(0), nil
	}
	return IssuedAmount{Currency: c.Code, Issuer: c.Issuer, Value: d.String()}, nil
}

// OfferCreate 组装 OfferCreate 交易。
func OfferCreate(account string, paysValue string, pays amount.Currency, getsValue string, gets amount.Currency) (OfferCreateTx, error) {
	tx := OfferCreateTx{TransactionType: "OfferCreate", Account: account}
	var err error
	if tx.TakerPays, err = Amount(paysValue, pays); err != nil {
		return tx, err
	}
	if tx.TakerGets, err = Amount(getsValue, gets); err != nil {
		return tx, err
	}
	return tx, nil
}
