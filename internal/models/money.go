package models

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

var fenPerYuan = decimal.NewFromInt(100)

// Money 金额展示类型（元，保留 2 位小数）
//
// 数据库与服务层统一以分（int64）计算，Money 仅在
// 日志和接口输出时做元的格式化。
type Money struct {
	decimal.Decimal
}

// MoneyFromFen 把分转换为元金额
func MoneyFromFen(fen int64) Money {
	return Money{Decimal: decimal.NewFromInt(fen).Div(fenPerYuan).Round(2)}
}

// Fen 把金额换回分
func (m Money) Fen() int64 {
	return m.Decimal.Mul(fenPerYuan).Round(0).IntPart()
}

// MarshalJSON 统一输出 2 位小数的字符串
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Decimal.Round(2).StringFixed(2))
}

// UnmarshalJSON 解析金额（字符串或数字）
func (m *Money) UnmarshalJSON(b []byte) error {
	if len(b) == 0 {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		m.Decimal = d.Round(2)
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	m.Decimal = decimal.NewFromFloat(f).Round(2)
	return nil
}

// String 返回 2 位小数格式
func (m Money) String() string {
	return m.Decimal.Round(2).StringFixed(2)
}
