package statement

import (
	"fmt"
	"strings"
)

// Label identifies one logical column of the body section.
type Label int

const (
	LabelAlipayID     Label = iota // 交易号
	LabelOrderNum                  // 商家订单号
	LabelCreated                   // 交易创建时间
	LabelPaid                      // 付款时间
	LabelModified                  // 最近修改时间
	LabelOrigin                    // 交易来源地
	LabelCategory                  // 类型
	LabelCounterpart               // 交易对方
	LabelProductName               // 商品名称
	LabelAmount                    // 金额（元）
	LabelSign                      // 收/支
	LabelState                     // 交易状态
	LabelServiceFee                // 服务费（元）
	LabelRefundAmount              // 成功退款（元）
	LabelNotes                     // 备注
	LabelFundsState                // 资金状态
)

// labelTokens is the closed vocabulary of required column headers.
var labelTokens = map[string]Label{
	"交易号":     LabelAlipayID,
	"商家订单号":   LabelOrderNum,
	"交易创建时间":  LabelCreated,
	"付款时间":    LabelPaid,
	"最近修改时间":  LabelModified,
	"交易来源地":   LabelOrigin,
	"类型":      LabelCategory,
	"交易对方":    LabelCounterpart,
	"商品名称":    LabelProductName,
	"金额（元）":   LabelAmount,
	"收/支":     LabelSign,
	"交易状态":    LabelState,
	"服务费（元）":  LabelServiceFee,
	"成功退款（元）": LabelRefundAmount,
	"备注":      LabelNotes,
	"资金状态":    LabelFundsState,
}

func (l Label) String() string {
	for token, label := range labelTokens {
		if label == l {
			return token
		}
	}
	return fmt.Sprintf("Label(%d)", int(l))
}

// LabelMap maps logical labels to their column index in body rows.
type LabelMap map[Label]int

// ResolveLabels locates every required label in the comma-delimited label
// row. Column order does not matter and unrecognized extra columns are
// ignored, but a missing required label means the column layout cannot be
// trusted and the file must be aborted.
func ResolveLabels(row string) (LabelMap, error) {
	cols := SplitRow(row)
	m := make(LabelMap, len(labelTokens))
	for i, col := range cols {
		label, ok := labelTokens[col]
		if !ok {
			continue
		}
		if _, seen := m[label]; !seen {
			m[label] = i
		}
	}
	for token, label := range labelTokens {
		if _, ok := m[label]; !ok {
			return nil, fmt.Errorf("required label %q missing from label row", token)
		}
	}
	return m, nil
}

// SplitRow splits a comma-delimited statement line and trims whitespace
// from every field. Field values never contain the delimiter themselves.
func SplitRow(row string) []string {
	cols := strings.Split(row, ",")
	for i := range cols {
		cols[i] = strings.TrimSpace(cols[i])
	}
	return cols
}
