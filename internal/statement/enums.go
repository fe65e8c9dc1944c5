package statement

import (
	"fmt"

	"fjacquet/alipay-ledger/internal/parsererror"
)

// Origin is the source platform of a transaction row.
type Origin int

const (
	// OriginUnknown is never produced by a successful parse.
	OriginUnknown Origin = iota
	// OriginMarketplace covers marketplace purchases, refunds and installments.
	OriginMarketplace
	// OriginAlipay covers transfers between accounts, bank movements and
	// utility payments made inside the platform itself.
	OriginAlipay
	// OriginOther covers physical shops and external merchants.
	OriginOther
)

// Canonical token table, built once. Tokens are the exact vocabulary of the
// export format.
var originTokens = map[string]Origin{
	"淘宝":              OriginMarketplace,
	"支付宝网站":           OriginAlipay,
	"其他（包括阿里巴巴和外部商家）": OriginOther,
}

func (o Origin) String() string {
	switch o {
	case OriginMarketplace:
		return "marketplace"
	case OriginAlipay:
		return "alipay"
	case OriginOther:
		return "other"
	}
	return "unknown"
}

// ParseOrigin maps an origin token to its enum value. The vocabulary is
// closed: an unrecognized token is a fatal parse error.
func ParseOrigin(token string) (Origin, error) {
	if o, ok := originTokens[token]; ok {
		return o, nil
	}
	return OriginUnknown, &parsererror.ParseError{
		Field: "origin",
		Value: token,
		Err:   fmt.Errorf("unrecognized origin token"),
	}
}

// FundsState distinguishes genuine money movement (paid/received) from the
// transitional and cancelled states a statement also reports.
type FundsState int

const (
	// FundsStateIrrelevant is any blank or unrecognized token. Rows in this
	// state are intentionally dropped, not treated as errors.
	FundsStateIrrelevant FundsState = iota
	FundsStatePaid
	FundsStateReceived
	FundsStateAwaiting
	FundsStateTransfer
	FundsStateFrozen
	FundsStateUnfrozen
)

var fundsStateTokens = map[string]FundsState{
	"已支出":  FundsStatePaid,
	"已收入":  FundsStateReceived,
	"待支出":  FundsStateAwaiting,
	"资金转移": FundsStateTransfer,
	"冻结":   FundsStateFrozen,
	"解冻":   FundsStateUnfrozen,
}

func (f FundsState) String() string {
	switch f {
	case FundsStatePaid:
		return "paid"
	case FundsStateReceived:
		return "received"
	case FundsStateAwaiting:
		return "awaiting"
	case FundsStateTransfer:
		return "funds-transfer"
	case FundsStateFrozen:
		return "frozen"
	case FundsStateUnfrozen:
		return "unfrozen"
	}
	return "irrelevant"
}

// ParseFundsState maps a funds-state token to its enum value. Unknown
// tokens deliberately map to FundsStateIrrelevant rather than an error.
func ParseFundsState(token string) FundsState {
	return fundsStateTokens[token]
}

// Relevant reports whether the state represents money actually moving.
func (f FundsState) Relevant() bool {
	return f == FundsStatePaid || f == FundsStateReceived
}
