package statement

import (
	"time"

	"github.com/shopspring/decimal"

	"fjacquet/alipay-ledger/internal/dateutils"
	"fjacquet/alipay-ledger/internal/parsererror"
)

// RawRow is one structured body line of a statement: identifiers, the
// origin and funds-state enumerations, the three amounts and up to three
// timestamps.
type RawRow struct {
	AlipayID     string
	OrderNum     string
	Counterpart  string
	ProductName  string
	Notes        string
	Origin       Origin
	FundsState   FundsState
	RawAmount    decimal.Decimal
	ServiceFee   decimal.Decimal
	RefundAmount decimal.Decimal
	Created      time.Time
	Paid         time.Time // zero when the export had no payment time
	Modified     time.Time
}

// Relevant reports whether the row represents genuine money movement.
// Irrelevant rows are only parsed far enough to establish that and carry
// no other populated fields.
func (r *RawRow) Relevant() bool {
	return r.FundsState.Relevant()
}

// Amount is the signed ledger amount of the row: raw amount plus service
// fee minus refund, quantized to two decimal places.
func (r *RawRow) Amount() decimal.Decimal {
	return r.RawAmount.Add(r.ServiceFee).Sub(r.RefundAmount).RoundBank(2)
}

// ParseAmount parses a statement decimal, quantized to cents with banker's
// rounding.
func ParseAmount(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return d.RoundBank(2), nil
}

// ParseRow turns one comma-delimited body line into a RawRow using the
// resolved label mapping. A row shorter than the mapping expects yields
// ErrShortRow, which the caller may recover from by skipping the row;
// every other failure is fatal for the file.
//
// The funds state is inspected first: rows it marks irrelevant are
// returned immediately without touching the remaining fields, so garbage
// in a row the engine would drop anyway cannot abort an import.
func ParseRow(row string, labels LabelMap) (*RawRow, error) {
	cols := SplitRow(row)
	field := func(label Label) (string, error) {
		idx := labels[label]
		if idx >= len(cols) {
			return "", parsererror.ErrShortRow
		}
		return cols[idx], nil
	}

	fundsToken, err := field(LabelFundsState)
	if err != nil {
		return nil, err
	}
	r := &RawRow{FundsState: ParseFundsState(fundsToken)}
	if !r.Relevant() {
		return r, nil
	}

	for label, dst := range map[Label]*string{
		LabelAlipayID:    &r.AlipayID,
		LabelOrderNum:    &r.OrderNum,
		LabelCounterpart: &r.Counterpart,
		LabelProductName: &r.ProductName,
		LabelNotes:       &r.Notes,
	} {
		if *dst, err = field(label); err != nil {
			return nil, err
		}
	}

	originToken, err := field(LabelOrigin)
	if err != nil {
		return nil, err
	}
	if r.Origin, err = ParseOrigin(originToken); err != nil {
		return nil, err
	}

	for label, dst := range map[Label]*decimal.Decimal{
		LabelAmount:       &r.RawAmount,
		LabelServiceFee:   &r.ServiceFee,
		LabelRefundAmount: &r.RefundAmount,
	} {
		value, err := field(label)
		if err != nil {
			return nil, err
		}
		if *dst, err = ParseAmount(value); err != nil {
			return nil, &parsererror.ParseError{Field: label.String(), Value: value, Err: err}
		}
	}

	// Creation and last-modified times are required; payment time is
	// optional and parses to the zero time when absent or malformed.
	created, err := field(LabelCreated)
	if err != nil {
		return nil, err
	}
	if r.Created, err = dateutils.Parse(created); err != nil {
		return nil, &parsererror.ParseError{Field: LabelCreated.String(), Value: created, Err: err}
	}
	modified, err := field(LabelModified)
	if err != nil {
		return nil, err
	}
	if r.Modified, err = dateutils.Parse(modified); err != nil {
		return nil, &parsererror.ParseError{Field: LabelModified.String(), Value: modified, Err: err}
	}
	paid, err := field(LabelPaid)
	if err != nil {
		return nil, err
	}
	r.Paid = dateutils.ParseOptional(paid)

	return r, nil
}
