// Package parsererror defines the error taxonomy of the statement import:
// structural failures that abort a file, row-level failures, and the
// domain-invariant violations raised by the reconciliation engine.
package parsererror

import (
	"errors"
	"fmt"
)

// ErrShortRow marks a body row with fewer columns than the resolved label
// mapping expects. It is the only recoverable row condition: the row is
// skipped and the file continues.
var ErrShortRow = errors.New("row shorter than resolved label mapping")

// ErrSellerUpdateNotImplemented is raised when a row for an already stored
// order-backed transaction would have to change seller-side information.
// That path is deliberately unsupported and must fail loudly.
var ErrSellerUpdateNotImplemented = errors.New("seller update for existing order not implemented")

// StructuralError means the file layout cannot be trusted: a missing
// section delimiter or a missing required column label. The file's import
// is aborted.
type StructuralError struct {
	FilePath string
	Reason   string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("structural error in %s: %s", e.FilePath, e.Reason)
}

// ParseError reports one field of one row that failed to parse.
type ParseError struct {
	Field string
	Value string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s=%q: %v", e.Field, e.Value, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// RowError attaches the position of the offending body row to an
// underlying error so the failing file and line can be named to the user.
type RowError struct {
	Line int
	Err  error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// OrphanTransactionError means a stored transaction references neither an
// order nor a transfer. The store is corrupt.
type OrphanTransactionError struct {
	AlipayID string
}

func (e *OrphanTransactionError) Error() string {
	return fmt.Sprintf("transaction %s has neither order nor transfer", e.AlipayID)
}

// IncompleteTransferError means a transfer update found no username-bearing
// party on either side, so there is no anchor to resolve the placeholder
// against.
type IncompleteTransferError struct {
	AlipayID string
}

func (e *IncompleteTransferError) Error() string {
	return fmt.Sprintf("transfer %s has no known party", e.AlipayID)
}

// UnknownTransactionTypeError means a relevant row could be classified as
// neither a transfer nor an order.
type UnknownTransactionTypeError struct {
	AlipayID string
}

func (e *UnknownTransactionTypeError) Error() string {
	return fmt.Sprintf("transaction %s is neither transfer nor order", e.AlipayID)
}

// InvariantError reports a state that indicates a corrupt store or an
// unreachable code path, such as a transaction carrying both an order and
// a transfer.
type InvariantError struct {
	AlipayID string
	Reason   string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation on transaction %s: %s", e.AlipayID, e.Reason)
}
