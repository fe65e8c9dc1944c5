// Package models defines the durable records the reconciliation engine
// produces: accounts, merchant orders, peer-to-peer transfers and the
// canonical transaction entries backing them.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a party to a transaction: either the statement owner or a
// counterpart. Only the owner is guaranteed to carry a username at import
// time; counterparts start out identified by display name alone.
type Account struct {
	ID       int64
	Username string // unique platform login; empty for placeholder accounts
	FullName string // human display name, free text
}

// Known reports whether the account's platform identity has been resolved.
func (a *Account) Known() bool {
	return a != nil && a.Username != ""
}

// Placeholder reports whether the account is identified by display name only.
func (a *Account) Placeholder() bool {
	return a != nil && a.Username == ""
}

func (a *Account) String() string {
	if a == nil {
		return "<nil account>"
	}
	if a.FullName != "" {
		return a.FullName
	}
	return a.Username
}

// Order is a merchant transaction thread keyed by the platform-assigned
// order number. Amount and dates are not stored; they are derived from the
// transactions linked to the order (see AggregateOrder).
type Order struct {
	ID       int64
	AlipayID string // platform order number, unique
	Buyer    *Account
	Seller   *Account
	Name     string // product name, refined as later rows arrive
}

// Transfer is a peer-to-peer money movement keyed by the platform
// transaction id. One side is the statement owner at creation time; the
// other may start as a placeholder resolved by a later import.
type Transfer struct {
	ID       int64
	AlipayID string
	Sender   *Account
	Receiver *Account
}

// HasParty reports whether acct is the sender or the receiver.
func (t *Transfer) HasParty(acct *Account) bool {
	if t == nil || acct == nil {
		return false
	}
	return (t.Sender != nil && t.Sender.ID == acct.ID) ||
		(t.Receiver != nil && t.Receiver.ID == acct.ID)
}

// Transaction is the canonical ledger entry, keyed by the unique platform
// transaction id. Exactly one of Order and Transfer is set once the entry
// has been accepted.
type Transaction struct {
	ID       int64
	AlipayID string
	Created  time.Time
	Paid     time.Time // zero when the statement carried no payment time
	Modified time.Time
	Amount   decimal.Decimal // raw amount + service fee - refund, 2 places
	Notes    string
	Order    *Order
	Transfer *Transfer
}

// Valid reports whether the entry satisfies the exclusivity invariant:
// exactly one of Order and Transfer set.
func (t *Transaction) Valid() bool {
	return t != nil && (t.Order == nil) != (t.Transfer == nil)
}
