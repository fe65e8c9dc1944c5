// Package store provides the repository abstraction over the durable
// datastore, with an in-memory implementation for tests and dry runs and a
// PostgreSQL implementation for real imports.
package store

import (
	"context"
	"errors"

	"fjacquet/alipay-ledger/internal/models"
)

var (
	// ErrNotFound is returned by lookups that match no record.
	ErrNotFound = errors.New("record not found")
	// ErrExists is returned by creates that would violate a natural key.
	ErrExists = errors.New("record already exists")
	// ErrEmptyAccount rejects an account with neither username nor full
	// name; such a record is meaningless and must not persist.
	ErrEmptyAccount = errors.New("account has neither username nor full name")
)

// Repository is the persistence surface the reconciliation engine works
// against. Lookups are by natural key; Create assigns the record's ID.
// Implementations assume a single writer: the import runs synchronously
// inside one enclosing transaction.
type Repository interface {
	AccountByUsername(ctx context.Context, username string) (*models.Account, error)
	AccountByFullName(ctx context.Context, fullName string) (*models.Account, error)
	CreateAccount(ctx context.Context, acct *models.Account) error
	UpdateAccount(ctx context.Context, acct *models.Account) error
	DeleteAccount(ctx context.Context, id int64) error

	OrderByAlipayID(ctx context.Context, alipayID string) (*models.Order, error)
	CreateOrder(ctx context.Context, order *models.Order) error
	UpdateOrder(ctx context.Context, order *models.Order) error

	TransferByAlipayID(ctx context.Context, alipayID string) (*models.Transfer, error)
	CreateTransfer(ctx context.Context, transfer *models.Transfer) error
	UpdateTransfer(ctx context.Context, transfer *models.Transfer) error
	// TransferReferenceCount reports how many transfers name the account
	// as sender or receiver; OrderReferenceCount does the same for orders
	// naming it as buyer or seller. Placeholder accounts are reclaimed
	// only when both counts are zero.
	TransferReferenceCount(ctx context.Context, accountID int64) (int, error)
	OrderReferenceCount(ctx context.Context, accountID int64) (int, error)

	TransactionByAlipayID(ctx context.Context, alipayID string) (*models.Transaction, error)
	CreateTransaction(ctx context.Context, tx *models.Transaction) error
	// TransactionsByOrderID returns the transactions backing an order, for
	// the derived order aggregates.
	TransactionsByOrderID(ctx context.Context, orderID int64) ([]*models.Transaction, error)
}

// Store is a Repository that can run a whole import atomically.
type Store interface {
	Repository

	// InTransaction runs fn against a transactional view of the store. Any
	// error rolls the whole unit back and leaves the store unchanged.
	InTransaction(ctx context.Context, fn func(Repository) error) error

	// Close releases the store's resources.
	Close()
}
