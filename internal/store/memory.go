package store

import (
	"context"
	"fmt"

	"fjacquet/alipay-ledger/internal/models"
)

// MemoryStore is an in-process Store used by tests and dry runs. It keeps
// the full object graph in maps; InTransaction snapshots the graph and
// restores it on failure, so the all-or-nothing contract holds without a
// database.
type MemoryStore struct {
	state *memState
}

type memState struct {
	nextID       int64
	accounts     map[int64]*models.Account
	orders       map[int64]*models.Order
	transfers    map[int64]*models.Transfer
	transactions map[int64]*models.Transaction
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{state: newMemState()}
}

func newMemState() *memState {
	return &memState{
		accounts:     make(map[int64]*models.Account),
		orders:       make(map[int64]*models.Order),
		transfers:    make(map[int64]*models.Transfer),
		transactions: make(map[int64]*models.Transaction),
	}
}

func (s *memState) id() int64 {
	s.nextID++
	return s.nextID
}

// clone deep-copies the state so a failed transaction can be rolled back.
// Accounts are copied first; orders, transfers and transactions are rebuilt
// against the copied accounts so pointer identity stays consistent.
func (s *memState) clone() *memState {
	c := newMemState()
	c.nextID = s.nextID
	for id, a := range s.accounts {
		copied := *a
		c.accounts[id] = &copied
	}
	for id, o := range s.orders {
		copied := *o
		copied.Buyer = c.accounts[o.Buyer.ID]
		copied.Seller = c.accounts[o.Seller.ID]
		c.orders[id] = &copied
	}
	for id, t := range s.transfers {
		copied := *t
		copied.Sender = c.accounts[t.Sender.ID]
		copied.Receiver = c.accounts[t.Receiver.ID]
		c.transfers[id] = &copied
	}
	for id, tx := range s.transactions {
		copied := *tx
		if tx.Order != nil {
			copied.Order = c.orders[tx.Order.ID]
		}
		if tx.Transfer != nil {
			copied.Transfer = c.transfers[tx.Transfer.ID]
		}
		c.transactions[id] = &copied
	}
	return c
}

// InTransaction runs fn against the live state; on error the pre-run
// snapshot is restored.
func (s *MemoryStore) InTransaction(ctx context.Context, fn func(Repository) error) error {
	snapshot := s.state.clone()
	if err := fn(s); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() {}

func (s *MemoryStore) AccountByUsername(_ context.Context, username string) (*models.Account, error) {
	if username == "" {
		return nil, ErrNotFound
	}
	if a := s.findAccount(func(a *models.Account) bool { return a.Username == username }); a != nil {
		return a, nil
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) AccountByFullName(_ context.Context, fullName string) (*models.Account, error) {
	if fullName == "" {
		return nil, ErrNotFound
	}
	if a := s.findAccount(func(a *models.Account) bool { return a.FullName == fullName }); a != nil {
		return a, nil
	}
	return nil, ErrNotFound
}

// findAccount returns the matching account with the lowest ID so lookups
// stay deterministic across map iteration orders.
func (s *MemoryStore) findAccount(match func(*models.Account) bool) *models.Account {
	var found *models.Account
	for _, a := range s.state.accounts {
		if match(a) && (found == nil || a.ID < found.ID) {
			found = a
		}
	}
	return found
}

func (s *MemoryStore) CreateAccount(ctx context.Context, acct *models.Account) error {
	if acct.Username == "" && acct.FullName == "" {
		return ErrEmptyAccount
	}
	if acct.Username != "" {
		if _, err := s.AccountByUsername(ctx, acct.Username); err == nil {
			return fmt.Errorf("account username %q: %w", acct.Username, ErrExists)
		}
	}
	acct.ID = s.state.id()
	s.state.accounts[acct.ID] = acct
	return nil
}

func (s *MemoryStore) UpdateAccount(_ context.Context, acct *models.Account) error {
	if _, ok := s.state.accounts[acct.ID]; !ok {
		return fmt.Errorf("account %d: %w", acct.ID, ErrNotFound)
	}
	s.state.accounts[acct.ID] = acct
	return nil
}

func (s *MemoryStore) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := s.state.accounts[id]; !ok {
		return fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	delete(s.state.accounts, id)
	return nil
}

func (s *MemoryStore) OrderByAlipayID(_ context.Context, alipayID string) (*models.Order, error) {
	for _, o := range s.state.orders {
		if o.AlipayID == alipayID {
			return o, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateOrder(ctx context.Context, order *models.Order) error {
	if _, err := s.OrderByAlipayID(ctx, order.AlipayID); err == nil {
		return fmt.Errorf("order %s: %w", order.AlipayID, ErrExists)
	}
	order.ID = s.state.id()
	s.state.orders[order.ID] = order
	return nil
}

func (s *MemoryStore) UpdateOrder(_ context.Context, order *models.Order) error {
	if _, ok := s.state.orders[order.ID]; !ok {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	s.state.orders[order.ID] = order
	return nil
}

func (s *MemoryStore) TransferByAlipayID(_ context.Context, alipayID string) (*models.Transfer, error) {
	for _, t := range s.state.transfers {
		if t.AlipayID == alipayID {
			return t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	if _, err := s.TransferByAlipayID(ctx, transfer.AlipayID); err == nil {
		return fmt.Errorf("transfer %s: %w", transfer.AlipayID, ErrExists)
	}
	transfer.ID = s.state.id()
	s.state.transfers[transfer.ID] = transfer
	return nil
}

func (s *MemoryStore) UpdateTransfer(_ context.Context, transfer *models.Transfer) error {
	if _, ok := s.state.transfers[transfer.ID]; !ok {
		return fmt.Errorf("transfer %d: %w", transfer.ID, ErrNotFound)
	}
	s.state.transfers[transfer.ID] = transfer
	return nil
}

func (s *MemoryStore) TransferReferenceCount(_ context.Context, accountID int64) (int, error) {
	count := 0
	for _, t := range s.state.transfers {
		if t.Sender.ID == accountID || t.Receiver.ID == accountID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) OrderReferenceCount(_ context.Context, accountID int64) (int, error) {
	count := 0
	for _, o := range s.state.orders {
		if o.Buyer.ID == accountID || o.Seller.ID == accountID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) TransactionByAlipayID(_ context.Context, alipayID string) (*models.Transaction, error) {
	for _, tx := range s.state.transactions {
		if tx.AlipayID == alipayID {
			return tx, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	if _, err := s.TransactionByAlipayID(ctx, tx.AlipayID); err == nil {
		return fmt.Errorf("transaction %s: %w", tx.AlipayID, ErrExists)
	}
	tx.ID = s.state.id()
	s.state.transactions[tx.ID] = tx
	return nil
}

// Counts reports how many records of each kind the store holds. Used by
// dry-run reporting and tests.
func (s *MemoryStore) Counts() (accounts, orders, transfers, transactions int) {
	return len(s.state.accounts), len(s.state.orders),
		len(s.state.transfers), len(s.state.transactions)
}

func (s *MemoryStore) TransactionsByOrderID(_ context.Context, orderID int64) ([]*models.Transaction, error) {
	var txs []*models.Transaction
	for _, tx := range s.state.transactions {
		if tx.Order != nil && tx.Order.ID == orderID {
			txs = append(txs, tx)
		}
	}
	return txs, nil
}
