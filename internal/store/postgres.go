package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"fjacquet/alipay-ledger/internal/models"
)

//go:embed schema.sql
var schemaFS embed.FS

// PostgresStore is the PostgreSQL-backed Store. The schema is bootstrapped
// from the embedded DDL on startup; migrations beyond that are outside
// this tool's responsibility.
type PostgresStore struct {
	pgRepo
	pool *pgxpool.Pool
}

// querier is the subset of pgx shared by pools and transactions, so the
// same repository methods serve both.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgRepo struct {
	db querier
}

// NewPostgresStore connects to dsn, verifies the connection and ensures
// the schema exists.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(pingCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &PostgresStore{pgRepo: pgRepo{db: pool}, pool: pool}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureSchema(ctx context.Context) error {
	ddl, err := schemaFS.ReadFile("schema.sql")
	if err != nil {
		return fmt.Errorf("read embedded schema: %w", err)
	}
	if _, err := s.pool.Exec(ctx, string(ddl)); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// InTransaction runs fn against a repository bound to one database
// transaction. Rollback on any error, commit otherwise.
func (s *PostgresStore) InTransaction(ctx context.Context, fn func(Repository) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgRepo{db: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// wrapCreateErr maps unique-constraint violations onto ErrExists so the
// engine can treat both store implementations alike.
func wrapCreateErr(what string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return fmt.Errorf("%s: %w", what, ErrExists)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func (r *pgRepo) scanAccount(row pgx.Row) (*models.Account, error) {
	var a models.Account
	var username *string
	if err := row.Scan(&a.ID, &username, &a.FullName); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan account: %w", err)
	}
	if username != nil {
		a.Username = *username
	}
	return &a, nil
}

func (r *pgRepo) accountByID(ctx context.Context, id int64) (*models.Account, error) {
	return r.scanAccount(r.db.QueryRow(ctx,
		`SELECT id, username, full_name FROM accounts WHERE id = $1`, id))
}

func (r *pgRepo) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	if username == "" {
		return nil, ErrNotFound
	}
	return r.scanAccount(r.db.QueryRow(ctx,
		`SELECT id, username, full_name FROM accounts WHERE username = $1`, username))
}

func (r *pgRepo) AccountByFullName(ctx context.Context, fullName string) (*models.Account, error) {
	if fullName == "" {
		return nil, ErrNotFound
	}
	return r.scanAccount(r.db.QueryRow(ctx,
		`SELECT id, username, full_name FROM accounts WHERE full_name = $1 ORDER BY id LIMIT 1`,
		fullName))
}

func (r *pgRepo) CreateAccount(ctx context.Context, acct *models.Account) error {
	if acct.Username == "" && acct.FullName == "" {
		return ErrEmptyAccount
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO accounts (username, full_name) VALUES ($1, $2) RETURNING id`,
		nullString(acct.Username), acct.FullName).Scan(&acct.ID)
	if err != nil {
		return wrapCreateErr(fmt.Sprintf("create account %s", acct), err)
	}
	return nil
}

func (r *pgRepo) UpdateAccount(ctx context.Context, acct *models.Account) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE accounts SET username = $2, full_name = $3 WHERE id = $1`,
		acct.ID, nullString(acct.Username), acct.FullName)
	if err != nil {
		return fmt.Errorf("update account %d: %w", acct.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", acct.ID, ErrNotFound)
	}
	return nil
}

func (r *pgRepo) DeleteAccount(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete account %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("account %d: %w", id, ErrNotFound)
	}
	return nil
}

func (r *pgRepo) OrderByAlipayID(ctx context.Context, alipayID string) (*models.Order, error) {
	var o models.Order
	var buyerID, sellerID int64
	err := r.db.QueryRow(ctx,
		`SELECT id, alipay_id, buyer_id, seller_id, name FROM orders WHERE alipay_id = $1`,
		alipayID).Scan(&o.ID, &o.AlipayID, &buyerID, &sellerID, &o.Name)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query order %s: %w", alipayID, err)
	}
	if o.Buyer, err = r.accountByID(ctx, buyerID); err != nil {
		return nil, err
	}
	if o.Seller, err = r.accountByID(ctx, sellerID); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *pgRepo) CreateOrder(ctx context.Context, order *models.Order) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO orders (alipay_id, buyer_id, seller_id, name)
		 VALUES ($1, $2, $3, $4) RETURNING id`,
		order.AlipayID, order.Buyer.ID, order.Seller.ID, order.Name).Scan(&order.ID)
	if err != nil {
		return wrapCreateErr(fmt.Sprintf("create order %s", order.AlipayID), err)
	}
	return nil
}

func (r *pgRepo) UpdateOrder(ctx context.Context, order *models.Order) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE orders SET buyer_id = $2, seller_id = $3, name = $4 WHERE id = $1`,
		order.ID, order.Buyer.ID, order.Seller.ID, order.Name)
	if err != nil {
		return fmt.Errorf("update order %d: %w", order.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d: %w", order.ID, ErrNotFound)
	}
	return nil
}

func (r *pgRepo) TransferByAlipayID(ctx context.Context, alipayID string) (*models.Transfer, error) {
	var t models.Transfer
	var senderID, receiverID int64
	err := r.db.QueryRow(ctx,
		`SELECT id, alipay_id, sender_id, receiver_id FROM transfers WHERE alipay_id = $1`,
		alipayID).Scan(&t.ID, &t.AlipayID, &senderID, &receiverID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query transfer %s: %w", alipayID, err)
	}
	if t.Sender, err = r.accountByID(ctx, senderID); err != nil {
		return nil, err
	}
	if t.Receiver, err = r.accountByID(ctx, receiverID); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *pgRepo) CreateTransfer(ctx context.Context, transfer *models.Transfer) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO transfers (alipay_id, sender_id, receiver_id)
		 VALUES ($1, $2, $3) RETURNING id`,
		transfer.AlipayID, transfer.Sender.ID, transfer.Receiver.ID).Scan(&transfer.ID)
	if err != nil {
		return wrapCreateErr(fmt.Sprintf("create transfer %s", transfer.AlipayID), err)
	}
	return nil
}

func (r *pgRepo) UpdateTransfer(ctx context.Context, transfer *models.Transfer) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE transfers SET sender_id = $2, receiver_id = $3 WHERE id = $1`,
		transfer.ID, transfer.Sender.ID, transfer.Receiver.ID)
	if err != nil {
		return fmt.Errorf("update transfer %d: %w", transfer.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transfer %d: %w", transfer.ID, ErrNotFound)
	}
	return nil
}

func (r *pgRepo) TransferReferenceCount(ctx context.Context, accountID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM transfers WHERE sender_id = $1 OR receiver_id = $1`,
		accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count transfers for account %d: %w", accountID, err)
	}
	return count, nil
}

func (r *pgRepo) OrderReferenceCount(ctx context.Context, accountID int64) (int, error) {
	var count int
	err := r.db.QueryRow(ctx,
		`SELECT count(*) FROM orders WHERE buyer_id = $1 OR seller_id = $1`,
		accountID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count orders for account %d: %w", accountID, err)
	}
	return count, nil
}

func (r *pgRepo) TransactionByAlipayID(ctx context.Context, alipayID string) (*models.Transaction, error) {
	row := r.db.QueryRow(ctx,
		`SELECT id, alipay_id, created_at, paid_at, modified_at, amount::text, notes,
		        order_id, transfer_id
		 FROM transactions WHERE alipay_id = $1`, alipayID)
	tx, orderID, transferID, err := scanTransactionRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("query transaction %s: %w", alipayID, err)
	}
	if err := r.loadTransactionRefs(ctx, tx, orderID, transferID); err != nil {
		return nil, err
	}
	return tx, nil
}

// scanTransactionRow reads the flat columns; order/transfer references are
// resolved afterwards by loadTransactionRefs so no query is issued while a
// row set is still open on the same connection.
func scanTransactionRow(row pgx.Row) (*models.Transaction, *int64, *int64, error) {
	var tx models.Transaction
	var paid *time.Time
	var amount string
	var orderID, transferID *int64
	err := row.Scan(&tx.ID, &tx.AlipayID, &tx.Created, &paid, &tx.Modified,
		&amount, &tx.Notes, &orderID, &transferID)
	if err != nil {
		return nil, nil, nil, err
	}
	if paid != nil {
		tx.Paid = *paid
	}
	if tx.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, nil, nil, fmt.Errorf("stored amount %q: %w", amount, err)
	}
	return &tx, orderID, transferID, nil
}

func (r *pgRepo) loadTransactionRefs(ctx context.Context, tx *models.Transaction, orderID, transferID *int64) error {
	if orderID != nil {
		var o models.Order
		var buyerID, sellerID int64
		err := r.db.QueryRow(ctx,
			`SELECT id, alipay_id, buyer_id, seller_id, name FROM orders WHERE id = $1`,
			*orderID).Scan(&o.ID, &o.AlipayID, &buyerID, &sellerID, &o.Name)
		if err != nil {
			return fmt.Errorf("load order %d: %w", *orderID, err)
		}
		if o.Buyer, err = r.accountByID(ctx, buyerID); err != nil {
			return err
		}
		if o.Seller, err = r.accountByID(ctx, sellerID); err != nil {
			return err
		}
		tx.Order = &o
	}
	if transferID != nil {
		var t models.Transfer
		var senderID, receiverID int64
		err := r.db.QueryRow(ctx,
			`SELECT id, alipay_id, sender_id, receiver_id FROM transfers WHERE id = $1`,
			*transferID).Scan(&t.ID, &t.AlipayID, &senderID, &receiverID)
		if err != nil {
			return fmt.Errorf("load transfer %d: %w", *transferID, err)
		}
		if t.Sender, err = r.accountByID(ctx, senderID); err != nil {
			return err
		}
		if t.Receiver, err = r.accountByID(ctx, receiverID); err != nil {
			return err
		}
		tx.Transfer = &t
	}
	return nil
}

func (r *pgRepo) CreateTransaction(ctx context.Context, tx *models.Transaction) error {
	var orderID, transferID *int64
	if tx.Order != nil {
		orderID = &tx.Order.ID
	}
	if tx.Transfer != nil {
		transferID = &tx.Transfer.ID
	}
	err := r.db.QueryRow(ctx,
		`INSERT INTO transactions (alipay_id, created_at, paid_at, modified_at, amount, notes, order_id, transfer_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		tx.AlipayID, tx.Created, nullTime(tx.Paid), tx.Modified,
		tx.Amount.StringFixed(2), tx.Notes, orderID, transferID).Scan(&tx.ID)
	if err != nil {
		return wrapCreateErr(fmt.Sprintf("create transaction %s", tx.AlipayID), err)
	}
	return nil
}

func (r *pgRepo) TransactionsByOrderID(ctx context.Context, orderID int64) ([]*models.Transaction, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, alipay_id, created_at, paid_at, modified_at, amount::text, notes,
		        order_id, transfer_id
		 FROM transactions WHERE order_id = $1 ORDER BY id`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query transactions for order %d: %w", orderID, err)
	}
	defer rows.Close()

	type pendingRefs struct {
		orderID    *int64
		transferID *int64
	}
	var txs []*models.Transaction
	var refs []pendingRefs
	for rows.Next() {
		tx, oid, tid, err := scanTransactionRow(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
		refs = append(refs, pendingRefs{orderID: oid, transferID: tid})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions for order %d: %w", orderID, err)
	}
	rows.Close()

	for i, tx := range txs {
		if err := r.loadTransactionRefs(ctx, tx, refs[i].orderID, refs[i].transferID); err != nil {
			return nil, err
		}
	}
	return txs, nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
