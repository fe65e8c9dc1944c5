// Package recon implements the reconciliation engine: the stateful,
// idempotent classifier that merges parsed statement rows into durable
// orders, transfers and canonical transactions without ever duplicating or
// losing a money-bearing record.
package recon

import (
	"context"
	"errors"
	"fmt"

	"fjacquet/alipay-ledger/internal/logging"
	"fjacquet/alipay-ledger/internal/models"
	"fjacquet/alipay-ledger/internal/parsererror"
	"fjacquet/alipay-ledger/internal/statement"
	"fjacquet/alipay-ledger/internal/store"
)

// Engine reconciles parsed rows against the repository. It holds no
// per-file state of its own; the statement owner is passed with every row.
type Engine struct {
	repo    store.Repository
	matcher NameMatcher
	logger  logging.Logger
}

// NewEngine creates an engine over repo. A nil matcher defaults to the
// substring ContainsMatcher.
func NewEngine(repo store.Repository, matcher NameMatcher, logger logging.Logger) *Engine {
	if matcher == nil {
		matcher = ContainsMatcher{}
	}
	return &Engine{repo: repo, matcher: matcher, logger: logger}
}

// Apply reconciles one row for the given statement owner. It reports
// whether the row changed durable state: rows dropped by the relevance
// filter and rows carrying nothing new both return false with no error.
// Repeated application of the same row is a no-op after the first.
func (e *Engine) Apply(ctx context.Context, owner *models.Account, row *statement.RawRow) (bool, error) {
	if !row.Relevant() {
		return false, nil
	}

	existing, err := e.repo.TransactionByAlipayID(ctx, row.AlipayID)
	switch {
	case err == nil:
		return e.absorbExisting(ctx, owner, existing)
	case errors.Is(err, store.ErrNotFound):
		return e.createNew(ctx, owner, row)
	default:
		return false, err
	}
}

// absorbExisting handles a row whose transaction id is already stored. A
// second sighting never creates a second transaction; it can only teach us
// the identity of a transfer's placeholder party.
func (e *Engine) absorbExisting(ctx context.Context, owner *models.Account, tx *models.Transaction) (bool, error) {
	switch {
	case tx.Order != nil && tx.Transfer != nil:
		return false, &parsererror.InvariantError{
			AlipayID: tx.AlipayID,
			Reason:   "both order and transfer set",
		}
	case tx.Transfer != nil:
		return e.resolveTransferParty(ctx, owner, tx.Transfer)
	case tx.Order != nil:
		// Seller-side updates for stored orders would need merge rules
		// nobody has specified; fail loudly instead of guessing.
		return false, fmt.Errorf("transaction %s: %w", tx.AlipayID, parsererror.ErrSellerUpdateNotImplemented)
	default:
		return false, &parsererror.OrphanTransactionError{AlipayID: tx.AlipayID}
	}
}

// resolveTransferParty assigns the current statement owner into the
// transfer's placeholder slot. Two statements reporting the same
// transaction id prove which side of the transfer the new owner is.
func (e *Engine) resolveTransferParty(ctx context.Context, owner *models.Account, transfer *models.Transfer) (bool, error) {
	if transfer.HasParty(owner) {
		// Nothing new to learn.
		return false, nil
	}

	var placeholder *models.Account
	switch {
	case transfer.Sender.Known() && transfer.Receiver.Known():
		return false, &parsererror.InvariantError{
			AlipayID: transfer.AlipayID,
			Reason:   "both transfer parties already known",
		}
	case transfer.Sender.Placeholder() && transfer.Receiver.Placeholder():
		return false, &parsererror.IncompleteTransferError{AlipayID: transfer.AlipayID}
	case transfer.Receiver.Placeholder():
		placeholder = transfer.Receiver
		transfer.Receiver = owner
	default:
		placeholder = transfer.Sender
		transfer.Sender = owner
	}
	if err := e.repo.UpdateTransfer(ctx, transfer); err != nil {
		return false, fmt.Errorf("updating transfer %s: %w", transfer.AlipayID, err)
	}
	if err := e.reclaimIfUnreferenced(ctx, placeholder, transfer.AlipayID); err != nil {
		return false, err
	}
	return true, nil
}

// reclaimIfUnreferenced deletes a former placeholder account once nothing
// points at it anymore. The same full-name lookup serves transfer
// counterparts and order sellers, so one account can back both kinds of
// reference; it stays as long as either count is nonzero.
func (e *Engine) reclaimIfUnreferenced(ctx context.Context, placeholder *models.Account, alipayID string) error {
	transferRefs, err := e.repo.TransferReferenceCount(ctx, placeholder.ID)
	if err != nil {
		return err
	}
	if transferRefs > 0 {
		return nil
	}
	orderRefs, err := e.repo.OrderReferenceCount(ctx, placeholder.ID)
	if err != nil {
		return err
	}
	if orderRefs > 0 {
		return nil
	}
	if err := e.repo.DeleteAccount(ctx, placeholder.ID); err != nil {
		return fmt.Errorf("reclaiming placeholder account %d: %w", placeholder.ID, err)
	}
	e.logger.Debug("reclaimed placeholder account",
		logging.Field{Key: logging.FieldAccount, Value: placeholder.FullName},
		logging.Field{Key: logging.FieldTransactionID, Value: alipayID})
	return nil
}

// createNew classifies an unseen row and creates its backing entities plus
// exactly one transaction.
func (e *Engine) createNew(ctx context.Context, owner *models.Account, row *statement.RawRow) (bool, error) {
	tx := &models.Transaction{
		AlipayID: row.AlipayID,
		Created:  row.Created,
		Paid:     row.Paid,
		Modified: row.Modified,
		Amount:   row.Amount(),
		Notes:    row.Notes,
	}

	switch {
	case isTransfer(row):
		transfer, err := e.createTransfer(ctx, owner, row)
		if err != nil {
			return false, err
		}
		tx.Transfer = transfer
	case row.OrderNum != "":
		order, err := e.upsertOrder(ctx, owner, row)
		if err != nil {
			return false, err
		}
		tx.Order = order
	default:
		return false, &parsererror.UnknownTransactionTypeError{AlipayID: row.AlipayID}
	}

	if err := e.repo.CreateTransaction(ctx, tx); err != nil {
		return false, fmt.Errorf("creating transaction %s: %w", tx.AlipayID, err)
	}
	return true, nil
}

// isTransfer classifies a new row. Platform-internal rows carrying an
// order number but no notes are utility and recurring bills, not
// transfers; every other platform-internal row is a transfer.
func isTransfer(row *statement.RawRow) bool {
	return row.Origin == statement.OriginAlipay && !(row.OrderNum != "" && row.Notes == "")
}

func (e *Engine) createTransfer(ctx context.Context, owner *models.Account, row *statement.RawRow) (*models.Transfer, error) {
	counterpart, err := e.getOrCreateCounterpart(ctx, row.Counterpart)
	if err != nil {
		return nil, err
	}

	transfer := &models.Transfer{AlipayID: row.AlipayID}
	if row.FundsState == statement.FundsStatePaid {
		transfer.Sender = owner
		transfer.Receiver = counterpart
	} else {
		transfer.Sender = counterpart
		transfer.Receiver = owner
	}
	// A transfer for this id cannot exist: the transaction lookup already
	// came back empty. A duplicate here means a corrupt store.
	if err := e.repo.CreateTransfer(ctx, transfer); err != nil {
		return nil, fmt.Errorf("creating transfer %s: %w", transfer.AlipayID, err)
	}
	return transfer, nil
}

// upsertOrder attaches the row to its order thread: an existing order by
// the same order number is refined in place, otherwise a new one is
// created with the statement owner as buyer.
func (e *Engine) upsertOrder(ctx context.Context, owner *models.Account, row *statement.RawRow) (*models.Order, error) {
	order, err := e.repo.OrderByAlipayID(ctx, row.OrderNum)
	switch {
	case err == nil:
		if row.ProductName != order.Name && e.matcher.Refines(row.ProductName, order.Name) {
			order.Name = row.ProductName
			if err := e.repo.UpdateOrder(ctx, order); err != nil {
				return nil, fmt.Errorf("refining order %s: %w", order.AlipayID, err)
			}
			e.logger.Debug("refined order name",
				logging.Field{Key: logging.FieldOrderID, Value: order.AlipayID})
		}
		return order, nil
	case errors.Is(err, store.ErrNotFound):
		seller, err := e.getOrCreateCounterpart(ctx, row.Counterpart)
		if err != nil {
			return nil, err
		}
		order = &models.Order{
			AlipayID: row.OrderNum,
			Buyer:    owner,
			Seller:   seller,
			Name:     row.ProductName,
		}
		if err := e.repo.CreateOrder(ctx, order); err != nil {
			return nil, fmt.Errorf("creating order %s: %w", order.AlipayID, err)
		}
		return order, nil
	default:
		return nil, err
	}
}

// getOrCreateCounterpart resolves the other party of a row by its
// free-text display name. A fresh account created here is a placeholder
// until a later statement proves its platform identity.
func (e *Engine) getOrCreateCounterpart(ctx context.Context, fullName string) (*models.Account, error) {
	acct, err := e.repo.AccountByFullName(ctx, fullName)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	acct = &models.Account{FullName: fullName}
	if err := e.repo.CreateAccount(ctx, acct); err != nil {
		return nil, fmt.Errorf("creating counterpart account %q: %w", fullName, err)
	}
	e.logger.Debug("created counterpart account",
		logging.Field{Key: logging.FieldAccount, Value: fullName})
	return acct, nil
}
