package recon

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fjacquet/alipay-ledger/internal/logging"
	"fjacquet/alipay-ledger/internal/models"
	"fjacquet/alipay-ledger/internal/parsererror"
	"fjacquet/alipay-ledger/internal/statement"
	"fjacquet/alipay-ledger/internal/store"
)

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *models.Account) {
	t.Helper()
	s := store.NewMemoryStore()
	owner := &models.Account{Username: "owner@example.com"}
	require.NoError(t, s.CreateAccount(context.Background(), owner))
	return NewEngine(s, nil, &logging.MockLogger{}), s, owner
}

func paidRow(alipayID string) *statement.RawRow {
	return &statement.RawRow{
		AlipayID:    alipayID,
		Counterpart: "某个对方",
		Origin:      statement.OriginAlipay,
		FundsState:  statement.FundsStatePaid,
		RawAmount:   decimal.RequireFromString("114.00"),
		Created:     time.Date(2016, 8, 4, 21, 58, 53, 0, time.UTC),
		Modified:    time.Date(2016, 8, 4, 21, 58, 53, 0, time.UTC),
	}
}

func orderRow(alipayID, orderNum string) *statement.RawRow {
	r := paidRow(alipayID)
	r.Origin = statement.OriginMarketplace
	r.OrderNum = orderNum
	r.ProductName = "某个商品"
	return r
}

func TestApply_IrrelevantRowIsDropped(t *testing.T) {
	engine, s, owner := newTestEngine(t)

	row := &statement.RawRow{FundsState: statement.FundsStateFrozen}
	applied, err := engine.Apply(context.Background(), owner, row)

	require.NoError(t, err)
	assert.False(t, applied)
	accounts, orders, transfers, transactions := s.Counts()
	assert.Equal(t, 1, accounts)
	assert.Zero(t, orders+transfers+transactions)
}

func TestApply_Classification(t *testing.T) {
	tests := []struct {
		name     string
		origin   statement.Origin
		orderNum string
		notes    string
		want     string // "order", "transfer" or "error"
	}{
		{"platform with order and notes", statement.OriginAlipay, "o1", "还钱", "transfer"},
		{"platform with order no notes", statement.OriginAlipay, "o1", "", "order"},
		{"platform no order with notes", statement.OriginAlipay, "", "还钱", "transfer"},
		{"platform bare", statement.OriginAlipay, "", "", "transfer"},
		{"marketplace with order and notes", statement.OriginMarketplace, "o1", "备注", "order"},
		{"marketplace with order no notes", statement.OriginMarketplace, "o1", "", "order"},
		{"marketplace no order with notes", statement.OriginMarketplace, "", "备注", "error"},
		{"marketplace bare", statement.OriginMarketplace, "", "", "error"},
		{"external with order and notes", statement.OriginOther, "o1", "备注", "order"},
		{"external with order no notes", statement.OriginOther, "o1", "", "order"},
		{"external no order with notes", statement.OriginOther, "", "备注", "error"},
		{"external bare", statement.OriginOther, "", "", "error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, s, owner := newTestEngine(t)
			ctx := context.Background()

			row := paidRow("454545")
			row.Origin = tc.origin
			row.OrderNum = tc.orderNum
			row.Notes = tc.notes
			row.ProductName = "某个商品"

			applied, err := engine.Apply(ctx, owner, row)

			if tc.want == "error" {
				var uerr *parsererror.UnknownTransactionTypeError
				require.ErrorAs(t, err, &uerr)
				assert.Equal(t, "454545", uerr.AlipayID)
				return
			}

			require.NoError(t, err)
			assert.True(t, applied)

			tx, err := s.TransactionByAlipayID(ctx, "454545")
			require.NoError(t, err)
			require.True(t, tx.Valid())
			if tc.want == "order" {
				assert.NotNil(t, tx.Order)
			} else {
				assert.NotNil(t, tx.Transfer)
			}
		})
	}
}

func TestApply_TransactionAmountCombinesFeeAndRefund(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	row := paidRow("454545")
	row.ServiceFee = decimal.RequireFromString("1.00")
	row.RefundAmount = decimal.RequireFromString("2.00")

	_, err := engine.Apply(ctx, owner, row)
	require.NoError(t, err)

	tx, err := s.TransactionByAlipayID(ctx, "454545")
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("113.00").Equal(tx.Amount))
}

func TestApply_TransferRoles(t *testing.T) {
	tests := []struct {
		name       string
		state      statement.FundsState
		ownerSends bool
	}{
		{"paid means owner sends", statement.FundsStatePaid, true},
		{"received means owner receives", statement.FundsStateReceived, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, s, owner := newTestEngine(t)
			ctx := context.Background()

			row := paidRow("454545")
			row.FundsState = tc.state

			_, err := engine.Apply(ctx, owner, row)
			require.NoError(t, err)

			transfer, err := s.TransferByAlipayID(ctx, "454545")
			require.NoError(t, err)
			if tc.ownerSends {
				assert.Equal(t, owner.ID, transfer.Sender.ID)
				assert.Equal(t, "某个对方", transfer.Receiver.FullName)
				assert.True(t, transfer.Receiver.Placeholder())
			} else {
				assert.Equal(t, owner.ID, transfer.Receiver.ID)
				assert.Equal(t, "某个对方", transfer.Sender.FullName)
			}
		})
	}
}

func TestApply_TransferReapplyByOwnerIsNoOp(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	row := paidRow("454545")
	applied, err := engine.Apply(ctx, owner, row)
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = engine.Apply(ctx, owner, row)
	require.NoError(t, err)
	assert.False(t, applied)

	_, _, transfers, transactions := s.Counts()
	assert.Equal(t, 1, transfers)
	assert.Equal(t, 1, transactions)
}

func TestApply_ResolvesPlaceholderParty(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	// Owner pays a counterpart known only by display name.
	require.NoError(t, errOnly(engine.Apply(ctx, owner, paidRow("454545"))))

	// The counterpart's own statement names the same transaction as
	// received money: their real account replaces the placeholder.
	other := &models.Account{Username: "other@example.com"}
	require.NoError(t, s.CreateAccount(ctx, other))
	row := paidRow("454545")
	row.FundsState = statement.FundsStateReceived

	applied, err := engine.Apply(ctx, other, row)
	require.NoError(t, err)
	assert.True(t, applied)

	transfer, err := s.TransferByAlipayID(ctx, "454545")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, transfer.Sender.ID)
	assert.Equal(t, other.ID, transfer.Receiver.ID)

	// The unreferenced placeholder is reclaimed.
	_, err = s.AccountByFullName(ctx, "某个对方")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestApply_KeepsPlaceholderStillReferenced(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	// Two transfers against the same placeholder counterpart.
	require.NoError(t, errOnly(engine.Apply(ctx, owner, paidRow("454545"))))
	require.NoError(t, errOnly(engine.Apply(ctx, owner, paidRow("676767"))))

	other := &models.Account{Username: "other@example.com"}
	require.NoError(t, s.CreateAccount(ctx, other))
	row := paidRow("454545")
	row.FundsState = statement.FundsStateReceived
	require.NoError(t, errOnly(engine.Apply(ctx, other, row)))

	// The second transfer still points at the placeholder, so it stays.
	placeholder, err := s.AccountByFullName(ctx, "某个对方")
	require.NoError(t, err)
	remaining, err := s.TransferByAlipayID(ctx, "676767")
	require.NoError(t, err)
	assert.Equal(t, placeholder.ID, remaining.Receiver.ID)
}

func TestApply_KeepsPlaceholderReferencedByOrder(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	// One display name backs both an order's seller and a transfer's
	// counterpart: the full-name lookup resolves them to the same account.
	require.NoError(t, errOnly(engine.Apply(ctx, owner, orderRow("one", "90909090"))))
	require.NoError(t, errOnly(engine.Apply(ctx, owner, paidRow("454545"))))

	other := &models.Account{Username: "other@example.com"}
	require.NoError(t, s.CreateAccount(ctx, other))
	row := paidRow("454545")
	row.FundsState = statement.FundsStateReceived
	require.NoError(t, errOnly(engine.Apply(ctx, other, row)))

	transfer, err := s.TransferByAlipayID(ctx, "454545")
	require.NoError(t, err)
	assert.Equal(t, other.ID, transfer.Receiver.ID)

	// The transfer no longer references the placeholder, but the order
	// still does, so the account must survive as its seller.
	seller, err := s.AccountByFullName(ctx, "某个对方")
	require.NoError(t, err)
	stored, err := s.OrderByAlipayID(ctx, "90909090")
	require.NoError(t, err)
	assert.Equal(t, seller.ID, stored.Seller.ID)
}

func TestApply_TransferBothPartiesKnown(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, errOnly(engine.Apply(ctx, owner, paidRow("454545"))))

	other := &models.Account{Username: "other@example.com"}
	require.NoError(t, s.CreateAccount(ctx, other))
	row := paidRow("454545")
	row.FundsState = statement.FundsStateReceived
	require.NoError(t, errOnly(engine.Apply(ctx, other, row)))

	// A third account claiming a slot in a fully resolved transfer is a
	// hard inconsistency.
	third := &models.Account{Username: "third@example.com"}
	require.NoError(t, s.CreateAccount(ctx, third))
	_, err := engine.Apply(ctx, third, paidRow("454545"))

	var ierr *parsererror.InvariantError
	assert.ErrorAs(t, err, &ierr)
}

func TestApply_TransferNeitherPartyKnown(t *testing.T) {
	engine, s, _ := newTestEngine(t)
	ctx := context.Background()

	// A transfer whose stored parties are both placeholders should be
	// impossible; encountering one stops the import.
	a := &models.Account{FullName: "甲"}
	b := &models.Account{FullName: "乙"}
	require.NoError(t, s.CreateAccount(ctx, a))
	require.NoError(t, s.CreateAccount(ctx, b))
	transfer := &models.Transfer{AlipayID: "454545", Sender: a, Receiver: b}
	require.NoError(t, s.CreateTransfer(ctx, transfer))
	require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{AlipayID: "454545", Transfer: transfer}))

	third := &models.Account{Username: "third@example.com"}
	require.NoError(t, s.CreateAccount(ctx, third))
	_, err := engine.Apply(ctx, third, paidRow("454545"))

	var incErr *parsererror.IncompleteTransferError
	assert.ErrorAs(t, err, &incErr)
}

func TestApply_ExistingOrderTransaction(t *testing.T) {
	engine, _, owner := newTestEngine(t)
	ctx := context.Background()

	row := orderRow("454545", "90909090")
	require.NoError(t, errOnly(engine.Apply(ctx, owner, row)))

	_, err := engine.Apply(ctx, owner, row)
	assert.ErrorIs(t, err, parsererror.ErrSellerUpdateNotImplemented)
}

func TestApply_OrphanTransaction(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, s.CreateTransaction(ctx, &models.Transaction{AlipayID: "454545"}))

	_, err := engine.Apply(ctx, owner, paidRow("454545"))
	var oerr *parsererror.OrphanTransactionError
	assert.ErrorAs(t, err, &oerr)
}

func TestApply_OrderThreadSharedAcrossTransactions(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, errOnly(engine.Apply(ctx, owner, orderRow("one", "90909090"))))
	require.NoError(t, errOnly(engine.Apply(ctx, owner, orderRow("two", "90909090"))))

	order, err := s.OrderByAlipayID(ctx, "90909090")
	require.NoError(t, err)
	txs, err := s.TransactionsByOrderID(ctx, order.ID)
	require.NoError(t, err)
	assert.Len(t, txs, 2)

	// One seller account serves both rows.
	accounts, orders, _, _ := s.Counts()
	assert.Equal(t, 2, accounts)
	assert.Equal(t, 1, orders)
}

func TestApply_OrderNameRefinement(t *testing.T) {
	tests := []struct {
		name     string
		first    string
		second   string
		wantName string
	}{
		{"substring refines", "某个商品（合并付款）", "某个商品", "某个商品"},
		{"non-substring keeps original", "某个商品", "别的东西", "某个商品"},
		{"superstring keeps original", "某个商品", "某个商品（合并付款）", "某个商品"},
		{"equal name untouched", "某个商品", "某个商品", "某个商品"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			engine, s, owner := newTestEngine(t)
			ctx := context.Background()

			first := orderRow("one", "90909090")
			first.ProductName = tc.first
			require.NoError(t, errOnly(engine.Apply(ctx, owner, first)))

			second := orderRow("two", "90909090")
			second.ProductName = tc.second
			require.NoError(t, errOnly(engine.Apply(ctx, owner, second)))

			order, err := s.OrderByAlipayID(ctx, "90909090")
			require.NoError(t, err)
			assert.Equal(t, tc.wantName, order.Name)
		})
	}
}

func TestApply_CounterpartAccountReused(t *testing.T) {
	engine, s, owner := newTestEngine(t)
	ctx := context.Background()

	require.NoError(t, errOnly(engine.Apply(ctx, owner, paidRow("one"))))
	require.NoError(t, errOnly(engine.Apply(ctx, owner, paidRow("two"))))

	accounts, _, transfers, _ := s.Counts()
	assert.Equal(t, 2, accounts) // owner plus one shared counterpart
	assert.Equal(t, 2, transfers)
}

func TestContainsMatcher(t *testing.T) {
	m := ContainsMatcher{}
	assert.True(t, m.Refines("鞋", "一双鞋"))
	assert.True(t, m.Refines("一双鞋", "一双鞋"))
	assert.False(t, m.Refines("一双鞋", "鞋"))
	assert.False(t, m.Refines("袜子", "一双鞋"))
}

// errOnly adapts a (bool, error) call for require.NoError.
func errOnly(_ bool, err error) error {
	return err
}
