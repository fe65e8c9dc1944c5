package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderAggregate holds the derived attributes of an order: the summed
// amount and the date range of its backing transactions.
type OrderAggregate struct {
	Total    decimal.Decimal
	Created  time.Time // earliest creation date
	Modified time.Time // latest modification date
}

// AggregateOrder derives the order-level totals from the transactions
// linked to one order. An empty slice yields a zero aggregate.
func AggregateOrder(txs []*Transaction) OrderAggregate {
	agg := OrderAggregate{Total: decimal.Zero}
	for _, tx := range txs {
		agg.Total = agg.Total.Add(tx.Amount)
		if agg.Created.IsZero() || tx.Created.Before(agg.Created) {
			agg.Created = tx.Created
		}
		if tx.Modified.After(agg.Modified) {
			agg.Modified = tx.Modified
		}
	}
	return agg
}
