package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockSnapshot records the on-hand stock movement of one product caused by
// a receiving submission.
type StockSnapshot struct {
	Key              ItemKey
	ProductName      string
	SKU              string
	QuantityBefore   int
	QuantityReceived int
	QuantityAfter    int
}

// NeedsDisplay reports a zero-to-positive move, which means the product has
// to be put back on the shelf.
func (s StockSnapshot) NeedsDisplay() bool {
	return s.QuantityBefore == 0 && s.QuantityAfter > 0
}

// NeedsDisplayItems filters snapshots down to the products that need display,
// keeping their order.
func NeedsDisplayItems(snapshots []StockSnapshot) []StockSnapshot {
	var out []StockSnapshot
	for _, s := range snapshots {
		if s.NeedsDisplay() {
			out = append(out, s)
		}
	}
	return out
}

// SubmitResult is what a backend returns for submitSession.
type SubmitResult struct {
	SubmissionID    string
	ReceivingNumber string
	SessionID       string
	IsFinal         bool
	ItemsCount      int
	TotalQuantity   int
	TotalRejected   int
	TotalCost       decimal.Decimal
	StockChanges    []StockSnapshot
	SubmittedBy     string
	SubmittedAt     time.Time
}

func (r *SubmitResult) NeedsDisplay() []StockSnapshot {
	return NeedsDisplayItems(r.StockChanges)
}
