package formatter

import (
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/reconcile"
)

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func TestRenderTable_RightAlignsNumericColumns(t *testing.T) {
	out := stripANSI(RenderTable([]string{"NAME", "QTY"}, [][]string{{"rice", "5"}, {"soap", "120"}}, 1))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Len(t, lines, 4)
	assert.Equal(t, "rice    5", lines[2])
	assert.Equal(t, "soap  120", lines[3])
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, [][]string{{"x"}}))
}

func TestSignedDiff(t *testing.T) {
	assert.Equal(t, "+3", stripANSI(SignedDiff(3)))
	assert.Equal(t, "-2", stripANSI(SignedDiff(-2)))
	assert.Equal(t, "0", stripANSI(SignedDiff(0)))
}

func TestRenderMatchBar(t *testing.T) {
	assert.Equal(t, "[██████████] 100%", stripANSI(RenderMatchBar(0, 0, 10)))
	assert.Equal(t, "[█████░░░░░]  50%", stripANSI(RenderMatchBar(1, 2, 10)))
}

func TestHumanTimestampFrom(t *testing.T) {
	now := time.Date(2026, 2, 7, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "Just now", HumanTimestampFrom(now.Add(-10*time.Second), now))
	assert.Equal(t, "5m ago", HumanTimestampFrom(now.Add(-5*time.Minute), now))
	assert.Equal(t, "3h ago", HumanTimestampFrom(now.Add(-3*time.Hour), now))
	assert.Equal(t, "Yesterday", HumanTimestampFrom(now.Add(-24*time.Hour), now))
	assert.Equal(t, "Sep 30, 2022", HumanTimestampFrom(time.Date(2022, 9, 30, 0, 0, 0, 0, time.UTC), now))
}

func TestFormatItems_ListsContributorsAndTotals(t *testing.T) {
	agg := domain.NewAggregate("s-1")
	rice := domain.ItemKey{ProductID: "p-rice"}
	agg.AddContribution(rice, "user-1", 10, 1)
	agg.AddContribution(rice, "user-2", 5, 0)

	out := stripANSI(FormatItems(&app.ItemsResult{
		SessionID:    "s-1",
		Items:        agg.Items(),
		Participants: agg.Participants(),
		Summary:      agg.Totals(),
	}))

	assert.Contains(t, out, "user-1 ×10, user-2 ×5")
	assert.Contains(t, out, "1 products · 15 units · 1 rejected · 2 participants")
}

func TestFormatItems_Empty(t *testing.T) {
	out := FormatItems(&app.ItemsResult{SessionID: "s-1"})
	assert.Contains(t, stripANSI(out), "No items saved yet.")
}

func TestFormatComparison(t *testing.T) {
	a, b := domain.NewAggregate("s-a"), domain.NewAggregate("s-b")
	a.AddContribution(domain.ItemKey{ProductID: "p-1"}, "u", 4, 0)
	b.AddContribution(domain.ItemKey{ProductID: "p-1"}, "u", 6, 0)
	a.AddContribution(domain.ItemKey{ProductID: "p-2"}, "u", 1, 0)

	out := stripANSI(FormatComparison(reconcile.Compare(a, b)))

	assert.Contains(t, out, "+2")
	assert.Contains(t, out, "ONLY IN S-A")
	assert.Contains(t, out, "1 matched (0 same, 1 different) · 1 only in A · 0 only in B")
}

func TestFormatSubmitResult_FlagsNeedsDisplay(t *testing.T) {
	res := &domain.SubmitResult{
		ReceivingNumber: "RCV-20250615-00A1B2",
		IsFinal:         true,
		ItemsCount:      2,
		TotalQuantity:   7,
		TotalCost:       decimal.RequireFromString("12.5"),
		StockChanges: []domain.StockSnapshot{
			{Key: domain.ItemKey{ProductID: "p-1"}, ProductName: "Rice", QuantityBefore: 0, QuantityReceived: 5, QuantityAfter: 5},
			{Key: domain.ItemKey{ProductID: "p-2"}, ProductName: "Soap", QuantityBefore: 3, QuantityReceived: 2, QuantityAfter: 5},
		},
	}

	out := stripANSI(FormatSubmitResult(res))

	assert.Contains(t, out, "RCV-20250615-00A1B2  final")
	assert.Contains(t, out, "cost 12.50")
	assert.Contains(t, out, "1 products need display")
	assert.Contains(t, out, "• Rice (5 on hand)")
	assert.NotContains(t, out, "• Soap")
}

func TestFormatSessionList_Empty(t *testing.T) {
	assert.Contains(t, stripANSI(FormatSessionList(nil)), "No sessions found.")
}

func TestFormatSubmissionHistory(t *testing.T) {
	subs := []*domain.SubmitResult{
		{ReceivingNumber: "RCV-20250615-00A1B2", ItemsCount: 2, TotalQuantity: 7, TotalRejected: 1, SubmittedBy: "user-1", SubmittedAt: time.Now()},
		{ReceivingNumber: "RCV-20250615-FF0012", IsFinal: true, ItemsCount: 1, TotalQuantity: 3, SubmittedBy: "user-2", SubmittedAt: time.Now()},
	}

	out := stripANSI(FormatSubmissionHistory(subs))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")

	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], "RCV-20250615-00A1B2")
	assert.Contains(t, lines[2], "partial")
	assert.Contains(t, lines[3], "final")
	assert.Contains(t, stripANSI(FormatSubmissionHistory(nil)), "No submissions recorded.")
}

func TestFormatShipmentProgress(t *testing.T) {
	rice := domain.ItemKey{ProductID: "p-rice"}
	soap := domain.ItemKey{ProductID: "p-soap"}
	ship := &domain.Shipment{
		ID:           "ship-1",
		Number:       "SHP-001",
		SupplierName: "Wholesale Co",
		Lines: []domain.ShipmentLine{
			{Key: rice, ProductName: "Rice", QuantityShipped: 10},
		},
	}
	p := domain.NewShipmentProgress(ship, map[domain.ItemKey]domain.Received{
		rice: {Quantity: 5},
		soap: {Quantity: 2},
	})

	out := stripANSI(FormatShipmentProgress(p, map[domain.ItemKey]int{rice: 3}))

	assert.Contains(t, out, "SHP-001  partial")
	assert.Contains(t, out, "supplier: Wholesale Co")
	assert.Contains(t, out, "COUNTING")
	assert.Contains(t, out, "not listed")
	assert.Contains(t, out, "p-soap")
	assert.Contains(t, out, "[██████████░░░░░░░░░░]  50%")
	assert.Contains(t, out, "10 shipped · 7 received · 0 rejected · 5 remaining")

	assert.NotContains(t, stripANSI(FormatShipmentProgress(p, nil)), "COUNTING")
}
