package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

func sessionLabel(ref domain.SessionRef) string {
	if ref.SessionName != "" {
		return ref.SessionName
	}
	return ref.SessionID
}

// FormatComparison renders matched products with their difference, then the
// products only one side has, then the summary counts.
func FormatComparison(cmp *domain.ComparisonResult) string {
	var b strings.Builder
	a, bName := sessionLabel(cmp.SessionA), sessionLabel(cmp.SessionB)
	fmt.Fprintf(&b, "%s %s (%d units)  vs  %s (%d units)\n\n",
		Dim("comparing"), Bold(a), cmp.SessionA.TotalQty, Bold(bName), cmp.SessionB.TotalQty)

	if len(cmp.Matched) > 0 {
		rows := make([][]string, 0, len(cmp.Matched))
		for _, m := range cmp.Matched {
			mark := StyleGreen.Render("=")
			if !m.IsMatch {
				mark = StyleYellow.Render("≠")
			}
			rows = append(rows, []string{
				mark,
				OrDash(m.ProductName),
				OrDash(m.SKU),
				strconv.Itoa(m.QuantityA),
				strconv.Itoa(m.QuantityB),
				SignedDiff(m.QuantityDiff),
			})
		}
		b.WriteString(Header("In both"))
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"", "PRODUCT", "SKU", "A", "B", "DIFF"}, rows, 3, 4, 5))
	}
	writeOnly := func(title string, items []domain.OnlyItem) {
		if len(items) == 0 {
			return
		}
		rows := make([][]string, 0, len(items))
		for _, o := range items {
			rows = append(rows, []string{OrDash(o.ProductName), OrDash(o.SKU), strconv.Itoa(o.Quantity)})
		}
		b.WriteString("\n")
		b.WriteString(Header(title))
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"PRODUCT", "SKU", "QTY"}, rows, 2))
	}
	writeOnly("Only in "+a, cmp.OnlyInA)
	writeOnly("Only in "+bName, cmp.OnlyInB)

	s := cmp.Summary
	total := cmp.UnionSize()
	fmt.Fprintf(&b, "\n%s %s\n", Dim("agreement"), RenderMatchBar(s.QuantitySameCount, total, 20))
	fmt.Fprintf(&b, "%s %d matched (%d same, %d different) · %d only in A · %d only in B\n",
		StyleHeader.Render("SUMMARY"),
		s.TotalMatched, s.QuantitySameCount, s.QuantityDiffCount, s.OnlyInACount, s.OnlyInBCount)
	return RenderBox("Comparison", b.String())
}

// FormatMergeOutcome renders the before/after counts of a merge.
func FormatMergeOutcome(out *domain.MergeOutcome) string {
	var b strings.Builder
	rows := [][]string{
		{"items", strconv.Itoa(out.TargetItemsBefore), strconv.Itoa(out.TargetItemsAfter)},
		{"quantity", strconv.Itoa(out.TargetQuantityBefore), strconv.Itoa(out.TargetQuantityAfter)},
		{"members", strconv.Itoa(out.TargetMembersBefore), strconv.Itoa(out.TargetMembersAfter)},
	}
	b.WriteString(RenderTable([]string{"TARGET", "BEFORE", "AFTER"}, rows, 1, 2))
	fmt.Fprintf(&b, "\ncopied %d entries (%d units, %d products), %d members added\n",
		out.ItemsCopied, out.QuantityCopied, out.UniqueProductsCopied, out.MembersAdded)
	if out.SourceDeactivated {
		fmt.Fprintf(&b, "%s\n", Dim("source session "+out.SourceSessionID+" closed"))
	}
	return RenderBox("Merged", b.String())
}

// FormatMergeHistory renders a session's merge log.
func FormatMergeHistory(records []domain.MergeRecord) string {
	if len(records) == 0 {
		return Dim("No merges recorded.") + "\n"
	}
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			TruncID(r.SourceSessionID),
			TruncID(r.TargetSessionID),
			strconv.Itoa(r.ItemsCopied),
			strconv.Itoa(r.QuantityCopied),
			r.MergedBy,
			HumanTimestamp(r.MergedAt),
		})
	}
	return RenderTable([]string{"SOURCE", "TARGET", "ENTRIES", "UNITS", "BY", "WHEN"}, rows, 2, 3)
}

// FormatSubmitResult renders the outcome of a submission, listing the
// products whose stock went from zero to positive separately.
func FormatSubmitResult(res *domain.SubmitResult) string {
	var b strings.Builder
	kind := "partial"
	if res.IsFinal {
		kind = "final"
	}
	fmt.Fprintf(&b, "%s  %s\n", Bold(res.ReceivingNumber), Dim(kind))
	fmt.Fprintf(&b, "%d items · %d units · %d rejected · cost %s\n",
		res.ItemsCount, res.TotalQuantity, res.TotalRejected, res.TotalCost.StringFixed(2))

	if len(res.StockChanges) > 0 {
		rows := make([][]string, 0, len(res.StockChanges))
		for _, s := range res.StockChanges {
			rows = append(rows, []string{
				OrDash(s.ProductName),
				OrDash(s.SKU),
				strconv.Itoa(s.QuantityBefore),
				StyleGreen.Render(fmt.Sprintf("+%d", s.QuantityReceived)),
				strconv.Itoa(s.QuantityAfter),
			})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable([]string{"PRODUCT", "SKU", "BEFORE", "RECEIVED", "AFTER"}, rows, 2, 3, 4))
	}
	if flagged := res.NeedsDisplay(); len(flagged) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatNeedsDisplay(flagged))
	}
	return RenderBox("Submitted", b.String())
}

// FormatNeedsDisplay lists products that were out of stock before this
// submission and now need to go on display.
func FormatNeedsDisplay(items []domain.StockSnapshot) string {
	var b strings.Builder
	b.WriteString(StyleYellow.Render(fmt.Sprintf("%d products need display", len(items))))
	b.WriteString("\n")
	for _, s := range items {
		name := s.ProductName
		if name == "" {
			name = s.Key.String()
		}
		fmt.Fprintf(&b, "  • %s %s\n", name, Dim(fmt.Sprintf("(%d on hand)", s.QuantityAfter)))
	}
	return b.String()
}

// FormatSubmissionHistory renders the rounds submitted from a session,
// oldest first.
func FormatSubmissionHistory(subs []*domain.SubmitResult) string {
	if len(subs) == 0 {
		return Dim("No submissions recorded.") + "\n"
	}
	rows := make([][]string, 0, len(subs))
	for _, s := range subs {
		kind := "partial"
		if s.IsFinal {
			kind = StyleGreen.Render("final")
		}
		rows = append(rows, []string{
			s.ReceivingNumber,
			kind,
			strconv.Itoa(s.ItemsCount),
			strconv.Itoa(s.TotalQuantity),
			strconv.Itoa(s.TotalRejected),
			OrDash(s.SubmittedBy),
			HumanTimestamp(s.SubmittedAt),
		})
	}
	return RenderTable([]string{"NUMBER", "KIND", "ITEMS", "UNITS", "REJECTED", "BY", "WHEN"}, rows, 2, 3, 4)
}
