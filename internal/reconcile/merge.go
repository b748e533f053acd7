package reconcile

import "github.com/JINL2/mystorecluade-sub001/internal/domain"

// Merge returns the aggregate target would hold after absorbing source,
// together with the counters describing the copy. Neither input is
// modified. Member counts are left to the caller, which owns membership.
func Merge(target, source *domain.Aggregate) (*domain.Aggregate, domain.MergeOutcome) {
	before := target.Totals()
	merged := target.Clone()
	merged.Absorb(source)
	after := merged.Totals()

	out := domain.MergeOutcome{
		TargetSessionID:      target.SessionID,
		SourceSessionID:      source.SessionID,
		TargetItemsBefore:    before.TotalProducts,
		TargetItemsAfter:     after.TotalProducts,
		TargetQuantityBefore: before.TotalQuantity,
		TargetQuantityAfter:  after.TotalQuantity,
		QuantityCopied:       source.Totals().TotalQuantity,
		UniqueProductsCopied: source.Len(),
		SourceDeactivated:    true,
	}
	for _, key := range source.Keys() {
		it, _ := source.Item(key)
		out.ItemsCopied += len(it.Contributions)
	}
	return merged, out
}
