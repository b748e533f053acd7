package reconcile

import "github.com/JINL2/mystorecluade-sub001/internal/domain"

// Compare diffs two session aggregates. Keys present on both sides are
// matched, in a's order; the rest go to the side they came from. A product
// counted as zero on both sides is still matched.
func Compare(a, b *domain.Aggregate) *domain.ComparisonResult {
	res := &domain.ComparisonResult{
		SessionA: refOf(a),
		SessionB: refOf(b),
	}

	for _, key := range a.Keys() {
		itemA, _ := a.Item(key)
		itemB, inB := b.Item(key)
		if !inB {
			res.OnlyInA = append(res.OnlyInA, onlyItem(itemA))
			continue
		}
		diff := itemB.TotalQuantity - itemA.TotalQuantity
		res.Matched = append(res.Matched, domain.MatchedItem{
			Key:          key,
			ProductName:  firstNonEmpty(itemA.DisplayName(), itemB.DisplayName()),
			SKU:          firstNonEmpty(itemA.SKU, itemB.SKU),
			QuantityA:    itemA.TotalQuantity,
			QuantityB:    itemB.TotalQuantity,
			QuantityDiff: diff,
			IsMatch:      diff == 0,
		})
	}
	for _, key := range b.Keys() {
		if a.Has(key) {
			continue
		}
		itemB, _ := b.Item(key)
		res.OnlyInB = append(res.OnlyInB, onlyItem(itemB))
	}

	res.Summarize()
	return res
}

func refOf(a *domain.Aggregate) domain.SessionRef {
	t := a.Totals()
	return domain.SessionRef{SessionID: a.SessionID, TotalItems: t.TotalProducts, TotalQty: t.TotalQuantity}
}

func onlyItem(it domain.SessionItem) domain.OnlyItem {
	return domain.OnlyItem{Key: it.Key, ProductName: it.DisplayName(), SKU: it.SKU, Quantity: it.TotalQuantity}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
