package domain

// SessionRef names one side of a comparison.
type SessionRef struct {
	SessionID   string
	SessionName string
	StoreID     string
	TotalItems  int
	TotalQty    int
}

type MatchedItem struct {
	Key          ItemKey
	ProductName  string
	SKU          string
	QuantityA    int
	QuantityB    int
	QuantityDiff int
	IsMatch      bool
}

// OnlyItem is a product present on exactly one side of a comparison.
type OnlyItem struct {
	Key         ItemKey
	ProductName string
	SKU         string
	Quantity    int
}

type ComparisonSummary struct {
	TotalMatched      int
	QuantitySameCount int
	QuantityDiffCount int
	OnlyInACount      int
	OnlyInBCount      int
}

// ComparisonResult is the derived diff of two session aggregates. It is
// never persisted.
type ComparisonResult struct {
	SessionA SessionRef
	SessionB SessionRef
	Matched  []MatchedItem
	OnlyInA  []OnlyItem
	OnlyInB  []OnlyItem
	Summary  ComparisonSummary
}

// Summarize recomputes the summary counters from the three buckets.
func (r *ComparisonResult) Summarize() {
	s := ComparisonSummary{
		TotalMatched: len(r.Matched),
		OnlyInACount: len(r.OnlyInA),
		OnlyInBCount: len(r.OnlyInB),
	}
	for _, m := range r.Matched {
		if m.IsMatch {
			s.QuantitySameCount++
		} else {
			s.QuantityDiffCount++
		}
	}
	r.Summary = s
}

// UnionSize is the number of distinct product keys across both sides.
func (r *ComparisonResult) UnionSize() int {
	return len(r.Matched) + len(r.OnlyInA) + len(r.OnlyInB)
}

// Identical reports whether both sides hold the same products in the same
// quantities.
func (r *ComparisonResult) Identical() bool {
	return r.Summary.QuantityDiffCount == 0 && r.Summary.OnlyInACount == 0 && r.Summary.OnlyInBCount == 0
}
