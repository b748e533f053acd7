package reconcile

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

func randomAggregate(rng *rand.Rand, id string) *domain.Aggregate {
	a := domain.NewAggregate(id)
	n := rng.Intn(12)
	for i := 0; i < n; i++ {
		key := domain.ItemKey{ProductID: fmt.Sprintf("p%d", rng.Intn(10))}
		if rng.Intn(3) == 0 {
			key.VariantID = fmt.Sprintf("v%d", rng.Intn(2))
		}
		q := rng.Intn(20)
		a.AddContribution(key, fmt.Sprintf("u%d", rng.Intn(4)), q, rng.Intn(q+1))
	}
	return a
}

func unionSize(a, b *domain.Aggregate) int {
	keys := make(map[domain.ItemKey]bool)
	for _, k := range a.Keys() {
		keys[k] = true
	}
	for _, k := range b.Keys() {
		keys[k] = true
	}
	return len(keys)
}

func TestCompare_Invariants_Completeness(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		a := randomAggregate(rng, "A")
		b := randomAggregate(rng, "B")
		res := Compare(a, b)

		assert.Equal(t, unionSize(a, b), res.UnionSize(),
			"trial %d: buckets must partition the key union", trial)
		assert.Equal(t, len(res.Matched), res.Summary.QuantitySameCount+res.Summary.QuantityDiffCount,
			"trial %d: same + diff must equal matched", trial)
		assert.Equal(t, len(res.OnlyInA), res.Summary.OnlyInACount, "trial %d", trial)
		assert.Equal(t, len(res.OnlyInB), res.Summary.OnlyInBCount, "trial %d", trial)
	}
}

func TestCompare_Invariants_Symmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		a := randomAggregate(rng, "A")
		b := randomAggregate(rng, "B")
		ab := Compare(a, b)
		ba := Compare(b, a)

		assert.ElementsMatch(t, ab.OnlyInA, ba.OnlyInB, "trial %d", trial)
		assert.ElementsMatch(t, ab.OnlyInB, ba.OnlyInA, "trial %d", trial)
		require.Len(t, ba.Matched, len(ab.Matched), "trial %d", trial)

		byKey := make(map[domain.ItemKey]domain.MatchedItem, len(ba.Matched))
		for _, m := range ba.Matched {
			byKey[m.Key] = m
		}
		for _, m := range ab.Matched {
			rev, ok := byKey[m.Key]
			require.True(t, ok, "trial %d: %s missing from reversed comparison", trial, m.Key)
			assert.Equal(t, m.QuantityA, rev.QuantityB, "trial %d", trial)
			assert.Equal(t, m.QuantityB, rev.QuantityA, "trial %d", trial)
			assert.Equal(t, m.QuantityDiff, -rev.QuantityDiff, "trial %d", trial)
			assert.Equal(t, m.IsMatch, rev.IsMatch, "trial %d", trial)
		}
	}
}

func TestMerge_Invariants_Conservation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 200; trial++ {
		target := randomAggregate(rng, "T")
		source := randomAggregate(rng, "S")
		merged, out := Merge(target, source)

		assert.Equal(t, target.Totals().TotalQuantity+source.Totals().TotalQuantity, merged.Totals().TotalQuantity,
			"trial %d: merged total must equal the sum", trial)
		assert.Equal(t, out.TargetQuantityBefore+out.QuantityCopied, out.TargetQuantityAfter, "trial %d", trial)

		for _, key := range merged.Keys() {
			m, _ := merged.Item(key)
			tq, tr := 0, 0
			if it, ok := target.Item(key); ok {
				tq, tr = it.TotalQuantity, it.TotalRejected
			}
			sq, sr := 0, 0
			if it, ok := source.Item(key); ok {
				sq, sr = it.TotalQuantity, it.TotalRejected
			}
			assert.Equal(t, tq+sq, m.TotalQuantity, "trial %d key %s", trial, key)
			assert.Equal(t, tr+sr, m.TotalRejected, "trial %d key %s", trial, key)
		}
	}
}
