package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyX  = ItemKey{ProductID: "prod-x"}
	keyY  = ItemKey{ProductID: "prod-y"}
	keyXv = ItemKey{ProductID: "prod-x", VariantID: "red"}
)

func TestAddContribution_CreatesItem(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 5, 1)

	it, ok := a.Item(keyX)
	require.True(t, ok)
	assert.Equal(t, 5, it.TotalQuantity)
	assert.Equal(t, 1, it.TotalRejected)
	require.Len(t, it.Contributions, 1)
	assert.Equal(t, ContributionEntry{UserID: "user1", Quantity: 5, QuantityRejected: 1}, it.Contributions[0])
}

func TestAddContribution_SameUserAccumulates(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 5, 0)
	a.AddContribution(keyX, "user1", 2, 1)

	it, _ := a.Item(keyX)
	assert.Equal(t, 7, it.TotalQuantity)
	assert.Equal(t, 1, it.TotalRejected)
	require.Len(t, it.Contributions, 1, "repeat adds by one user must not create a second entry")
	assert.Equal(t, 7, it.Contributions[0].Quantity)
}

func TestAddContribution_ContributorsKeepArrivalOrder(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user2", 3, 0)
	a.AddContribution(keyX, "user1", 5, 0)

	it, _ := a.Item(keyX)
	require.Len(t, it.Contributions, 2)
	assert.Equal(t, "user2", it.Contributions[0].UserID)
	assert.Equal(t, "user1", it.Contributions[1].UserID)
	assert.Equal(t, 8, it.TotalQuantity)
}

func TestAddContribution_VariantKeysAreDistinct(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 1, 0)
	a.AddContribution(keyXv, "user1", 4, 0)

	assert.Equal(t, 2, a.Len())
	x, _ := a.Item(keyX)
	xv, _ := a.Item(keyXv)
	assert.Equal(t, 1, x.TotalQuantity)
	assert.Equal(t, 4, xv.TotalQuantity)
}

func TestTotals(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 5, 1)
	a.AddContribution(keyX, "user2", 3, 0)
	a.AddContribution(keyY, "user2", 2, 2)

	assert.Equal(t, Totals{TotalProducts: 2, TotalQuantity: 10, TotalRejected: 3, TotalParticipants: 2}, a.Totals())
}

func TestTotals_Matches_IgnoresParticipants(t *testing.T) {
	a := Totals{TotalProducts: 1, TotalQuantity: 4, TotalRejected: 0, TotalParticipants: 1}
	b := Totals{TotalProducts: 1, TotalQuantity: 4, TotalRejected: 0, TotalParticipants: 3}
	assert.True(t, a.Matches(b))
	b.TotalQuantity = 5
	assert.False(t, a.Matches(b))
}

func TestItems_ReturnsCopies(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 5, 0)

	items := a.Items()
	items[0].TotalQuantity = 99
	items[0].Contributions[0].Quantity = 99

	it, _ := a.Item(keyX)
	assert.Equal(t, 5, it.TotalQuantity)
	assert.Equal(t, 5, it.Contributions[0].Quantity)
}

func TestToEditableItems_DecoupledFromAggregate(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 5, 1)
	a.Describe(keyX, "Coffee", "Large", "SKU-1")

	editable := a.ToEditableItems()
	require.Len(t, editable, 1)
	assert.Equal(t, "Coffee - Large", editable[0].ProductName)
	assert.Equal(t, 5, editable[0].Quantity)
	assert.Equal(t, 1, editable[0].QuantityRejected)

	editable[0].Set(FieldQuantity, 9)
	it, _ := a.Item(keyX)
	assert.Equal(t, 5, it.TotalQuantity)
}

func TestEditableItem_SetClampsAtZero(t *testing.T) {
	e := EditableItem{Key: keyX, Quantity: 3, QuantityRejected: 1}
	e.Set(FieldQuantity, -4)
	e.Set(FieldQuantityRejected, -1)
	assert.Equal(t, 0, e.Quantity)
	assert.Equal(t, 0, e.QuantityRejected)
}

func TestAggregateFromItems_TotalsFollowContributions(t *testing.T) {
	items := []SessionItem{{
		Key:           keyX,
		ProductName:   "Coffee",
		TotalQuantity: 100, // backend total disagrees with its contributions
		Contributions: []ContributionEntry{
			{UserID: "user1", UserName: "Ana", Quantity: 5},
			{UserID: "user2", UserName: "Bo", Quantity: 3},
		},
	}}
	a := AggregateFromItems("s1", items)

	it, _ := a.Item(keyX)
	assert.Equal(t, 8, it.TotalQuantity)
	assert.Equal(t, "Coffee", it.ProductName)
	assert.Equal(t, "Ana", it.Contributions[0].UserName)
}

func TestVerifyItems(t *testing.T) {
	ok := SessionItem{Key: keyX, TotalQuantity: 8, TotalRejected: 1, Contributions: []ContributionEntry{
		{UserID: "user1", Quantity: 5, QuantityRejected: 1},
		{UserID: "user2", Quantity: 3},
	}}
	assert.NoError(t, VerifyItems([]SessionItem{ok}))
	assert.NoError(t, VerifyItems(nil))

	noContributors := SessionItem{Key: keyY, TotalQuantity: 5, TotalRejected: 1}
	err := VerifyItems([]SessionItem{ok, noContributors})
	require.Error(t, err)
	assert.True(t, IsCode(err, CodeLoadFailed))

	rejectedOff := ok
	rejectedOff.TotalRejected = 0
	assert.Error(t, VerifyItems([]SessionItem{rejectedOff}))
}

func TestAbsorb_SumsAndExtendsContributors(t *testing.T) {
	target := NewAggregate("t")
	target.AddContribution(keyX, "user1", 5, 0)

	source := NewAggregate("s")
	source.AddContribution(keyX, "user2", 3, 1)
	source.AddContribution(keyY, "user2", 2, 0)

	target.Absorb(source)

	x, _ := target.Item(keyX)
	assert.Equal(t, 8, x.TotalQuantity)
	assert.Equal(t, 1, x.TotalRejected)
	assert.Len(t, x.Contributions, 2)
	y, _ := target.Item(keyY)
	assert.Equal(t, 2, y.TotalQuantity)
	assert.Equal(t, []ItemKey{keyX, keyY}, target.Keys())

	src, _ := source.Item(keyX)
	assert.Equal(t, 3, src.TotalQuantity, "source must be untouched")
}

func TestClone_Independent(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 5, 0)
	c := a.Clone()
	c.AddContribution(keyX, "user1", 1, 0)

	orig, _ := a.Item(keyX)
	cl, _ := c.Item(keyX)
	assert.Equal(t, 5, orig.TotalQuantity)
	assert.Equal(t, 6, cl.TotalQuantity)
}

func TestParticipants(t *testing.T) {
	a := NewAggregate("s1")
	a.AddContribution(keyX, "user1", 5, 0)
	a.AddContribution(keyY, "user1", 2, 0)
	a.AddContribution(keyY, "user2", 1, 0)

	parts := a.Participants()
	require.Len(t, parts, 2)
	assert.Equal(t, Participant{UserID: "user1", ProductCount: 2, TotalScanned: 7}, parts[0])
	assert.Equal(t, Participant{UserID: "user2", ProductCount: 1, TotalScanned: 1}, parts[1])
}

// TestAddContribution_OrderIndependent checks that totals depend only on the
// multiset of contributions, not on their arrival order.
func TestAddContribution_OrderIndependent(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	keys := []ItemKey{keyX, keyY, keyXv}
	users := []string{"u1", "u2", "u3"}

	type contrib struct {
		key      ItemKey
		user     string
		qty, rej int
	}

	for trial := 0; trial < 200; trial++ {
		n := rng.Intn(20) + 1
		contribs := make([]contrib, n)
		for i := range contribs {
			q := rng.Intn(50)
			contribs[i] = contrib{
				key:  keys[rng.Intn(len(keys))],
				user: users[rng.Intn(len(users))],
				qty:  q,
				rej:  rng.Intn(q + 1),
			}
		}

		forward := NewAggregate("f")
		for _, c := range contribs {
			forward.AddContribution(c.key, c.user, c.qty, c.rej)
		}
		shuffled := NewAggregate("s")
		for _, i := range rng.Perm(n) {
			c := contribs[i]
			shuffled.AddContribution(c.key, c.user, c.qty, c.rej)
		}

		assert.Equal(t, forward.Totals(), shuffled.Totals(), "trial %d", trial)
		for _, k := range forward.Keys() {
			f, _ := forward.Item(k)
			s, ok := shuffled.Item(k)
			require.True(t, ok, "trial %d: key %s missing", trial, k)
			assert.Equal(t, f.TotalQuantity, s.TotalQuantity, "trial %d key %s", trial, k)
			sum := 0
			for _, c := range s.Contributions {
				sum += c.Quantity
			}
			assert.Equal(t, s.TotalQuantity, sum, "trial %d: total must equal contribution sum", trial)
		}
	}
}
