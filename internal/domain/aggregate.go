package domain

import "fmt"

// Aggregate is the per-product rollup of every contribution made to one
// session. Items keep first-seen order; contributors within an item keep
// arrival order.
//
// Mutation is additive only: a repeat contribution for the same key and
// user increases that user's entry instead of replacing it.
type Aggregate struct {
	SessionID string
	items     map[ItemKey]*SessionItem
	order     []ItemKey
}

func NewAggregate(sessionID string) *Aggregate {
	return &Aggregate{
		SessionID: sessionID,
		items:     make(map[ItemKey]*SessionItem),
	}
}

// AggregateFromItems seeds an aggregate from an item list by replaying its
// contributions. Callers holding a backend list run VerifyItems first.
func AggregateFromItems(sessionID string, items []SessionItem) *Aggregate {
	a := NewAggregate(sessionID)
	for _, it := range items {
		a.ensure(it.Key, it.ProductName, it.VariantName, it.SKU)
		for _, c := range it.Contributions {
			a.add(it.Key, c)
		}
	}
	return a
}

// VerifyItems checks that every item's totals equal the sums of its
// contributions. A mismatch means the rollup cannot be rebuilt faithfully.
func VerifyItems(items []SessionItem) error {
	for _, it := range items {
		var qty, rejected int
		for _, c := range it.Contributions {
			qty += c.Quantity
			rejected += c.QuantityRejected
		}
		if qty != it.TotalQuantity || rejected != it.TotalRejected {
			return &SessionError{
				Code: CodeLoadFailed,
				Op:   "get items",
				Message: fmt.Sprintf("item %s reports %d/%d but its contributions sum to %d/%d",
					it.Key, it.TotalQuantity, it.TotalRejected, qty, rejected),
			}
		}
	}
	return nil
}

// AddContribution records quantity and rejected units from userID for key.
func (a *Aggregate) AddContribution(key ItemKey, userID string, quantity, quantityRejected int) {
	a.ensure(key, "", "", "")
	a.add(key, ContributionEntry{UserID: userID, Quantity: quantity, QuantityRejected: quantityRejected})
}

// Describe attaches display fields to an existing item. It is a no-op for
// unknown keys.
func (a *Aggregate) Describe(key ItemKey, productName, variantName, sku string) {
	it, ok := a.items[key]
	if !ok {
		return
	}
	if productName != "" {
		it.ProductName = productName
	}
	if variantName != "" {
		it.VariantName = variantName
	}
	if sku != "" {
		it.SKU = sku
	}
}

func (a *Aggregate) ensure(key ItemKey, productName, variantName, sku string) *SessionItem {
	it, ok := a.items[key]
	if !ok {
		it = &SessionItem{Key: key, ProductName: productName, VariantName: variantName, SKU: sku}
		a.items[key] = it
		a.order = append(a.order, key)
	}
	return it
}

func (a *Aggregate) add(key ItemKey, c ContributionEntry) {
	it := a.items[key]
	it.TotalQuantity += c.Quantity
	it.TotalRejected += c.QuantityRejected
	for i := range it.Contributions {
		if it.Contributions[i].UserID == c.UserID {
			it.Contributions[i].Quantity += c.Quantity
			it.Contributions[i].QuantityRejected += c.QuantityRejected
			if it.Contributions[i].UserName == "" {
				it.Contributions[i].UserName = c.UserName
			}
			return
		}
	}
	it.Contributions = append(it.Contributions, c)
}

// Absorb adds every contribution of other into a. Quantities sum and
// contributor lists are extended, never replaced.
func (a *Aggregate) Absorb(other *Aggregate) {
	for _, key := range other.order {
		src := other.items[key]
		a.ensure(key, src.ProductName, src.VariantName, src.SKU)
		for _, c := range src.Contributions {
			a.add(key, c)
		}
	}
}

// Item returns a copy of the item stored under key.
func (a *Aggregate) Item(key ItemKey) (SessionItem, bool) {
	it, ok := a.items[key]
	if !ok {
		return SessionItem{}, false
	}
	return copyItem(it), true
}

func (a *Aggregate) Has(key ItemKey) bool {
	_, ok := a.items[key]
	return ok
}

func (a *Aggregate) Keys() []ItemKey {
	out := make([]ItemKey, len(a.order))
	copy(out, a.order)
	return out
}

func (a *Aggregate) Len() int {
	return len(a.order)
}

// Items returns copies of all items in first-seen order.
func (a *Aggregate) Items() []SessionItem {
	out := make([]SessionItem, 0, len(a.order))
	for _, key := range a.order {
		out = append(out, copyItem(a.items[key]))
	}
	return out
}

func (a *Aggregate) Totals() Totals {
	var t Totals
	users := make(map[string]bool)
	for _, key := range a.order {
		it := a.items[key]
		t.TotalProducts++
		t.TotalQuantity += it.TotalQuantity
		t.TotalRejected += it.TotalRejected
		for _, c := range it.Contributions {
			users[c.UserID] = true
		}
	}
	t.TotalParticipants = len(users)
	return t
}

// ToEditableItems snapshots the aggregate for the review stage.
func (a *Aggregate) ToEditableItems() []EditableItem {
	out := make([]EditableItem, 0, len(a.order))
	for _, key := range a.order {
		it := a.items[key]
		out = append(out, EditableItem{
			Key:              key,
			ProductName:      SessionItem{ProductName: it.ProductName, VariantName: it.VariantName}.DisplayName(),
			Quantity:         it.TotalQuantity,
			QuantityRejected: it.TotalRejected,
		})
	}
	return out
}

func (a *Aggregate) Clone() *Aggregate {
	c := NewAggregate(a.SessionID)
	c.Absorb(a)
	return c
}

// Participants rolls contributions up per user in first-seen order.
func (a *Aggregate) Participants() []Participant {
	idx := make(map[string]int)
	var out []Participant
	for _, key := range a.order {
		for _, c := range a.items[key].Contributions {
			i, ok := idx[c.UserID]
			if !ok {
				i = len(out)
				idx[c.UserID] = i
				out = append(out, Participant{UserID: c.UserID, UserName: c.UserName})
			}
			out[i].ProductCount++
			out[i].TotalScanned += c.Quantity
		}
	}
	return out
}

func copyItem(it *SessionItem) SessionItem {
	c := *it
	c.Contributions = append([]ContributionEntry(nil), it.Contributions...)
	return c
}
