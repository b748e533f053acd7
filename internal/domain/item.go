package domain

// ItemKey identifies a product line within a session. An empty VariantID
// means the product has no variant; a variant-less and a variant-bearing
// entry for the same product are distinct keys.
type ItemKey struct {
	ProductID string
	VariantID string
}

func (k ItemKey) HasVariant() bool {
	return k.VariantID != ""
}

func (k ItemKey) String() string {
	if k.VariantID == "" {
		return k.ProductID
	}
	return k.ProductID + "/" + k.VariantID
}

// VariantPtr returns the variant id as a nullable value for storage and wire
// formats.
func (k ItemKey) VariantPtr() *string {
	if k.VariantID == "" {
		return nil
	}
	v := k.VariantID
	return &v
}

// KeyOf builds an ItemKey from a nullable variant id.
func KeyOf(productID string, variantID *string) ItemKey {
	k := ItemKey{ProductID: productID}
	if variantID != nil {
		k.VariantID = *variantID
	}
	return k
}

type ContributionEntry struct {
	UserID           string
	UserName         string
	Quantity         int
	QuantityRejected int
}

type SessionItem struct {
	Key           ItemKey
	ProductName   string
	VariantName   string
	SKU           string
	TotalQuantity int
	TotalRejected int
	Contributions []ContributionEntry
}

// DisplayName joins product and variant names the way item lists show them.
func (i SessionItem) DisplayName() string {
	if i.VariantName == "" {
		return i.ProductName
	}
	return i.ProductName + " - " + i.VariantName
}

// ItemInput is one line of an addItems or submitSession batch.
type ItemInput struct {
	ProductID        string `validate:"notblank"`
	VariantID        string
	Quantity         int `validate:"gte=0"`
	QuantityRejected int `validate:"gte=0"`
}

func (in ItemInput) Key() ItemKey {
	return ItemKey{ProductID: in.ProductID, VariantID: in.VariantID}
}

// EditableItem is the review-stage copy of a SessionItem. Edits never touch
// the aggregate it was taken from.
type EditableItem struct {
	Key              ItemKey
	ProductName      string
	Quantity         int
	QuantityRejected int
}

// Set assigns a field, clamping negative values to zero.
func (e *EditableItem) Set(field EditField, value int) {
	if value < 0 {
		value = 0
	}
	switch field {
	case FieldQuantity:
		e.Quantity = value
	case FieldQuantityRejected:
		e.QuantityRejected = value
	}
}

func (e EditableItem) Input() ItemInput {
	return ItemInput{
		ProductID:        e.Key.ProductID,
		VariantID:        e.Key.VariantID,
		Quantity:         e.Quantity,
		QuantityRejected: e.QuantityRejected,
	}
}

// EditableInputs converts review items into a submit batch.
func EditableInputs(items []EditableItem) []ItemInput {
	out := make([]ItemInput, 0, len(items))
	for _, it := range items {
		out = append(out, it.Input())
	}
	return out
}

// Totals is the running rollup of an aggregate, and the summary a backend
// reports next to its item list.
type Totals struct {
	TotalProducts     int
	TotalQuantity     int
	TotalRejected     int
	TotalParticipants int
}

// Matches compares product and quantity sums, ignoring participant counts.
func (t Totals) Matches(other Totals) bool {
	return t.TotalProducts == other.TotalProducts &&
		t.TotalQuantity == other.TotalQuantity &&
		t.TotalRejected == other.TotalRejected
}
