package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
	"github.com/JINL2/mystorecluade-sub001/internal/teatest"
)

func reviewItems() []domain.EditableItem {
	return []domain.EditableItem{
		{Key: domain.ItemKey{ProductID: "p-rice"}, ProductName: "Rice", Quantity: 10, QuantityRejected: 1},
		{Key: domain.ItemKey{ProductID: "p-shirt", VariantID: "m"}, ProductName: "Shirt - M", Quantity: 4},
	}
}

func newReviewDriver(t *testing.T, problem string) (*teatest.Driver, *reviewModel) {
	t.Helper()
	m := newReviewModel("Dock 3", reviewItems(), problem)
	d := teatest.New(t, m, teatest.WithSize(100, 30))
	d.DrainInit()
	return d, m
}

func TestReviewModel_TypedValueReplacesQuantity(t *testing.T) {
	d, m := newReviewDriver(t, "")

	d.Type("12")
	assert.Contains(t, d.PlainView(), "[12_]")
	d.Press("enter")

	assert.False(t, d.Quitting)
	assert.Equal(t, 12, m.items[0].Quantity)
	require.Len(t, m.Changes(), 1)
	assert.Equal(t, "p-rice", m.Changes()[0].Key.ProductID)
}

func TestReviewModel_TabEditsRejected(t *testing.T) {
	d, m := newReviewDriver(t, "")

	d.Press("down", "tab", "+", "+", "-")

	assert.Equal(t, 1, m.items[1].QuantityRejected)
	assert.Equal(t, 4, m.items[1].Quantity)
}

func TestReviewModel_DecrementClampsAtZero(t *testing.T) {
	d, m := newReviewDriver(t, "")

	d.Press("tab", "-", "-", "-")

	assert.Equal(t, 0, m.items[0].QuantityRejected)
}

func TestReviewModel_EnterWithoutInputAccepts(t *testing.T) {
	d, m := newReviewDriver(t, "")

	d.Press("+", "enter")

	assert.True(t, d.Quitting)
	assert.True(t, m.accepted)
	assert.False(t, m.cancelled)
	assert.Equal(t, 11, m.items[0].Quantity)
}

func TestReviewModel_EscClearsInputThenCancels(t *testing.T) {
	d, m := newReviewDriver(t, "")

	d.Type("99")
	d.Press("esc")
	assert.False(t, d.Quitting)
	assert.Equal(t, 10, m.items[0].Quantity)

	d.Press("esc")
	assert.True(t, d.Quitting)
	assert.True(t, m.cancelled)
	assert.Empty(t, m.Changes())
}

func TestReviewModel_BackspaceEditsInput(t *testing.T) {
	d, m := newReviewDriver(t, "")

	d.Type("345")
	d.Press("backspace", "enter")

	assert.Equal(t, 34, m.items[0].Quantity)
}

func TestReviewModel_ViewShowsProblemAndItems(t *testing.T) {
	d, _ := newReviewDriver(t, "Item 2: quantity must be at least 0")

	view := d.PlainView()
	assert.Contains(t, view, "REVIEW DOCK 3")
	assert.Contains(t, view, "Item 2: quantity must be at least 0")
	assert.Contains(t, view, "Shirt - M")
	assert.Contains(t, view, "enter: set / continue")
}
