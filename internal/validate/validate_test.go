package validate

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

func TestValidateItem_Valid(t *testing.T) {
	r := ValidateItem(domain.ItemInput{ProductID: "p1", Quantity: 5, QuantityRejected: 5})
	assert.True(t, r.IsValid())
	assert.NoError(t, r.Err("save"))
}

func TestValidateItem_ZeroQuantityIsValid(t *testing.T) {
	r := ValidateItem(domain.ItemInput{ProductID: "p1"})
	assert.True(t, r.IsValid())
}

func TestNewItemValidator_RegistersNotBlank(t *testing.T) {
	var v *validator.Validate
	require.NotPanics(t, func() { v = newItemValidator() })

	assert.Error(t, v.Var(" \t", "notblank"))
	assert.NoError(t, v.Var("p1", "notblank"))
}

func TestValidateItem_Failures(t *testing.T) {
	cases := []struct {
		name string
		item domain.ItemInput
		want []string
	}{
		{"blank product", domain.ItemInput{ProductID: "  ", Quantity: 1}, []string{"Product ID is required"}},
		{"negative quantity", domain.ItemInput{ProductID: "p1", Quantity: -1, QuantityRejected: -2}, []string{
			"Quantity cannot be negative",
			"Rejected quantity cannot be negative",
		}},
		{"rejected exceeds", domain.ItemInput{ProductID: "p1", Quantity: 2, QuantityRejected: 3}, []string{
			"Rejected quantity cannot exceed total quantity",
		}},
		{"everything", domain.ItemInput{Quantity: -3, QuantityRejected: 0}, []string{
			"Product ID is required",
			"Quantity cannot be negative",
			"Rejected quantity cannot exceed total quantity",
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := ValidateItem(tc.item)
			assert.False(t, r.IsValid())
			assert.Equal(t, tc.want, r.Errors)
			assert.Equal(t, domain.CodeInvalidItem, r.Code)
		})
	}
}

func TestValidateItemBatch_Empty(t *testing.T) {
	r := ValidateItemBatch(nil)
	assert.Equal(t, []string{"At least one item is required"}, r.Errors)
	assert.Equal(t, domain.CodeEmptyBatch, r.Code)

	s := ValidateSubmitBatch([]domain.ItemInput{})
	assert.Equal(t, []string{"At least one item is required for submission"}, s.Errors)
	assert.True(t, domain.IsCode(s.Err("submit"), domain.CodeEmptyBatch))
}

func TestValidateItemBatch_IndexesEachInvalidItem(t *testing.T) {
	items := []domain.ItemInput{
		{ProductID: "p1", Quantity: 3},
		{ProductID: "p2", Quantity: 1, QuantityRejected: 2},
		{ProductID: "p3", Quantity: 4},
		{ProductID: "", Quantity: 1},
	}
	r := ValidateItemBatch(items)
	require.False(t, r.IsValid())
	assert.Equal(t, []string{
		"Item 2: Rejected quantity cannot exceed total quantity",
		"Item 4: Product ID is required",
	}, r.Errors)

	err := r.Err("save")
	assert.True(t, domain.IsCode(err, domain.CodeInvalidItem))
	assert.Equal(t, domain.KindValidation, domain.CodeOf(err).Kind())
}

func TestValidateSessionID(t *testing.T) {
	assert.True(t, ValidateSessionID("abc").IsValid())
	assert.Equal(t, []string{"Session ID is required"}, ValidateSessionID(" ").Errors)
}

func TestValidateSearchQuery(t *testing.T) {
	assert.True(t, ValidateSearchQuery("co", 2).IsValid())
	assert.Equal(t, []string{"Search query must be at least 2 character(s)"}, ValidateSearchQuery(" c ", 2).Errors)
	assert.Equal(t, []string{"Search query must be at least 1 character(s)"}, ValidateSearchQuery("", 0).Errors)
}
