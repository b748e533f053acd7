package validate

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

const (
	msgProductRequired   = "Product ID is required"
	msgQuantityNegative  = "Quantity cannot be negative"
	msgRejectedNegative  = "Rejected quantity cannot be negative"
	msgRejectedExceeds   = "Rejected quantity cannot exceed total quantity"
	msgEmptySaveBatch    = "At least one item is required"
	msgEmptySubmitBatch  = "At least one item is required for submission"
	msgSessionIDRequired = "Session ID is required"
)

// Result is the outcome of a validation pass. Validators never return an
// error; callers convert a failed Result with Err when they need one.
type Result struct {
	Errors []string
	Code   domain.ErrorCode
}

func (r Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Err returns nil for a valid result, otherwise a validation SessionError
// whose message joins every failure in order.
func (r Result) Err(op string) error {
	if r.IsValid() {
		return nil
	}
	code := r.Code
	if code == "" {
		code = domain.CodeInvalidItem
	}
	return &domain.SessionError{Code: code, Op: op, Message: strings.Join(r.Errors, "; ")}
}

var itemValidator = newItemValidator()

func newItemValidator() *validator.Validate {
	v := validator.New()
	err := v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	if err != nil {
		panic(fmt.Sprintf("registering notblank: %v", err))
	}
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		in := sl.Current().Interface().(domain.ItemInput)
		if in.QuantityRejected > in.Quantity {
			sl.ReportError(in.QuantityRejected, "QuantityRejected", "QuantityRejected", "ltequantity", "")
		}
	}, domain.ItemInput{})
	return v
}

// ValidateItem checks one item line.
func ValidateItem(item domain.ItemInput) Result {
	err := itemValidator.Struct(item)
	if err == nil {
		return Result{}
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return Result{Code: domain.CodeInvalidItem, Errors: []string{err.Error()}}
	}

	failed := make(map[string]bool, len(verrs))
	for _, fe := range verrs {
		failed[fe.Field()+"."+fe.Tag()] = true
	}

	// Messages follow field order regardless of the order rules ran in.
	var msgs []string
	if failed["ProductID.notblank"] {
		msgs = append(msgs, msgProductRequired)
	}
	if failed["Quantity.gte"] {
		msgs = append(msgs, msgQuantityNegative)
	}
	if failed["QuantityRejected.gte"] {
		msgs = append(msgs, msgRejectedNegative)
	}
	if failed["QuantityRejected.ltequantity"] {
		msgs = append(msgs, msgRejectedExceeds)
	}
	return Result{Code: domain.CodeInvalidItem, Errors: msgs}
}

// ValidateItemBatch checks an addItems batch.
func ValidateItemBatch(items []domain.ItemInput) Result {
	return validateBatch(items, msgEmptySaveBatch)
}

// ValidateSubmitBatch checks a submitSession batch.
func ValidateSubmitBatch(items []domain.ItemInput) Result {
	return validateBatch(items, msgEmptySubmitBatch)
}

func validateBatch(items []domain.ItemInput, emptyMsg string) Result {
	if len(items) == 0 {
		return Result{Code: domain.CodeEmptyBatch, Errors: []string{emptyMsg}}
	}
	var res Result
	for i, item := range items {
		r := ValidateItem(item)
		for _, msg := range r.Errors {
			res.Errors = append(res.Errors, fmt.Sprintf("Item %d: %s", i+1, msg))
		}
	}
	if !res.IsValid() {
		res.Code = domain.CodeInvalidItem
	}
	return res
}

func ValidateSessionID(id string) Result {
	if strings.TrimSpace(id) == "" {
		return Result{Code: domain.CodeInvalidItem, Errors: []string{msgSessionIDRequired}}
	}
	return Result{}
}

// ValidateSearchQuery rejects queries shorter than minLength after trimming.
// A minLength below 1 is treated as 1.
func ValidateSearchQuery(query string, minLength int) Result {
	if minLength < 1 {
		minLength = 1
	}
	if len([]rune(strings.TrimSpace(query))) < minLength {
		return Result{
			Code:   domain.CodeInvalidItem,
			Errors: []string{fmt.Sprintf("Search query must be at least %d character(s)", minLength)},
		}
	}
	return Result{}
}
