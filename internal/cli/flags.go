package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// sessionTypeFlag is a pflag.Value accepting counting or receiving.
type sessionTypeFlag struct {
	value *domain.SessionType
}

var _ pflag.Value = (*sessionTypeFlag)(nil)

func (f *sessionTypeFlag) String() string {
	if f.value == nil {
		return ""
	}
	return string(*f.value)
}

func (f *sessionTypeFlag) Set(s string) error {
	t, err := domain.ParseSessionType(strings.ToLower(s))
	if err != nil {
		return err
	}
	*f.value = t
	return nil
}

func (f *sessionTypeFlag) Type() string {
	return "counting|receiving"
}

type submitMode string

const (
	modeOnly    submitMode = "only"
	modeCombine submitMode = "combine"
	modeCancel  submitMode = "cancel"
)

// submitModeFlag is a pflag.Value accepting only or combine.
type submitModeFlag struct {
	value *submitMode
}

func (f *submitModeFlag) String() string {
	if f.value == nil {
		return ""
	}
	return string(*f.value)
}

func (f *submitModeFlag) Set(s string) error {
	switch m := submitMode(strings.ToLower(s)); m {
	case modeOnly, modeCombine:
		*f.value = m
		return nil
	}
	return fmt.Errorf("invalid mode %q (expected only or combine)", s)
}

func (f *submitModeFlag) Type() string {
	return "only|combine"
}

// parseItemKey reads "product" or "product/variant".
func parseItemKey(s string) (domain.ItemKey, error) {
	product, variant, _ := strings.Cut(strings.TrimSpace(s), "/")
	if product == "" {
		return domain.ItemKey{}, fmt.Errorf("invalid item %q: product id is empty", s)
	}
	return domain.ItemKey{ProductID: product, VariantID: variant}, nil
}

// parseShipmentLine reads "KEY=QTY" or "KEY=QTY@COST".
func parseShipmentLine(s string) (domain.ShipmentLine, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return domain.ShipmentLine{}, fmt.Errorf("invalid --line %q (expected KEY=QTY[@COST])", s)
	}
	key, err := parseItemKey(k)
	if err != nil {
		return domain.ShipmentLine{}, err
	}
	qtyText, costText, hasCost := strings.Cut(v, "@")
	qty, err := strconv.Atoi(strings.TrimSpace(qtyText))
	if err != nil {
		return domain.ShipmentLine{}, fmt.Errorf("invalid quantity in --line %q: %w", s, err)
	}
	line := domain.ShipmentLine{Key: key, QuantityShipped: qty}
	if hasCost {
		if line.UnitCost, err = decimal.NewFromString(strings.TrimSpace(costText)); err != nil {
			return domain.ShipmentLine{}, fmt.Errorf("invalid cost in --line %q: %w", s, err)
		}
	}
	return line, nil
}

// reviewEdit is one --set override applied during review.
type reviewEdit struct {
	Key      domain.ItemKey
	Quantity int
	Rejected *int
}

// parseReviewEdit reads "KEY=QTY" or "KEY=QTY:REJECTED".
func parseReviewEdit(s string) (reviewEdit, error) {
	k, v, ok := strings.Cut(s, "=")
	if !ok {
		return reviewEdit{}, fmt.Errorf("invalid --set %q (expected KEY=QTY[:REJECTED])", s)
	}
	key, err := parseItemKey(k)
	if err != nil {
		return reviewEdit{}, err
	}
	qtyText, rejText, hasRej := strings.Cut(v, ":")
	qty, err := strconv.Atoi(strings.TrimSpace(qtyText))
	if err != nil {
		return reviewEdit{}, fmt.Errorf("invalid quantity in --set %q: %w", s, err)
	}
	edit := reviewEdit{Key: key, Quantity: qty}
	if hasRej {
		rej, err := strconv.Atoi(strings.TrimSpace(rejText))
		if err != nil {
			return reviewEdit{}, fmt.Errorf("invalid rejected quantity in --set %q: %w", s, err)
		}
		edit.Rejected = &rej
	}
	return edit, nil
}
