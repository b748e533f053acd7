package domain

import "github.com/shopspring/decimal"

type Store struct {
	ID        string
	CompanyID string
	Name      string
}

// Product is one sellable line of a store catalog. A product with variants
// appears once per variant.
type Product struct {
	Key         ItemKey
	StoreID     string
	Name        string
	VariantName string
	SKU         string
	Barcode     string
	UnitCost    decimal.Decimal
	OnHand      int
}

func (p Product) DisplayName() string {
	return SessionItem{ProductName: p.Name, VariantName: p.VariantName}.DisplayName()
}
