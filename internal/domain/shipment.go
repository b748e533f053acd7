package domain

import (
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

type ShipmentStatus string

const (
	ShipmentPending  ShipmentStatus = "pending"
	ShipmentPartial  ShipmentStatus = "partial"
	ShipmentReceived ShipmentStatus = "received"
)

// Shipment is an inbound delivery to one store. Receiving sessions refer to
// it by ID and count against its expected lines.
type Shipment struct {
	ID           string
	CompanyID    string
	StoreID      string
	Number       string
	SupplierName string
	Lines        []ShipmentLine
	CreatedAt    time.Time
}

// ShipmentLine is the quantity of one product the supplier says it sent.
type ShipmentLine struct {
	Key             ItemKey
	ProductName     string
	VariantName     string
	SKU             string
	QuantityShipped int
	UnitCost        decimal.Decimal
}

func (l ShipmentLine) DisplayName() string {
	return SessionItem{ProductName: l.ProductName, VariantName: l.VariantName}.DisplayName()
}

// Received is what receiving submissions recorded for one product so far.
type Received struct {
	Quantity         int
	QuantityRejected int
}

func (r Received) Accepted() int {
	return r.Quantity - r.QuantityRejected
}

type ShipmentItemProgress struct {
	ShipmentLine
	QuantityReceived  int
	QuantityAccepted  int
	QuantityRejected  int
	QuantityRemaining int
}

type ReceivingSummary struct {
	TotalShipped       int
	TotalReceived      int
	TotalAccepted      int
	TotalRejected      int
	TotalRemaining     int
	ProgressPercentage float64
}

// ShipmentProgress compares a shipment's expected lines with what has been
// received. Unexpected lists products received that the shipment never
// listed; they count toward the received totals but not toward progress.
type ShipmentProgress struct {
	ShipmentID   string
	Number       string
	SupplierName string
	StoreID      string
	Status       ShipmentStatus
	Items        []ShipmentItemProgress
	Unexpected   []ShipmentItemProgress
	Summary      ReceivingSummary
}

// Item returns the progress line for key, expected or not.
func (p *ShipmentProgress) Item(key ItemKey) (ShipmentItemProgress, bool) {
	for _, it := range p.Items {
		if it.Key == key {
			return it, true
		}
	}
	for _, it := range p.Unexpected {
		if it.Key == key {
			return it, true
		}
	}
	return ShipmentItemProgress{}, false
}

// NewShipmentProgress folds received quantities into the shipment's lines.
// Remaining is what is still owed in accepted units, never below zero.
// Progress is accepted over shipped, capped at 100.
func NewShipmentProgress(s *Shipment, received map[ItemKey]Received) *ShipmentProgress {
	p := &ShipmentProgress{
		ShipmentID:   s.ID,
		Number:       s.Number,
		SupplierName: s.SupplierName,
		StoreID:      s.StoreID,
	}
	listed := make(map[ItemKey]bool, len(s.Lines))
	for _, line := range s.Lines {
		listed[line.Key] = true
		r := received[line.Key]
		it := ShipmentItemProgress{
			ShipmentLine:      line,
			QuantityReceived:  r.Quantity,
			QuantityAccepted:  r.Accepted(),
			QuantityRejected:  r.QuantityRejected,
			QuantityRemaining: max(line.QuantityShipped-r.Accepted(), 0),
		}
		p.Items = append(p.Items, it)
		p.Summary.TotalShipped += line.QuantityShipped
		p.Summary.TotalRemaining += it.QuantityRemaining
		p.add(it)
	}
	for _, key := range sortedKeys(received) {
		if listed[key] {
			continue
		}
		r := received[key]
		it := ShipmentItemProgress{
			ShipmentLine:     ShipmentLine{Key: key},
			QuantityReceived: r.Quantity,
			QuantityAccepted: r.Accepted(),
			QuantityRejected: r.QuantityRejected,
		}
		p.Unexpected = append(p.Unexpected, it)
		p.add(it)
	}

	if p.Summary.TotalShipped > 0 {
		covered := p.Summary.TotalShipped - p.Summary.TotalRemaining
		pct := float64(covered) * 100 / float64(p.Summary.TotalShipped)
		p.Summary.ProgressPercentage = math.Round(pct*10) / 10
	}
	switch {
	case p.Summary.TotalReceived == 0:
		p.Status = ShipmentPending
	case p.Summary.TotalRemaining == 0:
		p.Status = ShipmentReceived
	default:
		p.Status = ShipmentPartial
	}
	return p
}

func (p *ShipmentProgress) add(it ShipmentItemProgress) {
	p.Summary.TotalReceived += it.QuantityReceived
	p.Summary.TotalAccepted += it.QuantityAccepted
	p.Summary.TotalRejected += it.QuantityRejected
}

func sortedKeys(m map[ItemKey]Received) []ItemKey {
	keys := make([]ItemKey, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
