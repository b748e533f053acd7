package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// FormatShipmentProgress renders expected against received quantities for
// a shipment. When counting is non-nil it adds the units saved in the open
// session that are not submitted yet.
func FormatShipmentProgress(p *domain.ShipmentProgress, counting map[domain.ItemKey]int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold(OrDash(p.Number)), shipmentStatus(p.Status))
	if p.SupplierName != "" {
		fmt.Fprintf(&b, "%s %s\n", Dim("supplier:"), p.SupplierName)
	}
	b.WriteString("\n")

	headers := []string{"PRODUCT", "SKU", "SHIPPED", "RECEIVED", "REJECTED", "REMAINING"}
	right := []int{2, 3, 4, 5}
	if counting != nil {
		headers = append(headers, "COUNTING")
		right = append(right, 6)
	}
	row := func(it domain.ShipmentItemProgress, shipped string) []string {
		name := it.DisplayName()
		if name == "" {
			name = it.Key.String()
		}
		r := []string{
			name,
			OrDash(it.SKU),
			shipped,
			strconv.Itoa(it.QuantityReceived),
			strconv.Itoa(it.QuantityRejected),
			remaining(it.QuantityRemaining),
		}
		if counting != nil {
			r = append(r, strconv.Itoa(counting[it.Key]))
		}
		return r
	}
	rows := make([][]string, 0, len(p.Items)+len(p.Unexpected))
	for _, it := range p.Items {
		rows = append(rows, row(it, strconv.Itoa(it.QuantityShipped)))
	}
	for _, it := range p.Unexpected {
		rows = append(rows, row(it, StyleYellow.Render("not listed")))
	}
	if len(rows) == 0 {
		b.WriteString(Dim("No lines on this shipment.") + "\n")
	} else {
		b.WriteString(RenderTable(headers, rows, right...))
	}

	s := p.Summary
	fmt.Fprintf(&b, "\n%s %s\n", Dim("received"),
		RenderMatchBar(s.TotalShipped-s.TotalRemaining, s.TotalShipped, 20))
	fmt.Fprintf(&b, "%s %d shipped · %d received · %d rejected · %d remaining\n",
		StyleHeader.Render("SUMMARY"), s.TotalShipped, s.TotalReceived, s.TotalRejected, s.TotalRemaining)
	return RenderBox("Shipment", b.String())
}

func shipmentStatus(s domain.ShipmentStatus) string {
	switch s {
	case domain.ShipmentReceived:
		return StyleGreen.Render(string(s))
	case domain.ShipmentPartial:
		return StyleYellow.Render(string(s))
	}
	return Dim(string(s))
}

func remaining(n int) string {
	if n == 0 {
		return StyleGreen.Render("0")
	}
	return strconv.Itoa(n)
}
