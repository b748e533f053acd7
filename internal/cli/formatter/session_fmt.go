package formatter

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

// FormatSessionList renders sessions as a table.
func FormatSessionList(sessions []*domain.Session) string {
	if len(sessions) == 0 {
		return Dim("No sessions found.") + "\n"
	}
	headers := []string{"ID", "NAME", "TYPE", "STORE", "SHIPMENT", "MEMBERS", "STATUS", "CREATED"}
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			TruncID(s.ID),
			s.Name,
			TypeBadge(s.Type),
			s.StoreID,
			OrDash(OptionalString(s.ShipmentID)),
			strconv.Itoa(s.MemberCount),
			SessionStatusPill(s),
			HumanTimestamp(s.CreatedAt),
		})
	}
	return RenderBox("Sessions", RenderTable(headers, rows, 5))
}

// FormatSession renders one session's header block.
func FormatSession(s *domain.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s  %s\n", Bold(s.Name), TypeBadge(s.Type), SessionStatusPill(s))
	fmt.Fprintf(&b, "%s %s\n", Dim("id:      "), s.ID)
	fmt.Fprintf(&b, "%s %s\n", Dim("store:   "), s.StoreID)
	if s.ShipmentID != nil {
		fmt.Fprintf(&b, "%s %s\n", Dim("shipment:"), *s.ShipmentID)
	}
	fmt.Fprintf(&b, "%s %s\n", Dim("created: "), s.CreatedBy)
	return b.String()
}

// FormatItems renders a session aggregate: one row per product with its
// contributors, then the participant rollup and totals.
func FormatItems(res *app.ItemsResult) string {
	if len(res.Items) == 0 {
		return Dim("No items saved yet.") + "\n"
	}

	headers := []string{"PRODUCT", "SKU", "QTY", "REJECTED", "CONTRIBUTORS"}
	rows := make([][]string, 0, len(res.Items))
	for _, it := range res.Items {
		names := make([]string, 0, len(it.Contributions))
		for _, c := range it.Contributions {
			who := c.UserName
			if who == "" {
				who = c.UserID
			}
			names = append(names, fmt.Sprintf("%s ×%d", who, c.Quantity))
		}
		rows = append(rows, []string{
			OrDash(it.DisplayName()),
			OrDash(it.SKU),
			strconv.Itoa(it.TotalQuantity),
			strconv.Itoa(it.TotalRejected),
			Dim(strings.Join(names, ", ")),
		})
	}

	var b strings.Builder
	b.WriteString(RenderTable(headers, rows, 2, 3))
	if len(res.Participants) > 0 {
		b.WriteString("\n")
		pRows := make([][]string, 0, len(res.Participants))
		for _, p := range res.Participants {
			pRows = append(pRows, []string{
				OrDash(p.UserName),
				Dim(p.UserID),
				strconv.Itoa(p.ProductCount),
				strconv.Itoa(p.TotalScanned),
			})
		}
		b.WriteString(RenderTable([]string{"PARTICIPANT", "USER", "PRODUCTS", "SCANNED"}, pRows, 2, 3))
	}
	fmt.Fprintf(&b, "\n%s %d products · %d units · %d rejected · %d participants\n",
		StyleHeader.Render("TOTAL"),
		res.Summary.TotalProducts, res.Summary.TotalQuantity,
		res.Summary.TotalRejected, res.Summary.TotalParticipants)
	return RenderBox("Items", b.String())
}

// FormatProducts renders product search results.
func FormatProducts(products []domain.Product) string {
	if len(products) == 0 {
		return Dim("No products match.") + "\n"
	}
	headers := []string{"PRODUCT", "VARIANT", "SKU", "BARCODE", "ON HAND", "UNIT COST", "ID"}
	rows := make([][]string, 0, len(products))
	for _, p := range products {
		rows = append(rows, []string{
			p.Name,
			OrDash(p.VariantName),
			OrDash(p.SKU),
			OrDash(p.Barcode),
			strconv.Itoa(p.OnHand),
			p.UnitCost.StringFixed(2),
			Dim(p.Key.String()),
		})
	}
	return RenderTable(headers, rows, 4, 5)
}
