// Package export writes session reports as XLSX workbooks.
package export

import (
	"fmt"
	"io"
	"os"

	"github.com/xuri/excelize/v2"

	"github.com/JINL2/mystorecluade-sub001/internal/app"
	"github.com/JINL2/mystorecluade-sub001/internal/domain"
)

const (
	SheetItems        = "Items"
	SheetParticipants = "Participants"
	SheetSummary      = "Summary"
	SheetComparison   = "Comparison"
)

// Report is everything one session export contains. Comparison is optional.
type Report struct {
	Session    *domain.Session
	Items      *app.ItemsResult
	Comparison *domain.ComparisonResult
}

// WriteXLSX writes r as a workbook: one row per contribution on the items
// sheet, followed by a totals row, plus participant and summary sheets and,
// when r.Comparison is set, a comparison sheet.
func WriteXLSX(w io.Writer, r Report) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetItems); err != nil {
		return fmt.Errorf("renaming sheet: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}
	sw := &sheetWriter{f: f, bold: bold}

	sw.start(SheetItems, "Product", "Variant", "SKU", "Contributor", "Quantity", "Rejected")
	for _, it := range r.Items.Items {
		for _, c := range it.Contributions {
			name := c.UserName
			if name == "" {
				name = c.UserID
			}
			sw.row(it.ProductName, it.VariantName, it.SKU, name, c.Quantity, c.QuantityRejected)
		}
	}
	sw.boldRow("Total", "", "", "", r.Items.Summary.TotalQuantity, r.Items.Summary.TotalRejected)

	sw.start(SheetParticipants, "User", "Name", "Products", "Scanned")
	for _, p := range r.Items.Participants {
		sw.row(p.UserID, p.UserName, p.ProductCount, p.TotalScanned)
	}

	sw.start(SheetSummary, "Field", "Value")
	sw.row("Session", r.Session.Name)
	sw.row("Session ID", r.Session.ID)
	sw.row("Type", string(r.Session.Type))
	sw.row("Store", r.Session.StoreID)
	if r.Session.ShipmentID != nil {
		sw.row("Shipment", *r.Session.ShipmentID)
	}
	sw.row("Products", r.Items.Summary.TotalProducts)
	sw.row("Quantity", r.Items.Summary.TotalQuantity)
	sw.row("Rejected", r.Items.Summary.TotalRejected)
	sw.row("Participants", r.Items.Summary.TotalParticipants)

	if cmp := r.Comparison; cmp != nil {
		sw.start(SheetComparison, "Status", "Product", "SKU",
			nameOr(cmp.SessionA), nameOr(cmp.SessionB), "Difference")
		for _, m := range cmp.Matched {
			status := "match"
			if !m.IsMatch {
				status = "different"
			}
			sw.row(status, m.ProductName, m.SKU, m.QuantityA, m.QuantityB, m.QuantityDiff)
		}
		for _, o := range cmp.OnlyInA {
			sw.row("only in A", o.ProductName, o.SKU, o.Quantity, 0, -o.Quantity)
		}
		for _, o := range cmp.OnlyInB {
			sw.row("only in B", o.ProductName, o.SKU, 0, o.Quantity, o.Quantity)
		}
	}

	if sw.err != nil {
		return sw.err
	}
	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

// SaveXLSX writes r to a new file at path.
func SaveXLSX(path string, r Report) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := WriteXLSX(out, r); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func nameOr(ref domain.SessionRef) string {
	if ref.SessionName != "" {
		return ref.SessionName
	}
	return ref.SessionID
}

// sheetWriter appends rows to one sheet at a time and keeps the first error.
type sheetWriter struct {
	f     *excelize.File
	bold  int
	sheet string
	next  int
	err   error
}

func (s *sheetWriter) start(sheet string, headers ...string) {
	if s.err != nil {
		return
	}
	idx, err := s.f.GetSheetIndex(sheet)
	if err != nil {
		s.err = fmt.Errorf("looking up sheet %s: %w", sheet, err)
		return
	}
	if idx < 0 {
		if _, err := s.f.NewSheet(sheet); err != nil {
			s.err = fmt.Errorf("creating sheet %s: %w", sheet, err)
			return
		}
	}
	s.sheet = sheet
	s.next = 1
	cells := make([]any, len(headers))
	for i, h := range headers {
		cells[i] = h
	}
	s.boldRow(cells...)
	if s.err == nil {
		s.err = s.f.SetColWidth(sheet, "A", "B", 24)
	}
}

func (s *sheetWriter) row(cells ...any) {
	if s.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, s.next)
	if err != nil {
		s.err = err
		return
	}
	if err := s.f.SetSheetRow(s.sheet, cell, &cells); err != nil {
		s.err = fmt.Errorf("writing %s row %d: %w", s.sheet, s.next, err)
		return
	}
	s.next++
}

func (s *sheetWriter) boldRow(cells ...any) {
	s.row(cells...)
	if s.err != nil {
		return
	}
	row := s.next - 1
	first, _ := excelize.CoordinatesToCellName(1, row)
	last, _ := excelize.CoordinatesToCellName(len(cells), row)
	if err := s.f.SetCellStyle(s.sheet, first, last, s.bold); err != nil {
		s.err = fmt.Errorf("styling %s row %d: %w", s.sheet, row, err)
	}
}
