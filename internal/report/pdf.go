// Package report renders the fixed-layout service report handed to
// customers: a header, the request metadata block and a bordered
// table of detail lines with a grand total. The core PDF fonts are
// Latin-1 only, so all text passes through a replacing encoder first.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
)

// Line is one billed item on the report.
type Line struct {
	ItemName  string
	Quantity  int
	UnitPrice float64
}

// Amount returns the line total.
func (l Line) Amount() float64 { return float64(l.Quantity) * l.UnitPrice }

// Total sums the line amounts.
func Total(lines []Line) float64 {
	var sum float64
	for _, l := range lines {
		sum += l.Amount()
	}
	return sum
}

// RequestInfo carries the request metadata printed above the table.
type RequestInfo struct {
	ID            uint64
	CustomerTitle string
	Title         string
	Description   string
	Status        string
	CreatedAt     time.Time
}

var latin1 = encoding.ReplaceUnsupported(charmap.ISO8859_1.NewEncoder())

// latin1Safe rewrites the Turkish lira sign as "TL" and replaces any
// remaining rune the Latin-1 fonts cannot render.
func latin1Safe(s string) string {
	s = strings.ReplaceAll(s, "₺", "TL")
	out, err := latin1.String(s)
	if err != nil {
		return s
	}
	return out
}

// Build renders the report and returns the PDF bytes.
func Build(info RequestInfo, lines []Line) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, latin1Safe("Service Report"), "", 1, "C", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	pdf.Ln(5)
	meta := []string{
		fmt.Sprintf("Request: #%d", info.ID),
		fmt.Sprintf("Customer: %s", info.CustomerTitle),
		fmt.Sprintf("Title: %s", info.Title),
		fmt.Sprintf("Description: %s", info.Description),
		fmt.Sprintf("Status: %s", info.Status),
		fmt.Sprintf("Date: %s", info.CreatedAt.Format("2006-01-02 15:04:05")),
	}
	for _, m := range meta {
		pdf.CellFormat(0, 6, latin1Safe(m), "", 1, "L", false, 0, "")
	}

	pdf.Ln(5)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 8, latin1Safe("Item/Service"), "1", 0, "L", false, 0, "")
	pdf.CellFormat(30, 8, "Quantity", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Unit Price", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, "Amount", "1", 1, "L", false, 0, "")

	pdf.SetFont("Arial", "", 10)
	for _, l := range lines {
		pdf.CellFormat(80, 8, latin1Safe(l.ItemName), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 8, fmt.Sprintf("%d", l.Quantity), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%.2f TL", l.UnitPrice), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, fmt.Sprintf("%.2f TL", l.Amount()), "1", 1, "L", false, 0, "")
	}
	pdf.CellFormat(150, 8, "TOTAL", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, fmt.Sprintf("%.2f TL", Total(lines)), "1", 1, "L", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
