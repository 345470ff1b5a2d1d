package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	labelColumnWidth = 28.0
	headerHeight     = 8.0
	rowHeight        = 7.0
	cellPadding      = 1.5
)

// PDFOptions controls page layout and headings.
type PDFOptions struct {
	Title     string
	Subtitle  string
	Landscape bool
}

// PDFExporter renders a Dataset as an A4 grid. The first column is the
// narrow time label; empty cells are shaded and the header row repeats on
// every page.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out the headings and the grid.
func (e *PDFExporter) Render(data Dataset, opts PDFOptions) ([]byte, error) {
	if err := data.validate(); err != nil {
		return nil, fmt.Errorf("pdf: %w", err)
	}
	orientation := "P"
	if opts.Landscape {
		orientation = "L"
	}
	pdf := gofpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(false, 15)
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Arial", "I", 7)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})
	pdf.AddPage()

	if opts.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, strings.ToUpper(opts.Title), "", 1, "C", false, 0, "")
	}
	if opts.Subtitle != "" {
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(0, 6, opts.Subtitle, "", 1, "C", false, 0, "")
	}
	if opts.Title != "" || opts.Subtitle != "" {
		pdf.Ln(5)
	}

	widths := columnWidths(pdf, len(data.Headers))
	writeHeader(pdf, data.Headers, widths)

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	pdf.SetFillColor(230, 230, 230)
	for _, row := range data.Rows {
		if pdf.GetY()+rowHeight > pageHeight-bottom {
			pdf.AddPage()
			writeHeader(pdf, data.Headers, widths)
			pdf.SetFillColor(230, 230, 230)
		}
		pdf.SetFont("Arial", "", 8)
		for i, header := range data.Headers {
			text := row[header]
			shade := i > 0 && text == ""
			pdf.CellFormat(widths[i], rowHeight, fit(pdf, text, widths[i]), "1", 0, "", shade, 0, "")
		}
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(pdf *gofpdf.Fpdf, columns int) []float64 {
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	usable := pageWidth - left - right
	widths := make([]float64, columns)
	if columns == 1 {
		widths[0] = usable
		return widths
	}
	widths[0] = labelColumnWidth
	rest := (usable - labelColumnWidth) / float64(columns-1)
	for i := 1; i < columns; i++ {
		widths[i] = rest
	}
	return widths
}

func writeHeader(pdf *gofpdf.Fpdf, headers []string, widths []float64) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(200, 215, 235)
	for i, header := range headers {
		pdf.CellFormat(widths[i], headerHeight, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// fit truncates text with an ellipsis so it stays inside width.
func fit(pdf *gofpdf.Fpdf, text string, width float64) string {
	limit := width - 2*cellPadding
	if pdf.GetStringWidth(text) <= limit {
		return text
	}
	runes := []rune(text)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
