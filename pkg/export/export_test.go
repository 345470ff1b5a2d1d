package export

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Headers: []string{"Time", "MONDAY"},
		Rows: []map[string]string{
			{"Time": "08:00-08:40", "MONDAY": "math (T1)"},
			{"Time": "08:40-09:20", "MONDAY": "Free time"},
			{"Time": "09:20-09:40"},
		},
	}
}

func TestCSVExporterRender(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)
	assert.Equal(t, "Time,MONDAY\n08:00-08:40,math (T1)\n08:40-09:20,Free time\n09:20-09:40,\n", string(out))

	_, err = NewCSVExporter().Render(Dataset{})
	assert.Error(t, err)
}

func TestPDFExporterRender(t *testing.T) {
	out, err := NewPDFExporter().Render(sampleDataset(), PDFOptions{Title: "Timetable 10A", Subtitle: "Run r-1", Landscape: true})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF-")))

	_, err = NewPDFExporter().Render(Dataset{}, PDFOptions{})
	assert.Error(t, err)
}

func TestPDFExporterPaginatesLongGrids(t *testing.T) {
	data := Dataset{Headers: []string{"Time", "MONDAY", "TUESDAY"}}
	for i := 0; i < 80; i++ {
		data.Rows = append(data.Rows, map[string]string{"Time": fmt.Sprintf("slot %d", i), "MONDAY": "math (T1)"})
	}
	out, err := NewPDFExporter().Render(data, PDFOptions{Title: "Timetable 10A"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, bytes.Count(out, []byte("/Type /Page\n")), 3)
}

func TestColumnWidthsAndFit(t *testing.T) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	widths := columnWidths(pdf, 6)
	assert.Equal(t, labelColumnWidth, widths[0])
	assert.InDelta(t, (277.0-labelColumnWidth)/5, widths[1], 0.01)

	pdf.SetFont("Arial", "", 8)
	assert.Equal(t, "math (T1)", fit(pdf, "math (T1)", 40))
	short := fit(pdf, "an extremely long subject caption that cannot fit", 20)
	assert.Contains(t, short, "...")
	assert.LessOrEqual(t, pdf.GetStringWidth(short), 20-2*cellPadding)
}

func TestParseFormat(t *testing.T) {
	for name, want := range map[string]Format{"": FormatCSV, "csv": FormatCSV, "PDF": FormatPDF, " pdf ": FormatPDF} {
		got, err := ParseFormat(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xlsx")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "application/pdf", FormatPDF.ContentType())
	assert.Equal(t, "text/csv; charset=utf-8", FormatCSV.ContentType())
	assert.Equal(t, "timetable-10A.csv", FormatCSV.Filename("timetable-10A"))
}
