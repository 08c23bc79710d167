package extraction

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-visa-intake/internal/pdftest"
)

func TestGrade(t *testing.T) {
	tests := []struct {
		name string
		a    Assessment
		want Quality
	}{
		{"all pages scanned", Assessment{PageCount: 2, ScannedPages: 2, KeyValuePairs: 9, PrintableRatio: 1}, QualityLow},
		{"born digital form", Assessment{PageCount: 1, KeyValuePairs: 6, PrintableRatio: 0.98}, QualityHigh},
		{"garbled text layer", Assessment{PageCount: 1, KeyValuePairs: 6, PrintableRatio: 0.5}, QualityMedium},
		{"one scanned page of two", Assessment{PageCount: 2, ScannedPages: 1, KeyValuePairs: 8, PrintableRatio: 1}, QualityMedium},
		{"prose only", Assessment{PageCount: 1, TextChars: 450, PrintableRatio: 1}, QualityMedium},
		{"nearly empty", Assessment{PageCount: 1, TextChars: 12, PrintableRatio: 1}, QualityLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, grade(tt.a))
		})
	}
}

func TestPDFQualityAssessor_NonPDF(t *testing.T) {
	a, err := PDFQualityAssessor{}.Assess(context.Background(), []byte("\x89PNG\r\n\x1a\n0000"), "")
	require.NoError(t, err)
	assert.Equal(t, QualityLow, a.Quality)
	assert.Equal(t, 1, a.PageCount)
}

func TestPDFQualityAssessor_Corrupt(t *testing.T) {
	_, err := PDFQualityAssessor{}.Assess(context.Background(), []byte("%PDF-1.7 garbage"), "application/pdf")
	assert.Error(t, err)
}

func TestPDFQualityAssessor_ScannedDocument(t *testing.T) {
	data := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{Image: true}, {Image: true}}})

	a, err := PDFQualityAssessor{}.Assess(context.Background(), data, "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, 2, a.PageCount)
	assert.Equal(t, 2, a.ScannedPages)
	assert.Equal(t, QualityLow, a.Quality)
}

func TestPDFQualityAssessor_BornDigitalForm(t *testing.T) {
	data := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{Lines: []string{
		"Surname: SMITH",
		"Given Names: JOHN",
		"Date of Birth: 15/01/1990",
		"Nationality: GBR",
		"Passport Number: 123456789",
		"Expiry Date: 01/01/2030",
	}}}})

	a, err := PDFQualityAssessor{}.Assess(context.Background(), data, "")
	require.NoError(t, err)
	assert.Equal(t, 1, a.PageCount)
	assert.Equal(t, 0, a.ScannedPages)
	assert.GreaterOrEqual(t, a.KeyValuePairs, 5)
	assert.Equal(t, QualityHigh, a.Quality)
}

func TestKeyValuePattern(t *testing.T) {
	text := "Surname: SMITH\nGiven Names:JOHN\nNo colon here\nEmpty:   \n"
	assert.Len(t, keyValueRe.FindAllStringIndex(text, -1), 2)
}

func TestPrintable(t *testing.T) {
	n, ratio := printable("ab c\x00")
	assert.Equal(t, 4, n)
	assert.InDelta(t, 0.75, ratio, 0.001)

	n, ratio = printable("  \n")
	assert.Zero(t, n)
	assert.Zero(t, ratio)
}
