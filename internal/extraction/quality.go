package extraction

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// Assessment is the evidence behind a quality grade
type Assessment struct {
	Quality        Quality `json:"quality"`
	PageCount      int     `json:"pageCount"`
	KeyValuePairs  int     `json:"keyValuePairs"`
	TextChars      int     `json:"textChars"`
	PrintableRatio float64 `json:"printableRatio"`
	ScannedPages   int     `json:"scannedPages"`
}

// QualityAssessor grades a document before routing
type QualityAssessor interface {
	Assess(ctx context.Context, data []byte, contentType string) (Assessment, error)
}

const (
	highMinKeyValuePairs = 5
	highMinPrintable     = 0.9
	mediumMinTextChars   = 200
	// a page with fewer characters than this and at least one image is treated as scanned
	scannedPageMaxChars = 20
)

// "Label: value". Unanchored since extracted text does not always keep line breaks.
var keyValueRe = regexp.MustCompile(`[A-Za-z][A-Za-z0-9 /().'#-]{1,40}:[ \t]*\S`)

// PDFQualityAssessor grades PDFs by their text layer. A born-digital form with many
// "Label: value" lines is high, a partial text layer is medium, and image-only scans
// or non-PDF input are low.
type PDFQualityAssessor struct{}

// Assess implements QualityAssessor
func (PDFQualityAssessor) Assess(_ context.Context, data []byte, contentType string) (Assessment, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(contentType, "application/pdf") {
		return Assessment{Quality: QualityLow, PageCount: 1}, nil
	}

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Assessment{}, fmt.Errorf("failed to open PDF: %w", err)
	}

	a := Assessment{PageCount: r.NumPage()}
	var text strings.Builder
	for n := 1; n <= a.PageCount; n++ {
		pageText, images := scanPage(r, n)
		chars := len(strings.TrimSpace(pageText))
		if chars < scannedPageMaxChars && images > 0 {
			a.ScannedPages++
		}
		text.WriteString(pageText)
		text.WriteByte('\n')
	}

	all := text.String()
	a.KeyValuePairs = len(keyValueRe.FindAllStringIndex(all, -1))
	a.TextChars, a.PrintableRatio = printable(all)
	a.Quality = grade(a)
	return a, nil
}

func grade(a Assessment) Quality {
	switch {
	case a.PageCount > 0 && a.ScannedPages == a.PageCount:
		return QualityLow
	case a.KeyValuePairs >= highMinKeyValuePairs && a.PrintableRatio >= highMinPrintable && a.ScannedPages == 0:
		return QualityHigh
	case a.KeyValuePairs > 0 || a.TextChars >= mediumMinTextChars:
		return QualityMedium
	}
	return QualityLow
}

// scanPage returns the page's plain text and its image XObject count.
// Malformed pages yield nothing rather than failing the whole assessment.
func scanPage(r *pdf.Reader, n int) (text string, images int) {
	defer func() {
		if recover() != nil {
			text, images = "", 0
		}
	}()

	page := r.Page(n)
	if page.V.IsNull() {
		return "", 0
	}
	if t, err := page.GetPlainText(nil); err == nil {
		text = t
	}

	xObjects := page.V.Key("Resources").Key("XObject")
	if xObjects.IsNull() || xObjects.Kind() != pdf.Dict {
		return text, 0
	}
	for _, key := range xObjects.Keys() {
		if xObjects.Key(key).Key("Subtype").Name() == "Image" {
			images++
		}
	}
	return text, images
}

// printable counts non-space characters and the share of them that are printable
func printable(s string) (int, float64) {
	total, good := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if unicode.IsPrint(r) && r != unicode.ReplacementChar {
			good++
		}
	}
	if total == 0 {
		return 0, 0
	}
	return total, float64(good) / float64(total)
}
