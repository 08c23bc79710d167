// Package pdftest builds small, valid PDF documents in memory for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"strings"
)

// Field kinds accepted by Field.Kind
const (
	Text     = "text"
	Checkbox = "checkbox"
	Radio    = "radio"
	Combo    = "combo"
	List     = "list"
	Button   = "button"
)

// Field is an AcroForm field with a single widget
type Field struct {
	Name     string
	Kind     string
	Page     int // 1-based, defaults to 1
	Options  []string
	ReadOnly bool
}

// Page is one page of text lines, optionally carrying a full-page image
type Page struct {
	Lines []string
	Image bool
}

// Doc describes the document to build
type Doc struct {
	Pages     []Page
	Fields    []Field
	Encrypted bool
}

type builder struct {
	objects []string
}

// add reserves the next object number; the body is filled in later with set
func (b *builder) add(body string) int {
	b.objects = append(b.objects, body)
	return len(b.objects)
}

func (b *builder) set(n int, body string) {
	b.objects[n-1] = body
}

func ref(n int) string { return fmt.Sprintf("%d 0 R", n) }

func stream(dict, data string) string {
	return fmt.Sprintf("<< %s /Length %d >>\nstream\n%s\nendstream", dict, len(data), data)
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

// Build renders d as PDF bytes. A document without pages gets one empty page.
func Build(d Doc) []byte {
	if len(d.Pages) == 0 {
		d.Pages = []Page{{}}
	}

	b := &builder{}
	catalog := b.add("")
	pagesObj := b.add("")
	font := b.add("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	pageObjs := make([]int, len(d.Pages))
	for i := range d.Pages {
		pageObjs[i] = b.add("")
	}

	annots := make([][]string, len(d.Pages))
	fieldRefs := make([]string, 0, len(d.Fields))
	for _, f := range d.Fields {
		p := f.Page
		if p < 1 || p > len(d.Pages) {
			p = 1
		}
		n := b.add(fieldDict(f, pageObjs[p-1]))
		annots[p-1] = append(annots[p-1], ref(n))
		fieldRefs = append(fieldRefs, ref(n))
	}

	for i, pg := range d.Pages {
		var content strings.Builder
		y := 720
		for _, line := range pg.Lines {
			fmt.Fprintf(&content, "BT /F1 11 Tf 72 %d Td (%s) Tj ET\n", y, escape(line))
			y -= 16
		}
		resources := fmt.Sprintf("/Font << /F1 %s >>", ref(font))
		if pg.Image {
			img := b.add(stream("/Type /XObject /Subtype /Image /Width 2 /Height 2 /ColorSpace /DeviceGray /BitsPerComponent 8", "\x00\xff\xff\x00"))
			resources += fmt.Sprintf(" /XObject << /Im1 %s >>", ref(img))
			content.WriteString("q 612 0 0 792 0 0 cm /Im1 Do Q\n")
		}
		contents := b.add(stream("", content.String()))

		page := fmt.Sprintf("<< /Type /Page /Parent %s /MediaBox [0 0 612 792] /Resources << %s >> /Contents %s",
			ref(pagesObj), resources, ref(contents))
		if len(annots[i]) > 0 {
			page += " /Annots [" + strings.Join(annots[i], " ") + "]"
		}
		b.set(pageObjs[i], page+" >>")
	}

	kids := make([]string, len(pageObjs))
	for i, n := range pageObjs {
		kids[i] = ref(n)
	}
	b.set(pagesObj, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pageObjs)))

	cat := fmt.Sprintf("<< /Type /Catalog /Pages %s", ref(pagesObj))
	if len(fieldRefs) > 0 {
		cat += fmt.Sprintf(" /AcroForm << /Fields [%s] /DR << /Font << /Helv %s >> >> /DA (/Helv 0 Tf 0 g) /NeedAppearances true >>",
			strings.Join(fieldRefs, " "), ref(font))
	}
	b.set(catalog, cat+" >>")

	var trailerExtra string
	if d.Encrypted {
		enc := b.add("<< /Filter /Standard /V 1 /R 2 /Length 40 /P -4 /O <" + strings.Repeat("00", 32) + "> /U <" + strings.Repeat("00", 32) + "> >>")
		trailerExtra = fmt.Sprintf(" /Encrypt %s /ID [<%s> <%s>]", ref(enc), strings.Repeat("ab", 16), strings.Repeat("ab", 16))
	}

	return b.render(catalog, trailerExtra)
}

func fieldDict(f Field, page int) string {
	var ff int
	if f.ReadOnly {
		ff |= 1
	}
	common := fmt.Sprintf("/Type /Annot /Subtype /Widget /T (%s) /Rect [72 500 300 520] /P %s /F 4", escape(f.Name), ref(page))

	opts := func() string {
		parts := make([]string, len(f.Options))
		for i, o := range f.Options {
			parts[i] = "(" + escape(o) + ")"
		}
		return "/Opt [" + strings.Join(parts, " ") + "]"
	}

	switch f.Kind {
	case Checkbox:
		return fmt.Sprintf("<< %s /FT /Btn /Ff %d /V /Off /AS /Off >>", common, ff)
	case Radio:
		return fmt.Sprintf("<< %s /FT /Btn /Ff %d /V /Off %s >>", common, ff|1<<15, opts())
	case Button:
		return fmt.Sprintf("<< %s /FT /Btn /Ff %d >>", common, ff|1<<16)
	case Combo:
		return fmt.Sprintf("<< %s /FT /Ch /Ff %d %s /DA (/Helv 0 Tf 0 g) >>", common, ff|1<<17, opts())
	case List:
		return fmt.Sprintf("<< %s /FT /Ch /Ff %d %s /DA (/Helv 0 Tf 0 g) >>", common, ff, opts())
	default:
		return fmt.Sprintf("<< %s /FT /Tx /Ff %d /DA (/Helv 0 Tf 0 g) >>", common, ff)
	}
}

func (b *builder) render(root int, trailerExtra string) []byte {
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xe2\xe3\xcf\xd3\n")

	offsets := make([]int, len(b.objects))
	for i, body := range b.objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(b.objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %s%s >>\nstartxref\n%d\n%%%%EOF\n",
		len(b.objects)+1, ref(root), trailerExtra, xref)
	return buf.Bytes()
}
