package extraction

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	pdfmodel "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Rasterizer turns a document into page images for the vision backend
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, contentType string) ([]Image, error)
}

// PDFRasterizer pulls the embedded page images out of scanned PDFs. Image
// uploads pass through unchanged, and a PDF without embedded images is handed
// over whole as a single application/pdf item.
type PDFRasterizer struct{}

// Rasterize implements Rasterizer
func (PDFRasterizer) Rasterize(_ context.Context, data []byte, contentType string) ([]Image, error) {
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	if strings.HasPrefix(contentType, "image/") {
		return []Image{{Page: 1, ContentType: contentType, Data: data}}, nil
	}
	if !strings.HasPrefix(contentType, "application/pdf") {
		return nil, fmt.Errorf("cannot rasterize %s", contentType)
	}

	conf := pdfmodel.NewDefaultConfiguration()
	conf.ValidationMode = pdfmodel.ValidationRelaxed

	pages, err := api.ExtractImagesRaw(bytes.NewReader(data), nil, conf)
	if err != nil {
		return nil, fmt.Errorf("failed to extract page images: %w", err)
	}

	var out []Image
	for _, byObj := range pages {
		objNrs := make([]int, 0, len(byObj))
		for nr := range byObj {
			objNrs = append(objNrs, nr)
		}
		sort.Ints(objNrs)

		for _, nr := range objNrs {
			img := byObj[nr]
			if img.Reader == nil {
				continue
			}
			b, err := io.ReadAll(img.Reader)
			if err != nil || len(b) == 0 {
				continue
			}
			out = append(out, Image{
				Page:        img.PageNr,
				ContentType: imageContentType(img.FileType, b),
				Data:        b,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Page < out[j].Page })

	if len(out) == 0 {
		return []Image{{Page: 1, ContentType: "application/pdf", Data: data}}, nil
	}
	return out, nil
}

func imageContentType(fileType string, data []byte) string {
	switch strings.ToLower(fileType) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "tif", "tiff":
		return "image/tiff"
	case "jpx", "jp2":
		return "image/jp2"
	}
	return http.DetectContentType(data)
}
