package extraction

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-visa-intake/internal/pdftest"
)

func TestPDFRasterizer_ImagePassesThrough(t *testing.T) {
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0, 0x10, 'J', 'F', 'I', 'F'}

	images, err := PDFRasterizer{}.Rasterize(context.Background(), data, "")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, "image/jpeg", images[0].ContentType)
	assert.Equal(t, data, images[0].Data)
}

func TestPDFRasterizer_BornDigitalPDFIsSentWhole(t *testing.T) {
	data := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{Lines: []string{
		"Surname: SMITH",
		"Given Names: JOHN",
	}}}})

	images, err := PDFRasterizer{}.Rasterize(context.Background(), data, "application/pdf")
	require.NoError(t, err)
	require.Len(t, images, 1)
	assert.Equal(t, 1, images[0].Page)
	assert.Equal(t, "application/pdf", images[0].ContentType)
	assert.Equal(t, data, images[0].Data)
}

func TestRouter_HighQualityFormFallsBackToVisionWithoutImages(t *testing.T) {
	data := pdftest.Build(pdftest.Doc{Pages: []pdftest.Page{{Lines: []string{"Surname: SMITH"}}}})
	structured := &fakeBackend{name: "structured", err: &BackendError{Backend: "structured", Err: errors.New("boom")}}
	vision := &fakeBackend{name: "vision", fields: fieldsAt(80)}

	r := NewRouter(
		WithAssessor(fixedAssessor{a: Assessment{Quality: QualityHigh, PageCount: 1}}),
		WithRasterizer(PDFRasterizer{}),
		WithStructured(structured),
		WithVision(vision),
		WithLogger(quietLogger()),
	)

	res, err := r.Extract(context.Background(), data, "application/pdf", DocVisaForm)
	require.NoError(t, err)
	assert.Equal(t, MethodVisionModel, res.Method)
	require.Len(t, vision.inputs, 1)
	require.Len(t, vision.inputs[0].Images, 1)
	assert.Equal(t, "application/pdf", vision.inputs[0].Images[0].ContentType)
}

func TestPDFRasterizer_UnsupportedContent(t *testing.T) {
	_, err := PDFRasterizer{}.Rasterize(context.Background(), []byte("plain words"), "text/plain")
	assert.Error(t, err)
}
