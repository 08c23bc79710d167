package extraction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-visa-intake/internal/metrics"
	"github.com/a3tai/mcp-visa-intake/internal/model"
)

type fakeBackend struct {
	name   string
	fields []model.ExtractedField
	err    error
	calls  int
	inputs []Input
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) Extract(_ context.Context, in Input) ([]model.ExtractedField, error) {
	f.calls++
	f.inputs = append(f.inputs, in)
	return f.fields, f.err
}

type fixedAssessor struct {
	a   Assessment
	err error
}

func (f fixedAssessor) Assess(context.Context, []byte, string) (Assessment, error) {
	return f.a, f.err
}

type fakeRasterizer struct {
	images []Image
	err    error
	calls  int
}

func (f *fakeRasterizer) Rasterize(context.Context, []byte, string) ([]Image, error) {
	f.calls++
	return f.images, f.err
}

func fieldsAt(conf ...int) []model.ExtractedField {
	out := make([]model.ExtractedField, len(conf))
	for i, c := range conf {
		out[i] = model.ExtractedField{Label: "Label", Value: "v", Confidence: c, Type: model.FieldTypeText}
	}
	return out
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(quality Quality, structured, id, vision Backend) (*Router, *fakeRasterizer) {
	raster := &fakeRasterizer{images: []Image{{Page: 1, ContentType: "image/png", Data: []byte("png")}}}
	opts := []Option{
		WithAssessor(fixedAssessor{a: Assessment{Quality: quality, PageCount: 2}}),
		WithRasterizer(raster),
		WithLogger(quietLogger()),
	}
	if structured != nil {
		opts = append(opts, WithStructured(structured))
	}
	if id != nil {
		opts = append(opts, WithIDDocument(id))
	}
	if vision != nil {
		opts = append(opts, WithVision(vision))
	}
	return NewRouter(opts...), raster
}

func TestRouter_Passport(t *testing.T) {
	t.Run("id document backend wins", func(t *testing.T) {
		id := &fakeBackend{name: "id", fields: fieldsAt(90, 80)}
		vision := &fakeBackend{name: "vision", fields: fieldsAt(50)}
		r, raster := newTestRouter(QualityHigh, nil, id, vision)

		res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocPassport)
		require.NoError(t, err)
		assert.Equal(t, MethodIDDocument, res.Method)
		assert.Equal(t, 85, res.OverallConfidence)
		assert.Equal(t, 0, vision.calls)
		assert.Equal(t, 0, raster.calls, "no images needed when the id backend succeeds")
		require.Len(t, res.Attempts, 1)
		assert.True(t, res.Attempts[0].Accepted)
	})

	t.Run("falls back to vision on failure", func(t *testing.T) {
		id := &fakeBackend{name: "id", err: &BackendError{Backend: "id", Err: errors.New("boom")}}
		vision := &fakeBackend{name: "vision", fields: fieldsAt(70)}
		r, raster := newTestRouter(QualityHigh, nil, id, vision)

		res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocPassport)
		require.NoError(t, err)
		assert.Equal(t, MethodVisionModel, res.Method)
		assert.Equal(t, 1, raster.calls)
		require.Len(t, vision.inputs, 1)
		assert.Len(t, vision.inputs[0].Images, 1)
		require.Len(t, res.Attempts, 2)
		assert.Contains(t, res.Attempts[0].Error, "boom")
		assert.False(t, res.Attempts[0].Skipped)
	})

	t.Run("passport skips the quality assessment", func(t *testing.T) {
		id := &fakeBackend{name: "id", fields: fieldsAt(90)}
		r := NewRouter(
			WithIDDocument(id),
			WithAssessor(fixedAssessor{err: errors.New("should not be called")}),
			WithLogger(quietLogger()),
		)
		res, err := r.Extract(context.Background(), []byte("x"), "image/jpeg", DocPassport)
		require.NoError(t, err)
		assert.Empty(t, res.Quality)
	})
}

func TestRouter_ClampsBackendConfidences(t *testing.T) {
	id := &fakeBackend{name: "id", fields: []model.ExtractedField{
		{Label: "Passport Number", Value: "X1", Confidence: 150},
		{Label: "Surname", Value: "SMITH", Confidence: -20, Type: model.FieldTypeText},
	}}
	r, _ := newTestRouter(QualityHigh, nil, id, nil)

	res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocPassport)
	require.NoError(t, err)
	require.Len(t, res.Fields, 2)
	assert.Equal(t, 100, res.Fields[0].Confidence)
	assert.Equal(t, model.FieldTypeText, res.Fields[0].Type)
	assert.Equal(t, 0, res.Fields[1].Confidence)
	assert.Equal(t, 50, res.OverallConfidence)
	assert.Equal(t, 150, id.fields[0].Confidence, "backend data is not modified")
}

func TestRouter_QualityRouting(t *testing.T) {
	tests := []struct {
		name       string
		quality    Quality
		structured []model.ExtractedField
		wantMethod Method
		wantCalls  [2]int // structured, vision
	}{
		{"high uses structured", QualityHigh, fieldsAt(40), MethodStructuredLayout, [2]int{1, 0}},
		{"medium accepts confident structured", QualityMedium, fieldsAt(80, 70), MethodStructuredLayout, [2]int{1, 0}},
		{"medium falls back below bar", QualityMedium, fieldsAt(60, 60), MethodVisionModel, [2]int{1, 1}},
		{"low goes straight to vision", QualityLow, fieldsAt(99), MethodVisionModel, [2]int{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			structured := &fakeBackend{name: "structured", fields: tt.structured}
			vision := &fakeBackend{name: "vision", fields: fieldsAt(75)}
			r, _ := newTestRouter(tt.quality, structured, nil, vision)

			res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocVisaForm)
			require.NoError(t, err)
			assert.Equal(t, tt.wantMethod, res.Method)
			assert.Equal(t, tt.quality, res.Quality)
			assert.Equal(t, 2, res.PageCount)
			assert.Equal(t, tt.wantCalls[0], structured.calls)
			assert.Equal(t, tt.wantCalls[1], vision.calls)
		})
	}
}

func TestRouter_NoStructuredBackendUsesVision(t *testing.T) {
	vision := &fakeBackend{name: "vision", fields: fieldsAt(75)}
	r, _ := newTestRouter(QualityHigh, nil, nil, vision)

	res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocSupportingDoc)
	require.NoError(t, err)
	assert.Equal(t, MethodVisionModel, res.Method)
}

func TestRouter_HighQualityFallsBackOnError(t *testing.T) {
	structured := &fakeBackend{name: "structured", err: errors.New("layout service crashed")}
	vision := &fakeBackend{name: "vision", fields: fieldsAt(65)}
	r, _ := newTestRouter(QualityHigh, structured, nil, vision)

	res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocVisaForm)
	require.NoError(t, err)
	assert.Equal(t, MethodVisionModel, res.Method)
	assert.Len(t, res.Attempts, 2)
}

func TestRouter_UnavailableBackendIsSkipped(t *testing.T) {
	id := &fakeBackend{name: "id", err: ErrBackendUnavailable}
	vision := &fakeBackend{name: "vision", fields: fieldsAt(88)}
	r, _ := newTestRouter(QualityLow, nil, id, vision)

	res, err := r.Extract(context.Background(), []byte("img"), "image/png", DocPassport)
	require.NoError(t, err)
	require.Len(t, res.Attempts, 2)
	assert.True(t, res.Attempts[0].Skipped)
	assert.True(t, res.Attempts[1].Accepted)
}

func TestRouter_KeepsRejectedResultWhenLaterStepsFail(t *testing.T) {
	structured := &fakeBackend{name: "structured", fields: fieldsAt(50)}
	vision := &fakeBackend{name: "vision", err: errors.New("vision down")}
	r, _ := newTestRouter(QualityMedium, structured, nil, vision)

	res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocVisaForm)
	require.NoError(t, err)
	assert.Equal(t, MethodStructuredLayout, res.Method)
	assert.Equal(t, 50, res.OverallConfidence)
	require.Len(t, res.Attempts, 2)
	assert.False(t, res.Attempts[0].Accepted)
}

func TestRouter_Exhausted(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	id := &fakeBackend{name: "id", err: errors.New("id failed")}
	vision := &fakeBackend{name: "vision", err: ErrBackendUnavailable}
	r, _ := newTestRouter(QualityLow, nil, id, vision)
	r.metrics = m

	res, err := r.Extract(context.Background(), []byte("img"), "image/png", DocPassport)
	assert.Nil(t, res)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionExhausted))

	var ex *ExhaustedError
	require.True(t, errors.As(err, &ex))
	assert.Equal(t, DocPassport, ex.DocumentType)
	assert.Len(t, ex.Attempts, 2)
	assert.Contains(t, err.Error(), "id failed")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ExtractionAttempts.WithLabelValues("vision", "skipped")))
}

func TestRouter_NoBackendsConfigured(t *testing.T) {
	r := NewRouter(WithLogger(quietLogger()), WithAssessor(fixedAssessor{a: Assessment{Quality: QualityLow}}))
	_, err := r.Extract(context.Background(), []byte("x"), "image/png", DocVisaForm)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionExhausted)
	assert.Contains(t, err.Error(), "no backend configured")
}

func TestRouter_RasterizationFailureRecordsAttempt(t *testing.T) {
	vision := &fakeBackend{name: "vision", fields: fieldsAt(90)}
	r, raster := newTestRouter(QualityLow, nil, nil, vision)
	raster.err = errors.New("no images")

	_, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocVisaForm)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrExtractionExhausted)
	assert.Equal(t, 0, vision.calls)
}

func TestRouter_AssessmentFailureTreatedAsLow(t *testing.T) {
	structured := &fakeBackend{name: "structured", fields: fieldsAt(90)}
	vision := &fakeBackend{name: "vision", fields: fieldsAt(70)}
	r := NewRouter(
		WithStructured(structured),
		WithVision(vision),
		WithAssessor(fixedAssessor{err: errors.New("corrupt")}),
		WithRasterizer(&fakeRasterizer{images: []Image{{Page: 1}}}),
		WithLogger(quietLogger()),
	)

	res, err := r.Extract(context.Background(), []byte("%PDF"), "application/pdf", DocVisaForm)
	require.NoError(t, err)
	assert.Equal(t, QualityLow, res.Quality)
	assert.Equal(t, MethodVisionModel, res.Method)
	assert.Equal(t, 0, structured.calls)
}

func TestRouter_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	id := &fakeBackend{name: "id", fields: fieldsAt(90)}
	r, _ := newTestRouter(QualityHigh, nil, id, nil)

	_, err := r.Extract(ctx, []byte("x"), "image/png", DocPassport)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, id.calls)
}

func TestRouter_BackendReturnsContextError(t *testing.T) {
	id := &fakeBackend{name: "id", err: context.DeadlineExceeded}
	vision := &fakeBackend{name: "vision", fields: fieldsAt(90)}
	r, _ := newTestRouter(QualityHigh, nil, id, vision)

	_, err := r.Extract(context.Background(), []byte("x"), "image/png", DocPassport)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, vision.calls)
}

func TestRouter_UnknownDocumentType(t *testing.T) {
	r := NewRouter(WithLogger(quietLogger()))
	_, err := r.Extract(context.Background(), []byte("x"), "", DocumentType("driver_license"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown document type")
}

func TestOverallConfidence(t *testing.T) {
	assert.Equal(t, 0, OverallConfidence(nil))
	assert.Equal(t, 85, OverallConfidence(fieldsAt(90, 80)))
	assert.Equal(t, 84, OverallConfidence(fieldsAt(90, 80, 83)))
	assert.Equal(t, 50, OverallConfidence(fieldsAt(150, -50)), "confidences are clamped")
}

func TestParseDocumentType(t *testing.T) {
	for in, want := range map[string]DocumentType{
		"passport":       DocPassport,
		" Visa_Form ":    DocVisaForm,
		"supporting_doc": DocSupportingDoc,
	} {
		got, err := ParseDocumentType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := ParseDocumentType("invoice")
	assert.Error(t, err)
}
