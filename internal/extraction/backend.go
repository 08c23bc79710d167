package extraction

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/a3tai/mcp-visa-intake/internal/model"
	"github.com/a3tai/mcp-visa-intake/internal/remote"
)

// fieldsSchema is the wire contract every extraction service must satisfy
var fieldsSchema = remote.MustCompileSchema("extraction-response.json", map[string]any{
	"type":     "object",
	"required": []string{"fields"},
	"properties": map[string]any{
		"fields": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"label", "value", "confidence"},
				"properties": map[string]any{
					"label":      map[string]any{"type": "string", "minLength": 1},
					"value":      map[string]any{"type": "string"},
					"confidence": map[string]any{"type": "number"},
					"type": map[string]any{
						"type": "string",
						"enum": []string{"text", "date", "number", "checkbox", "signature"},
					},
					"boundingBox": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "number"},
					},
				},
			},
		},
	},
})

type extractRequest struct {
	DocumentType DocumentType `json:"documentType"`
	ContentType  string       `json:"contentType,omitempty"`
	Document     string       `json:"document,omitempty"`
	Images       []wireImage  `json:"images,omitempty"`
}

type wireImage struct {
	Page        int    `json:"page"`
	ContentType string `json:"contentType"`
	Data        string `json:"data"`
}

type wireField struct {
	Label       string    `json:"label"`
	Value       string    `json:"value"`
	Confidence  float64   `json:"confidence"`
	Type        string    `json:"type"`
	BoundingBox []float64 `json:"boundingBox"`
}

type extractResponse struct {
	Fields []wireField `json:"fields"`
}

// HTTPBackend calls an external extraction service speaking the JSON field contract.
// A nil client or empty URL makes the backend report ErrBackendUnavailable.
type HTTPBackend struct {
	name   string
	client *remote.Client
}

// NewHTTPBackend wraps client under name
func NewHTTPBackend(name string, client *remote.Client) *HTTPBackend {
	return &HTTPBackend{name: name, client: client}
}

// Name implements Backend
func (b *HTTPBackend) Name() string { return b.name }

// Extract implements Backend
func (b *HTTPBackend) Extract(ctx context.Context, in Input) ([]model.ExtractedField, error) {
	if b.client == nil || b.client.URL == "" {
		return nil, ErrBackendUnavailable
	}

	req := extractRequest{DocumentType: in.DocumentType, ContentType: in.ContentType}
	if len(in.Images) > 0 {
		for _, img := range in.Images {
			req.Images = append(req.Images, wireImage{
				Page:        img.Page,
				ContentType: img.ContentType,
				Data:        base64.StdEncoding.EncodeToString(img.Data),
			})
		}
	} else {
		req.Document = base64.StdEncoding.EncodeToString(in.Data)
	}

	raw, err := b.client.Post(ctx, req)
	if err != nil {
		if remote.IsUnavailable(err) {
			return nil, fmt.Errorf("%w: %s: %v", ErrBackendUnavailable, b.name, err)
		}
		return nil, &BackendError{Backend: b.name, Err: err}
	}
	if err := fieldsSchema.Validate(raw); err != nil {
		return nil, &BackendError{Backend: b.name, Err: err}
	}

	var resp extractResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, &BackendError{Backend: b.name, Err: fmt.Errorf("decode response: %w", err)}
	}

	scale := confidenceScale(resp.Fields)
	fields := make([]model.ExtractedField, 0, len(resp.Fields))
	for _, f := range resp.Fields {
		conf := f.Confidence * scale
		fields = append(fields, model.ExtractedField{
			Label:       f.Label,
			Value:       f.Value,
			Confidence:  int(conf + 0.5),
			Type:        model.FieldType(f.Type),
			BoundingBox: f.BoundingBox,
		}.Normalized())
	}
	return fields, nil
}

// confidenceScale is 100 when a response reports fractions in 0..1 and 1 when it
// reports percentages. Fractions are assumed only if every value is at most 1 and
// at least one has a fractional part, so an integer confidence of 1 stays 1.
func confidenceScale(fields []wireField) float64 {
	fractional := false
	for _, f := range fields {
		if f.Confidence > 1 {
			return 1
		}
		if f.Confidence != math.Trunc(f.Confidence) {
			fractional = true
		}
	}
	if fractional {
		return 100
	}
	return 1
}

// isUnavailable reports whether err should make the router skip a backend silently
func isUnavailable(err error) bool {
	return errors.Is(err, ErrBackendUnavailable)
}
