// Package semantic calls the optional external validator that looks for
// contradictions across an application's fields.
package semantic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/a3tai/mcp-visa-intake/internal/model"
	"github.com/a3tai/mcp-visa-intake/internal/remote"
)

// ErrNotConfigured is returned when no validator URL is set
var ErrNotConfigured = errors.New("semantic validator not configured")

// Contradiction is a set of fields whose values disagree
type Contradiction struct {
	Fields      []string `json:"fields"`
	Description string   `json:"description"`
}

// Result is the validator's answer
type Result struct {
	Issues         []model.ValidationIssue `json:"issues"`
	Contradictions []Contradiction         `json:"contradictions"`
}

// AllIssues returns the issues with each contradiction appended as a warning on its first field
func (r Result) AllIssues() []model.ValidationIssue {
	out := make([]model.ValidationIssue, 0, len(r.Issues)+len(r.Contradictions))
	out = append(out, r.Issues...)
	for _, c := range r.Contradictions {
		field := ""
		if len(c.Fields) > 0 {
			field = c.Fields[0]
		}
		msg := c.Description
		if len(c.Fields) > 1 {
			msg = fmt.Sprintf("%s (fields: %s)", c.Description, strings.Join(c.Fields, ", "))
		}
		out = append(out, model.ValidationIssue{Field: field, Message: msg, Severity: model.SeverityWarning})
	}
	return out
}

// Validator checks an application for semantic problems
type Validator interface {
	Validate(ctx context.Context, formData map[string]string, destination string) (*Result, error)
}

var responseSchema = remote.MustCompileSchema("semantic-response.json", map[string]any{
	"type": "object",
	"properties": map[string]any{
		"issues": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"field", "message", "severity"},
				"properties": map[string]any{
					"field":       map[string]any{"type": "string"},
					"message":     map[string]any{"type": "string"},
					"severity":    map[string]any{"type": "string", "enum": []string{"error", "warning", "info"}},
					"suggestion":  map[string]any{"type": "string"},
					"autoFixable": map[string]any{"type": "boolean"},
				},
			},
		},
		"contradictions": map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":     "object",
				"required": []string{"fields", "description"},
				"properties": map[string]any{
					"fields":      map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"description": map[string]any{"type": "string"},
				},
			},
		},
	},
})

type request struct {
	FormData           map[string]string `json:"formData"`
	DestinationCountry string            `json:"destinationCountry,omitempty"`
}

// Client is the HTTP Validator
type Client struct {
	remote *remote.Client
	logger *slog.Logger
}

// NewClient wraps a remote client. A nil remote client yields ErrNotConfigured on every call.
func NewClient(rc *remote.Client, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{remote: rc, logger: logger}
}

// Validate implements Validator
func (c *Client) Validate(ctx context.Context, formData map[string]string, destination string) (*Result, error) {
	if c.remote == nil || c.remote.URL == "" {
		return nil, ErrNotConfigured
	}

	raw, err := c.remote.Post(ctx, request{FormData: formData, DestinationCountry: destination})
	if err != nil {
		return nil, fmt.Errorf("semantic validation: %w", err)
	}
	if err := responseSchema.Validate(raw); err != nil {
		return nil, fmt.Errorf("semantic validation: %w", err)
	}

	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("semantic validation: decode response: %w", err)
	}
	c.logger.Debug("semantic validation complete",
		"issues", len(res.Issues), "contradictions", len(res.Contradictions))
	return &res, nil
}

// Check runs v and returns its issues. Any failure is logged and yields no issues;
// a nil validator is allowed.
func Check(ctx context.Context, v Validator, formData map[string]string, destination string, logger *slog.Logger) []model.ValidationIssue {
	if v == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	res, err := v.Validate(ctx, formData, destination)
	if err != nil {
		if errors.Is(err, ErrNotConfigured) {
			return nil
		}
		logger.Warn("semantic validator failed, continuing without it", "error", err)
		return nil
	}
	return res.AllIssues()
}
