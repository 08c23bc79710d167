package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/a3tai/mcp-visa-intake/internal/country"
	"github.com/a3tai/mcp-visa-intake/internal/extraction"
	"github.com/a3tai/mcp-visa-intake/internal/formfill"
	"github.com/a3tai/mcp-visa-intake/internal/matcher"
	"github.com/a3tai/mcp-visa-intake/internal/model"
	"github.com/a3tai/mcp-visa-intake/internal/pipeline"
	"github.com/a3tai/mcp-visa-intake/internal/rules"
)

const defaultSuggestions = 5

type processResult struct {
	*pipeline.Report
	Output string `json:"output,omitempty"`
}

type evaluateResult struct {
	Validation rules.Result         `json:"validation"`
	Decision   model.ReviewDecision `json:"decision"`
}

type labelResult struct {
	Label       string              `json:"label"`
	Matched     bool                `json:"matched"`
	Match       *matcher.Candidate  `json:"match,omitempty"`
	Suggestions []matcher.Candidate `json:"suggestions"`
}

type fillResult struct {
	*formfill.FillResult
	Output string `json:"output,omitempty"`
}

func (s *Server) handleProcessDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docType, err := extraction.ParseDocumentType(request.GetString("document_type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.sandbox.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	family, err := familyMembersArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	req := pipeline.Request{
		ID:                 uuid.NewString(),
		Data:               data,
		ContentType:        detectContentType(path, data),
		DocumentType:       docType,
		DestinationCountry: s.destination(request),
		TravelDate:         request.GetString("travel_date", ""),
		DepartureDate:      request.GetString("departure_date", ""),
		FamilyMembers:      family,
	}

	template := request.GetString("fill_template", "")
	if template != "" {
		tpl, err := s.sandbox.ReadFile(template)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		fieldMap, err := canonicalArg(args, "field_map")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(fieldMap) == 0 {
			return mcp.NewToolResultError("field_map is required when fill_template is set"), nil
		}
		req.Fill = &pipeline.FillRequest{
			Template: tpl,
			Fields:   fieldMap,
			Flatten:  request.GetBool("flatten", false),
			Force:    request.GetBool("force", false),
		}
	}

	rep, err := s.services.Processor.Process(ctx, req)
	if err != nil {
		s.logger.Warn("document processing failed", "path", path, "error", err)
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := processResult{Report: rep}
	if rep.Fill != nil && rep.Fill.Success {
		target := request.GetString("output_path", "")
		if target == "" {
			target = filledName(template)
		}
		written, err := s.sandbox.WriteFile(target, rep.Fill.Data)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out.Output = written
	}
	return jsonResult(out)
}

func (s *Server) handleProcessBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	paths, err := stringsArg(request.GetArguments(), "paths")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(paths) == 0 {
		return mcp.NewToolResultError("paths must name at least one document"), nil
	}
	docType, err := extraction.ParseDocumentType(request.GetString("document_type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	dest := s.destination(request)
	reqs := make([]pipeline.Request, 0, len(paths))
	for _, path := range paths {
		data, err := s.sandbox.ReadFile(path)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("%s: %v", path, err)), nil
		}
		reqs = append(reqs, pipeline.Request{
			ID:                 path,
			Data:               data,
			ContentType:        detectContentType(path, data),
			DocumentType:       docType,
			DestinationCountry: dest,
			TravelDate:         request.GetString("travel_date", ""),
			DepartureDate:      request.GetString("departure_date", ""),
		})
	}

	res, err := s.services.Processor.ProcessBatch(ctx, reqs, s.config.BatchConcurrency)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleExtractDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	docType, err := extraction.ParseDocumentType(request.GetString("document_type", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.sandbox.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.services.Extractor.Extract(ctx, data, detectContentType(path, data), docType)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res)
}

func (s *Server) handleMatchLabel(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	label, err := request.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := request.GetInt("limit", defaultSuggestions)

	res := labelResult{
		Label:       label,
		Suggestions: s.services.Matcher.Suggest(label, limit),
	}
	if cand, ok := s.services.Matcher.MatchLabel(label); ok {
		res.Matched = true
		res.Match = &cand
	}
	return jsonResult(res)
}

func (s *Server) handleCountryRules(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("country")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == 2 {
		if alpha3, ok := country.ByAlpha2(code); ok {
			code = alpha3
		}
	}
	return jsonResult(country.Lookup(code))
}

func (s *Server) handleEvaluateApplication(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := request.GetArguments()
	fields, err := canonicalArg(args, "fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(fields) == 0 {
		return mcp.NewToolResultError("fields must name at least one canonical path"), nil
	}
	family, err := familyMembersArg(args)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	app := rules.Application{
		Fields:             fields,
		FamilyMembers:      family,
		DestinationCountry: s.destination(request),
		TravelDate:         request.GetString("travel_date", ""),
		DepartureDate:      request.GetString("departure_date", ""),
	}
	res := s.services.Rules.Evaluate(rules.AssembleFacts(app, time.Now()))

	// supplied values are taken at full confidence
	matches := make([]model.FieldMatchResult, 0, len(fields))
	for _, p := range model.AllCanonicalPaths() {
		v, ok := fields[p]
		if !ok {
			continue
		}
		matches = append(matches, model.FieldMatchResult{
			Field:      model.ExtractedField{Label: string(p), Value: v, Confidence: 100, Type: model.FieldTypeText},
			Path:       p,
			Confidence: 100,
		})
	}

	return jsonResult(evaluateResult{
		Validation: res,
		Decision:   s.services.Policy.Route(matches, res.All(), nil),
	})
}

func (s *Server) handleValidateForm(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.sandbox.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.services.Filler.Validate(data))
}

func (s *Server) handleInspectForm(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := s.sandbox.ReadFile(path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	info, err := s.services.Filler.Inspect(data)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("cannot read form %s: %v", path, err)), nil
	}
	return jsonResult(info)
}

func (s *Server) handleFillForm(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	template, err := request.RequireString("template")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	output, err := request.RequireString("output_path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	fields, err := canonicalArg(args, "fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldMap, err := canonicalArg(args, "field_map")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(fieldMap) == 0 {
		return mcp.NewToolResultError("field_map must map at least one canonical path"), nil
	}

	data, err := s.sandbox.ReadFile(template)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	populations := pipeline.Populations(fields, fieldMap, s.services.Matcher.Mappings())
	res, err := s.services.Filler.Fill(ctx, data, populations, formfill.Options{
		Flatten:            request.GetBool("flatten", false),
		DestinationCountry: s.destination(request),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	out := fillResult{FillResult: res}
	if res.Success {
		written, err := s.sandbox.WriteFile(output, res.Data)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		out.Output = written
	}
	return jsonResult(out)
}

func (s *Server) handleServerInfo(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(s.formatServerInfo()), nil
}

var documentExtensions = map[string]bool{
	".pdf": true, ".jpg": true, ".jpeg": true, ".png": true, ".tif": true, ".tiff": true,
}

func (s *Server) formatServerInfo() string {
	text := fmt.Sprintf("📋 %s v%s - Server Information\n", s.config.ServerName, s.config.Version)
	text += fmt.Sprintf("📁 Document Directory: %s\n", s.sandbox.Root())
	text += fmt.Sprintf("📏 Max File Size: %d MB\n", s.config.MaxFileSize/(1024*1024))
	if s.config.DestinationCountry != "" {
		text += fmt.Sprintf("🌍 Default Destination: %s\n", s.config.DestinationCountry)
	}

	text += "\n🔌 Extraction Backends:\n"
	for _, b := range []struct{ name, url string }{
		{"structured layout", s.config.StructuredURL},
		{"id document", s.config.IDDocumentURL},
		{"vision model", s.config.VisionURL},
		{"semantic validator", s.config.SemanticURL},
	} {
		status := "not configured"
		if b.url != "" {
			status = b.url
		}
		text += fmt.Sprintf("  • %s: %s\n", b.name, status)
	}

	docs := s.listDocuments()
	if len(docs) > 0 {
		text += fmt.Sprintf("\n📂 Documents (%d found):\n", len(docs))
		for i, name := range docs {
			if i >= 10 {
				text += fmt.Sprintf("   ... and %d more\n", len(docs)-10)
				break
			}
			text += fmt.Sprintf("   %d. %s\n", i+1, name)
		}
	} else {
		text += "\n📂 Documents: none in the document directory\n"
	}

	text += "\n🛠️  Available Tools:\n"
	for _, t := range toolCatalog {
		text += fmt.Sprintf("  • %s: %s\n", t.Name, t.Summary)
	}
	text += "\nTypical flow: visa_inspect_form on the destination template, then visa_process_document " +
		"with fill_template and field_map. Documents routed to full_review are not filled unless force is set.\n"
	return text
}

func (s *Server) listDocuments() []string {
	entries, err := os.ReadDir(s.sandbox.Root())
	if err != nil {
		s.logger.Debug("cannot list document directory", "error", err)
		return nil
	}
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !documentExtensions[strings.ToLower(filepath.Ext(e.Name()))] {
			continue
		}
		out = append(out, e.Name())
	}
	sort.Strings(out)
	return out
}

// destination prefers the request argument over the configured default
func (s *Server) destination(request mcp.CallToolRequest) string {
	if d := strings.TrimSpace(request.GetString("destination", "")); d != "" {
		return strings.ToUpper(d)
	}
	return s.config.DestinationCountry
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// detectContentType sniffs the bytes and falls back to the file extension
func detectContentType(path string, data []byte) string {
	ct := http.DetectContentType(data)
	if ct != "application/octet-stream" && !strings.HasPrefix(ct, "text/plain") {
		return strings.TrimSpace(strings.SplitN(ct, ";", 2)[0])
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(path))); byExt != "" {
		return strings.TrimSpace(strings.SplitN(byExt, ";", 2)[0])
	}
	return ct
}

func filledName(template string) string {
	base := strings.TrimSuffix(template, filepath.Ext(template))
	return base + "-filled.pdf"
}

// canonicalArg reads an object argument, or a JSON object encoded as a string,
// keyed by canonical path. Unknown paths are rejected.
func canonicalArg(args map[string]any, key string) (map[model.CanonicalPath]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return map[model.CanonicalPath]string{}, nil
	}

	var m map[string]any
	switch v := raw.(type) {
	case map[string]any:
		m = v
	case string:
		if strings.TrimSpace(v) == "" {
			return map[model.CanonicalPath]string{}, nil
		}
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("%s must be a JSON object: %w", key, err)
		}
	default:
		return nil, fmt.Errorf("%s must be an object", key)
	}

	out := make(map[model.CanonicalPath]string, len(m))
	for k, v := range m {
		p := model.CanonicalPath(k)
		if !model.IsCanonical(p) {
			return nil, fmt.Errorf("%s: %q is not a canonical field path", key, k)
		}
		switch val := v.(type) {
		case string:
			out[p] = val
		case nil:
			out[p] = ""
		default:
			out[p] = fmt.Sprint(val)
		}
	}
	return out, nil
}

func familyMembersArg(args map[string]any) ([]rules.FamilyMember, error) {
	raw, ok := args["family_members"]
	if !ok || raw == nil {
		return nil, nil
	}

	var data []byte
	switch v := raw.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return nil, nil
		}
		data = []byte(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("family_members: %w", err)
		}
		data = b
	}

	var out []rules.FamilyMember
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("family_members must be a list of {relationship, name}: %w", err)
	}
	return out, nil
}

// stringsArg reads a list of strings sent either as a JSON array or as a JSON-encoded string
func stringsArg(args map[string]any, key string) ([]string, error) {
	var raw []any
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case []any:
		raw = v
	case []string:
		return v, nil
	case string:
		if err := json.Unmarshal([]byte(v), &raw); err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
	default:
		return nil, fmt.Errorf("%s must be an array of strings", key)
	}

	out := make([]string, 0, len(raw))
	for _, item := range raw {
		s, ok := item.(string)
		if !ok || strings.TrimSpace(s) == "" {
			return nil, fmt.Errorf("%s must contain non-empty strings", key)
		}
		out = append(out, s)
	}
	return out, nil
}
