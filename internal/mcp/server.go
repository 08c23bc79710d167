package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/a3tai/mcp-visa-intake/internal/config"
	"github.com/a3tai/mcp-visa-intake/internal/descriptions"
	"github.com/a3tai/mcp-visa-intake/internal/formfill"
	"github.com/a3tai/mcp-visa-intake/internal/matcher"
	"github.com/a3tai/mcp-visa-intake/internal/pipeline"
	"github.com/a3tai/mcp-visa-intake/internal/review"
	"github.com/a3tai/mcp-visa-intake/internal/rules"
	"github.com/a3tai/mcp-visa-intake/internal/security"
)

// Services are the pipeline components exposed as tools
type Services struct {
	Processor *pipeline.Processor
	Extractor pipeline.Extractor
	Matcher   *matcher.Matcher
	Rules     *rules.Engine
	Filler    *formfill.Filler
	Policy    review.Policy
	// Gatherer backs /metrics in server mode; nil disables the endpoint
	Gatherer prometheus.Gatherer
}

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	services  Services
	sandbox   *security.Sandbox
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc Services, logger *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if svc.Processor == nil || svc.Extractor == nil {
		return nil, errors.New("processor and extractor are required")
	}
	if svc.Matcher == nil || svc.Rules == nil || svc.Filler == nil {
		return nil, errors.New("matcher, rules and filler are required")
	}
	if svc.Policy == (review.Policy{}) {
		svc.Policy = review.DefaultPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	sandbox, err := security.NewSandbox(cfg.DocumentDirectory, cfg.MaxFileSize)
	if err != nil {
		return nil, fmt.Errorf("document directory: %w", err)
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		services:  svc,
		sandbox:   sandbox,
		mcpServer: mcpServer,
		logger:    logger,
	}
	s.registerTools()
	return s, nil
}

// toolInfo names a registered tool for visa_server_info
type toolInfo struct {
	Name    string
	Summary string
}

var toolCatalog = []toolInfo{
	{"visa_process_document", "extract, match, validate and route a document; optionally fill a form"},
	{"visa_process_batch", "process several documents of one type concurrently"},
	{"visa_extract_document", "run extraction routing only"},
	{"visa_match_label", "map a label onto the canonical schema"},
	{"visa_country_rules", "destination country policy"},
	{"visa_evaluate_application", "validate a known profile and compute a review decision"},
	{"visa_validate_form", "pre-flight checks for a form template"},
	{"visa_inspect_form", "list a form template's fields"},
	{"visa_fill_form", "fill a form template from a profile"},
	{"visa_server_info", "this summary"},
}

func (s *Server) registerTools() {
	docTypes := mcp.Enum("visa_form", "passport", "supporting_doc")

	s.mcpServer.AddTool(mcp.NewTool("visa_process_document",
		mcp.WithDescription(descriptions.ProcessDocumentDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path, relative to the document directory")),
		mcp.WithString("document_type", mcp.Required(), docTypes, mcp.Description("Kind of document")),
		mcp.WithString("destination", mcp.Description("Destination country, ISO alpha-3")),
		mcp.WithString("travel_date", mcp.Description("Planned arrival date")),
		mcp.WithString("departure_date", mcp.Description("Planned departure date")),
		mcp.WithArray("family_members", mcp.Description("Accompanying family: [{\"relationship\":\"spouse\",\"name\":\"...\"}]")),
		mcp.WithString("fill_template", mcp.Description("Form template to fill after review")),
		mcp.WithObject("field_map", mcp.Description("Canonical path to form field name")),
		mcp.WithString("output_path", mcp.Description("Where to write the filled form")),
		mcp.WithBoolean("flatten", mcp.Description("Lock form fields after filling")),
		mcp.WithBoolean("force", mcp.Description("Fill even when a full review is required")),
	), s.handleProcessDocument)

	s.mcpServer.AddTool(mcp.NewTool("visa_process_batch",
		mcp.WithDescription(descriptions.ProcessBatchDescription),
		mcp.WithArray("paths", mcp.Required(), mcp.Description("Document paths, relative to the document directory")),
		mcp.WithString("document_type", mcp.Required(), docTypes, mcp.Description("Kind of every document in the batch")),
		mcp.WithString("destination", mcp.Description("Destination country, ISO alpha-3")),
		mcp.WithString("travel_date", mcp.Description("Planned arrival date")),
		mcp.WithString("departure_date", mcp.Description("Planned departure date")),
	), s.handleProcessBatch)

	s.mcpServer.AddTool(mcp.NewTool("visa_extract_document",
		mcp.WithDescription(descriptions.ExtractDocumentDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Document path, relative to the document directory")),
		mcp.WithString("document_type", mcp.Required(), docTypes, mcp.Description("Kind of document")),
	), s.handleExtractDocument)

	s.mcpServer.AddTool(mcp.NewTool("visa_match_label",
		mcp.WithDescription(descriptions.MatchLabelDescription),
		mcp.WithString("label", mcp.Required(), mcp.Description("Label as printed on the document")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of suggestions (default 5)")),
	), s.handleMatchLabel)

	s.mcpServer.AddTool(mcp.NewTool("visa_country_rules",
		mcp.WithDescription(descriptions.CountryRulesDescription),
		mcp.WithString("country", mcp.Required(), mcp.Description("ISO alpha-3 or alpha-2 country code")),
	), s.handleCountryRules)

	s.mcpServer.AddTool(mcp.NewTool("visa_evaluate_application",
		mcp.WithDescription(descriptions.EvaluateApplicationDescription),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Canonical path to value")),
		mcp.WithString("destination", mcp.Description("Destination country, ISO alpha-3")),
		mcp.WithString("travel_date", mcp.Description("Planned arrival date")),
		mcp.WithString("departure_date", mcp.Description("Planned departure date")),
		mcp.WithArray("family_members", mcp.Description("Accompanying family: [{\"relationship\":\"spouse\",\"name\":\"...\"}]")),
	), s.handleEvaluateApplication)

	s.mcpServer.AddTool(mcp.NewTool("visa_validate_form",
		mcp.WithDescription(descriptions.ValidateFormDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Template path, relative to the document directory")),
	), s.handleValidateForm)

	s.mcpServer.AddTool(mcp.NewTool("visa_inspect_form",
		mcp.WithDescription(descriptions.InspectFormDescription),
		mcp.WithString("path", mcp.Required(), mcp.Description("Template path, relative to the document directory")),
	), s.handleInspectForm)

	s.mcpServer.AddTool(mcp.NewTool("visa_fill_form",
		mcp.WithDescription(descriptions.FillFormDescription),
		mcp.WithString("template", mcp.Required(), mcp.Description("Template path, relative to the document directory")),
		mcp.WithObject("fields", mcp.Required(), mcp.Description("Canonical path to value")),
		mcp.WithObject("field_map", mcp.Required(), mcp.Description("Canonical path to form field name")),
		mcp.WithString("output_path", mcp.Required(), mcp.Description("Where to write the filled form")),
		mcp.WithString("destination", mcp.Description("Destination country, ISO alpha-3")),
		mcp.WithBoolean("flatten", mcp.Description("Lock form fields after filling")),
	), s.handleFillForm)

	s.mcpServer.AddTool(mcp.NewTool("visa_server_info",
		mcp.WithDescription(descriptions.ServerInfoDescription),
	), s.handleServerInfo)
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

func (s *Server) runStdioMode(ctx context.Context) error {
	s.logger.Debug("starting MCP server in stdio mode", "dir", s.sandbox.Root())

	stdio := server.NewStdioServer(s.mcpServer)
	if err := stdio.Listen(ctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}
