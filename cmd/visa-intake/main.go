package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/a3tai/mcp-visa-intake/internal/config"
	"github.com/a3tai/mcp-visa-intake/internal/extraction"
	"github.com/a3tai/mcp-visa-intake/internal/formfill"
	"github.com/a3tai/mcp-visa-intake/internal/matcher"
	"github.com/a3tai/mcp-visa-intake/internal/mcp"
	"github.com/a3tai/mcp-visa-intake/internal/metrics"
	"github.com/a3tai/mcp-visa-intake/internal/pipeline"
	"github.com/a3tai/mcp-visa-intake/internal/remote"
	"github.com/a3tai/mcp-visa-intake/internal/review"
	"github.com/a3tai/mcp-visa-intake/internal/rules"
	"github.com/a3tai/mcp-visa-intake/internal/semantic"
)

var (
	version   = "dev"     // set by build flags
	buildTime = "unknown" // set by build flags
	gitCommit = "unknown" // set by build flags
)

// newLogger builds the process logger. In stdio mode stdout carries the MCP
// protocol, so logs go to stderr and only in debug.
func newLogger(cfg *config.Config, stderr io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}

	out := stderr
	if cfg.IsStdioMode() && !cfg.IsDebug() {
		out = io.Discard
	}

	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.IsDebug()}
	if cfg.IsServerMode() {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// buildServices wires the extraction backends, rule set, form filler and
// pipeline from the configuration.
func buildServices(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry) (mcp.Services, error) {
	m := metrics.New(reg)

	routerOpts := []extraction.Option{
		extraction.WithAssessor(extraction.PDFQualityAssessor{}),
		extraction.WithRasterizer(extraction.PDFRasterizer{}),
		extraction.WithMediumAcceptConfidence(cfg.MediumConfidence),
		extraction.WithLogger(logger),
		extraction.WithMetrics(m),
	}
	backends := []struct {
		name string
		url  string
		opt  func(extraction.Backend) extraction.Option
	}{
		{"structured", cfg.StructuredURL, extraction.WithStructured},
		{"id-document", cfg.IDDocumentURL, extraction.WithIDDocument},
		{"vision", cfg.VisionURL, extraction.WithVision},
	}
	for _, b := range backends {
		if b.url == "" {
			continue
		}
		client := remote.NewClient(b.url, cfg.APIKey, cfg.BackendTimeout, logger)
		routerOpts = append(routerOpts, b.opt(extraction.NewHTTPBackend(b.name, client)))
	}
	router := extraction.NewRouter(routerOpts...)

	ruleSet := rules.DefaultRules()
	if cfg.RulesFile != "" {
		custom, err := rules.LoadRuleFile(cfg.RulesFile)
		if err != nil {
			return mcp.Services{}, fmt.Errorf("load rules: %w", err)
		}
		var replaced []string
		ruleSet, replaced = rules.Override(ruleSet, custom)
		for _, name := range replaced {
			logger.Info("custom rule replaces built-in rule", "rule", name)
		}
		logger.Info("loaded custom rules", "file", cfg.RulesFile, "count", len(custom))
	}
	engine := rules.NewEngine(ruleSet...)

	labels := matcher.New(matcher.WithLogger(logger))
	filler := formfill.NewFiller(formfill.NewPDFCPUEngine(logger),
		formfill.WithSuccessRatio(cfg.FillSuccessRatio),
		formfill.WithLogger(logger),
		formfill.WithMetrics(m),
	)
	policy := review.DefaultPolicy()

	opts := []pipeline.Option{
		pipeline.WithMatcher(labels),
		pipeline.WithRules(engine),
		pipeline.WithFiller(filler),
		pipeline.WithPolicy(policy),
		pipeline.WithDefaultCountry(cfg.DestinationCountry),
		pipeline.WithLogger(logger),
		pipeline.WithMetrics(m),
	}
	if cfg.SemanticURL != "" {
		client := remote.NewClient(cfg.SemanticURL, cfg.APIKey, cfg.BackendTimeout, logger)
		opts = append(opts, pipeline.WithSemantic(semantic.NewClient(client, logger)))
	}

	return mcp.Services{
		Processor: pipeline.New(router, opts...),
		Extractor: router,
		Matcher:   labels,
		Rules:     engine,
		Filler:    filler,
		Policy:    policy,
		Gatherer:  reg,
	}, nil
}

func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func run(ctx context.Context) error {
	cfg, err := config.LoadFromFlags()
	if errors.Is(err, config.ErrVersionRequested) {
		printVersion(os.Stdout)
		return nil
	}
	if err != nil {
		return err
	}
	if version != "dev" {
		cfg.Version = version
	}

	logger := newLogger(cfg, os.Stderr)
	slog.SetDefault(logger)
	logger.Debug("starting", "config", cfg.String())
	if !cfg.HasBackends() {
		logger.Warn("no extraction backend configured; document tools will fail until one is set")
	}

	svc, err := buildServices(cfg, logger, newRegistry())
	if err != nil {
		return err
	}
	server, err := mcp.NewServer(cfg, svc, logger)
	if err != nil {
		return fmt.Errorf("create MCP server: %w", err)
	}

	if err := server.Run(ctx); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "visa-intake: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "MCP Visa Intake\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
