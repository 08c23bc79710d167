package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-visa-intake/internal/config"
	"github.com/a3tai/mcp-visa-intake/internal/rules"
)

func TestPrintVersion(t *testing.T) {
	oldVersion, oldBuildTime, oldGitCommit := version, buildTime, gitCommit
	defer func() { version, buildTime, gitCommit = oldVersion, oldBuildTime, oldGitCommit }()

	version = "1.2.3"
	buildTime = "2025-06-01_10:30:00"
	gitCommit = "abc123"

	var buf bytes.Buffer
	printVersion(&buf)

	for _, want := range []string{
		"MCP Visa Intake",
		"Version: 1.2.3",
		"Build Time: 2025-06-01_10:30:00",
		"Git Commit: abc123",
		"Built with:",
	} {
		assert.Contains(t, buf.String(), want)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name     string
		mode     string
		level    string
		wantLogs bool
	}{
		{"stdio is silent", config.ModeStdio, "info", false},
		{"stdio debug logs to stderr", config.ModeStdio, "debug", true},
		{"server logs", config.ModeServer, "info", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			cfg.Mode = tt.mode
			cfg.LogLevel = tt.level

			var buf bytes.Buffer
			newLogger(cfg, &buf).Info("hello")
			assert.Equal(t, tt.wantLogs, buf.Len() > 0)
		})
	}
}

func TestNewLogger_ServerModeIsJSON(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeServer
	cfg.LogLevel = "warn"

	var buf bytes.Buffer
	logger := newLogger(cfg, &buf)
	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept", "k", "v")
	assert.Contains(t, buf.String(), `"msg":"kept"`)
}

func TestBuildServices(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DocumentDirectory = t.TempDir()
	cfg.VisionURL = "http://vision.invalid/extract"
	cfg.SemanticURL = "http://semantic.invalid/validate"

	reg := newRegistry()
	svc, err := buildServices(cfg, newLogger(cfg, &bytes.Buffer{}), reg)
	require.NoError(t, err)

	assert.NotNil(t, svc.Processor)
	assert.NotNil(t, svc.Extractor)
	assert.NotNil(t, svc.Matcher)
	assert.NotNil(t, svc.Rules)
	assert.NotNil(t, svc.Filler)
	assert.Equal(t, 90, svc.Policy.AutoApproveConfidence)
	assert.Same(t, reg, svc.Gatherer)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestBuildServices_CustomRules(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DocumentDirectory = t.TempDir()

	path := filepath.Join(cfg.DocumentDirectory, "rules.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rules:\n  - priority: 1\n"), 0o600))
	cfg.RulesFile = path

	_, err := buildServices(cfg, newLogger(cfg, &bytes.Buffer{}), newRegistry())
	assert.Error(t, err)
}

func TestBuildServices_CustomRuleReplacesBuiltIn(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DocumentDirectory = t.TempDir()

	path := filepath.Join(cfg.DocumentDirectory, "rules.yaml")
	doc := "rules:\n  - name: passport-expired\n    expression: 'false'\n    event: {field: passport.expiryDate, message: off, severity: error}\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))
	cfg.RulesFile = path

	svc, err := buildServices(cfg, newLogger(cfg, &bytes.Buffer{}), newRegistry())
	require.NoError(t, err)
	assert.Len(t, svc.Rules.Rules(), len(rules.DefaultRules()))
}
