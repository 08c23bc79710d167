package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withArgs runs fn with fresh flag and viper state and the given command line
func withArgs(t *testing.T, args []string, fn func()) {
	t.Helper()
	original := os.Args
	t.Cleanup(func() {
		os.Args = original
		pflag.CommandLine = pflag.NewFlagSet(original[0], pflag.ExitOnError)
		viper.Reset()
	})

	os.Args = args
	pflag.CommandLine = pflag.NewFlagSet(args[0], pflag.ContinueOnError)
	viper.Reset()
	fn()
}

func TestLoadFromFlags_Defaults(t *testing.T) {
	dir := t.TempDir()
	withArgs(t, []string{"visa-intake", "--dir=" + dir}, func() {
		cfg, err := LoadFromFlags()
		require.NoError(t, err)

		assert.Equal(t, ModeStdio, cfg.Mode)
		assert.Equal(t, dir, cfg.DocumentDirectory)
		assert.Equal(t, DefaultBackendTimeout, cfg.BackendTimeout)
		assert.Equal(t, DefaultMediumConfidence, cfg.MediumConfidence)
		assert.InDelta(t, DefaultFillSuccessRatio, cfg.FillSuccessRatio, 1e-9)
		assert.Empty(t, cfg.DestinationCountry)
	})
}

func TestLoadFromFlags_Flags(t *testing.T) {
	dir := t.TempDir()
	withArgs(t, []string{
		"visa-intake",
		"--mode=server", "--host=0.0.0.0", "--port=9090", "--dir=" + dir,
		"--log-level=debug", "--vision-url=http://vision:9000/extract", "--api-key=k",
		"--backend-timeout=5s", "--medium-confidence=80", "--fill-ratio=0.75",
		"--batch-concurrency=2", "--destination=are",
	}, func() {
		cfg, err := LoadFromFlags()
		require.NoError(t, err)

		assert.Equal(t, ModeServer, cfg.Mode)
		assert.Equal(t, "0.0.0.0:9090", cfg.Address())
		assert.True(t, cfg.IsDebug())
		assert.Equal(t, "http://vision:9000/extract", cfg.VisionURL)
		assert.Equal(t, "k", cfg.APIKey)
		assert.Equal(t, 5*time.Second, cfg.BackendTimeout)
		assert.Equal(t, 80, cfg.MediumConfidence)
		assert.InDelta(t, 0.75, cfg.FillSuccessRatio, 1e-9)
		assert.Equal(t, 2, cfg.BatchConcurrency)
		assert.Equal(t, "ARE", cfg.DestinationCountry)
	})
}

func TestLoadFromFlags_Environment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VISA_INTAKE_DIR", dir)
	t.Setenv("VISA_INTAKE_MODE", "server")
	t.Setenv("VISA_INTAKE_PORT", "7070")
	t.Setenv("VISA_INTAKE_STRUCTURED_URL", "http://layout")
	t.Setenv("VISA_INTAKE_FILL_RATIO", "0.6")

	withArgs(t, []string{"visa-intake"}, func() {
		cfg, err := LoadFromFlags()
		require.NoError(t, err)

		assert.Equal(t, dir, cfg.DocumentDirectory)
		assert.Equal(t, ModeServer, cfg.Mode)
		assert.Equal(t, 7070, cfg.Port)
		assert.Equal(t, "http://layout", cfg.StructuredURL)
		assert.InDelta(t, 0.6, cfg.FillSuccessRatio, 1e-9)
	})
}

func TestLoadFromFlags_FlagOverridesEnvironment(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("VISA_INTAKE_PORT", "7070")

	withArgs(t, []string{"visa-intake", "--mode=server", "--port=6060", "--dir=" + dir}, func() {
		cfg, err := LoadFromFlags()
		require.NoError(t, err)
		assert.Equal(t, 6060, cfg.Port)
	})
}

func TestLoadFromFlags_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		arg     string
		wantErr string
	}{
		{"mode", "--mode=grpc", "mode must be"},
		{"log level", "--log-level=trace", "log level \"trace\""},
		{"destination", "--destination=XYZ", "unknown destination"},
		{"ratio", "--fill-ratio=2", "fill ratio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			withArgs(t, []string{"visa-intake", "--dir=" + dir, tt.arg}, func() {
				_, err := LoadFromFlags()
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid configuration")
				assert.Contains(t, err.Error(), tt.wantErr)
			})
		})
	}
}

func TestLoadFromFlags_Version(t *testing.T) {
	withArgs(t, []string{"visa-intake", "--version"}, func() {
		_, err := LoadFromFlags()
		assert.ErrorIs(t, err, ErrVersionRequested)
	})
}
