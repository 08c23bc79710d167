package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-visa-intake/internal/formfill"
)

type stubEngine struct {
	info formfill.Info
	err  error
}

func (e stubEngine) Inspect([]byte) (formfill.Info, error) { return e.info, e.err }
func (e stubEngine) Load([]byte) (formfill.Document, error) {
	return nil, errors.New("not used")
}

func useEngine(t *testing.T, e formfill.Engine) {
	t.Helper()
	old := newEngine
	newEngine = func(*slog.Logger) formfill.Engine { return e }
	t.Cleanup(func() { newEngine = old })
}

func writeTemplate(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "form.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.7\n"), 0o600))
	return path
}

var sampleInfo = formfill.Info{
	PageCount: 3,
	Fields: []formfill.FieldDescriptor{
		{ID: "12", Name: "applicant.surname", Kind: formfill.KindText, Pages: []int{1}},
		{ID: "14", Name: "applicant.sex", Kind: formfill.KindRadio, Options: []string{"M", "F"}, Pages: []int{1, 2}},
		{ID: "20", Name: "submit", Kind: formfill.KindButton},
	},
}

func TestRun_Text(t *testing.T) {
	useEngine(t, stubEngine{info: sampleInfo})
	path := writeTemplate(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, &stdout, &stderr)

	assert.Equal(t, 0, code, stderr.String())
	out := stdout.String()
	assert.Contains(t, out, "Pages:     3")
	assert.Contains(t, out, "Fillable:  2 of 3 fields")
	assert.Contains(t, out, "applicant.surname")
	assert.Contains(t, out, "M|F")
	assert.Contains(t, out, "1,2")
	assert.Contains(t, out, "Pre-flight: OK")
}

func TestRun_JSON(t *testing.T) {
	useEngine(t, stubEngine{info: sampleInfo})
	path := writeTemplate(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{"--format", "json", path}, &stdout, &stderr)
	require.Equal(t, 0, code, stderr.String())

	var got struct {
		FilePath   string                    `json:"file_path"`
		Info       formfill.Info             `json:"info"`
		Validation formfill.ValidationReport `json:"validation"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &got))
	assert.Equal(t, path, got.FilePath)
	assert.Len(t, got.Info.Fields, 3)
	assert.True(t, got.Validation.IsValid)
	assert.Equal(t, 2, got.Validation.FieldCount)
}

func TestRun_InvalidTemplate(t *testing.T) {
	useEngine(t, stubEngine{info: formfill.Info{PageCount: 1, Encrypted: true}})
	path := writeTemplate(t)

	var stdout, stderr bytes.Buffer
	code := run([]string{path}, &stdout, &stderr)

	assert.Equal(t, 1, code)
	assert.Contains(t, stdout.String(), "Pre-flight: FAILED")
	assert.Contains(t, stdout.String(), "PDF is encrypted")
}

func TestRun_Errors(t *testing.T) {
	path := writeTemplate(t)

	tests := []struct {
		name   string
		args   []string
		engine formfill.Engine
		code   int
	}{
		{"no file", nil, stubEngine{}, 2},
		{"unknown format", []string{"--format", "xml", path}, stubEngine{}, 2},
		{"unknown flag", []string{"--bogus", path}, stubEngine{}, 2},
		{"missing file", []string{filepath.Join(t.TempDir(), "nope.pdf")}, stubEngine{}, 1},
		{"engine failure", []string{path}, stubEngine{err: errors.New("corrupt xref")}, 1},
		{"help", []string{"--help"}, stubEngine{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			useEngine(t, tt.engine)
			var stdout, stderr bytes.Buffer
			assert.Equal(t, tt.code, run(tt.args, &stdout, &stderr))
		})
	}
}
