package security

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSandbox(t *testing.T, limit int64) (*Sandbox, string) {
	t.Helper()
	dir := t.TempDir()
	s, err := NewSandbox(dir, limit)
	require.NoError(t, err)
	return s, s.Root()
}

func TestNewSandbox_RejectsEmpty(t *testing.T) {
	_, err := NewSandbox("  ", 0)
	assert.ErrorIs(t, err, ErrEmptyPath)
}

func TestResolve(t *testing.T) {
	s, root := newSandbox(t, 0)
	require.NoError(t, os.MkdirAll(filepath.Join(root, "forms"), 0o750))

	tests := []struct {
		name    string
		path    string
		want    string
		wantErr error
	}{
		{"relative", "passport.pdf", filepath.Join(root, "passport.pdf"), nil},
		{"nested", "forms/ds160.pdf", filepath.Join(root, "forms", "ds160.pdf"), nil},
		{"absolute inside", filepath.Join(root, "a.pdf"), filepath.Join(root, "a.pdf"), nil},
		{"root itself", root, root, nil},
		{"dot dot escape", "../outside.pdf", "", ErrOutsideDirectory},
		{"sneaky escape", "forms/../../outside.pdf", "", ErrOutsideDirectory},
		{"absolute outside", "/etc/passwd", "", ErrOutsideDirectory},
		{"prefix sibling", root + "-other/x.pdf", "", ErrOutsideDirectory},
		{"empty", "", "", ErrEmptyPath},
		{"null bytes only", "\x00", "", ErrEmptyPath},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Resolve(tt.path)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResolve_SymlinkEscape(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need privileges on windows")
	}
	s, root := newSandbox(t, 0)
	outside := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(outside, "secret.pdf"), []byte("x"), 0o600))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	_, err := s.Resolve("link/secret.pdf")
	assert.ErrorIs(t, err, ErrOutsideDirectory)

	_, err = s.Resolve("link/not-yet-written.pdf")
	assert.ErrorIs(t, err, ErrOutsideDirectory)
}

func TestReadFile(t *testing.T) {
	s, root := newSandbox(t, 8)
	require.NoError(t, os.WriteFile(filepath.Join(root, "small.pdf"), []byte("%PDF-1.7"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.pdf"), []byte("%PDF-1.7 and more"), 0o600))

	data, err := s.ReadFile("small.pdf")
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = s.ReadFile("big.pdf")
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = s.ReadFile("missing.pdf")
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = s.ReadFile(".")
	assert.Error(t, err)
}

func TestWriteFile(t *testing.T) {
	s, root := newSandbox(t, 0)

	path, err := s.WriteFile("filled.pdf", []byte("%PDF"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, "filled.pdf"), path)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(got))

	_, err = s.WriteFile("../escape.pdf", []byte("x"))
	assert.ErrorIs(t, err, ErrOutsideDirectory)

	_, err = s.WriteFile("no/such/dir/out.pdf", []byte("x"))
	assert.Error(t, err)
}
