// Package security confines tool file access to the configured document directory.
package security

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var (
	// ErrEmptyPath is returned for a blank path argument
	ErrEmptyPath = errors.New("path cannot be empty")
	// ErrOutsideDirectory is returned when a path resolves outside the document directory
	ErrOutsideDirectory = errors.New("path is outside the document directory")
	// ErrFileTooLarge is returned when a file exceeds the configured size limit
	ErrFileTooLarge = errors.New("file exceeds the maximum allowed size")
)

// Sandbox resolves tool paths against a root directory and refuses anything that
// escapes it, including through symlinks.
type Sandbox struct {
	root        string
	maxFileSize int64
}

// NewSandbox creates a sandbox rooted at dir. maxFileSize <= 0 disables the size limit.
func NewSandbox(dir string, maxFileSize int64) (*Sandbox, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("document directory: %w", ErrEmptyPath)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve document directory: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Sandbox{root: filepath.Clean(abs), maxFileSize: maxFileSize}, nil
}

// Root returns the resolved document directory
func (s *Sandbox) Root() string { return s.root }

// Resolve turns a relative or absolute path into an absolute path inside the root.
// The target does not have to exist; when it does, symlinks are followed before
// the containment check.
func (s *Sandbox) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if strings.TrimSpace(path) == "" {
		return "", ErrEmptyPath
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.root, path)
	}
	clean := filepath.Clean(path)

	real, err := s.realPath(clean)
	if err != nil {
		return "", err
	}
	if !s.contains(real) {
		return "", fmt.Errorf("%w: %s", ErrOutsideDirectory, path)
	}
	return real, nil
}

// realPath follows symlinks for the longest existing prefix of p
func (s *Sandbox) realPath(p string) (string, error) {
	if real, err := filepath.EvalSymlinks(p); err == nil {
		return real, nil
	}
	dir, base := filepath.Split(p)
	dir = filepath.Clean(dir)
	if dir == p {
		return p, nil
	}
	realDir, err := s.realPath(dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(realDir, base), nil
}

func (s *Sandbox) contains(p string) bool {
	if p == s.root {
		return true
	}
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ReadFile reads a file inside the root, enforcing the size limit
func (s *Sandbox) ReadFile(path string) ([]byte, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(resolved)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if s.maxFileSize > 0 && info.Size() > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrFileTooLarge, path, info.Size(), s.maxFileSize)
	}

	r := io.Reader(f)
	if s.maxFileSize > 0 {
		r = io.LimitReader(f, s.maxFileSize+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if s.maxFileSize > 0 && int64(len(data)) > s.maxFileSize {
		return nil, fmt.Errorf("%w: %s", ErrFileTooLarge, path)
	}
	return data, nil
}

// WriteFile writes data to a path inside the root. The parent directory must exist.
func (s *Sandbox) WriteFile(path string, data []byte) (string, error) {
	resolved, err := s.Resolve(path)
	if err != nil {
		return "", err
	}
	if resolved == s.root {
		return "", fmt.Errorf("%s is a directory", path)
	}
	if err := os.WriteFile(resolved, data, 0o600); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return resolved, nil
}
