// Package localfs resolves stored CV references against a media root on the
// local filesystem.
package localfs

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/fairyhunter13/ats-cv-scorer/internal/domain"
	"github.com/fairyhunter13/ats-cv-scorer/internal/observability"
)

// Storage implements domain.FileStorage.
type Storage struct {
	root string
}

// New returns a Storage rooted at root.
func New(root string) *Storage {
	return &Storage{root: filepath.Clean(root)}
}

// Resolve returns the absolute path and base name of ref. References that
// escape the root, are not regular files or cannot be opened yield
// domain.ErrCVFileMissing.
func (s *Storage) Resolve(ctx domain.Context, ref string) (string, string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", "", domain.ErrCVFileMissing
	}
	rel := filepath.Clean(filepath.FromSlash(strings.TrimLeft(ref, "/")))
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		observability.LoggerFromContext(ctx).Warn("cv reference escapes media root", slog.String("ref", ref))
		return "", "", domain.ErrCVFileMissing
	}
	full := filepath.Join(s.root, rel)

	info, err := os.Stat(full)
	if err != nil || !info.Mode().IsRegular() {
		observability.LoggerFromContext(ctx).Warn("cv file not found", slog.String("path", full), slog.Any("error", err))
		return "", "", domain.ErrCVFileMissing
	}
	f, err := os.Open(full)
	if err != nil {
		return "", "", fmt.Errorf("%w: %v", domain.ErrCVFileMissing, err)
	}
	_ = f.Close()
	return full, filepath.Base(full), nil
}
