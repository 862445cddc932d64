// Package media stores uploaded files on disk under a single root,
// organized by entity type and year/month. All paths handed back to
// callers are relative to the root; Abs re-confines them on the way out
// so a stored path can never escape the uploads directory.
package media

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrPathOutsideRoot is returned when a relative path would resolve
// outside the uploads root.
var ErrPathOutsideRoot = fmt.Errorf("path escapes uploads root")

// Store manages the on-disk uploads tree.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a store rooted at the given directory, creating it if
// needed.
func NewStore(root string, logger *slog.Logger) (*Store, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving uploads root: %w", err)
	}
	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads root: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: absRoot, logger: logger}, nil
}

// Root returns the absolute uploads root.
func (s *Store) Root() string {
	return s.root
}

// Save writes src under <root>/<entity>/<year>/<month>/<uuid><ext> and
// returns the relative path and byte count. The original filename only
// contributes its extension; the stored name is always a fresh UUID.
func (s *Store) Save(entity, originalName string, src io.Reader) (relPath string, size int64, err error) {
	now := time.Now()
	ext := strings.ToLower(filepath.Ext(originalName))
	rel := filepath.Join(entity, fmt.Sprintf("%04d", now.Year()), fmt.Sprintf("%02d", now.Month()),
		uuid.NewString()+ext)

	abs, err := s.Abs(rel)
	if err != nil {
		return "", 0, err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", 0, fmt.Errorf("creating upload directory: %w", err)
	}

	dst, err := os.Create(abs)
	if err != nil {
		return "", 0, fmt.Errorf("creating upload file: %w", err)
	}
	defer dst.Close()

	size, err = io.Copy(dst, src)
	if err != nil {
		// Partial file is useless, drop it.
		os.Remove(abs)
		return "", 0, fmt.Errorf("writing upload file: %w", err)
	}

	return filepath.ToSlash(rel), size, nil
}

// Abs resolves a stored relative path to an absolute one, rejecting any
// path that would land outside the root.
func (s *Store) Abs(relPath string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(relPath))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", ErrPathOutsideRoot
	}
	abs := filepath.Join(s.root, cleaned)
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) {
		return "", ErrPathOutsideRoot
	}
	return abs, nil
}

// Remove deletes a stored file. A missing file is not an error: removal is
// best-effort and callers retry freely.
func (s *Store) Remove(relPath string) error {
	abs, err := s.Abs(relPath)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("removing upload file: %w", err)
	}
	return nil
}

// RemoveLogged removes a file and logs failures instead of returning them.
// Used by batch deletions where one bad file must not abort the batch.
func (s *Store) RemoveLogged(relPath string) {
	if err := s.Remove(relPath); err != nil {
		s.logger.Warn("failed to remove uploaded file", "path", relPath, "error", err)
	}
}
