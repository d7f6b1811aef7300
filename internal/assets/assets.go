// Package assets manages on-disk storage of cover images. It only ever
// touches the filesystem; record persistence stays in the repositories.
package assets

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/Phelioume11/SymfonProject/internal/slugger"
	"github.com/Phelioume11/SymfonProject/internal/types"
)

// Store writes, replaces and deletes cover files under a base directory.
// Stored names carry a random token, so concurrent stores never collide
// on the same target file.
type Store struct {
	logger  *slog.Logger
	baseDir string
}

// NewStore creates the base directory if needed and returns a Store.
func NewStore(baseDir string, logger *slog.Logger) (*Store, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("base directory is required: %w", types.ErrStorage)
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", types.ErrStorage)
	}
	return &Store{logger: logger, baseDir: baseDir}, nil
}

// Store writes data under a collision-resistant name derived from the
// slugified baseNameHint, a random token and the original extension, and
// returns the stored name.
func (s *Store) Store(data []byte, originalFilename, baseNameHint string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalFilename)))
	if ext == "" || ext == "." {
		return "", fmt.Errorf("cannot determine extension of %q: %w", originalFilename, types.ErrStorage)
	}

	base := slugger.Slugify(baseNameHint)
	if base == "" {
		base = "cover"
	}
	name := fmt.Sprintf("%s-%s%s", base, uuid.NewString(), ext)

	if err := os.WriteFile(filepath.Join(s.baseDir, name), data, 0o644); err != nil {
		s.logger.Error("Failed to write asset", slog.String("name", name), slog.Any("error", err))
		return "", fmt.Errorf("failed to write asset %s: %w", name, types.ErrStorage)
	}
	return name, nil
}

// Delete removes a stored file. It is a no-op for an empty name and for a
// file that is already absent; deletion is idempotent.
func (s *Store) Delete(name string) error {
	if name == "" {
		return nil
	}
	path := filepath.Join(s.baseDir, filepath.Base(name))
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete asset %s: %w", name, types.ErrStorage)
	}
	return nil
}

// Replace stores the new bytes first and only then deletes the old file,
// so a store failure leaves the previous asset intact. A failed delete of
// the old file is logged and does not fail the replace.
func (s *Store) Replace(oldName string, data []byte, originalFilename, baseNameHint string) (string, error) {
	name, err := s.Store(data, originalFilename, baseNameHint)
	if err != nil {
		return "", err
	}
	if err := s.Delete(oldName); err != nil {
		s.logger.Warn("Failed to delete replaced asset", slog.String("name", oldName), slog.Any("error", err))
	}
	return name, nil
}

// Path returns the on-disk location of a stored file, for serving.
func (s *Store) Path(name string) string {
	return filepath.Join(s.baseDir, filepath.Base(name))
}

// Exists reports whether a stored file is present.
func (s *Store) Exists(name string) bool {
	if name == "" {
		return false
	}
	_, err := os.Stat(s.Path(name))
	return err == nil
}
