// Package catalog stores the item images of every category and lists them
// for a ranking pass.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"lostfound/config"
	"lostfound/types"
)

// ErrInvalidFilename is returned for names that could escape a category
var ErrInvalidFilename = errors.New("invalid filename")

// Store is the read side a ranking pass needs
type Store interface {
	// ListEntries returns the filenames of a category in the backend's
	// natural listing order
	ListEntries(ctx context.Context, category types.Category) ([]string, error)

	// ReadEntry returns the raw bytes of one stored image
	ReadEntry(ctx context.Context, category types.Category, filename string) ([]byte, error)
}

// Writer is the write side used when items are listed
type Writer interface {
	SaveEntry(ctx context.Context, category types.Category, filename string, data []byte) error
	DeleteEntry(ctx context.Context, category types.Category, filename string) error
	Exists(ctx context.Context, category types.Category, filename string) (bool, error)
}

// Catalog is a backend supporting both sides
type Catalog interface {
	Store
	Writer
}

// New creates the backend selected by cfg.Type
func New(cfg config.StorageConfig) (Catalog, error) {
	switch cfg.Type {
	case "local", "":
		return NewLocalStore(cfg.BasePath)
	case "s3":
		return NewS3Store(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", cfg.Type)
	}
}

// validateFilename rejects names that are not a single path element.
// Dots inside a name such as "my..photo.png" are fine.
func validateFilename(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidFilename, name)
	}
	return nil
}

// SanitizeFilename reduces an uploaded name to ASCII letters, digits,
// dots, dashes and underscores. Whitespace runs and path separators become
// single underscores, and leading or trailing dots and underscores are
// removed.
func SanitizeFilename(name string) (string, error) {
	name = strings.NewReplacer("/", " ", `\`, " ").Replace(name)
	name = strings.Join(strings.Fields(name), "_")

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '_', r == '.', r == '-':
			b.WriteRune(r)
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "", fmt.Errorf("%w: nothing left of %q", ErrInvalidFilename, name)
	}
	return cleaned, nil
}
