package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"lostfound/types"
)

// LocalStore keeps one directory per category under a base path
type LocalStore struct {
	basePath string
}

// NewLocalStore creates the base directory and one directory per category
func NewLocalStore(basePath string) (*LocalStore, error) {
	if basePath == "" {
		basePath = "./Inventory"
	}

	for _, category := range types.Categories() {
		if err := os.MkdirAll(filepath.Join(basePath, string(category)), 0755); err != nil {
			return nil, fmt.Errorf("failed to create catalog directory: %w", err)
		}
	}

	return &LocalStore{basePath: basePath}, nil
}

// CategoryDir returns the directory holding a category's images
func (s *LocalStore) CategoryDir(category types.Category) string {
	return filepath.Join(s.basePath, string(category))
}

// ListEntries lists regular files in directory order. Sub-directories and
// hidden files are not catalog entries; a missing directory is empty.
func (s *LocalStore) ListEntries(ctx context.Context, category types.Category) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dir := s.CategoryDir(category)
	f, err := os.Open(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("cannot open catalog directory %s: %w", dir, err)
	}
	defer f.Close()

	// File.ReadDir keeps the directory's own order, os.ReadDir would sort
	entries, err := f.ReadDir(-1)
	if err != nil {
		return nil, fmt.Errorf("cannot list catalog directory %s: %w", dir, err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasPrefix(name, ".") || entry.IsDir() {
			continue
		}
		if entry.Type()&os.ModeSymlink != 0 {
			info, err := os.Stat(filepath.Join(dir, name))
			if err != nil || info.IsDir() {
				continue
			}
		}
		names = append(names, name)
	}

	return names, nil
}

// ReadEntry reads one image file
func (s *LocalStore) ReadEntry(ctx context.Context, category types.Category, filename string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := validateFilename(filename); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.CategoryDir(category), filename))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s/%s: %w", category, filename, err)
	}
	return data, nil
}

// SaveEntry writes an image file, replacing any previous content
func (s *LocalStore) SaveEntry(ctx context.Context, category types.Category, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validateFilename(filename); err != nil {
		return err
	}

	dir := s.CategoryDir(category)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(dir, filename)); err != nil {
		return fmt.Errorf("failed to store %s/%s: %w", category, filename, err)
	}
	return nil
}

// DeleteEntry removes an image file; removing a missing file is not an error
func (s *LocalStore) DeleteEntry(ctx context.Context, category types.Category, filename string) error {
	if err := validateFilename(filename); err != nil {
		return err
	}

	err := os.Remove(filepath.Join(s.CategoryDir(category), filename))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// Exists checks if an image file is present
func (s *LocalStore) Exists(ctx context.Context, category types.Category, filename string) (bool, error) {
	if err := validateFilename(filename); err != nil {
		return false, err
	}

	_, err := os.Stat(filepath.Join(s.CategoryDir(category), filename))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
