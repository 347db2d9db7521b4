// Package finder ties the ranker to the catalog and its metadata: it runs
// searches for a probe image and lists new items.
package finder

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"lostfound/catalog"
	"lostfound/imageprocessor"
	"lostfound/logging"
	"lostfound/matcher"
	"lostfound/types"
)

var (
	// ErrInvalidItem is returned when a new item lacks required fields
	ErrInvalidItem = errors.New("invalid item")

	// ErrPayloadTooLarge is returned when an image exceeds MaxUploadSize
	ErrPayloadTooLarge = errors.New("image too large")

	// ErrItemNotFound is returned when no item is stored under a filename
	ErrItemNotFound = errors.New("item not found")
)

// MetadataStore looks up and records item metadata
type MetadataStore interface {
	FindByFilename(ctx context.Context, category types.Category, filename string) (*types.Item, error)
	StoreItem(ctx context.Context, item types.Item) (int64, error)
	DeleteItem(ctx context.Context, id int64) error
}

// Service runs searches and adds items
type Service struct {
	Ranker   *matcher.Ranker
	Store    catalog.Catalog
	Metadata MetadataStore

	// MaxUploadSize bounds probe and item images in bytes; zero disables it
	MaxUploadSize int64
}

// NewService creates a service
func NewService(ranker *matcher.Ranker, store catalog.Catalog, metadata MetadataStore) *Service {
	return &Service{
		Ranker:   ranker,
		Store:    store,
		Metadata: metadata,
	}
}

// SearchResult is what a search hands back to the caller
type SearchResult struct {
	Category   types.Category        `json:"category"`
	Matches    []types.EnrichedMatch `json:"matches"`
	Skipped    []string              `json:"skipped,omitempty"`
	Considered int                   `json:"considered"`
}

// Search ranks the category named by categoryLabel against the probe and
// attaches the display URL and owner of every match
func (s *Service) Search(ctx context.Context, probeName string, probe []byte, categoryLabel string) (*SearchResult, error) {
	category, err := types.ParseCategory(categoryLabel)
	if err != nil {
		return nil, err
	}
	if err := s.checkSize(probe); err != nil {
		return nil, err
	}

	ranking, err := s.Ranker.FindSimilarBytes(ctx, probeName, probe, s.Store, category)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Category:   category,
		Matches:    make([]types.EnrichedMatch, 0, len(ranking.Matches)),
		Considered: ranking.Considered,
	}
	for _, skipped := range ranking.Skipped {
		result.Skipped = append(result.Skipped, skipped.Filename)
	}

	for _, match := range ranking.Matches {
		enriched := types.EnrichedMatch{
			MatchResult: match,
			URL:         types.ImageURL(category, match.Filename),
		}
		enriched.UserID = s.lookupOwner(ctx, category, match.Filename)
		result.Matches = append(result.Matches, enriched)
	}

	return result, nil
}

func (s *Service) lookupOwner(ctx context.Context, category types.Category, filename string) *int64 {
	if s.Metadata == nil {
		return nil
	}

	item, err := s.Metadata.FindByFilename(ctx, category, filename)
	if err != nil {
		logging.Logger().Warn("owner lookup failed",
			zap.String("category", category.String()),
			zap.String("filename", filename),
			zap.Error(err))
		return nil
	}
	if item == nil {
		return nil
	}

	userID := item.UserID
	return &userID
}

// NewItem is an item listing request
type NewItem struct {
	Title       string
	Description string
	Category    string
	Filename    string
	UserID      int64
	Data        []byte
}

// AddItem stores the image of a new item in the catalog and records its
// metadata. The stored filename may differ from the requested one.
func (s *Service) AddItem(ctx context.Context, req NewItem) (*types.Item, error) {
	category, err := types.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	description := strings.TrimSpace(req.Description)
	if title == "" || description == "" {
		return nil, fmt.Errorf("%w: title and description are required", ErrInvalidItem)
	}
	if len(req.Data) == 0 {
		return nil, fmt.Errorf("%w: no image data", ErrInvalidItem)
	}
	if err := s.checkSize(req.Data); err != nil {
		return nil, err
	}

	img, err := s.Ranker.Loader.LoadImage(req.Filename, req.Data)
	if err != nil {
		return nil, err
	}
	if err := imageprocessor.CheckComparable(req.Filename, img); err != nil {
		return nil, err
	}

	filename, err := s.uniqueFilename(ctx, category, req.Filename)
	if err != nil {
		return nil, err
	}

	if err := s.Store.SaveEntry(ctx, category, filename, req.Data); err != nil {
		return nil, fmt.Errorf("failed to save image: %w", err)
	}

	item := types.Item{
		Title:       title,
		Description: description,
		Category:    category,
		Filename:    filename,
		UserID:      req.UserID,
	}
	id, err := s.Metadata.StoreItem(ctx, item)
	if err != nil {
		if delErr := s.Store.DeleteEntry(context.WithoutCancel(ctx), category, filename); delErr != nil {
			logging.LogError("Failed to remove %s/%s after metadata error: %v", category, filename, delErr)
		}
		return nil, fmt.Errorf("failed to record item: %w", err)
	}
	item.ID = id

	logging.LogInfo("Added item %d as %s/%s", id, category, filename)
	return &item, nil
}

// RemoveItem deletes an item's metadata row and its catalog image
func (s *Service) RemoveItem(ctx context.Context, categoryLabel, filename string) (*types.Item, error) {
	category, err := types.ParseCategory(categoryLabel)
	if err != nil {
		return nil, err
	}

	item, err := s.Metadata.FindByFilename(ctx, category, filename)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, fmt.Errorf("%w: %s/%s", ErrItemNotFound, category, filename)
	}

	if err := s.Metadata.DeleteItem(ctx, item.ID); err != nil {
		return nil, err
	}
	if err := s.Store.DeleteEntry(ctx, category, filename); err != nil {
		return nil, fmt.Errorf("item %d removed but its image remains: %w", item.ID, err)
	}

	logging.LogInfo("Removed item %d (%s/%s)", item.ID, category, filename)
	return item, nil
}

// uniqueFilename sanitizes name and prefixes it with a short random id if
// the category already holds a file of that name
func (s *Service) uniqueFilename(ctx context.Context, category types.Category, name string) (string, error) {
	filename, err := catalog.SanitizeFilename(filepath.Base(name))
	if err != nil {
		return "", err
	}

	exists, err := s.Store.Exists(ctx, category, filename)
	if err != nil {
		return "", fmt.Errorf("failed to check %s/%s: %w", category, filename, err)
	}
	if !exists {
		return filename, nil
	}

	return uuid.NewString()[:8] + "_" + filename, nil
}

func (s *Service) checkSize(data []byte) error {
	if s.MaxUploadSize > 0 && int64(len(data)) > s.MaxUploadSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrPayloadTooLarge, len(data), s.MaxUploadSize)
	}
	return nil
}
