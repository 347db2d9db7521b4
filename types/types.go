package types

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Category is one of the fixed listing categories
type Category string

const (
	CategoryGadget    Category = "gadget"
	CategoryAccessory Category = "accessory"
)

// ErrInvalidCategory is returned for labels outside the category enumeration
var ErrInvalidCategory = errors.New("invalid category")

var categories = []Category{CategoryGadget, CategoryAccessory}

// Categories returns every known category in a fixed order
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory validates a category label
func ParseCategory(label string) (Category, error) {
	normalized := Category(strings.ToLower(strings.TrimSpace(label)))
	for _, c := range categories {
		if c == normalized {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidCategory, label)
}

func (c Category) String() string {
	return string(c)
}

// CatalogEntry references one stored image within a category
type CatalogEntry struct {
	Filename string   `json:"filename"`
	Category Category `json:"category"`
}

// MatchResult holds the similarity score of one catalog entry
type MatchResult struct {
	Filename   string   `json:"filename"`
	Similarity float64  `json:"similarity"`
	Category   Category `json:"category"`
}

// EnrichedMatch is a match with the listing metadata the caller adds
type EnrichedMatch struct {
	MatchResult
	URL    string `json:"url"`
	UserID *int64 `json:"user_id,omitempty"`
}

// Item is a listed lost-or-found item
type Item struct {
	ID          int64     `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    Category  `json:"category"`
	Filename    string    `json:"filename"`
	UserID      int64     `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ImageURL returns the display path for a catalog image
func ImageURL(category Category, filename string) string {
	return fmt.Sprintf("/static/images/%s/%s", category, filename)
}
