package scanner

import (
	"context"
	"image"
	"io"
	"sync"
	"time"

	"lostfound/types"
)

// Metadata is the part of the item store a scan needs
type Metadata interface {
	FindByFilename(ctx context.Context, category types.Category, filename string) (*types.Item, error)
	StoreItem(ctx context.Context, item types.Item) (int64, error)
}

// Loader decodes stored image bytes
type Loader interface {
	LoadImage(name string, data []byte) (image.Image, error)
}

// ScanOptions defines the options for scanning
type ScanOptions struct {
	Category    types.Category
	OwnerID     int64
	Description string
	DebugMode   bool
	MaxWorkers  int       // Optional worker limit
	Loader      Loader    // Defaults to the full loader registry
	Output      io.Writer // Progress output, defaults to stdout
}

// ProcessImageResult holds the result of processing one catalog file
type ProcessImageResult struct {
	Filename string
	Tracked  bool // already had a metadata row
	Error    error
}

// ScanStats summarizes a finished scan
type ScanStats struct {
	Total      int
	Registered int
	Tracked    int
	Errors     int
	Ignored    int // files without an image extension
	Elapsed    time.Duration
}

// ProgressTracker tracks progress of the scan operation
type ProgressTracker struct {
	processed  int
	registered int
	tracked    int
	errors     int
	totalFiles int
	out        io.Writer

	ticker  *time.Ticker
	done    chan struct{}
	stopped chan struct{}
	drained chan struct{}
	mu      sync.Mutex
}
