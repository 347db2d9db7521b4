// Package scanner registers catalog files that have no item metadata, so
// images copied into the catalog by hand show up with an owner.
package scanner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"lostfound/catalog"
	"lostfound/imageprocessor"
	"lostfound/logging"
	"lostfound/signalhandler"
	"lostfound/types"
)

// ScanCategory checks every file of one catalog category and records an
// item for each decodable file that has none yet
func ScanCategory(ctx context.Context, metadata Metadata, store catalog.Store, options ScanOptions) (*ScanStats, error) {
	if _, err := types.ParseCategory(string(options.Category)); err != nil {
		return nil, err
	}
	if options.Loader == nil {
		options.Loader = imageprocessor.NewImageLoaderRegistry()
	}
	if options.MaxWorkers <= 0 {
		options.MaxWorkers = signalhandler.GetOptimalProcs()
	}
	out := options.Output
	if out == nil {
		out = os.Stdout
	}

	listed, err := store.ListEntries(ctx, options.Category)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s catalog: %w", options.Category, err)
	}

	// Files without an image extension are never registered
	names := make([]string, 0, len(listed))
	for _, name := range listed {
		if !imageprocessor.IsImageFile(name) {
			if options.DebugMode {
				logging.DebugLog("Ignoring non-image file: %s", name)
			}
			continue
		}
		names = append(names, name)
	}
	ignored := len(listed) - len(names)

	PrintStartupInfo(out, len(names), options)

	var wg sync.WaitGroup
	resultsChan := make(chan ProcessImageResult, 100)
	semaphore := make(chan struct{}, options.MaxWorkers)

	tracker := NewProgressTracker(len(names), out, resultsChan)
	startTime := time.Now()

dispatch:
	for _, name := range names {
		select {
		case <-ctx.Done():
			break dispatch
		case semaphore <- struct{}{}:
		}

		wg.Add(1)
		go func(filename string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			resultsChan <- processCatalogFile(ctx, metadata, store, filename, options)
		}(name)
	}

	wg.Wait()
	close(resultsChan)
	tracker.Stop()

	stats := tracker.Stats()
	stats.Ignored = ignored
	stats.Elapsed = time.Since(startTime)
	PrintCompletionStats(out, stats, options)

	if err := ctx.Err(); err != nil {
		return &stats, fmt.Errorf("scan of %s interrupted: %w", options.Category, err)
	}
	return &stats, nil
}

// processCatalogFile registers a single file unless it is already listed
func processCatalogFile(ctx context.Context, metadata Metadata, store catalog.Store, filename string, options ScanOptions) ProcessImageResult {
	result := ProcessImageResult{Filename: filename}

	existing, err := metadata.FindByFilename(ctx, options.Category, filename)
	if err != nil {
		result.Error = err
		return result
	}
	if existing != nil {
		if options.DebugMode {
			logging.DebugLog("Skipping listed image: %s (item %d)", filename, existing.ID)
		}
		result.Tracked = true
		return result
	}

	data, err := store.ReadEntry(ctx, options.Category, filename)
	if err != nil {
		result.Error = err
		return result
	}

	img, err := options.Loader.LoadImage(filename, data)
	if err != nil {
		result.Error = err
		return result
	}
	if err := imageprocessor.CheckComparable(filename, img); err != nil {
		result.Error = err
		return result
	}

	_, err = metadata.StoreItem(ctx, types.Item{
		Title:       titleFromFilename(filename),
		Description: options.Description,
		Category:    options.Category,
		Filename:    filename,
		UserID:      options.OwnerID,
	})
	if err != nil {
		result.Error = fmt.Errorf("cannot store item for %s: %w", filename, err)
	}
	return result
}

// titleFromFilename turns "black_phone-2.jpg" into "black phone 2"
func titleFromFilename(filename string) string {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	title := strings.Join(strings.FieldsFunc(stem, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	}), " ")
	if title == "" {
		return filename
	}
	return title
}
