package scanner

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/catalog"
	"lostfound/database"
	"lostfound/imageprocessor"
	"lostfound/types"
)

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))
}

func setup(t *testing.T) (*catalog.LocalStore, *database.ItemStore) {
	t.Helper()
	store, err := catalog.NewLocalStore(t.TempDir())
	require.NoError(t, err)

	db, err := database.InitDatabase(filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return store, database.NewItemStore(db)
}

func TestScanCategoryRegistersUntrackedFiles(t *testing.T) {
	ctx := context.Background()
	store, items := setup(t)
	dir := store.CategoryDir(types.CategoryGadget)

	writePNG(t, filepath.Join(dir, "black_phone-2.png"), 16, 16)
	writePNG(t, filepath.Join(dir, "listed.png"), 16, 16)
	writePNG(t, filepath.Join(dir, "tiny.png"), 3, 3)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.png"), []byte("text"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("text"), 0644))

	_, err := items.StoreItem(ctx, types.Item{Title: "Listed", Category: types.CategoryGadget, Filename: "listed.png", UserID: 1})
	require.NoError(t, err)

	var out bytes.Buffer
	stats, err := ScanCategory(ctx, items, store, ScanOptions{
		Category:   types.CategoryGadget,
		OwnerID:    99,
		MaxWorkers: 2,
		Loader:     imageprocessor.NewStandardLoaderRegistry(),
		Output:     &out,
	})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 1, stats.Registered)
	assert.Equal(t, 1, stats.Tracked)
	assert.Equal(t, 2, stats.Errors)
	assert.Equal(t, 1, stats.Ignored)
	assert.Contains(t, out.String(), "Scan complete.")
	assert.Contains(t, out.String(), "Ignored 1 files that are not images.")

	readme, err := items.FindByFilename(ctx, types.CategoryGadget, "readme.txt")
	require.NoError(t, err)
	assert.Nil(t, readme)

	item, err := items.FindByFilename(ctx, types.CategoryGadget, "black_phone-2.png")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "black phone 2", item.Title)
	assert.Equal(t, int64(99), item.UserID)

	// A second pass finds nothing new
	stats, err = ScanCategory(ctx, items, store, ScanOptions{
		Category: types.CategoryGadget,
		OwnerID:  99,
		Loader:   imageprocessor.NewStandardLoaderRegistry(),
		Output:   &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Registered)
	assert.Equal(t, 2, stats.Tracked)
}

func TestScanCategoryEmpty(t *testing.T) {
	store, items := setup(t)

	var out bytes.Buffer
	stats, err := ScanCategory(context.Background(), items, store, ScanOptions{
		Category: types.CategoryAccessory,
		Output:   &out,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Total)
}

func TestScanCategoryRejectsUnknownCategory(t *testing.T) {
	store, items := setup(t)

	_, err := ScanCategory(context.Background(), items, store, ScanOptions{Category: "shoes"})
	assert.ErrorIs(t, err, types.ErrInvalidCategory)
}

func TestScanCategoryCancelled(t *testing.T) {
	store, items := setup(t)
	writePNG(t, filepath.Join(store.CategoryDir(types.CategoryGadget), "a.png"), 16, 16)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	_, err := ScanCategory(ctx, items, store, ScanOptions{Category: types.CategoryGadget, Output: &out})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTitleFromFilename(t *testing.T) {
	assert.Equal(t, "black phone 2", titleFromFilename("black_phone-2.jpg"))
	assert.Equal(t, "ring", titleFromFilename("ring.png"))
	assert.Equal(t, "__.png", titleFromFilename("__.png"))
}

func TestProgressTrackerCounts(t *testing.T) {
	results := make(chan ProcessImageResult, 3)
	var out bytes.Buffer
	tracker := NewProgressTracker(3, &out, results)

	results <- ProcessImageResult{Filename: "a.png"}
	results <- ProcessImageResult{Filename: "b.png", Tracked: true}
	results <- ProcessImageResult{Filename: "c.png", Error: imageprocessor.ErrDegenerateImage}
	close(results)
	tracker.Stop()

	stats := tracker.Stats()
	assert.Equal(t, ScanStats{Total: 3, Registered: 1, Tracked: 1, Errors: 1}, stats)
}
