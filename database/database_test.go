package database

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lostfound/types"
)

func newTestStore(t *testing.T) *ItemStore {
	t.Helper()
	db, err := InitDatabase(filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewItemStore(db)
}

func TestInitDatabaseIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "items.db")

	db, err := InitDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDatabase(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestInitDatabaseCreatesDescriptionColumn(t *testing.T) {
	db, err := InitDatabase(filepath.Join(t.TempDir(), "items.db"))
	require.NoError(t, err)
	defer db.Close()

	// A column added by ALTER TABLE would come last
	var cid int
	err = db.QueryRow("SELECT cid FROM pragma_table_info('items') WHERE name='description'").Scan(&cid)
	require.NoError(t, err)
	assert.Equal(t, 2, cid)
}

func TestInitDatabaseAddsDescriptionColumn(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		category TEXT NOT NULL,
		filename TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		created_at TEXT,
		UNIQUE(category, filename)
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO items (title, category, filename, user_id) VALUES ('Old', 'gadget', 'old.png', 1)`)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = InitDatabase(path)
	require.NoError(t, err)
	defer db.Close()

	item, err := NewItemStore(db).FindByFilename(context.Background(), types.CategoryGadget, "old.png")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "", item.Description)
	assert.True(t, item.CreatedAt.IsZero())
}

func TestStoreAndFindItem(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	id, err := store.StoreItem(ctx, types.Item{
		Title:       "Black phone",
		Description: "Found near the library",
		Category:    types.CategoryGadget,
		Filename:    "phone.png",
		UserID:      7,
		CreatedAt:   created,
	})
	require.NoError(t, err)
	assert.Positive(t, id)

	item, err := store.FindByFilename(ctx, types.CategoryGadget, "phone.png")
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, id, item.ID)
	assert.Equal(t, "Black phone", item.Title)
	assert.Equal(t, "Found near the library", item.Description)
	assert.Equal(t, types.CategoryGadget, item.Category)
	assert.Equal(t, int64(7), item.UserID)
	assert.True(t, created.Equal(item.CreatedAt))

	missing, err := store.FindByFilename(ctx, types.CategoryAccessory, "phone.png")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStoreItemRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	item := types.Item{Title: "Ring", Category: types.CategoryAccessory, Filename: "ring.png", UserID: 1}

	_, err := store.StoreItem(ctx, item)
	require.NoError(t, err)
	_, err = store.StoreItem(ctx, item)
	assert.Error(t, err)

	item.Category = types.CategoryGadget
	_, err = store.StoreItem(ctx, item)
	assert.NoError(t, err)
}

func TestListDeleteAndStats(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	var ids []int64
	for _, name := range []string{"a.png", "b.png"} {
		id, err := store.StoreItem(ctx, types.Item{Title: name, Category: types.CategoryGadget, Filename: name, UserID: 1})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	_, err := store.StoreItem(ctx, types.Item{Title: "c", Category: types.CategoryAccessory, Filename: "c.png", UserID: 2})
	require.NoError(t, err)

	items, err := store.ListByCategory(ctx, types.CategoryGadget)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "a.png", items[0].Filename)
	assert.Equal(t, "b.png", items[1].Filename)

	stats, err := store.GetCatalogStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalItems)
	assert.Equal(t, 2, stats.PerCategory[types.CategoryGadget])
	assert.Equal(t, 1, stats.PerCategory[types.CategoryAccessory])

	require.NoError(t, store.DeleteItem(ctx, ids[0]))
	require.NoError(t, store.DeleteItem(ctx, ids[0]))

	items, err = store.ListByCategory(ctx, types.CategoryGadget)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "b.png", items[0].Filename)
}

func TestStatsOnEmptyDatabase(t *testing.T) {
	stats, err := newTestStore(t).GetCatalogStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.TotalItems)
	assert.Len(t, stats.PerCategory, 2)
}

func TestStoreUser(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	id, err := store.StoreUser(ctx, "finder@example.com", "Sam Finder")
	require.NoError(t, err)
	assert.Positive(t, id)

	_, err = store.StoreUser(ctx, "finder@example.com", "Someone Else")
	assert.Error(t, err)
}
