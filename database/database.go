package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"lostfound/logging"
	"lostfound/types"

	_ "github.com/mattn/go-sqlite3"
)

// InitDatabase opens the database and creates the schema if needed
func InitDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT
	);
	CREATE TABLE IF NOT EXISTS items (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		filename TEXT NOT NULL,
		user_id INTEGER NOT NULL,
		created_at TEXT,
		UNIQUE(category, filename)
	);
	CREATE INDEX IF NOT EXISTS idx_items_category ON items(category);
	CREATE INDEX IF NOT EXISTS idx_items_user ON items(user_id);`

	if _, err = db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, err
	}

	// Databases created before descriptions were kept lack the column
	var hasDescriptionColumn bool
	err = db.QueryRow("SELECT COUNT(*) FROM pragma_table_info('items') WHERE name='description'").Scan(&hasDescriptionColumn)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error checking for description column: %w", err)
	}

	if !hasDescriptionColumn {
		if _, err = db.Exec("ALTER TABLE items ADD COLUMN description TEXT NOT NULL DEFAULT '';"); err != nil {
			db.Close()
			return nil, fmt.Errorf("error adding description column: %w", err)
		}
		logging.DebugLog("Added 'description' column to items table")
	}

	return db, nil
}

// ItemStore reads and writes item metadata
type ItemStore struct {
	db *sql.DB
}

// NewItemStore wraps an open database
func NewItemStore(db *sql.DB) *ItemStore {
	return &ItemStore{db: db}
}

const itemColumns = `id, title, description, category, filename, user_id, created_at`

// StoreItem inserts an item and returns its id. CreatedAt defaults to now.
func (s *ItemStore) StoreItem(ctx context.Context, item types.Item) (int64, error) {
	createdAt := item.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO items (title, description, category, filename, user_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		item.Title,
		item.Description,
		string(item.Category),
		item.Filename,
		item.UserID,
		createdAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("cannot insert item %s/%s: %w", item.Category, item.Filename, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("cannot read id for %s/%s: %w", item.Category, item.Filename, err)
	}
	return id, nil
}

// FindByFilename returns the item stored under a category and filename, or
// nil when there is none
func (s *ItemStore) FindByFilename(ctx context.Context, category types.Category, filename string) (*types.Item, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category = ? AND filename = ?`,
		string(category), filename)

	item, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("database error for %s/%s: %w", category, filename, err)
	}
	return item, nil
}

// ListByCategory returns the items of a category, oldest first
func (s *ItemStore) ListByCategory(ctx context.Context, category types.Category) ([]types.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+itemColumns+` FROM items WHERE category = ? ORDER BY id`,
		string(category))
	if err != nil {
		return nil, fmt.Errorf("failed to list %s items: %w", category, err)
	}
	defer rows.Close()

	var items []types.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s item: %w", category, err)
		}
		items = append(items, *item)
	}
	return items, rows.Err()
}

// DeleteItem removes an item row; deleting a missing id is not an error
func (s *ItemStore) DeleteItem(ctx context.Context, id int64) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("cannot delete item %d: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*types.Item, error) {
	var (
		item      types.Item
		category  string
		createdAt sql.NullString
	)
	if err := row.Scan(&item.ID, &item.Title, &item.Description, &category,
		&item.Filename, &item.UserID, &createdAt); err != nil {
		return nil, err
	}

	item.Category = types.Category(category)
	if createdAt.Valid {
		if t, err := time.Parse(time.RFC3339, createdAt.String); err == nil {
			item.CreatedAt = t
		}
	}
	return &item, nil
}

// CatalogStats contains item counts
type CatalogStats struct {
	TotalItems  int
	PerCategory map[types.Category]int
}

// GetCatalogStats counts the items of every category
func (s *ItemStore) GetCatalogStats(ctx context.Context) (*CatalogStats, error) {
	stats := &CatalogStats{PerCategory: make(map[types.Category]int)}
	for _, category := range types.Categories() {
		stats.PerCategory[category] = 0
	}

	rows, err := s.db.QueryContext(ctx, `SELECT category, COUNT(*) FROM items GROUP BY category`)
	if err != nil {
		return nil, fmt.Errorf("failed to count items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to count items: %w", err)
		}
		stats.PerCategory[types.Category(category)] = count
		stats.TotalItems += count
	}

	return stats, rows.Err()
}

// StoreUser inserts a user and returns its id
func (s *ItemStore) StoreUser(ctx context.Context, email, fullName string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `INSERT INTO users (email, full_name) VALUES (?, ?)`, email, fullName)
	if err != nil {
		return 0, fmt.Errorf("cannot insert user %s: %w", email, err)
	}
	return res.LastInsertId()
}
