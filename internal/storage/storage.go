// Package storage provides durable last-price caches for the quick-market engine.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rewired-gh/quickodds/internal/models"
)

// KeyPrefix namespaces cached prices by source.
const KeyPrefix = "cg:lastPrice:"

// PriceKey returns the cache key for an asset.
func PriceKey(assetID string) string {
	return KeyPrefix + assetID
}

// Storage wraps a SQLite database holding one last price per asset.
type Storage struct {
	db  *sql.DB
	now func() time.Time
}

// New opens or creates the SQLite database at dbPath.
// An empty dbPath defaults to $TMPDIR/quickodds/cache.db.
func New(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = filepath.Join(os.TempDir(), "quickodds", "cache.db")
	}
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// single writer connection serializes writes per key; WAL allows concurrent readers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}
	s := &Storage{db: db, now: time.Now}
	if err := s.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) createTables() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS price_cache (
			key        TEXT PRIMARY KEY,
			price      REAL NOT NULL,
			updated_at INTEGER NOT NULL
		)`)
	return err
}

// GetPrice returns the cached price for an asset. ok is false when nothing is cached.
func (s *Storage) GetPrice(ctx context.Context, assetID string) (float64, bool, error) {
	var price float64
	err := s.db.QueryRowContext(ctx,
		`SELECT price FROM price_cache WHERE key = ?`, PriceKey(assetID)).Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get price: %w", err)
	}
	return price, true, nil
}

// SetPrice stores the latest price for an asset. Last write wins.
func (s *Storage) SetPrice(ctx context.Context, assetID string, price float64) error {
	if err := models.ValidatePrice(price); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO price_cache (key, price, updated_at) VALUES (?,?,?)
		ON CONFLICT(key) DO UPDATE SET price = excluded.price, updated_at = excluded.updated_at`,
		PriceKey(assetID), price, s.now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to set price: %w", err)
	}
	return nil
}

// LastPrices returns cached prices for the given assets; missing assets are omitted.
func (s *Storage) LastPrices(ctx context.Context, assetIDs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(assetIDs))
	if len(assetIDs) == 0 {
		return out, nil
	}
	args := make([]any, len(assetIDs))
	for i, id := range assetIDs {
		args[i] = PriceKey(id)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(assetIDs)), ",")
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, price FROM price_cache WHERE key IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		var price float64
		if err := rows.Scan(&key, &price); err != nil {
			return nil, fmt.Errorf("failed to scan price: %w", err)
		}
		out[strings.TrimPrefix(key, KeyPrefix)] = price
	}
	return out, rows.Err()
}
