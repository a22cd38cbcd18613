package enrichment

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteCacheSchema = `
CREATE TABLE IF NOT EXISTS enrichment_cache (
	key       TEXT PRIMARY KEY,
	source    TEXT NOT NULL,
	payload   BLOB NOT NULL,
	stored_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_enrichment_cache_stored_at ON enrichment_cache(stored_at);
`

// SQLiteCache persists provider results across runs so repeated CLI
// invocations do not pay for the same vendor lookup twice.
type SQLiteCache struct {
	db     *sql.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
	now    func() time.Time
}

func OpenSQLiteCache(path string, ttl time.Duration) (*SQLiteCache, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open enrichment cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout=5000"} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}
	if _, err := db.Exec(sqliteCacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize enrichment cache: %w", err)
	}
	return &SQLiteCache{db: db, ttl: ttl, now: time.Now}, nil
}

func (c *SQLiteCache) fresh(storedAt int64) bool {
	return c.ttl <= 0 || c.now().Sub(time.Unix(storedAt, 0)) <= c.ttl
}

func (c *SQLiteCache) Get(ctx context.Context, key string) (*Result, bool) {
	var payload []byte
	var storedAt int64
	err := c.db.QueryRowContext(ctx,
		"SELECT payload, stored_at FROM enrichment_cache WHERE key = ?", key).Scan(&payload, &storedAt)
	if err != nil || !c.fresh(storedAt) {
		c.misses.Add(1)
		return nil, false
	}

	result, err := FromJSON(payload)
	if err != nil {
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return result, true
}

func (c *SQLiteCache) Set(ctx context.Context, key string, result *Result) {
	payload, err := result.ToJSON()
	if err != nil {
		return
	}
	_, _ = c.db.ExecContext(ctx,
		`INSERT INTO enrichment_cache (key, source, payload, stored_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET source = excluded.source, payload = excluded.payload, stored_at = excluded.stored_at`,
		key, result.Source, payload, c.now().Unix())
}

// Purge deletes expired rows.
func (c *SQLiteCache) Purge(ctx context.Context) (int64, error) {
	if c.ttl <= 0 {
		return 0, nil
	}
	cutoff := c.now().Add(-c.ttl).Unix()
	res, err := c.db.ExecContext(ctx, "DELETE FROM enrichment_cache WHERE stored_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge enrichment cache: %w", err)
	}
	return res.RowsAffected()
}

func (c *SQLiteCache) Stats() CacheStats {
	var size int
	_ = c.db.QueryRow("SELECT COUNT(*) FROM enrichment_cache").Scan(&size)
	return CacheStats{Hits: c.hits.Load(), Misses: c.misses.Load(), Size: size}
}

// Close purges expired rows and closes the database.
func (c *SQLiteCache) Close() error {
	_, _ = c.Purge(context.Background())
	return c.db.Close()
}
