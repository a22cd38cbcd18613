package database

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/adrata/backend/internal/config"
)

// Connection wraps the pooled *sql.DB shared by every repository.
// sql.DB is already safe for concurrent use; no extra locking is added.
type Connection struct {
	db *sql.DB
}

var tlsOnce sync.Once

// DSN renders the driver DSN. Remote hosts (TiDB Cloud) use the registered "tidb" TLS config.
func DSN(cfg config.DatabaseConfig) string {
	tlsParam := ""
	if !cfg.IsLocal() {
		tlsParam = "&tls=tidb"
	}
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Database, tlsParam)
}

// Open connects and pings the database.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*Connection, error) {
	if !cfg.IsLocal() {
		var regErr error
		tlsOnce.Do(func() {
			regErr = mysql.RegisterTLSConfig("tidb", &tls.Config{
				MinVersion: tls.VersionTLS12,
				ServerName: cfg.Host,
			})
		})
		if regErr != nil {
			return nil, fmt.Errorf("failed to register TLS config: %w", regErr)
		}
	}

	db, err := sql.Open("mysql", DSN(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Idle must equal open so bursts of enrichment writes do not churn ports.
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(3 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Connection{db: db}, nil
}

// Wrap adopts an existing handle, e.g. a sqlmock database in tests.
func Wrap(db *sql.DB) *Connection {
	return &Connection{db: db}
}

// DB returns the underlying *sql.DB
func (c *Connection) DB() *sql.DB {
	return c.db
}

// BeginTx starts a new transaction with context
func (c *Connection) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return c.db.BeginTx(ctx, opts)
}

// Close closes the database connection
func (c *Connection) Close() error {
	return c.db.Close()
}
