package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/tracegas-cli/internal/adapters/driven/storage/sqlite/migrations"
	"github.com/custodia-labs/tracegas-cli/internal/core/domain"
	"github.com/custodia-labs/tracegas-cli/internal/core/ports/driven"
)

// Store is a SQLite database holding cached catalogue results.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store at the specified data directory.
// If dataDir is empty, defaults to ~/.tracegas/data/cache.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".tracegas", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "cache.db")

	// WAL lets a watch session and a one-shot command share the file.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// ProductCache returns a ProductCache backed by this store. Entries older
// than ttl are treated as missing.
func (s *Store) ProductCache(ttl time.Duration) driven.ProductCache {
	return &productCache{store: s, ttl: ttl, now: time.Now}
}

// migrate runs all pending migrations and records each applied version.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		if name := entry.Name(); strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		// "001_products.up.sql" -> 1
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning migration %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %s: %w", name, err)
		}
	}

	return nil
}

// ==================== Product Cache ====================

// productCache implements driven.ProductCache.
type productCache struct {
	store *Store
	ttl   time.Duration
	now   func() time.Time
}

var _ driven.ProductCache = (*productCache)(nil)

// Get returns the products cached for scope on day.
func (c *productCache) Get(ctx context.Context, scope string, day domain.DateKey) ([]domain.Product, bool, error) {
	var payload string
	var cachedAt int64
	err := c.store.db.QueryRowContext(ctx,
		"SELECT payload, cached_at FROM products WHERE scope = ? AND day = ?",
		scope, day.String(),
	).Scan(&payload, &cachedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading cached products: %w", err)
	}

	if c.ttl > 0 && c.now().Sub(time.Unix(cachedAt, 0)) > c.ttl {
		return nil, false, nil
	}

	var products []domain.Product
	if err := json.Unmarshal([]byte(payload), &products); err != nil {
		return nil, false, fmt.Errorf("decoding cached products: %w", err)
	}
	return products, true, nil
}

// Put replaces the cached products for scope on day and drops
// expired rows.
func (c *productCache) Put(ctx context.Context, scope string, day domain.DateKey, products []domain.Product) error {
	payload, err := json.Marshal(products)
	if err != nil {
		return fmt.Errorf("encoding products: %w", err)
	}

	now := c.now()
	_, err = c.store.db.ExecContext(ctx,
		`INSERT INTO products (scope, day, payload, cached_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT (scope, day) DO UPDATE SET payload = excluded.payload, cached_at = excluded.cached_at`,
		scope, day.String(), string(payload), now.Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing products: %w", err)
	}

	if c.ttl > 0 {
		cutoff := now.Add(-c.ttl).Unix()
		if _, err := c.store.db.ExecContext(ctx, "DELETE FROM products WHERE cached_at < ?", cutoff); err != nil {
			return fmt.Errorf("pruning products: %w", err)
		}
	}
	return nil
}

// Clear removes every cached entry.
func (c *productCache) Clear(ctx context.Context) error {
	if _, err := c.store.db.ExecContext(ctx, "DELETE FROM products"); err != nil {
		return fmt.Errorf("clearing products: %w", err)
	}
	return nil
}
