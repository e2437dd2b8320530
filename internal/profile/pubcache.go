// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package profile

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/reviewer-match/pkg/types"
)

// PubCache stores resolved URL → publication metadata in SQLite so that a
// profile build interrupted mid-way does not refetch pages it already
// resolved. Unlike the profile artifact, entries here survive partial
// builds on purpose: they are keyed per URL and each one is complete.
type PubCache struct {
	db *sql.DB
}

// OpenPubCache opens or creates the cache database at path, creating the
// schema if needed.
func OpenPubCache(path string) (*PubCache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating pub cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening pub cache: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS publications (
		url TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		abstract TEXT NOT NULL,
		fetched_at TEXT NOT NULL
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating pub cache schema: %w", err)
	}

	return &PubCache{db: db}, nil
}

// Close releases the database connection.
func (c *PubCache) Close() error {
	return c.db.Close()
}

// Get returns the cached metadata for url, if present.
func (c *PubCache) Get(ctx context.Context, url string) (types.Publication, bool, error) {
	var pub types.Publication
	err := c.db.QueryRowContext(ctx,
		`SELECT title, abstract FROM publications WHERE url = ?`, url,
	).Scan(&pub.Title, &pub.Abstract)
	if err == sql.ErrNoRows {
		return types.Publication{}, false, nil
	}
	if err != nil {
		return types.Publication{}, false, fmt.Errorf("querying pub cache: %w", err)
	}
	return pub, true, nil
}

// Put records resolved metadata for url, replacing any prior entry.
func (c *PubCache) Put(ctx context.Context, url string, pub types.Publication) error {
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO publications (url, title, abstract, fetched_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url) DO UPDATE SET
			title=excluded.title, abstract=excluded.abstract, fetched_at=excluded.fetched_at`,
		url, pub.Title, pub.Abstract, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing pub cache entry: %w", err)
	}
	return nil
}
