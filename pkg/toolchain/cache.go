package toolchain

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite" // SQLite driver
)

// Cache persists tool probe results in a local SQLite database so repeat
// configure passes skip re-executing `--version` probes. Entries are keyed
// by a digest of the tool binary's identity (path, size, mtime), so a
// toolchain upgrade invalidates the cached row naturally.
type Cache struct {
	db *sql.DB
}

// Entry is one cached probe result.
type Entry struct {
	Key      string
	Name     string
	Path     string
	Version  string
	ProbedAt time.Time
}

const cacheSchema = `
CREATE TABLE IF NOT EXISTS tool_probes (
	key       TEXT PRIMARY KEY,
	name      TEXT NOT NULL,
	path      TEXT NOT NULL,
	version   TEXT NOT NULL,
	probed_at TEXT NOT NULL
);`

// OpenCache opens (or creates) the probe cache at the given path.
func OpenCache(path string) (*Cache, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_journal_mode=WAL&_busy_timeout=5000", path,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open probe cache: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping probe cache: %w", err)
	}

	if _, err := db.Exec(cacheSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize probe cache schema: %w", err)
	}

	// SQLite only supports one writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// ProbeKey derives the cache key for a tool binary from its path, size and
// modification time.
func ProbeKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("failed to stat tool %s: %w", path, err)
	}

	hasher, err := blake2b.New256(nil)
	if err != nil {
		return "", fmt.Errorf("failed to create hasher: %w", err)
	}
	fmt.Fprintf(hasher, "%s|%d|%d", path, info.Size(), info.ModTime().UnixNano())

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// Lookup returns the cached entry for a key, if present.
func (c *Cache) Lookup(key string) (Entry, bool, error) {
	var entry Entry
	var probedAt string

	row := c.db.QueryRow(
		`SELECT key, name, path, version, probed_at FROM tool_probes WHERE key = ?`, key)
	if err := row.Scan(&entry.Key, &entry.Name, &entry.Path, &entry.Version, &probedAt); err != nil {
		if err == sql.ErrNoRows {
			return Entry{}, false, nil
		}
		return Entry{}, false, fmt.Errorf("failed to query probe cache: %w", err)
	}

	parsed, err := time.Parse(time.RFC3339Nano, probedAt)
	if err != nil {
		return Entry{}, false, fmt.Errorf("corrupt probed_at in cache: %w", err)
	}
	entry.ProbedAt = parsed

	return entry, true, nil
}

// Store inserts or replaces a probe entry.
func (c *Cache) Store(entry Entry) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO tool_probes (key, name, path, version, probed_at) VALUES (?, ?, ?, ?, ?)`,
		entry.Key, entry.Name, entry.Path, entry.Version,
		entry.ProbedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to store probe entry: %w", err)
	}
	return nil
}
