// Package cache stores fetched playlist bodies on disk so a refresh can fall
// back to the last known-good copy when an upstream source is unreachable.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Store defines the cache operations the playlist source needs.
type Store interface {
	Get(url string) (*Entry, error)
	Set(url string, body []byte) error
	Age(url string) (time.Duration, error)
}

// Entry is one cached playlist body with its fetch time.
type Entry struct {
	Body      []byte    `json:"body"`
	FetchedAt time.Time `json:"fetched_at"`
}

// FileCache implements Store on the local file system. Each subscription URL
// maps to one file named by the URL's hash.
type FileCache struct {
	baseDir string
	now     func() time.Time
}

// NewFileCache creates a file-backed playlist cache rooted at baseDir,
// creating the directory if needed.
func NewFileCache(baseDir string) (*FileCache, error) {
	if baseDir == "" {
		return nil, fmt.Errorf("cache directory cannot be empty")
	}
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileCache{baseDir: baseDir, now: time.Now}, nil
}

// Get retrieves the cached playlist for a subscription URL. A missing entry
// surfaces as os.ErrNotExist.
func (c *FileCache) Get(url string) (*Entry, error) {
	data, err := os.ReadFile(c.pathFor(url))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no cached playlist for %s: %w", url, err)
		}
		return nil, fmt.Errorf("failed to read cached playlist: %w", err)
	}

	var entry Entry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached playlist: %w", err)
	}
	return &entry, nil
}

// Set stores a freshly fetched playlist body, stamped with the current time.
func (c *FileCache) Set(url string, body []byte) error {
	entry := Entry{Body: body, FetchedAt: c.now()}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	path := c.pathFor(url)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create cache subdirectory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write cache file: %w", err)
	}
	return nil
}

// Age reports how old the cached playlist for a URL is. A missing entry
// surfaces as os.ErrNotExist, wrapped.
func (c *FileCache) Age(url string) (time.Duration, error) {
	entry, err := c.Get(url)
	if err != nil {
		return 0, err
	}
	return c.now().Sub(entry.FetchedAt), nil
}

// pathFor hashes the URL so arbitrary subscription URLs map to safe
// filenames.
func (c *FileCache) pathFor(url string) string {
	sum := sha256.Sum256([]byte(url))
	return filepath.Join(c.baseDir, hex.EncodeToString(sum[:])+".json")
}
