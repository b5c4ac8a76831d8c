package ruleset

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Cache manages the local, TTL-bounded pack cache.
type Cache struct {
	dir string
}

// NewCache opens (creating if needed) a cache rooted at cacheDir.
func NewCache(cacheDir string) (*Cache, error) {
	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache dir: %w", err)
	}
	return &Cache{dir: cacheDir}, nil
}

// Get returns the extracted path for spec if the cached copy is fresh
// and matches expectedChecksum.
func (c *Cache) Get(spec *PackSpec, expectedChecksum string) (string, error) {
	entry, err := c.loadEntry(spec)
	if err != nil {
		return "", err // cache miss
	}

	if time.Now().After(entry.ExpiresAt) {
		return "", fmt.Errorf("cache expired")
	}
	if entry.Checksum != expectedChecksum {
		return "", fmt.Errorf("checksum mismatch")
	}
	if _, err := os.Stat(entry.Path); os.IsNotExist(err) {
		return "", fmt.Errorf("cached path missing")
	}

	return entry.Path, nil
}

// Set records an extracted pack in the cache.
func (c *Cache) Set(spec *PackSpec, extractedPath, checksum string, ttl time.Duration) error {
	entry := &CacheEntry{
		ID:        uuid.NewString(),
		Spec:      *spec,
		Path:      extractedPath,
		Checksum:  checksum,
		CachedAt:  time.Now(),
		ExpiresAt: time.Now().Add(ttl),
	}

	return c.saveEntry(entry)
}

// Invalidate removes a cached pack and its entry.
func (c *Cache) Invalidate(spec *PackSpec) error {
	if err := os.Remove(c.entryPath(spec)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.RemoveAll(c.extractedPath(spec))
}

func (c *Cache) entryPath(spec *PackSpec) string {
	return filepath.Join(c.dir, spec.Channel, fmt.Sprintf("%s.json", spec.Name))
}

func (c *Cache) extractedPath(spec *PackSpec) string {
	return filepath.Join(c.dir, spec.Channel, spec.Name)
}

func (c *Cache) loadEntry(spec *PackSpec) (*CacheEntry, error) {
	data, err := os.ReadFile(c.entryPath(spec))
	if err != nil {
		return nil, err
	}

	var entry CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *Cache) saveEntry(entry *CacheEntry) error {
	path := c.entryPath(&entry.Spec)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// VerifyChecksum compares a file's SHA-256 digest to expectedChecksum.
func VerifyChecksum(filePath, expectedChecksum string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return err
	}

	actual := fmt.Sprintf("%x", h.Sum(nil))
	if actual != expectedChecksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", expectedChecksum, actual)
	}
	return nil
}
