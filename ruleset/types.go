package ruleset

import "time"

// PackSpec identifies a downloadable rule pack as "channel/name",
// e.g. "node/express-hardening" or "community/react".
type PackSpec struct {
	Channel string
	Name    string
}

// Manifest describes one channel's downloadable packs. Served as JSON
// from the pack registry; field names match the registry's wire format.
type Manifest struct {
	Version     string               `json:"version,omitempty"`
	Channel     string               `json:"channel,omitempty"`
	Description string               `json:"description,omitempty"`
	Packs       map[string]*PackInfo `json:"packs"`
	BaseURL     string               `json:"base_url,omitempty"`
}

// PackInfo is one pack's manifest entry.
type PackInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Rules       []string `json:"rules,omitempty"` // rule IDs the pack configures
	Recommended bool     `json:"recommended"`
	FileCount   int      `json:"file_count,omitempty"`
	ZipSize     int64    `json:"zip_size,omitempty"`
	Checksum    string   `json:"checksum,omitempty"`
	DownloadURL string   `json:"download_url,omitempty"`
}

// CacheEntry tracks one cached pack. ID is minted once when the entry
// is first written and names the entry's extraction scratch directory,
// so concurrent downloads of the same spec never collide before the
// atomic rename into the final cache path.
type CacheEntry struct {
	ID        string    `json:"id"`
	Spec      PackSpec  `json:"spec"`
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// DownloadConfig configures the downloader.
type DownloadConfig struct {
	BaseURL       string
	CacheDir      string
	CacheTTL      time.Duration
	HTTPTimeout   time.Duration
	RetryAttempts int
}

// ManifestProvider loads channel manifests; tests substitute a mock.
type ManifestProvider interface {
	LoadChannelManifest(channel string) (*Manifest, error)
}
