package ruleset

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

// ManifestLoader fetches channel manifests from the pack registry.
type ManifestLoader struct {
	baseURL    string
	httpClient *http.Client
}

// NewManifestLoader creates a loader against baseURL.
func NewManifestLoader(baseURL string) *ManifestLoader {
	return &ManifestLoader{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// LoadChannelManifest fetches and parses one channel's manifest.
// TODO: Implement ETag caching
func (m *ManifestLoader) LoadChannelManifest(channel string) (*Manifest, error) {
	url := fmt.Sprintf("%s/%s/manifest.json", m.baseURL, channel)

	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch manifest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest fetch failed: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(body, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	return &manifest, nil
}

// GetPack retrieves one pack's metadata from the manifest.
func (m *Manifest) GetPack(name string) (*PackInfo, error) {
	pack, exists := m.Packs[name]
	if !exists {
		return nil, fmt.Errorf("pack not found: %s", name)
	}
	return pack, nil
}

// PackNames returns the manifest's pack names sorted for deterministic
// listing (used when a caller expands "channel/all").
func (m *Manifest) PackNames() []string {
	names := make([]string, 0, len(m.Packs))
	for name := range m.Packs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
