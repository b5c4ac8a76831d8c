package ruleset

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// Downloader fetches, verifies, extracts, and caches rule packs.
// Progress lines go to the injected writer (the CLI passes its logger's
// stderr writer) so library users stay silent.
type Downloader struct {
	config         *DownloadConfig
	cache          *Cache
	manifestLoader ManifestProvider
	httpClient     *http.Client
	progress       io.Writer
}

// NewDownloader creates a downloader writing progress to progress
// (io.Discard is fine).
func NewDownloader(config *DownloadConfig, progress io.Writer) (*Downloader, error) {
	cache, err := NewCache(config.CacheDir)
	if err != nil {
		return nil, err
	}
	if progress == nil {
		progress = io.Discard
	}

	return &Downloader{
		config:         config,
		cache:          cache,
		manifestLoader: NewManifestLoader(config.BaseURL),
		httpClient:     &http.Client{Timeout: config.HTTPTimeout},
		progress:       progress,
	}, nil
}

// Download resolves spec against its channel manifest and returns the
// path to the extracted pack directory, from cache when fresh.
func (d *Downloader) Download(spec string) (string, error) {
	packSpec, err := ParseSpec(spec)
	if err != nil {
		return "", err
	}
	if err := packSpec.Validate(); err != nil {
		return "", err
	}

	manifest, err := d.manifestLoader.LoadChannelManifest(packSpec.Channel)
	if err != nil {
		return "", fmt.Errorf("failed to load manifest: %w", err)
	}

	pack, err := manifest.GetPack(packSpec.Name)
	if err != nil {
		return "", err
	}

	cachedPath, err := d.cache.Get(packSpec, pack.Checksum)
	if err == nil {
		fmt.Fprintf(d.progress, "using cached rule pack %s\n", packSpec)
		return cachedPath, nil
	}

	fmt.Fprintf(d.progress, "downloading rule pack %s\n", packSpec)
	return d.downloadAndCache(packSpec, pack)
}

// downloadAndCache downloads the pack zip, verifies its checksum,
// extracts into a UUID-named scratch directory, and renames it into the
// final cache path so concurrent downloads of the same spec never write
// into each other's extraction directory.
func (d *Downloader) downloadAndCache(spec *PackSpec, pack *PackInfo) (string, error) {
	zipPath, err := d.downloadZip(pack.DownloadURL, pack.ZipSize)
	if err != nil {
		return "", fmt.Errorf("download failed: %w", err)
	}
	defer os.Remove(zipPath)

	if err := VerifyChecksum(zipPath, pack.Checksum); err != nil {
		return "", fmt.Errorf("checksum verification failed: %w", err)
	}

	scratchPath := filepath.Join(d.config.CacheDir, ".tmp-"+uuid.NewString())
	if err := os.MkdirAll(scratchPath, 0755); err != nil {
		return "", err
	}
	defer os.RemoveAll(scratchPath)

	fileCount, err := d.extractZip(zipPath, scratchPath)
	if err != nil {
		return "", fmt.Errorf("extraction failed: %w", err)
	}
	fmt.Fprintf(d.progress, "extracted %d pack files\n", fileCount)

	extractPath := filepath.Join(d.config.CacheDir, spec.Channel, spec.Name)
	if err := os.MkdirAll(filepath.Dir(extractPath), 0755); err != nil {
		return "", err
	}
	if err := os.RemoveAll(extractPath); err != nil {
		return "", fmt.Errorf("failed to clear stale cache entry: %w", err)
	}
	if err := os.Rename(scratchPath, extractPath); err != nil {
		return "", fmt.Errorf("failed to finalize extraction: %w", err)
	}

	if err := d.cache.Set(spec, extractPath, pack.Checksum, d.config.CacheTTL); err != nil {
		return "", fmt.Errorf("cache save failed: %w", err)
	}

	return extractPath, nil
}

// downloadZip fetches url to a temp file with retry and size checking.
func (d *Downloader) downloadZip(url string, expectedSize int64) (string, error) {
	tempFile, err := os.CreateTemp("", "rulepack-*.zip")
	if err != nil {
		return "", err
	}
	defer tempFile.Close()

	var lastErr error
	for attempt := 0; attempt < d.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			fmt.Fprintf(d.progress, "retry %d/%d\n", attempt, d.config.RetryAttempts)
			time.Sleep(time.Second * time.Duration(attempt))
			if err := tempFile.Truncate(0); err != nil {
				lastErr = err
				continue
			}
			if _, err := tempFile.Seek(0, io.SeekStart); err != nil {
				lastErr = err
				continue
			}
		}

		req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
		if err != nil {
			lastErr = err
			continue
		}

		resp, err := d.httpClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
			continue
		}

		written, err := io.Copy(tempFile, resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}

		if expectedSize > 0 && written != expectedSize {
			lastErr = fmt.Errorf("size mismatch: expected %d, got %d", expectedSize, written)
			continue
		}

		return tempFile.Name(), nil
	}

	return "", fmt.Errorf("download failed after %d attempts: %w", d.config.RetryAttempts, lastErr)
}

// extractZip extracts zipPath into destDir and returns the file count.
func (d *Downloader) extractZip(zipPath, destDir string) (int, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	count := 0
	for _, f := range r.File {
		if err := extractFile(f, destDir); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// extractFile writes one zip member under destDir, refusing paths that
// escape it (zip slip).
func extractFile(f *zip.File, destDir string) error {
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()

	path := filepath.Join(destDir, f.Name)

	cleanDest := filepath.Clean(destDir)
	cleanPath := filepath.Clean(path)
	relPath, err := filepath.Rel(cleanDest, cleanPath)
	if err != nil || len(relPath) > 0 && (relPath[0:1] == "." || filepath.IsAbs(relPath)) {
		return fmt.Errorf("illegal file path: %s", f.Name)
	}

	if f.FileInfo().IsDir() {
		return os.MkdirAll(path, f.Mode())
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	outFile, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
	if err != nil {
		return err
	}
	defer outFile.Close()

	_, err = io.Copy(outFile, rc)
	return err
}

// RefreshCache drops the cached copy of spec so the next Download
// re-fetches it.
func (d *Downloader) RefreshCache(spec string) error {
	packSpec, err := ParseSpec(spec)
	if err != nil {
		return err
	}

	return d.cache.Invalidate(packSpec)
}
