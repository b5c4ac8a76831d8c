package ruleset

import (
	"archive/zip"
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildPackZip assembles an in-memory zip of YAML pack files.
func buildPackZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, content := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

// packRegistry serves a one-channel, one-pack registry: the manifest at
// /node/manifest.json and the zip at /node/core.zip.
func packRegistry(t *testing.T, zipBytes []byte) *httptest.Server {
	t.Helper()
	checksum := fmt.Sprintf("%x", sha256.Sum256(zipBytes))

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/node/manifest.json":
			manifest := &Manifest{
				Version: "1",
				Channel: "node",
				Packs: map[string]*PackInfo{
					"core": {
						Name:        "core",
						Rules:       []string{"S001"},
						ZipSize:     int64(len(zipBytes)),
						Checksum:    checksum,
						DownloadURL: srv.URL + "/node/core.zip",
					},
				},
			}
			require.NoError(t, json.NewEncoder(w).Encode(manifest))
		case "/node/core.zip":
			_, _ = w.Write(zipBytes)
		default:
			http.NotFound(w, r)
		}
	}))
	return srv
}

func newTestDownloader(t *testing.T, baseURL string) *Downloader {
	t.Helper()
	d, err := NewDownloader(&DownloadConfig{
		BaseURL:       baseURL,
		CacheDir:      t.TempDir(),
		CacheTTL:      time.Hour,
		HTTPTimeout:   5 * time.Second,
		RetryAttempts: 2,
	}, io.Discard)
	require.NoError(t, err)
	return d
}

func TestDownloadExtractsAndCaches(t *testing.T) {
	zipBytes := buildPackZip(t, map[string]string{
		"severity.yaml": "version: \"1\"\nseverity:\n  S001: error\n",
	})
	srv := packRegistry(t, zipBytes)
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	path, err := d.Download("node/core")
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(path, "severity.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "S001: error")

	// second download comes from cache: same path, no error even if the
	// registry disappeared.
	srv.Close()
	again, err := d.Download("node/core")
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestDownloadRejectsCorruptedZip(t *testing.T) {
	zipBytes := buildPackZip(t, map[string]string{"severity.yaml": "version: \"1\"\n"})
	checksum := fmt.Sprintf("%x", sha256.Sum256(zipBytes))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/node/manifest.json":
			manifest := &Manifest{
				Channel: "node",
				Packs: map[string]*PackInfo{
					"core": {Name: "core", Checksum: checksum, DownloadURL: "placeholder"},
				},
			}
			// serve a zip whose bytes won't match the advertised checksum.
			manifest.Packs["core"].DownloadURL = "http://" + r.Host + "/node/core.zip"
			require.NoError(t, json.NewEncoder(w).Encode(manifest))
		case "/node/core.zip":
			_, _ = w.Write([]byte("tampered bytes"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)
	_, err := d.Download("node/core")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "checksum")
}

func TestDownloadUnknownPack(t *testing.T) {
	zipBytes := buildPackZip(t, map[string]string{"severity.yaml": "version: \"1\"\n"})
	srv := packRegistry(t, zipBytes)
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)
	_, err := d.Download("node/nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pack not found")
}

func TestDownloadInvalidSpec(t *testing.T) {
	d := newTestDownloader(t, "http://unused.invalid")
	_, err := d.Download("not-a-spec")
	assert.Error(t, err)
}

func TestRefreshCacheForcesRedownload(t *testing.T) {
	zipBytes := buildPackZip(t, map[string]string{
		"severity.yaml": "version: \"1\"\nseverity:\n  S001: error\n",
	})
	srv := packRegistry(t, zipBytes)
	defer srv.Close()

	d := newTestDownloader(t, srv.URL)

	first, err := d.Download("node/core")
	require.NoError(t, err)
	require.NoError(t, d.RefreshCache("node/core"))

	_, statErr := os.Stat(first)
	assert.True(t, os.IsNotExist(statErr), "invalidation removes the extracted directory")

	again, err := d.Download("node/core")
	require.NoError(t, err)
	assert.Equal(t, first, again)
}

func TestExtractFileRejectsZipSlip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("../escape.yaml")
	require.NoError(t, err)
	_, err = w.Write([]byte("nope"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	err = extractFile(zr.File[0], t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "illegal file path")
}
