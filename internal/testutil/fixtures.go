package testutil

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"
)

// ZipBytes builds an in-memory ZIP archive. Names ending in "/" become
// directory entries.
func ZipBytes(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(files[name])); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// WriteZip writes a ZIP archive with the given files to dir/name and returns
// its path.
func WriteZip(t *testing.T, dir, name string, files map[string]string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, ZipBytes(t, files), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// FeedAsset is one asset in a GitHub-style release feed fixture.
type FeedAsset struct {
	Name string `json:"name"`
	URL  string `json:"browser_download_url"`
	Size int    `json:"size,omitempty"`
}

// FeedRelease is one entry in a GitHub-style release feed fixture.
// PublishedAt is written verbatim so malformed values can be tested; an
// empty string is sent as JSON null.
type FeedRelease struct {
	TagName     string      `json:"tag_name"`
	Body        string      `json:"body"`
	PublishedAt string      `json:"-"`
	Prerelease  bool        `json:"prerelease"`
	Draft       bool        `json:"draft"`
	Assets      []FeedAsset `json:"assets"`
}

// MarshalJSON renders published_at verbatim or as null.
func (r FeedRelease) MarshalJSON() ([]byte, error) {
	type plain FeedRelease
	body, err := json.Marshal(plain(r))
	if err != nil {
		return nil, err
	}

	published := []byte("null")
	if r.PublishedAt != "" {
		published = []byte(strconv.Quote(r.PublishedAt))
	}

	out := append([]byte(`{"published_at":`), published...)
	out = append(out, ',')
	return append(out, body[1:]...), nil
}

// FeedServer serves releases at /repos/{owner}/{repo}/releases and returns
// the server. The server is closed when the test ends.
func FeedServer(t *testing.T, owner, repo string, releases []FeedRelease) *httptest.Server {
	t.Helper()

	body, err := json.Marshal(releases)
	if err != nil {
		t.Fatal(err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(fmt.Sprintf("/repos/%s/%s/releases", owner, repo), func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// AssetServer serves payload at every path with a Content-Length header
// unless chunked is true.
func AssetServer(t *testing.T, payload []byte, chunked bool) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if chunked {
			flusher, _ := w.(http.Flusher)
			w.WriteHeader(http.StatusOK)
			const step = 4096
			for i := 0; i < len(payload); i += step {
				end := min(i+step, len(payload))
				_, _ = w.Write(payload[i:end])
				if flusher != nil {
					flusher.Flush()
				}
			}
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}
