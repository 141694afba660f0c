package replay

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cassetteGet(t *testing.T, c *HTTPCassette, url string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := c.RoundTrip(req)
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()
	return resp, string(body)
}

func TestHTTPCassette_RecordsAndReplays(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("live body"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "http.yaml")
	c, err := OpenHTTPCassette(path, ModeNewEpisodes, nil)
	require.NoError(t, err)

	resp, body := cassetteGet(t, c, srv.URL+"/page")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live body", body)
	assert.Equal(t, 1, hits)

	// Second request replays without touching the server.
	resp, body = cassetteGet(t, c, srv.URL+"/page")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "live body", body)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
	assert.Equal(t, 1, hits)
}

func TestHTTPCassette_ModeNoneRequiresEpisode(t *testing.T) {
	c, err := OpenHTTPCassette(filepath.Join(t.TempDir(), "http.yaml"), ModeNone, nil)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, "https://example.com/missing", nil)
	require.NoError(t, err)
	_, err = c.RoundTrip(req)
	assert.Error(t, err)
}

func TestHTTPCassette_ModeAllAlwaysHitsNetwork(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("fresh"))
	}))
	defer srv.Close()

	c, err := OpenHTTPCassette(filepath.Join(t.TempDir(), "http.yaml"), ModeAll, nil)
	require.NoError(t, err)

	cassetteGet(t, c, srv.URL)
	cassetteGet(t, c, srv.URL)
	assert.Equal(t, 2, hits)
}

func TestHTTPCassette_ModeOptionalPassesThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pass"))
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "http.yaml")
	c, err := OpenHTTPCassette(path, ModeOptional, nil)
	require.NoError(t, err)

	_, body := cassetteGet(t, c, srv.URL)
	assert.Equal(t, "pass", body)

	// Pass-through never records, so a save leaves no file behind.
	require.NoError(t, c.Save())
	assert.NoFileExists(t, path)
}

func TestHTTPCassette_SaveAndReload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte("gone"))
	}))

	path := filepath.Join(t.TempDir(), "http.yaml")
	c, err := OpenHTTPCassette(path, ModeNewEpisodes, nil)
	require.NoError(t, err)
	cassetteGet(t, c, srv.URL+"/a")
	require.NoError(t, c.Save())
	srv.Close()

	// A fresh cassette in replay-only mode answers from disk.
	reloaded, err := OpenHTTPCassette(path, ModeNone, nil)
	require.NoError(t, err)
	resp, body := cassetteGet(t, reloaded, srv.URL+"/a")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "gone", body)
}

func TestEpisodeKey_DistinguishesParts(t *testing.T) {
	assert.NotEqual(t,
		EpisodeKey("GET", "https://example.com/a", nil),
		EpisodeKey("POST", "https://example.com/a", nil))
	assert.NotEqual(t,
		EpisodeKey("POST", "https://example.com/a", []byte("x")),
		EpisodeKey("POST", "https://example.com/a", []byte("y")))
	assert.Equal(t,
		EpisodeKey("GET", "https://example.com/a", nil),
		EpisodeKey("GET", "https://example.com/a", []byte{}))
}
