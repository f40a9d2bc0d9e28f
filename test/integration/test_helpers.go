//go:build integration

package integration

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"go-file-browser/internal/app"
	"go-file-browser/internal/config"
)

func testConfig(dataDir string) *config.Config {
	return &config.Config{
		DataDir:                 dataDir,
		ListenAddress:           "127.0.0.1",
		ServerPort:              "0",
		ServerReadHeaderTimeout: 5 * time.Second,
		ServerIdleTimeout:       30 * time.Second,
		RequestTimeout:          10 * time.Second,
		TransferMaxDuration:     time.Minute,
		TransferIdleTimeout:     10 * time.Second,
		CORSOrigins:             []string{"*"},
		RateLimitRPM:            1000,
		LogLevel:                "error",
		LogFormat:               "pretty",
		MetricsEnabled:          true,
		ArchiveChunkSize:        32 * 1024,
		ThumbnailMaxPixels:      40_000_000,
	}
}

// newServer serves a fresh data directory populated from files. Keys ending
// in "/" create directories.
func newServer(t *testing.T, files map[string]string) (*httptest.Server, string) {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		target := filepath.Join(root, filepath.FromSlash(name))
		if name[len(name)-1] == '/' {
			require.NoError(t, os.MkdirAll(target, 0o755))
			continue
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(target), 0o755))
		require.NoError(t, os.WriteFile(target, []byte(content), 0o644))
	}

	return newServerWithConfig(t, testConfig(root)), root
}

func newServerWithConfig(t *testing.T, cfg *config.Config) *httptest.Server {
	t.Helper()

	application, err := app.New(cfg)
	require.NoError(t, err)

	server := httptest.NewServer(application.Handler())
	t.Cleanup(server.Close)

	return server
}

// noRedirectClient returns redirects to the caller instead of following them.
func noRedirectClient() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func doRequest(t *testing.T, client *http.Client, req *http.Request) *http.Response {
	t.Helper()

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}

func mustNewRequest(t *testing.T, method string, url string, body io.Reader) *http.Request {
	t.Helper()

	req, err := http.NewRequest(method, url, body)
	require.NoError(t, err)

	return req
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return body
}

// readZip returns the entry names in order and the contents of file entries.
func readZip(t *testing.T, data []byte) ([]string, map[string]string) {
	t.Helper()

	reader, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)

	names := make([]string, 0, len(reader.File))
	contents := map[string]string{}
	for _, entry := range reader.File {
		names = append(names, entry.Name)
		if entry.FileInfo().IsDir() {
			continue
		}

		rc, err := entry.Open()
		require.NoError(t, err)
		content, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		contents[entry.Name] = string(content)
	}

	return names, contents
}
