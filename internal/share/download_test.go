package share

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"testing"
)

func splitHostPort(t *testing.T, server *httptest.Server) (string, int) {
	t.Helper()
	u, err := url.Parse(server.URL)
	if err != nil {
		t.Fatalf("failed to parse server URL: %v", err)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("failed to parse server port: %v", err)
	}
	return u.Hostname(), port
}

func TestDownload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/backup-20250101.zip" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("zipdata"))
	}))
	defer server.Close()

	host, port := splitHostPort(t, server)
	tempDir := t.TempDir()

	path, err := Download(context.Background(), host, port, "backup-20250101.zip", tempDir)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if path != filepath.Join(tempDir, "backup-20250101.zip") {
		t.Errorf("unexpected download path %s", path)
	}

	data, err := os.ReadFile(path)
	if err != nil || string(data) != "zipdata" {
		t.Errorf("expected downloaded archive, got %q (%v)", data, err)
	}
}

func TestDownloadMissingFile(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	host, port := splitHostPort(t, server)
	tempDir := t.TempDir()

	if _, err := Download(context.Background(), host, port, "backup-20250101.zip", tempDir); err == nil {
		t.Fatal("expected error for 404 response")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no artifacts after failed download, got %v", entries)
	}
}

func TestDownloadUnreachablePeer(t *testing.T) {
	tempDir := t.TempDir()

	// Reserved TEST-NET address, nothing listens there.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Download(ctx, "192.0.2.1", 9999, "backup-20250101.zip", tempDir); err == nil {
		t.Fatal("expected error for unreachable peer")
	}

	entries, err := os.ReadDir(tempDir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no artifacts, got %v", entries)
	}
}
