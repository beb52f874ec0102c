package share

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Download fetches a single archive from a peer's share session into the
// temp directory and returns its local path. A failed fetch leaves no file
// behind: data is written to a .part file that is removed on any error.
func Download(ctx context.Context, ip string, port int, filename, tempDir string) (string, error) {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create temp directory: %w", err)
	}

	url := fmt.Sprintf("http://%s:%d/%s", ip, port, filename)
	log.Printf("[Download] Fetching %s", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	client := &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: 30 * time.Second,
		},
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch archive: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("failed to fetch archive: server returned %s", resp.Status)
	}

	finalPath := filepath.Join(tempDir, filename)
	partPath := finalPath + ".part"

	out, err := os.Create(partPath)
	if err != nil {
		return "", fmt.Errorf("failed to create download file: %w", err)
	}

	written, err := io.Copy(out, resp.Body)
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("failed to download archive: %w", err)
	}

	if err := os.Rename(partPath, finalPath); err != nil {
		os.Remove(partPath)
		return "", fmt.Errorf("failed to finalize download: %w", err)
	}

	log.Printf("[Download] Saved %s (%d bytes)", finalPath, written)
	return finalPath, nil
}
