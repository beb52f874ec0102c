package backup

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
)

// LocalDestination copies archives to another local directory
type LocalDestination struct {
	basePath string
}

// NewLocalDestination creates a new local destination
func NewLocalDestination(basePath string) *LocalDestination {
	return &LocalDestination{basePath: basePath}
}

// Upload copies an archive into the destination directory
func (ld *LocalDestination) Upload(filename string, reader io.Reader, sizeBytes int64) error {
	if err := os.MkdirAll(ld.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	destPath := filepath.Join(ld.basePath, filename)
	log.Printf("[LocalDest] Copying %s to %s (%d bytes)", filename, destPath, sizeBytes)

	file, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("failed to create destination file: %w", err)
	}
	defer file.Close()

	written, err := io.Copy(file, reader)
	if err != nil {
		os.Remove(destPath)
		return fmt.Errorf("failed to write destination file: %w", err)
	}

	if written != sizeBytes {
		os.Remove(destPath)
		return fmt.Errorf("size mismatch: expected %d bytes, wrote %d bytes", sizeBytes, written)
	}

	return nil
}

// Exists checks whether an archive exists at the destination
func (ld *LocalDestination) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(ld.basePath, filename))
	return err == nil
}

// GetType returns the destination type
func (ld *LocalDestination) GetType() string {
	return "local"
}
