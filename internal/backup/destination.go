package backup

import (
	"fmt"
	"io"

	"github.com/yourusername/backup-manager/internal/config"
)

// Destination is an offsite copy target for finished archives
type Destination interface {
	// Upload copies an archive from the reader to the destination
	Upload(filename string, reader io.Reader, sizeBytes int64) error

	// GetType returns the destination type identifier
	GetType() string
}

// NewDestination creates a destination from config
func NewDestination(cfg *config.DestinationConfig) (Destination, error) {
	switch cfg.Type {
	case "local":
		return NewLocalDestination(cfg.Path), nil
	case "sftp":
		return NewSFTPDestination(cfg)
	case "s3":
		return NewS3Destination(cfg)
	default:
		return nil, fmt.Errorf("unsupported destination type: %s", cfg.Type)
	}
}
