package backup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ErrNoBackups indicates that no archive matching the naming convention
// exists in the archive directory.
var ErrNoBackups = errors.New("no backups found")

const (
	archivePrefix = "backup-"
	archiveExt    = ".zip"

	archiveTimeLayout = "20060102150405"
	archiveDateLayout = "20060102"
)

// NormalizeLevel clamps a compression level into the 0-9 range.
// 0 stores entries uncompressed; out-of-range values fall back to 6.
func NormalizeLevel(level int) int {
	if level < 0 || level > 9 {
		return 6
	}
	return level
}

// ArchiveName returns the timestamped archive filename for the given time
func ArchiveName(t time.Time) string {
	return archivePrefix + t.Format(archiveTimeLayout) + archiveExt
}

// DefaultRemoteName returns the date-based filename expected from a peer.
// The peer's exact creation timestamp is unknowable, so only the date is used.
func DefaultRemoteName(t time.Time) string {
	return archivePrefix + t.Format(archiveDateLayout) + archiveExt
}

// IsArchiveName reports whether a filename follows the archive convention
func IsArchiveName(name string) bool {
	return strings.HasPrefix(name, archivePrefix) && strings.HasSuffix(name, archiveExt)
}

// LatestArchive returns the path of the newest archive in dir by
// modification time. Returns ErrNoBackups when none match the convention.
func LatestArchive(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNoBackups
		}
		return "", fmt.Errorf("failed to read archive directory: %w", err)
	}

	var latest string
	var latestMod time.Time
	for _, entry := range entries {
		if entry.IsDir() || !IsArchiveName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if latest == "" || info.ModTime().After(latestMod) {
			latest = entry.Name()
			latestMod = info.ModTime()
		}
	}

	if latest == "" {
		return "", ErrNoBackups
	}

	return filepath.Join(dir, latest), nil
}
