package backup

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"

	"github.com/yourusername/backup-manager/internal/catalog"
	"github.com/yourusername/backup-manager/internal/config"
)

// RetentionManager prunes old archives beyond a keep-N policy
type RetentionManager struct {
	cfg     *config.Config
	catalog *catalog.Catalog
}

// NewRetentionManager creates a new retention manager. The catalog may be
// nil; pruning then only touches the filesystem.
func NewRetentionManager(cfg *config.Config, cat *catalog.Catalog) *RetentionManager {
	return &RetentionManager{cfg: cfg, catalog: cat}
}

// EnforceRetention deletes archives older than the keep newest ones and
// returns how many were removed. keep <= 0 keeps everything.
func (rm *RetentionManager) EnforceRetention(keep int) (int, error) {
	if keep <= 0 {
		log.Printf("[Retention] No retention policy (keep all)")
		return 0, nil
	}

	entries, err := os.ReadDir(rm.cfg.Backup.ArchiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var files []BackupFile
	for _, entry := range entries {
		if entry.IsDir() || !IsArchiveName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, BackupFile{
			Filename:  entry.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	if len(files) <= keep {
		log.Printf("[Retention] Archive count (%d) within policy (keep %d)", len(files), keep)
		return 0, nil
	}

	// Newest first; everything past the keep boundary goes.
	sort.Slice(files, func(i, j int) bool {
		return files[i].CreatedAt.After(files[j].CreatedAt)
	})

	deleted := 0
	for _, file := range files[keep:] {
		path := filepath.Join(rm.cfg.Backup.ArchiveDir, file.Filename)
		log.Printf("[Retention] Deleting old archive %s (created %s)",
			file.Filename, file.CreatedAt.Format("2006-01-02 15:04:05"))

		if err := os.Remove(path); err != nil {
			log.Printf("[Retention] Error deleting %s: %v", file.Filename, err)
			continue
		}

		if rm.catalog != nil {
			if err := rm.catalog.MarkDeleted(file.Filename); err != nil {
				log.Printf("[Retention] Warning: failed to mark %s deleted: %v", file.Filename, err)
			}
		}
		deleted++
	}

	log.Printf("[Retention] Deleted %d archives", deleted)
	return deleted, nil
}
