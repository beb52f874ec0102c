package backup

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/yourusername/backup-manager/internal/catalog"
	"github.com/yourusername/backup-manager/internal/config"
	"github.com/yourusername/backup-manager/internal/notify"
	"github.com/yourusername/backup-manager/internal/progress"
)

// Manager orchestrates backup operations
type Manager struct {
	cfg      *config.Config
	catalog  *catalog.Catalog
	notifier notify.Notifier
	engine   MergeEngine

	// pollInterval drives the synthetic progress ramp during create.
	pollInterval time.Duration
}

// BackupFile describes an archive in the archive directory
type BackupFile struct {
	Filename  string
	SizeBytes int64
	CreatedAt time.Time
}

// NewManager creates a new backup manager. The catalog may be nil, in which
// case no history records are written.
func NewManager(cfg *config.Config, cat *catalog.Catalog, notifier notify.Notifier) *Manager {
	if notifier == nil {
		notifier = notify.LogNotifier{}
	}
	return &Manager{
		cfg:          cfg,
		catalog:      cat,
		notifier:     notifier,
		engine:       FSMerge{},
		pollInterval: time.Second,
	}
}

type createResult struct {
	info *ArchiveInfo
	err  error
}

// CreateBackup builds an archive of the configured source directories,
// records it in the catalog, and uploads it to the configured destination.
// Compression runs in the background while the caller polls it on a fixed
// interval to emit a synthetic progress ramp; the percentages are a
// heuristic, not a measurement.
func (m *Manager) CreateBackup(ctx context.Context, createdBy string) (*ArchiveInfo, error) {
	backupID := "backup-" + uuid.New().String()[:8]

	if err := os.MkdirAll(m.cfg.Backup.ArchiveDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create archive directory: %w", err)
	}

	name := m.cfg.Backup.Output
	if name == "" {
		name = ArchiveName(time.Now())
	}
	archivePath := filepath.Join(m.cfg.Backup.ArchiveDir, name)

	log.Printf("[BackupMgr] Creating backup %s at %s", backupID, archivePath)
	m.notifier.Notify("Backup started", -1)

	resultCh := make(chan createResult, 1)
	go func() {
		info, err := CreateArchive(archivePath, ArchiveOptions{
			Root:        m.cfg.Backup.Root,
			Directories: m.cfg.Backup.Directories,
			Exclude:     m.cfg.Backup.Exclude,
			Level:       m.cfg.Backup.Compression,
		})
		resultCh <- createResult{info: info, err: err}
	}()

	ramp := progress.NewRamp(7, 95)
	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	var result createResult
poll:
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case result = <-resultCh:
			break poll
		case <-ticker.C:
			m.notifier.Notify("Creating backup", ramp.Next())
		}
	}

	if result.err != nil {
		m.recordBackup(backupID, name, nil, createdBy, result.err)
		m.notifier.Notify("Backup failed", -1)
		return nil, result.err
	}

	info := result.info
	if err := m.uploadToDestination(info); err != nil {
		m.recordBackup(backupID, name, info, createdBy, err)
		m.notifier.Notify("Backup failed", -1)
		return nil, err
	}

	m.recordBackup(backupID, name, info, createdBy, nil)
	m.notifier.Notify(fmt.Sprintf("Backup complete: %s", info.Path), 100)
	log.Printf("[BackupMgr] Backup %s created: %s (%d bytes, %d files)",
		backupID, info.Filename, info.SizeBytes, info.FileCount)

	return info, nil
}

func (m *Manager) uploadToDestination(info *ArchiveInfo) error {
	destCfg := &m.cfg.Destination
	if destCfg.Type == "" {
		return nil
	}

	dest, err := NewDestination(destCfg)
	if err != nil {
		return fmt.Errorf("failed to create destination: %w", err)
	}
	if closer, ok := dest.(io.Closer); ok {
		defer closer.Close()
	}

	file, err := os.Open(info.Path)
	if err != nil {
		return fmt.Errorf("failed to open archive for upload: %w", err)
	}
	defer file.Close()

	if err := dest.Upload(info.Filename, file, info.SizeBytes); err != nil {
		return fmt.Errorf("failed to upload to %s destination: %w", dest.GetType(), err)
	}

	return nil
}

func (m *Manager) recordBackup(backupID, filename string, info *ArchiveInfo, createdBy string, opErr error) {
	if m.catalog == nil {
		return
	}

	record := &catalog.Record{
		ID:              backupID,
		Filename:        filename,
		CreatedAt:       time.Now(),
		DestinationType: m.cfg.Destination.Type,
		DestinationPath: m.cfg.Destination.Path,
		Status:          "completed",
		CreatedBy:       createdBy,
	}
	if info != nil {
		record.SizeBytes = info.SizeBytes
		record.FileCount = info.FileCount
	}
	if opErr != nil {
		record.Status = "failed"
		record.ErrorMessage = opErr.Error()
	}

	if err := m.catalog.Insert(record); err != nil {
		log.Printf("[BackupMgr] Warning: failed to record backup %s: %v", backupID, err)
	}
}

// RestoreBackup expands the archive into a staging directory, then merges
// non-conflicting files into the restore destination. Existing destination
// files are never overwritten. Progress is real: files merged over files
// discovered, emitted only when the percentage changes.
func (m *Manager) RestoreBackup(archivePath string) error {
	stagingDir := filepath.Join(m.cfg.Backup.TempDir, fmt.Sprintf("restore-%d", time.Now().UnixNano()))
	defer os.RemoveAll(stagingDir)

	log.Printf("[BackupMgr] Restoring %s to %s", archivePath, m.cfg.Backup.RestoreDir)
	m.notifier.Notify("Restore started", -1)

	total, err := ExtractArchive(archivePath, stagingDir)
	if err != nil {
		m.notifier.Notify("Restore failed", -1)
		return err
	}

	tracker := progress.NewTracker(total)

	pr, pw := io.Pipe()
	mergeErr := make(chan error, 1)
	go func() {
		err := m.engine.Merge(stagingDir, m.cfg.Backup.RestoreDir, pw)
		pw.CloseWithError(err)
		mergeErr <- err
	}()

	if err := progress.ObserveLines(pr, tracker, func(percent int) {
		m.notifier.Notify("Restoring files", percent)
	}); err != nil && err != io.ErrClosedPipe {
		log.Printf("[BackupMgr] Warning: progress stream ended early: %v", err)
	}

	if err := <-mergeErr; err != nil {
		m.notifier.Notify("Restore failed", -1)
		return fmt.Errorf("failed to merge restored files: %w", err)
	}

	m.notifier.Notify("Restore complete", 100)
	log.Printf("[BackupMgr] Restore complete: %d files examined", total)
	return nil
}

// ListBackups enumerates archives in the archive directory sorted by name.
// A missing or empty directory yields an empty list, not an error.
func (m *Manager) ListBackups() ([]BackupFile, error) {
	entries, err := os.ReadDir(m.cfg.Backup.ArchiveDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read archive directory: %w", err)
	}

	var files []BackupFile
	for _, entry := range entries {
		if entry.IsDir() || !IsArchiveName(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			log.Printf("[BackupMgr] Warning: failed to stat %s: %v", entry.Name(), err)
			continue
		}
		files = append(files, BackupFile{
			Filename:  entry.Name(),
			SizeBytes: info.Size(),
			CreatedAt: info.ModTime(),
		})
	}

	return files, nil
}
