package backup

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/yourusername/backup-manager/internal/config"
	"github.com/yourusername/backup-manager/internal/notify"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		Backup: config.BackupConfig{
			Root:        base,
			Directories: []string{"src"},
			ArchiveDir:  filepath.Join(base, "archives"),
			RestoreDir:  filepath.Join(base, "restore"),
			TempDir:     filepath.Join(base, "tmp"),
			Compression: 6,
		},
		Share: config.ShareConfig{Port: 8000},
	}
}

func checkProgress(t *testing.T, percents []int) {
	t.Helper()
	if len(percents) == 0 {
		t.Fatal("expected progress emissions")
	}
	prev := -1
	for _, p := range percents {
		if p < prev {
			t.Fatalf("progress decreased: %v", percents)
		}
		prev = p
	}
	if percents[len(percents)-1] != 100 {
		t.Fatalf("expected final emission 100, got %v", percents)
	}
}

func TestCreateBackupRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Backup.Root, "src", "a.txt"), "hello")
	writeFile(t, filepath.Join(cfg.Backup.Root, "src", "b.log"), "noise")
	cfg.Backup.Exclude = []string{"*.log"}

	recorder := &notify.Recorder{}
	manager := NewManager(cfg, nil, recorder)
	manager.pollInterval = 5 * time.Millisecond

	info, err := manager.CreateBackup(context.Background(), "test")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if info.FileCount != 1 {
		t.Errorf("expected 1 file after exclusion, got %d", info.FileCount)
	}
	checkProgress(t, recorder.Percents())

	restoreRecorder := &notify.Recorder{}
	restorer := NewManager(cfg, nil, restoreRecorder)
	if err := restorer.RestoreBackup(info.Path); err != nil {
		t.Fatalf("restore failed: %v", err)
	}
	checkProgress(t, restoreRecorder.Percents())

	data, err := os.ReadFile(filepath.Join(cfg.Backup.RestoreDir, "src", "a.txt"))
	if err != nil || string(data) != "hello" {
		t.Errorf("expected restored src/a.txt with content hello, got %q (%v)", data, err)
	}
	if _, err := os.Stat(filepath.Join(cfg.Backup.RestoreDir, "src", "b.log")); !os.IsNotExist(err) {
		t.Errorf("expected excluded b.log to be absent after restore")
	}
}

func TestCreateBackupEmptySources(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Directories = []string{"does-not-exist"}

	recorder := &notify.Recorder{}
	manager := NewManager(cfg, nil, recorder)

	info, err := manager.CreateBackup(context.Background(), "test")
	if err != nil {
		t.Fatalf("expected success with no sources, got %v", err)
	}
	if info.FileCount != 0 {
		t.Errorf("expected empty archive, got %d files", info.FileCount)
	}
	checkProgress(t, recorder.Percents())
}

func TestCreateBackupUsesOutputOverride(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Backup.Root, "src", "a.txt"), "hello")
	cfg.Backup.Output = "custom.zip"

	manager := NewManager(cfg, nil, &notify.Recorder{})
	info, err := manager.CreateBackup(context.Background(), "test")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if info.Filename != "custom.zip" {
		t.Errorf("expected custom.zip, got %s", info.Filename)
	}
}

func TestCreateBackupLocalDestination(t *testing.T) {
	cfg := testConfig(t)
	writeFile(t, filepath.Join(cfg.Backup.Root, "src", "a.txt"), "hello")
	offsite := filepath.Join(cfg.Backup.Root, "offsite")
	cfg.Destination = config.DestinationConfig{Type: "local", Path: offsite}

	manager := NewManager(cfg, nil, &notify.Recorder{})
	info, err := manager.CreateBackup(context.Background(), "test")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	if _, err := os.Stat(filepath.Join(offsite, info.Filename)); err != nil {
		t.Errorf("expected archive copied to destination: %v", err)
	}
}

func TestRestoreEmptyArchiveReportsComplete(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup.Directories = []string{"missing"}

	manager := NewManager(cfg, nil, &notify.Recorder{})
	info, err := manager.CreateBackup(context.Background(), "test")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	recorder := &notify.Recorder{}
	restorer := NewManager(cfg, nil, recorder)
	if err := restorer.RestoreBackup(info.Path); err != nil {
		t.Fatalf("restore of empty archive failed: %v", err)
	}
	checkProgress(t, recorder.Percents())
}

func TestRestoreMissingArchiveFails(t *testing.T) {
	cfg := testConfig(t)
	manager := NewManager(cfg, nil, &notify.Recorder{})
	if err := manager.RestoreBackup(filepath.Join(cfg.Backup.TempDir, "nope.zip")); err == nil {
		t.Fatal("expected error for missing archive")
	}
}

func TestListBackupsMissingDir(t *testing.T) {
	cfg := testConfig(t)
	manager := NewManager(cfg, nil, nil)

	files, err := manager.ListBackups()
	if err != nil {
		t.Fatalf("expected no error for missing dir, got %v", err)
	}
	if len(files) != 0 {
		t.Errorf("expected empty list, got %v", files)
	}
}

func TestListBackupsIgnoresForeignFiles(t *testing.T) {
	cfg := testConfig(t)
	if err := os.MkdirAll(cfg.Backup.ArchiveDir, 0755); err != nil {
		t.Fatalf("failed to create archive dir: %v", err)
	}
	writeFile(t, filepath.Join(cfg.Backup.ArchiveDir, "backup-20250101000000.zip"), "zipdata")
	writeFile(t, filepath.Join(cfg.Backup.ArchiveDir, "index.html"), "<html>")
	writeFile(t, filepath.Join(cfg.Backup.ArchiveDir, "notes.txt"), "x")

	manager := NewManager(cfg, nil, nil)
	files, err := manager.ListBackups()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(files) != 1 || files[0].Filename != "backup-20250101000000.zip" {
		t.Errorf("expected only the archive, got %v", files)
	}
}
