package backup

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestArchiveName(t *testing.T) {
	at := time.Date(2025, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := ArchiveName(at); got != "backup-20250314092653.zip" {
		t.Errorf("unexpected archive name %q", got)
	}
	if got := DefaultRemoteName(at); got != "backup-20250314.zip" {
		t.Errorf("unexpected remote name %q", got)
	}
}

func TestIsArchiveName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"backup-20250314092653.zip", true},
		{"backup-20250314.zip", true},
		{"backup-.zip", true},
		{"snapshot-20250314.zip", false},
		{"backup-20250314.tar.gz", false},
		{"index.html", false},
	}
	for _, tt := range tests {
		if got := IsArchiveName(tt.name); got != tt.want {
			t.Errorf("IsArchiveName(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestNormalizeLevel(t *testing.T) {
	tests := []struct {
		level int
		want  int
	}{
		{0, 0},
		{6, 6},
		{9, 9},
		{-1, 6},
		{10, 6},
	}
	for _, tt := range tests {
		if got := NormalizeLevel(tt.level); got != tt.want {
			t.Errorf("NormalizeLevel(%d) = %d, want %d", tt.level, got, tt.want)
		}
	}
}

func TestLatestArchive(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "backup-20250101000000.zip")
	newer := filepath.Join(dir, "backup-20250201000000.zip")
	writeFile(t, older, "old")
	writeFile(t, newer, "new")
	writeFile(t, filepath.Join(dir, "notes.txt"), "ignored")

	// Modification time decides, not the name.
	past := time.Now().Add(-time.Hour)
	if err := os.Chtimes(older, past, past); err != nil {
		t.Fatalf("failed to set mtime: %v", err)
	}

	got, err := LatestArchive(dir)
	if err != nil {
		t.Fatalf("LatestArchive failed: %v", err)
	}
	if got != newer {
		t.Errorf("expected %s, got %s", newer, got)
	}
}

func TestLatestArchiveNoBackups(t *testing.T) {
	if _, err := LatestArchive(t.TempDir()); !errors.Is(err, ErrNoBackups) {
		t.Errorf("expected ErrNoBackups for empty dir, got %v", err)
	}
	if _, err := LatestArchive(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, ErrNoBackups) {
		t.Errorf("expected ErrNoBackups for missing dir, got %v", err)
	}
}
