package catalog

import (
	"path/filepath"
	"testing"
	"time"
)

func openTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "history", "backups.db"))
	if err != nil {
		t.Fatalf("failed to open catalog: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestInsertAndList(t *testing.T) {
	c := openTestCatalog(t)

	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		err := c.Insert(&Record{
			ID:        "backup-0000000" + string(rune('a'+i)),
			Filename:  "backup-2025060100000" + string(rune('0'+i)) + ".zip",
			SizeBytes: int64(100 * (i + 1)),
			FileCount: i + 1,
			CreatedAt: base.Add(time.Duration(i) * time.Hour),
			Status:    "completed",
			CreatedBy: "cli",
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := c.List(0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d", len(records))
	}

	// Newest first.
	for i := 1; i < len(records); i++ {
		if records[i].CreatedAt.After(records[i-1].CreatedAt) {
			t.Errorf("records out of order: %v before %v", records[i-1].CreatedAt, records[i].CreatedAt)
		}
	}

	if records[0].Filename != "backup-20250601000002.zip" {
		t.Errorf("expected newest record first, got %s", records[0].Filename)
	}
	if records[0].SizeBytes != 300 || records[0].FileCount != 3 {
		t.Errorf("record fields not round-tripped: %+v", records[0])
	}
}

func TestListLimit(t *testing.T) {
	c := openTestCatalog(t)

	for i := 0; i < 5; i++ {
		err := c.Insert(&Record{
			ID:        "backup-limit-" + string(rune('0'+i)),
			Filename:  "backup-20250601.zip",
			CreatedAt: time.Now().Add(time.Duration(i) * time.Minute),
			Status:    "completed",
		})
		if err != nil {
			t.Fatalf("insert failed: %v", err)
		}
	}

	records, err := c.List(2)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records with limit, got %d", len(records))
	}
}

func TestMarkDeleted(t *testing.T) {
	c := openTestCatalog(t)

	if err := c.Insert(&Record{
		ID:        "backup-deadbeef",
		Filename:  "backup-20250601000000.zip",
		CreatedAt: time.Now(),
		Status:    "completed",
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := c.MarkDeleted("backup-20250601000000.zip"); err != nil {
		t.Fatalf("mark deleted failed: %v", err)
	}

	records, err := c.List(0)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(records) != 1 || records[0].Status != "deleted" {
		t.Errorf("expected deleted status, got %+v", records[0])
	}
}

func TestFailedRecordKeepsError(t *testing.T) {
	c := openTestCatalog(t)

	if err := c.Insert(&Record{
		ID:           "backup-failed01",
		Filename:     "backup-20250601000000.zip",
		CreatedAt:    time.Now(),
		Status:       "failed",
		ErrorMessage: "disk full",
	}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	records, err := c.List(1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if records[0].Status != "failed" || records[0].ErrorMessage != "disk full" {
		t.Errorf("failure details not preserved: %+v", records[0])
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backups.db")

	c1, err := Open(path)
	if err != nil {
		t.Fatalf("first open failed: %v", err)
	}
	if err := c1.Insert(&Record{ID: "backup-reopen01", Filename: "backup-20250601.zip",
		CreatedAt: time.Now(), Status: "completed"}); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	c1.Close()

	c2, err := Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer c2.Close()

	records, err := c2.List(0)
	if err != nil {
		t.Fatalf("list after reopen failed: %v", err)
	}
	if len(records) != 1 {
		t.Errorf("expected record to survive reopen, got %d", len(records))
	}
}
