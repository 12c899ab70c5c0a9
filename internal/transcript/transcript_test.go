package transcript

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/askidmobile/clipstty/internal/clipsttyerr"
)

func newTestStore(t *testing.T, maxPerFile int) *Store {
	t.Helper()
	s, err := Open(t.TempDir(), maxPerFile)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestStoreAndGet(t *testing.T) {
	s := newTestStore(t, 10)
	e := Entry{ID: "a1", Text: "hello world", Timestamp: time.Now()}
	if err := s.Store(e); err != nil {
		t.Fatalf("Store: %v", err)
	}
	got, err := s.Get("a1")
	if err != nil || got.Text != "hello world" {
		t.Fatalf("Get = (%+v, %v)", got, err)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t, 10)
	if _, err := s.Get("missing"); !errors.Is(err, clipsttyerr.ErrTranscriptNotFound) {
		t.Fatalf("expected ErrTranscriptNotFound, got %v", err)
	}
}

func TestStoreRollsOverAtMaxPerFile(t *testing.T) {
	s := newTestStore(t, 2)
	for i := 0; i < 5; i++ {
		if err := s.Store(Entry{ID: string(rune('a' + i)), Text: "x", Timestamp: time.Now()}); err != nil {
			t.Fatalf("Store %d: %v", i, err)
		}
	}
	if len(s.idx.Files) < 3 {
		t.Fatalf("expected at least 3 files for 5 entries at max 2/file, got %d", len(s.idx.Files))
	}
}

func TestDeleteRemovesEntry(t *testing.T) {
	s := newTestStore(t, 10)
	s.Store(Entry{ID: "a1", Text: "x", Timestamp: time.Now()})
	if err := s.Delete("a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := s.Get("a1"); !errors.Is(err, clipsttyerr.ErrTranscriptNotFound) {
		t.Fatalf("expected entry gone after delete")
	}
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	src := newTestStore(t, 10)
	for i := 0; i < 3; i++ {
		src.Store(Entry{ID: string(rune('a' + i)), Text: "hi", Timestamp: time.Now()})
	}

	backupPath := filepath.Join(t.TempDir(), "backup.jsonl")
	res, err := src.Backup(backupPath)
	if err != nil {
		t.Fatalf("Backup: %v", err)
	}
	if res.BytesWritten == 0 {
		t.Fatalf("expected nonzero bytes written")
	}

	dst := newTestStore(t, 10)
	restoreRes, err := dst.Restore(backupPath)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restoreRes.Restored != 3 || restoreRes.Skipped != 0 {
		t.Fatalf("Restore = %+v, want 3 restored, 0 skipped", restoreRes)
	}

	// Restoring again should skip everything (idempotent).
	restoreRes2, err := dst.Restore(backupPath)
	if err != nil {
		t.Fatalf("second Restore: %v", err)
	}
	if restoreRes2.Restored != 0 || restoreRes2.Skipped != 3 {
		t.Fatalf("second Restore = %+v, want 0 restored, 3 skipped", restoreRes2)
	}
}

func TestIntegrityPurgesMissingFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, 10)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Store(Entry{ID: "a1", Text: "x", Timestamp: time.Now()})

	for fn := range s.idx.Files {
		removeFile(t, filepath.Join(dir, fn))
	}

	s2, err := Open(dir, 10)
	if err != nil {
		t.Fatalf("re-Open: %v", err)
	}
	if len(s2.idx.Files) != 0 || len(s2.idx.Entries) != 0 {
		t.Fatalf("expected purged index, got %+v", s2.idx)
	}
}

func removeFile(t *testing.T, path string) {
	t.Helper()
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove %s: %v", path, err)
	}
}
