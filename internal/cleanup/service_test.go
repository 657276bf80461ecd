package cleanup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestRunCleanupCycle(t *testing.T) {
	dir := t.TempDir()

	oldFile := filepath.Join(dir, "old.jpg")
	newFile := filepath.Join(dir, "new.jpg")
	for _, f := range []string{oldFile, newFile} {
		if err := os.WriteFile(f, []byte("img"), 0644); err != nil {
			t.Fatalf("failed to write %s: %v", f, err)
		}
	}

	// Die alte Datei über den Aufbewahrungszeitraum hinaus zurückdatieren
	past := time.Now().AddDate(0, 0, -40)
	if err := os.Chtimes(oldFile, past, past); err != nil {
		t.Fatalf("failed to backdate file: %v", err)
	}

	svc := NewService(30, dir, time.Hour)
	if svc == nil {
		t.Fatal("expected service to be initialized")
	}
	svc.RunCleanupCycle()

	if _, err := os.Stat(oldFile); !os.IsNotExist(err) {
		t.Error("expected old file to be deleted")
	}
	if _, err := os.Stat(newFile); err != nil {
		t.Errorf("expected new file to survive: %v", err)
	}
}

func TestNewServiceDisabled(t *testing.T) {
	if svc := NewService(0, t.TempDir(), time.Hour); svc != nil {
		t.Error("expected nil service when retention is disabled")
	}
	if svc := NewService(30, "", time.Hour); svc != nil {
		t.Error("expected nil service without upload directory")
	}

	// Aufrufe auf dem nil-Service sind No-ops
	var svc *Service
	svc.StartBackgroundCleanup()
	svc.StopBackgroundCleanup()
	svc.RunCleanupCycle()
}
