package config

import (
	"os"
	"path/filepath"
	"testing"
)

// testLoad lädt die Konfiguration mit in ein Temp-Verzeichnis umgebogenen
// Pfaden.
func testLoad(t *testing.T, yaml string) (*Config, error) {
	t.Helper()
	tmpDir := t.TempDir()

	base := "server:\n" +
		"  data_dir: " + filepath.Join(tmpDir, "data") + "\n" +
		"  upload_dir: " + filepath.Join(tmpDir, "uploads") + "\n" +
		"log:\n" +
		"  file: " + filepath.Join(tmpDir, "logs", "test.log") + "\n" +
		"db:\n" +
		"  file: " + filepath.Join(tmpDir, "test.db") + "\n"

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte(base+yaml), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return Load(configPath)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := testLoad(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Faces.SimilarityStrategy != "euclidean" {
		t.Errorf("expected default strategy 'euclidean', got %q", cfg.Faces.SimilarityStrategy)
	}
	if cfg.Faces.SimilarityThreshold != 0.55 {
		t.Errorf("expected default threshold 0.55, got %v", cfg.Faces.SimilarityThreshold)
	}
	if cfg.Camera.MaxProbe != 10 {
		t.Errorf("expected default max_probe 10, got %d", cfg.Camera.MaxProbe)
	}
	if cfg.Camera.JPEGQuality != 80 {
		t.Errorf("expected default jpeg_quality 80, got %d", cfg.Camera.JPEGQuality)
	}
	if len(cfg.Detector.Denylist) == 0 {
		t.Error("expected a non-empty default denylist")
	}
}

func TestLoadRejectsInvalidStrategy(t *testing.T) {
	_, err := testLoad(t, "faces:\n  similarity_strategy: cosine\n")
	if err == nil {
		t.Fatal("expected error for invalid similarity strategy")
	}
}

func TestLoadRejectsNonPositiveThreshold(t *testing.T) {
	_, err := testLoad(t, "faces:\n  similarity_threshold: 0\n")
	if err == nil {
		t.Fatal("expected error for non-positive threshold")
	}
}

func TestLoadOverridesFromFile(t *testing.T) {
	cfg, err := testLoad(t, "faces:\n  similarity_strategy: index\n  similarity_threshold: 0.7\n")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Faces.SimilarityStrategy != "index" {
		t.Errorf("expected strategy 'index', got %q", cfg.Faces.SimilarityStrategy)
	}
	if cfg.Faces.SimilarityThreshold != 0.7 {
		t.Errorf("expected threshold 0.7, got %v", cfg.Faces.SimilarityThreshold)
	}
}

func TestLoadCreatesDirectories(t *testing.T) {
	cfg, err := testLoad(t, "")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	for _, dir := range []string{cfg.Server.DataDir, cfg.Server.UploadDir} {
		if _, err := os.Stat(dir); err != nil {
			t.Errorf("expected directory %s to exist: %v", dir, err)
		}
	}
}
