package cleanup

import (
	"os"
	"path/filepath"
	"time"

	log "github.com/sirupsen/logrus"
)

// Service handles the automatic cleanup of stored upload files.
type Service struct {
	retentionDays int
	uploadDir     string
	checkInterval time.Duration
	stopChan      chan struct{} // Channel to signal stopping the background routine
}

// NewService creates a new cleanup service for the upload directory.
func NewService(retentionDays int, uploadDir string, checkInterval time.Duration) *Service {
	if retentionDays <= 0 {
		log.Info("Automatic cleanup disabled (retention_days <= 0).")
		return nil // Return nil if cleanup is disabled
	}
	if uploadDir == "" {
		log.Error("Cannot initialize cleanup service: upload directory is empty")
		return nil
	}
	log.Infof("Initializing cleanup service: RetentionDays=%d, UploadDir='%s', CheckInterval=%s", retentionDays, uploadDir, checkInterval)
	return &Service{
		retentionDays: retentionDays,
		uploadDir:     uploadDir,
		checkInterval: checkInterval,
		stopChan:      make(chan struct{}),
	}
}

// StartBackgroundCleanup starts a goroutine that periodically runs the cleanup cycle.
func (s *Service) StartBackgroundCleanup() {
	if s == nil {
		return // Service was not initialized (cleanup disabled)
	}
	log.Info("Starting background cleanup routine...")

	// Run cleanup once immediately on start
	go func() {
		log.Info("Running initial cleanup check on startup...")
		s.RunCleanupCycle()
	}()

	ticker := time.NewTicker(s.checkInterval)

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				log.Info("Running scheduled cleanup cycle...")
				s.RunCleanupCycle()
			case <-s.stopChan:
				log.Info("Stopping background cleanup routine.")
				return
			}
		}
	}()
}

// StopBackgroundCleanup signals the background cleanup routine to stop.
func (s *Service) StopBackgroundCleanup() {
	if s == nil || s.stopChan == nil {
		return
	}
	// Check if channel is already closed to prevent panic
	select {
	case <-s.stopChan:
		// Already closed
	default:
		close(s.stopChan)
	}
}

// RunCleanupCycle performs one cleanup cycle, deleting upload files older
// than the retention period.
func (s *Service) RunCleanupCycle() {
	if s == nil || s.retentionDays <= 0 {
		log.Debug("Skipping cleanup cycle: service not initialized or cleanup disabled.")
		return
	}

	cutoffTime := time.Now().AddDate(0, 0, -s.retentionDays)
	log.Infof("Cleanup: Deleting upload files older than %s", cutoffTime.Format(time.RFC3339))

	entries, err := os.ReadDir(s.uploadDir)
	if err != nil {
		log.Errorf("Cleanup: Error reading upload directory: %v", err)
		return
	}

	deletedCount := 0
	failedCount := 0

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			log.Warnf("Cleanup: Error reading file info for '%s': %v", entry.Name(), err)
			continue
		}

		if info.ModTime().After(cutoffTime) {
			continue
		}

		path := filepath.Join(s.uploadDir, entry.Name())
		if err := os.Remove(path); err != nil {
			log.Errorf("Cleanup: Failed to delete upload file '%s': %v", path, err)
			failedCount++
		} else {
			log.Debugf("Cleanup: Successfully deleted upload file '%s'", path)
			deletedCount++
		}
	}

	if deletedCount == 0 && failedCount == 0 {
		log.Info("Cleanup: No old upload files found to delete.")
		return
	}

	log.Infof("Cleanup cycle finished. Successfully deleted: %d, Failed: %d", deletedCount, failedCount)
}
