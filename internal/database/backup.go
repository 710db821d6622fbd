package database

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// BackupService periodically copies the SQLite file aside and prunes
// old copies.
type BackupService struct {
	dbPath      string
	storagePath string
	interval    time.Duration
	retention   time.Duration
	logger      *zerolog.Logger
}

func NewBackupService(dbPath, storagePath string, intervalHours, retentionDays int, logger *zerolog.Logger) *BackupService {
	if storagePath == "" {
		storagePath = "backups"
	}
	if intervalHours <= 0 {
		intervalHours = 24
	}
	if retentionDays <= 0 {
		retentionDays = 14
	}
	return &BackupService{
		dbPath:      dbPath,
		storagePath: storagePath,
		interval:    time.Duration(intervalHours) * time.Hour,
		retention:   time.Duration(retentionDays) * 24 * time.Hour,
		logger:      logger,
	}
}

// Start runs the backup loop until the context is cancelled. The first
// backup runs after a short delay so startup stays fast.
func (s *BackupService) Start(ctx context.Context) {
	s.logger.Info().
		Str("path", s.storagePath).
		Dur("interval", s.interval).
		Msg("backup service started")

	select {
	case <-time.After(time.Minute):
		s.runOnce()
	case <-ctx.Done():
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce()
		}
	}
}

func (s *BackupService) runOnce() {
	if err := s.PerformBackup(); err != nil {
		s.logger.Error().Err(err).Msg("backup failed")
	}
	s.CleanupOldBackups()
}

// PerformBackup copies the database file into the storage directory.
func (s *BackupService) PerformBackup() error {
	if err := os.MkdirAll(s.storagePath, 0o755); err != nil {
		return fmt.Errorf("failed to create backup directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	backupPath := filepath.Join(s.storagePath, fmt.Sprintf("simbay_%s.db", timestamp))

	s.logger.Info().Str("path", backupPath).Msg("performing database backup")

	source, err := os.Open(s.dbPath)
	if err != nil {
		return err
	}
	defer source.Close()

	destination, err := os.Create(backupPath)
	if err != nil {
		return err
	}
	defer destination.Close()

	if _, err = io.Copy(destination, source); err != nil {
		return err
	}

	s.logger.Info().Msg("backup completed successfully")
	return nil
}

// CleanupOldBackups deletes backup files older than the retention
// period.
func (s *BackupService) CleanupOldBackups() {
	files, err := os.ReadDir(s.storagePath)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read backup directory for cleanup")
		return
	}

	cutoff := time.Now().Add(-s.retention)

	for _, file := range files {
		if file.IsDir() {
			continue
		}

		info, err := file.Info()
		if err != nil {
			continue
		}

		if info.ModTime().Before(cutoff) {
			s.logger.Info().Str("file", file.Name()).Msg("deleting old backup")
			os.Remove(filepath.Join(s.storagePath, file.Name()))
		}
	}
}
