// Package reliability provides database backups to S3-compatible storage
// and routine database maintenance.
package reliability

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
)

const (
	archivePrefix   = "stockvision-backup-"
	archiveSuffix   = ".tar.gz"
	archiveStamp    = "2006-01-02-150405"
	metadataName    = "backup-metadata.json"
	snapshotName    = "stockvision.db"
	metadataVersion = "1"

	// MinBackupsToKeep survive pruning regardless of age.
	MinBackupsToKeep = 3
)

// ErrBackupsDisabled is returned when no object store is configured.
var ErrBackupsDisabled = errors.New("backups are not configured")

// Object is one stored backup as reported by an ObjectStore.
type Object struct {
	Key       string
	SizeBytes int64
}

// ObjectStore is the remote storage backups are uploaded to.
type ObjectStore interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64) error
	List(ctx context.Context, prefix string) ([]Object, error)
	Delete(ctx context.Context, key string) error
}

// BackupMetadata is written into every archive next to the snapshot.
type BackupMetadata struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Database  string    `json:"database"`
	Filename  string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Checksum  string    `json:"checksum"`
}

// BackupInfo describes a stored backup.
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"sizeBytes"`
}

// BackupResult is the outcome of one backup run.
type BackupResult struct {
	Key       string    `json:"key"`
	SizeBytes int64     `json:"sizeBytes"`
	Checksum  string    `json:"checksum"`
	CreatedAt time.Time `json:"createdAt"`
	Pruned    int       `json:"pruned"`
}

// BackupService snapshots the SQLite database, archives it with metadata
// and uploads the archive, then prunes expired archives.
type BackupService struct {
	db         *database.DB
	store      ObjectStore
	prefix     string
	retention  time.Duration
	stagingDir string
	now        func() time.Time
	log        zerolog.Logger
}

// NewBackupService creates a new backup service. A retention of zero keeps
// every backup. store may be nil, in which case Run fails with
// ErrBackupsDisabled.
func NewBackupService(
	db *database.DB,
	store ObjectStore,
	prefix string,
	retentionDays int,
	stagingDir string,
	log zerolog.Logger,
) *BackupService {
	return &BackupService{
		db:         db,
		store:      store,
		prefix:     prefix,
		retention:  time.Duration(retentionDays) * 24 * time.Hour,
		stagingDir: stagingDir,
		now:        time.Now,
		log:        log.With().Str("service", "backup").Logger(),
	}
}

// Enabled reports whether an object store is configured.
func (s *BackupService) Enabled() bool {
	return s != nil && s.store != nil
}

// Run creates and uploads a backup archive, then prunes old ones. A pruning
// failure is logged and does not fail the run.
func (s *BackupService) Run(ctx context.Context) (*BackupResult, error) {
	if !s.Enabled() {
		return nil, ErrBackupsDisabled
	}
	s.log.Info().Msg("Starting backup")
	start := time.Now()

	if err := os.MkdirAll(s.stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	staging, err := os.MkdirTemp(s.stagingDir, "backup-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	created := s.now().UTC()
	snapshotPath := filepath.Join(staging, snapshotName)
	if err := s.db.Snapshot(ctx, snapshotPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat snapshot: %w", err)
	}
	checksum, err := fileChecksum(snapshotPath)
	if err != nil {
		return nil, fmt.Errorf("failed to checksum snapshot: %w", err)
	}

	meta := BackupMetadata{
		Timestamp: created,
		Version:   metadataVersion,
		Database:  s.db.Name(),
		Filename:  snapshotName,
		SizeBytes: info.Size(),
		Checksum:  checksum,
	}
	key := s.prefix + archivePrefix + created.Format(archiveStamp) + archiveSuffix
	archivePath := filepath.Join(staging, filepath.Base(key))
	if err := writeArchive(archivePath, snapshotPath, meta); err != nil {
		return nil, fmt.Errorf("failed to create archive: %w", err)
	}

	archive, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer archive.Close()
	archiveInfo, err := archive.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	if err := s.store.Upload(ctx, key, archive, archiveInfo.Size()); err != nil {
		return nil, fmt.Errorf("failed to upload backup: %w", err)
	}

	result := &BackupResult{
		Key:       key,
		SizeBytes: archiveInfo.Size(),
		Checksum:  checksum,
		CreatedAt: created,
	}
	if pruned, err := s.Prune(ctx); err != nil {
		s.log.Error().Err(err).Msg("Backup rotation failed")
	} else {
		result.Pruned = pruned
	}

	s.log.Info().
		Dur("duration_ms", time.Since(start)).
		Str("key", key).
		Int64("size_bytes", archiveInfo.Size()).
		Int("pruned", result.Pruned).
		Msg("Backup completed")
	return result, nil
}

// List returns stored backups, newest first. Keys that do not parse as
// backup archives are ignored.
func (s *BackupService) List(ctx context.Context) ([]BackupInfo, error) {
	if !s.Enabled() {
		return nil, ErrBackupsDisabled
	}
	objects, err := s.store.List(ctx, s.prefix+archivePrefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		name := strings.TrimPrefix(obj.Key, s.prefix)
		if !strings.HasPrefix(name, archivePrefix) || !strings.HasSuffix(name, archiveSuffix) {
			continue
		}
		stamp := strings.TrimSuffix(strings.TrimPrefix(name, archivePrefix), archiveSuffix)
		ts, err := time.Parse(archiveStamp, stamp)
		if err != nil {
			s.log.Warn().Str("key", obj.Key).Msg("Failed to parse timestamp from backup key")
			continue
		}
		backups = append(backups, BackupInfo{Key: obj.Key, Timestamp: ts, SizeBytes: obj.SizeBytes})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// Prune deletes backups older than the retention period, always keeping the
// newest MinBackupsToKeep. It returns how many were deleted.
func (s *BackupService) Prune(ctx context.Context) (int, error) {
	if s.retention <= 0 {
		return 0, nil
	}
	backups, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := s.now().UTC().Add(-s.retention)
	deleted := 0
	for i, b := range backups {
		if i < MinBackupsToKeep || !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("Failed to delete old backup")
			continue
		}
		s.log.Info().Str("key", b.Key).Time("timestamp", b.Timestamp).Msg("Deleted old backup")
		deleted++
	}
	return deleted, nil
}

func fileChecksum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, f); err != nil {
		return "", err
	}
	return fmt.Sprintf("sha256:%x", hash.Sum(nil)), nil
}

func writeArchive(archivePath, snapshotPath string, meta BackupMetadata) (err error) {
	out, err := os.Create(archivePath)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	gz := gzip.NewWriter(out)
	tw := tar.NewWriter(gz)

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    metadataName,
		Size:    int64(len(metaBytes)),
		Mode:    0644,
		ModTime: meta.Timestamp,
	}); err != nil {
		return err
	}
	if _, err := tw.Write(metaBytes); err != nil {
		return err
	}

	if err := addFile(tw, snapshotPath, meta.Filename); err != nil {
		return err
	}

	if err := tw.Close(); err != nil {
		return err
	}
	return gz.Close()
}

func addFile(tw *tar.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    name,
		Size:    info.Size(),
		Mode:    int64(info.Mode().Perm()),
		ModTime: info.ModTime(),
	}); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
