// Package backup writes and restores JSON snapshots of appointments and the
// shopping list. Snapshots live in a local directory and can optionally be
// replicated to S3-compatible object storage.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/natefinch/atomic"

	"github.com/quailhollow/cradle/internal/model"
	"github.com/quailhollow/cradle/internal/store"
)

const (
	filePrefix = "backup-"
	fileSuffix = ".json"
)

// Service creates, lists, and restores backup files.
type Service struct {
	dir          string
	shopping     *store.ShoppingStore
	appointments *store.AppointmentStore
	settings     *store.SettingsStore
	logger       *slog.Logger
}

// NewService creates a backup service writing to dir.
func NewService(dir string, shopping *store.ShoppingStore, appointments *store.AppointmentStore, settings *store.SettingsStore, logger *slog.Logger) *Service {
	return &Service{
		dir:          dir,
		shopping:     shopping,
		appointments: appointments,
		settings:     settings,
		logger:       logger.With("component", "backup"),
	}
}

// Init ensures the backup directory exists.
func (s *Service) Init() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create backup dir: %w", err)
	}
	return nil
}

// backupFilename builds the snapshot filename for the given time. The
// timestamp is the RFC 3339 UTC form with ':' and '.' replaced by '-' so the
// name is filesystem-safe and sorts chronologically.
func backupFilename(t time.Time) string {
	ts := t.UTC().Format("2006-01-02T15:04:05.000Z")
	ts = strings.NewReplacer(":", "-", ".", "-").Replace(ts)
	return filePrefix + ts + fileSuffix
}

// Backup snapshots both stores to a new timestamped file and records the
// backup time in settings. It returns the path of the written file.
func (s *Service) Backup() (string, error) {
	appointments, err := s.appointments.List()
	if err != nil {
		return "", fmt.Errorf("list appointments: %w", err)
	}
	items, err := s.shopping.List()
	if err != nil {
		return "", fmt.Errorf("list shopping items: %w", err)
	}

	now := time.Now().UTC()
	file := model.BackupFile{
		Appointments: appointments,
		ShoppingList: items,
		LastBackup:   now,
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal backup: %w", err)
	}

	path := filepath.Join(s.dir, backupFilename(now))
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}

	if err := s.settings.Set(store.SettingLastBackupTime, now.Format(time.RFC3339)); err != nil {
		return "", fmt.Errorf("record backup time: %w", err)
	}

	s.logger.Info("backup written", "path", path, "appointments", len(appointments), "items", len(items))
	return path, nil
}

// LatestBackupPath returns the path of the most recent backup file, or ""
// when no backups exist. Timestamped names sort chronologically, so the
// lexicographically greatest filename is the newest.
func (s *Service) LatestBackupPath() (string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("read backup dir: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	if len(names) == 0 {
		return "", nil
	}

	sort.Strings(names)
	return filepath.Join(s.dir, names[len(names)-1]), nil
}

// Restore reads and decodes the most recent backup. It returns nil when no
// backup exists or the newest file cannot be parsed. Restore does not touch
// the stores; applying the returned state is the caller's job.
func (s *Service) Restore() (*model.RestoredState, error) {
	path, err := s.LatestBackupPath()
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read backup: %w", err)
	}

	var file model.BackupFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.logger.Warn("backup file unreadable, skipping restore", "path", path, "error", err)
		return nil, nil
	}

	s.logger.Info("backup read", "path", path,
		"appointments", len(file.Appointments), "items", len(file.ShoppingList))

	return &model.RestoredState{
		Appointments: file.Appointments,
		ShoppingList: file.ShoppingList,
	}, nil
}

// Share returns the path of the newest backup file for download. It returns
// "" when no backups exist.
func (s *Service) Share() (string, error) {
	return s.LatestBackupPath()
}

// Enabled reports whether automatic backups are turned on. Defaults to false
// when the setting has never been written.
func (s *Service) Enabled() (bool, error) {
	v, err := s.settings.Get(store.SettingBackupEnabled)
	if err != nil {
		return false, err
	}
	return v == "true", nil
}

// SetEnabled turns automatic backups on or off.
func (s *Service) SetEnabled(enabled bool) error {
	v := "false"
	if enabled {
		v = "true"
	}
	return s.settings.Set(store.SettingBackupEnabled, v)
}

// LastBackupTime returns the RFC 3339 timestamp of the last successful
// backup, or "" if none has been made.
func (s *Service) LastBackupTime() (string, error) {
	return s.settings.Get(store.SettingLastBackupTime)
}

// s3Client is the subset of the S3 API the replicator uses.
type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Replicator copies backup files to an S3-compatible bucket.
type Replicator struct {
	client s3Client
	bucket string
	logger *slog.Logger
}

// NewReplicator creates a Replicator for the given client and bucket.
func NewReplicator(client s3Client, bucket string, logger *slog.Logger) *Replicator {
	return &Replicator{
		client: client,
		bucket: bucket,
		logger: logger.With("component", "backup-replicator"),
	}
}

// Replicate uploads the file at path to the bucket under its base name.
func (r *Replicator) Replicate(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read backup for upload: %w", err)
	}

	key := filepath.Base(path)
	_, err = r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(r.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("upload backup %s: %w", key, err)
	}

	r.logger.Info("backup replicated", "bucket", r.bucket, "key", key, "bytes", len(data))
	return nil
}
