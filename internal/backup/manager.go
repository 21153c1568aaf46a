package backup

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Status reports what the auto-backup loop is currently doing.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusRunning Status = "running"
	StatusError   Status = "error"
)

// Manager runs automatic backups on an interval while the backup_enabled
// setting is on. An optional Replicator mirrors each backup to object storage.
type Manager struct {
	service    *Service
	replicator *Replicator
	interval   time.Duration
	logger     *slog.Logger

	mu      sync.Mutex
	status  Status
	lastErr error

	cancel context.CancelFunc
	done   chan struct{}
}

// NewManager creates a Manager. replicator may be nil when no object storage
// is configured.
func NewManager(service *Service, replicator *Replicator, interval time.Duration, logger *slog.Logger) *Manager {
	return &Manager{
		service:    service,
		replicator: replicator,
		interval:   interval,
		status:     StatusIdle,
		logger:     logger.With("component", "backup-manager"),
	}
}

// Start begins the periodic backup loop. Call Stop to halt it.
func (m *Manager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(ctx)
	m.logger.Info("auto-backup started", "interval", m.interval.String())
}

// Stop halts the backup loop and waits for the current cycle to finish.
func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	<-m.done
	m.logger.Info("auto-backup stopped")
}

// Status returns the loop's current state and the error from the last failed
// cycle, if any.
func (m *Manager) Status() (Status, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.lastErr
}

func (m *Manager) setStatus(s Status, err error) {
	m.mu.Lock()
	m.status = s
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) run(ctx context.Context) {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.runOnce(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunOnce performs a single backup cycle immediately, outside the ticker.
func (m *Manager) RunOnce(ctx context.Context) {
	m.runOnce(ctx)
}

func (m *Manager) runOnce(ctx context.Context) {
	enabled, err := m.service.Enabled()
	if err != nil {
		m.logger.Error("check backup setting", "error", err)
		m.setStatus(StatusError, err)
		return
	}
	if !enabled {
		m.setStatus(StatusIdle, nil)
		return
	}

	m.setStatus(StatusRunning, nil)

	path, err := m.service.Backup()
	if err != nil {
		m.logger.Error("auto-backup failed", "error", err)
		m.setStatus(StatusError, err)
		return
	}

	if m.replicator != nil {
		if err := m.replicator.Replicate(ctx, path); err != nil {
			// Local backup succeeded; replication failure is non-fatal
			m.logger.Error("replicate backup", "error", err)
			m.setStatus(StatusError, err)
			return
		}
	}

	m.setStatus(StatusIdle, nil)
}
