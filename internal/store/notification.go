package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quailhollow/cradle/internal/model"
)

// NotificationStore is the queue of scheduled reminder notifications. The
// reminder scheduler enqueues rows at their trigger time; the dispatcher
// delivers due rows and marks them delivered. Cancellation deletes rows and
// is idempotent.
type NotificationStore struct {
	db *sql.DB
}

func NewNotificationStore(db *sql.DB) *NotificationStore {
	return &NotificationStore{db: db}
}

func (s *NotificationStore) Enqueue(n model.ScheduledNotification) error {
	_, err := s.db.Exec(
		`INSERT INTO scheduled_notifications (id, appointment_id, reminder_id, trigger_at, title, body)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.ID, n.AppointmentID, n.ReminderID, n.TriggerAt.UTC(), n.Title, n.Body,
	)
	if err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

func (s *NotificationStore) GetByID(id string) (*model.ScheduledNotification, error) {
	row := s.db.QueryRow(
		`SELECT id, appointment_id, reminder_id, trigger_at, title, body, delivered, created_at
		 FROM scheduled_notifications WHERE id = ?`, id,
	)
	n, err := scanNotification(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return n, nil
}

// Cancel removes a scheduled notification. Cancelling an unknown, already
// delivered, or already cancelled ID is not an error.
func (s *NotificationStore) Cancel(id string) error {
	_, err := s.db.Exec(`DELETE FROM scheduled_notifications WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("cancel notification: %w", err)
	}
	return nil
}

// CancelByAppointment removes every pending notification correlated with the
// appointment, regardless of which reminder queued it.
func (s *NotificationStore) CancelByAppointment(appointmentID string) error {
	_, err := s.db.Exec(
		`DELETE FROM scheduled_notifications WHERE appointment_id = ? AND delivered = 0`,
		appointmentID,
	)
	if err != nil {
		return fmt.Errorf("cancel notifications by appointment: %w", err)
	}
	return nil
}

// ListScheduled returns all pending (undelivered) notifications.
func (s *NotificationStore) ListScheduled() ([]model.ScheduledNotification, error) {
	rows, err := s.db.Query(
		`SELECT id, appointment_id, reminder_id, trigger_at, title, body, delivered, created_at
		 FROM scheduled_notifications WHERE delivered = 0 ORDER BY trigger_at ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list scheduled notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// ListByAppointment returns pending notifications for one appointment.
func (s *NotificationStore) ListByAppointment(appointmentID string) ([]model.ScheduledNotification, error) {
	rows, err := s.db.Query(
		`SELECT id, appointment_id, reminder_id, trigger_at, title, body, delivered, created_at
		 FROM scheduled_notifications WHERE appointment_id = ? AND delivered = 0 ORDER BY trigger_at ASC`,
		appointmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list notifications by appointment: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

// ListDue returns pending notifications whose trigger time is at or before now.
func (s *NotificationStore) ListDue(now time.Time) ([]model.ScheduledNotification, error) {
	rows, err := s.db.Query(
		`SELECT id, appointment_id, reminder_id, trigger_at, title, body, delivered, created_at
		 FROM scheduled_notifications WHERE delivered = 0 AND trigger_at <= ? ORDER BY trigger_at ASC`,
		now.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("list due notifications: %w", err)
	}
	defer rows.Close()
	return collectNotifications(rows)
}

func (s *NotificationStore) MarkDelivered(id string) error {
	_, err := s.db.Exec(`UPDATE scheduled_notifications SET delivered = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("mark notification delivered: %w", err)
	}
	return nil
}

// PurgeDelivered deletes delivered rows created before the given time.
func (s *NotificationStore) PurgeDelivered(before time.Time) error {
	_, err := s.db.Exec(
		`DELETE FROM scheduled_notifications WHERE delivered = 1 AND created_at < ?`,
		before.UTC(),
	)
	if err != nil {
		return fmt.Errorf("purge delivered notifications: %w", err)
	}
	return nil
}

func scanNotification(scanner interface{ Scan(...any) error }) (*model.ScheduledNotification, error) {
	var n model.ScheduledNotification
	var delivered int
	err := scanner.Scan(&n.ID, &n.AppointmentID, &n.ReminderID, &n.TriggerAt, &n.Title, &n.Body, &delivered, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Delivered = delivered != 0
	return &n, nil
}

func collectNotifications(rows *sql.Rows) ([]model.ScheduledNotification, error) {
	var notifications []model.ScheduledNotification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		notifications = append(notifications, *n)
	}
	return notifications, rows.Err()
}
