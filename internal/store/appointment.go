package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quailhollow/cradle/internal/model"
)

// AppointmentStore owns the appointment collection, each appointment with
// its embedded reminders, plus the curated appointment category list.
//
// Every mutation on an unknown appointment or reminder ID is a silent no-op;
// keeping the notification queue in step with reminder changes is the
// reminder.Coordinator's job, not the store's.
type AppointmentStore struct {
	db *sql.DB
}

func NewAppointmentStore(db *sql.DB) *AppointmentStore {
	return &AppointmentStore{db: db}
}

func (s *AppointmentStore) GetByID(id string) (*model.Appointment, error) {
	var a model.Appointment
	err := s.db.QueryRow(
		`SELECT id, title, appointment_type, location, notes, date_time, created_at, updated_at
		 FROM appointments WHERE id = ?`, id,
	).Scan(&a.ID, &a.Title, &a.AppointmentType, &a.Location, &a.Notes, &a.DateTime, &a.Created, &a.Updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query appointment: %w", err)
	}

	reminders, err := s.listReminders(a.ID)
	if err != nil {
		return nil, err
	}
	a.Reminders = reminders
	return &a, nil
}

func (s *AppointmentStore) List() ([]model.Appointment, error) {
	rows, err := s.db.Query(
		`SELECT id, title, appointment_type, location, notes, date_time, created_at, updated_at
		 FROM appointments ORDER BY date_time ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var appointments []model.Appointment
	for rows.Next() {
		var a model.Appointment
		if err := rows.Scan(&a.ID, &a.Title, &a.AppointmentType, &a.Location, &a.Notes, &a.DateTime, &a.Created, &a.Updated); err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range appointments {
		reminders, err := s.listReminders(appointments[i].ID)
		if err != nil {
			return nil, err
		}
		appointments[i].Reminders = reminders
	}
	return appointments, nil
}

func (s *AppointmentStore) listReminders(appointmentID string) ([]model.Reminder, error) {
	rows, err := s.db.Query(
		`SELECT id, minutes_before, notification_id, is_active
		 FROM reminders WHERE appointment_id = ? ORDER BY sort_order ASC`,
		appointmentID,
	)
	if err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	defer rows.Close()

	var reminders []model.Reminder
	for rows.Next() {
		var r model.Reminder
		var active int
		if err := rows.Scan(&r.ID, &r.MinutesBefore, &r.NotificationID, &active); err != nil {
			return nil, fmt.Errorf("scan reminder: %w", err)
		}
		r.IsActive = active != 0
		reminders = append(reminders, r)
	}
	return reminders, rows.Err()
}

func (s *AppointmentStore) Add(a model.Appointment) (*model.Appointment, error) {
	now := time.Now().UTC()
	if a.Created.IsZero() {
		a.Created = now
	}
	if a.Updated.IsZero() {
		a.Updated = now
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin add appointment: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(
		`INSERT INTO appointments (id, title, appointment_type, location, notes, date_time, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.Title, a.AppointmentType, a.Location, a.Notes, a.DateTime.UTC(), a.Created, a.Updated,
	); err != nil {
		return nil, fmt.Errorf("insert appointment: %w", err)
	}

	if err := insertReminders(tx, a.ID, a.Reminders); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add appointment: %w", err)
	}
	return s.GetByID(a.ID)
}

// Update replaces the appointment and its reminders wholesale and bumps the
// updated timestamp. Unknown IDs are a no-op returning (nil, nil).
func (s *AppointmentStore) Update(a model.Appointment) (*model.Appointment, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin update appointment: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.Exec(
		`UPDATE appointments SET title = ?, appointment_type = ?, location = ?, notes = ?, date_time = ?, updated_at = ?
		 WHERE id = ?`,
		a.Title, a.AppointmentType, a.Location, a.Notes, a.DateTime.UTC(), time.Now().UTC(), a.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("update appointment: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(`DELETE FROM reminders WHERE appointment_id = ?`, a.ID); err != nil {
		return nil, fmt.Errorf("clear reminders: %w", err)
	}
	if err := insertReminders(tx, a.ID, a.Reminders); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit update appointment: %w", err)
	}
	return s.GetByID(a.ID)
}

// Remove deletes the appointment; reminders cascade. Unknown IDs are a no-op.
func (s *AppointmentStore) Remove(id string) error {
	_, err := s.db.Exec(`DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	return nil
}

// ReplaceAll swaps the entire collection, used when applying a restored backup.
func (s *AppointmentStore) ReplaceAll(appointments []model.Appointment) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin replace appointments: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM appointments`); err != nil {
		return fmt.Errorf("clear appointments: %w", err)
	}
	now := time.Now().UTC()
	for _, a := range appointments {
		created, updated := a.Created, a.Updated
		if created.IsZero() {
			created = now
		}
		if updated.IsZero() {
			updated = now
		}
		if _, err := tx.Exec(
			`INSERT INTO appointments (id, title, appointment_type, location, notes, date_time, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.Title, a.AppointmentType, a.Location, a.Notes, a.DateTime.UTC(), created, updated,
		); err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		if err := insertReminders(tx, a.ID, a.Reminders); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit replace appointments: %w", err)
	}
	return nil
}

// --- Reminder methods ---

// AddReminder appends a reminder. No-op if the appointment is absent.
func (s *AppointmentStore) AddReminder(appointmentID string, r model.Reminder) error {
	var active int
	if r.IsActive {
		active = 1
	}
	_, err := s.db.Exec(
		`INSERT INTO reminders (id, appointment_id, minutes_before, notification_id, is_active, sort_order)
		 SELECT ?, id, ?, ?, ?, (SELECT COALESCE(MAX(sort_order) + 1, 0) FROM reminders WHERE appointment_id = ?)
		 FROM appointments WHERE id = ?`,
		r.ID, r.MinutesBefore, r.NotificationID, active, appointmentID, appointmentID,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	return nil
}

// UpdateReminder replaces a reminder's fields. No-op if absent.
func (s *AppointmentStore) UpdateReminder(appointmentID string, r model.Reminder) error {
	var active int
	if r.IsActive {
		active = 1
	}
	_, err := s.db.Exec(
		`UPDATE reminders SET minutes_before = ?, notification_id = ?, is_active = ?
		 WHERE appointment_id = ? AND id = ?`,
		r.MinutesBefore, r.NotificationID, active, appointmentID, r.ID,
	)
	if err != nil {
		return fmt.Errorf("update reminder: %w", err)
	}
	return nil
}

func (s *AppointmentStore) RemoveReminder(appointmentID, reminderID string) error {
	_, err := s.db.Exec(
		`DELETE FROM reminders WHERE appointment_id = ? AND id = ?`,
		appointmentID, reminderID,
	)
	if err != nil {
		return fmt.Errorf("delete reminder: %w", err)
	}
	return nil
}

// ToggleReminderActive flips the active flag only. Scheduling or cancelling
// the queued notification belongs to the caller.
func (s *AppointmentStore) ToggleReminderActive(appointmentID, reminderID string) error {
	_, err := s.db.Exec(
		`UPDATE reminders SET is_active = 1 - is_active WHERE appointment_id = ? AND id = ?`,
		appointmentID, reminderID,
	)
	if err != nil {
		return fmt.Errorf("toggle reminder: %w", err)
	}
	return nil
}

// SetReminderNotificationID records the scheduler handle on a reminder.
func (s *AppointmentStore) SetReminderNotificationID(appointmentID, reminderID, notificationID string) error {
	_, err := s.db.Exec(
		`UPDATE reminders SET notification_id = ? WHERE appointment_id = ? AND id = ?`,
		notificationID, appointmentID, reminderID,
	)
	if err != nil {
		return fmt.Errorf("set reminder notification id: %w", err)
	}
	return nil
}

// --- Category methods ---

// Categories returns the curated category list. Unlike shopping categories
// it is not derived from the items.
func (s *AppointmentStore) Categories() ([]string, error) {
	rows, err := s.db.Query(`SELECT name FROM appointment_categories ORDER BY created_at ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("list appointment categories: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan appointment category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// AddCategory inserts a category name; adding an existing name is a no-op.
func (s *AppointmentStore) AddCategory(name string) error {
	_, err := s.db.Exec(`INSERT OR IGNORE INTO appointment_categories (name) VALUES (?)`, name)
	if err != nil {
		return fmt.Errorf("add appointment category: %w", err)
	}
	return nil
}

func (s *AppointmentStore) RemoveCategory(name string) error {
	_, err := s.db.Exec(`DELETE FROM appointment_categories WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("remove appointment category: %w", err)
	}
	return nil
}

func insertReminders(tx *sql.Tx, appointmentID string, reminders []model.Reminder) error {
	for i, r := range reminders {
		var active int
		if r.IsActive {
			active = 1
		}
		if _, err := tx.Exec(
			`INSERT INTO reminders (id, appointment_id, minutes_before, notification_id, is_active, sort_order)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			r.ID, appointmentID, r.MinutesBefore, r.NotificationID, active, i,
		); err != nil {
			return fmt.Errorf("insert reminder: %w", err)
		}
	}
	return nil
}
