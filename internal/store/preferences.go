package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/quailhollow/cradle/internal/model"
)

// PreferencesStore holds the singleton user preferences record. The row is
// seeded with defaults by migration; each setter replaces exactly one field.
type PreferencesStore struct {
	db *sql.DB
}

func NewPreferencesStore(db *sql.DB) *PreferencesStore {
	return &PreferencesStore{db: db}
}

func (s *PreferencesStore) Get() (*model.UserPreferences, error) {
	var p model.UserPreferences
	var enabled, reminders, updates int
	err := s.db.QueryRow(
		`SELECT theme, notifications_enabled, appointment_reminders, shopping_list_updates, currency, language
		 FROM preferences WHERE id = 1`,
	).Scan(&p.Theme, &enabled, &reminders, &updates, &p.Currency, &p.Language)
	if err != nil {
		return nil, fmt.Errorf("get preferences: %w", err)
	}
	p.Notifications.Enabled = enabled != 0
	p.Notifications.AppointmentReminders = reminders != 0
	p.Notifications.ShoppingListUpdates = updates != 0
	return &p, nil
}

func (s *PreferencesStore) SetTheme(theme string) error {
	if !model.ValidTheme(theme) {
		return fmt.Errorf("invalid theme %q", theme)
	}
	return s.setField("theme", theme)
}

func (s *PreferencesStore) SetNotificationsEnabled(enabled bool) error {
	return s.setField("notifications_enabled", boolToInt(enabled))
}

func (s *PreferencesStore) SetAppointmentReminders(enabled bool) error {
	return s.setField("appointment_reminders", boolToInt(enabled))
}

func (s *PreferencesStore) SetShoppingListUpdates(enabled bool) error {
	return s.setField("shopping_list_updates", boolToInt(enabled))
}

func (s *PreferencesStore) SetCurrency(currency string) error {
	return s.setField("currency", currency)
}

func (s *PreferencesStore) SetLanguage(language string) error {
	return s.setField("language", language)
}

// Reset restores every field to its first-run default.
func (s *PreferencesStore) Reset() error {
	defaults := model.DefaultPreferences()
	_, err := s.db.Exec(
		`UPDATE preferences SET theme = ?, notifications_enabled = ?, appointment_reminders = ?,
		 shopping_list_updates = ?, currency = ?, language = ?, updated_at = ? WHERE id = 1`,
		defaults.Theme,
		boolToInt(defaults.Notifications.Enabled),
		boolToInt(defaults.Notifications.AppointmentReminders),
		boolToInt(defaults.Notifications.ShoppingListUpdates),
		defaults.Currency,
		defaults.Language,
		time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("reset preferences: %w", err)
	}
	return nil
}

func (s *PreferencesStore) setField(column string, value any) error {
	// column comes from the fixed set above, never from input
	_, err := s.db.Exec(
		`UPDATE preferences SET `+column+` = ?, updated_at = ? WHERE id = 1`,
		value, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("set preference %s: %w", column, err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
