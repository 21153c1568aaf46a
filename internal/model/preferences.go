package model

// Theme values accepted by preferences.
const (
	ThemeLight  = "light"
	ThemeDark   = "dark"
	ThemeSystem = "system"
)

type NotificationPreferences struct {
	Enabled              bool `json:"enabled"`
	AppointmentReminders bool `json:"appointmentReminders"`
	ShoppingListUpdates  bool `json:"shoppingListUpdates"`
}

// UserPreferences is a process-wide singleton record, created with defaults
// on first run and overwritten wholesale on change.
type UserPreferences struct {
	Theme         string                  `json:"theme"`
	Notifications NotificationPreferences `json:"notifications"`
	Currency      string                  `json:"currency"`
	Language      string                  `json:"language"`
}

// DefaultPreferences returns the first-run preference values.
func DefaultPreferences() UserPreferences {
	return UserPreferences{
		Theme: ThemeSystem,
		Notifications: NotificationPreferences{
			Enabled:              true,
			AppointmentReminders: true,
			ShoppingListUpdates:  true,
		},
		Currency: "GBP",
		Language: "en",
	}
}

// ValidTheme reports whether s is an accepted theme value.
func ValidTheme(s string) bool {
	return s == ThemeLight || s == ThemeDark || s == ThemeSystem
}
