package model

import "time"

// Reminder is a notification request attached to an appointment. Its
// lifecycle is bound to the parent appointment. NotificationID is the
// handle returned by the scheduler; empty when nothing is queued.
type Reminder struct {
	ID             string `json:"id"`
	MinutesBefore  int    `json:"minutesBefore"`
	NotificationID string `json:"notificationId"`
	IsActive       bool   `json:"isActive"`
}

type Appointment struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	AppointmentType string     `json:"appointmentType"`
	Location        string     `json:"location"`
	Notes           string     `json:"notes,omitempty"`
	DateTime        time.Time  `json:"dateTime"`
	Created         time.Time  `json:"created"`
	Updated         time.Time  `json:"updated"`
	Reminders       []Reminder `json:"reminders"`
}

// FindReminder returns the reminder with the given ID, or nil.
func (a *Appointment) FindReminder(reminderID string) *Reminder {
	for i := range a.Reminders {
		if a.Reminders[i].ID == reminderID {
			return &a.Reminders[i]
		}
	}
	return nil
}

// DefaultAppointmentCategories seeds the curated category list.
var DefaultAppointmentCategories = []string{"Medical", "Check-up", "Scan", "Class", "Other"}
