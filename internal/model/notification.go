package model

import "time"

// ScheduledNotification is a queued reminder delivery. ID is the external
// handle stored back on the Reminder; AppointmentID/ReminderID correlate the
// notification with its source for cancellation.
type ScheduledNotification struct {
	ID            string    `json:"id"`
	AppointmentID string    `json:"appointmentId"`
	ReminderID    string    `json:"reminderId"`
	TriggerAt     time.Time `json:"triggerAt"`
	Title         string    `json:"title"`
	Body          string    `json:"body"`
	Delivered     bool      `json:"delivered"`
	CreatedAt     time.Time `json:"createdAt"`
}

type PushSubscription struct {
	ID         int64     `json:"id"`
	Endpoint   string    `json:"endpoint"`
	P256dhKey  string    `json:"p256dh_key"`
	AuthKey    string    `json:"auth_key"`
	DeviceName string    `json:"device_name"`
	CreatedAt  time.Time `json:"created_at"`
}
