// Package reminder schedules, delivers, and coordinates appointment reminder
// notifications. The Scheduler turns reminders into queued notifications, the
// Dispatcher delivers due ones over web push, and the Coordinator keeps store
// mutations and the notification queue in step.
package reminder

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/quailhollow/cradle/internal/model"
	"github.com/quailhollow/cradle/internal/store"
)

// ErrNotPermitted is returned when notifications are disabled in preferences
// or no device has subscribed to push.
var ErrNotPermitted = errors.New("notifications not permitted")

// notificationQueue is the subset of the notification store the scheduler
// writes through.
type notificationQueue interface {
	Enqueue(n model.ScheduledNotification) error
	Cancel(id string) error
	CancelByAppointment(appointmentID string) error
}

// Scheduler queues reminder notifications at their trigger time.
type Scheduler struct {
	notifications notificationQueue
	push          *store.PushStore
	preferences   *store.PreferencesStore
	logger        *slog.Logger

	// now is swapped in tests
	now func() time.Time
}

// NewScheduler creates a Scheduler.
func NewScheduler(notifications notificationQueue, push *store.PushStore, preferences *store.PreferencesStore, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		notifications: notifications,
		push:          push,
		preferences:   preferences,
		logger:        logger.With("component", "reminder-scheduler"),
		now:           time.Now,
	}
}

// TriggerTime returns when a reminder should fire: the appointment time minus
// the reminder's lead.
func TriggerTime(dateTime time.Time, minutesBefore int) time.Time {
	return dateTime.Add(-time.Duration(minutesBefore) * time.Minute)
}

// Permitted reports whether reminder notifications may be scheduled: at least
// one push subscription exists and both the global notifications switch and
// the appointment-reminders switch are on.
func (s *Scheduler) Permitted() (bool, error) {
	count, err := s.push.Count()
	if err != nil {
		return false, fmt.Errorf("count subscriptions: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	prefs, err := s.preferences.Get()
	if err != nil {
		return false, fmt.Errorf("load preferences: %w", err)
	}
	return prefs.Notifications.Enabled && prefs.Notifications.AppointmentReminders, nil
}

// Schedule queues a notification for the given reminder and returns its
// handle. It returns ErrNotPermitted when notifications are off, and ("",
// nil) when the trigger time is already in the past.
func (s *Scheduler) Schedule(appt *model.Appointment, rem *model.Reminder) (string, error) {
	ok, err := s.Permitted()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNotPermitted
	}

	trigger := TriggerTime(appt.DateTime, rem.MinutesBefore)
	if !trigger.After(s.now()) {
		s.logger.Debug("trigger in the past, skipping",
			"appointment", appt.ID, "reminder", rem.ID, "trigger", trigger)
		return "", nil
	}

	n := model.ScheduledNotification{
		ID:            uuid.NewString(),
		AppointmentID: appt.ID,
		ReminderID:    rem.ID,
		TriggerAt:     trigger,
		Title:         "Appointment Reminder",
		Body:          fmt.Sprintf("Your appointment %q is in %s", appt.Title, formatLead(rem.MinutesBefore)),
	}
	if err := s.notifications.Enqueue(n); err != nil {
		return "", err
	}

	s.logger.Info("reminder scheduled",
		"appointment", appt.ID, "reminder", rem.ID, "notification", n.ID, "trigger", trigger)
	return n.ID, nil
}

// Cancel removes a queued notification. Cancelling an empty or unknown handle
// is a no-op.
func (s *Scheduler) Cancel(notificationID string) error {
	if notificationID == "" {
		return nil
	}
	return s.notifications.Cancel(notificationID)
}

// ScheduleAll queues notifications for every active reminder of the
// appointment and returns reminder ID -> notification handle for those
// actually queued. Inactive reminders and past triggers are skipped, and a
// reminder that fails to queue is logged and skipped rather than aborting
// the rest of the batch. When notifications are not permitted it returns an
// empty map.
func (s *Scheduler) ScheduleAll(appt *model.Appointment) map[string]string {
	handles := make(map[string]string)
	for i := range appt.Reminders {
		rem := &appt.Reminders[i]
		if !rem.IsActive {
			continue
		}
		id, err := s.Schedule(appt, rem)
		if errors.Is(err, ErrNotPermitted) {
			return handles
		}
		if err != nil {
			s.logger.Error("schedule reminder",
				"appointment", appt.ID, "reminder", rem.ID, "error", err)
			continue
		}
		if id != "" {
			handles[rem.ID] = id
		}
	}
	return handles
}

// CancelAll removes every queued notification for the appointment.
func (s *Scheduler) CancelAll(appointmentID string) error {
	return s.notifications.CancelByAppointment(appointmentID)
}

// formatLead renders a lead time in minutes as a human-readable phrase.
func formatLead(minutes int) string {
	switch {
	case minutes >= 1440 && minutes%1440 == 0:
		days := minutes / 1440
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	case minutes >= 60 && minutes%60 == 0:
		hours := minutes / 60
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	case minutes == 1:
		return "1 minute"
	default:
		return fmt.Sprintf("%d minutes", minutes)
	}
}
