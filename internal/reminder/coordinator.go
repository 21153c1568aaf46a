package reminder

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/quailhollow/cradle/internal/model"
	"github.com/quailhollow/cradle/internal/store"
)

// Coordinator pairs appointment store mutations with the matching scheduler
// work so the notification queue never drifts from the stored reminders.
// Every write that touches reminders goes through here, not the store
// directly.
type Coordinator struct {
	appointments *store.AppointmentStore
	scheduler    *Scheduler
	logger       *slog.Logger
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(appointments *store.AppointmentStore, scheduler *Scheduler, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		appointments: appointments,
		scheduler:    scheduler,
		logger:       logger.With("component", "reminder-coordinator"),
	}
}

// AddAppointment stores the appointment and schedules its active reminders.
// Scheduling is best-effort: if notifications are off the appointment is
// still created, just with nothing queued.
func (c *Coordinator) AddAppointment(a model.Appointment) (*model.Appointment, error) {
	added, err := c.appointments.Add(a)
	if err != nil {
		return nil, err
	}
	if err := c.scheduleAndRecord(added); err != nil {
		return nil, err
	}
	return c.appointments.GetByID(added.ID)
}

// UpdateAppointment replaces the appointment, cancelling its old
// notifications and scheduling fresh ones for the new reminder set. Returns
// (nil, nil) when the appointment does not exist.
func (c *Coordinator) UpdateAppointment(a model.Appointment) (*model.Appointment, error) {
	if err := c.scheduler.CancelAll(a.ID); err != nil {
		return nil, fmt.Errorf("cancel notifications: %w", err)
	}

	updated, err := c.appointments.Update(a)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, nil
	}

	if err := c.scheduleAndRecord(updated); err != nil {
		return nil, err
	}
	return c.appointments.GetByID(updated.ID)
}

// RemoveAppointment cancels the appointment's notifications and deletes it.
func (c *Coordinator) RemoveAppointment(id string) error {
	if err := c.scheduler.CancelAll(id); err != nil {
		return fmt.Errorf("cancel notifications: %w", err)
	}
	return c.appointments.Remove(id)
}

// AddReminder attaches a reminder to an appointment and, if it is active,
// schedules it. Adding to an unknown appointment is a no-op, matching the
// store.
func (c *Coordinator) AddReminder(appointmentID string, r model.Reminder) (*model.Appointment, error) {
	if err := c.appointments.AddReminder(appointmentID, r); err != nil {
		return nil, err
	}

	appt, err := c.appointments.GetByID(appointmentID)
	if err != nil || appt == nil {
		return appt, err
	}

	if rem := appt.FindReminder(r.ID); rem != nil && rem.IsActive {
		handle, err := c.scheduler.Schedule(appt, rem)
		if err != nil && !errors.Is(err, ErrNotPermitted) {
			return nil, err
		}
		if handle != "" {
			if err := c.appointments.SetReminderNotificationID(appointmentID, rem.ID, handle); err != nil {
				return nil, err
			}
		}
	}

	return c.appointments.GetByID(appointmentID)
}

// UpdateReminder replaces a reminder's fields, cancelling its old queued
// notification and scheduling a fresh one when the updated reminder is
// active. Unknown appointments or reminders return (nil, nil).
func (c *Coordinator) UpdateReminder(appointmentID string, r model.Reminder) (*model.Appointment, error) {
	appt, err := c.appointments.GetByID(appointmentID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, nil
	}
	existing := appt.FindReminder(r.ID)
	if existing == nil {
		return nil, nil
	}

	if err := c.scheduler.Cancel(existing.NotificationID); err != nil {
		return nil, fmt.Errorf("cancel notification: %w", err)
	}

	r.NotificationID = ""
	if err := c.appointments.UpdateReminder(appointmentID, r); err != nil {
		return nil, err
	}

	if r.IsActive {
		appt, err = c.appointments.GetByID(appointmentID)
		if err != nil || appt == nil {
			return appt, err
		}
		if rem := appt.FindReminder(r.ID); rem != nil {
			handle, err := c.scheduler.Schedule(appt, rem)
			if err != nil && !errors.Is(err, ErrNotPermitted) {
				return nil, err
			}
			if handle != "" {
				if err := c.appointments.SetReminderNotificationID(appointmentID, r.ID, handle); err != nil {
					return nil, err
				}
			}
		}
	}

	return c.appointments.GetByID(appointmentID)
}

// RemoveReminder cancels the reminder's queued notification and detaches it
// from the appointment.
func (c *Coordinator) RemoveReminder(appointmentID, reminderID string) (*model.Appointment, error) {
	appt, err := c.appointments.GetByID(appointmentID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, nil
	}

	if rem := appt.FindReminder(reminderID); rem != nil {
		if err := c.scheduler.Cancel(rem.NotificationID); err != nil {
			return nil, fmt.Errorf("cancel notification: %w", err)
		}
	}

	if err := c.appointments.RemoveReminder(appointmentID, reminderID); err != nil {
		return nil, err
	}
	return c.appointments.GetByID(appointmentID)
}

// ToggleReminder flips a reminder's active flag and keeps the notification
// queue in step: activating schedules a notification (failing with
// ErrNotPermitted and leaving the flag untouched when notifications are
// off), deactivating cancels the queued one. Unknown appointments or
// reminders return (nil, nil) without changing anything.
func (c *Coordinator) ToggleReminder(appointmentID, reminderID string) (*model.Appointment, error) {
	appt, err := c.appointments.GetByID(appointmentID)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, nil
	}
	rem := appt.FindReminder(reminderID)
	if rem == nil {
		return nil, nil
	}

	if rem.IsActive {
		// Turning off: cancel whatever is queued, then flip
		if err := c.scheduler.Cancel(rem.NotificationID); err != nil {
			return nil, fmt.Errorf("cancel notification: %w", err)
		}
		if err := c.appointments.ToggleReminderActive(appointmentID, reminderID); err != nil {
			return nil, err
		}
		if err := c.appointments.SetReminderNotificationID(appointmentID, reminderID, ""); err != nil {
			return nil, err
		}
	} else {
		// Turning on: schedule first so a permission failure leaves the
		// reminder off
		handle, err := c.scheduler.Schedule(appt, rem)
		if err != nil {
			return nil, err
		}
		if err := c.appointments.ToggleReminderActive(appointmentID, reminderID); err != nil {
			return nil, err
		}
		if err := c.appointments.SetReminderNotificationID(appointmentID, reminderID, handle); err != nil {
			return nil, err
		}
	}

	return c.appointments.GetByID(appointmentID)
}

// RestoreAppointments replaces every stored appointment with the given set
// and rebuilds the notification queue around it: notifications queued for the
// outgoing appointments are cancelled, handles carried over in the restored
// data are discarded as stale, and active reminders are scheduled afresh.
func (c *Coordinator) RestoreAppointments(appts []model.Appointment) error {
	existing, err := c.appointments.List()
	if err != nil {
		return err
	}
	for _, a := range existing {
		if err := c.scheduler.CancelAll(a.ID); err != nil {
			return fmt.Errorf("cancel notifications: %w", err)
		}
	}

	for i := range appts {
		for j := range appts[i].Reminders {
			appts[i].Reminders[j].NotificationID = ""
		}
	}
	if err := c.appointments.ReplaceAll(appts); err != nil {
		return err
	}

	for i := range appts {
		appt, err := c.appointments.GetByID(appts[i].ID)
		if err != nil {
			return err
		}
		if appt == nil {
			continue
		}
		if err := c.scheduleAndRecord(appt); err != nil {
			return err
		}
	}
	return nil
}

// scheduleAndRecord queues notifications for the appointment's active
// reminders and persists the returned handles.
func (c *Coordinator) scheduleAndRecord(appt *model.Appointment) error {
	for reminderID, handle := range c.scheduler.ScheduleAll(appt) {
		if err := c.appointments.SetReminderNotificationID(appt.ID, reminderID, handle); err != nil {
			return err
		}
	}
	return nil
}
