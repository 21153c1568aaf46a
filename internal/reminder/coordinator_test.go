package reminder

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/quailhollow/cradle/internal/model"
)

func setupCoordinatorTest(t *testing.T) (*fixture, *Coordinator) {
	t.Helper()
	f := setupReminderTest(t)
	c := NewCoordinator(f.appointments, f.scheduler, slog.Default())
	return f, c
}

func TestAddAppointmentSchedulesActiveReminders(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	if appt == nil {
		t.Fatal("expected appointment back")
	}

	rem := appt.FindReminder("rem-1")
	if rem == nil {
		t.Fatal("reminder missing")
	}
	if rem.NotificationID == "" {
		t.Fatal("expected notification handle on active reminder")
	}

	n, err := f.notifications.GetByID(rem.NotificationID)
	if err != nil {
		t.Fatalf("get notification: %v", err)
	}
	if n == nil {
		t.Fatal("handle does not resolve to a queued notification")
	}
}

func TestAddAppointmentWithoutPermissionStillCreates(t *testing.T) {
	_, c := setupCoordinatorTest(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	if appt == nil {
		t.Fatal("expected appointment back")
	}
	if rem := appt.FindReminder("rem-1"); rem == nil || rem.NotificationID != "" {
		t.Errorf("expected reminder with no handle, got %+v", rem)
	}
}

func TestAddAppointmentSurvivesQueueFailure(t *testing.T) {
	f := setupReminderTest(t)
	f.subscribe(t)

	flaky := &flakyQueue{NotificationStore: f.notifications, failReminder: "rem-1"}
	sched := NewScheduler(flaky, f.subscriptions, f.preferences, slog.Default())
	c := NewCoordinator(f.appointments, sched, slog.Default())

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	if appt == nil {
		t.Fatal("expected appointment back despite queue failure")
	}
	if rem := appt.FindReminder("rem-1"); rem == nil || rem.NotificationID != "" {
		t.Errorf("expected reminder with no handle, got %+v", rem)
	}
}

func TestUpdateAppointmentReschedules(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	oldHandle := appt.FindReminder("rem-1").NotificationID

	appt.DateTime = appt.DateTime.Add(24 * time.Hour)
	updated, err := c.UpdateAppointment(*appt)
	if err != nil {
		t.Fatalf("update appointment: %v", err)
	}
	if updated == nil {
		t.Fatal("expected updated appointment")
	}

	newHandle := updated.FindReminder("rem-1").NotificationID
	if newHandle == "" || newHandle == oldHandle {
		t.Fatalf("expected a fresh handle, old=%s new=%s", oldHandle, newHandle)
	}

	// Old notification must be gone
	if n, _ := f.notifications.GetByID(oldHandle); n != nil {
		t.Error("stale notification left in queue")
	}
	if n, _ := f.notifications.GetByID(newHandle); n == nil {
		t.Error("new notification not queued")
	}
}

func TestUpdateUnknownAppointment(t *testing.T) {
	_, c := setupCoordinatorTest(t)

	updated, err := c.UpdateAppointment(futureAppointment("no-such"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated != nil {
		t.Fatal("expected nil for unknown appointment")
	}
}

func TestRemoveAppointmentCancelsNotifications(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	handle := appt.FindReminder("rem-1").NotificationID

	if err := c.RemoveAppointment("appt-1"); err != nil {
		t.Fatalf("remove appointment: %v", err)
	}

	if got, _ := f.appointments.GetByID("appt-1"); got != nil {
		t.Error("appointment still present")
	}
	if n, _ := f.notifications.GetByID(handle); n != nil {
		t.Error("notification still queued after removal")
	}
}

func TestAddReminderSchedules(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	base := futureAppointment("appt-1")
	base.Reminders = nil
	if _, err := c.AddAppointment(base); err != nil {
		t.Fatalf("add appointment: %v", err)
	}

	appt, err := c.AddReminder("appt-1", model.Reminder{ID: "rem-9", MinutesBefore: 60, IsActive: true})
	if err != nil {
		t.Fatalf("add reminder: %v", err)
	}
	rem := appt.FindReminder("rem-9")
	if rem == nil || rem.NotificationID == "" {
		t.Fatalf("expected scheduled reminder, got %+v", rem)
	}
	if n, _ := f.notifications.GetByID(rem.NotificationID); n == nil {
		t.Error("notification not queued")
	}
}

func TestUpdateReminderReschedules(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	oldHandle := appt.FindReminder("rem-1").NotificationID

	appt, err = c.UpdateReminder("appt-1", model.Reminder{ID: "rem-1", MinutesBefore: 120, IsActive: true})
	if err != nil {
		t.Fatalf("update reminder: %v", err)
	}

	rem := appt.FindReminder("rem-1")
	if rem.MinutesBefore != 120 {
		t.Errorf("minutesBefore = %d", rem.MinutesBefore)
	}
	if rem.NotificationID == "" || rem.NotificationID == oldHandle {
		t.Fatalf("expected fresh handle, old=%s new=%s", oldHandle, rem.NotificationID)
	}
	if n, _ := f.notifications.GetByID(oldHandle); n != nil {
		t.Error("stale notification left in queue")
	}
}

func TestUpdateReminderDeactivates(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	handle := appt.FindReminder("rem-1").NotificationID

	appt, err = c.UpdateReminder("appt-1", model.Reminder{ID: "rem-1", MinutesBefore: 30, IsActive: false})
	if err != nil {
		t.Fatalf("update reminder: %v", err)
	}

	rem := appt.FindReminder("rem-1")
	if rem.IsActive || rem.NotificationID != "" {
		t.Errorf("expected inactive reminder with no handle, got %+v", rem)
	}
	if n, _ := f.notifications.GetByID(handle); n != nil {
		t.Error("notification still queued after deactivation")
	}
}

func TestUpdateUnknownReminder(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	if _, err := c.AddAppointment(futureAppointment("appt-1")); err != nil {
		t.Fatalf("add appointment: %v", err)
	}

	appt, err := c.UpdateReminder("appt-1", model.Reminder{ID: "no-such", MinutesBefore: 10, IsActive: true})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if appt != nil {
		t.Fatal("expected nil for unknown reminder")
	}
}

func TestRemoveReminderCancels(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	handle := appt.FindReminder("rem-1").NotificationID

	appt, err = c.RemoveReminder("appt-1", "rem-1")
	if err != nil {
		t.Fatalf("remove reminder: %v", err)
	}
	if appt.FindReminder("rem-1") != nil {
		t.Error("reminder still attached")
	}
	if n, _ := f.notifications.GetByID(handle); n != nil {
		t.Error("notification still queued")
	}
}

func TestToggleReminderOff(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	handle := appt.FindReminder("rem-1").NotificationID
	if handle == "" {
		t.Fatal("precondition: expected scheduled reminder")
	}

	appt, err = c.ToggleReminder("appt-1", "rem-1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}

	rem := appt.FindReminder("rem-1")
	if rem.IsActive {
		t.Error("reminder still active after toggle off")
	}
	if rem.NotificationID != "" {
		t.Error("handle not cleared after toggle off")
	}
	if n, _ := f.notifications.GetByID(handle); n != nil {
		t.Error("notification still queued after toggle off")
	}
}

func TestToggleReminderOn(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	base := futureAppointment("appt-1")
	base.Reminders[0].IsActive = false
	if _, err := c.AddAppointment(base); err != nil {
		t.Fatalf("add appointment: %v", err)
	}

	appt, err := c.ToggleReminder("appt-1", "rem-1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}

	rem := appt.FindReminder("rem-1")
	if !rem.IsActive {
		t.Error("reminder not active after toggle on")
	}
	if rem.NotificationID == "" {
		t.Fatal("expected handle after toggle on")
	}
	if n, _ := f.notifications.GetByID(rem.NotificationID); n == nil {
		t.Error("notification not queued after toggle on")
	}
}

func TestToggleReminderOnNotPermittedLeavesFlag(t *testing.T) {
	f, c := setupCoordinatorTest(t)

	base := futureAppointment("appt-1")
	base.Reminders[0].IsActive = false
	if _, err := c.AddAppointment(base); err != nil {
		t.Fatalf("add appointment: %v", err)
	}

	_, err := c.ToggleReminder("appt-1", "rem-1")
	if !errors.Is(err, ErrNotPermitted) {
		t.Fatalf("expected ErrNotPermitted, got %v", err)
	}

	appt, err := f.appointments.GetByID("appt-1")
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if appt.FindReminder("rem-1").IsActive {
		t.Error("flag flipped despite permission failure")
	}
}

func TestToggleUnknownReminder(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	if _, err := c.AddAppointment(futureAppointment("appt-1")); err != nil {
		t.Fatalf("add appointment: %v", err)
	}

	appt, err := c.ToggleReminder("appt-1", "no-such-reminder")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if appt != nil {
		t.Fatal("expected nil for unknown reminder")
	}

	// Existing reminder untouched
	got, err := f.appointments.GetByID("appt-1")
	if err != nil {
		t.Fatalf("get appointment: %v", err)
	}
	if !got.FindReminder("rem-1").IsActive {
		t.Error("unrelated reminder was modified")
	}
}

func TestRestoreAppointmentsReschedules(t *testing.T) {
	f, c := setupCoordinatorTest(t)
	f.subscribe(t)

	appt, err := c.AddAppointment(futureAppointment("appt-old"))
	if err != nil {
		t.Fatalf("add appointment: %v", err)
	}
	oldHandle := appt.FindReminder("rem-1").NotificationID
	if oldHandle == "" {
		t.Fatal("precondition: expected scheduled reminder")
	}

	restored := futureAppointment("appt-new")
	restored.Reminders[0].NotificationID = "stale-handle"
	if err := c.RestoreAppointments([]model.Appointment{restored}); err != nil {
		t.Fatalf("restore appointments: %v", err)
	}

	if a, _ := f.appointments.GetByID("appt-old"); a != nil {
		t.Error("outgoing appointment survived restore")
	}
	if n, _ := f.notifications.GetByID(oldHandle); n != nil {
		t.Error("outgoing appointment's notification still queued")
	}

	got, err := f.appointments.GetByID("appt-new")
	if err != nil {
		t.Fatalf("get restored appointment: %v", err)
	}
	if got == nil {
		t.Fatal("restored appointment missing")
	}
	rem := got.FindReminder("rem-1")
	if rem.NotificationID == "" || rem.NotificationID == "stale-handle" {
		t.Fatalf("expected fresh handle, got %q", rem.NotificationID)
	}
	if n, _ := f.notifications.GetByID(rem.NotificationID); n == nil {
		t.Error("restored reminder not queued")
	}
}

func TestRestoreAppointmentsWithoutPermission(t *testing.T) {
	f, c := setupCoordinatorTest(t)

	restored := futureAppointment("appt-new")
	restored.Reminders[0].NotificationID = "stale-handle"
	if err := c.RestoreAppointments([]model.Appointment{restored}); err != nil {
		t.Fatalf("restore appointments: %v", err)
	}

	got, err := f.appointments.GetByID("appt-new")
	if err != nil {
		t.Fatalf("get restored appointment: %v", err)
	}
	rem := got.FindReminder("rem-1")
	if !rem.IsActive {
		t.Error("restored reminder lost its active flag")
	}
	if rem.NotificationID != "" {
		t.Errorf("expected stale handle discarded, got %q", rem.NotificationID)
	}
}

func TestToggleUnknownAppointment(t *testing.T) {
	_, c := setupCoordinatorTest(t)

	appt, err := c.ToggleReminder("no-such", "rem-1")
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if appt != nil {
		t.Fatal("expected nil for unknown appointment")
	}
}
