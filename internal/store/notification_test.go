package store

import (
	"testing"
	"time"

	"github.com/quailhollow/cradle/internal/database"
	"github.com/quailhollow/cradle/internal/model"
)

func setupNotificationTestDB(t *testing.T) *NotificationStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewNotificationStore(db)
}

func testNotification(id string, triggerAt time.Time) model.ScheduledNotification {
	return model.ScheduledNotification{
		ID:            id,
		AppointmentID: "appt-1",
		ReminderID:    "rem-1",
		TriggerAt:     triggerAt,
		Title:         "Appointment Reminder",
		Body:          "Your appointment is soon",
	}
}

func TestNotificationEnqueueAndGet(t *testing.T) {
	s := setupNotificationTestDB(t)

	trigger := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := s.Enqueue(testNotification("n-1", trigger)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	n, err := s.GetByID("n-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if n == nil {
		t.Fatal("notification missing")
	}
	if n.Delivered {
		t.Error("new notification marked delivered")
	}
	if !n.TriggerAt.Equal(trigger) {
		t.Errorf("trigger = %v, want %v", n.TriggerAt, trigger)
	}
}

func TestNotificationCancelIdempotent(t *testing.T) {
	s := setupNotificationTestDB(t)

	if err := s.Enqueue(testNotification("n-1", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := s.Cancel("n-1"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if n, _ := s.GetByID("n-1"); n != nil {
		t.Error("notification survived cancel")
	}
	// Again, and unknown
	if err := s.Cancel("n-1"); err != nil {
		t.Errorf("second cancel: %v", err)
	}
	if err := s.Cancel("never-existed"); err != nil {
		t.Errorf("unknown cancel: %v", err)
	}
}

func TestCancelByAppointment(t *testing.T) {
	s := setupNotificationTestDB(t)

	later := time.Now().Add(time.Hour)
	n1 := testNotification("n-1", later)
	n2 := testNotification("n-2", later)
	n2.ReminderID = "rem-2"
	other := testNotification("n-3", later)
	other.AppointmentID = "appt-2"

	for _, n := range []model.ScheduledNotification{n1, n2, other} {
		if err := s.Enqueue(n); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	if err := s.CancelByAppointment("appt-1"); err != nil {
		t.Fatalf("cancel by appointment: %v", err)
	}

	pending, err := s.ListScheduled()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != "n-3" {
		t.Errorf("pending = %+v, want only n-3", pending)
	}
}

func TestListDue(t *testing.T) {
	s := setupNotificationTestDB(t)

	now := time.Now().UTC()
	past := testNotification("past", now.Add(-time.Minute))
	boundary := testNotification("boundary", now)
	future := testNotification("future", now.Add(time.Hour))

	for _, n := range []model.ScheduledNotification{past, boundary, future} {
		if err := s.Enqueue(n); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}

	due, err := s.ListDue(now)
	if err != nil {
		t.Fatalf("list due: %v", err)
	}
	if len(due) != 2 {
		t.Fatalf("expected 2 due, got %d", len(due))
	}
	if due[0].ID != "past" || due[1].ID != "boundary" {
		t.Errorf("due order = %s, %s", due[0].ID, due[1].ID)
	}
}

func TestMarkDeliveredExcludesFromPending(t *testing.T) {
	s := setupNotificationTestDB(t)

	now := time.Now().UTC()
	if err := s.Enqueue(testNotification("n-1", now.Add(-time.Minute))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if err := s.MarkDelivered("n-1"); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}

	due, _ := s.ListDue(now)
	if len(due) != 0 {
		t.Errorf("delivered notification still due: %+v", due)
	}
	pending, _ := s.ListScheduled()
	if len(pending) != 0 {
		t.Errorf("delivered notification still pending: %+v", pending)
	}

	// Still retrievable directly, flagged delivered
	n, _ := s.GetByID("n-1")
	if n == nil || !n.Delivered {
		t.Errorf("delivered flag not set: %+v", n)
	}
}

func TestPurgeDelivered(t *testing.T) {
	s := setupNotificationTestDB(t)

	if err := s.Enqueue(testNotification("old", time.Now().Add(-time.Hour))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if err := s.MarkDelivered("old"); err != nil {
		t.Fatalf("mark delivered: %v", err)
	}
	if err := s.Enqueue(testNotification("pending", time.Now().Add(time.Hour))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	// Purge everything delivered before tomorrow
	if err := s.PurgeDelivered(time.Now().Add(24 * time.Hour)); err != nil {
		t.Fatalf("purge: %v", err)
	}

	if n, _ := s.GetByID("old"); n != nil {
		t.Error("delivered notification survived purge")
	}
	if n, _ := s.GetByID("pending"); n == nil {
		t.Error("pending notification was purged")
	}
}
