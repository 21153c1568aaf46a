package store

import (
	"database/sql"
	"slices"
	"testing"
	"time"

	"github.com/quailhollow/cradle/internal/database"
	"github.com/quailhollow/cradle/internal/model"
)

func setupAppointmentTestDB(t *testing.T) (*AppointmentStore, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewAppointmentStore(db), db
}

func testAppointment(id string) model.Appointment {
	return model.Appointment{
		ID:              id,
		Title:           "Midwife check",
		AppointmentType: "Medical",
		Location:        "Health centre",
		Notes:           "bring notes folder",
		DateTime:        time.Date(2026, 10, 2, 14, 0, 0, 0, time.UTC),
		Reminders: []model.Reminder{
			{ID: id + "-rem-1", MinutesBefore: 60, IsActive: true},
			{ID: id + "-rem-2", MinutesBefore: 1440, IsActive: false},
		},
	}
}

func TestAppointmentAddAndGet(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	added, err := s.Add(testAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if added.Title != "Midwife check" {
		t.Errorf("title = %s", added.Title)
	}
	if added.Created.IsZero() || added.Updated.IsZero() {
		t.Error("timestamps not defaulted")
	}
	if len(added.Reminders) != 2 {
		t.Fatalf("expected 2 reminders, got %d", len(added.Reminders))
	}
	if added.Reminders[0].ID != "appt-1-rem-1" || added.Reminders[1].ID != "appt-1-rem-2" {
		t.Errorf("reminder order not preserved: %+v", added.Reminders)
	}
	if !added.Reminders[0].IsActive || added.Reminders[1].IsActive {
		t.Error("active flags not preserved")
	}
}

func TestAppointmentGetUnknown(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	appt, err := s.GetByID("no-such")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if appt != nil {
		t.Errorf("expected nil, got %+v", appt)
	}
}

func TestAppointmentListSortedByDate(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	later := testAppointment("later")
	later.DateTime = time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC)
	sooner := testAppointment("sooner")
	sooner.DateTime = time.Date(2026, 9, 10, 9, 0, 0, 0, time.UTC)

	for _, a := range []model.Appointment{later, sooner} {
		if _, err := s.Add(a); err != nil {
			t.Fatalf("add: %v", err)
		}
	}

	appointments, err := s.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(appointments) != 2 || appointments[0].ID != "sooner" {
		t.Errorf("appointments not sorted by date: %v", appointments)
	}
}

func TestAppointmentUpdate(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	added, err := s.Add(testAppointment("appt-1"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}

	appt := testAppointment("appt-1")
	appt.Title = "Midwife check (moved)"
	appt.Reminders = []model.Reminder{{ID: "fresh-rem", MinutesBefore: 30, IsActive: true}}

	updated, err := s.Update(appt)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated == nil {
		t.Fatal("expected updated appointment")
	}
	if updated.Title != "Midwife check (moved)" {
		t.Errorf("title = %s", updated.Title)
	}
	if len(updated.Reminders) != 1 || updated.Reminders[0].ID != "fresh-rem" {
		t.Errorf("reminders not replaced: %+v", updated.Reminders)
	}
	if !updated.Updated.After(added.Updated) {
		t.Errorf("updated_at not bumped: %v vs %v", updated.Updated, added.Updated)
	}
}

func TestAppointmentUpdateUnknown(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	updated, err := s.Update(testAppointment("no-such"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated != nil {
		t.Errorf("expected nil, got %+v", updated)
	}
}

func TestAppointmentRemoveCascades(t *testing.T) {
	s, db := setupAppointmentTestDB(t)

	if _, err := s.Add(testAppointment("appt-1")); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Remove("appt-1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reminders WHERE appointment_id = 'appt-1'`).Scan(&count); err != nil {
		t.Fatalf("count reminders: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 orphaned reminders, got %d", count)
	}
}

func TestAddReminderUnknownAppointment(t *testing.T) {
	s, db := setupAppointmentTestDB(t)

	if err := s.AddReminder("no-such", model.Reminder{ID: "rem-1", MinutesBefore: 10}); err != nil {
		t.Fatalf("add reminder: %v", err)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM reminders`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Error("reminder inserted for missing appointment")
	}
}

func TestToggleReminderActive(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	if _, err := s.Add(testAppointment("appt-1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.ToggleReminderActive("appt-1", "appt-1-rem-1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	appt, _ := s.GetByID("appt-1")
	if appt.FindReminder("appt-1-rem-1").IsActive {
		t.Error("reminder still active")
	}

	if err := s.ToggleReminderActive("appt-1", "appt-1-rem-1"); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	appt, _ = s.GetByID("appt-1")
	if !appt.FindReminder("appt-1-rem-1").IsActive {
		t.Error("reminder not reactivated")
	}
}

func TestToggleReminderUnknownLeavesBitsUnchanged(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	if _, err := s.Add(testAppointment("appt-1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.ToggleReminderActive("appt-1", "no-such"); err != nil {
		t.Fatalf("toggle: %v", err)
	}

	appt, _ := s.GetByID("appt-1")
	if !appt.FindReminder("appt-1-rem-1").IsActive || appt.FindReminder("appt-1-rem-2").IsActive {
		t.Error("existing reminders modified by unknown toggle")
	}
}

func TestSetReminderNotificationID(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	if _, err := s.Add(testAppointment("appt-1")); err != nil {
		t.Fatalf("add: %v", err)
	}

	if err := s.SetReminderNotificationID("appt-1", "appt-1-rem-1", "notif-123"); err != nil {
		t.Fatalf("set notification id: %v", err)
	}
	appt, _ := s.GetByID("appt-1")
	if got := appt.FindReminder("appt-1-rem-1").NotificationID; got != "notif-123" {
		t.Errorf("notification id = %s", got)
	}

	// Clearing works too
	if err := s.SetReminderNotificationID("appt-1", "appt-1-rem-1", ""); err != nil {
		t.Fatalf("clear notification id: %v", err)
	}
	appt, _ = s.GetByID("appt-1")
	if got := appt.FindReminder("appt-1-rem-1").NotificationID; got != "" {
		t.Errorf("notification id not cleared: %s", got)
	}
}

func TestAppointmentCategoriesSeeded(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	categories, err := s.Categories()
	if err != nil {
		t.Fatalf("categories: %v", err)
	}
	for _, want := range model.DefaultAppointmentCategories {
		if !slices.Contains(categories, want) {
			t.Errorf("missing seeded category %s (got %v)", want, categories)
		}
	}
}

func TestAppointmentCategoryLifecycle(t *testing.T) {
	s, _ := setupAppointmentTestDB(t)

	if err := s.AddCategory("Physio"); err != nil {
		t.Fatalf("add category: %v", err)
	}
	// Duplicate add is a no-op
	if err := s.AddCategory("Physio"); err != nil {
		t.Fatalf("duplicate add: %v", err)
	}

	categories, _ := s.Categories()
	count := 0
	for _, c := range categories {
		if c == "Physio" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("expected 1 Physio entry, got %d", count)
	}

	if err := s.RemoveCategory("Physio"); err != nil {
		t.Fatalf("remove category: %v", err)
	}
	categories, _ = s.Categories()
	if slices.Contains(categories, "Physio") {
		t.Error("category not removed")
	}

	// A removed seeded category can be re-added
	if err := s.RemoveCategory("Scan"); err != nil {
		t.Fatalf("remove seeded: %v", err)
	}
	if err := s.AddCategory("Scan"); err != nil {
		t.Fatalf("re-add seeded: %v", err)
	}
	categories, _ = s.Categories()
	if !slices.Contains(categories, "Scan") {
		t.Error("seeded category not re-added")
	}
}
