package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/quailhollow/cradle/internal/model"
	"github.com/quailhollow/cradle/internal/reminder"
	"github.com/quailhollow/cradle/internal/store"
	"github.com/quailhollow/cradle/internal/websocket"
)

// AppointmentHandler serves appointment CRUD. Writes that touch reminders go
// through the coordinator so notification scheduling stays consistent.
type AppointmentHandler struct {
	store       *store.AppointmentStore
	coordinator *reminder.Coordinator
	hub         *websocket.Hub
}

func NewAppointmentHandler(s *store.AppointmentStore, c *reminder.Coordinator, hub *websocket.Hub) *AppointmentHandler {
	return &AppointmentHandler{store: s, coordinator: c, hub: hub}
}

func (h *AppointmentHandler) List(w http.ResponseWriter, r *http.Request) {
	appointments, err := h.store.List()
	if err != nil {
		log.Printf("failed to list appointments: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list appointments")
		return
	}
	if appointments == nil {
		appointments = []model.Appointment{}
	}
	writeJSON(w, http.StatusOK, appointments)
}

func (h *AppointmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.store.GetByID(r.PathValue("id"))
	if err != nil {
		log.Printf("failed to get appointment: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to get appointment")
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var appt model.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	appt.Title = strings.TrimSpace(appt.Title)
	if appt.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if appt.DateTime.IsZero() {
		writeError(w, http.StatusBadRequest, "dateTime is required")
		return
	}
	if appt.ID == "" {
		appt.ID = uuid.NewString()
	}
	for i := range appt.Reminders {
		if appt.Reminders[i].ID == "" {
			appt.Reminders[i].ID = uuid.NewString()
		}
	}

	created, err := h.coordinator.AddAppointment(appt)
	if err != nil {
		log.Printf("failed to create appointment: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to create appointment")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("appointment", "created", created.ID, nil))
	writeJSON(w, http.StatusCreated, created)
}

func (h *AppointmentHandler) Update(w http.ResponseWriter, r *http.Request) {
	var appt model.Appointment
	if err := json.NewDecoder(r.Body).Decode(&appt); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	appt.ID = r.PathValue("id")

	appt.Title = strings.TrimSpace(appt.Title)
	if appt.Title == "" {
		writeError(w, http.StatusBadRequest, "title is required")
		return
	}
	if appt.DateTime.IsZero() {
		writeError(w, http.StatusBadRequest, "dateTime is required")
		return
	}
	for i := range appt.Reminders {
		if appt.Reminders[i].ID == "" {
			appt.Reminders[i].ID = uuid.NewString()
		}
	}

	updated, err := h.coordinator.UpdateAppointment(appt)
	if err != nil {
		log.Printf("failed to update appointment: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update appointment")
		return
	}
	if updated == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("appointment", "updated", updated.ID, nil))
	writeJSON(w, http.StatusOK, updated)
}

func (h *AppointmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := h.coordinator.RemoveAppointment(id); err != nil {
		log.Printf("failed to delete appointment: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete appointment")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("appointment", "removed", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AppointmentHandler) AddReminder(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("id")

	var rem model.Reminder
	if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if rem.MinutesBefore < 0 {
		writeError(w, http.StatusBadRequest, "minutesBefore must be non-negative")
		return
	}
	if rem.ID == "" {
		rem.ID = uuid.NewString()
	}

	appt, err := h.coordinator.AddReminder(appointmentID, rem)
	if err != nil {
		log.Printf("failed to add reminder: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to add reminder")
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("appointment", "updated", appointmentID, nil))
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) UpdateReminder(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("id")

	var rem model.Reminder
	if err := json.NewDecoder(r.Body).Decode(&rem); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	rem.ID = r.PathValue("reminder_id")
	if rem.MinutesBefore < 0 {
		writeError(w, http.StatusBadRequest, "minutesBefore must be non-negative")
		return
	}

	appt, err := h.coordinator.UpdateReminder(appointmentID, rem)
	if err != nil {
		log.Printf("failed to update reminder: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update reminder")
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("appointment", "updated", appointmentID, nil))
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) DeleteReminder(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("id")

	appt, err := h.coordinator.RemoveReminder(appointmentID, r.PathValue("reminder_id"))
	if err != nil {
		log.Printf("failed to delete reminder: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete reminder")
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "appointment not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("appointment", "updated", appointmentID, nil))
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) ToggleReminder(w http.ResponseWriter, r *http.Request) {
	appointmentID := r.PathValue("id")

	appt, err := h.coordinator.ToggleReminder(appointmentID, r.PathValue("reminder_id"))
	if errors.Is(err, reminder.ErrNotPermitted) {
		writeError(w, http.StatusConflict, "notifications are disabled or no device is subscribed")
		return
	}
	if err != nil {
		log.Printf("failed to toggle reminder: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to toggle reminder")
		return
	}
	if appt == nil {
		writeError(w, http.StatusNotFound, "reminder not found")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("appointment", "updated", appointmentID, nil))
	writeJSON(w, http.StatusOK, appt)
}

func (h *AppointmentHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.store.Categories()
	if err != nil {
		log.Printf("failed to list appointment categories: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *AppointmentHandler) AddCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	if err := h.store.AddCategory(req.Name); err != nil {
		log.Printf("failed to add category: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to add category")
		return
	}
	h.Categories(w, r)
}

func (h *AppointmentHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.store.RemoveCategory(r.PathValue("name")); err != nil {
		log.Printf("failed to delete category: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to delete category")
		return
	}
	h.Categories(w, r)
}
