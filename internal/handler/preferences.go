package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/quailhollow/cradle/internal/model"
	"github.com/quailhollow/cradle/internal/store"
)

type PreferencesHandler struct {
	store *store.PreferencesStore
}

func NewPreferencesHandler(s *store.PreferencesStore) *PreferencesHandler {
	return &PreferencesHandler{store: s}
}

func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	prefs, err := h.store.Get()
	if err != nil {
		log.Printf("failed to load preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to load preferences")
		return
	}
	writeJSON(w, http.StatusOK, prefs)
}

func (h *PreferencesHandler) SetTheme(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Theme string `json:"theme"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if !model.ValidTheme(req.Theme) {
		writeError(w, http.StatusBadRequest, "theme must be light, dark, or system")
		return
	}

	if err := h.store.SetTheme(req.Theme); err != nil {
		log.Printf("failed to set theme: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to set theme")
		return
	}
	h.Get(w, r)
}

func (h *PreferencesHandler) SetNotifications(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled              *bool `json:"enabled"`
		AppointmentReminders *bool `json:"appointmentReminders"`
		ShoppingListUpdates  *bool `json:"shoppingListUpdates"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Enabled != nil {
		if err := h.store.SetNotificationsEnabled(*req.Enabled); err != nil {
			log.Printf("failed to set notifications enabled: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update notifications")
			return
		}
	}
	if req.AppointmentReminders != nil {
		if err := h.store.SetAppointmentReminders(*req.AppointmentReminders); err != nil {
			log.Printf("failed to set appointment reminders: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update notifications")
			return
		}
	}
	if req.ShoppingListUpdates != nil {
		if err := h.store.SetShoppingListUpdates(*req.ShoppingListUpdates); err != nil {
			log.Printf("failed to set shopping list updates: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to update notifications")
			return
		}
	}
	h.Get(w, r)
}

func (h *PreferencesHandler) SetCurrency(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Currency string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Currency = strings.TrimSpace(req.Currency)
	if req.Currency == "" {
		writeError(w, http.StatusBadRequest, "currency is required")
		return
	}

	if err := h.store.SetCurrency(req.Currency); err != nil {
		log.Printf("failed to set currency: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to set currency")
		return
	}
	h.Get(w, r)
}

func (h *PreferencesHandler) SetLanguage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Language string `json:"language"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Language = strings.TrimSpace(req.Language)
	if req.Language == "" {
		writeError(w, http.StatusBadRequest, "language is required")
		return
	}

	if err := h.store.SetLanguage(req.Language); err != nil {
		log.Printf("failed to set language: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to set language")
		return
	}
	h.Get(w, r)
}

func (h *PreferencesHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reset(); err != nil {
		log.Printf("failed to reset preferences: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to reset preferences")
		return
	}
	h.Get(w, r)
}
