package handler

import (
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"

	"github.com/quailhollow/cradle/internal/backup"
	"github.com/quailhollow/cradle/internal/reminder"
	"github.com/quailhollow/cradle/internal/store"
	"github.com/quailhollow/cradle/internal/websocket"
)

type BackupHandler struct {
	service     *backup.Service
	manager     *backup.Manager
	shopping    *store.ShoppingStore
	coordinator *reminder.Coordinator
	hub         *websocket.Hub
}

func NewBackupHandler(service *backup.Service, manager *backup.Manager, shopping *store.ShoppingStore, coordinator *reminder.Coordinator, hub *websocket.Hub) *BackupHandler {
	return &BackupHandler{
		service:     service,
		manager:     manager,
		shopping:    shopping,
		coordinator: coordinator,
		hub:         hub,
	}
}

// Status reports the auto-backup switch, last backup time, and what the
// backup loop is doing.
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	enabled, err := h.service.Enabled()
	if err != nil {
		log.Printf("failed to read backup settings: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read backup settings")
		return
	}
	lastBackup, err := h.service.LastBackupTime()
	if err != nil {
		log.Printf("failed to read last backup time: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read backup settings")
		return
	}

	status, statusErr := h.manager.Status()
	resp := map[string]any{
		"enabled":    enabled,
		"lastBackup": lastBackup,
		"status":     string(status),
	}
	if statusErr != nil {
		resp["error"] = statusErr.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BackupHandler) SetEnabled(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if err := h.service.SetEnabled(req.Enabled); err != nil {
		log.Printf("failed to set backup enabled: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to update backup settings")
		return
	}
	h.Status(w, r)
}

// Run performs an immediate backup.
func (h *BackupHandler) Run(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.Backup()
	if err != nil {
		log.Printf("backup failed: %v", err)
		writeError(w, http.StatusInternalServerError, "backup failed")
		return
	}

	lastBackup, err := h.service.LastBackupTime()
	if err != nil {
		log.Printf("failed to read last backup time: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to read backup settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"file":       filepath.Base(path),
		"lastBackup": lastBackup,
	})
}

// Restore reads the most recent backup and applies it: the shopping list is
// replaced directly, appointments go through the coordinator so reminder
// notifications are rebuilt for the restored data.
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.Restore()
	if err != nil {
		log.Printf("restore failed: %v", err)
		writeError(w, http.StatusInternalServerError, "restore failed")
		return
	}
	if state == nil {
		writeError(w, http.StatusNotFound, "no backup available")
		return
	}

	if err := h.shopping.ReplaceAll(state.ShoppingList); err != nil {
		log.Printf("failed to apply restored shopping list: %v", err)
		writeError(w, http.StatusInternalServerError, "restore failed")
		return
	}
	if err := h.coordinator.RestoreAppointments(state.Appointments); err != nil {
		log.Printf("failed to apply restored appointments: %v", err)
		writeError(w, http.StatusInternalServerError, "restore failed")
		return
	}

	h.hub.Broadcast(websocket.NewMessage("backup", "restored", "", nil))
	writeJSON(w, http.StatusOK, state)
}

// Download serves the newest backup file as an attachment.
func (h *BackupHandler) Download(w http.ResponseWriter, r *http.Request) {
	path, err := h.service.Share()
	if err != nil {
		log.Printf("failed to locate backup: %v", err)
		writeError(w, http.StatusInternalServerError, "failed to locate backup")
		return
	}
	if path == "" {
		writeError(w, http.StatusNotFound, "no backup available")
		return
	}

	w.Header().Set("Content-Disposition", "attachment; filename="+filepath.Base(path))
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}
