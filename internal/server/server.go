package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/quailhollow/cradle/internal/backup"
	"github.com/quailhollow/cradle/internal/handler"
	"github.com/quailhollow/cradle/internal/middleware"
	"github.com/quailhollow/cradle/internal/push"
	"github.com/quailhollow/cradle/internal/reminder"
	"github.com/quailhollow/cradle/internal/store"
	ws "github.com/quailhollow/cradle/internal/websocket"
)

// Config carries everything the server needs beyond the database handle.
type Config struct {
	BackupDir        string
	BackupInterval   time.Duration
	DispatchInterval time.Duration
	Push             push.Config
}

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	shoppingH     *handler.ShoppingHandler
	appointmentH  *handler.AppointmentHandler
	preferencesH  *handler.PreferencesHandler
	backupH       *handler.BackupHandler
	pushH         *handler.PushHandler
	dispatcher    *reminder.Dispatcher
	backupService *backup.Service
	backupManager *backup.Manager
	logger        *slog.Logger
}

// New wires stores, services, and handlers. replicator may be nil when no
// object storage is configured.
func New(db *sql.DB, cfg Config, replicator *backup.Replicator, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	shoppingStore := store.NewShoppingStore(db)
	appointmentStore := store.NewAppointmentStore(db)
	preferencesStore := store.NewPreferencesStore(db)
	settingsStore := store.NewSettingsStore(db)
	pushStore := store.NewPushStore(db)
	notificationStore := store.NewNotificationStore(db)

	pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey)

	scheduler := reminder.NewScheduler(notificationStore, pushStore, preferencesStore, logger)
	coordinator := reminder.NewCoordinator(appointmentStore, scheduler, logger)
	dispatcher := reminder.NewDispatcher(notificationStore, appointmentStore, pushStore, pushSvc, cfg.DispatchInterval, logger)

	backupSvc := backup.NewService(cfg.BackupDir, shoppingStore, appointmentStore, settingsStore, logger)
	backupMgr := backup.NewManager(backupSvc, replicator, cfg.BackupInterval, logger)

	return &Server{
		db:            db,
		hub:           hub,
		shoppingH:     handler.NewShoppingHandler(shoppingStore, hub),
		appointmentH:  handler.NewAppointmentHandler(appointmentStore, coordinator, hub),
		preferencesH:  handler.NewPreferencesHandler(preferencesStore),
		backupH:       handler.NewBackupHandler(backupSvc, backupMgr, shoppingStore, coordinator, hub),
		pushH:         handler.NewPushHandler(pushStore, pushSvc),
		dispatcher:    dispatcher,
		backupService: backupSvc,
		backupManager: backupMgr,
		logger:        logger.With("component", "server"),
	}
}

// Dispatcher returns the reminder dispatcher so main can run it.
func (s *Server) Dispatcher() *reminder.Dispatcher {
	return s.dispatcher
}

// BackupService returns the backup service so main can initialize it.
func (s *Server) BackupService() *backup.Service {
	return s.backupService
}

// BackupManager returns the auto-backup manager so main can run it.
func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

// Router builds the HTTP handler with all routes and middleware.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	// Shopping list
	mux.HandleFunc("GET /api/shopping-items", s.shoppingH.List)
	mux.HandleFunc("POST /api/shopping-items", s.shoppingH.Create)
	mux.HandleFunc("GET /api/shopping-items/categories", s.shoppingH.Categories)
	mux.HandleFunc("GET /api/shopping-items/{id}", s.shoppingH.Get)
	mux.HandleFunc("PUT /api/shopping-items/{id}", s.shoppingH.Update)
	mux.HandleFunc("DELETE /api/shopping-items/{id}", s.shoppingH.Delete)
	mux.HandleFunc("POST /api/shopping-items/{id}/price-options", s.shoppingH.AddPriceOption)
	mux.HandleFunc("PUT /api/shopping-items/{id}/price-options/{option_id}", s.shoppingH.UpdatePriceOption)
	mux.HandleFunc("DELETE /api/shopping-items/{id}/price-options/{option_id}", s.shoppingH.DeletePriceOption)
	mux.HandleFunc("POST /api/shopping-items/{id}/price-options/{option_id}/star", s.shoppingH.ToggleStar)

	// Appointments
	mux.HandleFunc("GET /api/appointments", s.appointmentH.List)
	mux.HandleFunc("POST /api/appointments", s.appointmentH.Create)
	mux.HandleFunc("GET /api/appointments/categories", s.appointmentH.Categories)
	mux.HandleFunc("POST /api/appointments/categories", s.appointmentH.AddCategory)
	mux.HandleFunc("DELETE /api/appointments/categories/{name}", s.appointmentH.DeleteCategory)
	mux.HandleFunc("GET /api/appointments/{id}", s.appointmentH.Get)
	mux.HandleFunc("PUT /api/appointments/{id}", s.appointmentH.Update)
	mux.HandleFunc("DELETE /api/appointments/{id}", s.appointmentH.Delete)
	mux.HandleFunc("POST /api/appointments/{id}/reminders", s.appointmentH.AddReminder)
	mux.HandleFunc("PUT /api/appointments/{id}/reminders/{reminder_id}", s.appointmentH.UpdateReminder)
	mux.HandleFunc("DELETE /api/appointments/{id}/reminders/{reminder_id}", s.appointmentH.DeleteReminder)
	mux.HandleFunc("POST /api/appointments/{id}/reminders/{reminder_id}/toggle", s.appointmentH.ToggleReminder)

	// Preferences
	mux.HandleFunc("GET /api/preferences", s.preferencesH.Get)
	mux.HandleFunc("PUT /api/preferences/theme", s.preferencesH.SetTheme)
	mux.HandleFunc("PUT /api/preferences/notifications", s.preferencesH.SetNotifications)
	mux.HandleFunc("PUT /api/preferences/currency", s.preferencesH.SetCurrency)
	mux.HandleFunc("PUT /api/preferences/language", s.preferencesH.SetLanguage)
	mux.HandleFunc("POST /api/preferences/reset", s.preferencesH.Reset)

	// Backup
	mux.HandleFunc("GET /api/backup/status", s.backupH.Status)
	mux.HandleFunc("PUT /api/backup/settings", s.backupH.SetEnabled)
	mux.HandleFunc("POST /api/backup/run", s.backupH.Run)
	mux.HandleFunc("POST /api/backup/restore", s.backupH.Restore)
	mux.HandleFunc("GET /api/backup/download", s.backupH.Download)

	// Push subscriptions
	mux.HandleFunc("GET /api/push/vapid-public-key", s.pushH.VAPIDPublicKey)
	mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
	mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	mux.HandleFunc("GET /api/push/subscriptions", s.pushH.List)

	return middleware.RequestLogger(s.logger)(mux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
