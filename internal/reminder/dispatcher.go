package reminder

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/quailhollow/cradle/internal/push"
	"github.com/quailhollow/cradle/internal/store"
)

const deliveredRetention = 7 * 24 * time.Hour

// Dispatcher polls for due notifications and delivers them over web push.
type Dispatcher struct {
	notifications *store.NotificationStore
	appointments  *store.AppointmentStore
	subscriptions *store.PushStore
	sender        *push.Service
	interval      time.Duration
	logger        *slog.Logger

	cancel context.CancelFunc
	done   chan struct{}

	now func() time.Time
}

// NewDispatcher creates a Dispatcher polling at the given interval.
func NewDispatcher(notifications *store.NotificationStore, appointments *store.AppointmentStore, subscriptions *store.PushStore, sender *push.Service, interval time.Duration, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		appointments:  appointments,
		subscriptions: subscriptions,
		sender:        sender,
		interval:      interval,
		logger:        logger.With("component", "reminder-dispatcher"),
		now:           time.Now,
	}
}

// Start begins the polling loop. Call Stop to halt it.
func (d *Dispatcher) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.done = make(chan struct{})

	go d.run(ctx)
	d.logger.Info("dispatcher started", "interval", d.interval.String())
}

// Stop halts the polling loop and waits for the current pass to finish.
func (d *Dispatcher) Stop() {
	if d.cancel == nil {
		return
	}
	d.cancel()
	<-d.done
	d.logger.Info("dispatcher stopped")
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			d.DeliverDue()
		case <-ctx.Done():
			return
		}
	}
}

// DeliverDue delivers every notification whose trigger time has passed. A
// notification whose reminder was removed or deactivated after scheduling is
// dropped instead of delivered.
func (d *Dispatcher) DeliverDue() {
	now := d.now()

	due, err := d.notifications.ListDue(now)
	if err != nil {
		d.logger.Error("list due notifications", "error", err)
		return
	}

	for _, n := range due {
		if !d.stillWanted(n.AppointmentID, n.ReminderID) {
			if err := d.notifications.Cancel(n.ID); err != nil {
				d.logger.Error("drop stale notification", "notification", n.ID, "error", err)
			}
			continue
		}

		d.deliver(n.ID, n.AppointmentID, n.ReminderID, n.Title, n.Body)
	}

	if err := d.notifications.PurgeDelivered(now.Add(-deliveredRetention)); err != nil {
		d.logger.Error("purge delivered notifications", "error", err)
	}
}

// stillWanted reports whether the reminder behind a queued notification still
// exists and is active.
func (d *Dispatcher) stillWanted(appointmentID, reminderID string) bool {
	appt, err := d.appointments.GetByID(appointmentID)
	if err != nil {
		d.logger.Error("load appointment", "appointment", appointmentID, "error", err)
		return false
	}
	if appt == nil {
		return false
	}
	rem := appt.FindReminder(reminderID)
	return rem != nil && rem.IsActive
}

func (d *Dispatcher) deliver(notificationID, appointmentID, reminderID, title, body string) {
	subs, err := d.subscriptions.List()
	if err != nil {
		d.logger.Error("list subscriptions", "error", err)
		return
	}

	payload := push.Payload{
		Title:         title,
		Body:          body,
		AppointmentID: appointmentID,
		ReminderID:    reminderID,
	}

	sent := 0
	for i := range subs {
		sub := &subs[i]
		err := d.sender.Send(sub, payload)
		if errors.Is(err, push.ErrExpired) {
			d.logger.Info("removing expired subscription", "subscription", sub.ID)
			if err := d.subscriptions.DeleteSubscription(sub.ID); err != nil {
				d.logger.Error("delete expired subscription", "subscription", sub.ID, "error", err)
			}
			continue
		}
		if err != nil {
			d.logger.Error("send push", "subscription", sub.ID, "error", err)
			continue
		}
		sent++
	}

	if err := d.notifications.MarkDelivered(notificationID); err != nil {
		d.logger.Error("mark delivered", "notification", notificationID, "error", err)
		return
	}

	d.logger.Info("reminder delivered",
		"notification", notificationID, "appointment", appointmentID, "devices", sent)
}
