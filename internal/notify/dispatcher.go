package notify

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/face-attendance-api/internal/models"
	"github.com/noah-isme/face-attendance-api/pkg/jobs"
)

type settingsReader interface {
	NotificationSettings(ctx context.Context) (models.NotificationSettings, error)
}

// Notification is one queued delivery.
type Notification struct {
	To        string
	Name      string
	EventType string
	TimeStr   string
}

// Dispatcher pushes attendance notifications through a background worker
// queue. Delivery is best-effort: enqueue and delivery failures are logged,
// never surfaced to the attendance transition that triggered them.
type Dispatcher struct {
	queue    *jobs.Queue
	settings settingsReader
	sender   Sender
	logger   *zap.Logger
}

// DispatcherConfig wires queue behaviour.
type DispatcherConfig struct {
	Workers    int
	MaxRetries int
}

// NewDispatcher builds the dispatcher and its queue.
func NewDispatcher(settings settingsReader, sender Sender, logger *zap.Logger, cfg DispatcherConfig) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{settings: settings, sender: sender, logger: logger}
	d.queue = jobs.NewQueue("notifications", d.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		Logger:     logger,
	})
	return d
}

// Start begins background delivery.
func (d *Dispatcher) Start(ctx context.Context) {
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *Dispatcher) Stop() {
	d.queue.Stop()
}

// Dispatch formats the message, enqueues delivery, and returns the message
// body so callers can surface a preview. It never returns an error.
func (d *Dispatcher) Dispatch(n Notification) string {
	body := FormatMessage(n.Name, n.EventType, n.TimeStr)
	if n.To == "" {
		return body
	}
	err := d.queue.Enqueue(jobs.Job{
		ID:      uuid.NewString(),
		Type:    n.EventType,
		Payload: n,
	})
	if err != nil {
		d.logger.Sugar().Warnw("failed to enqueue notification", "to", n.To, "error", err)
	}
	return body
}

func (d *Dispatcher) deliver(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(Notification)
	if !ok {
		d.logger.Sugar().Errorw("unexpected notification payload", "job_id", job.ID)
		return nil
	}

	settings, err := d.settings.NotificationSettings(ctx)
	if err != nil {
		return err
	}

	body := FormatMessage(n.Name, n.EventType, n.TimeStr)
	return d.sender.Send(ctx, settings, n.To, body)
}
