package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"storepulse/config"
	"storepulse/internal/model"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Subscriptions is the part of the store the workers read and prune.
type Subscriptions interface {
	ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Event announces that a report job reached a terminal state.
type Event struct {
	ReportID string             `json:"report_id"`
	Status   model.ReportStatus `json:"status"`
}

// WorkerPool broadcasts report events to every push subscriber.
type WorkerPool struct {
	size    int
	events  chan Event
	subs    Subscriptions
	webpush *webpush.Options
	sender  NotificationSender
	logger  *zap.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, subs Subscriptions, webpushOptions *webpush.Options, logger *zap.Logger) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		events:  make(chan Event, size*8),
		subs:    subs,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		logger:  logger,
	}
}

// Options builds the VAPID options for push requests.
func Options(cfg config.PushConfig) *webpush.Options {
	return &webpush.Options{
		Subscriber:      cfg.Subject,
		VAPIDPublicKey:  cfg.PublicKey,
		VAPIDPrivateKey: cfg.PrivateKey,
		TTL:             cfg.TTL,
		Urgency:         webpush.UrgencyNormal,
		HTTPClient:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.logger.With(zap.Int("worker", id))
	log.Debug("notification worker started")
	for {
		select {
		case ev := <-wp.events:
			wp.broadcast(ctx, ev)
		case <-ctx.Done():
			log.Debug("notification worker shutting down")
			return
		}
	}
}

// Notify queues a push for a finished report. Events are dropped when the
// queue is full; report state never depends on delivery.
func (wp *WorkerPool) Notify(reportID string, status model.ReportStatus) {
	select {
	case wp.events <- Event{ReportID: reportID, Status: status}:
	default:
		wp.logger.Warn("notification queue full, dropping event", zap.String("report_id", reportID))
	}
}

// Events returns the event channel for testing.
func (wp *WorkerPool) Events() chan Event {
	return wp.events
}

func (wp *WorkerPool) broadcast(ctx context.Context, ev Event) {
	log := wp.logger.With(zap.String("report_id", ev.ReportID))

	subscriptions, err := wp.subs.ListSubscriptions(ctx)
	if err != nil {
		log.Error("failed to fetch subscriptions", zap.Error(err))
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		log.Error("failed to encode notification", zap.Error(err))
		return
	}

	log.Info("sending report notifications", zap.Int("subscribers", len(subscriptions)))
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, payload)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.Warn("failed to send notification", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Info("subscription expired, deleting", zap.String("endpoint", sub.Endpoint))
		if err := wp.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.Error("failed to delete expired subscription", zap.String("endpoint", sub.Endpoint), zap.Error(err))
		}
	}
}
