package api

import (
	"context"

	"github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"storepulse/internal/export"
	"storepulse/internal/model"
)

// Reports starts report jobs.
type Reports interface {
	Trigger(ctx context.Context) (string, error)
}

// Exports reports the state of jobs and their rendered output.
type Exports interface {
	Get(ctx context.Context, reportID string) (export.Result, error)
}

// Subscriptions stores push subscriptions.
type Subscriptions interface {
	UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	reports Reports
	exports Exports
	subs    Subscriptions
	webpush *webpush.Options
	logger  *zap.Logger
}

// NewHandler creates a new API handler.
func NewHandler(reports Reports, exports Exports, subs Subscriptions, webpushOptions *webpush.Options, logger *zap.Logger) *Handler {
	return &Handler{
		reports: reports,
		exports: exports,
		subs:    subs,
		webpush: webpushOptions,
		logger:  logger,
	}
}
