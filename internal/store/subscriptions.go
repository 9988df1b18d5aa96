package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"storepulse/internal/model"
)

// UpsertSubscription creates or refreshes a push subscription.
func (s *gormStore) UpsertSubscription(ctx context.Context, sub *model.PushSubscription) error {
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
	}).Create(sub).Error; err != nil {
		return &PersistenceError{Op: "upsert subscription", Err: err}
	}
	return nil
}

// GetSubscription looks up a subscription by endpoint.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscription: %w", err)
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription. Deleting an unknown endpoint is not an error.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	if err := s.db.WithContext(ctx).Delete(&model.PushSubscription{Endpoint: endpoint}).Error; err != nil {
		return &PersistenceError{Op: "delete subscription", Err: err}
	}
	return nil
}

// ListSubscriptions returns every stored subscription.
func (s *gormStore) ListSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	if err := s.db.WithContext(ctx).Find(&subs).Error; err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}
