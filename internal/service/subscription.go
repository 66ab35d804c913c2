package service

import (
	"context"
	"fmt"
	"time"

	"github.com/mailsub/mailsub/internal/metrics"
	"github.com/mailsub/mailsub/internal/model"
)

// SubscriptionService handles subscription business logic.
type SubscriptionService struct {
	store   SubscriptionStore
	metrics metrics.Recorder

	now   func() time.Time
	newID func() string
}

// NewSubscriptionService creates a new SubscriptionService.
func NewSubscriptionService(store SubscriptionStore, recorder metrics.Recorder) *SubscriptionService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &SubscriptionService{
		store:   store,
		metrics: recorder,
		now:     utcNow,
		newID:   generateID,
	}
}

// Subscribe records a subscription for the input triple.
// When the triple is already subscribed the first existing row is returned
// unchanged, so retries never create duplicates.
func (s *SubscriptionService) Subscribe(ctx context.Context, input Input) (*model.Subscription, error) {
	encoded, err := normalizeMail(input.Mail)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.FindSubscriptions(ctx, encoded, input.Category, input.Subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}
	if len(existing) > 0 {
		s.metrics.IncSubscriptionExisting()
		return existing[0], nil
	}

	sub := &model.Subscription{
		ID:           s.newID(),
		MailBase64:   encoded,
		Category:     input.Category,
		Subcategory:  input.Subcategory,
		SubscribedAt: s.now(),
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	s.metrics.IncSubscriptionCreated()
	return sub, nil
}

// ListAll returns every subscription in store order.
func (s *SubscriptionService) ListAll(ctx context.Context) ([]*model.Subscription, error) {
	subs, err := s.store.ListSubscriptions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return subs, nil
}

// ListByCategory returns the subscriptions for a category/subcategory pair.
func (s *SubscriptionService) ListByCategory(ctx context.Context, category, subcategory string) ([]*model.Subscription, error) {
	subs, err := s.store.ListSubscriptionsByCategory(ctx, category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions by category: %w", err)
	}
	return subs, nil
}

// DeleteByID removes a subscription. It reports false when no row matched.
func (s *SubscriptionService) DeleteByID(ctx context.Context, id string) (bool, error) {
	deleted, err := s.store.DeleteSubscription(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", err)
	}
	if deleted {
		s.metrics.IncSubscriptionDeleted()
	}
	return deleted, nil
}
