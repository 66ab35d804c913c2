package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mailsub/mailsub/internal/cache"
	"github.com/mailsub/mailsub/internal/mail"
	"github.com/mailsub/mailsub/internal/metrics"
	"github.com/mailsub/mailsub/internal/model"
	"github.com/mailsub/mailsub/internal/repository"
)

// TokenService handles verification token business logic.
type TokenService struct {
	store      TokenStore
	cache      TokenCache // nil disables caching
	staleAfter time.Duration
	metrics    metrics.Recorder

	now      func() time.Time
	newID    func() string
	newValue func() string
}

// NewTokenService creates a new TokenService.
// tokenCache may be nil. A non-positive staleAfter uses model.DefaultStaleAfter.
func NewTokenService(store TokenStore, tokenCache TokenCache, staleAfter time.Duration, recorder metrics.Recorder) *TokenService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if staleAfter <= 0 {
		staleAfter = model.DefaultStaleAfter
	}
	return &TokenService{
		store:      store,
		cache:      tokenCache,
		staleAfter: staleAfter,
		metrics:    recorder,
		now:        utcNow,
		newID:      generateID,
		newValue:   generateTokenValue,
	}
}

// StaleAfter returns the configured rotation window.
func (s *TokenService) StaleAfter() time.Duration {
	return s.staleAfter
}

// Create issues a new token row for the input triple. It never reuses an
// existing row.
func (s *TokenService) Create(ctx context.Context, input Input) (*model.Token, error) {
	encoded, err := normalizeMail(input.Mail)
	if err != nil {
		return nil, err
	}

	token, err := s.insert(ctx, model.Triple{
		MailBase64:  encoded,
		Category:    input.Category,
		Subcategory: input.Subcategory,
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncTokenIssued(metrics.OutcomeCreated)
	return token, nil
}

// FindByLookup returns every token row for the input triple.
func (s *TokenService) FindByLookup(ctx context.Context, input Input) ([]*model.Token, error) {
	encoded := mail.Normalize(input.Mail)

	tokens, err := s.store.FindTokens(ctx, encoded, input.Category, input.Subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to find tokens: %w", err)
	}
	return tokens, nil
}

// RefreshOrCreate returns a valid token for the input triple.
//
// With no token on record a new row is created. When the most recent row
// was never sent or was sent before the staleness window, its value is
// rotated in place and its send time reset. Otherwise the row is returned
// unchanged.
func (s *TokenService) RefreshOrCreate(ctx context.Context, input Input) (*model.RefreshResult, error) {
	encoded, err := normalizeMail(input.Mail)
	if err != nil {
		return nil, err
	}
	triple := model.Triple{
		MailBase64:  encoded,
		Category:    input.Category,
		Subcategory: input.Subcategory,
	}

	latest, err := s.store.LatestToken(ctx, triple.MailBase64, triple.Category, triple.Subcategory)
	if err != nil && !errors.Is(err, repository.ErrTokenNotFound) {
		return nil, fmt.Errorf("failed to find latest token: %w", err)
	}

	var result *model.RefreshResult
	switch {
	case latest == nil:
		token, err := s.insert(ctx, triple)
		if err != nil {
			return nil, err
		}
		result = &model.RefreshResult{Token: token, Outcome: model.OutcomeCreated}

	case latest.IsStale(s.now(), s.staleAfter):
		token, err := s.rotate(ctx, latest)
		if err != nil {
			return nil, err
		}
		result = &model.RefreshResult{Token: token, Outcome: model.OutcomeRefreshed}

	default:
		result = &model.RefreshResult{Token: latest, Outcome: model.OutcomeUnchanged}
	}

	s.metrics.IncTokenIssued(result.Outcome.String())
	return result, nil
}

// FindByToken resolves a token row by its value, consulting the cache first.
func (s *TokenService) FindByToken(ctx context.Context, value string) (*model.Token, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveTokenLookupDuration(time.Since(start))
	}()

	if s.cache != nil {
		cached, err := s.cache.GetToken(ctx, value)
		if err == nil {
			s.metrics.IncTokenCacheHit()
			return cached, nil
		}
		// Redis errors fall through to the database.
		if errors.Is(err, cache.ErrCacheMiss) {
			s.metrics.IncTokenCacheMiss()
			if negative, _ := s.cache.IsNegativelyCached(ctx, value); negative {
				return nil, ErrTokenNotFound
			}
		}
	}

	token, err := s.store.GetTokenByValue(ctx, value)
	if err != nil {
		if errors.Is(err, repository.ErrTokenNotFound) {
			if s.cache != nil {
				_ = s.cache.SetNegativeCache(ctx, value)
			}
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	if s.cache != nil {
		// Skipped when a delete or rotation invalidated value after the read.
		_, _ = s.cache.FillToken(ctx, token)
	}

	return token, nil
}

// DeleteByToken removes every row carrying value. It reports false when
// nothing was removed.
func (s *TokenService) DeleteByToken(ctx context.Context, value string) (bool, error) {
	count, err := s.store.DeleteTokenByValue(ctx, value)
	if err != nil {
		return false, fmt.Errorf("failed to delete token: %w", err)
	}
	if count == 0 {
		return false, nil
	}

	s.metrics.IncTokenDeleted()
	s.invalidate(ctx, value)
	return true, nil
}

// ListByCategory returns the tokens for a category/subcategory pair.
func (s *TokenService) ListByCategory(ctx context.Context, category, subcategory string) ([]*model.Token, error) {
	tokens, err := s.store.ListTokensByCategory(ctx, category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens by category: %w", err)
	}
	return tokens, nil
}

// insert persists a fresh row for triple, regenerating the value on collision.
func (s *TokenService) insert(ctx context.Context, triple model.Triple) (*model.Token, error) {
	sentAt := s.now()
	token := &model.Token{
		ID:          s.newID(),
		MailBase64:  triple.MailBase64,
		Category:    triple.Category,
		Subcategory: triple.Subcategory,
		SentAt:      &sentAt,
	}

	for i := 0; i < maxValueRetries; i++ {
		token.Value = s.newValue()
		err := s.store.CreateToken(ctx, token)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, repository.ErrTokenExists) {
			return nil, fmt.Errorf("failed to create token: %w", err)
		}
	}
	return nil, ErrTokenValueConflict
}

// rotate assigns a new value and send time to an existing row, keeping its ID.
// If the row disappeared concurrently a new row is issued instead.
func (s *TokenService) rotate(ctx context.Context, current *model.Token) (*model.Token, error) {
	sentAt := s.now()
	oldValue := current.Value

	for i := 0; i < maxValueRetries; i++ {
		value := s.newValue()
		err := s.store.RotateToken(ctx, current.ID, value, sentAt)
		switch {
		case err == nil:
			s.invalidate(ctx, oldValue)
			rotated := *current
			rotated.Value = value
			rotated.SentAt = &sentAt
			return &rotated, nil
		case errors.Is(err, repository.ErrTokenExists):
			continue
		case errors.Is(err, repository.ErrTokenNotFound):
			s.invalidate(ctx, oldValue)
			return s.insert(ctx, current.Triple())
		default:
			return nil, fmt.Errorf("failed to rotate token: %w", err)
		}
	}
	return nil, ErrTokenValueConflict
}

// invalidate drops the cached row for value and blocks in-flight fills of
// it. Cache failures are ignored.
func (s *TokenService) invalidate(ctx context.Context, value string) {
	if s.cache == nil || value == "" {
		return
	}
	_ = s.cache.InvalidateToken(ctx, value)
}

// normalizeMail encodes raw and enforces the stored column limit.
func normalizeMail(raw string) (string, error) {
	encoded := mail.Normalize(raw)
	if len(encoded) > model.MaxMailLength {
		return "", ErrMailTooLong
	}
	return encoded, nil
}
