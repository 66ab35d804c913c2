// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"github.com/mailsub/mailsub/internal/model"
)

// Service errors.
var (
	ErrTokenNotFound      = errors.New("token not found")
	ErrMailTooLong        = errors.New("mail too long")
	ErrTokenValueConflict = errors.New("failed to generate unique token value after retries")
)

// maxValueRetries bounds token value regeneration on unique collisions.
const maxValueRetries = 3

// SubscriptionStore persists subscription rows.
type SubscriptionStore interface {
	CreateSubscription(ctx context.Context, sub *model.Subscription) error
	FindSubscriptions(ctx context.Context, mailBase64, category, subcategory string) ([]*model.Subscription, error)
	ListSubscriptions(ctx context.Context) ([]*model.Subscription, error)
	ListSubscriptionsByCategory(ctx context.Context, category, subcategory string) ([]*model.Subscription, error)
	DeleteSubscription(ctx context.Context, id string) (bool, error)
}

// TokenStore persists token rows.
type TokenStore interface {
	CreateToken(ctx context.Context, token *model.Token) error
	FindTokens(ctx context.Context, mailBase64, category, subcategory string) ([]*model.Token, error)
	LatestToken(ctx context.Context, mailBase64, category, subcategory string) (*model.Token, error)
	GetTokenByValue(ctx context.Context, value string) (*model.Token, error)
	RotateToken(ctx context.Context, id, value string, sentAt time.Time) error
	DeleteTokenByValue(ctx context.Context, value string) (int64, error)
	ListTokensByCategory(ctx context.Context, category, subcategory string) ([]*model.Token, error)
}

// TokenCache is the read-through cache used for lookups by token value.
type TokenCache interface {
	GetToken(ctx context.Context, value string) (*model.Token, error)
	FillToken(ctx context.Context, token *model.Token) (bool, error)
	InvalidateToken(ctx context.Context, value string) error
	IsNegativelyCached(ctx context.Context, value string) (bool, error)
	SetNegativeCache(ctx context.Context, value string) error
}

// Input identifies a mail address and a category/subcategory pair.
// Mail may be a plain address or an already-encoded one.
type Input struct {
	Mail        string
	Category    string
	Subcategory string
}

// generateID returns a new sortable row identifier.
func generateID() string {
	return ulid.Make().String()
}

// generateTokenValue returns a new opaque token value.
func generateTokenValue() string {
	return uuid.NewString()
}

// utcNow returns the current time at the precision Postgres stores.
func utcNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
