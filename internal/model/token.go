package model

import (
	"time"

	"github.com/mailsub/mailsub/internal/metrics"
)

// DefaultStaleAfter is the age after which a token is rotated on refresh.
const DefaultStaleAfter = 48 * time.Hour

// Token is a verification token issued for a triple.
type Token struct {
	ID          string     `json:"id"`
	MailBase64  string     `json:"mailBase64"`
	Value       string     `json:"token"`
	Category    string     `json:"category"`
	Subcategory string     `json:"subcategory"`
	SentAt      *time.Time `json:"dateSent"`
}

// Triple returns the token's lookup key.
func (t *Token) Triple() Triple {
	return Triple{MailBase64: t.MailBase64, Category: t.Category, Subcategory: t.Subcategory}
}

// IsStale reports whether the token must be rotated at now.
// A token with no send time is always stale.
func (t *Token) IsStale(now time.Time, staleAfter time.Duration) bool {
	if t.SentAt == nil {
		return true
	}
	return t.SentAt.Before(now.Add(-staleAfter))
}

// RefreshOutcome describes what RefreshOrCreate did with the triple's token.
type RefreshOutcome int

const (
	// OutcomeUnchanged means the existing token is still fresh and was returned as is.
	OutcomeUnchanged RefreshOutcome = iota
	// OutcomeCreated means no token existed and a new row was issued.
	OutcomeCreated
	// OutcomeRefreshed means a stale token was rotated in place.
	OutcomeRefreshed
)

// String returns the outcome label used in logs and metrics.
func (o RefreshOutcome) String() string {
	switch o {
	case OutcomeCreated:
		return metrics.OutcomeCreated
	case OutcomeRefreshed:
		return metrics.OutcomeRefreshed
	default:
		return metrics.OutcomeUnchanged
	}
}

// RefreshResult carries the resulting token and the outcome that produced it.
type RefreshResult struct {
	Token   *Token
	Outcome RefreshOutcome
}

// Created reports whether a brand new row was issued.
func (r RefreshResult) Created() bool {
	return r.Outcome == OutcomeCreated
}

// Refreshed reports whether a new token value was issued, either by creating
// a row or by rotating a stale one.
func (r RefreshResult) Refreshed() bool {
	return r.Outcome == OutcomeCreated || r.Outcome == OutcomeRefreshed
}

// CachedToken represents token data stored in the Redis cache.
// Uses string types for Redis hash compatibility.
type CachedToken struct {
	ID          string `redis:"id"`
	MailBase64  string `redis:"mail_base64"`
	Category    string `redis:"category"`
	Subcategory string `redis:"subcategory"`
	SentAt      string `redis:"sent_at"` // RFC3339Nano or empty
}

// ToToken converts CachedToken to the Token domain model.
func (c *CachedToken) ToToken(value string) *Token {
	token := &Token{
		ID:          c.ID,
		MailBase64:  c.MailBase64,
		Value:       value,
		Category:    c.Category,
		Subcategory: c.Subcategory,
	}

	if c.SentAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, c.SentAt); err == nil {
			token.SentAt = &ts
		}
	}

	return token
}

// ToCachedToken converts Token to its cached form.
func (t *Token) ToCachedToken() *CachedToken {
	cached := &CachedToken{
		ID:          t.ID,
		MailBase64:  t.MailBase64,
		Category:    t.Category,
		Subcategory: t.Subcategory,
	}

	if t.SentAt != nil {
		cached.SentAt = t.SentAt.UTC().Format(time.RFC3339Nano)
	}

	return cached
}
