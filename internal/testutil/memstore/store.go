// Package memstore provides in-memory stores for service and handler tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mailsub/mailsub/internal/model"
	"github.com/mailsub/mailsub/internal/repository"
)

// Store keeps subscriptions and tokens in memory with the same ordering and
// error semantics as the Postgres repository.
type Store struct {
	mu     sync.Mutex
	subs   []model.Subscription
	tokens []model.Token
	err    error
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// FailWith makes every subsequent call return err. Pass nil to recover.
func (s *Store) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SubscriptionCount returns the number of stored subscriptions.
func (s *Store) SubscriptionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// TokenCount returns the number of stored tokens.
func (s *Store) TokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// PutToken stores token as is, bypassing uniqueness checks.
func (s *Store) PutToken(token *model.Token) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens = append(s.tokens, copyToken(*token))
}

// CreateSubscription stores a copy of sub.
func (s *Store) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.subs = append(s.subs, *sub)
	return nil
}

// FindSubscriptions returns the subscriptions for a triple.
func (s *Store) FindSubscriptions(ctx context.Context, mailBase64, category, subcategory string) ([]*model.Subscription, error) {
	want := model.Triple{MailBase64: mailBase64, Category: category, Subcategory: subcategory}
	return s.selectSubscriptions(func(sub *model.Subscription) bool {
		return sub.Triple() == want
	})
}

// ListSubscriptions returns every subscription.
func (s *Store) ListSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	return s.selectSubscriptions(func(*model.Subscription) bool { return true })
}

// ListSubscriptionsByCategory returns the subscriptions for a pair.
func (s *Store) ListSubscriptionsByCategory(ctx context.Context, category, subcategory string) ([]*model.Subscription, error) {
	return s.selectSubscriptions(func(sub *model.Subscription) bool {
		return sub.Category == category && sub.Subcategory == subcategory
	})
}

// DeleteSubscription removes a subscription by ID.
func (s *Store) DeleteSubscription(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	for i := range s.subs {
		if s.subs[i].ID == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

// CreateToken stores a copy of token. Duplicate values are rejected.
func (s *Store) CreateToken(ctx context.Context, token *model.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.valueTakenLocked(token.Value, "") {
		return repository.ErrTokenExists
	}
	s.tokens = append(s.tokens, copyToken(*token))
	return nil
}

// FindTokens returns the tokens for a triple ordered by ID.
func (s *Store) FindTokens(ctx context.Context, mailBase64, category, subcategory string) ([]*model.Token, error) {
	want := model.Triple{MailBase64: mailBase64, Category: category, Subcategory: subcategory}
	tokens, err := s.selectTokens(func(t *model.Token) bool { return t.Triple() == want })
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tokens, func(i, j int) bool { return tokens[i].ID < tokens[j].ID })
	return tokens, nil
}

// LatestToken returns the most recently sent token for a triple.
func (s *Store) LatestToken(ctx context.Context, mailBase64, category, subcategory string) (*model.Token, error) {
	tokens, err := s.FindTokens(ctx, mailBase64, category, subcategory)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, repository.ErrTokenNotFound
	}

	latest := tokens[0]
	for _, t := range tokens[1:] {
		if newer(t, latest) {
			latest = t
		}
	}
	return latest, nil
}

// GetTokenByValue returns the token carrying value.
func (s *Store) GetTokenByValue(ctx context.Context, value string) (*model.Token, error) {
	tokens, err := s.selectTokens(func(t *model.Token) bool { return t.Value == value })
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, repository.ErrTokenNotFound
	}
	return tokens[0], nil
}

// RotateToken replaces the value and send time of the token with id.
func (s *Store) RotateToken(ctx context.Context, id, value string, sentAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if s.valueTakenLocked(value, id) {
		return repository.ErrTokenExists
	}
	for i := range s.tokens {
		if s.tokens[i].ID == id {
			s.tokens[i].Value = value
			s.tokens[i].SentAt = &sentAt
			return nil
		}
	}
	return repository.ErrTokenNotFound
}

// DeleteTokenByValue removes every token carrying value.
func (s *Store) DeleteTokenByValue(ctx context.Context, value string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	kept := s.tokens[:0]
	var removed int64
	for _, t := range s.tokens {
		if t.Value == value {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	s.tokens = kept
	return removed, nil
}

// ListTokensByCategory returns the tokens for a pair.
func (s *Store) ListTokensByCategory(ctx context.Context, category, subcategory string) ([]*model.Token, error) {
	return s.selectTokens(func(t *model.Token) bool {
		return t.Category == category && t.Subcategory == subcategory
	})
}

func (s *Store) selectSubscriptions(match func(*model.Subscription) bool) ([]*model.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*model.Subscription, 0)
	for i := range s.subs {
		if match(&s.subs[i]) {
			sub := s.subs[i]
			out = append(out, &sub)
		}
	}
	return out, nil
}

func (s *Store) selectTokens(match func(*model.Token) bool) ([]*model.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]*model.Token, 0)
	for i := range s.tokens {
		if match(&s.tokens[i]) {
			t := copyToken(s.tokens[i])
			out = append(out, &t)
		}
	}
	return out, nil
}

func (s *Store) valueTakenLocked(value, exceptID string) bool {
	for i := range s.tokens {
		if s.tokens[i].Value == value && s.tokens[i].ID != exceptID {
			return true
		}
	}
	return false
}

// newer orders by send time descending with unsent rows last, then ID.
func newer(a, b *model.Token) bool {
	switch {
	case a.SentAt == nil && b.SentAt == nil:
		return a.ID > b.ID
	case a.SentAt == nil:
		return false
	case b.SentAt == nil:
		return true
	case a.SentAt.Equal(*b.SentAt):
		return a.ID > b.ID
	default:
		return a.SentAt.After(*b.SentAt)
	}
}

func copyToken(t model.Token) model.Token {
	if t.SentAt != nil {
		sentAt := *t.SentAt
		t.SentAt = &sentAt
	}
	return t
}
