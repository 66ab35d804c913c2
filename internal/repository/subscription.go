package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/mailsub/mailsub/internal/model"
)

const subscriptionColumns = `id, mail_base64, category, subcategory, subscribed_at`

// CreateSubscription inserts a new subscription row.
func (r *Repository) CreateSubscription(ctx context.Context, sub *model.Subscription) error {
	query := `
		INSERT INTO subscriptions (id, mail_base64, category, subcategory, subscribed_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		sub.ID,
		sub.MailBase64,
		sub.Category,
		sub.Subcategory,
		sub.SubscribedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}

	return nil
}

// FindSubscriptions returns every row for the triple, oldest first.
func (r *Repository) FindSubscriptions(ctx context.Context, mailBase64, category, subcategory string) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE mail_base64 = $1 AND category = $2 AND subcategory = $3
		ORDER BY subscribed_at, id
	`

	rows, err := r.pool.Query(ctx, query, mailBase64, category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to find subscriptions: %w", err)
	}

	return collectSubscriptions(rows)
}

// ListSubscriptions returns the whole subscriptions table.
func (r *Repository) ListSubscriptions(ctx context.Context) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		ORDER BY subscribed_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}

	return collectSubscriptions(rows)
}

// ListSubscriptionsByCategory returns all rows for a category/subcategory pair.
func (r *Repository) ListSubscriptionsByCategory(ctx context.Context, category, subcategory string) ([]*model.Subscription, error) {
	query := `
		SELECT ` + subscriptionColumns + `
		FROM subscriptions
		WHERE category = $1 AND subcategory = $2
		ORDER BY subscribed_at, id
	`

	rows, err := r.pool.Query(ctx, query, category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions by category: %w", err)
	}

	return collectSubscriptions(rows)
}

// DeleteSubscription removes a row by ID and reports whether it existed.
func (r *Repository) DeleteSubscription(ctx context.Context, id string) (bool, error) {
	query := `DELETE FROM subscriptions WHERE id = $1`

	result, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete subscription: %w", err)
	}

	return result.RowsAffected() > 0, nil
}

func collectSubscriptions(rows pgx.Rows) ([]*model.Subscription, error) {
	defer rows.Close()

	subs := make([]*model.Subscription, 0)
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan subscription: %w", err)
		}
		subs = append(subs, sub)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating subscriptions: %w", err)
	}

	return subs, nil
}

func scanSubscription(row rowScanner) (*model.Subscription, error) {
	var sub model.Subscription
	err := row.Scan(
		&sub.ID,
		&sub.MailBase64,
		&sub.Category,
		&sub.Subcategory,
		&sub.SubscribedAt,
	)
	return &sub, err
}
