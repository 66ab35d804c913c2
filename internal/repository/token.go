package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/mailsub/mailsub/internal/model"
)

// Common errors for token repository operations.
var (
	ErrTokenNotFound = errors.New("token not found")
	ErrTokenExists   = errors.New("token value already exists")
)

const tokenColumns = `id, mail_base64, token, category, subcategory, sent_at`

// CreateToken inserts a new token row.
// Returns ErrTokenExists if the token value collides with an existing row.
func (r *Repository) CreateToken(ctx context.Context, token *model.Token) error {
	query := `
		INSERT INTO tokens (id, mail_base64, token, category, subcategory, sent_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.pool.Exec(ctx, query,
		token.ID,
		token.MailBase64,
		token.Value,
		token.Category,
		token.Subcategory,
		token.SentAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenExists
		}
		return fmt.Errorf("failed to create token: %w", err)
	}

	return nil
}

// FindTokens returns every token row for the triple.
func (r *Repository) FindTokens(ctx context.Context, mailBase64, category, subcategory string) ([]*model.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE mail_base64 = $1 AND category = $2 AND subcategory = $3
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, mailBase64, category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to find tokens: %w", err)
	}

	return collectTokens(rows)
}

// LatestToken returns the most recently sent token for the triple.
// Rows without a send time sort last.
func (r *Repository) LatestToken(ctx context.Context, mailBase64, category, subcategory string) (*model.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE mail_base64 = $1 AND category = $2 AND subcategory = $3
		ORDER BY sent_at DESC NULLS LAST, id DESC
		LIMIT 1
	`

	token, err := scanToken(r.pool.QueryRow(ctx, query, mailBase64, category, subcategory))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get latest token: %w", err)
	}

	return token, nil
}

// GetTokenByValue retrieves a token by its exact value.
func (r *Repository) GetTokenByValue(ctx context.Context, value string) (*model.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE token = $1
	`

	token, err := scanToken(r.pool.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTokenNotFound
		}
		return nil, fmt.Errorf("failed to get token by value: %w", err)
	}

	return token, nil
}

// RotateToken replaces the value and send time of an existing row.
func (r *Repository) RotateToken(ctx context.Context, id, value string, sentAt time.Time) error {
	query := `
		UPDATE tokens
		SET token = $2, sent_at = $3
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, value, sentAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrTokenExists
		}
		return fmt.Errorf("failed to rotate token: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrTokenNotFound
	}

	return nil
}

// DeleteTokenByValue deletes rows with the exact token value and returns
// how many were removed.
func (r *Repository) DeleteTokenByValue(ctx context.Context, value string) (int64, error) {
	query := `DELETE FROM tokens WHERE token = $1`

	result, err := r.pool.Exec(ctx, query, value)
	if err != nil {
		return 0, fmt.Errorf("failed to delete token: %w", err)
	}

	return result.RowsAffected(), nil
}

// ListTokensByCategory returns all token rows for a category/subcategory pair.
func (r *Repository) ListTokensByCategory(ctx context.Context, category, subcategory string) ([]*model.Token, error) {
	query := `
		SELECT ` + tokenColumns + `
		FROM tokens
		WHERE category = $1 AND subcategory = $2
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, category, subcategory)
	if err != nil {
		return nil, fmt.Errorf("failed to list tokens by category: %w", err)
	}

	return collectTokens(rows)
}

func collectTokens(rows pgx.Rows) ([]*model.Token, error) {
	defer rows.Close()

	tokens := make([]*model.Token, 0)
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan token: %w", err)
		}
		tokens = append(tokens, token)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tokens: %w", err)
	}

	return tokens, nil
}

func scanToken(row rowScanner) (*model.Token, error) {
	var token model.Token
	err := row.Scan(
		&token.ID,
		&token.MailBase64,
		&token.Value,
		&token.Category,
		&token.Subcategory,
		&token.SentAt,
	)
	return &token, err
}
