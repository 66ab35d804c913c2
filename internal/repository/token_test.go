package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"

	"github.com/mailsub/mailsub/internal/model"
)

var tokenCols = []string{"id", "mail_base64", "token", "category", "subcategory", "sent_at"}

func timePtr(t time.Time) *time.Time { return &t }

func TestRepository_CreateToken(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()
	tok := &model.Token{
		ID:          "01HZZTOK000000000000000001",
		MailBase64:  "bWFpbA==",
		Value:       "value-1",
		Category:    "news",
		Subcategory: "weekly",
		SentAt:      timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
	}

	mock.ExpectExec(`INSERT INTO tokens \(id, mail_base64, token, category, subcategory, sent_at\) VALUES \(\$1, \$2, \$3, \$4, \$5, \$6\)`).
		WithArgs(tok.ID, tok.MailBase64, tok.Value, tok.Category, tok.Subcategory, tok.SentAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, repo.CreateToken(ctx, tok))

	mock.ExpectExec(`INSERT INTO tokens`).
		WithArgs(tok.ID, tok.MailBase64, tok.Value, tok.Category, tok.Subcategory, tok.SentAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, repo.CreateToken(ctx, tok), ErrTokenExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LatestToken(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()
	sent := timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE mail_base64 = \$1 AND category = \$2 AND subcategory = \$3 ORDER BY sent_at DESC NULLS LAST, id DESC LIMIT 1`).
		WithArgs("bWFpbA==", "news", "weekly").
		WillReturnRows(pgxmock.NewRows(tokenCols).
			AddRow("t1", "bWFpbA==", "value-1", "news", "weekly", sent))

	tok, err := repo.LatestToken(ctx, "bWFpbA==", "news", "weekly")
	require.NoError(t, err)
	require.Equal(t, "t1", tok.ID)
	require.Equal(t, "value-1", tok.Value)
	require.NotNil(t, tok.SentAt)
	require.True(t, tok.SentAt.Equal(*sent))

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE mail_base64 = \$1`).
		WithArgs("bWFpbA==", "news", "daily").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.LatestToken(ctx, "bWFpbA==", "news", "daily")
	require.ErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_LatestToken_NullSentAt(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE mail_base64 = \$1`).
		WithArgs("bWFpbA==", "news", "weekly").
		WillReturnRows(pgxmock.NewRows(tokenCols).
			AddRow("t1", "bWFpbA==", "value-1", "news", "weekly", (*time.Time)(nil)))

	tok, err := repo.LatestToken(ctx, "bWFpbA==", "news", "weekly")
	require.NoError(t, err)
	require.Nil(t, tok.SentAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_GetTokenByValue(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()
	sent := timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE token = \$1`).
		WithArgs("value-1").
		WillReturnRows(pgxmock.NewRows(tokenCols).
			AddRow("t1", "bWFpbA==", "value-1", "news", "weekly", sent))
	tok, err := repo.GetTokenByValue(ctx, "value-1")
	require.NoError(t, err)
	require.Equal(t, "t1", tok.ID)

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE token = \$1`).
		WithArgs("nope").
		WillReturnError(pgx.ErrNoRows)
	_, err = repo.GetTokenByValue(ctx, "nope")
	require.ErrorIs(t, err, ErrTokenNotFound)

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE token = \$1`).
		WithArgs("boom").
		WillReturnError(errors.New("db down"))
	_, err = repo.GetTokenByValue(ctx, "boom")
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrTokenNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_RotateToken(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()
	now := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE tokens SET token = \$2, sent_at = \$3 WHERE id = \$1`).
		WithArgs("t1", "value-2", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.RotateToken(ctx, "t1", "value-2", now))

	mock.ExpectExec(`UPDATE tokens`).
		WithArgs("gone", "value-3", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	require.ErrorIs(t, repo.RotateToken(ctx, "gone", "value-3", now), ErrTokenNotFound)

	mock.ExpectExec(`UPDATE tokens`).
		WithArgs("t1", "value-1", now).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, repo.RotateToken(ctx, "t1", "value-1", now), ErrTokenExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_DeleteTokenByValue(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()

	mock.ExpectExec(`DELETE FROM tokens WHERE token = \$1`).
		WithArgs("value-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	n, err := repo.DeleteTokenByValue(ctx, "value-1")
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	mock.ExpectExec(`DELETE FROM tokens WHERE token = \$1`).
		WithArgs("nope").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	n, err = repo.DeleteTokenByValue(ctx, "nope")
	require.NoError(t, err)
	require.Zero(t, n)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepository_FindAndListTokens(t *testing.T) {
	repo, mock := newMockRepository(t)
	ctx := context.Background()
	sent := timePtr(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE mail_base64 = \$1 AND category = \$2 AND subcategory = \$3 ORDER BY id`).
		WithArgs("bWFpbA==", "news", "weekly").
		WillReturnRows(pgxmock.NewRows(tokenCols).
			AddRow("t1", "bWFpbA==", "value-1", "news", "weekly", sent).
			AddRow("t2", "bWFpbA==", "value-2", "news", "weekly", sent))
	found, err := repo.FindTokens(ctx, "bWFpbA==", "news", "weekly")
	require.NoError(t, err)
	require.Len(t, found, 2)

	mock.ExpectQuery(`SELECT (.+) FROM tokens WHERE category = \$1 AND subcategory = \$2 ORDER BY id`).
		WithArgs("news", "weekly").
		WillReturnRows(pgxmock.NewRows(tokenCols))
	listed, err := repo.ListTokensByCategory(ctx, "news", "weekly")
	require.NoError(t, err)
	require.NotNil(t, listed)
	require.Empty(t, listed)

	require.NoError(t, mock.ExpectationsWereMet())
}
