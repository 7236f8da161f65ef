package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/dbx"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
)

// PostgresRepository keeps refresh tokens in the refresh_tokens table.
// It needs the *sql.DB itself because Rotate and Delete open transactions.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository constructs a repository bound to db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectToken = `SELECT token, user_id, issued_at, expires_at, revoked_at, replaced_by FROM refresh_tokens`

type scanner interface {
	Scan(dest ...any) error
}

func scanToken(s scanner) (*models.RefreshToken, error) {
	var (
		t          models.RefreshToken
		revokedAt  sql.NullTime
		replacedBy sql.NullString
	)
	if err := s.Scan(&t.Token, &t.UserID, &t.IssuedAt, &t.ExpiresAt, &revokedAt, &replacedBy); err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		at := revokedAt.Time
		t.RevokedAt = &at
	}
	t.ReplacedBy = replacedBy.String
	return &t, nil
}

// Find returns the refresh token row for the given token string.
// If not found, it returns common.ErrorNotFound.
func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.RefreshToken, error) {
	t, err := scanToken(r.db.QueryRowContext(ctx, selectToken+` WHERE token = $1`, token))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	return insertToken(ctx, r.db, token)
}

func insertToken(ctx context.Context, db dbx.DBTX, token *models.RefreshToken) error {
	query := `
		INSERT INTO refresh_tokens (token, user_id, issued_at, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := db.ExecContext(ctx, query, token.Token, token.UserID, token.IssuedAt, token.ExpiresAt); err != nil {
		if _, ok := dbx.UniqueViolation(err); ok {
			return ErrDuplicateToken
		}
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

// lockUser takes a transaction-scoped advisory lock on userID. Rotate and
// RevokeAllForUser both hold it, so a revoke-all never misses a token that a
// concurrent rotation is about to insert.
func lockUser(ctx context.Context, tx dbx.DBTX, userID string) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, userID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Revoke(ctx context.Context, token string, at time.Time, replacedBy string) error {
	query := `
		UPDATE refresh_tokens
		SET revoked_at = $2, replaced_by = NULLIF($3, '')
		WHERE token = $1 AND revoked_at IS NULL
	`
	if _, err := r.db.ExecContext(ctx, query, token, at, replacedBy); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Rotate locks the owner, then claims old with a guarded UPDATE. A concurrent
// rotation blocks on the lock and then sees zero affected rows.
func (r *PostgresRepository) Rotate(ctx context.Context, old string, next *models.RefreshToken, at time.Time) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockUser(ctx, tx, next.UserID); err != nil {
			return err
		}
		query := `
			UPDATE refresh_tokens
			SET revoked_at = $2, replaced_by = $3
			WHERE token = $1 AND revoked_at IS NULL AND expires_at > $2
		`
		res, err := tx.ExecContext(ctx, query, old, at, next.Token)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		ok, err := dbx.ExpectOneRow(res)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if !ok {
			return common.ErrStaleToken
		}
		return insertToken(ctx, tx, next)
	})
}

func (r *PostgresRepository) RevokeAllForUser(ctx context.Context, userID string, at time.Time) (int64, error) {
	var n int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockUser(ctx, tx, userID); err != nil {
			return err
		}
		query := `
			UPDATE refresh_tokens
			SET revoked_at = $2
			WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > $2
		`
		res, err := tx.ExecContext(ctx, query, userID, at)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		if n, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (r *PostgresRepository) ListPrunable(ctx context.Context, cutoff time.Time, limit int) ([]*models.RefreshToken, error) {
	query := selectToken + `
		WHERE expires_at < $1 OR revoked_at < $1
		ORDER BY expires_at
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var out []*models.RefreshToken
	for rows.Next() {
		t, err := scanToken(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, tokens []string) (int64, error) {
	var total int64
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, token := range tokens {
			res, err := tx.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE token = $1`, token)
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("db error: %w", err)
			}
			total += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}
