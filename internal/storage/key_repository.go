package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/types"
)

var (
	// ErrKeyExists is returned when creating a key whose token is taken
	ErrKeyExists = errors.New("key already exists")
	// ErrKeyNotRedeemable is returned when a key is missing, used, or expired
	ErrKeyNotRedeemable = errors.New("key not redeemable")
)

// uniqueViolation is the Postgres error code for unique constraint breaches
const uniqueViolation = "23505"

// KeyRepository handles plan-granting key persistence
type KeyRepository struct {
	db *PostgresDB
}

// NewKeyRepository creates a new key repository
func NewKeyRepository(db *PostgresDB) *KeyRepository {
	return &KeyRepository{db: db}
}

// Create inserts a new key. The token is unique; a duplicate reports
// ErrKeyExists.
func (r *KeyRepository) Create(ctx context.Context, token string, plan types.Plan, expiresAt time.Time) (*models.Key, error) {
	query := `
		INSERT INTO keys (key, plan, expires_at, used)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, key, plan, expires_at, used, user_id
	`

	var key models.Key
	err := r.db.Pool().QueryRow(ctx, query, token, plan, expiresAt).Scan(
		&key.ID,
		&key.Token,
		&key.Plan,
		&key.ExpiresAt,
		&key.Used,
		&key.UserID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrKeyExists
		}
		return nil, fmt.Errorf("failed to create key: %w", err)
	}

	return &key, nil
}

// Delete removes a key by token. Deleting an absent token is a no-op.
func (r *KeyRepository) Delete(ctx context.Context, token string) error {
	_, err := r.db.Pool().Exec(ctx, `DELETE FROM keys WHERE key = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}
	return nil
}

// FindRedeemable returns the key for token only if it is unused and
// unexpired.
func (r *KeyRepository) FindRedeemable(ctx context.Context, token string) (*models.Key, error) {
	query := `
		SELECT id, key, plan, expires_at, used, user_id
		FROM keys
		WHERE key = $1 AND used = FALSE AND expires_at > NOW()
	`

	var key models.Key
	err := r.db.Pool().QueryRow(ctx, query, token).Scan(
		&key.ID,
		&key.Token,
		&key.Plan,
		&key.ExpiresAt,
		&key.Used,
		&key.UserID,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrKeyNotRedeemable
		}
		return nil, fmt.Errorf("failed to find key: %w", err)
	}

	return &key, nil
}

// MarkUsed flags a key as consumed
func (r *KeyRepository) MarkUsed(ctx context.Context, token string) error {
	_, err := r.db.Pool().Exec(ctx, `UPDATE keys SET used = TRUE WHERE key = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to mark key used: %w", err)
	}
	return nil
}

// ListWithUsers returns every key left-joined to its associated user.
// Keys without a user surface nil user fields.
func (r *KeyRepository) ListWithUsers(ctx context.Context) ([]*models.KeyWithUser, error) {
	query := `
		SELECT keys.id, keys.key, keys.expires_at, users.id, users.username, users.banned
		FROM keys
		LEFT JOIN users ON keys.user_id = users.id
		ORDER BY keys.id
	`

	rows, err := r.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	defer rows.Close()

	var list []*models.KeyWithUser
	for rows.Next() {
		var row models.KeyWithUser
		if err := rows.Scan(
			&row.KeyID,
			&row.Token,
			&row.ExpiresAt,
			&row.UserID,
			&row.Username,
			&row.Banned,
		); err != nil {
			return nil, fmt.Errorf("failed to scan key row: %w", err)
		}
		list = append(list, &row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating keys: %w", err)
	}

	return list, nil
}

// Redeem consumes the key and assigns its plan to the user, both inside one
// transaction. The consume step is a single conditional update, so under N
// concurrent redemptions of the same token exactly one succeeds; the rest
// see ErrKeyNotRedeemable. Returns the granted plan.
func (r *KeyRepository) Redeem(ctx context.Context, token string, userID int64) (types.Plan, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	var plan types.Plan
	err = tx.QueryRow(ctx, `
		UPDATE keys
		SET used = TRUE, user_id = $2
		WHERE key = $1 AND used = FALSE AND expires_at > NOW()
		RETURNING plan
	`, token, userID).Scan(&plan)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrKeyNotRedeemable
		}
		return "", fmt.Errorf("failed to consume key: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE users SET plan = $2, updated_at = $3 WHERE id = $1`,
		userID, plan, time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to assign plan: %w", err)
	}
	if result.RowsAffected() == 0 {
		return "", ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit redemption: %w", err)
	}

	return plan, nil
}

// CreateAndBan creates a key and bans a user atomically: either both writes
// persist or neither does.
func (r *KeyRepository) CreateAndBan(ctx context.Context, token string, plan types.Plan, expiresAt time.Time, userID int64) (*models.Key, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	var key models.Key
	err = tx.QueryRow(ctx, `
		INSERT INTO keys (key, plan, expires_at, used)
		VALUES ($1, $2, $3, FALSE)
		RETURNING id, key, plan, expires_at, used, user_id
	`, token, plan, expiresAt).Scan(
		&key.ID,
		&key.Token,
		&key.Plan,
		&key.ExpiresAt,
		&key.Used,
		&key.UserID,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrKeyExists
		}
		return nil, fmt.Errorf("failed to create key: %w", err)
	}

	if err := setBannedTx(ctx, tx, userID, true); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit create-and-ban: %w", err)
	}

	return &key, nil
}

// DeleteAndBan removes a key and bans a user atomically
func (r *KeyRepository) DeleteAndBan(ctx context.Context, token string, userID int64) error {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	if _, err := tx.Exec(ctx, `DELETE FROM keys WHERE key = $1`, token); err != nil {
		return fmt.Errorf("failed to delete key: %w", err)
	}

	if err := setBannedTx(ctx, tx, userID, true); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit delete-and-ban: %w", err)
	}

	return nil
}
