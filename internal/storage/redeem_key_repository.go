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

// RedeemKeyRepository handles coin-granting redeem codes. Redeem codes are
// a deliberately separate system from plan keys: no expiration, a fixed
// coin reward, and redemption upgrades the user to the pro plan.
type RedeemKeyRepository struct {
	db *PostgresDB
}

// NewRedeemKeyRepository creates a new redeem key repository
func NewRedeemKeyRepository(db *PostgresDB) *RedeemKeyRepository {
	return &RedeemKeyRepository{db: db}
}

// Create inserts a new redeem code with a coin reward
func (r *RedeemKeyRepository) Create(ctx context.Context, token string, coins int64) (*models.RedeemKey, error) {
	query := `
		INSERT INTO redeem_keys (key, coins, used)
		VALUES ($1, $2, FALSE)
		RETURNING id, key, coins, used
	`

	var rk models.RedeemKey
	err := r.db.Pool().QueryRow(ctx, query, token, coins).Scan(&rk.ID, &rk.Token, &rk.Coins, &rk.Used)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, ErrKeyExists
		}
		return nil, fmt.Errorf("failed to create redeem key: %w", err)
	}

	return &rk, nil
}

// Redeem consumes the code and credits the user in one transaction: coins
// are added to the balance and the plan is bumped to pro. The consume step
// is a single conditional update, so exactly one of N concurrent attempts
// on the same token succeeds. Returns the granted coin amount.
func (r *RedeemKeyRepository) Redeem(ctx context.Context, token string, userID int64) (int64, error) {
	tx, err := r.db.Pool().Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck // no-op after commit

	var coins int64
	err = tx.QueryRow(ctx, `
		UPDATE redeem_keys
		SET used = TRUE
		WHERE key = $1 AND used = FALSE
		RETURNING coins
	`, token).Scan(&coins)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrKeyNotRedeemable
		}
		return 0, fmt.Errorf("failed to consume redeem key: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE users SET coins = coins + $2, plan = $3, updated_at = $4 WHERE id = $1`,
		userID, coins, types.PlanPro, time.Now(),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to credit user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return 0, ErrUserNotFound
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("failed to commit redemption: %w", err)
	}

	return coins, nil
}
