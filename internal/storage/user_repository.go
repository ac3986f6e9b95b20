package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/types"
)

// ErrUserNotFound is returned when an operation targets a user id that has
// no row.
var ErrUserNotFound = errors.New("user not found")

// ErrInsufficientCoins is returned when a plan purchase costs more than the
// user's balance.
var ErrInsufficientCoins = errors.New("insufficient coins")

// UserRepository handles user data persistence
type UserRepository struct {
	db *PostgresDB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *PostgresDB) *UserRepository {
	return &UserRepository{db: db}
}

// Upsert creates the user on first interaction, or refreshes the username
// on subsequent ones, and returns the current row. User ids come from the
// Telegram platform; they are never generated locally.
func (r *UserRepository) Upsert(ctx context.Context, id int64, username string) (*models.User, error) {
	query := `
		INSERT INTO users (id, username, plan, banned, coins, created_at, updated_at)
		VALUES ($1, $2, $3, FALSE, 0, $4, $4)
		ON CONFLICT (id) DO UPDATE SET username = EXCLUDED.username, updated_at = EXCLUDED.updated_at
		RETURNING id, username, plan, banned, coins, created_at, updated_at
	`

	var user models.User
	err := r.db.Pool().QueryRow(ctx, query, id, username, types.PlanBasic, time.Now()).Scan(
		&user.ID,
		&user.Username,
		&user.Plan,
		&user.Banned,
		&user.Coins,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	return &user, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `
		SELECT id, username, plan, banned, coins, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user models.User
	err := r.db.Pool().QueryRow(ctx, query, id).Scan(
		&user.ID,
		&user.Username,
		&user.Plan,
		&user.Banned,
		&user.Coins,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// SetBanned flips the banned flag for a user
func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	query := `UPDATE users SET banned = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Pool().Exec(ctx, query, id, banned, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set banned flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// SetPlan assigns a plan to a user. A zero row count reports
// ErrUserNotFound instead of silently succeeding.
func (r *UserRepository) SetPlan(ctx context.Context, id int64, plan types.Plan) error {
	if !types.ValidPlan(plan) {
		return &types.ServiceError{
			Code:    "INVALID_PLAN",
			Message: fmt.Sprintf("invalid plan: %s", plan),
		}
	}

	query := `UPDATE users SET plan = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Pool().Exec(ctx, query, id, plan, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set plan: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}

// PurchasePlan deducts the plan's coin cost from the user's balance and
// assigns the plan, as one conditional update: the deduction only happens
// when the balance covers the cost, so concurrent purchases can never drive
// coins negative. Returns the remaining balance.
func (r *UserRepository) PurchasePlan(ctx context.Context, id int64, plan types.Plan, cost int64) (int64, error) {
	if !types.ValidPlan(plan) {
		return 0, &types.ServiceError{
			Code:    "INVALID_PLAN",
			Message: fmt.Sprintf("invalid plan: %s", plan),
		}
	}

	query := `
		UPDATE users
		SET coins = coins - $2, plan = $3, updated_at = $4
		WHERE id = $1 AND coins >= $2
		RETURNING coins
	`

	var remaining int64
	err := r.db.Pool().QueryRow(ctx, query, id, cost, plan, time.Now()).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			exists, existsErr := r.Exists(ctx, id)
			if existsErr != nil {
				return 0, existsErr
			}
			if !exists {
				return 0, ErrUserNotFound
			}
			return 0, ErrInsufficientCoins
		}
		return 0, fmt.Errorf("failed to purchase plan: %w", err)
	}

	return remaining, nil
}

// Exists checks if a user exists by ID
func (r *UserRepository) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`

	err := r.db.Pool().QueryRow(ctx, query, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}

	return exists, nil
}

// setBannedTx bans or unbans a user inside an existing transaction. Like
// the original admin flow, banning a missing user is treated as an error so
// the surrounding transaction rolls back.
func setBannedTx(ctx context.Context, tx pgx.Tx, id int64, banned bool) error {
	result, err := tx.Exec(ctx,
		`UPDATE users SET banned = $2, updated_at = $3 WHERE id = $1`,
		id, banned, time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to set banned flag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrUserNotFound
	}

	return nil
}
