package storage

import (
	"context"
	"fmt"

	"github.com/wallet-finder/internal/models"
	"github.com/wallet-finder/internal/types"
)

// HistoryRepository persists applied scanner ticks to ClickHouse
type HistoryRepository struct {
	db *ClickHouseDB
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *ClickHouseDB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Insert appends one scan record
func (r *HistoryRepository) Insert(ctx context.Context, rec *models.ScanRecord) error {
	query := `
		INSERT INTO scan_history (user_id, chain, address, balance, mode, scanned_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	err := r.db.Exec(ctx, query,
		rec.UserID,
		string(rec.Chain),
		rec.Address,
		rec.Balance,
		string(rec.Mode),
		rec.ScannedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert scan record: %w", err)
	}

	return nil
}

// ListByUser returns a user's scan records, newest first. A user with no
// records gets an empty slice, not an error.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*models.ScanRecord, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	query := `
		SELECT user_id, chain, address, balance, mode, scanned_at
		FROM scan_history
		WHERE user_id = ?
		ORDER BY scanned_at DESC
		LIMIT ?
	`

	rows, err := r.db.Conn().Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan history: %w", err)
	}
	defer rows.Close()

	records := make([]*models.ScanRecord, 0)
	for rows.Next() {
		var rec models.ScanRecord
		var chain, mode string
		if err := rows.Scan(
			&rec.UserID,
			&chain,
			&rec.Address,
			&rec.Balance,
			&mode,
			&rec.ScannedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		rec.Chain = types.ChainID(chain)
		rec.Mode = types.ScanMode(mode)
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scan history: %w", err)
	}

	return records, nil
}
