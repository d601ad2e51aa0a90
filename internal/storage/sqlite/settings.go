package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/famscrap/scrapbill/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

// ReductionFactor returns the stored L-mode reduction factor, defaulting to
// models.DefaultReductionFactor when no setting exists.
func (s *SQLiteStore) ReductionFactor(ctx context.Context) (float64, error) {
	var value float64
	err := s.db.QueryRowContext(ctx,
		"SELECT value FROM weight_settings WHERE key = ?", models.ReductionFactorKey,
	).Scan(&value)
	if err == sql.ErrNoRows {
		return models.DefaultReductionFactor, nil
	}
	if err != nil {
		return 0, persistErr("get reduction factor", err)
	}
	return value, nil
}

// SetReductionFactor upserts the L-mode reduction factor.
func (s *SQLiteStore) SetReductionFactor(ctx context.Context, r float64) error {
	if r < 0 || r >= 1 {
		return fmt.Errorf("%w: reduction factor %v outside [0, 1)", models.ErrConfiguration, r)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO weight_settings (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		models.ReductionFactorKey, r, formatTime(time.Now()),
	); err != nil {
		return persistErr("set reduction factor", err)
	}
	return nil
}
