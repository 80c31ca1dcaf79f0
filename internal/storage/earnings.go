package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/coin-ledger/internal/domain/models"
)

// EarningsStorage описывает методы для работы с накопительными итогами получателей.
type EarningsStorage interface {
	// AddEarningsTx инкрементирует итоги получателя (upsert), в транзакции перевода.
	AddEarningsTx(ctx context.Context, tx *sql.Tx, userID int64, cCoins int64) error
	GetEarningsByUserID(ctx context.Context, userID int64) (*models.EarningsSummary, error)
}

type earningsRepository struct {
	db *sql.DB
}

func NewEarningsRepository(db *sql.DB) EarningsStorage {
	return &earningsRepository{db: db}
}

func (r *earningsRepository) AddEarningsTx(ctx context.Context, tx *sql.Tx, userID int64, cCoins int64) error {
	query := `INSERT INTO earnings (user_id, total_c_coins, total_gifts_received, last_updated)
	          VALUES ($1, $2, 1, NOW())
	          ON CONFLICT (user_id) DO UPDATE SET
	              total_c_coins = earnings.total_c_coins + EXCLUDED.total_c_coins,
	              total_gifts_received = earnings.total_gifts_received + 1,
	              last_updated = NOW()`
	_, err := tx.ExecContext(ctx, query, userID, cCoins)
	if err != nil {
		return fmt.Errorf("failed to update earnings: %w", err)
	}
	return nil
}

func (r *earningsRepository) GetEarningsByUserID(ctx context.Context, userID int64) (*models.EarningsSummary, error) {
	s := &models.EarningsSummary{}
	row := r.db.QueryRowContext(ctx,
		"SELECT user_id, total_c_coins, total_gifts_received, last_updated FROM earnings WHERE user_id = $1", userID)
	if err := row.Scan(&s.UserID, &s.TotalCCoins, &s.TotalGiftsReceived, &s.LastUpdated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// итогов ещё нет — получатель не получал подарков
			return &models.EarningsSummary{UserID: userID}, nil
		}
		return nil, err
	}
	return s, nil
}
