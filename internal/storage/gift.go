package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/coin-ledger/internal/domain/models"
)

// GiftStorage описывает методы для работы с журналом подарков.
// Журнал только пополняется, записи никогда не изменяются.
type GiftStorage interface {
	CreateGiftTx(ctx context.Context, tx *sql.Tx, g *models.GiftRecord) error
	GetGiftsByReceiverID(ctx context.Context, receiverID int64) ([]*models.GiftRecord, error)
}

type giftRepository struct {
	db *sql.DB
}

func NewGiftRepository(db *sql.DB) GiftStorage {
	return &giftRepository{db: db}
}

func (r *giftRepository) CreateGiftTx(ctx context.Context, tx *sql.Tx, g *models.GiftRecord) error {
	query := `INSERT INTO gifts (sender_id, receiver_id, gift_type, u_coins_spent, c_coins_earned, sender_name, receiver_name, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	_, err := tx.ExecContext(ctx, query,
		g.SenderID, g.ReceiverID, g.GiftType, g.UCoinsSpent, g.CCoinsEarned, g.SenderName, g.ReceiverName)
	if err != nil {
		return fmt.Errorf("failed to create gift record: %w", err)
	}
	return nil
}

func (r *giftRepository) GetGiftsByReceiverID(ctx context.Context, receiverID int64) ([]*models.GiftRecord, error) {
	query := `
		SELECT id, sender_id, receiver_id, gift_type, u_coins_spent, c_coins_earned, sender_name, receiver_name, created_at
		FROM gifts
		WHERE receiver_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, receiverID)
	if err != nil {
		return nil, fmt.Errorf("failed to query gifts: %w", err)
	}
	defer rows.Close()

	var gifts []*models.GiftRecord
	for rows.Next() {
		g := &models.GiftRecord{}
		if err := rows.Scan(&g.ID, &g.SenderID, &g.ReceiverID, &g.GiftType, &g.UCoinsSpent,
			&g.CCoinsEarned, &g.SenderName, &g.ReceiverName, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan gift record: %w", err)
		}
		gifts = append(gifts, g)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return gifts, nil
}
