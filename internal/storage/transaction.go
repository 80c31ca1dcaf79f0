package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/linemk/coin-ledger/internal/domain/models"
)

// CoinTransactionStorage описывает методы для работы с историей операций пользователя.
type CoinTransactionStorage interface {
	// CreateTransactionTx добавляет запись истории в транзакции операции, изменившей баланс.
	CreateTransactionTx(ctx context.Context, tx *sql.Tx, t *models.CoinTransaction) error
	GetTransactionsByUserID(ctx context.Context, userID int64) ([]*models.CoinTransaction, error)
}

type coinTransactionRepository struct {
	db *sql.DB
}

func NewCoinTransactionRepository(db *sql.DB) CoinTransactionStorage {
	return &coinTransactionRepository{db: db}
}

func (r *coinTransactionRepository) CreateTransactionTx(ctx context.Context, tx *sql.Tx, t *models.CoinTransaction) error {
	query := `INSERT INTO coin_transactions (user_id, type, coins, amount, payment_id, related_user_id, description, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())`
	_, err := tx.ExecContext(ctx, query,
		t.UserID, t.Type, t.Coins, t.Amount, t.PaymentID, t.RelatedUserID, t.Description)
	if err != nil {
		return fmt.Errorf("failed to create coin transaction: %w", err)
	}
	return nil
}

func (r *coinTransactionRepository) GetTransactionsByUserID(ctx context.Context, userID int64) ([]*models.CoinTransaction, error) {
	query := `
		SELECT id, user_id, type, coins, amount, payment_id, related_user_id, description, created_at
		FROM coin_transactions
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query coin transactions: %w", err)
	}
	defer rows.Close()

	var transactions []*models.CoinTransaction
	for rows.Next() {
		t := &models.CoinTransaction{}
		if err := rows.Scan(&t.ID, &t.UserID, &t.Type, &t.Coins, &t.Amount, &t.PaymentID,
			&t.RelatedUserID, &t.Description, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan coin transaction: %w", err)
		}
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return transactions, nil
}
