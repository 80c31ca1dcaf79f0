package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// WalletStorage — вторичное зеркало баланса UCoins (таблица wallets),
// сохранено для обратной совместимости чтений. Пишется только вместе
// с users.u_coins в той же транзакции и никогда не используется для решений.
type WalletStorage interface {
	UpsertBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, balance int64) error
}

type walletRepository struct {
	db *sql.DB
}

func NewWalletRepository(db *sql.DB) WalletStorage {
	return &walletRepository{db: db}
}

func (r *walletRepository) UpsertBalanceTx(ctx context.Context, tx *sql.Tx, userID int64, balance int64) error {
	query := `INSERT INTO wallets (user_id, balance, updated_at)
	          VALUES ($1, $2, NOW())
	          ON CONFLICT (user_id) DO UPDATE SET balance = EXCLUDED.balance, updated_at = NOW()`
	_, err := tx.ExecContext(ctx, query, userID, balance)
	if err != nil {
		return fmt.Errorf("failed to mirror wallet balance: %w", err)
	}
	return nil
}
