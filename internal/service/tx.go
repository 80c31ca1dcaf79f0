package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/linemk/coin-ledger/internal/storage"
)

// runInTx выполняет fn внутри транзакции БД. При конфликте конкурентного доступа
// (сериализация, дедлок, занятая блокировка строки) вся последовательность
// чтение-изменение-запись повторяется заново со свежими чтениями, не более
// maxAttempts раз. Балансы никогда не пишутся по устаревшим чтениям:
// каждый повтор начинается с нового чтения под блокировкой.
func runInTx(ctx context.Context, db *sql.DB, log *slog.Logger, maxAttempts int, fn func(tx *sql.Tx) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := fn(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Error("transaction rollback failed", slog.Any("error", rbErr))
			}
			if storage.IsConflict(err) {
				lastErr = err
				log.Warn("transaction conflict, retrying",
					slog.Int("attempt", attempt), slog.Any("error", err))
				continue
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			if storage.IsConflict(err) {
				lastErr = err
				log.Warn("commit conflict, retrying",
					slog.Int("attempt", attempt), slog.Any("error", err))
				continue
			}
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	}

	return fmt.Errorf("transaction conflict not resolved after %d attempts: %w", maxAttempts, lastErr)
}
