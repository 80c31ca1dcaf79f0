package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/linemk/coin-ledger/internal/domain/models"
)

var ErrAccountNotFound = errors.New("account not found")

type AccountStorage interface {
	GetAccountByUsername(ctx context.Context, username string) (*models.Account, error)
	GetAccountByID(ctx context.Context, id int64) (*models.Account, error)
	CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error)
	// LockAccountByIDTx читает аккаунт с блокировкой строки (FOR UPDATE NOWAIT).
	// Занятая блокировка возвращается как конфликт, см. IsConflict.
	LockAccountByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error)
	// UpdateBalancesTx записывает оба баланса, вычисленные под блокировкой строки.
	UpdateBalancesTx(ctx context.Context, tx *sql.Tx, id int64, uCoins, cCoins int64) error
}

type accountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) AccountStorage {
	return &accountRepository{db: db}
}

const accountColumns = "id, username, pass_hash, display_name, u_coins, c_coins, created_at"

func scanAccount(row *sql.Row) (*models.Account, error) {
	acc := &models.Account{}
	if err := row.Scan(&acc.ID, &acc.Username, &acc.PassHash, &acc.DisplayName, &acc.UCoins, &acc.CCoins, &acc.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (r *accountRepository) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM users WHERE username = $1", username)
	return scanAccount(row)
}

func (r *accountRepository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM users WHERE id = $1", id)
	return scanAccount(row)
}

func (r *accountRepository) CreateAccount(ctx context.Context, acc *models.Account) (*models.Account, error) {
	var id int64
	err := r.db.QueryRowContext(ctx,
		"INSERT INTO users (username, pass_hash, display_name, u_coins, c_coins) VALUES ($1, $2, $3, $4, $5) RETURNING id",
		acc.Username, acc.PassHash, acc.DisplayName, acc.UCoins, acc.CCoins,
	).Scan(&id)
	if err != nil {
		return nil, err
	}
	acc.ID = id
	return acc, nil
}

func (r *accountRepository) LockAccountByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Account, error) {
	acc := &models.Account{}
	row := tx.QueryRowContext(ctx, "SELECT "+accountColumns+" FROM users WHERE id = $1 FOR UPDATE NOWAIT", id)
	if err := row.Scan(&acc.ID, &acc.Username, &acc.PassHash, &acc.DisplayName, &acc.UCoins, &acc.CCoins, &acc.CreatedAt); err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "55P03" {
			return nil, fmt.Errorf("account %d is locked: %w", id, err)
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	return acc, nil
}

func (r *accountRepository) UpdateBalancesTx(ctx context.Context, tx *sql.Tx, id int64, uCoins, cCoins int64) error {
	res, err := tx.ExecContext(ctx, "UPDATE users SET u_coins = $1, c_coins = $2 WHERE id = $3", uCoins, cCoins, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrAccountNotFound
	}
	return nil
}
