package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/coin-ledger/internal/domain/models"
)

var ErrPaymentNotFound = errors.New("payment not found")

// PaymentStorage описывает методы для работы с записями о проведённых оплатах.
// Completed-платёж по заказу — это барьер идемпотентности для повторных IPN.
type PaymentStorage interface {
	GetCompletedByOrderID(ctx context.Context, orderID int64) (*models.Payment, error)
	// GetCompletedByOrderIDTx — перепроверка барьера внутри транзакции расчёта,
	// после взятия блокировки строки пользователя.
	GetCompletedByOrderIDTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Payment, error)
	CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) error
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(db *sql.DB) PaymentStorage {
	return &paymentRepository{db: db}
}

const paymentColumns = "payment_id, order_id, user_id, package_id, coins, amount, identifier, status, payment_method, created_at, completed_at"

func scanPayment(row *sql.Row) (*models.Payment, error) {
	p := &models.Payment{}
	err := row.Scan(&p.PaymentID, &p.OrderID, &p.UserID, &p.PackageID, &p.Coins, &p.Amount,
		&p.Identifier, &p.Status, &p.PaymentMethod, &p.CreatedAt, &p.CompletedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return p, nil
}

func (r *paymentRepository) GetCompletedByOrderID(ctx context.Context, orderID int64) (*models.Payment, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE order_id = $1 AND status = $2",
		orderID, models.OrderStatusCompleted)
	return scanPayment(row)
}

func (r *paymentRepository) GetCompletedByOrderIDTx(ctx context.Context, tx *sql.Tx, orderID int64) (*models.Payment, error) {
	row := tx.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE order_id = $1 AND status = $2",
		orderID, models.OrderStatusCompleted)
	return scanPayment(row)
}

func (r *paymentRepository) CreatePaymentTx(ctx context.Context, tx *sql.Tx, p *models.Payment) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO payments (payment_id, order_id, user_id, package_id, coins, amount, identifier, status, payment_method, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())`,
		p.PaymentID, p.OrderID, p.UserID, p.PackageID, p.Coins, p.Amount, p.Identifier, p.Status, p.PaymentMethod)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}
