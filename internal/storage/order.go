package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/linemk/coin-ledger/internal/domain/models"
)

var ErrOrderNotFound = errors.New("order not found")

// OrderStorage описывает методы для работы с заказами на покупку монет.
type OrderStorage interface {
	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	// GetOrderByIdentifier ищет заказ по внешнему корреляционному токену (уникальный индекс).
	GetOrderByIdentifier(ctx context.Context, identifier string) (*models.Order, error)
	// LockOrderByIDTx читает заказ с блокировкой строки внутри транзакции расчёта.
	LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error)
	MarkOrderCompletedTx(ctx context.Context, tx *sql.Tx, id int64, paymentID string) error
	MarkOrderFailed(ctx context.Context, id int64, reason string) error
	GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error)
}

type orderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) OrderStorage {
	return &orderRepository{db: db}
}

const orderColumns = "id, user_id, coins, amount, package_id, identifier, status, payment_id, failure_reason, created_at, verified_at, failed_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*models.Order, error) {
	order := &models.Order{}
	err := row.Scan(&order.ID, &order.UserID, &order.Coins, &order.Amount, &order.PackageID,
		&order.Identifier, &order.Status, &order.PaymentID, &order.FailureReason,
		&order.CreatedAt, &order.VerifiedAt, &order.FailedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO orders (user_id, coins, amount, package_id, identifier, status, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NOW())
		 RETURNING id, created_at`,
		order.UserID, order.Coins, order.Amount, order.PackageID, order.Identifier, order.Status,
	).Scan(&order.ID, &order.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	return order, nil
}

func (r *orderRepository) GetOrderByIdentifier(ctx context.Context, identifier string) (*models.Order, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE identifier = $1", identifier)
	return scanOrder(row)
}

func (r *orderRepository) LockOrderByIDTx(ctx context.Context, tx *sql.Tx, id int64) (*models.Order, error) {
	row := tx.QueryRowContext(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1 FOR UPDATE", id)
	return scanOrder(row)
}

func (r *orderRepository) MarkOrderCompletedTx(ctx context.Context, tx *sql.Tx, id int64, paymentID string) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE orders SET status = $1, payment_id = $2, verified_at = NOW() WHERE id = $3 AND status = $4",
		models.OrderStatusCompleted, paymentID, id, models.OrderStatusPending)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkOrderFailed переводит заказ в failed. Завершённый заказ неизменяем,
// поэтому обновляются только pending-строки.
func (r *orderRepository) MarkOrderFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, failure_reason = $2, failed_at = NOW() WHERE id = $3 AND status = $4",
		models.OrderStatusFailed, reason, id, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to mark order failed: %w", err)
	}
	return nil
}

func (r *orderRepository) GetOrdersByUserID(ctx context.Context, userID int64) ([]*models.Order, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return orders, nil
}
