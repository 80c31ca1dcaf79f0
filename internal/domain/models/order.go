package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// статусы заказа на покупку монет
const (
	OrderStatusPending   = "pending"
	OrderStatusCompleted = "completed"
	OrderStatusFailed    = "failed"
)

// Order представляет намерение купить UCoins. Создаётся до оплаты,
// в статус completed/failed переводится только обработчиком IPN.
// Заказ в статусе completed больше не изменяется.
type Order struct {
	ID            int64           `json:"id"`
	UserID        int64           `json:"user_id"`
	Coins         int64           `json:"coins"`
	Amount        decimal.Decimal `json:"amount"`
	PackageID     string          `json:"package_id"`
	Identifier    string          `json:"identifier"` // внешний корреляционный токен, <= 20 символов, уникальный
	Status        string          `json:"status"`
	PaymentID     *string         `json:"payment_id,omitempty"`
	FailureReason *string         `json:"failure_reason,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	VerifiedAt    *time.Time      `json:"verified_at,omitempty"`
	FailedAt      *time.Time      `json:"failed_at,omitempty"`
}
