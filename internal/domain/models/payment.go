package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Payment — запись об успешно проведённой оплате заказа, ключ — внешний
// идентификатор платежа. Существование completed-платежа для заказа служит
// барьером идемпотентности: повторная доставка IPN не начисляет монеты второй раз.
type Payment struct {
	PaymentID     string          `json:"payment_id"`
	OrderID       int64           `json:"order_id"`
	UserID        int64           `json:"user_id"`
	PackageID     string          `json:"package_id"`
	Coins         int64           `json:"coins"`
	Amount        decimal.Decimal `json:"amount"`
	Identifier    string          `json:"identifier"`
	Status        string          `json:"status"`
	PaymentMethod string          `json:"payment_method"`
	CreatedAt     time.Time       `json:"created_at"`
	CompletedAt   time.Time       `json:"completed_at"`
}
