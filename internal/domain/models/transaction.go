package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// типы операций в истории пользователя
const (
	TxTypePurchase     = "purchase"
	TxTypeGiftSent     = "gift_sent"
	TxTypeGiftReceived = "gift_received"
)

// CoinTransaction — запись истории по любому событию, меняющему баланс
// (покупка монет, отправленный/полученный подарок). Только добавляется.
type CoinTransaction struct {
	ID            int64            `json:"id"`
	UserID        int64            `json:"user_id"`
	Type          string           `json:"type"`
	Coins         int64            `json:"coins"`
	Amount        *decimal.Decimal `json:"amount,omitempty"`     // сумма в деньгах, только для покупок
	PaymentID     *string          `json:"payment_id,omitempty"` // только для покупок
	RelatedUserID *int64           `json:"related_user_id,omitempty"`
	Description   string           `json:"description"`
	CreatedAt     time.Time        `json:"created_at"`
}
