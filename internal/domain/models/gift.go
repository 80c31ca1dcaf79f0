package models

import "time"

// GiftRecord — неизменяемая запись журнала об одном переводе подарка.
// Имена отправителя и получателя денормализованы для аудита.
type GiftRecord struct {
	ID           int64     `json:"id"`
	SenderID     int64     `json:"sender_id"`
	ReceiverID   int64     `json:"receiver_id"`
	GiftType     string    `json:"gift_type"`
	UCoinsSpent  int64     `json:"u_coins_spent"`
	CCoinsEarned int64     `json:"c_coins_earned"`
	SenderName   string    `json:"sender_name"`
	ReceiverName string    `json:"receiver_name"`
	CreatedAt    time.Time `json:"created_at"`
}

// EarningsSummary — накопительный итог по получателю подарков,
// обновляется только инкрементами в той же транзакции, что и перевод.
type EarningsSummary struct {
	UserID             int64     `json:"user_id"`
	TotalCCoins        int64     `json:"total_c_coins"`
	TotalGiftsReceived int64     `json:"total_gifts_received"`
	LastUpdated        time.Time `json:"last_updated"`
}
