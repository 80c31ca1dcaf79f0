package models

import "time"

// Account представляет пользователя платформы с двумя балансами:
// UCoins — покупаемая валюта (тратится на подарки),
// CCoins — заработанная валюта (начисляется получателю подарков).
// Оба баланса всегда >= 0 и меняются только внутри транзакции БД.
type Account struct {
	ID          int64
	Username    string
	PassHash    []byte
	DisplayName string
	UCoins      int64
	CCoins      int64
	CreatedAt   time.Time
}
