package service

import "errors"

// ошибки бизнес-логики; хендлеры переводят их в HTTP-статусы
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrSelfGift            = errors.New("cannot send gift to yourself")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrInvalidSignature    = errors.New("invalid signature")
	ErrSecretNotConfigured = errors.New("payment secret key is not configured")
)
