package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/linemk/coin-ledger/internal/domain/models"
	"github.com/linemk/coin-ledger/internal/lib/signature"
	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// SettlementPayload — разобранное поле data платёжного уведомления.
// Amount хранится в исходном строковом виде провайдера: именно эта строка
// участвует в подписи, перерисовывать её нельзя.
type SettlementPayload struct {
	Amount               string
	PaymentTransactionID string
	TransactionID        string
	PaymentTrx           string
}

// SettlementRequest — проверенное на полноту уведомление (IPN) от провайдера.
type SettlementRequest struct {
	Status     string
	Identifier string
	Signature  string
	Payload    SettlementPayload
}

// SettlementResult — ответ провайдеру. Success=false с nil-ошибкой — это
// легитимное уведомление о неуспешной оплате (HTTP 200, провайдер не должен повторять).
type SettlementResult struct {
	Success bool
	Message string
	Coins   int64
	Amount  *decimal.Decimal
}

// SettlementService превращает at-least-once доставку IPN в at-most-once
// начисление монет: повторные доставки отвечаются успехом без повторного эффекта.
type SettlementService interface {
	Settle(ctx context.Context, req *SettlementRequest) (*SettlementResult, error)
}

type settlementService struct {
	log           *slog.Logger
	db            *sql.DB
	accountRepo   storage.AccountStorage
	orderRepo     storage.OrderStorage
	paymentRepo   storage.PaymentStorage
	walletRepo    storage.WalletStorage
	coinTxRepo    storage.CoinTransactionStorage
	secretKey     []byte
	paymentMethod string
	maxAttempts   int
}

func NewSettlementService(
	log *slog.Logger,
	db *sql.DB,
	accountRepo storage.AccountStorage,
	orderRepo storage.OrderStorage,
	paymentRepo storage.PaymentStorage,
	walletRepo storage.WalletStorage,
	coinTxRepo storage.CoinTransactionStorage,
	secretKey []byte,
	paymentMethod string,
	maxAttempts int,
) SettlementService {
	return &settlementService{
		log:           log,
		db:            db,
		accountRepo:   accountRepo,
		orderRepo:     orderRepo,
		paymentRepo:   paymentRepo,
		walletRepo:    walletRepo,
		coinTxRepo:    coinTxRepo,
		secretKey:     secretKey,
		paymentMethod: paymentMethod,
		maxAttempts:   maxAttempts,
	}
}

func (s *settlementService) Settle(ctx context.Context, req *SettlementRequest) (*SettlementResult, error) {
	const op = "service.SettlementService.Settle"
	logger := s.log.With(
		slog.String("op", op),
		slog.String("identifier", req.Identifier),
		slog.String("status", req.Status),
	)
	logger.Info("processing payment notification")

	if len(s.secretKey) == 0 {
		logger.Error("payment secret key is not configured")
		return nil, fmt.Errorf("%s: %w", op, ErrSecretNotConfigured)
	}

	if !signature.Verify(req.Payload.Amount, req.Identifier, req.Signature, s.secretKey) {
		logger.Warn("signature verification failed")
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidSignature)
	}

	order, err := s.orderRepo.GetOrderByIdentifier(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, storage.ErrOrderNotFound) {
			logger.Warn("order not found")
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Error("failed to get order", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get order: %w", op, err)
	}
	logger = logger.With(slog.Int64("orderID", order.ID), slog.Int64("userID", order.UserID))

	// легитимное уведомление о неуспехе: заказ переводится в failed (только из
	// pending, завершённый заказ неизменяем), провайдеру отвечаем 200
	if req.Status != "success" {
		reason := fmt.Sprintf("payment status: %s", req.Status)
		if err := s.orderRepo.MarkOrderFailed(ctx, order.ID, reason); err != nil {
			logger.Error("failed to mark order failed", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("payment notification reported failure", slog.String("reason", reason))
		return &SettlementResult{Success: false, Message: reason}, nil
	}

	// быстрая проверка барьера идемпотентности до открытия транзакции
	if existing, err := s.paymentRepo.GetCompletedByOrderID(ctx, order.ID); err == nil {
		logger.Info("payment already processed", slog.String("paymentID", existing.PaymentID))
		return &SettlementResult{
			Success: true,
			Message: "Payment already processed",
			Coins:   existing.Coins,
		}, nil
	} else if !errors.Is(err, storage.ErrPaymentNotFound) {
		logger.Error("failed to check existing payment", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to check existing payment: %w", op, err)
	}

	paymentID := canonicalPaymentID(req.Payload, order.ID)

	var result *SettlementResult
	err = runInTx(ctx, s.db, logger, s.maxAttempts, func(tx *sql.Tx) error {
		acc, err := s.accountRepo.LockAccountByIDTx(ctx, tx, order.UserID)
		if err != nil {
			if errors.Is(err, storage.ErrAccountNotFound) {
				return fmt.Errorf("%s: user not found: %w", op, err)
			}
			return fmt.Errorf("%s: failed to lock account: %w", op, err)
		}

		// конкурентная доставка того же IPN сериализуется на блокировке строки
		// пользователя: проигравшая доставка видит уже записанный платёж
		if existing, err := s.paymentRepo.GetCompletedByOrderIDTx(ctx, tx, order.ID); err == nil {
			result = &SettlementResult{
				Success: true,
				Message: "Payment already processed",
				Coins:   existing.Coins,
			}
			return nil
		} else if !errors.Is(err, storage.ErrPaymentNotFound) {
			return fmt.Errorf("%s: failed to re-check existing payment: %w", op, err)
		}

		newBalance := acc.UCoins + order.Coins
		if err := s.accountRepo.UpdateBalancesTx(ctx, tx, acc.ID, newBalance, acc.CCoins); err != nil {
			return fmt.Errorf("%s: failed to credit coins: %w", op, err)
		}
		// зеркалим новый баланс во вторичную запись wallets (та же транзакция)
		if err := s.walletRepo.UpsertBalanceTx(ctx, tx, acc.ID, newBalance); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		if err := s.orderRepo.MarkOrderCompletedTx(ctx, tx, order.ID, paymentID); err != nil {
			return fmt.Errorf("%s: failed to complete order: %w", op, err)
		}

		payment := &models.Payment{
			PaymentID:     paymentID,
			OrderID:       order.ID,
			UserID:        acc.ID,
			PackageID:     order.PackageID,
			Coins:         order.Coins,
			Amount:        order.Amount,
			Identifier:    order.Identifier,
			Status:        models.OrderStatusCompleted,
			PaymentMethod: s.paymentMethod,
		}
		if err := s.paymentRepo.CreatePaymentTx(ctx, tx, payment); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		amount := order.Amount
		coinTx := &models.CoinTransaction{
			UserID:      acc.ID,
			Type:        models.TxTypePurchase,
			Coins:       order.Coins,
			Amount:      &amount,
			PaymentID:   &payment.PaymentID,
			Description: fmt.Sprintf("Coin purchase via %s", s.paymentMethod),
		}
		if err := s.coinTxRepo.CreateTransactionTx(ctx, tx, coinTx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}

		resAmount := order.Amount
		result = &SettlementResult{
			Success: true,
			Message: "Payment verified and coins added successfully",
			Coins:   order.Coins,
			Amount:  &resAmount,
		}
		return nil
	})
	if err != nil {
		logger.Error("settlement failed", slog.Any("error", err))
		return nil, err
	}

	logger.Info("payment settled", slog.String("paymentID", paymentID), slog.Int64("coins", result.Coins))
	return result, nil
}

// canonicalPaymentID выбирает внешний идентификатор платежа из полей payload
// в порядке предпочтения, с откатом на id заказа.
func canonicalPaymentID(p SettlementPayload, orderID int64) string {
	switch {
	case p.PaymentTransactionID != "":
		return p.PaymentTransactionID
	case p.TransactionID != "":
		return p.TransactionID
	case p.PaymentTrx != "":
		return p.PaymentTrx
	default:
		return strconv.FormatInt(orderID, 10)
	}
}
