package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/linemk/coin-ledger/internal/domain/models"
	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// GiftService определяет интерфейс для перевода подарков.
type GiftService interface {
	SendGift(ctx context.Context, senderID, receiverID int64, giftType string, uCoinCost int64) (*GiftResult, error)
}

// GiftResult — итог успешного перевода подарка.
type GiftResult struct {
	UCoinsSpent      int64
	CCoinsEarned     int64
	NewSenderBalance int64
}

type giftService struct {
	log          *slog.Logger
	db           *sql.DB
	accountRepo  storage.AccountStorage
	giftRepo     storage.GiftStorage
	earningsRepo storage.EarningsStorage
	coinTxRepo   storage.CoinTransactionStorage
	exchangeRate decimal.Decimal
	maxAttempts  int
}

func NewGiftService(
	log *slog.Logger,
	db *sql.DB,
	accountRepo storage.AccountStorage,
	giftRepo storage.GiftStorage,
	earningsRepo storage.EarningsStorage,
	coinTxRepo storage.CoinTransactionStorage,
	exchangeRate decimal.Decimal,
	maxAttempts int,
) GiftService {
	return &giftService{
		log:          log,
		db:           db,
		accountRepo:  accountRepo,
		giftRepo:     giftRepo,
		earningsRepo: earningsRepo,
		coinTxRepo:   coinTxRepo,
		exchangeRate: exchangeRate,
		maxAttempts:  maxAttempts,
	}
}

// convertToCCoins переводит стоимость подарка в CCoins получателя.
// Правило округления — half-up (половина вверх), применяется на каждый перевод
// отдельно; правило зафиксировано, т.к. определяет выплату хосту.
func (s *giftService) convertToCCoins(uCoinCost int64) int64 {
	return decimal.NewFromInt(uCoinCost).Mul(s.exchangeRate).Round(0).IntPart()
}

// SendGift атомарно списывает UCoins у отправителя, начисляет CCoins получателю,
// пишет запись в журнал подарков и инкрементирует итоги получателя.
// Вся последовательность выполняется в одной транзакции; при конфликте
// конкурентного доступа повторяется целиком со свежими чтениями.
func (s *giftService) SendGift(ctx context.Context, senderID, receiverID int64, giftType string, uCoinCost int64) (*GiftResult, error) {
	const op = "service.GiftService.SendGift"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("senderID", senderID),
		slog.Int64("receiverID", receiverID),
		slog.String("giftType", giftType),
		slog.Int64("uCoinCost", uCoinCost),
	)
	logger.Info("starting gift transfer")

	if giftType == "" || uCoinCost <= 0 {
		return nil, fmt.Errorf("%s: gift type and positive cost are required: %w", op, ErrInvalidArgument)
	}
	if senderID == receiverID {
		return nil, fmt.Errorf("%s: %w", op, ErrSelfGift)
	}

	var result *GiftResult
	err := runInTx(ctx, s.db, logger, s.maxAttempts, func(tx *sql.Tx) error {
		// блокируем оба аккаунта в порядке возрастания id, чтобы два встречных
		// перевода не взяли блокировки в противоположном порядке
		firstID, secondID := senderID, receiverID
		if receiverID < senderID {
			firstID, secondID = receiverID, senderID
		}

		first, err := s.accountRepo.LockAccountByIDTx(ctx, tx, firstID)
		if err != nil {
			return lockError(op, err, firstID == senderID)
		}
		second, err := s.accountRepo.LockAccountByIDTx(ctx, tx, secondID)
		if err != nil {
			return lockError(op, err, secondID == senderID)
		}

		sender, receiver := first, second
		if sender.ID != senderID {
			sender, receiver = second, first
		}

		if sender.UCoins < uCoinCost {
			return fmt.Errorf("%s: balance %d, cost %d: %w", op, sender.UCoins, uCoinCost, ErrInsufficientFunds)
		}

		cCoinsToGive := s.convertToCCoins(uCoinCost)
		newSenderBalance := sender.UCoins - uCoinCost

		if err := s.accountRepo.UpdateBalancesTx(ctx, tx, sender.ID, newSenderBalance, sender.CCoins); err != nil {
			return fmt.Errorf("%s: failed to update sender balance: %w", op, err)
		}
		if err := s.accountRepo.UpdateBalancesTx(ctx, tx, receiver.ID, receiver.UCoins, receiver.CCoins+cCoinsToGive); err != nil {
			return fmt.Errorf("%s: failed to update receiver balance: %w", op, err)
		}

		gift := &models.GiftRecord{
			SenderID:     sender.ID,
			ReceiverID:   receiver.ID,
			GiftType:     giftType,
			UCoinsSpent:  uCoinCost,
			CCoinsEarned: cCoinsToGive,
			SenderName:   displayNameOrDefault(sender.DisplayName, "User"),
			ReceiverName: displayNameOrDefault(receiver.DisplayName, "Host"),
		}
		if err := s.giftRepo.CreateGiftTx(ctx, tx, gift); err != nil {
			return fmt.Errorf("%s: failed to record gift: %w", op, err)
		}

		if err := s.earningsRepo.AddEarningsTx(ctx, tx, receiver.ID, cCoinsToGive); err != nil {
			return fmt.Errorf("%s: failed to update earnings: %w", op, err)
		}

		// история операций для обеих сторон
		sentTx := &models.CoinTransaction{
			UserID:        sender.ID,
			Type:          models.TxTypeGiftSent,
			Coins:         uCoinCost,
			RelatedUserID: &receiver.ID,
			Description:   fmt.Sprintf("Gift sent: %s", giftType),
		}
		if err := s.coinTxRepo.CreateTransactionTx(ctx, tx, sentTx); err != nil {
			return fmt.Errorf("%s: failed to record sender transaction: %w", op, err)
		}
		receivedTx := &models.CoinTransaction{
			UserID:        receiver.ID,
			Type:          models.TxTypeGiftReceived,
			Coins:         cCoinsToGive,
			RelatedUserID: &sender.ID,
			Description:   fmt.Sprintf("Gift received: %s", giftType),
		}
		if err := s.coinTxRepo.CreateTransactionTx(ctx, tx, receivedTx); err != nil {
			return fmt.Errorf("%s: failed to record receiver transaction: %w", op, err)
		}

		result = &GiftResult{
			UCoinsSpent:      uCoinCost,
			CCoinsEarned:     cCoinsToGive,
			NewSenderBalance: newSenderBalance,
		}
		return nil
	})
	if err != nil {
		logger.Error("gift transfer failed", slog.Any("error", err))
		return nil, err
	}

	logger.Info("gift transfer completed successfully",
		slog.Int64("cCoinsEarned", result.CCoinsEarned),
		slog.Int64("newSenderBalance", result.NewSenderBalance))
	return result, nil
}

// lockError помечает, чей именно аккаунт не найден под блокировкой.
func lockError(op string, err error, isSender bool) error {
	if errors.Is(err, storage.ErrAccountNotFound) {
		if isSender {
			return fmt.Errorf("%s: sender not found: %w", op, err)
		}
		return fmt.Errorf("%s: receiver not found: %w", op, err)
	}
	if isSender {
		return fmt.Errorf("%s: failed to lock sender: %w", op, err)
	}
	return fmt.Errorf("%s: failed to lock receiver: %w", op, err)
}

func displayNameOrDefault(name, def string) string {
	if name == "" {
		return def
	}
	return name
}
