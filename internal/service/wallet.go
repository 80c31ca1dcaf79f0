package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// WalletService отдаёт состояние кошелька и считает котировку вывода.
type WalletService interface {
	GetWallet(ctx context.Context, userID int64) (*WalletInfo, error)
	// QuoteWithdrawal — чистая функция: CCoins -> денежная котировка,
	// ничего не пишет и не читает из хранилища.
	QuoteWithdrawal(cCoins int64) (*WithdrawalQuote, error)
}

// WalletInfo — состояние кошелька пользователя с итогами и историей.
type WalletInfo struct {
	UserID      int64            `json:"userId"`
	DisplayName string           `json:"displayName"`
	UCoins      int64            `json:"uCoins"`
	CCoins      int64            `json:"cCoins"`
	Earnings    EarningsInfo     `json:"earnings"`
	History     []WalletTxRecord `json:"history"`
}

type EarningsInfo struct {
	TotalCCoins        int64 `json:"totalCCoins"`
	TotalGiftsReceived int64 `json:"totalGiftsReceived"`
}

type WalletTxRecord struct {
	Type        string           `json:"type"`
	Coins       int64            `json:"coins"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description string           `json:"description"`
	CreatedAt   time.Time        `json:"createdAt"`
}

// WithdrawalQuote — денежная котировка для вывода заработанных CCoins.
type WithdrawalQuote struct {
	CCoins           int64           `json:"cCoins"`
	WithdrawalAmount decimal.Decimal `json:"withdrawalAmount"`
	Currency         string          `json:"currency"`
}

type walletService struct {
	log            *slog.Logger
	accountRepo    storage.AccountStorage
	earningsRepo   storage.EarningsStorage
	coinTxRepo     storage.CoinTransactionStorage
	withdrawalRate decimal.Decimal
	currency       string
}

func NewWalletService(
	log *slog.Logger,
	accountRepo storage.AccountStorage,
	earningsRepo storage.EarningsStorage,
	coinTxRepo storage.CoinTransactionStorage,
	withdrawalRate decimal.Decimal,
	currency string,
) WalletService {
	return &walletService{
		log:            log,
		accountRepo:    accountRepo,
		earningsRepo:   earningsRepo,
		coinTxRepo:     coinTxRepo,
		withdrawalRate: withdrawalRate,
		currency:       currency,
	}
}

// GetWallet собирает балансы, итоги получателя и историю операций пользователя.
func (s *walletService) GetWallet(ctx context.Context, userID int64) (*WalletInfo, error) {
	const op = "service.WalletService.GetWallet"
	s.log.Info("getting wallet", slog.String("op", op), slog.Int64("userID", userID))

	acc, err := s.accountRepo.GetAccountByID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get account", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	earnings, err := s.earningsRepo.GetEarningsByUserID(ctx, userID)
	if err != nil {
		s.log.Error("failed to get earnings", slog.Any("error", err))
		return nil, fmt.Errorf("%s: failed to get earnings: %w", op, err)
	}

	history := []WalletTxRecord{}
	transactions, err := s.coinTxRepo.GetTransactionsByUserID(ctx, userID)
	if err != nil {
		// история не критична для ответа, продолжаем с пустой
		s.log.Error("failed to get coin transactions", slog.Any("error", err))
	} else {
		for _, tx := range transactions {
			history = append(history, WalletTxRecord{
				Type:        tx.Type,
				Coins:       tx.Coins,
				Amount:      tx.Amount,
				Description: tx.Description,
				CreatedAt:   tx.CreatedAt,
			})
		}
	}

	return &WalletInfo{
		UserID:      acc.ID,
		DisplayName: acc.DisplayName,
		UCoins:      acc.UCoins,
		CCoins:      acc.CCoins,
		Earnings: EarningsInfo{
			TotalCCoins:        earnings.TotalCCoins,
			TotalGiftsReceived: earnings.TotalGiftsReceived,
		},
		History: history,
	}, nil
}

func (s *walletService) QuoteWithdrawal(cCoins int64) (*WithdrawalQuote, error) {
	if cCoins < 0 {
		return nil, fmt.Errorf("cCoins must not be negative: %w", ErrInvalidArgument)
	}
	return &WithdrawalQuote{
		CCoins:           cCoins,
		WithdrawalAmount: s.withdrawalRate.Mul(decimal.NewFromInt(cCoins)),
		Currency:         s.currency,
	}, nil
}
