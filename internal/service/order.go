package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/linemk/coin-ledger/internal/domain/models"
	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// OrderService создаёт заказы на покупку UCoins. Заказ ждёт оплату:
// в completed/failed его переводит только обработчик IPN.
type OrderService interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error)
}

type CreateOrderRequest struct {
	UserID    int64
	Coins     int64
	Amount    decimal.Decimal
	PackageID string
}

type orderService struct {
	log         *slog.Logger
	accountRepo storage.AccountStorage
	orderRepo   storage.OrderStorage
}

func NewOrderService(log *slog.Logger, accountRepo storage.AccountStorage, orderRepo storage.OrderStorage) OrderService {
	return &orderService{
		log:         log,
		accountRepo: accountRepo,
		orderRepo:   orderRepo,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*models.Order, error) {
	const op = "service.OrderService.CreateOrder"
	logger := s.log.With(
		slog.String("op", op),
		slog.Int64("userID", req.UserID),
		slog.Int64("coins", req.Coins),
	)
	logger.Info("creating order")

	if req.Coins <= 0 || req.Amount.Sign() <= 0 {
		return nil, fmt.Errorf("%s: coins and amount must be positive: %w", op, ErrInvalidArgument)
	}

	if _, err := s.accountRepo.GetAccountByID(ctx, req.UserID); err != nil {
		logger.Error("failed to get account", slog.Any("error", err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// идентификатор уникален; на маловероятной коллизии пробуем новый
	for attempt := 0; attempt < 3; attempt++ {
		order := &models.Order{
			UserID:     req.UserID,
			Coins:      req.Coins,
			Amount:     req.Amount,
			PackageID:  req.PackageID,
			Identifier: newOrderIdentifier(),
			Status:     models.OrderStatusPending,
		}
		created, err := s.orderRepo.CreateOrder(ctx, order)
		if err != nil {
			if isUniqueViolation(err) {
				logger.Warn("identifier collision, regenerating")
				continue
			}
			logger.Error("failed to create order", slog.Any("error", err))
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		logger.Info("order created",
			slog.Int64("orderID", created.ID),
			slog.String("identifier", created.Identifier))
		return created, nil
	}
	return nil, fmt.Errorf("%s: failed to generate unique identifier", op)
}

// newOrderIdentifier генерирует внешний корреляционный токен: до 20 символов,
// верхний регистр — формат, который провайдер возвращает в IPN как identifier.
func newOrderIdentifier() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return strings.ToUpper(raw[:20])
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
