package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/coin-ledger/internal/security/jwtmiddleware"
	"github.com/linemk/coin-ledger/internal/service"
	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// CreateOrderRequest представляет входной JSON для создания заказа на покупку монет.
type CreateOrderRequest struct {
	Coins     int64  `json:"coins" validate:"required,gt=0"`
	Amount    string `json:"amount" validate:"required"`
	PackageID string `json:"packageId" validate:"required"`
}

// CreateOrderResponse — созданный заказ; identifier передаётся провайдеру
// и возвращается в IPN.
type CreateOrderResponse struct {
	OrderID    int64           `json:"orderId"`
	Identifier string          `json:"identifier"`
	Coins      int64           `json:"coins"`
	Amount     decimal.Decimal `json:"amount"`
	Status     string          `json:"status"`
}

// CreateOrderHandler обрабатывает запрос POST /api/order/create.
func CreateOrderHandler(log *slog.Logger, orderService service.OrderService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.CreateOrderHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req CreateOrderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("invalid request: decoding error", slog.Any("error", err))
			errorJSON(w, http.StatusBadRequest, "invalid request")
			return
		}
		if err := validate.Struct(req); err != nil {
			logger.Error("invalid request: validation error", slog.Any("error", err))
			errorJSON(w, http.StatusBadRequest, "validation error")
			return
		}

		amount, err := decimal.NewFromString(req.Amount)
		if err != nil || amount.Sign() <= 0 {
			logger.Error("invalid amount", slog.String("amount", req.Amount))
			errorJSON(w, http.StatusBadRequest, "invalid amount")
			return
		}

		order, err := orderService.CreateOrder(r.Context(), &service.CreateOrderRequest{
			UserID:    userID,
			Coins:     req.Coins,
			Amount:    amount,
			PackageID: req.PackageID,
		})
		if err != nil {
			logger.Error("failed to create order", slog.Any("error", err))
			switch {
			case errors.Is(err, service.ErrInvalidArgument):
				errorJSON(w, http.StatusBadRequest, "invalid request")
			case errors.Is(err, storage.ErrAccountNotFound):
				errorJSON(w, http.StatusNotFound, "account not found")
			default:
				errorJSON(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		writeJSON(w, http.StatusOK, CreateOrderResponse{
			OrderID:    order.ID,
			Identifier: order.Identifier,
			Coins:      order.Coins,
			Amount:     order.Amount,
			Status:     order.Status,
		})
	}
}
