package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linemk/coin-ledger/internal/security/jwtmiddleware"
	"github.com/linemk/coin-ledger/internal/service"
	"github.com/linemk/coin-ledger/internal/storage"
)

// SendGiftRequest представляет входной JSON для отправки подарка.
// ReceiverID — строковый идентификатор получателя (числовой id аккаунта).
type SendGiftRequest struct {
	ReceiverID string `json:"receiverId" validate:"required"`
	GiftType   string `json:"giftType" validate:"required"`
	UCoinCost  int64  `json:"uCoinCost" validate:"required,gt=0"`
}

// SendGiftResponse представляет ответ при успешном переводе подарка.
type SendGiftResponse struct {
	Success          bool  `json:"success"`
	UCoinsSpent      int64 `json:"uCoinsSpent"`
	CCoinsEarned     int64 `json:"cCoinsEarned"`
	NewSenderBalance int64 `json:"newSenderBalance"`
}

// SendGiftHandler обрабатывает запрос POST /api/gift/send.
// Отправитель берётся из аутентифицированного контекста, не из тела запроса.
func SendGiftHandler(log *slog.Logger, giftService service.GiftService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.SendGiftHandler"
		logger := log.With(slog.String("op", op))

		senderID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req SendGiftRequest
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

		receiverID, err := strconv.ParseInt(req.ReceiverID, 10, 64)
		if err != nil {
			logger.Error("invalid receiver id", slog.String("receiverId", req.ReceiverID))
			errorJSON(w, http.StatusBadRequest, "invalid receiver id")
			return
		}

		result, err := giftService.SendGift(r.Context(), senderID, receiverID, req.GiftType, req.UCoinCost)
		if err != nil {
			logger.Error("failed to send gift", slog.Any("error", err))
			switch {
			case errors.Is(err, service.ErrInsufficientFunds):
				errorJSON(w, http.StatusBadRequest, "insufficient funds")
			case errors.Is(err, service.ErrSelfGift):
				errorJSON(w, http.StatusBadRequest, "cannot send gift to yourself")
			case errors.Is(err, service.ErrInvalidArgument):
				errorJSON(w, http.StatusBadRequest, "invalid request")
			case errors.Is(err, storage.ErrAccountNotFound):
				errorJSON(w, http.StatusNotFound, "account not found")
			default:
				errorJSON(w, http.StatusInternalServerError, "internal server error")
			}
			return
		}

		writeJSON(w, http.StatusOK, SendGiftResponse{
			Success:          true,
			UCoinsSpent:      result.UCoinsSpent,
			CCoinsEarned:     result.CCoinsEarned,
			NewSenderBalance: result.NewSenderBalance,
		})
	}
}
