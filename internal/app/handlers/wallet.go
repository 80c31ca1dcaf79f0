package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/linemk/coin-ledger/internal/security/jwtmiddleware"
	"github.com/linemk/coin-ledger/internal/service"
	"github.com/linemk/coin-ledger/internal/storage"
)

// WalletHandler обрабатывает запрос GET /api/wallet.
// Возвращает балансы, итоги получателя и историю операций пользователя.
func WalletHandler(log *slog.Logger, walletService service.WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WalletHandler"
		logger := log.With(slog.String("op", op))

		userID, ok := jwtmiddleware.FromContext(r.Context())
		if !ok {
			logger.Error("userID not found in context")
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		info, err := walletService.GetWallet(r.Context(), userID)
		if err != nil {
			logger.Error("failed to get wallet", slog.Any("error", err))
			if errors.Is(err, storage.ErrAccountNotFound) {
				errorJSON(w, http.StatusNotFound, "account not found")
				return
			}
			errorJSON(w, http.StatusInternalServerError, "internal server error")
			return
		}

		writeJSON(w, http.StatusOK, info)
	}
}

// WithdrawalQuoteRequest — запрос денежной котировки для вывода CCoins.
type WithdrawalQuoteRequest struct {
	CCoins int64 `json:"cCoins" validate:"gte=0"`
}

// WithdrawalQuoteHandler обрабатывает запрос POST /api/withdrawal/quote.
// Чистое вычисление, ничего не изменяет.
func WithdrawalQuoteHandler(log *slog.Logger, walletService service.WalletService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.WithdrawalQuoteHandler"
		logger := log.With(slog.String("op", op))

		if _, ok := jwtmiddleware.FromContext(r.Context()); !ok {
			logger.Error("userID not found in context")
			errorJSON(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req WithdrawalQuoteRequest
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

		quote, err := walletService.QuoteWithdrawal(req.CCoins)
		if err != nil {
			logger.Error("failed to quote withdrawal", slog.Any("error", err))
			errorJSON(w, http.StatusBadRequest, "invalid request")
			return
		}

		writeJSON(w, http.StatusOK, quote)
	}
}
