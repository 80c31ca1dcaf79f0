package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linemk/coin-ledger/internal/service"
	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/shopspring/decimal"
)

// IPNResponse — ответ платёжному провайдеру. Всегда JSON, без внутренних деталей.
type IPNResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message,omitempty"`
	Coins   int64            `json:"coins,omitempty"`
	Amount  *decimal.Decimal `json:"amount,omitempty"`
}

// PaymentWebhookHandler обрабатывает POST-уведомления провайдера (IPN).
// Тело — form-urlencoded или JSON: status, identifier, signature, data.
// Поле data может быть JSON-объектом или JSON-строкой с объектом внутри.
func PaymentWebhookHandler(log *slog.Logger, settlementService service.SettlementService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.PaymentWebhookHandler"
		logger := log.With(slog.String("op", op))

		req, err := parseIPNRequest(r)
		if err != nil {
			logger.Error("invalid IPN request", slog.Any("error", err))
			writeJSON(w, http.StatusBadRequest, IPNResponse{Success: false, Message: "Missing required fields"})
			return
		}
		logger = logger.With(slog.String("identifier", req.Identifier), slog.String("status", req.Status))
		logger.Info("payment notification received")

		result, err := settlementService.Settle(r.Context(), req)
		if err != nil {
			logger.Error("settlement failed", slog.Any("error", err))
			switch {
			case errors.Is(err, service.ErrSecretNotConfigured):
				writeJSON(w, http.StatusInternalServerError, IPNResponse{Success: false, Message: "Secret key not configured"})
			case errors.Is(err, service.ErrInvalidSignature):
				writeJSON(w, http.StatusBadRequest, IPNResponse{Success: false, Message: "Invalid signature"})
			case errors.Is(err, storage.ErrOrderNotFound):
				writeJSON(w, http.StatusNotFound, IPNResponse{Success: false, Message: "Order not found"})
			case errors.Is(err, storage.ErrAccountNotFound):
				writeJSON(w, http.StatusNotFound, IPNResponse{Success: false, Message: "User not found"})
			default:
				writeJSON(w, http.StatusInternalServerError, IPNResponse{Success: false, Message: "Error processing IPN"})
			}
			return
		}

		// и успех, и легитимный отказ оплаты — это 200: провайдер не должен повторять
		writeJSON(w, http.StatusOK, IPNResponse{
			Success: result.Success,
			Message: result.Message,
			Coins:   result.Coins,
			Amount:  result.Amount,
		})
	}
}

func parseIPNRequest(r *http.Request) (*service.SettlementRequest, error) {
	var status, identifier, sig string
	var payload service.SettlementPayload

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var body struct {
			Status     string          `json:"status"`
			Identifier string          `json:"identifier"`
			Signature  string          `json:"signature"`
			Data       json.RawMessage `json:"data"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return nil, err
		}
		status, identifier, sig = body.Status, body.Identifier, body.Signature
		var err error
		payload, err = parsePayload(body.Data)
		if err != nil {
			return nil, err
		}
	} else {
		if err := r.ParseForm(); err != nil {
			return nil, err
		}
		status = r.PostFormValue("status")
		identifier = r.PostFormValue("identifier")
		sig = r.PostFormValue("signature")
		var err error
		payload, err = parsePayloadString(r.PostFormValue("data"))
		if err != nil {
			return nil, err
		}
	}

	if status == "" || identifier == "" || sig == "" {
		return nil, errors.New("missing required fields")
	}

	return &service.SettlementRequest{
		Status:     status,
		Identifier: identifier,
		Signature:  sig,
		Payload:    payload,
	}, nil
}

// parsePayload разбирает поле data: либо объект, либо JSON-строка с объектом.
func parsePayload(raw json.RawMessage) (service.SettlementPayload, error) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return service.SettlementPayload{}, errors.New("missing data field")
	}
	if trimmed[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil {
			return service.SettlementPayload{}, err
		}
		return parsePayloadString(inner)
	}
	return parsePayloadString(trimmed)
}

// parsePayloadString строго валидирует payload: нечитаемый JSON или отсутствие
// суммы — это ошибка запроса, а не пустой payload по умолчанию.
func parsePayloadString(s string) (service.SettlementPayload, error) {
	if strings.TrimSpace(s) == "" {
		return service.SettlementPayload{}, errors.New("missing data field")
	}

	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return service.SettlementPayload{}, err
	}

	p := service.SettlementPayload{
		Amount:               stringField(fields, "amount"),
		PaymentTransactionID: stringField(fields, "payment_transaction_id"),
		TransactionID:        stringField(fields, "transaction_id"),
		PaymentTrx:           stringField(fields, "payment_trx"),
	}
	if p.Amount == "" {
		return service.SettlementPayload{}, errors.New("missing amount in data")
	}
	return p, nil
}

// stringField достаёт поле как строку; числа возвращаются в исходной
// текстовой записи провайдера (важно для подписи).
func stringField(m map[string]any, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	}
	return ""
}
