package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/linemk/coin-ledger/internal/app/handlers"
	"github.com/linemk/coin-ledger/internal/domain/models"
	"github.com/linemk/coin-ledger/internal/security/jwtmiddleware"
	"github.com/linemk/coin-ledger/internal/service"
	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

// fakeAuthService — фиктивная реализация для тестирования.
type fakeAuthService struct {
	token string
	err   error
}

func (f *fakeAuthService) Login(ctx context.Context, username, password string) (string, error) {
	return f.token, f.err
}

type fakeGiftService struct {
	result *service.GiftResult
	err    error
}

func (f *fakeGiftService) SendGift(ctx context.Context, senderID, receiverID int64, giftType string, uCoinCost int64) (*service.GiftResult, error) {
	return f.result, f.err
}

// fakeSettlementService запоминает разобранный запрос, чтобы проверить парсинг тела.
type fakeSettlementService struct {
	result *service.SettlementResult
	err    error
	gotReq *service.SettlementRequest
}

func (f *fakeSettlementService) Settle(ctx context.Context, req *service.SettlementRequest) (*service.SettlementResult, error) {
	f.gotReq = req
	return f.result, f.err
}

type fakeOrderService struct {
	order *models.Order
	err   error
}

func (f *fakeOrderService) CreateOrder(ctx context.Context, req *service.CreateOrderRequest) (*models.Order, error) {
	return f.order, f.err
}

type fakeWalletService struct {
	info  *service.WalletInfo
	quote *service.WithdrawalQuote
	err   error
}

func (f *fakeWalletService) GetWallet(ctx context.Context, userID int64) (*service.WalletInfo, error) {
	return f.info, f.err
}

func (f *fakeWalletService) QuoteWithdrawal(cCoins int64) (*service.WithdrawalQuote, error) {
	return f.quote, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

// authed добавляет userID аутентифицированного пользователя в контекст запроса.
func authed(req *http.Request, userID int64) *http.Request {
	ctx := context.WithValue(req.Context(), jwtmiddleware.UserIDKey, userID)
	return req.WithContext(ctx)
}

func TestAuthHandler_Success(t *testing.T) {
	fakeSvc := &fakeAuthService{token: "test-token", err: nil}
	handler := handlers.AuthHandler(testLogger(), fakeSvc)

	reqBody := `{"username": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	var resp struct {
		Token string `json:"token"`
	}
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err, "Response decoding should succeed")
	assert.Equal(t, "test-token", resp.Token, "Returned token should match fake token")
}

func TestAuthHandler_InvalidJSON(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{})

	reqBody := `{"username": "test@example.com", "password":`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for invalid JSON")
}

func TestAuthHandler_ValidationError(t *testing.T) {
	handler := handlers.AuthHandler(testLogger(), &fakeAuthService{})

	reqBody := `{"username": "test@example.com", "password": "short"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for validation error")
}

func TestAuthHandler_LoginError(t *testing.T) {
	fakeSvc := &fakeAuthService{err: errors.New("invalid credentials")}
	handler := handlers.AuthHandler(testLogger(), fakeSvc)

	reqBody := `{"username": "test@example.com", "password": "password123"}`
	req := httptest.NewRequest("POST", "/api/auth", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 for failed login")
}

func TestSendGiftHandler_Success(t *testing.T) {
	fakeSvc := &fakeGiftService{result: &service.GiftResult{
		UCoinsSpent:      10,
		CCoinsEarned:     50,
		NewSenderBalance: 90,
	}}
	handler := handlers.SendGiftHandler(testLogger(), fakeSvc)

	reqBody := `{"receiverId": "2", "giftType": "rose", "uCoinCost": 10}`
	req := authed(httptest.NewRequest("POST", "/api/gift/send", bytes.NewBufferString(reqBody)), 1)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	var resp handlers.SendGiftResponse
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(10), resp.UCoinsSpent)
	assert.Equal(t, int64(50), resp.CCoinsEarned)
	assert.Equal(t, int64(90), resp.NewSenderBalance)
}

func TestSendGiftHandler_Unauthorized(t *testing.T) {
	handler := handlers.SendGiftHandler(testLogger(), &fakeGiftService{})

	// без userID в контексте
	reqBody := `{"receiverId": "2", "giftType": "rose", "uCoinCost": 10}`
	req := httptest.NewRequest("POST", "/api/gift/send", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 without auth context")
}

func TestSendGiftHandler_InvalidReceiverID(t *testing.T) {
	handler := handlers.SendGiftHandler(testLogger(), &fakeGiftService{})

	reqBody := `{"receiverId": "not-a-number", "giftType": "rose", "uCoinCost": 10}`
	req := authed(httptest.NewRequest("POST", "/api/gift/send", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for non-numeric receiver id")
}

func TestSendGiftHandler_InsufficientFunds(t *testing.T) {
	fakeSvc := &fakeGiftService{err: service.ErrInsufficientFunds}
	handler := handlers.SendGiftHandler(testLogger(), fakeSvc)

	reqBody := `{"receiverId": "2", "giftType": "rose", "uCoinCost": 10}`
	req := authed(httptest.NewRequest("POST", "/api/gift/send", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for insufficient funds")
}

func TestSendGiftHandler_ReceiverNotFound(t *testing.T) {
	fakeSvc := &fakeGiftService{err: storage.ErrAccountNotFound}
	handler := handlers.SendGiftHandler(testLogger(), fakeSvc)

	reqBody := `{"receiverId": "99", "giftType": "rose", "uCoinCost": 10}`
	req := authed(httptest.NewRequest("POST", "/api/gift/send", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code, "Expected status 404 for unknown receiver")
}

func TestPaymentWebhookHandler_JSONBody(t *testing.T) {
	amount := decimal.RequireFromString("100")
	fakeSvc := &fakeSettlementService{result: &service.SettlementResult{
		Success: true,
		Message: "Payment verified and coins added successfully",
		Coins:   500,
		Amount:  &amount,
	}}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	// data — вложенный JSON-объект
	reqBody := `{"status": "success", "identifier": "ORD123", "signature": "ABC123",
		"data": {"amount": "100", "payment_transaction_id": "PAY789"}}`
	req := httptest.NewRequest("POST", "/ipn/payprime", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	// хендлер должен передать сервису разобранные поля как есть
	assert.NotNil(t, fakeSvc.gotReq)
	assert.Equal(t, "success", fakeSvc.gotReq.Status)
	assert.Equal(t, "ORD123", fakeSvc.gotReq.Identifier)
	assert.Equal(t, "ABC123", fakeSvc.gotReq.Signature)
	assert.Equal(t, "100", fakeSvc.gotReq.Payload.Amount)
	assert.Equal(t, "PAY789", fakeSvc.gotReq.Payload.PaymentTransactionID)

	var resp map[string]any
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, float64(500), resp["coins"])
}

func TestPaymentWebhookHandler_FormBody(t *testing.T) {
	fakeSvc := &fakeSettlementService{result: &service.SettlementResult{Success: true, Coins: 500}}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	// форма: data — это JSON-строка
	form := url.Values{}
	form.Set("status", "success")
	form.Set("identifier", "ORD123")
	form.Set("signature", "ABC123")
	form.Set("data", `{"amount": "100", "transaction_id": "TX42"}`)
	req := httptest.NewRequest("POST", "/ipn/payprime", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")
	assert.Equal(t, "100", fakeSvc.gotReq.Payload.Amount)
	assert.Equal(t, "TX42", fakeSvc.gotReq.Payload.TransactionID)
}

func TestPaymentWebhookHandler_DataAsJSONString(t *testing.T) {
	fakeSvc := &fakeSettlementService{result: &service.SettlementResult{Success: true}}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	// data — JSON-строка с объектом внутри, числовая сумма сохраняет исходную запись
	reqBody := `{"status": "success", "identifier": "ORD123", "signature": "ABC123",
		"data": "{\"amount\": 100.50, \"payment_trx\": \"TRX7\"}"}`
	req := httptest.NewRequest("POST", "/ipn/payprime", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "100.50", fakeSvc.gotReq.Payload.Amount, "Numeric amount should keep its original text form")
	assert.Equal(t, "TRX7", fakeSvc.gotReq.Payload.PaymentTrx)
}

func TestPaymentWebhookHandler_MissingFields(t *testing.T) {
	fakeSvc := &fakeSettlementService{}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	reqBody := `{"status": "success", "identifier": "ORD123"}`
	req := httptest.NewRequest("POST", "/ipn/payprime", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for missing fields")
	assert.Nil(t, fakeSvc.gotReq, "Service should not be called for an incomplete request")
}

func TestPaymentWebhookHandler_MissingAmount(t *testing.T) {
	fakeSvc := &fakeSettlementService{}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	reqBody := `{"status": "success", "identifier": "ORD123", "signature": "ABC123",
		"data": {"payment_transaction_id": "PAY789"}}`
	req := httptest.NewRequest("POST", "/ipn/payprime", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 when amount is missing")
	assert.Nil(t, fakeSvc.gotReq)
}

func TestPaymentWebhookHandler_InvalidSignature(t *testing.T) {
	fakeSvc := &fakeSettlementService{err: service.ErrInvalidSignature}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	reqBody := `{"status": "success", "identifier": "ORD123", "signature": "WRONG",
		"data": {"amount": "100"}}`
	req := httptest.NewRequest("POST", "/ipn/payprime", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for invalid signature")
}

func TestPaymentWebhookHandler_OrderNotFound(t *testing.T) {
	fakeSvc := &fakeSettlementService{err: storage.ErrOrderNotFound}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	reqBody := `{"status": "success", "identifier": "UNKNOWN", "signature": "ABC123",
		"data": {"amount": "100"}}`
	req := httptest.NewRequest("POST", "/ipn/payprime", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusNotFound, rr.Code, "Expected status 404 for unknown order")
}

func TestPaymentWebhookHandler_FailedPaymentIsStill200(t *testing.T) {
	// легитимный отказ оплаты — не ошибка: провайдер не должен повторять доставку
	fakeSvc := &fakeSettlementService{result: &service.SettlementResult{
		Success: false,
		Message: "payment status: failed",
	}}
	handler := handlers.PaymentWebhookHandler(testLogger(), fakeSvc)

	reqBody := `{"status": "failed", "identifier": "ORD123", "signature": "ABC123",
		"data": {"amount": "100"}}`
	req := httptest.NewRequest("POST", "/ipn/payprime", bytes.NewBufferString(reqBody))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 for a legitimate failure")

	var resp map[string]any
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, false, resp["success"])
}

func TestCreateOrderHandler_Success(t *testing.T) {
	fakeSvc := &fakeOrderService{order: &models.Order{
		ID:         7,
		UserID:     1,
		Coins:      500,
		Amount:     decimal.RequireFromString("100"),
		Identifier: "A1B2C3D4E5F6A7B8C9D0",
		Status:     models.OrderStatusPending,
	}}
	handler := handlers.CreateOrderHandler(testLogger(), fakeSvc)

	reqBody := `{"coins": 500, "amount": "100", "packageId": "pack_500"}`
	req := authed(httptest.NewRequest("POST", "/api/order/create", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	var resp handlers.CreateOrderResponse
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, int64(7), resp.OrderID)
	assert.Equal(t, "A1B2C3D4E5F6A7B8C9D0", resp.Identifier)
	assert.Equal(t, models.OrderStatusPending, resp.Status)
}

func TestCreateOrderHandler_InvalidAmount(t *testing.T) {
	handler := handlers.CreateOrderHandler(testLogger(), &fakeOrderService{})

	reqBody := `{"coins": 500, "amount": "not-a-number", "packageId": "pack_500"}`
	req := authed(httptest.NewRequest("POST", "/api/order/create", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for unparseable amount")
}

func TestCreateOrderHandler_Unauthorized(t *testing.T) {
	handler := handlers.CreateOrderHandler(testLogger(), &fakeOrderService{})

	reqBody := `{"coins": 500, "amount": "100", "packageId": "pack_500"}`
	req := httptest.NewRequest("POST", "/api/order/create", bytes.NewBufferString(reqBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 without auth context")
}

func TestWalletHandler_Success(t *testing.T) {
	fakeSvc := &fakeWalletService{info: &service.WalletInfo{
		UserID:      1,
		DisplayName: "host",
		UCoins:      40,
		CCoins:      150,
	}}
	handler := handlers.WalletHandler(testLogger(), fakeSvc)

	req := authed(httptest.NewRequest("GET", "/api/wallet", nil), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	var resp service.WalletInfo
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, int64(40), resp.UCoins)
	assert.Equal(t, int64(150), resp.CCoins)
}

func TestWalletHandler_Unauthorized(t *testing.T) {
	handler := handlers.WalletHandler(testLogger(), &fakeWalletService{})

	req := httptest.NewRequest("GET", "/api/wallet", nil)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnauthorized, rr.Code, "Expected status 401 without auth context")
}

func TestWithdrawalQuoteHandler_Success(t *testing.T) {
	fakeSvc := &fakeWalletService{quote: &service.WithdrawalQuote{
		CCoins:           100,
		WithdrawalAmount: decimal.RequireFromString("20"),
		Currency:         "INR",
	}}
	handler := handlers.WithdrawalQuoteHandler(testLogger(), fakeSvc)

	reqBody := `{"cCoins": 100}`
	req := authed(httptest.NewRequest("POST", "/api/withdrawal/quote", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code, "Expected status 200 OK")

	var resp map[string]any
	err := json.NewDecoder(rr.Body).Decode(&resp)
	assert.NoError(t, err)
	assert.Equal(t, "INR", resp["currency"])
	assert.Equal(t, "20", resp["withdrawalAmount"], "Quote should be serialized as a decimal string")
}

func TestWithdrawalQuoteHandler_QuoteError(t *testing.T) {
	fakeSvc := &fakeWalletService{err: service.ErrInvalidArgument}
	handler := handlers.WithdrawalQuoteHandler(testLogger(), fakeSvc)

	reqBody := `{"cCoins": 0}`
	req := authed(httptest.NewRequest("POST", "/api/withdrawal/quote", bytes.NewBufferString(reqBody)), 1)
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code, "Expected status 400 for rejected quote")
}
