package main

import (
	"context"

	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/linemk/coin-ledger/internal/app"
	"github.com/linemk/coin-ledger/internal/app/handlers"
	"github.com/linemk/coin-ledger/internal/config"
	"github.com/linemk/coin-ledger/internal/lib/logger"
	"github.com/linemk/coin-ledger/internal/lib/logger/handlers/urllog"
	"github.com/linemk/coin-ledger/internal/security/jwtmiddleware"
	"github.com/linemk/coin-ledger/internal/service"
	"github.com/linemk/coin-ledger/internal/storage"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func main() {
	// загрузка конфигурации
	cfg := config.MustLoad()

	// инициализация логгера, зависит от настройки окружения
	log := logger.SetupLogger(cfg.Env)
	log.Info("starting app", slog.String("env", cfg.Env))

	// денежные константы парсим на старте: кривой конфиг — не поднимаемся
	exchangeRate, err := decimal.NewFromString(cfg.Business.ExchangeRate)
	if err != nil {
		log.Error("invalid exchange rate", slog.String("value", cfg.Business.ExchangeRate))
		panic(errors.Wrap(err, "invalid exchange_rate in config"))
	}
	withdrawalRate, err := decimal.NewFromString(cfg.Business.WithdrawalRate)
	if err != nil {
		log.Error("invalid withdrawal rate", slog.String("value", cfg.Business.WithdrawalRate))
		panic(errors.Wrap(err, "invalid withdrawal_rate in config"))
	}

	// загружаем объект приложения, конфигом и подключением к БД
	application, err := app.NewApp(log, cfg)
	if err != nil {
		log.Error("failed to initialize app", slog.Any("error", err))
		panic(errors.Wrap(err, "failed to initialize app"))
	}
	defer application.DB.Close()

	router := chi.NewRouter()
	// настройка middleware
	router.Use(middleware.RequestID)
	router.Use(urllog.CustomLoggerMiddleware(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.URLFormat)

	// реализация слоев по работе с БД по каждому направлению
	accountRepo := storage.NewAccountRepository(application.DB)
	orderRepo := storage.NewOrderRepository(application.DB)
	paymentRepo := storage.NewPaymentRepository(application.DB)
	giftRepo := storage.NewGiftRepository(application.DB)
	earningsRepo := storage.NewEarningsRepository(application.DB)
	walletRepo := storage.NewWalletRepository(application.DB)
	coinTxRepo := storage.NewCoinTransactionRepository(application.DB)

	authService := service.NewAuthService(log, accountRepo, time.Duration(cfg.JWT.TokenTTL)*time.Minute)
	giftService := service.NewGiftService(log, application.DB, accountRepo, giftRepo, earningsRepo, coinTxRepo,
		exchangeRate, cfg.Business.TxMaxAttempts)
	settlementService := service.NewSettlementService(log, application.DB, accountRepo, orderRepo, paymentRepo,
		walletRepo, coinTxRepo, []byte(cfg.Payment.SecretKey), cfg.Payment.Method, cfg.Business.TxMaxAttempts)
	orderService := service.NewOrderService(log, accountRepo, orderRepo)
	walletService := service.NewWalletService(log, accountRepo, earningsRepo, coinTxRepo, withdrawalRate, cfg.Business.Currency)

	// эндпоинт для аутентификации
	router.Post("/api/auth", handlers.AuthHandler(log, authService))

	// вебхук провайдера: без аутентификации, подлинность проверяется подписью
	router.Post("/ipn/payprime", handlers.PaymentWebhookHandler(log, settlementService))

	router.Group(func(r chi.Router) {
		jwtMW := jwtmiddleware.NewJWTMiddleware()
		r.Use(jwtMW)
		// эндпоинт для отправки подарка хосту
		r.Post("/api/gift/send", handlers.SendGiftHandler(log, giftService))
		// эндпоинт для создания заказа на покупку монет
		r.Post("/api/order/create", handlers.CreateOrderHandler(log, orderService))
		// эндпоинт для состояния кошелька
		r.Get("/api/wallet", handlers.WalletHandler(log, walletService))
		// эндпоинт для котировки вывода заработанных монет
		r.Post("/api/withdrawal/quote", handlers.WithdrawalQuoteHandler(log, walletService))
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("starting server", slog.String("address", cfg.HTTPServer.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.Any("error", err))
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	stopSign := <-stop
	log.Info("received shutdown signal", slog.String("signal", stopSign.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server shutdown failed", slog.Any("error", err))
	}
	log.Info("server gracefully stopped")
}
