package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linemk/coin-ledger/internal/domain/models"
	"github.com/linemk/coin-ledger/internal/security"
	"github.com/linemk/coin-ledger/internal/storage"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	log         *slog.Logger
	accountRepo storage.AccountStorage
	tokenTTL    time.Duration
}

func NewAuthService(log *slog.Logger, accountRepo storage.AccountStorage, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		log:         log,
		accountRepo: accountRepo,
		tokenTTL:    tokenTTL,
	}
}

type AuthServiceInterface interface {
	Login(ctx context.Context, username, password string) (string, error)
}

// Login осуществляет аутентификацию пользователя.
// Если аккаунт не найден, он создаётся с нулевыми балансами (пароль хэшируется
// через bcrypt, который автоматически добавляет соль). Если аккаунт найден,
// введённый пароль сравнивается с сохранённым хэшированным значением.
// После успешной проверки генерируется JWT-токен (секрет берётся из переменной окружения).
func (a *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	const op = "auth.Login"
	logger := a.log.With(
		slog.String("op", op),
		slog.String("username", username),
	)
	logger.Info("checking account")

	acc, err := a.accountRepo.GetAccountByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			logger.Info("account not found, creating new account")
			passHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				logger.Error("failed to hash password", slog.Any("error", err))
				return "", fmt.Errorf("%s: failed to hash password: %w", op, err)
			}
			newAcc := &models.Account{
				Username:    username,
				PassHash:    passHash,
				DisplayName: displayNameFromUsername(username),
				// балансы реальной валюты, начинаем с нуля
				UCoins: 0,
				CCoins: 0,
			}
			acc, err = a.accountRepo.CreateAccount(ctx, newAcc)
			if err != nil {
				logger.Error("failed to create account", slog.Any("error", err))
				return "", fmt.Errorf("%s: failed to create account: %w", op, err)
			}
		} else {
			logger.Error("failed to get account", slog.Any("error", err))
			return "", fmt.Errorf("%s: failed to get account: %w", op, err)
		}
	} else {
		if err := bcrypt.CompareHashAndPassword(acc.PassHash, []byte(password)); err != nil {
			logger.Warn("invalid password")
			return "", fmt.Errorf("%s: invalid credentials: %w", op, err)
		}
	}

	token, err := security.NewToken(ctx, acc, a.tokenTTL)
	if err != nil {
		logger.Error("failed to generate token", slog.Any("error", err))
		return "", fmt.Errorf("%s: failed to generate token: %w", op, err)
	}

	logger.Info("account logged in successfully", slog.Int64("userID", acc.ID))
	return token, nil
}

// displayNameFromUsername выводит отображаемое имя из логина (часть до @).
func displayNameFromUsername(username string) string {
	if idx := strings.Index(username, "@"); idx > 0 {
		return username[:idx]
	}
	return username
}
