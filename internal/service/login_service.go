package service

import (
	"context"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"cloudvault/internal/domain"
)

// LoginService проверяет учетные данные и выдает токены через реестр.
// Внутри причины отказа различаются (неизвестный пользователь, неверный
// пароль, отключенная учетка) — наружу граница отдает одинаково
// размытое сообщение.
type LoginService struct {
	users     UserDirectory
	registrar *TokenRegistrar
}

func NewLoginService(users UserDirectory, registrar *TokenRegistrar) *LoginService {
	return &LoginService{
		users:     users,
		registrar: registrar,
	}
}

func (s *LoginService) Login(ctx context.Context, login, password string) (string, error) {
	user, err := s.users.FindByUsername(ctx, login)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", fmt.Errorf("%w: incorrect password", domain.ErrBadCredentials)
	}

	if !user.Enabled {
		return "", fmt.Errorf("%w: user is not enabled", domain.ErrBadCredentials)
	}

	token, err := s.registrar.Register(ctx, user)
	if err != nil {
		return "", fmt.Errorf("failed to register token for %s: %w", login, err)
	}

	return token, nil
}

func (s *LoginService) Logout(ctx context.Context, login, tokenValue string) error {
	return s.registrar.Revoke(ctx, login, tokenValue)
}
