package service

import (
	"context"
	"fmt"

	"cloudvault/internal/auth"
	"cloudvault/internal/domain"
)

// TokenIssuer производит подписанные токены для пользователя.
type TokenIssuer interface {
	Issue(user *domain.User) (*auth.Token, error)
}

// TokenRegistry — персистентный реестр выданных токенов.
type TokenRegistry interface {
	Save(ctx context.Context, token *domain.RegisteredToken) error
	Exists(ctx context.Context, tokenValue string) (bool, error)
	DeleteByLoginAndToken(ctx context.Context, login, tokenValue string) error
}

// TokenRegistrar выдает токены и ведет их реестр — единственный
// источник истины о том, действителен ли токен сейчас.
type TokenRegistrar struct {
	issuer   TokenIssuer
	registry TokenRegistry
}

func NewTokenRegistrar(issuer TokenIssuer, registry TokenRegistry) *TokenRegistrar {
	return &TokenRegistrar{
		issuer:   issuer,
		registry: registry,
	}
}

// Register выпускает токен и записывает его в реестр. Значение токена
// возвращается только после успешной записи: незаписанный токен никому
// не выдавался, его можно просто выбросить.
func (s *TokenRegistrar) Register(ctx context.Context, user *domain.User) (string, error) {
	token, err := s.issuer.Issue(user)
	if err != nil {
		return "", fmt.Errorf("failed to issue token: %w", err)
	}

	registered := &domain.RegisteredToken{
		Token:     token.Value,
		Login:     user.Username,
		IssuedAt:  token.IssuedAt,
		ExpiresAt: token.ExpiresAt,
	}

	if err := s.registry.Save(ctx, registered); err != nil {
		return "", fmt.Errorf("failed to register token: %w", err)
	}

	return token.Value, nil
}

func (s *TokenRegistrar) IsRegistered(ctx context.Context, tokenValue string) (bool, error) {
	return s.registry.Exists(ctx, tokenValue)
}

// Revoke удаляет токен из реестра. Несовпадение пары login+token —
// молчаливый no-op, чтобы logout не раскрывал существование чужих токенов.
func (s *TokenRegistrar) Revoke(ctx context.Context, login, tokenValue string) error {
	if err := s.registry.DeleteByLoginAndToken(ctx, login, tokenValue); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
