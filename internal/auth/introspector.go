package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNoToken            = errors.New("no authorization token")
	ErrTokenNotRegistered = errors.New("token is not registered")
)

// Principal — аутентифицированный пользователь, восстановленный
// из проверенного токена.
type Principal struct {
	Name   string
	Scopes []string
}

// RegistryChecker отвечает на вопрос, числится ли токен в реестре выданных.
type RegistryChecker interface {
	IsRegistered(ctx context.Context, tokenValue string) (bool, error)
}

// Verifier проверяет подпись и срок действия токена.
type Verifier interface {
	Verify(tokenValue string) (*Claims, error)
}

// Introspector валидирует предъявленный токен по двум независимым
// проверкам: членство в реестре, затем подпись и срок действия.
// Обе проверки обязательны.
type Introspector struct {
	registry RegistryChecker
	verifier Verifier
}

func NewIntrospector(registry RegistryChecker, verifier Verifier) *Introspector {
	return &Introspector{registry: registry, verifier: verifier}
}

func (i *Introspector) Introspect(ctx context.Context, tokenValue string) (*Principal, error) {
	registered, err := i.registry.IsRegistered(ctx, tokenValue)
	if err != nil {
		return nil, fmt.Errorf("failed to check token registration: %w", err)
	}
	if !registered {
		return nil, ErrTokenNotRegistered
	}

	claims, err := i.verifier.Verify(tokenValue)
	if err != nil {
		return nil, err
	}

	var scopes []string
	if claims.Scope != "" {
		scopes = strings.Fields(claims.Scope)
	}

	return &Principal{
		Name:   claims.Subject,
		Scopes: scopes,
	}, nil
}

// TokenFromRequest извлекает токен из настраиваемого заголовка.
// Префикс схемы Bearer, если он есть, отбрасывается.
func TokenFromRequest(r *http.Request, headerName string) (string, error) {
	value := strings.TrimSpace(r.Header.Get(headerName))
	if value == "" {
		return "", ErrNoToken
	}

	if strings.EqualFold(value, "bearer") {
		return "", ErrNoToken
	}
	if len(value) > 7 && strings.EqualFold(value[:7], "bearer ") {
		value = strings.TrimSpace(value[7:])
		if value == "" {
			return "", ErrNoToken
		}
	}

	return value, nil
}

type principalCtxKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalCtxKey{}, p)
}

// PrincipalFromContext возвращает принципала, положенного в контекст
// запросным middleware, или nil для неаутентифицированного запроса.
func PrincipalFromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(principalCtxKey{}).(*Principal)
	return p
}
