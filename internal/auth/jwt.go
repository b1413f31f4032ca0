package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"cloudvault/internal/domain"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// Claims — утверждения токена: стандартные плюс scope,
// собранный из authorities пользователя через пробел.
type Claims struct {
	jwt.RegisteredClaims
	Scope string `json:"scope"`
}

// Token — выданный токен вместе с временными границами,
// под которыми он был подписан.
type Token struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// JWTCodec подписывает и проверяет токены. Проверка чисто
// криптографическая, о реестре выданных токенов кодек не знает.
type JWTCodec struct {
	secret   []byte
	validity time.Duration
}

func NewJWTCodec(secret []byte, validity time.Duration) (*JWTCodec, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("jwt secret is required")
	}
	if validity <= 0 {
		return nil, fmt.Errorf("validity duration must be positive")
	}
	return &JWTCodec{secret: secret, validity: validity}, nil
}

func (c *JWTCodec) Issue(user *domain.User) (*Token, error) {
	issuedAt := time.Now()
	expiresAt := issuedAt.Add(c.validity)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Scope: strings.Join(user.Authorities, " "),
	}

	value, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Token{
		Value:     value,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (c *JWTCodec) Verify(tokenValue string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenValue, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %v", ErrTokenExpired, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	if !token.Valid {
		return nil, ErrTokenInvalid
	}

	return claims, nil
}
