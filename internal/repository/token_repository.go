package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cloudvault/internal/domain"
)

// TokenRepository хранит реестр выданных токенов. Первичный ключ —
// сама строка токена.
type TokenRepository struct {
	db *sqlx.DB
}

func NewTokenRepository(db *sqlx.DB) *TokenRepository {
	return &TokenRepository{db: db}
}

func (r *TokenRepository) Save(ctx context.Context, token *domain.RegisteredToken) error {
	query := `
        INSERT INTO tokens (token, login, issued_at, expires_at)
        VALUES ($1, $2, $3, $4)`

	_, err := r.db.ExecContext(ctx, query, token.Token, token.Login, token.IssuedAt, token.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}

	return nil
}

func (r *TokenRepository) Exists(ctx context.Context, tokenValue string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM tokens WHERE token = $1)`

	if err := r.db.GetContext(ctx, &exists, query, tokenValue); err != nil {
		return false, fmt.Errorf("failed to check token: %w", err)
	}

	return exists, nil
}

// DeleteByLoginAndToken удаляет строку с совпадающей парой login+token.
// Отсутствие совпадения не ошибка.
func (r *TokenRepository) DeleteByLoginAndToken(ctx context.Context, login, tokenValue string) error {
	query := `DELETE FROM tokens WHERE login = $1 AND token = $2`

	if _, err := r.db.ExecContext(ctx, query, login, tokenValue); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

// DeleteExpired удаляет токены с истекшим сроком действия. Вызывается
// периодической чисткой из main.
func (r *TokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE expires_at < CURRENT_TIMESTAMP`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired tokens: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected, nil
}
