package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cloudvault/internal/domain"
)

// UserRepository читает учетные записи. Создание пользователей
// не входит в обязанности сервиса, записи только читаются.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, username, password, enabled FROM users WHERE username = $1`

	err := r.db.GetContext(ctx, &user, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	authoritiesQuery := `SELECT authority FROM authorities WHERE user_id = $1 ORDER BY authority`
	if err := r.db.SelectContext(ctx, &user.Authorities, authoritiesQuery, user.ID); err != nil {
		return nil, fmt.Errorf("failed to get user authorities: %w", err)
	}

	return &user, nil
}

func (r *UserRepository) FindIDByUsername(ctx context.Context, username string) (int64, error) {
	var id int64
	query := `SELECT id FROM users WHERE username = $1`

	err := r.db.GetContext(ctx, &id, query, username)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", domain.ErrUserNotFound, username)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get user id: %w", err)
	}

	return id, nil
}
