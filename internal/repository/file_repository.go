package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cloudvault/internal/domain"
)

// FileRepository — каталог версий файлов. Одна строка на версию,
// живая версия отличается отсутствием deleted_at. Инвариант "не более
// одной живой записи на (владелец, имя)" держит частичный уникальный
// индекс в базе, а не код.
type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

// FindLive возвращает живую запись для имени файла или nil, если ее нет.
func (r *FileRepository) FindLive(ctx context.Context, owner, filename string) (*domain.FileInfo, error) {
	var info domain.FileInfo
	query := `
        SELECT f.id, f.owner_id, f.filename, f.size_bytes, f.hash, f.content_uid, f.created_at, f.deleted_at
        FROM files_info f
        JOIN users u ON u.id = f.owner_id
        WHERE u.username = $1 AND f.filename = $2 AND f.deleted_at IS NULL
        LIMIT 1`

	err := r.db.GetContext(ctx, &info, query, owner, filename)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find file: %w", err)
	}

	return &info, nil
}

func (r *FileRepository) ListLive(ctx context.Context, owner string, limit int) ([]domain.FileInfo, error) {
	var infos []domain.FileInfo
	query := `
        SELECT f.id, f.owner_id, f.filename, f.size_bytes, f.hash, f.content_uid, f.created_at, f.deleted_at
        FROM files_info f
        JOIN users u ON u.id = f.owner_id
        WHERE u.username = $1 AND f.deleted_at IS NULL
        ORDER BY f.created_at, f.id
        LIMIT $2`

	if err := r.db.SelectContext(ctx, &infos, query, owner, limit); err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return infos, nil
}

// ListAll возвращает все записи владельца, включая удаленные.
func (r *FileRepository) ListAll(ctx context.Context, owner string) ([]domain.FileInfo, error) {
	var infos []domain.FileInfo
	query := `
        SELECT f.id, f.owner_id, f.filename, f.size_bytes, f.hash, f.content_uid, f.created_at, f.deleted_at
        FROM files_info f
        JOIN users u ON u.id = f.owner_id
        WHERE u.username = $1
        ORDER BY f.created_at, f.id`

	if err := r.db.SelectContext(ctx, &infos, query, owner); err != nil {
		return nil, fmt.Errorf("failed to list file records: %w", err)
	}

	return infos, nil
}

// MarkDeleted помечает удаленными все живые записи с этим именем и
// возвращает число затронутых строк. Пустое множество не ошибка.
func (r *FileRepository) MarkDeleted(ctx context.Context, owner, filename string) (int64, error) {
	query := `
        UPDATE files_info f
        SET deleted_at = CURRENT_TIMESTAMP
        FROM users u
        WHERE u.id = f.owner_id
          AND u.username = $1
          AND f.filename = $2
          AND f.deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, owner, filename)
	if err != nil {
		return 0, fmt.Errorf("failed to mark file deleted: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return affected, nil
}

// Rename меняет имя живой записи. Переименование — чисто метаданные:
// запись и content_uid остаются теми же. Выполняется в одной транзакции,
// чтобы конкурентные rename/save на том же имени сериализовались.
func (r *FileRepository) Rename(ctx context.Context, owner, oldName, newName string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	findQuery := `
        SELECT f.id
        FROM files_info f
        JOIN users u ON u.id = f.owner_id
        WHERE u.username = $1 AND f.filename = $2 AND f.deleted_at IS NULL
        LIMIT 1
        FOR UPDATE OF f`

	err = tx.GetContext(ctx, &id, findQuery, owner, oldName)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, oldName)
	}
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}

	var occupied bool
	existsQuery := `
        SELECT EXISTS(
            SELECT 1
            FROM files_info f
            JOIN users u ON u.id = f.owner_id
            WHERE u.username = $1 AND f.filename = $2 AND f.deleted_at IS NULL
        )`

	if err := tx.GetContext(ctx, &occupied, existsQuery, owner, newName); err != nil {
		return fmt.Errorf("failed to check target filename: %w", err)
	}
	if occupied {
		return fmt.Errorf("%w: %s", domain.ErrFileAlreadyExists, newName)
	}

	if _, err := tx.ExecContext(ctx, `UPDATE files_info SET filename = $1 WHERE id = $2`, newName, id); err != nil {
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return tx.Commit()
}

func (r *FileRepository) Insert(ctx context.Context, info *domain.FileInfo) error {
	query := `
        INSERT INTO files_info (owner_id, filename, size_bytes, hash, content_uid)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		info.OwnerID,
		info.Filename,
		info.SizeBytes,
		info.Hash,
		info.ContentUID,
	).Scan(&info.ID, &info.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert file record: %w", err)
	}

	return nil
}
