package service

import (
	"context"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"github.com/google/uuid"

	"cloudvault/internal/domain"
	"cloudvault/internal/storage"
)

// ErrStorageFailure оборачивает отказ байтового хранилища.
var ErrStorageFailure = errors.New("content storage failure")

// FileCatalog — запросы к каталогу версий файлов, всегда в рамках
// одного владельца.
type FileCatalog interface {
	FindLive(ctx context.Context, owner, filename string) (*domain.FileInfo, error)
	ListLive(ctx context.Context, owner string, limit int) ([]domain.FileInfo, error)
	ListAll(ctx context.Context, owner string) ([]domain.FileInfo, error)
	MarkDeleted(ctx context.Context, owner, filename string) (int64, error)
	Rename(ctx context.Context, owner, oldName, newName string) error
	Insert(ctx context.Context, info *domain.FileInfo) error
}

// UserDirectory — читающий доступ к учетным записям.
type UserDirectory interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindIDByUsername(ctx context.Context, username string) (int64, error)
}

// FileService управляет версиями файлов пользователя: каталог хранит
// метаданные, байтовое хранилище — содержимое. Порядок записи жесткий:
// сначала содержимое, потом каталог, чтобы запись каталога никогда
// не указывала на недописанный объект.
type FileService struct {
	users   UserDirectory
	catalog FileCatalog
	blobs   storage.ContentStorage
}

func NewFileService(users UserDirectory, catalog FileCatalog, blobs storage.ContentStorage) *FileService {
	return &FileService{
		users:   users,
		catalog: catalog,
		blobs:   blobs,
	}
}

// List возвращает живые записи владельца, не больше limit штук.
// Валидация limit — забота границы.
func (s *FileService) List(ctx context.Context, owner string, limit int) ([]domain.FileInfo, error) {
	infos, err := s.catalog.ListLive(ctx, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list files for %s: %w", owner, err)
	}
	return infos, nil
}

// Describe возвращает живую запись или nil, если ее нет. Отсутствие
// файла здесь не ошибка — этим пользуется граница как предпроверкой.
func (s *FileService) Describe(ctx context.Context, owner, filename string) (*domain.FileInfo, error) {
	info, err := s.catalog.FindLive(ctx, owner, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to describe file %s: %w", filename, err)
	}
	return info, nil
}

// Delete помечает живую запись удаленной. Запись остается в каталоге,
// содержимое из хранилища не убирается.
func (s *FileService) Delete(ctx context.Context, owner, filename string) error {
	affected, err := s.catalog.MarkDeleted(ctx, owner, filename)
	if err != nil {
		return fmt.Errorf("failed to delete file %s: %w", filename, err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", domain.ErrFileNotFound, filename)
	}
	return nil
}

// Rename меняет имя живой записи oldName на newName. Если под newName
// уже есть живая запись, возвращает domain.ErrFileAlreadyExists —
// молчаливой перезаписи при переименовании нет.
func (s *FileService) Rename(ctx context.Context, owner, oldName, newName string) error {
	if err := s.catalog.Rename(ctx, owner, oldName, newName); err != nil {
		if errors.Is(err, domain.ErrFileNotFound) || errors.Is(err, domain.ErrFileAlreadyExists) {
			return err
		}
		return fmt.Errorf("failed to rename file %s: %w", oldName, err)
	}
	return nil
}

// Open возвращает поток содержимого живой записи вместе с сохраненным
// хешем. Закрыть поток обязан вызывающий.
func (s *FileService) Open(ctx context.Context, owner, filename string) (*domain.FileContent, error) {
	info, err := s.catalog.FindLive(ctx, owner, filename)
	if err != nil {
		return nil, fmt.Errorf("failed to find file %s: %w", filename, err)
	}
	if info == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrFileNotFound, filename)
	}

	content, err := s.blobs.Get(ctx, info.ContentUID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	return &domain.FileContent{
		Content: content,
		Hash:    info.Hash,
	}, nil
}

// Save — центральный путь записи. Все живые записи под этим именем
// помечаются удаленными, содержимое пишется в хранилище под свежим
// content uid, затем создается новая запись каталога. Поток прогоняется
// через CRC32; если вызывающий не передал хеш, берется вычисленная
// контрольная сумма. Переданный хеш сохраняется как есть, без сверки
// с вычисленным.
func (s *FileService) Save(ctx context.Context, owner, filename, suppliedHash string, r io.Reader) (*domain.FileInfo, error) {
	ownerID, err := s.users.FindIDByUsername(ctx, owner)
	if err != nil {
		return nil, err
	}

	// Первая загрузка неотличима от перезаписи: пустое множество — не ошибка.
	// При отказе хранилища ниже пометки не откатываются, файл остается
	// без живой версии.
	if _, err := s.catalog.MarkDeleted(ctx, owner, filename); err != nil {
		return nil, fmt.Errorf("failed to supersede old versions of %s: %w", filename, err)
	}

	contentUID := uuid.New().String()
	checksum := crc32.NewIEEE()

	written, err := s.blobs.Put(ctx, contentUID, io.TeeReader(r, checksum))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}

	hash := suppliedHash
	if strings.TrimSpace(hash) == "" {
		hash = fmt.Sprintf("%x", checksum.Sum32())
	}

	info := &domain.FileInfo{
		OwnerID:    ownerID,
		Filename:   filename,
		SizeBytes:  written,
		Hash:       hash,
		ContentUID: contentUID,
	}

	if err := s.catalog.Insert(ctx, info); err != nil {
		return nil, fmt.Errorf("failed to save file record %s: %w", filename, err)
	}

	return info, nil
}
