package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound возвращается, когда объекта с таким ключом нет в хранилище.
var ErrNotFound = errors.New("object not found")

// ContentStorage определяет интерфейс для байтового хранилища содержимого
// файлов. Хранилище ничего не знает о пользователях и именах файлов,
// ключом служит непрозрачный content uid. Put затирает существующий
// объект молча; каталог обязан записывать содержимое до фиксации
// метаданных, чтобы запись каталога никогда не ссылалась на
// отсутствующий объект.
type ContentStorage interface {
	Contains(ctx context.Context, uid string) (bool, error)
	Get(ctx context.Context, uid string) (io.ReadCloser, error)
	Put(ctx context.Context, uid string, r io.Reader) (int64, error)
	Remove(ctx context.Context, uid string) error
}
