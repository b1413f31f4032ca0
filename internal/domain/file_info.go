package domain

import (
	"io"
	"time"
)

// FileInfo представляет одну версию файла пользователя. Физическое
// содержимое лежит в хранилище под ключом ContentUID и после записи
// не изменяется: загрузка под тем же именем создает новую запись,
// а старая помечается удаленной через DeletedAt.
type FileInfo struct {
	ID         int64      `json:"id" db:"id"`
	OwnerID    int64      `json:"owner_id" db:"owner_id"`
	Filename   string     `json:"filename" db:"filename"`
	SizeBytes  int64      `json:"size_bytes" db:"size_bytes"`
	Hash       string     `json:"hash" db:"hash"`
	ContentUID string     `json:"content_uid" db:"content_uid"`
	CreatedAt  time.Time  `json:"created_at" db:"created_at"`
	DeletedAt  *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

func (f *FileInfo) IsDeleted() bool {
	return f.DeletedAt != nil
}

// FileContent объединяет поток содержимого файла и его сохраненный хеш.
// Закрыть Content обязан вызывающий.
type FileContent struct {
	Content io.ReadCloser
	Hash    string
}
