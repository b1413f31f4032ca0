package domain

import "errors"

// Ошибки уровня предметной области. Репозитории и сервисы возвращают их
// (возможно, обернутыми через %w), хендлеры отображают в HTTP-статусы.
var (
	ErrFileNotFound      = errors.New("file not found")
	ErrFileAlreadyExists = errors.New("file already exists")
	ErrUserNotFound      = errors.New("user not found")
	ErrBadCredentials    = errors.New("bad credentials")
)
