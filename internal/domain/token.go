package domain

import "time"

// RegisteredToken — строка реестра выданных токенов. Наличие строки
// означает, что токен принимается при интроспекции; подпись и срок
// действия проверяются отдельно.
type RegisteredToken struct {
	Token     string    `json:"token" db:"token"`
	Login     string    `json:"login" db:"login"`
	IssuedAt  time.Time `json:"issued_at" db:"issued_at"`
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
}
