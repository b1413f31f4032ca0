package domain

// User представляет учетную запись пользователя. Записи создаются
// администратором напрямую в базе, сервис их только читает.
type User struct {
	ID           int64    `json:"id" db:"id"`
	Username     string   `json:"username" db:"username"`
	PasswordHash string   `json:"-" db:"password"`
	Enabled      bool     `json:"enabled" db:"enabled"`
	Authorities  []string `json:"authorities,omitempty"`
}
