package domain

import "time"

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Identity es el usuario resuelto a partir de un bearer token.
type Identity struct {
	UserID   string `json:"id"`
	Username string `json:"username"`
}
