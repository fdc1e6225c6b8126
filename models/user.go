package models

import "time"

// User is an account in the auth database.
type User struct {
	ID           int64     `json:"id" db:"Id"`
	Email        string    `json:"email" db:"Email"`
	PasswordHash string    `json:"-" db:"PasswordHash"`
	CreatedAt    time.Time `json:"createdAt" db:"CreatedAt"`
}
