package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"stickyboard/models"

	"golang.org/x/crypto/bcrypt"
)

// ErrEmailTaken is returned by CreateUser when the address is already registered.
var ErrEmailTaken = errors.New("email already registered")

// HashPassword generates a bcrypt hash for the password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash.
func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// CreateUser stores a new account. password is the plain text; only its hash is kept.
func (db *DB) CreateUser(ctx context.Context, email, password string) (*models.User, error) {
	hashed, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("CreateUser: failed to hash password: %w", err)
	}

	user := &models.User{Email: email, PasswordHash: hashed, CreatedAt: time.Now().UTC()}
	result, err := db.Auth.NamedExecContext(ctx,
		`INSERT INTO Users (Email, PasswordHash, CreatedAt) VALUES (:Email, :PasswordHash, :CreatedAt)`, user)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("CreateUser: failed to insert user: %w", err)
	}

	user.ID, err = result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("CreateUser: failed to get last insert ID: %w", err)
	}
	return user, nil
}

// GetUserByEmail returns nil, nil when no user has that email.
func (db *DB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	err := db.Auth.GetContext(ctx, user,
		`SELECT Id, Email, PasswordHash, CreatedAt FROM Users WHERE Email = ?`, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetUserByEmail: failed to get user %s: %w", email, err)
	}
	return user, nil
}

// GetUserByID returns nil, nil when the id is unknown.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	user := &models.User{}
	err := db.Auth.GetContext(ctx, user,
		`SELECT Id, Email, PasswordHash, CreatedAt FROM Users WHERE Id = ?`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("GetUserByID: failed to get user %d: %w", id, err)
	}
	return user, nil
}

// EnsureUser creates the account if the email is not registered yet.
func (db *DB) EnsureUser(ctx context.Context, email, password string) (*models.User, bool, error) {
	existing, err := db.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		return existing, false, nil
	}
	user, err := db.CreateUser(ctx, email, password)
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}
