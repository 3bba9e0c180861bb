package models

import (
	"context"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is the model for the 'users' table.
// Nullable columns are pointers so they serialize cleanly.
type User struct {
	ID           string    `json:"_id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	PasswordHash *string   `json:"-" db:"password_hash"`
	Role         string    `json:"role" db:"role"`
	GoogleID     *string   `json:"-" db:"google_id"`
	Picture      *string   `json:"picture,omitempty" db:"picture"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// HasPassword reports whether the account can use the local login path.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

var (
	// ErrUserNotFound is returned by a UserRepository when no row matches.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a unique column (email, username, google id) collides.
	ErrDuplicate = errors.New("duplicate key")
)

// UserRepository is the credential store port.
type UserRepository interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id string) (*User, error)
	UserByEmail(ctx context.Context, email string) (*User, error)
	UserByUsername(ctx context.Context, username string) (*User, error)
	UserByGoogleID(ctx context.Context, googleID string) (*User, error)
	LinkGoogleAccount(ctx context.Context, userID, googleID string, picture *string) error
	UpdateUserRole(ctx context.Context, userID, role string) error
}

// Password Helper (Standard)
type Password struct {
	Plaintext *string
	Hash      string
}

func (p *Password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Hash = string(hash)
	p.Plaintext = &plaintextPassword
	return nil
}

func (p *Password) Matches(plaintextPassword string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(p.Hash), []byte(plaintextPassword))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
