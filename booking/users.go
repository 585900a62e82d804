/*
users.go - Account provisioning and the points ledger entry

Signup creates the ledger entry with a configurable default balance. That
initialization and the booking transaction are the only writers of the points
field; nothing else is permitted to touch it, which is what keeps the
transaction engine free of lost-update races.
*/
package booking

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/skillswap/booking-engine/auth"
)

// Users provisions accounts and answers balance reads.
type Users struct {
	store Store

	// DefaultPoints is the balance granted at signup. The system this models
	// starts accounts at zero: points are earned by teaching.
	DefaultPoints int64

	now func() time.Time
}

// NewUsers creates the user service.
func NewUsers(store Store, defaultPoints int64) *Users {
	return &Users{store: store, DefaultPoints: defaultPoints, now: time.Now}
}

// Signup provisions a new account with the default points balance.
func (u *Users) Signup(ctx context.Context, email, name, password string) (*User, error) {
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	existing, err := u.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := User{
		ID:           UserID(uuid.NewString()),
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Points:       u.DefaultPoints,
		CreatedAt:    u.now().UTC(),
	}
	if err := u.store.SaveUser(ctx, user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Login verifies credentials and returns the account.
func (u *Users) Login(ctx context.Context, email, password string) (*User, error) {
	user, err := u.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// Get returns an account by id, or ErrUserNotFound.
func (u *Users) Get(ctx context.Context, id UserID) (*User, error) {
	user, err := u.store.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// Balance returns the current points balance for a user.
func (u *Users) Balance(ctx context.Context, id UserID) (int64, error) {
	user, err := u.Get(ctx, id)
	if err != nil {
		return 0, err
	}
	return user.Points, nil
}
