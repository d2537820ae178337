package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/store"
	"github.com/cowritehq/cowrite/pkg/cryptox"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

// ErrInvalidCredentials covers both unknown email and wrong password so the
// login surface can't be used to probe which addresses have accounts.
var ErrInvalidCredentials = errors.New("invalid email or password")

type UserService struct {
	Store store.Store
}

// Authenticate verifies an email/password pair and returns the user.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)

	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("failed to fetch user for login", slog.Any("error", err))
		return domain.User{}, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		if errors.Is(err, cryptox.ErrPasswordMismatch) {
			log.Warn("password verification failed", slog.String("user_id", user.ID))
			return domain.User{}, ErrInvalidCredentials
		}
		log.Error("password verification errored", slog.Any("error", err))
		return domain.User{}, err
	}

	return user, nil
}

// GetUserByID fetches a user record by id.
func (s *UserService) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, id)
}
