package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/notify"
	"github.com/cowritehq/cowrite/internal/identity/store"
	"github.com/cowritehq/cowrite/pkg/cryptox"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

// ErrResetTokenInvalid is returned for unknown, already-consumed, and
// expired reset tokens alike. Callers cannot distinguish the three cases.
var ErrResetTokenInvalid = errors.New("invalid or expired reset token")

// DefaultResetTokenTTL is the validity window for a reset token, measured
// from the moment it was issued.
const DefaultResetTokenTTL = 2 * time.Hour

// PasswordResetService implements the forgot-password flow: a single live
// reset token per user, stored only as a SHA-256 fingerprint alongside its
// issuance time. Expiry is derived lazily from the stored timestamp; an
// expired token is cleared the first time anything reads it.
type PasswordResetService struct {
	Store  store.Store
	Mailer notify.Mailer
	TTL    time.Duration // zero means DefaultResetTokenTTL
}

func (s *PasswordResetService) ttl() time.Duration {
	if s.TTL > 0 {
		return s.TTL
	}
	return DefaultResetTokenTTL
}

// RequestReset issues a reset token for the account with the given email,
// if one exists. It succeeds either way: the caller learns nothing about
// whether the address has an account.
func (s *PasswordResetService) RequestReset(ctx context.Context, email string) error {
	log := slogx.FromContext(ctx)

	email = domain.NormalizeEmail(email)

	// 1. Resolve the account. An unknown address is a silent no-op.
	user, err := s.Store.Users().GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			log.Info("reset requested for unknown email")
			return nil
		}
		log.Error("failed to fetch user for reset", slog.Any("error", err))
		return err
	}

	// 2. Generate the raw token and fingerprint it for storage.
	token, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		log.Error("failed to generate reset token", slog.Any("error", err))
		return err
	}
	fingerprint := cryptox.FingerprintToken(token)

	// 3. Store fingerprint + issuance time as a pair, replacing any prior
	// token. At most one reset token is live per user.
	now := time.Now().UTC()
	if err := s.Store.Users().SetResetToken(ctx, user.ID, fingerprint, now); err != nil {
		log.Error("failed to store reset token", slog.Any("error", err))
		return err
	}

	// 4. Hand the raw token to the mailer. It is never persisted.
	if err := s.Mailer.PasswordReset(ctx, user.Email, token); err != nil {
		log.Error("failed to send reset mail", slog.Any("error", err))
		return err
	}

	log.Info("reset token issued", slog.String("user_id", user.ID))
	return nil
}

// ValidateToken resolves a raw reset token to its user without consuming
// it. Expired tokens are cleared on read, so a later retry of the same link
// behaves identically to a token that never existed.
func (s *PasswordResetService) ValidateToken(ctx context.Context, token string) (domain.User, error) {
	return s.resolveToken(ctx, token)
}

// ResetPassword consumes a reset token and sets a new password. The token
// check, password update, and token clear happen in one transaction so the
// token is single-use even under concurrent submissions.
func (s *PasswordResetService) ResetPassword(ctx context.Context, token, newPassword string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	// 1. Enforce the password policy before touching the database.
	if err := domain.ValidatePassword(newPassword); err != nil {
		return domain.User{}, err
	}

	// 2. Resolve the token outside the transaction for the common failure
	// paths (unknown or expired).
	user, err := s.resolveToken(ctx, token)
	if err != nil {
		return domain.User{}, err
	}

	newHash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		log.Error("failed to hash new password", slog.Any("error", err))
		return domain.User{}, err
	}

	// 3. Re-check and consume inside a transaction. If two submissions
	// race, the second finds the token already cleared.
	fingerprint := cryptox.FingerprintToken(token)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		current, err := tx.Users().GetUserByResetTokenHash(ctx, fingerprint)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrResetTokenInvalid
			}
			return err
		}

		if err := tx.Users().UpdatePasswordHash(ctx, current.ID, newHash); err != nil {
			return err
		}
		return tx.Users().ClearResetToken(ctx, current.ID)
	})
	if err != nil {
		if !errors.Is(err, ErrResetTokenInvalid) {
			log.Error("failed to reset password", slog.Any("error", err))
		}
		return domain.User{}, err
	}

	log.Info("password reset", slog.String("user_id", user.ID))
	return user, nil
}

// resolveToken maps a raw token to the holding user, clearing the stored
// pair when the window has lapsed.
func (s *PasswordResetService) resolveToken(ctx context.Context, token string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	if token == "" {
		return domain.User{}, ErrResetTokenInvalid
	}

	fingerprint := cryptox.FingerprintToken(token)

	user, err := s.Store.Users().GetUserByResetTokenHash(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.User{}, ErrResetTokenInvalid
		}
		log.Error("failed to resolve reset token", slog.Any("error", err))
		return domain.User{}, err
	}

	if user.ResetSentAt == nil || time.Since(*user.ResetSentAt) > s.ttl() {
		// Lazy expiry: clear the stale pair so subsequent reads see no
		// token at all.
		if err := s.Store.Users().ClearResetToken(ctx, user.ID); err != nil {
			log.Error("failed to clear expired reset token", slog.Any("error", err))
			return domain.User{}, err
		}
		return domain.User{}, ErrResetTokenInvalid
	}

	return user, nil
}
