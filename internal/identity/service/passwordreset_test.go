package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

func TestRequestReset(t *testing.T) {
	ctx := context.Background()

	t.Run("issues a token for an existing account", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}

		user := seedUser(t, st, "writer@example.com", "correct-horse", false)

		require.NoError(t, resets.RequestReset(ctx, "writer@example.com"))

		token := mailer.resetToken(user.Email)
		require.NotEmpty(t, token)

		// Only the fingerprint lands in the database.
		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.ResetTokenHash)
		require.NotNil(t, stored.ResetSentAt)
		require.Equal(t, cryptox.FingerprintToken(token), *stored.ResetTokenHash)
		require.NotContains(t, *stored.ResetTokenHash, token)
	})

	t.Run("unknown email succeeds silently", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}

		require.NoError(t, resets.RequestReset(ctx, "nobody@example.com"))
		require.Empty(t, mailer.resetToken("nobody@example.com"))
	})

	t.Run("a new request replaces the previous token", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}

		seedUser(t, st, "writer@example.com", "correct-horse", false)

		require.NoError(t, resets.RequestReset(ctx, "writer@example.com"))
		first := mailer.resetToken("writer@example.com")

		require.NoError(t, resets.RequestReset(ctx, "writer@example.com"))
		second := mailer.resetToken("writer@example.com")
		require.NotEqual(t, first, second)

		// The first token no longer resolves.
		_, err := resets.ValidateToken(ctx, first)
		require.ErrorIs(t, err, service.ErrResetTokenInvalid)

		_, err = resets.ValidateToken(ctx, second)
		require.NoError(t, err)
	})
}

func TestValidateToken(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves a live token to its user", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}

		user := seedUser(t, st, "writer@example.com", "correct-horse", false)
		require.NoError(t, resets.RequestReset(ctx, user.Email))

		resolved, err := resets.ValidateToken(ctx, mailer.resetToken(user.Email))
		require.NoError(t, err)
		require.Equal(t, user.ID, resolved.ID)
	})

	t.Run("unknown token", func(t *testing.T) {
		st := newTestStore(t)
		resets := &service.PasswordResetService{Store: st, Mailer: newCaptureMailer()}

		_, err := resets.ValidateToken(ctx, "no-such-token")
		require.ErrorIs(t, err, service.ErrResetTokenInvalid)
	})

	t.Run("empty token", func(t *testing.T) {
		st := newTestStore(t)
		resets := &service.PasswordResetService{Store: st, Mailer: newCaptureMailer()}

		_, err := resets.ValidateToken(ctx, "")
		require.ErrorIs(t, err, service.ErrResetTokenInvalid)
	})

	t.Run("expired token is cleared on read", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}

		user := seedUser(t, st, "writer@example.com", "correct-horse", false)
		require.NoError(t, resets.RequestReset(ctx, user.Email))
		token := mailer.resetToken(user.Email)

		// Backdate the issuance past the 2h window.
		stale := time.Now().UTC().Add(-3 * time.Hour)
		require.NoError(t, st.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), stale))

		_, err := resets.ValidateToken(ctx, token)
		require.ErrorIs(t, err, service.ErrResetTokenInvalid)

		// The pair is gone: a later read can't tell the token ever existed.
		stored, err := st.Users().GetUserByID(ctx, user.ID)
		require.NoError(t, err)
		require.Nil(t, stored.ResetTokenHash)
		require.Nil(t, stored.ResetSentAt)
	})
}

func TestResetPassword(t *testing.T) {
	ctx := context.Background()

	t.Run("sets the new password and consumes the token", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}
		users := &service.UserService{Store: st}

		user := seedUser(t, st, "writer@example.com", "correct-horse", false)
		require.NoError(t, resets.RequestReset(ctx, user.Email))
		token := mailer.resetToken(user.Email)

		_, err := resets.ResetPassword(ctx, token, "brand-new-password")
		require.NoError(t, err)

		// Old password no longer works, new one does.
		_, err = users.Authenticate(ctx, user.Email, "correct-horse")
		require.ErrorIs(t, err, service.ErrInvalidCredentials)

		_, err = users.Authenticate(ctx, user.Email, "brand-new-password")
		require.NoError(t, err)

		// Single use: the same token is dead now.
		_, err = resets.ResetPassword(ctx, token, "yet-another-password")
		require.ErrorIs(t, err, service.ErrResetTokenInvalid)
	})

	t.Run("rejects a short password without consuming the token", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}

		user := seedUser(t, st, "writer@example.com", "correct-horse", false)
		require.NoError(t, resets.RequestReset(ctx, user.Email))
		token := mailer.resetToken(user.Email)

		_, err := resets.ResetPassword(ctx, token, "short")
		require.ErrorIs(t, err, domain.ErrPasswordTooShort)

		// The token survives a rejected attempt.
		_, err = resets.ValidateToken(ctx, token)
		require.NoError(t, err)
	})

	t.Run("token can expire between validation and submission", func(t *testing.T) {
		st := newTestStore(t)
		mailer := newCaptureMailer()
		resets := &service.PasswordResetService{Store: st, Mailer: mailer}

		user := seedUser(t, st, "writer@example.com", "correct-horse", false)
		require.NoError(t, resets.RequestReset(ctx, user.Email))
		token := mailer.resetToken(user.Email)

		// The reset form loads fine...
		_, err := resets.ValidateToken(ctx, token)
		require.NoError(t, err)

		// ...then the window lapses before the user submits.
		stale := time.Now().UTC().Add(-3 * time.Hour)
		require.NoError(t, st.Users().SetResetToken(ctx, user.ID, cryptox.FingerprintToken(token), stale))

		_, err = resets.ResetPassword(ctx, token, "brand-new-password")
		require.ErrorIs(t, err, service.ErrResetTokenInvalid)
	})
}
