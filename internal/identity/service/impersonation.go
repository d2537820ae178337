package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/store"
	"github.com/cowritehq/cowrite/pkg/cryptox"
	"github.com/cowritehq/cowrite/pkg/idx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

// ErrImpersonationForbidden is returned when the impersonation target is a
// super admin. Support staff never act as other admins.
var ErrImpersonationForbidden = errors.New("cannot impersonate a super admin")

// ImpersonationService lets super admins obtain a session for the user an
// invitation targets, provisioning the account on first use. It is a
// support tool: "log in as the person I just invited and see what they
// see".
//
// The invitation is resolved by id with no status or expiry check: an
// expired or already-accepted invitation still names a target account,
// and support workflows routinely outlive the invitation window.
type ImpersonationService struct {
	Store    store.Store
	Sessions *SessionService
}

// ImpersonationResult carries the target user, a session credential issued
// for them, and whether the account was created by this call.
type ImpersonationResult struct {
	User        domain.User
	Token       string
	UserCreated bool
}

// Impersonate resolves the invitation, finds or provisions the target
// account, and mints a session for it. Only super admins may call this,
// and super-admin accounts can never be the target.
func (s *ImpersonationService) Impersonate(
	ctx context.Context,
	acting domain.User,
	invitationID string,
) (ImpersonationResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Only super admins impersonate.
	if !acting.SuperAdmin {
		return ImpersonationResult{}, ErrNotAuthorized
	}

	// 2. Resolve the invitation. Status and expiry are deliberately not
	// consulted here.
	inv, err := s.Store.Invitations().GetInvitationByID(ctx, invitationID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ImpersonationResult{}, ErrInvitationNotFound
		}
		log.Error("failed to fetch invitation", slog.Any("error", err))
		return ImpersonationResult{}, err
	}

	// 3. Find or provision the target account.
	var result ImpersonationResult
	user, err := s.Store.Users().GetUserByEmail(ctx, inv.Email)
	switch {
	case err == nil:
		result.User = user
	case errors.Is(err, store.ErrNotFound):
		user, err = s.provisionUser(ctx, inv.Email)
		if err != nil {
			return ImpersonationResult{}, err
		}
		result.User = user
		result.UserCreated = true
	default:
		log.Error("failed to fetch impersonation target", slog.Any("error", err))
		return ImpersonationResult{}, err
	}

	// 4. Never hand out sessions for other admins.
	if result.User.SuperAdmin {
		log.Warn("impersonation of super admin rejected",
			slog.String("acting_user_id", acting.ID),
			slog.String("target_user_id", result.User.ID),
		)
		return ImpersonationResult{}, ErrImpersonationForbidden
	}

	// 5. Mint a session for the target.
	token, err := s.Sessions.Issue(result.User)
	if err != nil {
		log.Error("failed to issue impersonation session", slog.Any("error", err))
		return ImpersonationResult{}, err
	}
	result.Token = token

	log.Info("impersonation session issued",
		slog.String("acting_user_id", acting.ID),
		slog.String("target_user_id", result.User.ID),
		slog.Bool("user_created", result.UserCreated),
	)
	return result, nil
}

// provisionUser creates a placeholder account for an invitation email: a
// display name derived from the address and a random password the target
// can replace through the reset flow.
func (s *ImpersonationService) provisionUser(ctx context.Context, email string) (domain.User, error) {
	log := slogx.FromContext(ctx)

	secret, err := cryptox.RandomPassword()
	if err != nil {
		log.Error("failed to generate placeholder password", slog.Any("error", err))
		return domain.User{}, err
	}
	hash, err := cryptox.HashPassword(secret)
	if err != nil {
		log.Error("failed to hash placeholder password", slog.Any("error", err))
		return domain.User{}, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        domain.NormalizeEmail(email),
		Name:         domain.DisplayNameFromEmail(email),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.Store.Users().CreateUser(ctx, user); err != nil {
		log.Error("failed to provision user", slog.Any("error", err))
		return domain.User{}, err
	}

	log.Info("user provisioned for impersonation", slog.String("user_id", user.ID))
	return user, nil
}
