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
	"github.com/cowritehq/cowrite/pkg/idx"
	"github.com/cowritehq/cowrite/pkg/slogx"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExpired  = errors.New("invitation has expired")
	ErrInvitationAccepted = errors.New("invitation has already been accepted")
	ErrCircleNotFound     = errors.New("circle not found")
	ErrNotAuthorized      = errors.New("not authorized")
)

// DefaultInvitationTTL is how long a new invitation stays redeemable when
// the caller doesn't specify a window.
const DefaultInvitationTTL = 7 * 24 * time.Hour

// InvitationService owns the invitation lifecycle: minting tokens, listing
// and resolving invitations for admins, and redemption. Persisted status is
// only ever pending or accepted; expiry is derived from expires_at at read
// time and never written back.
type InvitationService struct {
	Store  store.Store
	Mailer notify.Mailer

	// DefaultTTL is the window applied when callers don't specify one.
	// Zero means DefaultInvitationTTL.
	DefaultTTL time.Duration
}

// RedeemResult reports the outcome of a successful redemption.
type RedeemResult struct {
	User        domain.User
	Circle      domain.Circle
	UserCreated bool
}

// CreateInvitation mints an invitation for email to join the circle and
// returns the invitation together with the raw token. The token is handed
// out exactly once; only its fingerprint is stored.
//
// The acting user must be a super admin or an admin member of the circle.
// A zero ttl falls back to DefaultInvitationTTL. Negative ttls are stored
// as-is: the row is born pending and already expired, which listings
// surface through the derived expired flag.
func (s *InvitationService) CreateInvitation(
	ctx context.Context,
	acting domain.User,
	circleID string,
	email string,
	ttl time.Duration,
) (domain.Invitation, string, error) {
	log := slogx.FromContext(ctx)

	// 1. Validate the target address.
	email = domain.NormalizeEmail(email)
	if err := domain.ValidateEmail(email); err != nil {
		return domain.Invitation{}, "", err
	}

	// 2. Validate the circle exists.
	circle, err := s.Store.Circles().GetCircleByID(ctx, circleID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.Invitation{}, "", ErrCircleNotFound
		}
		log.Error("failed to fetch circle", slog.Any("error", err))
		return domain.Invitation{}, "", err
	}

	// 3. Authorize: super admins may invite anywhere, circle admins only
	// within their circle.
	if err := s.authorizeInviter(ctx, acting, circleID); err != nil {
		log.Warn("invitation mint rejected",
			slog.String("acting_user_id", acting.ID),
			slog.String("circle_id", circleID),
		)
		return domain.Invitation{}, "", err
	}

	// 4. Generate the raw token and fingerprint it.
	token, err := cryptox.GenerateToken(cryptox.TokenSize128)
	if err != nil {
		log.Error("failed to generate invitation token", slog.Any("error", err))
		return domain.Invitation{}, "", err
	}
	fingerprint := cryptox.FingerprintToken(token)

	if ttl == 0 {
		ttl = s.DefaultTTL
	}
	if ttl == 0 {
		ttl = DefaultInvitationTTL
	}

	now := time.Now().UTC()
	inv := domain.Invitation{
		ID:        idx.New().String(),
		Email:     email,
		CircleID:  circleID,
		InvitedBy: acting.ID,
		TokenHash: fingerprint,
		Status:    domain.InvitationPending,
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	// 5. Persist and notify.
	if err := s.Store.Invitations().CreateInvitation(ctx, inv); err != nil {
		log.Error("failed to create invitation", slog.Any("error", err))
		return domain.Invitation{}, "", err
	}

	if err := s.Mailer.Invitation(ctx, email, token, circle.Name); err != nil {
		log.Error("failed to send invitation mail", slog.Any("error", err))
		return domain.Invitation{}, "", err
	}

	log.Info("invitation created",
		slog.String("invitation_id", inv.ID),
		slog.String("circle_id", circleID),
	)
	return inv, token, nil
}

// GetInvitation returns one invitation with circle and inviter summaries.
// Restricted to super admins.
func (s *InvitationService) GetInvitation(
	ctx context.Context,
	acting domain.User,
	id string,
) (domain.InvitationDetail, error) {
	if !acting.SuperAdmin {
		return domain.InvitationDetail{}, ErrNotAuthorized
	}

	detail, err := s.Store.Invitations().GetInvitationDetail(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.InvitationDetail{}, ErrInvitationNotFound
		}
		return domain.InvitationDetail{}, err
	}
	return detail, nil
}

// ListInvitations returns all invitations newest-first with circle and
// inviter summaries. Restricted to super admins.
func (s *InvitationService) ListInvitations(
	ctx context.Context,
	acting domain.User,
) ([]domain.InvitationDetail, error) {
	if !acting.SuperAdmin {
		return nil, ErrNotAuthorized
	}
	return s.Store.Invitations().ListInvitationDetails(ctx)
}

// RedeemInvitation accepts a pending, unexpired invitation: the user for
// the invitation email is found or created, made a member of the circle,
// and the invitation flips to accepted. All of that happens in one
// transaction, and the guarded status flip means concurrent redemptions of
// the same token admit exactly one winner.
//
// Name and password are only consulted when the redemption has to create
// the account; for an existing account they are ignored.
func (s *InvitationService) RedeemInvitation(
	ctx context.Context,
	token string,
	name string,
	password string,
) (RedeemResult, error) {
	log := slogx.FromContext(ctx)

	// 1. Resolve the token by fingerprint.
	fingerprint := cryptox.FingerprintToken(token)
	inv, err := s.Store.Invitations().GetInvitationByTokenHash(ctx, fingerprint)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return RedeemResult{}, ErrInvitationNotFound
		}
		log.Error("failed to resolve invitation token", slog.Any("error", err))
		return RedeemResult{}, err
	}

	// 2. State checks. Accepted wins over expired so a consumed invitation
	// reads consistently forever.
	if inv.Status == domain.InvitationAccepted {
		return RedeemResult{}, ErrInvitationAccepted
	}
	if inv.Expired(time.Now().UTC()) {
		return RedeemResult{}, ErrInvitationExpired
	}

	circle, err := s.Store.Circles().GetCircleByID(ctx, inv.CircleID)
	if err != nil {
		log.Error("failed to fetch invitation circle", slog.Any("error", err))
		return RedeemResult{}, err
	}

	// 3. If the account will need creating, validate the sign-up fields
	// and hash the password before entering the transaction.
	var newHash string
	_, lookupErr := s.Store.Users().GetUserByEmail(ctx, inv.Email)
	creating := errors.Is(lookupErr, store.ErrNotFound)
	if lookupErr != nil && !creating {
		return RedeemResult{}, lookupErr
	}
	if creating {
		if err := domain.ValidateName(name); err != nil {
			return RedeemResult{}, err
		}
		if err := domain.ValidatePassword(password); err != nil {
			return RedeemResult{}, err
		}
		newHash, err = cryptox.HashPassword(password)
		if err != nil {
			log.Error("failed to hash password", slog.Any("error", err))
			return RedeemResult{}, err
		}
	}

	var result RedeemResult
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		// 4. Flip pending -> accepted. The update is guarded on the
		// current status, so a concurrent redeemer that lost the race gets
		// ErrNotFound here and the whole transaction rolls back.
		if err := tx.Invitations().MarkInvitationAccepted(ctx, inv.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrInvitationAccepted
			}
			return err
		}

		// 5. Find or create the account for the invitation email.
		user, err := tx.Users().GetUserByEmail(ctx, inv.Email)
		switch {
		case err == nil:
			result.User = user
		case errors.Is(err, store.ErrNotFound):
			now := time.Now().UTC()
			user = domain.User{
				ID:           idx.New().String(),
				Email:        inv.Email,
				Name:         name,
				PasswordHash: newHash,
				CreatedAt:    now,
				UpdatedAt:    now,
			}
			if err := tx.Users().CreateUser(ctx, user); err != nil {
				return err
			}
			result.User = user
			result.UserCreated = true
		default:
			return err
		}

		// 6. Create the membership. An existing membership is fine, the
		// invitation still completes.
		member := domain.CircleMember{
			ID:        idx.New().String(),
			CircleID:  inv.CircleID,
			UserID:    user.ID,
			Role:      domain.RoleMember,
			CreatedAt: time.Now().UTC(),
		}
		if err := tx.Circles().CreateMember(ctx, member); err != nil {
			if !errors.Is(err, store.ErrAlreadyExists) {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return RedeemResult{}, err
	}

	result.Circle = circle
	log.Info("invitation redeemed",
		slog.String("invitation_id", inv.ID),
		slog.String("user_id", result.User.ID),
		slog.Bool("user_created", result.UserCreated),
	)
	return result, nil
}

// authorizeInviter checks the acting user may mint invitations for the
// circle.
func (s *InvitationService) authorizeInviter(ctx context.Context, acting domain.User, circleID string) error {
	if acting.SuperAdmin {
		return nil
	}

	member, err := s.Store.Circles().GetMember(ctx, circleID, acting.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrNotAuthorized
		}
		return err
	}
	if member.Role != domain.RoleAdmin {
		return ErrNotAuthorized
	}
	return nil
}
