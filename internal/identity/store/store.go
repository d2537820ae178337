package store

import (
	"context"
	"errors"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite for
// now) implement this. Sub-repositories keep concerns tidy and make the
// transaction boundary explicit.
type Store interface {
	Users() Users
	Circles() Circles
	Invitations() Invitations

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, rolling back if fn returns
	// an error and committing otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. Same repos, plus Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Users interface {
	// GetUserByID returns a user by id.
	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail looks up by exact email match. Callers must pass a
	// normalized (lower-cased) address.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)

	// GetUserByResetTokenHash resolves the user holding a live reset token
	// fingerprint. Rows with a cleared token never match.
	GetUserByResetTokenHash(ctx context.Context, hash string) (domain.User, error)

	// CreateUser inserts a new user (id is provided by the app via ULID).
	// Returns ErrAlreadyExists on an email collision.
	CreateUser(ctx context.Context, u domain.User) error

	// UpdatePasswordHash sets the password_hash and bumps updated_at.
	UpdatePasswordHash(ctx context.Context, userID string, newHash string) error

	// SetResetToken stores the reset token fingerprint and issuance time as
	// a pair, overwriting any prior token.
	SetResetToken(ctx context.Context, userID string, tokenHash string, sentAt time.Time) error

	// ClearResetToken nulls both reset token fields.
	ClearResetToken(ctx context.Context, userID string) error
}

type Circles interface {
	// GetCircleByID fetches a circle.
	GetCircleByID(ctx context.Context, id string) (domain.Circle, error)

	// CreateCircle inserts a new circle.
	CreateCircle(ctx context.Context, c domain.Circle) error

	// GetMember returns the membership row for a user in a circle.
	GetMember(ctx context.Context, circleID, userID string) (domain.CircleMember, error)

	// CreateMember inserts a membership. Returns ErrAlreadyExists if the
	// user is already a member of the circle.
	CreateMember(ctx context.Context, m domain.CircleMember) error
}

type Invitations interface {
	// CreateInvitation writes a new invitation (token_hash is the SHA-256
	// fingerprint of the opaque token).
	CreateInvitation(ctx context.Context, inv domain.Invitation) error

	// GetInvitationByID returns an invitation regardless of status or expiry.
	GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error)

	// GetInvitationByTokenHash returns an invitation by fingerprint,
	// regardless of status or expiry; state checks belong to the caller.
	GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error)

	// GetInvitationDetail returns an invitation with circle and inviter
	// summaries resolved.
	GetInvitationDetail(ctx context.Context, id string) (domain.InvitationDetail, error)

	// ListInvitationDetails returns all invitations newest-first with
	// circle and inviter summaries resolved.
	ListInvitationDetails(ctx context.Context) ([]domain.InvitationDetail, error)

	// MarkInvitationAccepted flips status pending -> accepted. The update
	// is guarded on the current status so concurrent acceptors serialize:
	// exactly one caller wins, the rest get ErrNotFound.
	MarkInvitationAccepted(ctx context.Context, id string) error
}
