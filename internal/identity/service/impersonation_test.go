package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
	"github.com/cowritehq/cowrite/internal/identity/service"
	"github.com/cowritehq/cowrite/internal/identity/store"
	"github.com/stretchr/testify/require"
)

func TestImpersonate(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (store.Store, *service.InvitationService, *service.ImpersonationService, domain.User, domain.Circle) {
		st := newTestStore(t)
		invites := &service.InvitationService{Store: st, Mailer: newCaptureMailer()}
		imp := &service.ImpersonationService{Store: st, Sessions: newSessionService(t)}

		admin := seedUser(t, st, "admin@example.com", "admin-password", true)
		circle := seedCircle(t, st, "Night Writers", admin.ID)
		return st, invites, imp, admin, circle
	}

	t.Run("provisions the invited account on first use", func(t *testing.T) {
		st, invites, imp, admin, circle := setup(t)

		inv, _, err := invites.CreateInvitation(ctx, admin, circle.ID, "jane.doe@example.com", 0)
		require.NoError(t, err)

		result, err := imp.Impersonate(ctx, admin, inv.ID)
		require.NoError(t, err)
		require.True(t, result.UserCreated)
		require.NotEmpty(t, result.Token)
		require.Equal(t, "jane.doe@example.com", result.User.Email)
		require.Equal(t, "Jane Doe", result.User.Name)
		require.False(t, result.User.SuperAdmin)

		// The account really exists now.
		_, err = st.Users().GetUserByEmail(ctx, "jane.doe@example.com")
		require.NoError(t, err)
	})

	t.Run("second impersonation reuses the account", func(t *testing.T) {
		_, invites, imp, admin, circle := setup(t)

		inv, _, err := invites.CreateInvitation(ctx, admin, circle.ID, "jane.doe@example.com", 0)
		require.NoError(t, err)

		first, err := imp.Impersonate(ctx, admin, inv.ID)
		require.NoError(t, err)
		require.True(t, first.UserCreated)

		second, err := imp.Impersonate(ctx, admin, inv.ID)
		require.NoError(t, err)
		require.False(t, second.UserCreated)
		require.Equal(t, first.User.ID, second.User.ID)
	})

	t.Run("existing account is used as-is", func(t *testing.T) {
		st, invites, imp, admin, circle := setup(t)

		veteran := seedUser(t, st, "veteran@example.com", "old-password", false)
		inv, _, err := invites.CreateInvitation(ctx, admin, circle.ID, veteran.Email, 0)
		require.NoError(t, err)

		result, err := imp.Impersonate(ctx, admin, inv.ID)
		require.NoError(t, err)
		require.False(t, result.UserCreated)
		require.Equal(t, veteran.ID, result.User.ID)
	})

	t.Run("works on an expired invitation", func(t *testing.T) {
		// Expiry gates redemption, not impersonation: the invitation still
		// names a target account either way.
		_, invites, imp, admin, circle := setup(t)

		inv, _, err := invites.CreateInvitation(ctx, admin, circle.ID, "late@example.com", -time.Second)
		require.NoError(t, err)
		require.True(t, inv.Expired(time.Now().UTC()))

		result, err := imp.Impersonate(ctx, admin, inv.ID)
		require.NoError(t, err)
		require.True(t, result.UserCreated)
	})

	t.Run("works on an accepted invitation", func(t *testing.T) {
		_, invites, imp, admin, circle := setup(t)

		inv, token, err := invites.CreateInvitation(ctx, admin, circle.ID, "done@example.com", 0)
		require.NoError(t, err)
		_, err = invites.RedeemInvitation(ctx, token, "Done Writer", "fresh-password")
		require.NoError(t, err)

		result, err := imp.Impersonate(ctx, admin, inv.ID)
		require.NoError(t, err)
		require.False(t, result.UserCreated)
	})

	t.Run("rejects super admin targets", func(t *testing.T) {
		st, invites, imp, admin, circle := setup(t)

		other := seedUser(t, st, "other-admin@example.com", "other-password", true)
		inv, _, err := invites.CreateInvitation(ctx, admin, circle.ID, other.Email, 0)
		require.NoError(t, err)

		_, err = imp.Impersonate(ctx, admin, inv.ID)
		require.ErrorIs(t, err, service.ErrImpersonationForbidden)
	})

	t.Run("requires a super admin caller", func(t *testing.T) {
		st, invites, imp, admin, circle := setup(t)

		mortal := seedUser(t, st, "mortal@example.com", "mortal-password", false)
		inv, _, err := invites.CreateInvitation(ctx, admin, circle.ID, "new@example.com", 0)
		require.NoError(t, err)

		_, err = imp.Impersonate(ctx, mortal, inv.ID)
		require.ErrorIs(t, err, service.ErrNotAuthorized)
	})

	t.Run("unknown invitation", func(t *testing.T) {
		_, _, imp, admin, _ := setup(t)

		_, err := imp.Impersonate(ctx, admin, "no-such-invitation")
		require.ErrorIs(t, err, service.ErrInvitationNotFound)
	})
}
