package sqlite

import (
	"context"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
)

type invitationsRepo struct {
	db DBTX
}

const invitationColumns = `id, email, circle_id, invited_by, token_hash,
	status, expires_at, created_at, updated_at`

func (r *invitationsRepo) CreateInvitation(ctx context.Context, inv domain.Invitation) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO invitations (id, email, circle_id, invited_by, token_hash,
			status, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.Email, inv.CircleID, inv.InvitedBy, inv.TokenHash,
		inv.Status, inv.ExpiresAt.UTC(), now, now,
	)
	return mapConstraint(err)
}

func (r *invitationsRepo) GetInvitationByID(ctx context.Context, id string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE id = ?`, id)
	return scanInvitation(row)
}

func (r *invitationsRepo) GetInvitationByTokenHash(ctx context.Context, hash string) (domain.Invitation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+invitationColumns+` FROM invitations WHERE token_hash = ?`, hash)
	return scanInvitation(row)
}

func (r *invitationsRepo) GetInvitationDetail(ctx context.Context, id string) (domain.InvitationDetail, error) {
	row := r.db.QueryRowContext(ctx, detailQuery+` WHERE i.id = ?`, id)
	return scanInvitationDetail(row)
}

func (r *invitationsRepo) ListInvitationDetails(ctx context.Context) ([]domain.InvitationDetail, error) {
	rows, err := r.db.QueryContext(ctx, detailQuery+` ORDER BY i.created_at DESC, i.id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.InvitationDetail
	for rows.Next() {
		d, err := scanInvitationDetail(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// MarkInvitationAccepted is guarded on status so only one of any number of
// concurrent acceptors flips the row; the rest see ErrNotFound.
func (r *invitationsRepo) MarkInvitationAccepted(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE invitations SET status = ?, updated_at = ?
		 WHERE id = ? AND status = ?`,
		domain.InvitationAccepted, time.Now().UTC(), id, domain.InvitationPending,
	)
	if err != nil {
		return err
	}
	return requireRow(res)
}

const detailQuery = `
	SELECT i.id, i.email, i.circle_id, i.invited_by, i.token_hash,
	       i.status, i.expires_at, i.created_at, i.updated_at,
	       c.name, u.name, u.email
	FROM invitations i
	JOIN circles c ON c.id = i.circle_id
	JOIN users u ON u.id = i.invited_by`

func scanInvitation(row interface{ Scan(...any) error }) (domain.Invitation, error) {
	var inv domain.Invitation
	err := row.Scan(
		&inv.ID, &inv.Email, &inv.CircleID, &inv.InvitedBy, &inv.TokenHash,
		&inv.Status, &inv.ExpiresAt, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return domain.Invitation{}, mapNotFound(err)
	}
	return inv, nil
}

func scanInvitationDetail(row interface{ Scan(...any) error }) (domain.InvitationDetail, error) {
	var d domain.InvitationDetail
	err := row.Scan(
		&d.ID, &d.Email, &d.CircleID, &d.InvitedBy, &d.TokenHash,
		&d.Status, &d.ExpiresAt, &d.CreatedAt, &d.UpdatedAt,
		&d.CircleName, &d.InviterName, &d.InviterEmail,
	)
	if err != nil {
		return domain.InvitationDetail{}, mapNotFound(err)
	}
	return d, nil
}
