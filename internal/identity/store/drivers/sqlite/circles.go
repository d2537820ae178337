package sqlite

import (
	"context"
	"time"

	"github.com/cowritehq/cowrite/internal/identity/domain"
)

type circlesRepo struct {
	db DBTX
}

func (r *circlesRepo) GetCircleByID(ctx context.Context, id string) (domain.Circle, error) {
	var c domain.Circle
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, created_by, created_at, updated_at
		 FROM circles WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return domain.Circle{}, mapNotFound(err)
	}
	return c, nil
}

func (r *circlesRepo) CreateCircle(ctx context.Context, c domain.Circle) error {
	now := time.Now().UTC()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO circles (id, name, created_by, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.CreatedBy, now, now,
	)
	return mapConstraint(err)
}

func (r *circlesRepo) GetMember(ctx context.Context, circleID, userID string) (domain.CircleMember, error) {
	var m domain.CircleMember
	err := r.db.QueryRowContext(ctx,
		`SELECT id, circle_id, user_id, role, created_at
		 FROM circle_members WHERE circle_id = ? AND user_id = ?`,
		circleID, userID,
	).Scan(&m.ID, &m.CircleID, &m.UserID, &m.Role, &m.CreatedAt)
	if err != nil {
		return domain.CircleMember{}, mapNotFound(err)
	}
	return m, nil
}

func (r *circlesRepo) CreateMember(ctx context.Context, m domain.CircleMember) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO circle_members (id, circle_id, user_id, role, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.CircleID, m.UserID, m.Role, time.Now().UTC(),
	)
	return mapConstraint(err)
}
