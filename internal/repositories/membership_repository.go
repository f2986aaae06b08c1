package repositories

import (
	"context"

	"gym-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type MembershipRepository struct {
	DB *pgxpool.Pool
}

func NewMembershipRepository(db *pgxpool.Pool) *MembershipRepository {
	return &MembershipRepository{DB: db}
}

func (r *MembershipRepository) Create(ctx context.Context, m *models.Membership) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO memberships(user_id, plan_id, start_date, end_date, status)
         VALUES($1, $2, $3, $4, $5)
         RETURNING id, created_at, updated_at`,
		m.UserID, m.PlanID, m.StartDate, m.EndDate, m.Status,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
}

func (r *MembershipRepository) Get(ctx context.Context, id int) (*models.Membership, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT m.id, m.user_id, m.plan_id, COALESCE(p.name, ''), m.start_date, m.end_date,
                m.status, m.created_at, m.updated_at
         FROM memberships m
         LEFT JOIN plans p ON p.id = m.plan_id
         WHERE m.id=$1`, id)

	var ms models.Membership
	err := row.Scan(&ms.ID, &ms.UserID, &ms.PlanID, &ms.PlanName, &ms.StartDate, &ms.EndDate,
		&ms.Status, &ms.CreatedAt, &ms.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &ms, nil
}

func (r *MembershipRepository) ListByUser(ctx context.Context, userID int) ([]*models.Membership, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT m.id, m.user_id, m.plan_id, COALESCE(p.name, ''), m.start_date, m.end_date,
                m.status, m.created_at, m.updated_at
         FROM memberships m
         LEFT JOIN plans p ON p.id = m.plan_id
         WHERE m.user_id=$1
         ORDER BY m.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var memberships []*models.Membership
	for rows.Next() {
		var ms models.Membership
		err := rows.Scan(&ms.ID, &ms.UserID, &ms.PlanID, &ms.PlanName, &ms.StartDate, &ms.EndDate,
			&ms.Status, &ms.CreatedAt, &ms.UpdatedAt)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, &ms)
	}
	return memberships, rows.Err()
}

// CancelActive marks every active membership of the user as cancelled. Called
// before assigning a new plan so a user carries at most one active membership.
func (r *MembershipRepository) CancelActive(ctx context.Context, userID int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE memberships SET status=$1, updated_at=CURRENT_TIMESTAMP
         WHERE user_id=$2 AND status=$3`,
		models.MembershipCancelled, userID, models.MembershipActive)
	return err
}

func (r *MembershipRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM memberships WHERE id=$1`, id)
	return err
}
