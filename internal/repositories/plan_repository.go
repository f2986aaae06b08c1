package repositories

import (
	"context"

	"gym-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PlanRepository struct {
	DB *pgxpool.Pool
}

func NewPlanRepository(db *pgxpool.Pool) *PlanRepository {
	return &PlanRepository{DB: db}
}

func (r *PlanRepository) Create(ctx context.Context, p *models.Plan) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO plans(name, price, duration_days)
         VALUES($1, $2, $3)
         RETURNING id, is_active, created_at, updated_at`,
		p.Name, p.Price, p.DurationDays,
	).Scan(&p.ID, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

func (r *PlanRepository) Get(ctx context.Context, id int) (*models.Plan, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, name, price, duration_days, is_active, created_at, updated_at
         FROM plans WHERE id=$1`, id)

	var plan models.Plan
	err := row.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.DurationDays,
		&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

func (r *PlanRepository) List(ctx context.Context) ([]*models.Plan, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT id, name, price, duration_days, is_active, created_at, updated_at
         FROM plans ORDER BY price ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var plans []*models.Plan
	for rows.Next() {
		var plan models.Plan
		err := rows.Scan(&plan.ID, &plan.Name, &plan.Price, &plan.DurationDays,
			&plan.IsActive, &plan.CreatedAt, &plan.UpdatedAt)
		if err != nil {
			return nil, err
		}
		plans = append(plans, &plan)
	}
	return plans, rows.Err()
}

func (r *PlanRepository) Update(ctx context.Context, p *models.Plan) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE plans SET name=$1, price=$2, duration_days=$3, is_active=$4, updated_at=CURRENT_TIMESTAMP
         WHERE id=$5`,
		p.Name, p.Price, p.DurationDays, p.IsActive, p.ID)
	return err
}

func (r *PlanRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM plans WHERE id=$1`, id)
	return err
}
