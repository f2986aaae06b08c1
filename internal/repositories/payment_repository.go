package repositories

import (
	"context"
	"time"

	"gym-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

func nilIfZeroTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

type PaymentRepository struct {
	DB *pgxpool.Pool
}

func NewPaymentRepository(db *pgxpool.Pool) *PaymentRepository {
	return &PaymentRepository{DB: db}
}

func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO payments(user_id, membership_id, amount, payment_mode, notes, paid_at)
         VALUES($1, $2, $3, $4, $5, COALESCE($6, CURRENT_TIMESTAMP))
         RETURNING id, paid_at, created_at`,
		p.UserID, p.MembershipID, p.Amount, p.PaymentMode, p.Notes, nilIfZeroTime(p.PaidAt),
	).Scan(&p.ID, &p.PaidAt, &p.CreatedAt)
}

func (r *PaymentRepository) List(ctx context.Context) ([]*models.Payment, error) {
	return r.query(ctx,
		`SELECT id, user_id, membership_id, amount, payment_mode, COALESCE(notes, ''), paid_at, created_at
         FROM payments ORDER BY paid_at DESC`)
}

// ListByUserAsc returns the user's full payment history oldest first, the
// order in which the sync engine materializes installments.
func (r *PaymentRepository) ListByUserAsc(ctx context.Context, userID int) ([]*models.Payment, error) {
	return r.query(ctx,
		`SELECT id, user_id, membership_id, amount, payment_mode, COALESCE(notes, ''), paid_at, created_at
         FROM payments WHERE user_id=$1 ORDER BY paid_at ASC, id ASC`, userID)
}

func (r *PaymentRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM payments WHERE id=$1`, id)
	return err
}

func (r *PaymentRepository) DeleteByUser(ctx context.Context, userID int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM payments WHERE user_id=$1`, userID)
	return err
}

func (r *PaymentRepository) DeleteAll(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM payments`)
	return err
}

func (r *PaymentRepository) query(ctx context.Context, sql string, args ...any) ([]*models.Payment, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payments []*models.Payment
	for rows.Next() {
		var p models.Payment
		err := rows.Scan(&p.ID, &p.UserID, &p.MembershipID, &p.Amount, &p.PaymentMode,
			&p.Notes, &p.PaidAt, &p.CreatedAt)
		if err != nil {
			return nil, err
		}
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}
