package repositories

import (
	"context"

	"gym-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type OnlineTransactionRepository struct {
	DB *pgxpool.Pool
}

func NewOnlineTransactionRepository(db *pgxpool.Pool) *OnlineTransactionRepository {
	return &OnlineTransactionRepository{DB: db}
}

func (r *OnlineTransactionRepository) Create(ctx context.Context, t *models.OnlineTransaction) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO online_transactions(order_id, user_id, amount, status)
         VALUES($1, $2, $3, $4)
         RETURNING id, created_at, updated_at`,
		t.OrderID, t.UserID, t.Amount, t.Status,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
}

func (r *OnlineTransactionRepository) GetByOrderID(ctx context.Context, orderID string) (*models.OnlineTransaction, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT id, order_id, COALESCE(razorpay_payment_id, ''), user_id, amount, status, created_at, updated_at
         FROM online_transactions WHERE order_id=$1`, orderID)

	var t models.OnlineTransaction
	err := row.Scan(&t.ID, &t.OrderID, &t.RazorpayPayment, &t.UserID, &t.Amount,
		&t.Status, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *OnlineTransactionRepository) MarkCaptured(ctx context.Context, orderID, razorpayPaymentID string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE online_transactions SET status=$1, razorpay_payment_id=$2, updated_at=CURRENT_TIMESTAMP
         WHERE order_id=$3`,
		models.TxnCaptured, razorpayPaymentID, orderID)
	return err
}

func (r *OnlineTransactionRepository) MarkFailed(ctx context.Context, orderID string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE online_transactions SET status=$1, updated_at=CURRENT_TIMESTAMP WHERE order_id=$2`,
		models.TxnFailed, orderID)
	return err
}
