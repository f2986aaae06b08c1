package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/timeutil"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type MemberRecordRepository struct {
	DB *pgxpool.Pool
}

func NewMemberRecordRepository(db *pgxpool.Pool) *MemberRecordRepository {
	return &MemberRecordRepository{DB: db}
}

const recordColumns = `id, user_id, name, email, phone,
         plan_name, plan_total_amount, paid_amount, payment_installments,
         membership_start_date, membership_end_date, is_signed_up, notes, created_at, updated_at`

func scanRecord(row interface{ Scan(...any) error }) (*models.MemberRecord, error) {
	var rec models.MemberRecord
	var installments []byte
	err := row.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Email, &rec.Phone,
		&rec.PlanName, &rec.PlanTotalAmount, &rec.PaidAmount, &installments,
		&rec.MembershipStartDate, &rec.MembershipEndDate, &rec.IsSignedUp, &rec.Notes,
		&rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(installments, &rec.PaymentInstallments); err != nil {
		return nil, fmt.Errorf("decode installments for record %d: %w", rec.ID, err)
	}
	if rec.PaymentInstallments == nil {
		rec.PaymentInstallments = []models.PaymentInstallment{}
	}
	return &rec, nil
}

func (r *MemberRecordRepository) Get(ctx context.Context, id int) (*models.MemberRecord, error) {
	rec, err := scanRecord(r.DB.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM member_records WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("member record %d not found", id)
	}
	return rec, err
}

// List returns ledger rows joined with their linked app account (for display
// name and avatar), optionally narrowed by a text search over name, email and
// phone and by a status filter. Ordering puts expired rows first, then rows
// expiring within a week, then everything else, oldest record first within a
// bucket.
func (r *MemberRecordRepository) List(ctx context.Context, search, filter string) ([]*models.MemberRecord, error) {
	query := `SELECT mr.id, mr.user_id, mr.name, mr.email, mr.phone,
         mr.plan_name, mr.plan_total_amount, mr.paid_amount, mr.payment_installments,
         mr.membership_start_date, mr.membership_end_date, mr.is_signed_up, mr.notes,
         mr.created_at, mr.updated_at,
         COALESCE(u.name, ''), COALESCE(u.avatar_key, '')
         FROM member_records mr
         LEFT JOIN users u ON u.id = mr.user_id
         WHERE 1=1`
	var args []any

	if search != "" {
		args = append(args, "%"+search+"%")
		n := len(args)
		query += fmt.Sprintf(` AND (mr.name ILIKE $%d OR mr.email ILIKE $%d OR mr.phone ILIKE $%d)`, n, n, n)
	}

	switch filter {
	case "active-subscription":
		query += ` AND mr.membership_end_date IS NOT NULL AND mr.membership_end_date >= CURRENT_DATE`
	case "expired", "expired-subscription":
		query += ` AND mr.membership_end_date IS NOT NULL AND mr.membership_end_date < CURRENT_DATE`
	case "expiring-soon":
		query += ` AND mr.membership_end_date IS NOT NULL
         AND mr.membership_end_date >= CURRENT_DATE
         AND mr.membership_end_date <= CURRENT_DATE + 7`
	case "pending-payment":
		query += ` AND mr.plan_total_amount - mr.paid_amount > 0`
	case "signed-up":
		query += ` AND mr.is_signed_up = TRUE`
	case "manual":
		query += ` AND mr.is_signed_up = FALSE`
	}

	query += ` ORDER BY CASE
             WHEN mr.membership_end_date IS NOT NULL AND mr.membership_end_date < CURRENT_DATE THEN 0
             WHEN mr.membership_end_date IS NOT NULL AND mr.membership_end_date <= CURRENT_DATE + 7 THEN 1
             ELSE 2
         END, mr.created_at ASC`

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.MemberRecord
	for rows.Next() {
		var rec models.MemberRecord
		var installments []byte
		err := rows.Scan(&rec.ID, &rec.UserID, &rec.Name, &rec.Email, &rec.Phone,
			&rec.PlanName, &rec.PlanTotalAmount, &rec.PaidAmount, &installments,
			&rec.MembershipStartDate, &rec.MembershipEndDate, &rec.IsSignedUp, &rec.Notes,
			&rec.CreatedAt, &rec.UpdatedAt, &rec.UserName, &rec.UserAvatar)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(installments, &rec.PaymentInstallments); err != nil {
			return nil, fmt.Errorf("decode installments for record %d: %w", rec.ID, err)
		}
		if rec.PaymentInstallments == nil {
			rec.PaymentInstallments = []models.PaymentInstallment{}
		}
		records = append(records, &rec)
	}
	return records, rows.Err()
}

// Stats aggregates over the whole table regardless of any active search or
// filter on the listing.
func (r *MemberRecordRepository) Stats(ctx context.Context) (*models.MemberRecordStats, error) {
	row := r.DB.QueryRow(ctx,
		`SELECT COUNT(*),
                COUNT(*) FILTER (WHERE is_signed_up),
                COUNT(*) FILTER (WHERE NOT is_signed_up),
                COUNT(*) FILTER (WHERE membership_end_date >= CURRENT_DATE),
                COUNT(*) FILTER (WHERE membership_end_date >= CURRENT_DATE AND membership_end_date <= CURRENT_DATE + 7),
                COUNT(*) FILTER (WHERE membership_end_date < CURRENT_DATE),
                COUNT(*) FILTER (WHERE membership_end_date IS NULL),
                COUNT(*) FILTER (WHERE plan_total_amount - paid_amount > 0),
                COALESCE(SUM(plan_total_amount), 0),
                COALESCE(SUM(paid_amount), 0),
                COALESCE(SUM(GREATEST(plan_total_amount - paid_amount, 0)), 0)
         FROM member_records`)

	var s models.MemberRecordStats
	err := row.Scan(&s.TotalRecords, &s.SignedUp, &s.Manual, &s.ActiveSubscriptions,
		&s.ExpiringSoon, &s.Expired, &s.NoSubscription, &s.PendingPayment,
		&s.TotalPlanAmount, &s.TotalCollected, &s.TotalPending)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// FindByEmail returns the record owning the email, excluding excludeID
// (pass 0 to match any row). Used for duplicate checks on create and edit.
func (r *MemberRecordRepository) FindByEmail(ctx context.Context, email string, excludeID int) (*models.MemberRecord, error) {
	rec, err := scanRecord(r.DB.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM member_records
         WHERE LOWER(email)=LOWER($1) AND id<>$2`, email, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("no member record with email %s", email)
	}
	return rec, err
}

func (r *MemberRecordRepository) FindByPhone(ctx context.Context, phone string, excludeID int) (*models.MemberRecord, error) {
	rec, err := scanRecord(r.DB.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM member_records
         WHERE phone=$1 AND id<>$2`, phone, excludeID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("no member record with phone %s", phone)
	}
	return rec, err
}

func (r *MemberRecordRepository) Insert(ctx context.Context, rec *models.MemberRecord) error {
	data, err := json.Marshal(rec.PaymentInstallments)
	if err != nil {
		return err
	}
	return r.DB.QueryRow(ctx,
		`INSERT INTO member_records(user_id, name, email, phone, plan_name, plan_total_amount,
             paid_amount, payment_installments, membership_start_date, membership_end_date,
             is_signed_up, notes)
         VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
         RETURNING id, created_at, updated_at`,
		rec.UserID, rec.Name, rec.Email, rec.Phone, rec.PlanName, rec.PlanTotalAmount,
		rec.PaidAmount, data, rec.MembershipStartDate, rec.MembershipEndDate,
		rec.IsSignedUp, rec.Notes,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
}

// Update writes the editable fields. paid_amount and payment_installments are
// excluded: those change only through installment operations or the sync engine.
func (r *MemberRecordRepository) Update(ctx context.Context, rec *models.MemberRecord) error {
	tag, err := r.DB.Exec(ctx,
		`UPDATE member_records SET name=$1, email=$2, phone=$3, plan_name=$4,
             plan_total_amount=$5, membership_start_date=$6, membership_end_date=$7,
             notes=$8, updated_at=CURRENT_TIMESTAMP
         WHERE id=$9`,
		rec.Name, rec.Email, rec.Phone, rec.PlanName, rec.PlanTotalAmount,
		rec.MembershipStartDate, rec.MembershipEndDate, rec.Notes, rec.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("member record %d not found", rec.ID)
	}
	return nil
}

func (r *MemberRecordRepository) Delete(ctx context.Context, id int) error {
	tag, err := r.DB.Exec(ctx, `DELETE FROM member_records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("member record %d not found", id)
	}
	return nil
}

func (r *MemberRecordRepository) DeleteAll(ctx context.Context) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM member_records`)
	return err
}

// ClearAllInstallments wipes every installment log and zeroes the derived paid
// amounts in one statement. Part of the bulk clear-payments action.
func (r *MemberRecordRepository) ClearAllInstallments(ctx context.Context) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE member_records SET payment_installments='[]', paid_amount=0, updated_at=CURRENT_TIMESTAMP`)
	return err
}

// ReconcileMember upserts one canonical member into the ledger inside a
// transaction. The row is matched by email or linked user id and locked for
// the duration. On update the installment log is never touched; a fresh
// insert materializes the canonical payment history as its installment log.
func (r *MemberRecordRepository) ReconcileMember(ctx context.Context, row *models.MemberSyncRow, installments []models.PaymentInstallment) error {
	now := timeutil.Now()

	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	existing, err := scanRecord(tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM member_records
         WHERE LOWER(email)=LOWER($1) OR user_id=$2
         ORDER BY id LIMIT 1
         FOR UPDATE`, row.Email, row.UserID))
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if row.Phone != "" {
		// The app account is authoritative for phone ownership: release the
		// number from any other ledger row before writing it here.
		excludeID := 0
		if existing != nil {
			excludeID = existing.ID
		}
		_, err := tx.Exec(ctx,
			`UPDATE member_records SET phone=NULL, updated_at=$1 WHERE phone=$2 AND id<>$3`,
			now, row.Phone, excludeID)
		if err != nil {
			return err
		}
	}

	if existing != nil {
		existing.ApplyCanonical(row, now)
		_, err = tx.Exec(ctx,
			`UPDATE member_records SET user_id=$1, name=$2, email=$3, phone=$4, plan_name=$5,
                 plan_total_amount=$6, paid_amount=$7, membership_start_date=$8,
                 membership_end_date=$9, is_signed_up=TRUE, updated_at=$10
             WHERE id=$11`,
			existing.UserID, existing.Name, existing.Email, existing.Phone, existing.PlanName,
			existing.PlanTotalAmount, existing.PaidAmount, existing.MembershipStartDate,
			existing.MembershipEndDate, now, existing.ID)
		if err != nil {
			return err
		}
	} else {
		data, err := json.Marshal(installments)
		if err != nil {
			return err
		}
		// The identity read above and this insert can race a concurrent pass,
		// so the conflict clause re-applies the same merge rules as the
		// update path instead of failing.
		_, err = tx.Exec(ctx,
			`INSERT INTO member_records(user_id, name, email, phone, plan_name, plan_total_amount,
                 paid_amount, payment_installments, membership_start_date, membership_end_date,
                 is_signed_up, notes, created_at, updated_at)
             VALUES($1, $2, LOWER($3), NULLIF($4, ''), $5, $6, $7, $8, $9, $10, TRUE, '', $11, $11)
             ON CONFLICT (email) DO UPDATE SET
                 user_id = EXCLUDED.user_id,
                 name = EXCLUDED.name,
                 phone = EXCLUDED.phone,
                 plan_name = CASE WHEN EXCLUDED.plan_name <> '' THEN EXCLUDED.plan_name
                             ELSE member_records.plan_name END,
                 plan_total_amount = CASE WHEN EXCLUDED.plan_total_amount > 0 THEN EXCLUDED.plan_total_amount
                                     ELSE member_records.plan_total_amount END,
                 paid_amount = CASE WHEN EXCLUDED.paid_amount > 0 THEN EXCLUDED.paid_amount
                               ELSE member_records.paid_amount END,
                 membership_start_date = COALESCE(EXCLUDED.membership_start_date, member_records.membership_start_date),
                 membership_end_date = COALESCE(EXCLUDED.membership_end_date, member_records.membership_end_date),
                 is_signed_up = TRUE,
                 updated_at = EXCLUDED.updated_at`,
			row.UserID, row.Name, row.Email, row.Phone, row.PlanName, row.PlanPrice,
			row.TotalPaid, data, row.StartDate, row.EndDate, now)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// DeleteOrphans removes synced rows whose email no longer belongs to any
// member account. An empty live set means every synced row is an orphan.
// Manual rows are never touched here.
func (r *MemberRecordRepository) DeleteOrphans(ctx context.Context, liveEmails []string) (int64, error) {
	if len(liveEmails) == 0 {
		tag, err := r.DB.Exec(ctx, `DELETE FROM member_records WHERE is_signed_up = TRUE`)
		if err != nil {
			return 0, err
		}
		return tag.RowsAffected(), nil
	}
	tag, err := r.DB.Exec(ctx,
		`DELETE FROM member_records
         WHERE is_signed_up = TRUE
           AND (email IS NULL OR NOT (LOWER(email) = ANY($1)))`, liveEmails)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// AddInstallment appends one installment to the record's log and recomputes
// paid_amount, locking the row for the read-modify-write.
func (r *MemberRecordRepository) AddInstallment(ctx context.Context, recordID int, inst models.PaymentInstallment) (*models.MemberRecord, error) {
	return r.mutateInstallments(ctx, recordID, func(installments []models.PaymentInstallment) ([]models.PaymentInstallment, error) {
		return append(installments, inst), nil
	})
}

func (r *MemberRecordRepository) DeleteInstallment(ctx context.Context, recordID int, installmentID string) (*models.MemberRecord, error) {
	return r.mutateInstallments(ctx, recordID, func(installments []models.PaymentInstallment) ([]models.PaymentInstallment, error) {
		for i, inst := range installments {
			if inst.ID == installmentID {
				return append(installments[:i], installments[i+1:]...), nil
			}
		}
		return nil, apperror.NotFound("payment installment %s not found", installmentID)
	})
}

func (r *MemberRecordRepository) ClearInstallments(ctx context.Context, recordID int) (*models.MemberRecord, error) {
	return r.mutateInstallments(ctx, recordID, func([]models.PaymentInstallment) ([]models.PaymentInstallment, error) {
		return []models.PaymentInstallment{}, nil
	})
}

func (r *MemberRecordRepository) mutateInstallments(ctx context.Context, recordID int, mutate func([]models.PaymentInstallment) ([]models.PaymentInstallment, error)) (*models.MemberRecord, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	rec, err := scanRecord(tx.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM member_records WHERE id=$1 FOR UPDATE`, recordID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.NotFound("member record %d not found", recordID)
	}
	if err != nil {
		return nil, err
	}

	installments, err := mutate(rec.PaymentInstallments)
	if err != nil {
		return nil, err
	}
	if installments == nil {
		installments = []models.PaymentInstallment{}
	}
	data, err := json.Marshal(installments)
	if err != nil {
		return nil, err
	}

	rec.PaymentInstallments = installments
	rec.PaidAmount = models.SumInstallments(installments)
	rec.UpdatedAt = timeutil.Now()

	_, err = tx.Exec(ctx,
		`UPDATE member_records SET payment_installments=$1, paid_amount=$2, updated_at=$3 WHERE id=$4`,
		data, rec.PaidAmount, rec.UpdatedAt, recordID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return rec, nil
}
