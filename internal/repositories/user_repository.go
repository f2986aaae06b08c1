package repositories

import (
	"context"
	"strings"

	"gym-backend/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	DB *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{DB: db}
}

const userColumns = `id, name, email, COALESCE(phone, '') as phone, password_hash, role,
         COALESCE(avatar_key, '') as avatar_key, is_active,
         COALESCE(totp_secret, '') as totp_secret, totp_enabled, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.PasswordHash, &u.Role,
		&u.AvatarKey, &u.IsActive, &u.TOTPSecret, &u.TOTPEnabled, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u *models.User) error {
	return r.DB.QueryRow(ctx,
		`INSERT INTO users(name, email, phone, password_hash, role)
         VALUES($1, LOWER($2), NULLIF($3, ''), $4, $5)
         RETURNING id, created_at, updated_at`,
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Role,
	).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepository) Get(ctx context.Context, id int) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id))
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *UserRepository) List(ctx context.Context) ([]*models.User, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (r *UserRepository) Update(ctx context.Context, u *models.User) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET name=$1, email=LOWER($2), phone=NULLIF($3, ''), password_hash=$4,
             role=$5, is_active=$6, updated_at=CURRENT_TIMESTAMP
         WHERE id=$7`,
		u.Name, u.Email, u.Phone, u.PasswordHash, u.Role, u.IsActive, u.ID)
	return err
}

func (r *UserRepository) Delete(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	return err
}

func (r *UserRepository) SetAvatarKey(ctx context.Context, id int, key string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET avatar_key=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`, key, id)
	return err
}

func (r *UserRepository) SetTOTPSecret(ctx context.Context, id int, secret string) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_secret=$1, totp_enabled=FALSE, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		secret, id)
	return err
}

func (r *UserRepository) EnableTOTP(ctx context.Context, id int) error {
	_, err := r.DB.Exec(ctx,
		`UPDATE users SET totp_enabled=TRUE, updated_at=CURRENT_TIMESTAMP WHERE id=$1`, id)
	return err
}

// ListMemberSyncRows returns every member-role user joined with their latest
// active membership, its plan, and the lifetime sum of their payments. Users
// without an email cannot be keyed in the ledger and are skipped here.
func (r *UserRepository) ListMemberSyncRows(ctx context.Context) ([]*models.MemberSyncRow, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT u.id, u.name, u.email, COALESCE(u.phone, ''),
                COALESCE(p.name, ''), COALESCE(p.price, 0),
                COALESCE(pay.total, 0), m.start_date, m.end_date
         FROM users u
         LEFT JOIN LATERAL (
             SELECT plan_id, start_date, end_date FROM memberships
             WHERE user_id = u.id AND status = 'active'
             ORDER BY created_at DESC LIMIT 1
         ) m ON TRUE
         LEFT JOIN plans p ON p.id = m.plan_id
         LEFT JOIN LATERAL (
             SELECT SUM(amount) AS total FROM payments WHERE user_id = u.id
         ) pay ON TRUE
         WHERE u.role = 'member' AND u.email <> ''
         ORDER BY u.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*models.MemberSyncRow
	for rows.Next() {
		var row models.MemberSyncRow
		err := rows.Scan(&row.UserID, &row.Name, &row.Email, &row.Phone,
			&row.PlanName, &row.PlanPrice, &row.TotalPaid, &row.StartDate, &row.EndDate)
		if err != nil {
			return nil, err
		}
		result = append(result, &row)
	}
	return result, rows.Err()
}

// ListMemberEmails returns the lowercased emails of all member-role users,
// used by the sync cleanup pass to detect orphaned ledger rows.
func (r *UserRepository) ListMemberEmails(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx,
		`SELECT LOWER(email) FROM users WHERE role = 'member' AND email <> ''`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var emails []string
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, err
		}
		emails = append(emails, strings.TrimSpace(email))
	}
	return emails, rows.Err()
}

// FindMemberByEmailOrPhone looks up a member-role user for auto-linking a
// manually created ledger row. Either argument may be empty.
func (r *UserRepository) FindMemberByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error) {
	return scanUser(r.DB.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users
         WHERE role = 'member'
           AND (($1 <> '' AND LOWER(email) = LOWER($1)) OR ($2 <> '' AND phone = $2))
         ORDER BY id LIMIT 1`, email, phone))
}
