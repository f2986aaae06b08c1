package models

import (
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// Subscription status values derived from membership_end_date.
const (
	SubscriptionNone     = "none"
	SubscriptionExpired  = "expired"
	SubscriptionExpiring = "expiring"
	SubscriptionActive   = "active"
)

// ExpiryWindowDays is the inclusive window for the "expiring" bucket.
const ExpiryWindowDays = 7

// PaymentInstallment is one discrete payment event recorded against a member
// record. IDs are unique within the record, not globally.
type PaymentInstallment struct {
	ID          string    `json:"id"`
	Amount      float64   `json:"amount"`
	PaymentMode string    `json:"paymentMode"`
	Notes       string    `json:"notes,omitempty"`
	PaidAt      time.Time `json:"paidAt"`
}

// MemberRecord is the denormalized ledger row. It covers both app-signed-up
// members (user_id set, mirrored by the sync engine) and walk-ins entered
// manually by an admin (user_id null).
//
// The member-records API is consumed by the admin dashboard, which expects
// camelCase keys; this is the documented contract for these routes.
type MemberRecord struct {
	ID                  int                  `json:"id"`
	UserID              *int                 `json:"userId"`
	Name                string               `json:"name"`
	Email               *string              `json:"email"`
	Phone               *string              `json:"phone"`
	PlanName            string               `json:"planName"`
	PlanTotalAmount     float64              `json:"planTotalAmount"`
	PaidAmount          float64              `json:"paidAmount"`
	RemainingAmount     float64              `json:"remainingAmount"` // derived, never stored
	PaymentInstallments []PaymentInstallment `json:"paymentInstallments"`
	MembershipStartDate *time.Time           `json:"membershipStartDate"`
	MembershipEndDate   *time.Time           `json:"membershipEndDate"`
	IsSignedUp          bool                 `json:"isSignedUp"`
	Notes               string               `json:"notes"`
	CreatedAt           time.Time            `json:"createdAt"`
	UpdatedAt           time.Time            `json:"updatedAt"`

	// Presentation-only fields, reassigned on every fetch.
	SrNo               int    `json:"srNo,omitempty"`
	SubscriptionStatus string `json:"subscriptionStatus,omitempty"`
	UserName           string `json:"userName,omitempty"`
	UserAvatar         string `json:"userAvatar,omitempty"`
}

// MemberSyncRow is one canonical user as seen by the reconciliation engine:
// a MEMBER-role user joined with their active membership, its plan, and the
// sum of all payments they ever made.
type MemberSyncRow struct {
	UserID    int
	Name      string
	Email     string
	Phone     string
	PlanName  string
	PlanPrice float64
	TotalPaid float64
	StartDate *time.Time
	EndDate   *time.Time
}

// MemberRecordStats are aggregate counts over the full (unfiltered) table.
type MemberRecordStats struct {
	TotalRecords        int     `json:"totalRecords"`
	SignedUp            int     `json:"signedUp"`
	Manual              int     `json:"manual"`
	ActiveSubscriptions int     `json:"activeSubscriptions"`
	ExpiringSoon        int     `json:"expiringSoon"`
	Expired             int     `json:"expired"`
	NoSubscription      int     `json:"noSubscription"`
	PendingPayment      int     `json:"pendingPayment"`
	TotalPlanAmount     float64 `json:"totalPlanAmount"`
	TotalCollected      float64 `json:"totalCollected"`
	TotalPending        float64 `json:"totalPending"`
}

// CreateMemberRecordRequest is the body for manual record creation. PaidAmount
// may seed an opening balance without a matching installment; after creation
// all payment changes go through the installment ledger.
type CreateMemberRecordRequest struct {
	Name                string               `json:"name"`
	Email               string               `json:"email"`
	Phone               string               `json:"phone"`
	PlanName            string               `json:"planName"`
	PlanTotalAmount     float64              `json:"planTotalAmount"`
	PaidAmount          float64              `json:"paidAmount"`
	PaymentInstallments []PaymentInstallment `json:"paymentInstallments"`
	MembershipStartDate *time.Time           `json:"membershipStartDate"`
	MembershipEndDate   *time.Time           `json:"membershipEndDate"`
	Notes               string               `json:"notes"`
}

// UpdateMemberRecordRequest is the body for admin edits. PaidAmount is
// intentionally absent: it is derived from the installment ledger.
type UpdateMemberRecordRequest struct {
	Name                string     `json:"name"`
	Email               string     `json:"email"`
	Phone               string     `json:"phone"`
	PlanName            string     `json:"planName"`
	PlanTotalAmount     float64    `json:"planTotalAmount"`
	MembershipStartDate *time.Time `json:"membershipStartDate"`
	MembershipEndDate   *time.Time `json:"membershipEndDate"`
	Notes               string     `json:"notes"`
}

// AddInstallmentRequest is the body for recording one payment against a record.
type AddInstallmentRequest struct {
	Amount      float64 `json:"amount"`
	PaymentMode string  `json:"paymentMode"`
	Notes       string  `json:"notes"`
}

// MemberRecordListResponse is the payload of GET /api/member-records.
type MemberRecordListResponse struct {
	Records []*MemberRecord    `json:"records"`
	Stats   *MemberRecordStats `json:"stats"`
	Synced  bool               `json:"synced"`
}

// NewInstallmentID returns a fresh installment token. xid is time-ordered, so
// tokens sort in creation order within a record.
func NewInstallmentID() string {
	return xid.New().String()
}

// InstallmentsFromPayments materializes canonical payment history (ordered
// oldest first) as an installment log. IDs are derived from the canonical
// payment id so repeated syncs produce identical logs.
func InstallmentsFromPayments(payments []*Payment) []PaymentInstallment {
	installments := make([]PaymentInstallment, 0, len(payments))
	for _, p := range payments {
		installments = append(installments, PaymentInstallment{
			ID:          fmt.Sprintf("pay-%d", p.ID),
			Amount:      p.Amount,
			PaymentMode: p.PaymentMode,
			Notes:       p.Notes,
			PaidAt:      p.PaidAt,
		})
	}
	return installments
}

// SumInstallments totals installment amounts using decimal arithmetic so the
// derived paid amount does not drift across repeated add/delete cycles.
func SumInstallments(installments []PaymentInstallment) float64 {
	total := decimal.Zero
	for _, inst := range installments {
		total = total.Add(decimal.NewFromFloat(inst.Amount))
	}
	f, _ := total.Float64()
	return f
}

// Remaining returns planTotal - paid without clamping: a negative value means
// the member overpaid, and the UI surfaces that state.
func Remaining(planTotal, paid float64) float64 {
	f, _ := decimal.NewFromFloat(planTotal).Sub(decimal.NewFromFloat(paid)).Float64()
	return f
}

// SubscriptionStatusFor derives the subscription bucket for an end date.
// Evaluation order matters: none, expired, expiring (inclusive 7-day window),
// active.
func SubscriptionStatusFor(endDate *time.Time, now time.Time) string {
	if endDate == nil {
		return SubscriptionNone
	}
	today := startOfDay(now)
	end := startOfDay(*endDate)
	switch {
	case end.Before(today):
		return SubscriptionExpired
	case !end.After(today.AddDate(0, 0, ExpiryWindowDays)):
		return SubscriptionExpiring
	default:
		return SubscriptionActive
	}
}

// SortPriority orders the listing so the most urgent rows surface first:
// expired 0, expiring 1, everything else (active or no subscription) 2.
func SortPriority(endDate *time.Time, now time.Time) int {
	switch SubscriptionStatusFor(endDate, now) {
	case SubscriptionExpired:
		return 0
	case SubscriptionExpiring:
		return 1
	default:
		return 2
	}
}

// ComputeDerived refreshes the derived presentation fields on a record.
func (r *MemberRecord) ComputeDerived(now time.Time) {
	r.RemainingAmount = Remaining(r.PlanTotalAmount, r.PaidAmount)
	r.SubscriptionStatus = SubscriptionStatusFor(r.MembershipEndDate, now)
}

// ApplyCanonical merges a canonical sync row into an existing ledger record.
// Identity fields are overwritten unconditionally (the app account is
// authoritative); financial fields and dates only when the incoming value is
// non-empty/non-zero, so canonical gaps never erase manual bookkeeping. The
// installment log is left untouched on this path.
func (r *MemberRecord) ApplyCanonical(row *MemberSyncRow, now time.Time) {
	uid := row.UserID
	r.UserID = &uid
	r.Name = row.Name
	email := row.Email
	r.Email = &email
	if row.Phone != "" {
		phone := row.Phone
		r.Phone = &phone
	} else {
		r.Phone = nil
	}
	if row.PlanName != "" {
		r.PlanName = row.PlanName
	}
	if row.PlanPrice > 0 {
		r.PlanTotalAmount = row.PlanPrice
	}
	if row.TotalPaid > 0 {
		r.PaidAmount = row.TotalPaid
	}
	if row.StartDate != nil {
		r.MembershipStartDate = row.StartDate
	}
	if row.EndDate != nil {
		r.MembershipEndDate = row.EndDate
	}
	r.IsSignedUp = true
	r.UpdatedAt = now
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
