package models

import "time"

// Membership status values.
const (
	MembershipActive    = "active"
	MembershipCancelled = "cancelled"
)

type Membership struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	PlanID    *int       `json:"plan_id"`
	PlanName  string     `json:"plan_name,omitempty"` // Joined from plans table
	StartDate time.Time  `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Status    string     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CreateMembershipRequest assigns a plan to a user. EndDate is computed from
// the plan duration when omitted.
type CreateMembershipRequest struct {
	UserID    int        `json:"user_id"`
	PlanID    int        `json:"plan_id"`
	StartDate *time.Time `json:"start_date,omitempty"`
	EndDate   *time.Time `json:"end_date,omitempty"`
}
