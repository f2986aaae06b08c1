package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var now = time.Date(2025, 6, 15, 10, 30, 0, 0, time.UTC)

func datePtr(t time.Time) *time.Time { return &t }

func TestSubscriptionStatusFor(t *testing.T) {
	cases := []struct {
		name string
		end  *time.Time
		want string
	}{
		{"no end date", nil, SubscriptionNone},
		{"ended yesterday", datePtr(now.AddDate(0, 0, -1)), SubscriptionExpired},
		{"ends today", datePtr(now), SubscriptionExpiring},
		{"ends in three days", datePtr(now.AddDate(0, 0, 3)), SubscriptionExpiring},
		{"ends on window boundary", datePtr(now.AddDate(0, 0, 7)), SubscriptionExpiring},
		{"ends past the window", datePtr(now.AddDate(0, 0, 8)), SubscriptionActive},
		{"ends next year", datePtr(now.AddDate(1, 0, 0)), SubscriptionActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, SubscriptionStatusFor(tc.end, now))
		})
	}
}

func TestSubscriptionStatusIgnoresTimeOfDay(t *testing.T) {
	// An end date stored at 23:59 on the 7th day is still inside the window.
	end := time.Date(now.Year(), now.Month(), now.Day()+7, 23, 59, 0, 0, time.UTC)
	require.Equal(t, SubscriptionExpiring, SubscriptionStatusFor(&end, now))
}

func TestSortPriority(t *testing.T) {
	require.Equal(t, 0, SortPriority(datePtr(now.AddDate(0, 0, -1)), now))
	require.Equal(t, 1, SortPriority(datePtr(now.AddDate(0, 0, 3)), now))
	require.Equal(t, 2, SortPriority(datePtr(now.AddDate(0, 1, 0)), now))
	require.Equal(t, 2, SortPriority(nil, now))
}

func TestSumInstallmentsAvoidsFloatDrift(t *testing.T) {
	installments := []PaymentInstallment{
		{Amount: 0.1}, {Amount: 0.2},
	}
	require.Equal(t, 0.3, SumInstallments(installments))
	require.Equal(t, 0.0, SumInstallments(nil))
}

func TestRemainingAllowsOverpayment(t *testing.T) {
	require.Equal(t, 4000.0, Remaining(6000, 2000))
	require.Equal(t, -200.0, Remaining(1000, 1200))
	require.Equal(t, 0.0, Remaining(0, 0))
}

func TestInstallmentsFromPaymentsIsDeterministic(t *testing.T) {
	paidAt := now.AddDate(0, 0, -10)
	payments := []*Payment{
		{ID: 7, Amount: 1000, PaymentMode: "cash", PaidAt: paidAt},
		{ID: 9, Amount: 500, PaymentMode: "online", PaidAt: now},
	}

	first := InstallmentsFromPayments(payments)
	second := InstallmentsFromPayments(payments)

	require.Equal(t, first, second)
	require.Equal(t, "pay-7", first[0].ID)
	require.Equal(t, "pay-9", first[1].ID)
	require.Equal(t, 1500.0, SumInstallments(first))
}

func TestApplyCanonicalOverwritesIdentity(t *testing.T) {
	oldEmail := "old@example.com"
	rec := &MemberRecord{Name: "Old Name", Email: &oldEmail}
	row := &MemberSyncRow{
		UserID: 42,
		Name:   "New Name",
		Email:  "new@example.com",
		Phone:  "9876543210",
	}

	rec.ApplyCanonical(row, now)

	require.Equal(t, "New Name", rec.Name)
	require.Equal(t, "new@example.com", *rec.Email)
	require.Equal(t, "9876543210", *rec.Phone)
	require.Equal(t, 42, *rec.UserID)
	require.True(t, rec.IsSignedUp)
	require.Equal(t, now, rec.UpdatedAt)
}

func TestApplyCanonicalKeepsManualDataOnGaps(t *testing.T) {
	start := now.AddDate(0, -1, 0)
	end := now.AddDate(0, 1, 0)
	rec := &MemberRecord{
		Name:                "Walk In",
		PlanName:            "Annual Gold",
		PlanTotalAmount:     12000,
		PaidAmount:          5000,
		MembershipStartDate: &start,
		MembershipEndDate:   &end,
	}
	row := &MemberSyncRow{
		UserID: 7,
		Name:   "Walk In",
		Email:  "walkin@example.com",
		// No plan, no payments, no dates on the canonical side.
	}

	rec.ApplyCanonical(row, now)

	require.Equal(t, "Annual Gold", rec.PlanName)
	require.Equal(t, 12000.0, rec.PlanTotalAmount)
	require.Equal(t, 5000.0, rec.PaidAmount)
	require.Equal(t, &start, rec.MembershipStartDate)
	require.Equal(t, &end, rec.MembershipEndDate)
	require.Nil(t, rec.Phone)
	require.True(t, rec.IsSignedUp)
}

func TestApplyCanonicalNonZeroValuesWin(t *testing.T) {
	rec := &MemberRecord{
		Name:            "Member",
		PlanName:        "Monthly",
		PlanTotalAmount: 1500,
		PaidAmount:      500,
	}
	newEnd := now.AddDate(0, 3, 0)
	row := &MemberSyncRow{
		UserID:    3,
		Name:      "Member",
		Email:     "member@example.com",
		PlanName:  "Quarterly",
		PlanPrice: 4000,
		TotalPaid: 4000,
		EndDate:   &newEnd,
	}

	rec.ApplyCanonical(row, now)

	require.Equal(t, "Quarterly", rec.PlanName)
	require.Equal(t, 4000.0, rec.PlanTotalAmount)
	require.Equal(t, 4000.0, rec.PaidAmount)
	require.Equal(t, &newEnd, rec.MembershipEndDate)
}

func TestComputeDerived(t *testing.T) {
	end := now.AddDate(0, 0, 2)
	rec := &MemberRecord{
		PlanTotalAmount:   6000,
		PaidAmount:        3500,
		MembershipEndDate: &end,
	}

	rec.ComputeDerived(now)

	require.Equal(t, 2500.0, rec.RemainingAmount)
	require.Equal(t, SubscriptionExpiring, rec.SubscriptionStatus)
}

func TestNewInstallmentIDUnique(t *testing.T) {
	a, b := NewInstallmentID(), NewInstallmentID()
	require.NotEmpty(t, a)
	require.NotEqual(t, a, b)
}
