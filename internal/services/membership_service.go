package services

import (
	"context"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/repositories"
	"gym-backend/internal/timeutil"
)

type MembershipService struct {
	Repo     *repositories.MembershipRepository
	PlanRepo *repositories.PlanRepository
}

func NewMembershipService(repo *repositories.MembershipRepository, planRepo *repositories.PlanRepository) *MembershipService {
	return &MembershipService{Repo: repo, PlanRepo: planRepo}
}

// Assign gives the user a plan. Any previous active membership is cancelled
// first so a user carries at most one. The end date defaults to the start
// plus the plan duration.
func (s *MembershipService) Assign(ctx context.Context, req *models.CreateMembershipRequest) (*models.Membership, error) {
	plan, err := s.PlanRepo.Get(ctx, req.PlanID)
	if err != nil {
		return nil, apperror.NotFound("plan %d not found", req.PlanID)
	}
	if !plan.IsActive {
		return nil, apperror.Validation("plan %s is no longer offered", plan.Name)
	}

	start := timeutil.StartOfDay(timeutil.Now())
	if req.StartDate != nil {
		start = timeutil.StartOfDay(*req.StartDate)
	}
	end := start.AddDate(0, 0, plan.DurationDays)
	if req.EndDate != nil {
		end = timeutil.StartOfDay(*req.EndDate)
	}
	if end.Before(start) {
		return nil, apperror.Validation("end date cannot precede start date")
	}

	if err := s.Repo.CancelActive(ctx, req.UserID); err != nil {
		return nil, err
	}

	planID := plan.ID
	m := &models.Membership{
		UserID:    req.UserID,
		PlanID:    &planID,
		PlanName:  plan.Name,
		StartDate: start,
		EndDate:   &end,
		Status:    models.MembershipActive,
	}
	if err := s.Repo.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (s *MembershipService) ListByUser(ctx context.Context, userID int) ([]*models.Membership, error) {
	return s.Repo.ListByUser(ctx, userID)
}

func (s *MembershipService) Cancel(ctx context.Context, id int) error {
	m, err := s.Repo.Get(ctx, id)
	if err != nil {
		return apperror.NotFound("membership %d not found", id)
	}
	m.Status = models.MembershipCancelled
	return s.Repo.CancelActive(ctx, m.UserID)
}
