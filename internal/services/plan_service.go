package services

import (
	"context"
	"strings"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/repositories"
)

type PlanService struct {
	Repo *repositories.PlanRepository
}

func NewPlanService(repo *repositories.PlanRepository) *PlanService {
	return &PlanService{Repo: repo}
}

func (s *PlanService) Create(ctx context.Context, req *models.CreatePlanRequest) (*models.Plan, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperror.Validation("plan name is required")
	}
	if req.Price < 0 {
		return nil, apperror.Validation("price cannot be negative")
	}
	if req.DurationDays <= 0 {
		return nil, apperror.Validation("duration must be positive")
	}

	plan := &models.Plan{
		Name:         strings.TrimSpace(req.Name),
		Price:        req.Price,
		DurationDays: req.DurationDays,
	}
	if err := s.Repo.Create(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) Get(ctx context.Context, id int) (*models.Plan, error) {
	plan, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, apperror.NotFound("plan %d not found", id)
	}
	return plan, nil
}

func (s *PlanService) List(ctx context.Context) ([]*models.Plan, error) {
	return s.Repo.List(ctx)
}

func (s *PlanService) Update(ctx context.Context, id int, req *models.UpdatePlanRequest) (*models.Plan, error) {
	plan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(req.Name) != "" {
		plan.Name = strings.TrimSpace(req.Name)
	}
	if req.Price >= 0 {
		plan.Price = req.Price
	}
	if req.DurationDays > 0 {
		plan.DurationDays = req.DurationDays
	}
	if req.IsActive != nil {
		plan.IsActive = *req.IsActive
	}

	if err := s.Repo.Update(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

func (s *PlanService) Delete(ctx context.Context, id int) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.Repo.Delete(ctx, id)
}
