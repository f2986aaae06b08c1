package services

import (
	"context"
	"strings"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
	"gym-backend/internal/repositories"
)

type PaymentService struct {
	Repo     *repositories.PaymentRepository
	UserRepo *repositories.UserRepository
}

func NewPaymentService(repo *repositories.PaymentRepository, userRepo *repositories.UserRepository) *PaymentService {
	return &PaymentService{Repo: repo, UserRepo: userRepo}
}

// Record stores a canonical payment. The ledger picks it up on the next sync
// pass; nothing here writes to member_records directly.
func (s *PaymentService) Record(ctx context.Context, req *models.CreatePaymentRequest) (*models.Payment, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("payment amount must be positive")
	}
	if _, err := s.UserRepo.Get(ctx, req.UserID); err != nil {
		return nil, apperror.NotFound("user %d not found", req.UserID)
	}

	mode := strings.TrimSpace(req.PaymentMode)
	if mode == "" {
		mode = "cash"
	}

	p := &models.Payment{
		UserID:       req.UserID,
		MembershipID: req.MembershipID,
		Amount:       req.Amount,
		PaymentMode:  mode,
		Notes:        req.Notes,
	}
	if err := s.Repo.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) List(ctx context.Context) ([]*models.Payment, error) {
	return s.Repo.List(ctx)
}

func (s *PaymentService) ListByUser(ctx context.Context, userID int) ([]*models.Payment, error) {
	return s.Repo.ListByUserAsc(ctx, userID)
}

func (s *PaymentService) Delete(ctx context.Context, id int) error {
	return s.Repo.Delete(ctx, id)
}
