package services

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"

	"gym-backend/internal/apperror"
	"gym-backend/internal/cache"
	"gym-backend/internal/models"
)

type recordRepo interface {
	Get(ctx context.Context, id int) (*models.MemberRecord, error)
	List(ctx context.Context, search, filter string) ([]*models.MemberRecord, error)
	Stats(ctx context.Context) (*models.MemberRecordStats, error)
	FindByEmail(ctx context.Context, email string, excludeID int) (*models.MemberRecord, error)
	FindByPhone(ctx context.Context, phone string, excludeID int) (*models.MemberRecord, error)
	Insert(ctx context.Context, rec *models.MemberRecord) error
	Update(ctx context.Context, rec *models.MemberRecord) error
	Delete(ctx context.Context, id int) error
	DeleteAll(ctx context.Context) error
	ClearAllInstallments(ctx context.Context) error
	AddInstallment(ctx context.Context, recordID int, inst models.PaymentInstallment) (*models.MemberRecord, error)
	DeleteInstallment(ctx context.Context, recordID int, installmentID string) (*models.MemberRecord, error)
	ClearInstallments(ctx context.Context, recordID int) (*models.MemberRecord, error)
}

type memberLookup interface {
	FindMemberByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error)
}

type ledgerSyncer interface {
	SyncIfStale(ctx context.Context) (bool, error)
	Sync(ctx context.Context) (int, error)
}

type paymentWiper interface {
	DeleteAll(ctx context.Context) error
}

// Bulk destructive actions on the whole ledger.
const (
	BulkClearPayments = "clear-payments"
	BulkClearAll      = "clear-all"
	BulkResetSync     = "reset-sync"
)

// MemberRecordService owns the ledger API semantics: listing with on-demand
// sync, manual record management, the installment ledger and the bulk actions.
type MemberRecordService struct {
	records  recordRepo
	users    memberLookup
	payments paymentWiper
	syncer   ledgerSyncer
	clock    Clock
}

func NewMemberRecordService(records recordRepo, users memberLookup, payments paymentWiper, syncer ledgerSyncer) *MemberRecordService {
	return &MemberRecordService{
		records:  records,
		users:    users,
		payments: payments,
		syncer:   syncer,
		clock:    realClock{},
	}
}

// List serves the dashboard listing. A stale ledger is refreshed first
// (forced when the caller asks); a sync failure degrades to serving the
// current ledger rather than failing the request.
func (s *MemberRecordService) List(ctx context.Context, search, filter string, forceSync bool) (*models.MemberRecordListResponse, error) {
	synced := false
	if s.syncer != nil {
		var err error
		if forceSync {
			_, err = s.syncer.Sync(ctx)
			synced = err == nil
		} else {
			synced, err = s.syncer.SyncIfStale(ctx)
		}
		if err != nil {
			log.Printf("[MemberRecords] sync before listing failed, serving current ledger: %v", err)
		}
	}

	records, err := s.records.List(ctx, strings.TrimSpace(search), filter)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for i, rec := range records {
		rec.ComputeDerived(now)
		rec.SrNo = i + 1
	}

	stats, err := s.stats(ctx)
	if err != nil {
		return nil, err
	}

	if records == nil {
		records = []*models.MemberRecord{}
	}
	return &models.MemberRecordListResponse{Records: records, Stats: stats, Synced: synced}, nil
}

func (s *MemberRecordService) Get(ctx context.Context, id int) (*models.MemberRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.ComputeDerived(s.clock.Now())
	return rec, nil
}

// stats serves aggregates from the Redis cache when fresh, hitting the
// database otherwise.
func (s *MemberRecordService) stats(ctx context.Context) (*models.MemberRecordStats, error) {
	if data, ok := cache.GetStats(ctx); ok {
		var cached models.MemberRecordStats
		if err := json.Unmarshal(data, &cached); err == nil {
			return &cached, nil
		}
	}

	stats, err := s.records.Stats(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(stats); err == nil {
		cache.SetStats(ctx, data)
	}
	return stats, nil
}

// Create adds a walk-in record. When the email or phone matches an existing
// member account the record is linked to it immediately instead of waiting
// for the next sync pass. PaidAmount may seed an opening balance; once the
// record exists only installment operations change it.
func (s *MemberRecordService) Create(ctx context.Context, req *models.CreateMemberRecordRequest) (*models.MemberRecord, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if req.PlanTotalAmount < 0 || req.PaidAmount < 0 {
		return nil, apperror.Validation("amounts cannot be negative")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if err := s.checkDuplicates(ctx, email, phone, 0); err != nil {
		return nil, err
	}

	rec := &models.MemberRecord{
		Name:                name,
		PlanName:            strings.TrimSpace(req.PlanName),
		PlanTotalAmount:     req.PlanTotalAmount,
		PaidAmount:          req.PaidAmount,
		PaymentInstallments: []models.PaymentInstallment{},
		MembershipStartDate: req.MembershipStartDate,
		MembershipEndDate:   req.MembershipEndDate,
		Notes:               req.Notes,
	}
	if email != "" {
		rec.Email = &email
	}
	if phone != "" {
		rec.Phone = &phone
	}

	if len(req.PaymentInstallments) > 0 {
		now := s.clock.Now()
		for _, inst := range req.PaymentInstallments {
			if inst.Amount <= 0 {
				return nil, apperror.Validation("installment amount must be positive")
			}
			if inst.ID == "" {
				inst.ID = models.NewInstallmentID()
			}
			if inst.PaidAt.IsZero() {
				inst.PaidAt = now
			}
			rec.PaymentInstallments = append(rec.PaymentInstallments, inst)
		}
		rec.PaidAmount = models.SumInstallments(rec.PaymentInstallments)
	}

	if s.users != nil && (email != "" || phone != "") {
		if user, err := s.users.FindMemberByEmailOrPhone(ctx, email, phone); err == nil && user != nil {
			uid := user.ID
			rec.UserID = &uid
			rec.IsSignedUp = true
		}
	}

	if err := s.records.Insert(ctx, rec); err != nil {
		return nil, err
	}
	cache.InvalidateStats(ctx)

	rec.ComputeDerived(s.clock.Now())
	return rec, nil
}

// Update edits a record's identity, plan and dates. The paid amount is not
// editable here: it belongs to the installment ledger.
func (s *MemberRecordService) Update(ctx context.Context, id int, req *models.UpdateMemberRecordRequest) (*models.MemberRecord, error) {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, apperror.Validation("name is required")
	}
	if req.PlanTotalAmount < 0 {
		return nil, apperror.Validation("amounts cannot be negative")
	}

	email := strings.TrimSpace(strings.ToLower(req.Email))
	phone := strings.TrimSpace(req.Phone)
	if err := s.checkDuplicates(ctx, email, phone, id); err != nil {
		return nil, err
	}

	rec.Name = name
	rec.Email = nil
	if email != "" {
		rec.Email = &email
	}
	rec.Phone = nil
	if phone != "" {
		rec.Phone = &phone
	}
	rec.PlanName = strings.TrimSpace(req.PlanName)
	rec.PlanTotalAmount = req.PlanTotalAmount
	rec.MembershipStartDate = req.MembershipStartDate
	rec.MembershipEndDate = req.MembershipEndDate
	rec.Notes = req.Notes

	if err := s.records.Update(ctx, rec); err != nil {
		return nil, err
	}
	cache.InvalidateStats(ctx)

	rec.ComputeDerived(s.clock.Now())
	return rec, nil
}

// Delete removes a manual record. Synced records are owned by the sync engine
// and would reappear on the next pass, so deleting them is rejected.
func (s *MemberRecordService) Delete(ctx context.Context, id int) error {
	rec, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}
	if rec.IsSignedUp {
		return apperror.Conflict("record %d belongs to a signed-up member, delete the member account instead", id)
	}
	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateStats(ctx)
	return nil
}

// AddInstallment records one payment against a record.
func (s *MemberRecordService) AddInstallment(ctx context.Context, recordID int, req *models.AddInstallmentRequest) (*models.MemberRecord, error) {
	if req.Amount <= 0 {
		return nil, apperror.Validation("installment amount must be positive")
	}
	mode := strings.TrimSpace(req.PaymentMode)
	if mode == "" {
		mode = "cash"
	}

	inst := models.PaymentInstallment{
		ID:          models.NewInstallmentID(),
		Amount:      req.Amount,
		PaymentMode: mode,
		Notes:       req.Notes,
		PaidAt:      s.clock.Now(),
	}
	rec, err := s.records.AddInstallment(ctx, recordID, inst)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStats(ctx)

	rec.ComputeDerived(s.clock.Now())
	return rec, nil
}

func (s *MemberRecordService) DeleteInstallment(ctx context.Context, recordID int, installmentID string) (*models.MemberRecord, error) {
	rec, err := s.records.DeleteInstallment(ctx, recordID, installmentID)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStats(ctx)

	rec.ComputeDerived(s.clock.Now())
	return rec, nil
}

// ClearPayments wipes one record's installment log.
func (s *MemberRecordService) ClearPayments(ctx context.Context, recordID int) (*models.MemberRecord, error) {
	rec, err := s.records.ClearInstallments(ctx, recordID)
	if err != nil {
		return nil, err
	}
	cache.InvalidateStats(ctx)

	rec.ComputeDerived(s.clock.Now())
	return rec, nil
}

// Bulk runs one of the ledger-wide destructive actions. Canonical payments
// are wiped together with the installment logs where leaving them would make
// the next sync pass immediately undo the action.
func (s *MemberRecordService) Bulk(ctx context.Context, action string) error {
	switch action {
	case BulkClearPayments:
		if err := s.records.ClearAllInstallments(ctx); err != nil {
			return err
		}
		if s.payments != nil {
			if err := s.payments.DeleteAll(ctx); err != nil {
				return err
			}
		}
	case BulkClearAll:
		if err := s.records.DeleteAll(ctx); err != nil {
			return err
		}
		if s.payments != nil {
			if err := s.payments.DeleteAll(ctx); err != nil {
				return err
			}
		}
	case BulkResetSync:
		// Full rebuild: drop every row, then reconcile from the canonical
		// tables immediately rather than waiting out the throttle window.
		if err := s.records.DeleteAll(ctx); err != nil {
			return err
		}
		if s.syncer != nil {
			if _, err := s.syncer.Sync(ctx); err != nil {
				return err
			}
		}
	default:
		return apperror.Validation("unknown bulk action %q", action)
	}
	cache.InvalidateStats(ctx)
	return nil
}

func (s *MemberRecordService) checkDuplicates(ctx context.Context, email, phone string, excludeID int) error {
	if email != "" {
		_, err := s.records.FindByEmail(ctx, email, excludeID)
		switch {
		case err == nil:
			return apperror.Validation("a member record with email %s already exists", email)
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}
	}
	if phone != "" {
		_, err := s.records.FindByPhone(ctx, phone, excludeID)
		switch {
		case err == nil:
			return apperror.Validation("a member record with phone %s already exists", phone)
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}
	}
	return nil
}
