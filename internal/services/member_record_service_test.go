package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gym-backend/internal/apperror"
	"gym-backend/internal/models"
)

var errFakeNotFound = errors.New("no rows")

type fakeRecordRepo struct {
	records   map[int]*models.MemberRecord
	nextID    int
	wipedLogs bool
	findErr   error
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: make(map[int]*models.MemberRecord), nextID: 1}
}

func (f *fakeRecordRepo) Get(ctx context.Context, id int) (*models.MemberRecord, error) {
	rec, ok := f.records[id]
	if !ok {
		return nil, apperror.NotFound("member record %d not found", id)
	}
	cp := *rec
	cp.PaymentInstallments = append([]models.PaymentInstallment(nil), rec.PaymentInstallments...)
	return &cp, nil
}

func (f *fakeRecordRepo) List(ctx context.Context, search, filter string) ([]*models.MemberRecord, error) {
	var out []*models.MemberRecord
	for i := 1; i < f.nextID; i++ {
		if rec, ok := f.records[i]; ok {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (f *fakeRecordRepo) Stats(ctx context.Context) (*models.MemberRecordStats, error) {
	return &models.MemberRecordStats{TotalRecords: len(f.records)}, nil
}

func (f *fakeRecordRepo) FindByEmail(ctx context.Context, email string, excludeID int) (*models.MemberRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, rec := range f.records {
		if rec.ID != excludeID && rec.Email != nil && strings.EqualFold(*rec.Email, email) {
			return rec, nil
		}
	}
	return nil, apperror.NotFound("no member record with email %s", email)
}

func (f *fakeRecordRepo) FindByPhone(ctx context.Context, phone string, excludeID int) (*models.MemberRecord, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	for _, rec := range f.records {
		if rec.ID != excludeID && rec.Phone != nil && *rec.Phone == phone {
			return rec, nil
		}
	}
	return nil, apperror.NotFound("no member record with phone %s", phone)
}

func (f *fakeRecordRepo) Insert(ctx context.Context, rec *models.MemberRecord) error {
	rec.ID = f.nextID
	f.nextID++
	cp := *rec
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeRecordRepo) Update(ctx context.Context, rec *models.MemberRecord) error {
	stored, ok := f.records[rec.ID]
	if !ok {
		return apperror.NotFound("member record %d not found", rec.ID)
	}
	cp := *rec
	// Installments and paid amount are not part of the update statement.
	cp.PaymentInstallments = stored.PaymentInstallments
	cp.PaidAmount = stored.PaidAmount
	f.records[rec.ID] = &cp
	return nil
}

func (f *fakeRecordRepo) Delete(ctx context.Context, id int) error {
	if _, ok := f.records[id]; !ok {
		return apperror.NotFound("member record %d not found", id)
	}
	delete(f.records, id)
	return nil
}

func (f *fakeRecordRepo) DeleteAll(ctx context.Context) error {
	f.records = make(map[int]*models.MemberRecord)
	return nil
}

func (f *fakeRecordRepo) ClearAllInstallments(ctx context.Context) error {
	for _, rec := range f.records {
		rec.PaymentInstallments = []models.PaymentInstallment{}
		rec.PaidAmount = 0
	}
	f.wipedLogs = true
	return nil
}

func (f *fakeRecordRepo) AddInstallment(ctx context.Context, recordID int, inst models.PaymentInstallment) (*models.MemberRecord, error) {
	rec, ok := f.records[recordID]
	if !ok {
		return nil, apperror.NotFound("member record %d not found", recordID)
	}
	rec.PaymentInstallments = append(rec.PaymentInstallments, inst)
	rec.PaidAmount = models.SumInstallments(rec.PaymentInstallments)
	return f.Get(ctx, recordID)
}

func (f *fakeRecordRepo) DeleteInstallment(ctx context.Context, recordID int, installmentID string) (*models.MemberRecord, error) {
	rec, ok := f.records[recordID]
	if !ok {
		return nil, apperror.NotFound("member record %d not found", recordID)
	}
	for i, inst := range rec.PaymentInstallments {
		if inst.ID == installmentID {
			rec.PaymentInstallments = append(rec.PaymentInstallments[:i], rec.PaymentInstallments[i+1:]...)
			rec.PaidAmount = models.SumInstallments(rec.PaymentInstallments)
			return f.Get(ctx, recordID)
		}
	}
	return nil, apperror.NotFound("payment installment %s not found", installmentID)
}

func (f *fakeRecordRepo) ClearInstallments(ctx context.Context, recordID int) (*models.MemberRecord, error) {
	rec, ok := f.records[recordID]
	if !ok {
		return nil, apperror.NotFound("member record %d not found", recordID)
	}
	rec.PaymentInstallments = []models.PaymentInstallment{}
	rec.PaidAmount = 0
	return f.Get(ctx, recordID)
}

type fakeMemberLookup struct {
	user *models.User
}

func (f *fakeMemberLookup) FindMemberByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error) {
	if f.user == nil {
		return nil, errFakeNotFound
	}
	return f.user, nil
}

type fakePaymentWiper struct {
	wiped bool
}

func (f *fakePaymentWiper) DeleteAll(ctx context.Context) error {
	f.wiped = true
	return nil
}

type noopSyncer struct{}

func (noopSyncer) SyncIfStale(ctx context.Context) (bool, error) { return false, nil }
func (noopSyncer) Sync(ctx context.Context) (int, error)         { return 0, nil }

type recordingSyncer struct {
	syncs int
}

func (r *recordingSyncer) SyncIfStale(ctx context.Context) (bool, error) { return false, nil }

func (r *recordingSyncer) Sync(ctx context.Context) (int, error) {
	r.syncs++
	return 0, nil
}

func newTestRecordService(repo *fakeRecordRepo, lookup *fakeMemberLookup, wiper *fakePaymentWiper) *MemberRecordService {
	s := NewMemberRecordService(repo, lookup, wiper, noopSyncer{})
	s.clock = &fakeClock{t: time.Now()}
	return s
}

func TestCreateManualRecordWithOpeningBalance(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	rec, err := s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name:            "Walk In",
		Email:           "Walkin@Example.com",
		PlanName:        "Half Yearly",
		PlanTotalAmount: 6000,
		PaidAmount:      2000,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if rec.PaidAmount != 2000 {
		t.Fatalf("opening balance not kept, paid=%v", rec.PaidAmount)
	}
	if rec.RemainingAmount != 4000 {
		t.Fatalf("expected remaining 4000, got %v", rec.RemainingAmount)
	}
	if len(rec.PaymentInstallments) != 0 {
		t.Fatalf("opening balance must not create installments, got %d", len(rec.PaymentInstallments))
	}
	if rec.IsSignedUp {
		t.Fatal("manual record must not be marked signed up")
	}
	if *rec.Email != "walkin@example.com" {
		t.Fatalf("email not lowercased: %s", *rec.Email)
	}
}

func TestCreateRequiresName(t *testing.T) {
	s := newTestRecordService(newFakeRecordRepo(), &fakeMemberLookup{}, &fakePaymentWiper{})

	_, err := s.Create(context.Background(), &models.CreateMemberRecordRequest{Name: "   "})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRejectsDuplicateEmailAndPhone(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	if _, err := s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name: "First", Email: "dup@example.com", Phone: "9000000001",
	}); err != nil {
		t.Fatalf("seed create failed: %v", err)
	}

	_, err := s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name: "Second", Email: "DUP@example.com",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("duplicate email should be rejected, got %v", err)
	}

	_, err = s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name: "Third", Phone: "9000000001",
	})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("duplicate phone should be rejected, got %v", err)
	}
}

func TestCreateAutoLinksMatchingAccount(t *testing.T) {
	repo := newFakeRecordRepo()
	lookup := &fakeMemberLookup{user: &models.User{ID: 77, Role: models.RoleMember}}
	s := newTestRecordService(repo, lookup, &fakePaymentWiper{})

	rec, err := s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name: "Linked", Email: "linked@example.com",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if rec.UserID == nil || *rec.UserID != 77 {
		t.Fatalf("record not linked to account: %+v", rec.UserID)
	}
	if !rec.IsSignedUp {
		t.Fatal("linked record should be marked signed up")
	}
}

func TestAddInstallmentDerivesPaidAmount(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	rec, err := s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name: "Member", PlanTotalAmount: 6000, PaidAmount: 2000,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	got, err := s.AddInstallment(context.Background(), rec.ID, &models.AddInstallmentRequest{
		Amount: 1500, PaymentMode: "upi",
	})
	if err != nil {
		t.Fatalf("AddInstallment failed: %v", err)
	}

	if len(got.PaymentInstallments) != 1 {
		t.Fatalf("expected 1 installment, got %d", len(got.PaymentInstallments))
	}
	if got.PaidAmount != 1500 {
		t.Fatalf("paid amount must be derived from the ledger, got %v", got.PaidAmount)
	}
	if got.RemainingAmount != 4500 {
		t.Fatalf("expected remaining 4500, got %v", got.RemainingAmount)
	}
	if got.PaymentInstallments[0].PaymentMode != "upi" {
		t.Fatalf("unexpected mode %s", got.PaymentInstallments[0].PaymentMode)
	}
}

func TestAddInstallmentRejectsNonPositiveAmount(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	rec, _ := s.Create(context.Background(), &models.CreateMemberRecordRequest{Name: "Member"})

	for _, amount := range []float64{0, -100} {
		_, err := s.AddInstallment(context.Background(), rec.ID, &models.AddInstallmentRequest{Amount: amount})
		if !errors.Is(err, apperror.ErrValidation) {
			t.Fatalf("amount %v should be rejected, got %v", amount, err)
		}
	}
}

func TestDeleteInstallmentNotFound(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	rec, _ := s.Create(context.Background(), &models.CreateMemberRecordRequest{Name: "Member"})

	_, err := s.DeleteInstallment(context.Background(), rec.ID, "missing-id")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestDeleteAndReAddInstallmentKeepsTotalsExact(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	rec, _ := s.Create(context.Background(), &models.CreateMemberRecordRequest{Name: "Member", PlanTotalAmount: 1000})

	first, err := s.AddInstallment(context.Background(), rec.ID, &models.AddInstallmentRequest{Amount: 333.33})
	if err != nil {
		t.Fatalf("AddInstallment failed: %v", err)
	}
	second, err := s.AddInstallment(context.Background(), rec.ID, &models.AddInstallmentRequest{Amount: 333.33})
	if err != nil {
		t.Fatalf("AddInstallment failed: %v", err)
	}
	if second.PaidAmount != 666.66 {
		t.Fatalf("expected 666.66 paid, got %v", second.PaidAmount)
	}

	got, err := s.DeleteInstallment(context.Background(), rec.ID, first.PaymentInstallments[0].ID)
	if err != nil {
		t.Fatalf("DeleteInstallment failed: %v", err)
	}
	if got.PaidAmount != 333.33 {
		t.Fatalf("expected 333.33 paid after delete, got %v", got.PaidAmount)
	}
}

func TestDeleteRejectsSignedUpRecord(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	uid := 5
	repo.Insert(context.Background(), &models.MemberRecord{Name: "Synced", UserID: &uid, IsSignedUp: true})

	err := s.Delete(context.Background(), 1)
	if !errors.Is(err, apperror.ErrConflict) {
		t.Fatalf("expected conflict error, got %v", err)
	}
	if len(repo.records) != 1 {
		t.Fatal("record must survive the rejected delete")
	}
}

func TestDeleteManualRecord(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	rec, _ := s.Create(context.Background(), &models.CreateMemberRecordRequest{Name: "Walk In"})

	if err := s.Delete(context.Background(), rec.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if len(repo.records) != 0 {
		t.Fatal("record was not deleted")
	}
}

func TestUpdateCannotChangePaidAmount(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	rec, _ := s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name: "Member", PlanTotalAmount: 6000, PaidAmount: 2000,
	})

	got, err := s.Update(context.Background(), rec.ID, &models.UpdateMemberRecordRequest{
		Name: "Member Renamed", PlanName: "Annual", PlanTotalAmount: 12000,
	})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if got.PaidAmount != 2000 {
		t.Fatalf("paid amount changed through update: %v", got.PaidAmount)
	}
	if got.PlanTotalAmount != 12000 || got.Name != "Member Renamed" {
		t.Fatalf("editable fields not applied: %+v", got)
	}
	if got.RemainingAmount != 10000 {
		t.Fatalf("expected remaining 10000, got %v", got.RemainingAmount)
	}
}

func TestBulkResetSyncRebuildsFromScratch(t *testing.T) {
	repo := newFakeRecordRepo()
	syncer := &recordingSyncer{}
	s := NewMemberRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{}, syncer)
	s.clock = &fakeClock{t: time.Now()}

	uid := 1
	repo.Insert(context.Background(), &models.MemberRecord{Name: "Synced", UserID: &uid, IsSignedUp: true})
	repo.Insert(context.Background(), &models.MemberRecord{Name: "Manual"})

	if err := s.Bulk(context.Background(), BulkResetSync); err != nil {
		t.Fatalf("reset-sync failed: %v", err)
	}
	if len(repo.records) != 0 {
		t.Fatalf("reset-sync must drop every row before rebuilding, %d remain", len(repo.records))
	}
	if syncer.syncs != 1 {
		t.Fatalf("reset-sync must re-run reconciliation immediately, Sync ran %d times", syncer.syncs)
	}
}

func TestBulkActions(t *testing.T) {
	repo := newFakeRecordRepo()
	wiper := &fakePaymentWiper{}
	s := newTestRecordService(repo, &fakeMemberLookup{}, wiper)

	repo.Insert(context.Background(), &models.MemberRecord{Name: "Member", PaidAmount: 500,
		PaymentInstallments: []models.PaymentInstallment{{ID: "x", Amount: 500}}})

	if err := s.Bulk(context.Background(), BulkClearPayments); err != nil {
		t.Fatalf("clear-payments failed: %v", err)
	}
	if !repo.wipedLogs || !wiper.wiped {
		t.Fatal("clear-payments must wipe installment logs and canonical payments")
	}

	if err := s.Bulk(context.Background(), BulkClearAll); err != nil {
		t.Fatalf("clear-all failed: %v", err)
	}
	if len(repo.records) != 0 {
		t.Fatal("clear-all must empty the ledger")
	}

	if err := s.Bulk(context.Background(), "explode"); !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("unknown action should be rejected, got %v", err)
	}
}

func TestCreatePropagatesDuplicateCheckFailure(t *testing.T) {
	repo := newFakeRecordRepo()
	repo.findErr = errors.New("connection reset")
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	_, err := s.Create(context.Background(), &models.CreateMemberRecordRequest{
		Name: "Member", Email: "member@example.com",
	})
	if !errors.Is(err, repo.findErr) {
		t.Fatalf("lookup failure must fail the create, got %v", err)
	}
	if len(repo.records) != 0 {
		t.Fatal("record must not be inserted when the duplicate check fails")
	}
}

func TestListDecoratesRecords(t *testing.T) {
	repo := newFakeRecordRepo()
	s := newTestRecordService(repo, &fakeMemberLookup{}, &fakePaymentWiper{})

	end := time.Now().AddDate(0, 0, -2)
	repo.Insert(context.Background(), &models.MemberRecord{Name: "Expired", PlanTotalAmount: 1000, PaidAmount: 400, MembershipEndDate: &end})
	repo.Insert(context.Background(), &models.MemberRecord{Name: "NoPlan"})

	resp, err := s.List(context.Background(), "", "", false)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(resp.Records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(resp.Records))
	}
	if resp.Records[0].SrNo != 1 || resp.Records[1].SrNo != 2 {
		t.Fatalf("serial numbers not assigned: %d, %d", resp.Records[0].SrNo, resp.Records[1].SrNo)
	}
	if resp.Records[0].SubscriptionStatus != models.SubscriptionExpired {
		t.Fatalf("status not derived: %s", resp.Records[0].SubscriptionStatus)
	}
	if resp.Records[0].RemainingAmount != 600 {
		t.Fatalf("remaining not derived: %v", resp.Records[0].RemainingAmount)
	}
	if resp.Records[1].SubscriptionStatus != models.SubscriptionNone {
		t.Fatalf("nil end date should derive none, got %s", resp.Records[1].SubscriptionStatus)
	}
	if resp.Stats == nil || resp.Stats.TotalRecords != 2 {
		t.Fatalf("stats missing or wrong: %+v", resp.Stats)
	}
}
