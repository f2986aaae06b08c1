package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"gym-backend/internal/models"
	"gym-backend/internal/ws"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

type fakeMemberSource struct {
	rows      []*models.MemberSyncRow
	emails    []string
	rowsErr   error
	emailsErr error
}

func (f *fakeMemberSource) ListMemberSyncRows(ctx context.Context) ([]*models.MemberSyncRow, error) {
	return f.rows, f.rowsErr
}

func (f *fakeMemberSource) ListMemberEmails(ctx context.Context) ([]string, error) {
	return f.emails, f.emailsErr
}

type fakePaymentSource struct {
	byUser map[int][]*models.Payment
	errFor map[int]error
}

func (f *fakePaymentSource) ListByUserAsc(ctx context.Context, userID int) ([]*models.Payment, error) {
	if err := f.errFor[userID]; err != nil {
		return nil, err
	}
	return f.byUser[userID], nil
}

// fakeRecordStore mirrors the repository merge semantics in memory, keyed by
// lowercased email.
type fakeRecordStore struct {
	records     map[string]*models.MemberRecord
	failFor     map[string]error
	reconciled  []string
	orphanCalls [][]string
}

func newFakeRecordStore() *fakeRecordStore {
	return &fakeRecordStore{records: make(map[string]*models.MemberRecord), failFor: make(map[string]error)}
}

func (f *fakeRecordStore) ReconcileMember(ctx context.Context, row *models.MemberSyncRow, installments []models.PaymentInstallment) error {
	key := strings.ToLower(row.Email)
	if err := f.failFor[key]; err != nil {
		return err
	}
	f.reconciled = append(f.reconciled, key)

	if row.Phone != "" {
		for other, rec := range f.records {
			if other != key && rec.Phone != nil && *rec.Phone == row.Phone {
				rec.Phone = nil
			}
		}
	}

	if rec, ok := f.records[key]; ok {
		rec.ApplyCanonical(row, time.Now())
		return nil
	}
	rec := &models.MemberRecord{
		ID:                  len(f.records) + 1,
		Name:                row.Name,
		PlanName:            row.PlanName,
		PlanTotalAmount:     row.PlanPrice,
		PaidAmount:          row.TotalPaid,
		PaymentInstallments: installments,
		MembershipStartDate: row.StartDate,
		MembershipEndDate:   row.EndDate,
		IsSignedUp:          true,
	}
	email := key
	rec.Email = &email
	uid := row.UserID
	rec.UserID = &uid
	if row.Phone != "" {
		phone := row.Phone
		rec.Phone = &phone
	}
	f.records[key] = rec
	return nil
}

func (f *fakeRecordStore) DeleteOrphans(ctx context.Context, liveEmails []string) (int64, error) {
	f.orphanCalls = append(f.orphanCalls, liveEmails)
	live := make(map[string]bool, len(liveEmails))
	for _, e := range liveEmails {
		live[strings.ToLower(e)] = true
	}

	var deleted int64
	for key, rec := range f.records {
		if rec.IsSignedUp && !live[key] {
			delete(f.records, key)
			deleted++
		}
	}
	return deleted, nil
}

type fakeNotifier struct {
	events []ws.SyncEvent
}

func (f *fakeNotifier) Broadcast(event ws.SyncEvent) {
	f.events = append(f.events, event)
}

func newTestSync(members *fakeMemberSource, payments *fakePaymentSource, store *fakeRecordStore, notifier syncNotifier, clock *fakeClock) *SyncService {
	return newSyncService(members, payments, store, notifier, 60, clock)
}

func TestSyncMaterializesMembers(t *testing.T) {
	end := time.Now().AddDate(0, 1, 0)
	members := &fakeMemberSource{
		rows: []*models.MemberSyncRow{
			{UserID: 1, Name: "Asha", Email: "asha@example.com", PlanName: "Quarterly", PlanPrice: 4500, TotalPaid: 3000, EndDate: &end},
			{UserID: 2, Name: "Ravi", Email: "ravi@example.com"},
		},
		emails: []string{"asha@example.com", "ravi@example.com"},
	}
	payments := &fakePaymentSource{byUser: map[int][]*models.Payment{
		1: {
			{ID: 11, UserID: 1, Amount: 2000, PaymentMode: "cash"},
			{ID: 12, UserID: 1, Amount: 1000, PaymentMode: "online"},
		},
	}}
	store := newFakeRecordStore()
	notifier := &fakeNotifier{}
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, payments, store, notifier, clock)
	count, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync returned error: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 synced members, got %d", count)
	}

	asha := store.records["asha@example.com"]
	if asha == nil {
		t.Fatal("asha was not materialized")
	}
	if len(asha.PaymentInstallments) != 2 {
		t.Fatalf("expected 2 installments, got %d", len(asha.PaymentInstallments))
	}
	if asha.PaymentInstallments[0].ID != "pay-11" || asha.PaymentInstallments[1].ID != "pay-12" {
		t.Fatalf("unexpected installment ids: %+v", asha.PaymentInstallments)
	}
	if asha.PlanTotalAmount != 4500 || asha.PaidAmount != 3000 {
		t.Fatalf("unexpected financials: plan=%v paid=%v", asha.PlanTotalAmount, asha.PaidAmount)
	}

	if len(notifier.events) != 1 {
		t.Fatalf("expected 1 broadcast, got %d", len(notifier.events))
	}
	if notifier.events[0].Synced != 2 {
		t.Fatalf("broadcast reported %d synced", notifier.events[0].Synced)
	}
}

func TestSyncIsIdempotent(t *testing.T) {
	members := &fakeMemberSource{
		rows:   []*models.MemberSyncRow{{UserID: 1, Name: "Asha", Email: "asha@example.com", PlanPrice: 4500, TotalPaid: 3000}},
		emails: []string{"asha@example.com"},
	}
	payments := &fakePaymentSource{byUser: map[int][]*models.Payment{
		1: {{ID: 11, UserID: 1, Amount: 3000, PaymentMode: "cash"}},
	}}
	store := newFakeRecordStore()
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, payments, store, nil, clock)
	for i := 0; i < 3; i++ {
		if _, err := s.Sync(context.Background()); err != nil {
			t.Fatalf("pass %d failed: %v", i, err)
		}
	}

	if len(store.records) != 1 {
		t.Fatalf("expected 1 record after repeated passes, got %d", len(store.records))
	}
	rec := store.records["asha@example.com"]
	if rec.PaidAmount != 3000 {
		t.Fatalf("paid amount drifted to %v", rec.PaidAmount)
	}
}

func TestSyncSkipsFailingMember(t *testing.T) {
	members := &fakeMemberSource{
		rows: []*models.MemberSyncRow{
			{UserID: 1, Name: "Broken", Email: "broken@example.com"},
			{UserID: 2, Name: "Fine", Email: "fine@example.com"},
		},
		emails: []string{"broken@example.com", "fine@example.com"},
	}
	store := newFakeRecordStore()
	store.failFor["broken@example.com"] = errors.New("constraint violation")
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, &fakePaymentSource{}, store, nil, clock)
	count, err := s.Sync(context.Background())
	if err != nil {
		t.Fatalf("a single bad row must not fail the pass: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 synced member, got %d", count)
	}
	if store.records["fine@example.com"] == nil {
		t.Fatal("healthy member was not synced")
	}
}

func TestSyncDeletesOrphans(t *testing.T) {
	store := newFakeRecordStore()
	gone := "gone@example.com"
	uid := 9
	store.records[gone] = &models.MemberRecord{ID: 5, Name: "Gone", Email: &gone, UserID: &uid, IsSignedUp: true}
	manual := "walkin@example.com"
	store.records[manual] = &models.MemberRecord{ID: 6, Name: "Walk In", Email: &manual}

	members := &fakeMemberSource{emails: []string{"other@example.com"}}
	notifier := &fakeNotifier{}
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, &fakePaymentSource{}, store, notifier, clock)
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if store.records[gone] != nil {
		t.Fatal("orphaned synced row survived cleanup")
	}
	if store.records[manual] == nil {
		t.Fatal("manual row must never be deleted by cleanup")
	}
	if notifier.events[0].OrphansDeleted != 1 {
		t.Fatalf("broadcast reported %d orphans", notifier.events[0].OrphansDeleted)
	}
}

func TestSyncReleasesPhoneFromPreviousHolder(t *testing.T) {
	store := newFakeRecordStore()
	walkin := "walkin@example.com"
	phone := "9000000001"
	store.records[walkin] = &models.MemberRecord{ID: 3, Name: "Walk In", Email: &walkin, Phone: &phone}

	members := &fakeMemberSource{
		rows:   []*models.MemberSyncRow{{UserID: 1, Name: "Asha", Email: "asha@example.com", Phone: "9000000001"}},
		emails: []string{"asha@example.com"},
	}
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, &fakePaymentSource{}, store, nil, clock)
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if store.records[walkin] == nil {
		t.Fatal("manual row must survive the pass")
	}
	if store.records[walkin].Phone != nil {
		t.Fatalf("previous holder must release the phone, still has %s", *store.records[walkin].Phone)
	}
	asha := store.records["asha@example.com"]
	if asha == nil || asha.Phone == nil || *asha.Phone != "9000000001" {
		t.Fatal("synced member must own the phone after the pass")
	}
}

func TestSyncWithNoMembersRemovesAllSyncedRows(t *testing.T) {
	store := newFakeRecordStore()
	a, b := "a@example.com", "b@example.com"
	store.records[a] = &models.MemberRecord{ID: 1, Email: &a, IsSignedUp: true}
	store.records[b] = &models.MemberRecord{ID: 2, Email: &b, IsSignedUp: true}

	members := &fakeMemberSource{} // no rows, no emails
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, &fakePaymentSource{}, store, nil, clock)
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}

	if len(store.records) != 0 {
		t.Fatalf("expected empty ledger, %d rows remain", len(store.records))
	}
	if len(store.orphanCalls) != 1 || len(store.orphanCalls[0]) != 0 {
		t.Fatalf("cleanup should run with an empty live set, got %+v", store.orphanCalls)
	}
}

func TestSyncIfStaleThrottles(t *testing.T) {
	members := &fakeMemberSource{
		rows:   []*models.MemberSyncRow{{UserID: 1, Name: "Asha", Email: "asha@example.com"}},
		emails: []string{"asha@example.com"},
	}
	store := newFakeRecordStore()
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, &fakePaymentSource{}, store, nil, clock)

	ran, err := s.SyncIfStale(context.Background())
	if err != nil || !ran {
		t.Fatalf("first call should run: ran=%v err=%v", ran, err)
	}

	clock.advance(30 * time.Second)
	ran, err = s.SyncIfStale(context.Background())
	if err != nil || ran {
		t.Fatalf("call inside the window should be throttled: ran=%v err=%v", ran, err)
	}

	clock.advance(31 * time.Second)
	ran, err = s.SyncIfStale(context.Background())
	if err != nil || !ran {
		t.Fatalf("call past the window should run: ran=%v err=%v", ran, err)
	}

	if got := len(store.reconciled); got != 2 {
		t.Fatalf("expected 2 reconcile calls, got %d", got)
	}
}

func TestForcedSyncIgnoresThrottle(t *testing.T) {
	members := &fakeMemberSource{
		rows:   []*models.MemberSyncRow{{UserID: 1, Name: "Asha", Email: "asha@example.com"}},
		emails: []string{"asha@example.com"},
	}
	store := newFakeRecordStore()
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, &fakePaymentSource{}, store, nil, clock)

	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if _, err := s.Sync(context.Background()); err != nil {
		t.Fatalf("forced Sync inside the window failed: %v", err)
	}
	if got := len(store.reconciled); got != 2 {
		t.Fatalf("expected 2 reconcile calls, got %d", got)
	}
}

func TestSyncFailsWhenSourceUnavailable(t *testing.T) {
	members := &fakeMemberSource{rowsErr: errors.New("connection refused")}
	clock := &fakeClock{t: time.Now()}

	s := newTestSync(members, &fakePaymentSource{}, newFakeRecordStore(), nil, clock)
	if _, err := s.Sync(context.Background()); err == nil {
		t.Fatal("expected error when the member source is down")
	}
}
