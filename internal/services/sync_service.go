package services

import (
	"context"
	"log"
	"sync"
	"time"

	"gym-backend/internal/metrics"
	"gym-backend/internal/models"
	"gym-backend/internal/timeutil"
	"gym-backend/internal/ws"
)

// Clock abstracts time for the sync throttle.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return timeutil.Now() }

type memberSource interface {
	ListMemberSyncRows(ctx context.Context) ([]*models.MemberSyncRow, error)
	ListMemberEmails(ctx context.Context) ([]string, error)
}

type paymentSource interface {
	ListByUserAsc(ctx context.Context, userID int) ([]*models.Payment, error)
}

type recordStore interface {
	ReconcileMember(ctx context.Context, row *models.MemberSyncRow, installments []models.PaymentInstallment) error
	DeleteOrphans(ctx context.Context, liveEmails []string) (int64, error)
}

type syncNotifier interface {
	Broadcast(event ws.SyncEvent)
}

// SyncService mirrors the canonical users/memberships/plans/payments tables
// into the denormalized ledger. Passes are serialized and throttled; a single
// failing member is logged and skipped so the rest of the pass proceeds.
type SyncService struct {
	members  memberSource
	payments paymentSource
	records  recordStore
	notifier syncNotifier
	clock    Clock
	interval time.Duration

	mu       sync.Mutex
	lastSync time.Time
}

func NewSyncService(members memberSource, payments paymentSource, records recordStore, notifier syncNotifier, intervalSeconds int) *SyncService {
	return newSyncService(members, payments, records, notifier, intervalSeconds, realClock{})
}

func newSyncService(members memberSource, payments paymentSource, records recordStore, notifier syncNotifier, intervalSeconds int, clock Clock) *SyncService {
	if intervalSeconds <= 0 {
		intervalSeconds = 60
	}
	return &SyncService{
		members:  members,
		payments: payments,
		records:  records,
		notifier: notifier,
		clock:    clock,
		interval: time.Duration(intervalSeconds) * time.Second,
	}
}

// SyncIfStale runs a pass only when the last one finished longer than the
// configured interval ago. Returns whether a pass ran.
func (s *SyncService) SyncIfStale(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.lastSync.IsZero() && s.clock.Now().Sub(s.lastSync) < s.interval {
		return false, nil
	}
	_, err := s.run(ctx)
	return err == nil, err
}

// Sync runs a pass unconditionally, resetting the throttle window.
func (s *SyncService) Sync(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.run(ctx)
}

// Start launches the periodic background sync until ctx is cancelled.
func (s *SyncService) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := s.SyncIfStale(ctx); err != nil {
					log.Printf("[Sync] background pass failed: %v", err)
				}
			}
		}
	}()
}

// run executes one reconciliation pass. Caller holds s.mu.
func (s *SyncService) run(ctx context.Context) (int, error) {
	rows, err := s.members.ListMemberSyncRows(ctx)
	if err != nil {
		return 0, err
	}

	synced, failed := 0, 0
	for _, row := range rows {
		payments, err := s.payments.ListByUserAsc(ctx, row.UserID)
		if err != nil {
			log.Printf("[Sync] payments for user %d unavailable, skipping: %v", row.UserID, err)
			failed++
			metrics.SyncErrorsTotal.Inc()
			continue
		}
		installments := models.InstallmentsFromPayments(payments)
		if err := s.records.ReconcileMember(ctx, row, installments); err != nil {
			log.Printf("[Sync] reconcile %s failed, skipping: %v", row.Email, err)
			failed++
			metrics.SyncErrorsTotal.Inc()
			continue
		}
		synced++
	}
	metrics.SyncRecordsTotal.Add(float64(synced))

	// Cleanup pass: synced rows whose account disappeared are orphans. A
	// cleanup failure does not fail the sync.
	var deleted int64
	emails, err := s.members.ListMemberEmails(ctx)
	if err != nil {
		log.Printf("[Sync] member email listing failed, skipping cleanup: %v", err)
	} else if deleted, err = s.records.DeleteOrphans(ctx, emails); err != nil {
		log.Printf("[Sync] orphan cleanup failed: %v", err)
	} else if deleted > 0 {
		log.Printf("[Sync] removed %d orphaned ledger rows", deleted)
		metrics.SyncOrphansDeleted.Add(float64(deleted))
	}

	metrics.SyncRunsTotal.Inc()
	s.lastSync = s.clock.Now()

	if s.notifier != nil {
		s.notifier.Broadcast(ws.SyncEvent{
			Type:           "sync",
			Synced:         synced,
			Errors:         failed,
			OrphansDeleted: deleted,
			At:             s.lastSync,
		})
	}
	return synced, nil
}
