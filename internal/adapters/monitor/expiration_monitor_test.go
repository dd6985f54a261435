package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"
)

type stubItemRepo struct {
	expired []*item.Item
	err     error
}

func (r *stubItemRepo) Create(ctx context.Context, it *item.Item) error { return nil }
func (r *stubItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	return nil, shared.ErrItemNotFound
}
func (r *stubItemRepo) List(ctx context.Context, status *item.Status, page, pageSize int) ([]*item.Item, error) {
	return nil, nil
}
func (r *stubItemRepo) ListActiveExpired(ctx context.Context, now time.Time) ([]*item.Item, error) {
	return r.expired, r.err
}
func (r *stubItemRepo) Resolve(ctx context.Context, id uuid.UUID, status item.Status, winnerID *uuid.UUID, resolvedAt time.Time) (bool, error) {
	return true, nil
}
func (r *stubItemRepo) ExtendDeadline(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	return true, nil
}
func (r *stubItemRepo) Delete(ctx context.Context, id uuid.UUID) error { return nil }

type stubResolver struct {
	mu        sync.Mutex
	evaluated []uuid.UUID
	failOn    uuid.UUID
}

func (s *stubResolver) Evaluate(ctx context.Context, itemID uuid.UUID) (*shared.ResolutionResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.evaluated = append(s.evaluated, itemID)
	if itemID == s.failOn {
		return nil, errors.New("evaluation failed")
	}
	return &shared.ResolutionResult{ItemID: itemID, Outcome: shared.OutcomeDonated}, nil
}

func (s *stubResolver) seen() []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.evaluated...)
}

func expiredItem() *item.Item {
	return &item.Item{
		ID:        uuid.New(),
		Status:    item.StatusActive,
		ExpiresAt: time.Now().Add(-time.Hour),
	}
}

func TestCheckExpiredItemsEvaluatesEach(t *testing.T) {
	first, second := expiredItem(), expiredItem()
	repo := &stubItemRepo{expired: []*item.Item{first, second}}
	resolver := &stubResolver{}

	m := NewExpirationMonitor(ExpirationMonitorParams{
		ItemRepo: repo,
		Resolver: resolver,
		Logger:   zerolog.Nop(),
	})

	m.CheckExpiredItems()

	seen := resolver.seen()
	if len(seen) != 2 {
		t.Fatalf("expected 2 evaluations, got %d", len(seen))
	}
	if seen[0] != first.ID || seen[1] != second.ID {
		t.Errorf("expected items evaluated in listing order")
	}
}

func TestCheckExpiredItemsContinuesPastFailure(t *testing.T) {
	failing, healthy := expiredItem(), expiredItem()
	repo := &stubItemRepo{expired: []*item.Item{failing, healthy}}
	resolver := &stubResolver{failOn: failing.ID}

	m := NewExpirationMonitor(ExpirationMonitorParams{
		ItemRepo: repo,
		Resolver: resolver,
		Logger:   zerolog.Nop(),
	})

	m.CheckExpiredItems()

	seen := resolver.seen()
	if len(seen) != 2 {
		t.Fatalf("one failing item must not block the rest, got %d evaluations", len(seen))
	}
	if seen[1] != healthy.ID {
		t.Errorf("expected the healthy item evaluated after the failure")
	}
}

func TestMonitorRunsOnceAtStartup(t *testing.T) {
	it := expiredItem()
	repo := &stubItemRepo{expired: []*item.Item{it}}
	resolver := &stubResolver{}

	m := NewExpirationMonitor(ExpirationMonitorParams{
		ItemRepo: repo,
		Resolver: resolver,
		Interval: time.Hour, // no tick during the test
		Logger:   zerolog.Nop(),
	})

	m.Start()
	defer m.Stop()

	deadline := time.After(2 * time.Second)
	for len(resolver.seen()) == 0 {
		select {
		case <-deadline:
			t.Fatal("expected a startup check before the first tick")
		case <-time.After(10 * time.Millisecond):
		}
	}
}

func TestMonitorStopHaltsEvaluation(t *testing.T) {
	repo := &stubItemRepo{}
	resolver := &stubResolver{}

	m := NewExpirationMonitor(ExpirationMonitorParams{
		ItemRepo: repo,
		Resolver: resolver,
		Interval: 10 * time.Millisecond,
		Logger:   zerolog.Nop(),
	})

	m.Start()
	m.Stop()

	// No goroutine should evaluate after Stop returns.
	before := len(resolver.seen())
	time.Sleep(30 * time.Millisecond)
	if after := len(resolver.seen()); after != before {
		t.Errorf("evaluations continued after Stop: %d -> %d", before, after)
	}
}
