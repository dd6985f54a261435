package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"dibs-service/internal/domain/claim"
	"dibs-service/internal/domain/item"
	"dibs-service/internal/domain/shared"
	"dibs-service/internal/ports/outbound"
)

// In-memory repository fakes backing the service tests. They mirror the
// Postgres adapters' contracts: conditional transitions report whether a
// row changed, and claim listings come back in creation order.

type fakeItemRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*item.Item
}

func newFakeItemRepo() *fakeItemRepo {
	return &fakeItemRepo{items: make(map[uuid.UUID]*item.Item)}
}

func (r *fakeItemRepo) Create(ctx context.Context, it *item.Item) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *it
	r.items[it.ID] = &copied
	return nil
}

func (r *fakeItemRepo) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, shared.ErrItemNotFound
	}
	copied := *it
	return &copied, nil
}

func (r *fakeItemRepo) List(ctx context.Context, status *item.Status, page, pageSize int) ([]*item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*item.Item
	for _, it := range r.items {
		if status != nil && it.Status != *status {
			continue
		}
		copied := *it
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *fakeItemRepo) ListActiveExpired(ctx context.Context, now time.Time) ([]*item.Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*item.Item
	for _, it := range r.items {
		if it.Status == item.StatusActive && !now.Before(it.ExpiresAt) {
			copied := *it
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeItemRepo) Resolve(ctx context.Context, id uuid.UUID, status item.Status, winnerID *uuid.UUID, resolvedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.Status != item.StatusActive {
		return false, nil
	}
	it.Status = status
	it.WinnerID = winnerID
	it.ResolvedAt = &resolvedAt
	it.UpdatedAt = resolvedAt
	return true, nil
}

func (r *fakeItemRepo) ExtendDeadline(ctx context.Context, id uuid.UUID, expiresAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok || it.Status != item.StatusActive {
		return false, nil
	}
	it.ExpiresAt = expiresAt
	return true, nil
}

func (r *fakeItemRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

type fakeClaimRepo struct {
	mu     sync.Mutex
	claims []*claim.Claim
}

func newFakeClaimRepo() *fakeClaimRepo {
	return &fakeClaimRepo{}
}

func (r *fakeClaimRepo) Create(ctx context.Context, cl *claim.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *cl
	r.claims = append(r.claims, &copied)
	return nil
}

func (r *fakeClaimRepo) GetByID(ctx context.Context, id uuid.UUID) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cl := range r.claims {
		if cl.ID == id {
			copied := *cl
			return &copied, nil
		}
	}
	return nil, shared.ErrClaimNotFound
}

func (r *fakeClaimRepo) GetByItemID(ctx context.Context, itemID uuid.UUID) ([]*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*claim.Claim
	for _, cl := range r.claims {
		if cl.ItemID == itemID {
			copied := *cl
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeClaimRepo) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*claim.Claim
	for _, cl := range r.claims {
		if cl.UserID == userID {
			copied := *cl
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeClaimRepo) GetByItemAndUser(ctx context.Context, itemID, userID uuid.UUID) (*claim.Claim, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, cl := range r.claims {
		if cl.ItemID == itemID && cl.UserID == userID {
			copied := *cl
			return &copied, nil
		}
	}
	return nil, shared.ErrClaimNotFound
}

func (r *fakeClaimRepo) Update(ctx context.Context, cl *claim.Claim) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.claims {
		if existing.ID == cl.ID {
			copied := *cl
			r.claims[i] = &copied
			return nil
		}
	}
	return shared.ErrClaimNotFound
}

func (r *fakeClaimRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, cl := range r.claims {
		if cl.ID == id {
			r.claims = append(r.claims[:i], r.claims[i+1:]...)
			return nil
		}
	}
	return shared.ErrClaimNotFound
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[uuid.UUID]*shared.Profile
}

func newFakeProfileRepo(profiles ...*shared.Profile) *fakeProfileRepo {
	r := &fakeProfileRepo{profiles: make(map[uuid.UUID]*shared.Profile)}
	for _, p := range profiles {
		copied := *p
		r.profiles[p.ID] = &copied
	}
	return r
}

func (r *fakeProfileRepo) GetByID(ctx context.Context, id uuid.UUID) (*shared.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.profiles[id]
	if !ok {
		return nil, shared.ErrProfileNotFound
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProfileRepo) List(ctx context.Context) ([]*shared.Profile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*shared.Profile
	for _, p := range r.profiles {
		copied := *p
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (r *fakeProfileRepo) Create(ctx context.Context, p *shared.Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *p
	r.profiles[p.ID] = &copied
	return nil
}

func (r *fakeProfileRepo) DeductPoints(ctx context.Context, winnerID uuid.UUID, coupleID *uuid.UUID, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.profiles {
		if p.ID == winnerID || (coupleID != nil && p.CoupleID != nil && *p.CoupleID == *coupleID) {
			p.Points -= amount
		}
	}
	return nil
}

// fakeNotifier records published changes for assertions
type fakeNotifier struct {
	mu      sync.Mutex
	changes []outbound.Change
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{}
}

func (n *fakeNotifier) Subscribe(ctx context.Context, table outbound.Table, clientID string, changeChan chan outbound.Change) error {
	return nil
}

func (n *fakeNotifier) Unsubscribe(ctx context.Context, table outbound.Table, clientID string) error {
	return nil
}

func (n *fakeNotifier) Publish(ctx context.Context, change outbound.Change) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changes = append(n.changes, change)
	return nil
}

func (n *fakeNotifier) IsSubscribed(ctx context.Context, table outbound.Table, clientID string) bool {
	return false
}

func (n *fakeNotifier) RemoveClient(ctx context.Context, clientID string) error {
	return nil
}

func (n *fakeNotifier) published(table outbound.Table, kind outbound.ChangeKind) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	count := 0
	for _, c := range n.changes {
		if c.Table == table && c.Kind == kind {
			count++
		}
	}
	return count
}
