package notification

import (
	"context"
	"sort"
	"sync"

	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
)

// MemoryMarkerStore keeps markers in process memory. It does not survive a
// restart and is meant for tests and local runs.
type MemoryMarkerStore struct {
	mu      sync.Mutex
	markers map[string]bool
	quota   map[string]int
}

func NewMemoryMarkerStore() *MemoryMarkerStore {
	return &MemoryMarkerStore{
		markers: make(map[string]bool),
		quota:   make(map[string]int),
	}
}

func (s *MemoryMarkerStore) HasMarker(_ context.Context, userID, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.markers[userID+"/"+key], nil
}

func (s *MemoryMarkerStore) SetMarker(_ context.Context, userID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markers[userID+"/"+key] = true
	return nil
}

func (s *MemoryMarkerStore) QuotaUsed(_ context.Context, userID, quotaKey string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quota[userID+"/"+quotaKey], nil
}

func (s *MemoryMarkerStore) ConsumeQuota(_ context.Context, userID, quotaKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quota[userID+"/"+quotaKey]++
	return nil
}

// MemoryInbox is an in-memory Inbox.
type MemoryInbox struct {
	mu    sync.Mutex
	items []types.Notification
}

func NewMemoryInbox() *MemoryInbox {
	return &MemoryInbox{}
}

func (b *MemoryInbox) Create(_ context.Context, n *types.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = append(b.items, *n)
	return nil
}

// List returns the user's notifications, newest first.
func (b *MemoryInbox) List(userID string) []types.Notification {
	b.mu.Lock()
	defer b.mu.Unlock()

	var out []types.Notification
	for _, n := range b.items {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}
