package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/NomadCrew/nomad-budget-backend/types"
)

var _ types.EventPublisher = (*MemoryPublisher)(nil)

// MemoryPublisher fans events out inside one process. It backs the live
// report when Redis is not configured, and tests.
type MemoryPublisher struct {
	mu         sync.Mutex
	bufferSize int
	subs       map[string]map[string]chan types.Event // tripID -> subscriberID -> ch
}

func NewMemoryPublisher(bufferSize int) *MemoryPublisher {
	if bufferSize <= 0 {
		bufferSize = DefaultConfig().EventBufferSize
	}
	return &MemoryPublisher{
		bufferSize: bufferSize,
		subs:       make(map[string]map[string]chan types.Event),
	}
}

func (p *MemoryPublisher) Publish(_ context.Context, tripID string, event types.Event) error {
	if _, err := encode(tripID, &event); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, ch := range p.subs[tripID] {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (p *MemoryPublisher) Subscribe(_ context.Context, tripID, subscriberID string) (<-chan types.Event, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	trip := p.subs[tripID]
	if trip == nil {
		trip = make(map[string]chan types.Event)
		p.subs[tripID] = trip
	}
	if _, exists := trip[subscriberID]; exists {
		return nil, fmt.Errorf("subscription already exists for trip %s and subscriber %s", tripID, subscriberID)
	}
	ch := make(chan types.Event, p.bufferSize)
	trip[subscriberID] = ch
	return ch, nil
}

func (p *MemoryPublisher) Unsubscribe(_ context.Context, tripID, subscriberID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ch, ok := p.subs[tripID][subscriberID]
	if !ok {
		return fmt.Errorf("no subscription found for trip %s and subscriber %s", tripID, subscriberID)
	}
	close(ch)
	delete(p.subs[tripID], subscriberID)
	if len(p.subs[tripID]) == 0 {
		delete(p.subs, tripID)
	}
	return nil
}

func (p *MemoryPublisher) Shutdown(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, trip := range p.subs {
		for _, ch := range trip {
			close(ch)
		}
	}
	p.subs = make(map[string]map[string]chan types.Event)
	return nil
}
