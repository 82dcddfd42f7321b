package events

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/NomadCrew/nomad-budget-backend/logger"
	"github.com/NomadCrew/nomad-budget-backend/types"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var _ types.EventPublisher = (*RedisPublisher)(nil)

// Config holds configuration for RedisPublisher
type Config struct {
	PublishTimeout  time.Duration
	ReadyTimeout    time.Duration
	EventBufferSize int
	// Registerer receives the publisher metrics. Nil leaves them unregistered.
	Registerer prometheus.Registerer
}

// DefaultConfig returns default configuration values
func DefaultConfig() Config {
	return Config{
		PublishTimeout:  5 * time.Second,
		ReadyTimeout:    5 * time.Second,
		EventBufferSize: 100,
	}
}

type metrics struct {
	publishLatency    prometheus.Histogram
	errorCount        *prometheus.CounterVec
	eventCount        *prometheus.CounterVec
	activeSubscribers prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		publishLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "expense_event_publish_duration_seconds",
			Help:    "Time taken to publish trip change events",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),
		errorCount: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expense_event_errors_total",
			Help: "Total number of event-related errors",
		}, []string{"operation", "type"}),
		eventCount: f.NewCounterVec(prometheus.CounterOpts{
			Name: "expense_events_total",
			Help: "Total number of events by operation and type",
		}, []string{"operation", "type"}),
		activeSubscribers: f.NewGauge(prometheus.GaugeOpts{
			Name: "expense_event_active_subscribers",
			Help: "Current number of live report subscriptions",
		}),
	}
}

// Channel is the pub/sub channel carrying a trip's change events.
func Channel(tripID string) string {
	return fmt.Sprintf("trip:%s:expenses", tripID)
}

// RedisPublisher implements types.EventPublisher using Redis Pub/Sub
type RedisPublisher struct {
	rdb     *redis.Client
	log     *zap.SugaredLogger
	metrics *metrics
	config  Config
	mu      sync.RWMutex
	subs    map[string]*subscription
	wg      sync.WaitGroup
}

type subscription struct {
	pubsub    *redis.PubSub
	cancelCtx context.CancelFunc
	closeOnce sync.Once
}

func (s *subscription) close(log *zap.SugaredLogger, subKey string) {
	s.closeOnce.Do(func() {
		if err := s.pubsub.Close(); err != nil {
			log.Errorw("Error closing pubsub", "error", err, "subKey", subKey)
		}
	})
}

// NewRedisPublisher creates a new RedisPublisher instance
func NewRedisPublisher(rdb *redis.Client, cfg ...Config) *RedisPublisher {
	config := DefaultConfig()
	if len(cfg) > 0 {
		config = cfg[0]
	}
	if config.EventBufferSize <= 0 {
		config.EventBufferSize = DefaultConfig().EventBufferSize
	}
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = DefaultConfig().PublishTimeout
	}
	if config.ReadyTimeout <= 0 {
		config.ReadyTimeout = DefaultConfig().ReadyTimeout
	}

	return &RedisPublisher{
		rdb:     rdb,
		log:     logger.GetLogger().Named("events"),
		metrics: newMetrics(config.Registerer),
		config:  config,
		subs:    make(map[string]*subscription),
	}
}

func (p *RedisPublisher) Publish(ctx context.Context, tripID string, event types.Event) error {
	start := time.Now()
	defer func() {
		p.metrics.publishLatency.Observe(time.Since(start).Seconds())
	}()

	data, err := encode(tripID, &event)
	if err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "encode").Inc()
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	if err := p.rdb.Publish(ctx, Channel(tripID), data).Err(); err != nil {
		p.metrics.errorCount.WithLabelValues("publish", "redis").Inc()
		return fmt.Errorf("redis publish: %w", err)
	}

	p.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	return nil
}

// Subscribe opens a subscription on the trip's channel. subscriberID must be
// unique per stream; one user may hold several.
func (p *RedisPublisher) Subscribe(ctx context.Context, tripID, subscriberID string) (<-chan types.Event, error) {
	subKey := tripID + ":" + subscriberID

	p.mu.Lock()
	if _, exists := p.subs[subKey]; exists {
		p.mu.Unlock()
		p.metrics.errorCount.WithLabelValues("subscribe", "duplicate").Inc()
		return nil, fmt.Errorf("subscription already exists for trip %s and subscriber %s", tripID, subscriberID)
	}

	pubsub := p.rdb.Subscribe(ctx, Channel(tripID))
	subCtx, cancel := context.WithCancel(context.Background())
	sub := &subscription{pubsub: pubsub, cancelCtx: cancel}
	p.subs[subKey] = sub
	p.mu.Unlock()

	p.metrics.activeSubscribers.Inc()

	events := make(chan types.Event, p.config.EventBufferSize)
	readyCh := make(chan struct{})

	p.wg.Add(1)
	go p.processMessages(subCtx, sub, events, subKey, readyCh)

	select {
	case <-readyCh:
	case <-time.After(p.config.ReadyTimeout):
		p.log.Warnw("Subscription ready timeout", "subKey", subKey)
	case <-ctx.Done():
		_ = p.Unsubscribe(context.Background(), tripID, subscriberID)
		return nil, ctx.Err()
	}

	return events, nil
}

func (p *RedisPublisher) processMessages(ctx context.Context, sub *subscription, events chan<- types.Event, subKey string, readyCh chan<- struct{}) {
	defer p.wg.Done()
	defer func() {
		sub.close(p.log, subKey)
		close(events)
		p.metrics.activeSubscribers.Dec()
		p.log.Infow("Subscription closed", "subKey", subKey)
	}()

	ch := sub.pubsub.Channel()
	close(readyCh)

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event types.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				p.metrics.errorCount.WithLabelValues("process", "unmarshal").Inc()
				p.log.Errorw("Failed to unmarshal event", "error", err, "subKey", subKey)
				continue
			}

			// A dropped signal is harmless as long as one is queued: the
			// subscriber re-reads the whole set anyway.
			select {
			case events <- event:
				p.metrics.eventCount.WithLabelValues("receive", string(event.Type)).Inc()
			default:
				p.metrics.errorCount.WithLabelValues("process", "channel_full").Inc()
				p.log.Debugw("Dropped event due to full channel", "subKey", subKey, "eventType", event.Type)
			}
		}
	}
}

func (p *RedisPublisher) Unsubscribe(_ context.Context, tripID, subscriberID string) error {
	subKey := tripID + ":" + subscriberID

	p.mu.Lock()
	sub, exists := p.subs[subKey]
	if !exists {
		p.mu.Unlock()
		return fmt.Errorf("no subscription found for trip %s and subscriber %s", tripID, subscriberID)
	}
	delete(p.subs, subKey)
	p.mu.Unlock()

	sub.cancelCtx()
	sub.close(p.log, subKey)
	return nil
}

// PublishBatch publishes several events in one pipeline round trip.
func (p *RedisPublisher) PublishBatch(ctx context.Context, tripID string, events []types.Event) error {
	if len(events) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	pipe := p.rdb.Pipeline()
	for i := range events {
		data, err := encode(tripID, &events[i])
		if err != nil {
			p.metrics.errorCount.WithLabelValues("publish_batch", "encode").Inc()
			return fmt.Errorf("invalid event in batch: %w", err)
		}
		pipe.Publish(ctx, Channel(tripID), data)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		p.metrics.errorCount.WithLabelValues("publish_batch", "redis").Inc()
		return fmt.Errorf("execute batch publish: %w", err)
	}

	for _, event := range events {
		p.metrics.eventCount.WithLabelValues("publish", string(event.Type)).Inc()
	}
	return nil
}

// Shutdown cancels every subscription and waits for their goroutines.
func (p *RedisPublisher) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	localSubs := p.subs
	p.subs = make(map[string]*subscription)
	p.mu.Unlock()

	p.log.Infow("Shutting down RedisPublisher, cancelling subscriptions...", "count", len(localSubs))
	for _, sub := range localSubs {
		sub.cancelCtx()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.log.Info("RedisPublisher shutdown complete")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveSubscriptions lists the current subscription keys, sorted.
func (p *RedisPublisher) ActiveSubscriptions() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	keys := make([]string, 0, len(p.subs))
	for k := range p.subs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// encode fills defaults on event and marshals it.
func encode(tripID string, event *types.Event) ([]byte, error) {
	if event.TripID == "" {
		event.TripID = tripID
	}
	if err := event.Validate(); err != nil {
		return nil, fmt.Errorf("invalid event: %w", err)
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Version == 0 {
		event.Version = 1
	}
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}
