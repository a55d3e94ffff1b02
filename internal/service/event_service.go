package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/course-registry-api/internal/dto"
	"github.com/noah-isme/course-registry-api/pkg/jobs"
)

// EventPublisher accepts committed course changes for asynchronous delivery.
type EventPublisher interface {
	Publish(ctx context.Context, event dto.CourseEvent)
}

// MessageBroker is the transport events are finally written to.
type MessageBroker interface {
	Publish(ctx context.Context, messageID, msgType string, body []byte) error
}

// EventServiceConfig tunes the delivery worker pool.
type EventServiceConfig struct {
	Workers    int
	Buffer     int
	Retries    int
	RetryDelay time.Duration
}

// EventService buffers domain events on an in-memory queue and publishes
// them to the broker with retries, off the request path.
type EventService struct {
	broker  MessageBroker
	metrics *MetricsService
	logger  *zap.Logger
	queue   *jobs.Queue
	now     func() time.Time
}

// NewEventService constructs an EventService. Call Start before publishing.
func NewEventService(broker MessageBroker, metrics *MetricsService, logger *zap.Logger, cfg EventServiceConfig) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &EventService{broker: broker, metrics: metrics, logger: logger, now: time.Now}
	svc.queue = jobs.NewQueue("course-events", svc.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.Buffer,
		MaxRetries: cfg.Retries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return svc
}

// Start launches the delivery workers. They are detached from any caller
// context and only Stop ends them, so events emitted by requests still
// draining during server shutdown are delivered.
func (s *EventService) Start() {
	s.queue.Start(context.Background())
}

// Stop flushes buffered events and stops the workers.
func (s *EventService) Stop() {
	s.queue.Stop()
}

// Check fails while the delivery buffer is full, i.e. while new events
// would be dropped.
func (s *EventService) Check(ctx context.Context) error {
	if pending, capacity := s.queue.Pending(), s.queue.Capacity(); pending >= capacity {
		return fmt.Errorf("event buffer full (%d/%d)", pending, capacity)
	}
	return nil
}

// Publish stamps the event and enqueues it. Delivery failures are logged and
// never reach the caller; the change they describe is already committed.
func (s *EventService) Publish(ctx context.Context, event dto.CourseEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = s.now().UTC()
	}
	if err := s.queue.Enqueue(jobs.Job{ID: event.ID, Type: event.Type, Payload: event}); err != nil {
		s.metrics.RecordEventPublish(event.Type, err)
		s.logger.Warn("dropping course event", zap.String("event_id", event.ID), zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *EventService) deliver(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(dto.CourseEvent)
	if !ok {
		s.logger.Error("unexpected event payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.ID, err)
	}
	err = s.broker.Publish(ctx, event.ID, event.Type, body)
	s.metrics.RecordEventPublish(event.Type, err)
	return err
}

// ChangeHooks are the collaborators notified after a course, enrollment or
// waiting list change commits. All members are optional.
type ChangeHooks struct {
	Cache   *CacheService
	Events  EventPublisher
	Metrics *MetricsService
}

func (h ChangeHooks) committed(ctx context.Context, event dto.CourseEvent) {
	// Invalidate already logs its failures; stale entries expire with the TTL.
	_ = h.Cache.Invalidate(ctx, courseCachePattern)
	if h.Events != nil {
		h.Events.Publish(ctx, event)
	}
}
