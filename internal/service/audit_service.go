package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"mathmentor-api/internal/models"
	"mathmentor-api/internal/util"
)

const (
	auditQueueSize     = 1024
	auditBatchSize     = 64
	auditFlushInterval = 5 * time.Second
	auditPublishTO     = 3 * time.Second

	analyticsDefaultLimit = 50
	analyticsMaxLimit     = 500
)

// EventPublisher streams auth events to downstream consumers.
type EventPublisher interface {
	PublishAuthEvent(ctx context.Context, event *models.AuthEvent) error
}

// EventStore persists auth event batches and serves the analytics
// reads.
type EventStore interface {
	InsertAuthEvents(ctx context.Context, events []*models.AuthEvent) error
	RecentAuthEvents(ctx context.Context, limit int) ([]*models.AuthEvent, error)
}

// AuditService fans auth events out to Kafka (streaming consumers) and
// ClickHouse (analytics). Delivery is best-effort: a full queue or a
// failed sink never blocks or fails a login.
type AuditService struct {
	producer EventPublisher
	store    EventStore
	logger   *zap.Logger

	events   chan *models.AuthEvent
	stop     chan struct{}
	stopOnce sync.Once
	doneWG   sync.WaitGroup
}

func NewAuditService(producer EventPublisher, store EventStore, logger *zap.Logger) *AuditService {
	s := &AuditService{
		producer: producer,
		store:    store,
		logger:   logger,
		events:   make(chan *models.AuthEvent, auditQueueSize),
		stop:     make(chan struct{}),
	}

	s.doneWG.Add(1)
	go s.run()

	return s
}

// Record enqueues an event without blocking. Events are dropped with a
// warning when the queue is full.
func (s *AuditService) Record(event *models.AuthEvent) {
	select {
	case s.events <- event:
	default:
		s.logger.Warn("Audit queue full, dropping auth event",
			util.String("event_id", event.EventID),
			util.String("outcome", event.Outcome))
	}
}

// run drains the queue: each event is published to Kafka immediately
// and accumulated for the next ClickHouse batch.
func (s *AuditService) run() {
	defer s.doneWG.Done()

	ticker := time.NewTicker(auditFlushInterval)
	defer ticker.Stop()

	batch := make([]*models.AuthEvent, 0, auditBatchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		s.insertBatch(batch)
		batch = batch[:0]
	}

	for {
		select {
		case event := <-s.events:
			s.publish(event)
			batch = append(batch, event)
			if len(batch) >= auditBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-s.stop:
			// Drain whatever is still queued before exiting.
			for {
				select {
				case event := <-s.events:
					s.publish(event)
					batch = append(batch, event)
				default:
					flush()
					return
				}
			}
		}
	}
}

func (s *AuditService) publish(event *models.AuthEvent) {
	if s.producer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), auditPublishTO)
	defer cancel()

	if err := s.producer.PublishAuthEvent(ctx, event); err != nil {
		s.logger.Warn("Failed to publish auth event",
			util.String("event_id", event.EventID),
			util.ErrorField(err))
	}
}

func (s *AuditService) insertBatch(batch []*models.AuthEvent) {
	if s.store == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.store.InsertAuthEvents(ctx, batch); err != nil {
		s.logger.Warn("Failed to insert auth event batch",
			util.Int("batch_size", len(batch)),
			util.ErrorField(err))
		return
	}

	s.logger.Debug("Auth event batch stored", util.Int("batch_size", len(batch)))
}

// RecentEvents returns the latest login outcomes for the analytics
// endpoint. The limit is defaulted and capped server-side.
func (s *AuditService) RecentEvents(ctx context.Context, limit int) ([]*models.AuthEvent, error) {
	if s.store == nil {
		return nil, errors.New("analytics store unavailable")
	}
	if limit <= 0 {
		limit = analyticsDefaultLimit
	} else if limit > analyticsMaxLimit {
		limit = analyticsMaxLimit
	}
	return s.store.RecentAuthEvents(ctx, limit)
}

// Close flushes pending events and stops the worker.
func (s *AuditService) Close() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	s.doneWG.Wait()
}
