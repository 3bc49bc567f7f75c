package activitylog

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"
	"time"

	"satvault/internal/vault/models"
	"satvault/pkg/requestcontext"
)

// Publisher is the transport an AsyncSink drains into (internal/platform/kafka.Producer).
type Publisher interface {
	Publish(ctx context.Context, key string, value []byte) error
}

// Event is the wire form of a published entry, keyed by owner so one vault's
// events stay ordered within a partition.
type Event struct {
	ID        string    `json:"id"`
	Owner     string    `json:"owner"`
	Action    string    `json:"action"`
	Details   string    `json:"details"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id,omitempty"`
}

// AsyncSink queues entries on a bounded channel and publishes them from Run.
// A full queue drops the entry; the activity log in the store stays complete.
type AsyncSink struct {
	publisher Publisher
	inbox     chan Event
	logger    *slog.Logger
	dropped   atomic.Int64
}

func NewAsyncSink(publisher Publisher, capacity int, logger *slog.Logger) *AsyncSink {
	if capacity <= 0 {
		capacity = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AsyncSink{
		publisher: publisher,
		inbox:     make(chan Event, capacity),
		logger:    logger,
	}
}

func (s *AsyncSink) Publish(ctx context.Context, entry *models.ActivityLogEntry) {
	event := Event{
		ID:        entry.ID.String(),
		Owner:     entry.Owner,
		Action:    string(entry.Action),
		Details:   entry.Details,
		Timestamp: entry.Timestamp,
		RequestID: requestcontext.RequestID(ctx),
	}
	select {
	case s.inbox <- event:
	default:
		s.dropped.Add(1)
		s.logger.WarnContext(ctx, "activity event dropped, queue full",
			"owner", entry.Owner,
			"action", entry.Action,
		)
	}
}

// Dropped returns how many events were discarded because the queue was full.
func (s *AsyncSink) Dropped() int64 {
	return s.dropped.Load()
}

// Run drains the queue until ctx is cancelled. Publish failures are logged
// and skipped so one bad broker round-trip never stalls the queue.
func (s *AsyncSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-s.inbox:
			payload, err := json.Marshal(event)
			if err != nil {
				s.logger.ErrorContext(ctx, "failed to encode activity event", "error", err)
				continue
			}
			if err := s.publisher.Publish(ctx, event.Owner, payload); err != nil {
				s.logger.WarnContext(ctx, "failed to publish activity event",
					"owner", event.Owner,
					"action", event.Action,
					"error", err,
				)
			}
		}
	}
}
