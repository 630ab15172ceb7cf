package service

import (
	"context"

	"go.uber.org/zap"

	q "github.com/iliyamo/floor-layout/internal/queue"
)

// EventSink handles floor events consumed from the broker.  Activations
// made on another replica evict the local cached layout; status changes
// are logged for the floor audit trail.
type EventSink struct {
	cache  LayoutCache
	logger *zap.Logger
}

var _ q.Handler = (*EventSink)(nil)

// NewEventSink returns a sink that evicts from cache.  A nil cache is
// allowed.
func NewEventSink(cache LayoutCache, logger *zap.Logger) *EventSink {
	if cache == nil {
		cache = nopCache{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventSink{cache: cache, logger: logger}
}

func (s *EventSink) LayoutActivated(ctx context.Context, ev q.LayoutActivatedEvent) error {
	if err := s.cache.InvalidateFloor(ctx, ev.FloorID, ev.Version); err != nil {
		return err
	}
	s.logger.Info("layout activated",
		zap.String("floor_id", ev.FloorID),
		zap.Int64("version", ev.Version),
		zap.Int("tables", ev.TableCount),
		zap.String("by", ev.ActivatedBy))
	return nil
}

func (s *EventSink) TableStatusChanged(_ context.Context, ev q.TableStatusChangedEvent) error {
	s.logger.Info("table status changed",
		zap.String("floor_id", ev.FloorID),
		zap.String("table_id", ev.TableID),
		zap.String("from", ev.From),
		zap.String("to", ev.To),
		zap.String("by", ev.ChangedBy))
	return nil
}
