package index

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/recall/internal/interfaces"
)

// Refresher keeps the index current: it reacts to index_stale events
// and runs a periodic debounced rebuild on a cron schedule.
type Refresher struct {
	index   interfaces.IndexService
	storage interfaces.StorageManager
	events  interfaces.EventService
	cron    *cron.Cron
	logger  arbor.ILogger
}

// NewRefresher creates a new index refresher
func NewRefresher(
	indexService interfaces.IndexService,
	storageManager interfaces.StorageManager,
	eventService interfaces.EventService,
	logger arbor.ILogger,
) *Refresher {
	return &Refresher{
		index:   indexService,
		storage: storageManager,
		events:  eventService,
		cron:    cron.New(),
		logger:  logger,
	}
}

// Start subscribes to staleness events and begins the cron schedule.
// An empty schedule disables the periodic rebuild but keeps the
// event-driven refresh active.
func (r *Refresher) Start(schedule string) error {
	if err := r.events.Subscribe(interfaces.EventIndexStale, func(ctx context.Context, event interfaces.Event) error {
		r.index.MarkStale()
		return nil
	}); err != nil {
		return err
	}

	if schedule == "" {
		r.logger.Info().Msg("Index refresher started (event-driven only)")
		return nil
	}

	if _, err := r.cron.AddFunc(schedule, r.runScheduled); err != nil {
		return err
	}

	r.cron.Start()
	r.logger.Info().
		Str("schedule", schedule).
		Msg("Index refresher started")

	return nil
}

// Stop stops the cron schedule
func (r *Refresher) Stop() {
	r.cron.Stop()
	r.logger.Info().Msg("Index refresher stopped")
}

func (r *Refresher) runScheduled() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := r.index.Rebuild(ctx); err != nil {
		r.logger.Error().Err(err).Msg("Scheduled index rebuild failed")
	}

	// Piggyback storage maintenance on the refresh cycle
	if err := r.storage.RunGC(); err != nil {
		r.logger.Warn().Err(err).Msg("Storage garbage collection failed")
	}
}
