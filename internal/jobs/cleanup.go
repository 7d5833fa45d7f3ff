// Package jobs holds periodic maintenance work: sweeping expired connection
// codes and reaping presence entries whose server was unlinked concurrently.
package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/store"
)

type CleanupJob struct {
	store    *store.Store
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(st *store.Store, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		store:    st,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	j.runCleanup(ctx, "expired pending links", func(ctx context.Context) (int64, error) {
		return j.store.CleanupExpiredLinks(ctx, time.Now().Unix())
	})
	j.runCleanup(ctx, "orphaned presence entries", j.store.ReconcilePresence)
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
	} else if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
