package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/adhiadhi/oxeye-server/internal/model"
	"github.com/adhiadhi/oxeye-server/internal/render"
	"github.com/adhiadhi/oxeye-server/internal/store"
)

// StatusService recomputes cached composite status images in the background.
// Dispatch is fire-and-forget: a mutation enqueues the server and returns;
// failures are logged, never surfaced to the triggering caller. The queue is
// bounded and per-server work coalesces, so bursty join/leave traffic cannot
// pile up unbounded tasks.
type StatusService struct {
	store *store.Store
	queue chan string
	done  chan struct{}
	wg    sync.WaitGroup

	mu      sync.Mutex
	pending map[string]struct{}

	now func() int64
}

func NewStatusService(st *store.Store, queueCapacity int) *StatusService {
	if queueCapacity <= 0 {
		queueCapacity = 256
	}
	return &StatusService{
		store:   st,
		queue:   make(chan string, queueCapacity),
		done:    make(chan struct{}),
		pending: make(map[string]struct{}),
		now:     func() int64 { return time.Now().Unix() },
	}
}

// Start launches the single render worker.
func (s *StatusService) Start() {
	s.wg.Add(1)
	go s.run()
	log.Info().Msg("status render worker started")
}

// Stop drains nothing: queued work is dropped, matching the best-effort
// contract.
func (s *StatusService) Stop() {
	close(s.done)
	s.wg.Wait()
	log.Info().Msg("status render worker stopped")
}

// Enqueue schedules a recompute for the server. Duplicate requests for a
// server already queued, and requests beyond queue capacity, are dropped.
func (s *StatusService) Enqueue(apiKeyHash string) {
	s.mu.Lock()
	if _, queued := s.pending[apiKeyHash]; queued {
		s.mu.Unlock()
		return
	}
	s.pending[apiKeyHash] = struct{}{}
	s.mu.Unlock()

	select {
	case s.queue <- apiKeyHash:
	default:
		s.mu.Lock()
		delete(s.pending, apiKeyHash)
		s.mu.Unlock()
		log.Warn().Msg("status render queue full, dropping recompute")
	}
}

func (s *StatusService) run() {
	defer s.wg.Done()
	for {
		select {
		case <-s.done:
			return
		case apiKeyHash := <-s.queue:
			s.mu.Lock()
			delete(s.pending, apiKeyHash)
			s.mu.Unlock()

			if err := s.Recompute(context.Background(), apiKeyHash); err != nil {
				log.Error().Err(err).Msg("failed to recompute status image")
			}
		}
	}
}

// Recompute renders and stores the composite status image for one server.
// A server deleted since dispatch is skipped silently.
func (s *StatusService) Recompute(ctx context.Context, apiKeyHash string) error {
	server, err := s.store.GetServerByAPIKey(ctx, apiKeyHash)
	if err != nil {
		return err
	}
	if server == nil {
		return nil
	}

	heads, err := s.store.GetPlayersWithHeads(ctx, apiKeyHash)
	if err != nil {
		return err
	}

	entries := make([]render.PlayerEntry, 0, len(heads))
	for _, h := range heads {
		entries = append(entries, render.PlayerEntry{
			Name:    h.PlayerName,
			HeadPNG: s.headFor(ctx, h),
		})
	}

	img, err := render.ComposeStatus(entries)
	if err != nil {
		return err
	}
	return s.store.StoreStatusImage(ctx, apiKeyHash, img, s.now())
}

func (s *StatusService) headFor(ctx context.Context, h model.PlayerHead) []byte {
	if h.TextureHash == "" {
		return nil
	}
	head, err := s.store.GetRenderedHead(ctx, h.TextureHash)
	if err != nil {
		log.Warn().Err(err).Str("player", h.PlayerName).Msg("could not load rendered head")
		return nil
	}
	return head
}
