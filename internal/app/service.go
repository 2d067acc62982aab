// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/internal/adapters/bus"
	"github.com/okian/keysprint/internal/adapters/repository"
	"github.com/okian/keysprint/internal/domain/race"
	"github.com/okian/keysprint/internal/domain/session"
	"github.com/okian/keysprint/internal/domain/stats"
	"github.com/okian/keysprint/internal/domain/words"
	"github.com/okian/keysprint/pkg/logger"
)

// RaceMode tags race results in the log, next to the solo session modes.
const RaceMode = "race"

// Service wires the typing trainer together: the event bus, the race
// coordinator, the stats engine, the text generator and the result log.
type Service struct {
	mu sync.RWMutex

	// Core components
	bus         bus.Bus
	coordinator *race.Coordinator
	engine      *stats.Engine
	generator   *words.Generator
	store       repository.Store

	// Configuration
	clock            clockwork.Clock
	busLatency       time.Duration
	busBufferSize    int
	wordCount        int
	intentBufferSize int
	timings          race.Timings
	botProfile       race.BotProfile
	resultPath       string
	maxRecentResults int

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithBus injects a prebuilt bus. Intended for tests.
func WithBus(b bus.Bus) Option {
	return func(s *Service) {
		if b != nil {
			s.bus = b
		}
	}
}

// WithStore injects a prebuilt result store. Intended for tests.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock sets the clock driving every timer in the service.
func WithClock(clock clockwork.Clock) Option {
	return func(s *Service) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithBusLatency sets the simulated broadcast latency.
func WithBusLatency(latency time.Duration) Option {
	return func(s *Service) {
		if latency >= 0 {
			s.busLatency = latency
		}
	}
}

// WithBusBufferSize bounds the broadcast queue.
func WithBusBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.busBufferSize = size
		}
	}
}

// WithWordCount sets the race passage length.
func WithWordCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.wordCount = count
		}
	}
}

// WithIntentBufferSize bounds the coordinator intent queue.
func WithIntentBufferSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.intentBufferSize = size
		}
	}
}

// WithTimings sets the room lifecycle timings.
func WithTimings(t race.Timings) Option {
	return func(s *Service) {
		s.timings = t
	}
}

// WithBotProfile sets the synthetic opponent shape.
func WithBotProfile(p race.BotProfile) Option {
	return func(s *Service) {
		s.botProfile = p
	}
}

// WithResultPath locates the local result log.
func WithResultPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.resultPath = path
		}
	}
}

// WithMaxRecentResults caps how many rows a single read may return.
func WithMaxRecentResults(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.maxRecentResults = limit
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		clock:            clockwork.NewRealClock(),
		busLatency:       50 * time.Millisecond,
		busBufferSize:    1024,
		wordCount:        30,
		intentBufferSize: 64,
		timings:          race.DefaultTimings(),
		botProfile:       race.DefaultBotProfile(),
		resultPath:       "keysprint_results.jsonl",
		maxRecentResults: 100,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting typing trainer service...")

	s.engine = stats.NewEngine(stats.WithClock(s.clock))
	s.generator = words.NewGenerator()

	if s.bus == nil {
		s.bus = bus.NewInMemoryBus(
			bus.WithLatency(s.busLatency),
			bus.WithBufferSize(s.busBufferSize),
			bus.WithClock(s.clock),
		)
	}

	if s.store == nil {
		store, err := repository.NewFileStore(s.resultPath, repository.WithClock(s.clock))
		if err != nil {
			return err
		}
		s.store = store
	}

	s.coordinator = race.New(
		race.WithPublisher(s.bus),
		race.WithClock(s.clock),
		race.WithTextSource(s.generator),
		race.WithWordCount(s.wordCount),
		race.WithTimings(s.timings),
		race.WithBotProfile(s.botProfile),
		race.WithIntentBuffer(s.intentBufferSize),
	)
	if err := s.coordinator.Start(ctx); err != nil {
		return err
	}

	s.started = true
	s.logger.Info(ctx, "typing trainer service started",
		logger.Int("word_count", s.wordCount),
		logger.Duration("bus_latency", s.busLatency),
		logger.String("result_path", s.resultPath),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping typing trainer service...")

	if s.coordinator != nil {
		s.coordinator.Stop()
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.store != nil {
		_ = s.store.Close()
	}

	s.started = false
	s.logger.Info(ctx, "typing trainer service stopped")
}

// JoinRace admits a player into the shared race room.
func (s *Service) JoinRace(ctx context.Context, username string) bool {
	return s.coordinator.Join(ctx, username)
}

// ReportProgress forwards a client-reported progress update to the room.
func (s *Service) ReportProgress(ctx context.Context, id string, wpm, progress float64) bool {
	return s.coordinator.ReportProgress(ctx, id, wpm, progress)
}

// PlayAgain restarts the current room with fresh text.
func (s *Service) PlayAgain(ctx context.Context) bool {
	return s.coordinator.RequestReset(ctx)
}

// LeaveRace tears the current room down.
func (s *Service) LeaveRace(ctx context.Context) bool {
	return s.coordinator.Leave(ctx)
}

// RaceState returns a consistent snapshot of the room.
func (s *Service) RaceState(ctx context.Context) (race.Snapshot, error) {
	return s.coordinator.State(ctx)
}

// Subscribe registers a handler for a broadcast event and returns the
// subscription id.
func (s *Service) Subscribe(event string, h bus.Handler) string {
	return s.bus.Subscribe(event, h)
}

// SubscribeRoomUpdates registers a handler for room snapshots.
func (s *Service) SubscribeRoomUpdates(h bus.Handler) string {
	return s.bus.Subscribe(race.EventRoomUpdate, h)
}

// SubscribeRaceStart registers a handler for race start announcements.
func (s *Service) SubscribeRaceStart(h bus.Handler) string {
	return s.bus.Subscribe(race.EventRaceStart, h)
}

// Unsubscribe removes a subscription. Returns false if it was unknown.
func (s *Service) Unsubscribe(event, id string) bool {
	return s.bus.Unsubscribe(event, id)
}

// NewSoloSession starts a single-player round with the given settings.
func (s *Service) NewSoloSession(ctx context.Context, settings session.Settings) (*session.Session, error) {
	return session.New(ctx, settings, s.generator,
		session.WithClock(s.clock),
		session.WithEngine(s.engine),
	)
}

// ComputeStats measures a typing round from its raw keystroke tallies.
func (s *Service) ComputeStats(correctChars, totalTyped int, startedAt *time.Time) stats.Stats {
	return s.engine.Compute(correctChars, totalTyped, startedAt)
}

// SaveResult appends a finished round to the local result log.
func (s *Service) SaveResult(ctx context.Context, mode string, target int, st stats.Stats) (repository.Result, error) {
	return s.store.Append(ctx, repository.Result{
		Mode:   mode,
		Target: target,
		Stats:  st,
	})
}

// RecentResults returns up to limit results, newest first, capped by the
// configured maximum.
func (s *Service) RecentResults(ctx context.Context, limit int) ([]repository.Result, error) {
	if limit > s.maxRecentResults {
		limit = s.maxRecentResults
	}
	return s.store.Recent(ctx, limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	out := map[string]interface{}{
		"started":      s.started,
		"wordCount":    s.wordCount,
		"busLatencyMS": s.busLatency.Milliseconds(),
		"maxRecent":    s.maxRecentResults,
	}

	if s.started {
		out["busQueueLength"] = s.bus.Len(ctx)
		out["totalResults"] = s.store.Count(ctx)
	}

	return out
}
