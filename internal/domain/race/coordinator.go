package race

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/okian/keysprint/pkg/logger"
	"github.com/okian/keysprint/pkg/metrics"
)

// Default coordinator configuration constants.
const (
	defaultWordCount    = 30
	defaultIntentBuffer = 64

	// fallbackTextChars stands in for the passage length when text
	// generation failed and the room carries an empty passage.
	fallbackTextChars = 150

	charsPerWord      = 5
	secondsPerMinute  = 60
	fullProgress      = 100
	shortRoomIDLength = 8
)

// Publisher is the slice of the transport the coordinator broadcasts
// through.
type Publisher interface {
	Publish(ctx context.Context, event string, payload any) bool
}

// TextSource produces the race passage for a round.
type TextSource interface {
	Generate(wordCount int) (string, error)
}

// Timings groups every delay and interval driving the room lifecycle.
type Timings struct {
	// BotJoinDelay is how long after the first human join the synthetic
	// participant is admitted.
	BotJoinDelay time.Duration
	// PreCountdownDelay separates bot admission from the countdown start.
	PreCountdownDelay time.Duration
	// CountdownFrom is the initial whole-second countdown value.
	CountdownFrom int
	// CountdownInterval is the decrement period.
	CountdownInterval time.Duration
	// BotTickInterval is the synthetic participant update period.
	BotTickInterval time.Duration
	// RestartDelay separates a reset broadcast from the next countdown so
	// clients can render the reset first.
	RestartDelay time.Duration
}

// DefaultTimings returns the stock lifecycle timings.
func DefaultTimings() Timings {
	return Timings{
		BotJoinDelay:      1500 * time.Millisecond,
		PreCountdownDelay: time.Second,
		CountdownFrom:     3,
		CountdownInterval: time.Second,
		BotTickInterval:   time.Second,
		RestartDelay:      time.Second,
	}
}

// BotProfile shapes the synthetic participant.
type BotProfile struct {
	Name string
	// MeanWPM is the speed the bot oscillates around.
	MeanWPM float64
	// JitterWPM bounds the symmetric per-tick variance.
	JitterWPM float64
	// FloorWPM is the minimum speed after variance.
	FloorWPM float64
}

// DefaultBotProfile returns the stock opponent.
func DefaultBotProfile() BotProfile {
	return BotProfile{
		Name:      "Bot_Racer_9000",
		MeanWPM:   60,
		JitterWPM: 5,
		FloorWPM:  10,
	}
}

// botID is the stable identity of the synthetic participant within a room.
const botID = "bot"

// Intents submitted to the actor loop.
type intent interface{}

type joinIntent struct {
	username string
}

type progressIntent struct {
	id       string
	wpm      float64
	progress float64
}

type resetIntent struct{}

type leaveIntent struct{}

type stateIntent struct {
	reply chan<- Snapshot
}

// Coordinator is the room actor. A single goroutine owns the room state:
// every intent and timer tick runs to completion before the next, so the
// state is always observed as a consistent snapshot at broadcast time.
type Coordinator struct {
	pub        Publisher
	clock      clockwork.Clock
	textSource TextSource
	wordCount  int
	timings    Timings
	botProfile BotProfile
	rng        *rand.Rand
	logger     logger.Logger
	bufferSize int

	intents chan intent
	stopCh  chan struct{}
	done    chan struct{}

	mu      sync.RWMutex
	started bool

	// Actor-owned state. Never touched outside the run loop.
	room          *room
	botJoinTimer  clockwork.Timer
	botJoinC      <-chan time.Time
	preCountTimer clockwork.Timer
	preCountC     <-chan time.Time
	restartTimer  clockwork.Timer
	restartC      <-chan time.Time
	countTicker   clockwork.Ticker
	countC        <-chan time.Time
	botTicker     clockwork.Ticker
	botTickC      <-chan time.Time
}

// New creates a Coordinator with configuration options. A Publisher must be
// provided before Start.
func New(opts ...Option) *Coordinator {
	c := &Coordinator{
		clock:      clockwork.NewRealClock(),
		wordCount:  defaultWordCount,
		timings:    DefaultTimings(),
		botProfile: DefaultBotProfile(),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // bot jitter needs no crypto randomness
		logger:     logger.Get().Named("coordinator"),
		bufferSize: defaultIntentBuffer,
		stopCh:     make(chan struct{}),
		done:       make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	c.intents = make(chan intent, c.bufferSize)

	return c
}

// Start creates a fresh room and spawns the actor loop.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}
	if c.pub == nil {
		return ErrNoPublisher
	}

	c.room = c.newRoom(ctx)
	c.started = true
	go c.run(ctx)

	c.logger.Info(ctx, "coordinator started",
		logger.String("room_id", c.room.id),
		logger.Int("word_count", c.wordCount),
	)
	return nil
}

// Stop disposes the actor. Pending intents are discarded and all timers are
// cancelled before Stop returns.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	if !c.started {
		c.mu.Unlock()
		return
	}
	c.started = false
	close(c.stopCh)
	c.mu.Unlock()

	<-c.done
}

// Join submits a join intent for a human participant. Returns false if the
// intent could not be accepted.
func (c *Coordinator) Join(ctx context.Context, username string) bool {
	return c.submit(ctx, joinIntent{username: username})
}

// ReportProgress submits a client-reported progress update. The coordinator
// stores the last reported value per player; it does not verify it - this
// is a deliberate trust boundary that must be revisited once real untrusted
// clients exist.
func (c *Coordinator) ReportProgress(ctx context.Context, id string, wpm, progress float64) bool {
	return c.submit(ctx, progressIntent{id: id, wpm: wpm, progress: progress})
}

// RequestReset submits a reset intent: clear scores, regenerate text,
// restart the round lifecycle.
func (c *Coordinator) RequestReset(ctx context.Context) bool {
	return c.submit(ctx, resetIntent{})
}

// Leave tears the room down: every timer is cancelled and a fresh room
// replaces the old one, which never broadcasts again.
func (c *Coordinator) Leave(ctx context.Context) bool {
	return c.submit(ctx, leaveIntent{})
}

// State returns a consistent snapshot through the actor loop.
func (c *Coordinator) State(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	if !c.submit(ctx, stateIntent{reply: reply}) {
		return Snapshot{}, ErrNotRunning
	}
	select {
	case s := <-reply:
		return s, nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	case <-c.done:
		return Snapshot{}, ErrNotRunning
	}
}

// submit enqueues an intent without blocking the caller.
func (c *Coordinator) submit(ctx context.Context, in intent) bool {
	c.mu.RLock()
	started := c.started
	c.mu.RUnlock()
	if !started {
		metrics.RecordIntentDropped()
		return false
	}

	select {
	case c.intents <- in:
		return true
	default:
		metrics.RecordIntentDropped()
		c.logger.Warn(ctx, "intent buffer full, dropping intent")
		return false
	}
}

// run is the actor loop. All room mutations happen here.
func (c *Coordinator) run(ctx context.Context) {
	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			c.cancelTimers()
			return
		case <-c.stopCh:
			c.cancelTimers()
			return
		case in := <-c.intents:
			c.handleIntent(ctx, in)
		case <-c.botJoinC:
			c.botJoinC = nil
			c.botJoinTimer = nil
			c.admitBot(ctx)
		case <-c.preCountC:
			c.preCountC = nil
			c.preCountTimer = nil
			c.startCountdown(ctx)
		case <-c.restartC:
			c.restartC = nil
			c.restartTimer = nil
			c.startCountdown(ctx)
		case <-c.countC:
			c.tickCountdown(ctx)
		case <-c.botTickC:
			c.tickBot(ctx)
		}
	}
}

func (c *Coordinator) handleIntent(ctx context.Context, in intent) {
	switch v := in.(type) {
	case joinIntent:
		metrics.RecordIntentProcessed("join")
		c.handleJoin(ctx, v)
	case progressIntent:
		metrics.RecordIntentProcessed("report_progress")
		c.handleProgress(ctx, v)
	case resetIntent:
		metrics.RecordIntentProcessed("request_reset")
		c.handleReset(ctx)
	case leaveIntent:
		metrics.RecordIntentProcessed("leave")
		c.handleLeave(ctx)
	case stateIntent:
		v.reply <- c.room.snapshot()
	}
}

// handleJoin admits a human participant and, for the first one, schedules
// the synthetic opponent.
func (c *Coordinator) handleJoin(ctx context.Context, in joinIntent) {
	if in.username == "" {
		metrics.RecordIntentIgnored("empty_username")
		return
	}

	// The username is the stable human identity within the room, so a
	// re-delivered join is an idempotent no-op rather than a second entry.
	if c.room.player(in.username) == nil {
		c.room.players = append(c.room.players, &Player{
			ID:       in.username,
			Username: in.username,
			Color:    humanColor,
		})
		metrics.UpdateActivePlayers(len(c.room.players))
		c.logger.Info(ctx, "player joined",
			logger.String("room_id", c.room.id),
			logger.String("player_id", in.username),
		)
	} else {
		metrics.RecordIntentIgnored("duplicate_join")
	}

	c.broadcast(ctx)

	// A lone human gets an opponent. Re-delivered joins must not schedule
	// a second bot, and a pending admission is rescheduled, not doubled.
	if len(c.room.players) == 1 && c.room.bot() == nil {
		if c.botJoinTimer != nil {
			c.botJoinTimer.Stop()
		}
		c.botJoinTimer = c.clock.NewTimer(c.timings.BotJoinDelay)
		c.botJoinC = c.botJoinTimer.Chan()
	}
}

// admitBot adds the synthetic participant and schedules the countdown.
func (c *Coordinator) admitBot(ctx context.Context) {
	if c.room.bot() != nil {
		metrics.RecordIntentIgnored("duplicate_bot")
		return
	}

	c.room.players = append(c.room.players, &Player{
		ID:       botID,
		Username: c.botProfile.Name,
		IsBot:    true,
		Color:    botColor,
	})
	metrics.UpdateActivePlayers(len(c.room.players))
	c.logger.Info(ctx, "bot admitted",
		logger.String("room_id", c.room.id),
		logger.String("bot", c.botProfile.Name),
	)

	c.broadcast(ctx)

	c.preCountTimer = c.clock.NewTimer(c.timings.PreCountdownDelay)
	c.preCountC = c.preCountTimer.Chan()
}

// startCountdown enters the countdown phase. Re-entry while counting down
// or racing is an idempotent no-op.
func (c *Coordinator) startCountdown(ctx context.Context) {
	if c.room.status == StatusRacing || c.room.status == StatusCountdown {
		metrics.RecordIntentIgnored("countdown_reentry")
		return
	}

	c.room.status = StatusCountdown
	c.room.countdown = c.timings.CountdownFrom
	c.broadcast(ctx)

	c.countTicker = c.clock.NewTicker(c.timings.CountdownInterval)
	c.countC = c.countTicker.Chan()
}

func (c *Coordinator) tickCountdown(ctx context.Context) {
	if c.room.status != StatusCountdown {
		return
	}

	c.room.countdown--
	metrics.RecordCountdownTick()

	if c.room.countdown > 0 {
		c.broadcast(ctx)
		return
	}

	c.countTicker.Stop()
	c.countTicker = nil
	c.countC = nil
	c.startRace(ctx)
}

// startRace stamps the start instant, announces it, and begins bot ticks.
func (c *Coordinator) startRace(ctx context.Context) {
	c.room.status = StatusRacing
	now := c.clock.Now()
	c.room.startTime = &now
	metrics.RecordRaceStarted()

	c.logger.Info(ctx, "race started",
		logger.String("room_id", c.room.id),
		logger.Time("start_time", now),
	)

	// The dedicated start event precedes the generic snapshot so clients
	// can anchor local timers before rendering.
	c.pub.Publish(ctx, EventRaceStart, RaceStart{StartTime: now})
	c.broadcast(ctx)

	c.botTicker = c.clock.NewTicker(c.timings.BotTickInterval)
	c.botTickC = c.botTicker.Chan()
}

// tickBot advances the synthetic participant one interval.
func (c *Coordinator) tickBot(ctx context.Context) {
	if c.room.status != StatusRacing {
		return
	}
	bot := c.room.bot()
	if bot == nil {
		return
	}

	variance := (c.rng.Float64()*2 - 1) * c.botProfile.JitterWPM
	bot.WPM = math.Max(c.botProfile.FloorWPM, c.botProfile.MeanWPM+variance)
	metrics.RecordBotWPM(bot.WPM)

	totalChars := len(c.room.text)
	if totalChars == 0 {
		totalChars = fallbackTextChars
	}
	charsPerSec := bot.WPM / secondsPerMinute * charsPerWord
	increment := charsPerSec * c.timings.BotTickInterval.Seconds() / float64(totalChars) * fullProgress

	bot.Progress = math.Min(fullProgress, bot.Progress+increment)
	metrics.RecordBotTick()

	c.checkWin(ctx)
	c.broadcast(ctx)
}

// handleProgress folds a client-reported update into room state. Unknown
// player ids are dropped without mutation or broadcast.
func (c *Coordinator) handleProgress(ctx context.Context, in progressIntent) {
	p := c.room.player(in.id)
	if p == nil {
		metrics.RecordIntentIgnored("unknown_player")
		c.logger.Debug(ctx, "progress report for unknown player",
			logger.String("room_id", c.room.id),
			logger.String("player_id", in.id),
		)
		return
	}

	// Progress is clamped to [0,100] and never moves backwards within a
	// round; speed is simply the last reported value.
	reported := math.Min(fullProgress, math.Max(0, in.progress))
	if reported > p.Progress {
		p.Progress = reported
	}
	p.WPM = math.Max(0, in.wpm)
	if !p.IsBot {
		metrics.RecordPlayerWPM(p.WPM)
	}

	c.checkWin(ctx)
	c.broadcast(ctx)
}

// checkWin transitions to finished the moment any player completes the
// text. Once finished, further evaluations are no-ops until a reset.
func (c *Coordinator) checkWin(ctx context.Context) {
	if c.room.status == StatusFinished {
		return
	}

	for _, p := range c.room.players {
		if p.Progress >= fullProgress {
			c.room.status = StatusFinished
			c.stopBotTicker()
			metrics.RecordRaceFinished()
			c.logger.Info(ctx, "race finished",
				logger.String("room_id", c.room.id),
				logger.String("winner", p.ID),
				logger.Float64("wpm", p.WPM),
			)
			return
		}
	}
}

// handleReset starts a new round in the same room: fresh text, scores
// cleared, countdown re-entered after a short delay.
func (c *Coordinator) handleReset(ctx context.Context) {
	c.cancelTimers()

	c.room.status = StatusWaiting
	c.room.startTime = nil
	c.room.text = c.generateText(ctx)
	for _, p := range c.room.players {
		p.Progress = 0
		p.WPM = 0
	}
	metrics.RecordRoomReset()

	c.broadcast(ctx)

	c.restartTimer = c.clock.NewTimer(c.timings.RestartDelay)
	c.restartC = c.restartTimer.Chan()
}

// handleLeave cancels every pending timer and replaces the room outright.
// The departed room's identity never broadcasts again.
func (c *Coordinator) handleLeave(ctx context.Context) {
	c.cancelTimers()

	old := c.room.id
	c.room = c.newRoom(ctx)
	metrics.RecordRoomReset()
	metrics.UpdateActivePlayers(0)

	c.logger.Info(ctx, "room torn down",
		logger.String("room_id", old),
		logger.String("new_room_id", c.room.id),
	)
}

// broadcast publishes the full room snapshot. Every state-mutating
// operation ends with exactly one of these.
func (c *Coordinator) broadcast(ctx context.Context) {
	c.pub.Publish(ctx, EventRoomUpdate, c.room.snapshot())
}

func (c *Coordinator) newRoom(ctx context.Context) *room {
	return &room{
		id:     uuid.NewString()[:shortRoomIDLength],
		status: StatusWaiting,
		text:   c.generateText(ctx),
	}
}

func (c *Coordinator) generateText(ctx context.Context) string {
	if c.textSource == nil {
		return ""
	}
	text, err := c.textSource.Generate(c.wordCount)
	if err != nil {
		c.logger.Error(ctx, "text generation failed", logger.Error(err))
		return ""
	}
	return text
}

func (c *Coordinator) stopBotTicker() {
	if c.botTicker != nil {
		c.botTicker.Stop()
		c.botTicker = nil
		c.botTickC = nil
	}
}

// cancelTimers stops every pending delayed or repeating operation tied to
// the room. A leaked timer could resurrect a bot or resume a countdown in a
// superseded room, which is a correctness bug.
func (c *Coordinator) cancelTimers() {
	if c.botJoinTimer != nil {
		c.botJoinTimer.Stop()
		c.botJoinTimer = nil
		c.botJoinC = nil
	}
	if c.preCountTimer != nil {
		c.preCountTimer.Stop()
		c.preCountTimer = nil
		c.preCountC = nil
	}
	if c.restartTimer != nil {
		c.restartTimer.Stop()
		c.restartTimer = nil
		c.restartC = nil
	}
	if c.countTicker != nil {
		c.countTicker.Stop()
		c.countTicker = nil
		c.countC = nil
	}
	c.stopBotTicker()
}
