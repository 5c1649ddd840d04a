// ABOUTME: Per-chat session bookkeeping and the public event entry points
// ABOUTME: Serialises turns per chat and drops results made stale by cancel

package dialog

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/2389/rail-scout/internal/compartment"
	"github.com/2389/rail-scout/internal/rzd"
	"github.com/2389/rail-scout/internal/subscription"
)

// PointResolver finds stations by name.
type PointResolver interface {
	ResolvePoints(ctx context.Context, query string, retryBudget int) ([]rzd.PointCode, error)
}

// ScheduleQuery lists trains for a route and date.
type ScheduleQuery interface {
	Schedule(ctx context.Context, origin, destination string, date time.Time, retryBudget int) ([]rzd.TrainListing, error)
}

// CarriageQuery fetches seat ranges of one train.
type CarriageQuery interface {
	Carriages(ctx context.Context, train rzd.TrainRef, retryBudget int) ([]rzd.CarSeatMap, error)
}

// Upstream is everything the coordinator asks the booking backend.
type Upstream interface {
	PointResolver
	ScheduleQuery
	CarriageQuery
}

// Config wires a Coordinator.
type Config struct {
	Upstream    Upstream
	Reducer     *compartment.Reducer
	Store       subscription.Store
	RetryBudget int
	Logger      *slog.Logger

	// SessionTTL is how long an untouched chat keeps its state. Zero uses
	// DefaultSessionTTL.
	SessionTTL time.Duration
	Now        func() time.Time
}

// DefaultSessionTTL bounds how long an abandoned chat is remembered.
const DefaultSessionTTL = 24 * time.Hour

// sessionSweepInterval is the minimum gap between two eviction passes.
const sessionSweepInterval = time.Minute

// Coordinator owns the conversation state of every chat.
type Coordinator struct {
	upstream    Upstream
	reducer     *compartment.Reducer
	store       subscription.Store
	retryBudget int
	logger      *slog.Logger
	ttl         time.Duration
	now         func() time.Time

	// gen numbers every offered choice list. It is shared by all chats so
	// a token never matches a list offered to an evicted session.
	gen atomic.Uint64

	mu        sync.Mutex
	sessions  map[int64]*session
	lastSweep time.Time
}

type session struct {
	turn sync.Mutex // held for the whole of one transition

	mu    sync.Mutex // guards the fields below
	state State
	epoch uint64
	route [2]rzd.PointCode // origin and destination of the last train result

	seen time.Time // guarded by Coordinator.mu
}

// New creates a Coordinator.
func New(cfg Config) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reducer := cfg.Reducer
	if reducer == nil {
		reducer = compartment.NewReducer(compartment.WithLogger(logger))
	}
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		upstream:    cfg.Upstream,
		reducer:     reducer,
		store:       cfg.Store,
		retryBudget: cfg.RetryBudget,
		logger:      logger.With("component", "dialog"),
		ttl:         ttl,
		now:         now,
		sessions:    make(map[int64]*session),
	}
}

func (c *Coordinator) session(chatID int64) *session {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if now.Sub(c.lastSweep) >= sessionSweepInterval {
		c.evictLocked(now)
		c.lastSweep = now
	}

	s, ok := c.sessions[chatID]
	if !ok {
		s = &session{state: Idle{}}
		c.sessions[chatID] = s
	}
	s.seen = now
	return s
}

// evictLocked forgets chats untouched for longer than the TTL. A chat
// whose turn is still running is kept.
func (c *Coordinator) evictLocked(now time.Time) {
	for chatID, s := range c.sessions {
		if now.Sub(s.seen) < c.ttl || !s.turn.TryLock() {
			continue
		}
		delete(c.sessions, chatID)
		s.turn.Unlock()
		c.logger.Debug("session expired", "chat_id", chatID)
	}
}

// State returns the current state of a chat.
func (c *Coordinator) State(chatID int64) State {
	s := c.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a new search, abandoning any in-flight turn.
func (c *Coordinator) Start(ctx context.Context, chatID int64) []Reply {
	c.reset(chatID, AwaitingOrigin{})
	return []Reply{{Text: msgAskOrigin}}
}

// OnCancel returns the chat to Idle. It does not wait for an in-flight
// turn; that turn's result is discarded when it completes.
func (c *Coordinator) OnCancel(ctx context.Context, chatID int64) []Reply {
	c.reset(chatID, Idle{})
	return []Reply{{Text: msgReset}}
}

func (c *Coordinator) reset(chatID int64, to State) {
	s := c.session(chatID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.state = to
}

// OnUserText handles a free-text message.
func (c *Coordinator) OnUserText(ctx context.Context, chatID int64, text string) []Reply {
	return c.turn(ctx, chatID, textEvent{text: text})
}

// OnUserChoice handles a button token.
func (c *Coordinator) OnUserChoice(ctx context.Context, chatID int64, token string) []Reply {
	switch {
	case token == tokenNoWatch:
		return []Reply{{Text: msgNotWatching}}
	case hasPrefix(token, prefixWatch):
		return c.exclusive(chatID, func() []Reply { return c.watch(ctx, chatID, token) })
	case hasPrefix(token, prefixSub):
		return c.exclusive(chatID, func() []Reply { return c.subscriptionAction(ctx, chatID, token) })
	}

	prefix, gen, idx, ok := parseChoice(token)
	if !ok || (prefix != prefixPoint && prefix != prefixTrain) {
		c.logger.Warn("unknown choice token", "chat_id", chatID, "token", token)
		return []Reply{{Text: msgUnknownButton}}
	}
	return c.turn(ctx, chatID, choiceEvent{prefix: prefix, gen: gen, idx: idx})
}

// turn runs one transition under the session's turn lock and commits the
// new state unless a reset happened meanwhile.
func (c *Coordinator) turn(ctx context.Context, chatID int64, ev event) []Reply {
	s := c.session(chatID)
	s.turn.Lock()
	defer s.turn.Unlock()

	s.mu.Lock()
	state, epoch := s.state, s.epoch
	s.mu.Unlock()

	next, replies := c.step(ctx, s, state, ev)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.epoch != epoch {
		c.logger.Debug("discarding stale turn", "chat_id", chatID, "from", state.Name(), "to", next.Name())
		return nil
	}
	if next.Name() != state.Name() {
		c.logger.Debug("state transition", "chat_id", chatID, "from", state.Name(), "to", next.Name())
	}
	s.state = next
	return replies
}

// exclusive runs fn under the chat's turn lock without touching its state,
// so a chat never has two upstream queries in flight.
func (c *Coordinator) exclusive(chatID int64, fn func() []Reply) []Reply {
	s := c.session(chatID)
	s.turn.Lock()
	defer s.turn.Unlock()
	return fn()
}

func (c *Coordinator) nextGeneration() uint64 {
	return c.gen.Add(1)
}

func (s *session) rememberRoute(origin, destination rzd.PointCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.route = [2]rzd.PointCode{origin, destination}
}

func (s *session) lastRoute() [2]rzd.PointCode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.route
}

func hasPrefix(token, prefix string) bool {
	return len(token) > len(prefix) && token[:len(prefix)] == prefix && token[len(prefix)] == ':'
}
