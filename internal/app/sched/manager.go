package sched

import (
	"context"
	"maps"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

// Rooms reports whether a room is still registered.
type Rooms interface {
	Exists(name domain.RoomName) bool
}

// Members is the read side of the session table a loop needs.
type Members interface {
	Snapshot(room domain.RoomName) []domain.MemberSession
	ConnOf(room domain.RoomName, member domain.MemberID) (domain.ConnID, bool)
}

// Emitter delivers instructions to one connection.
type Emitter interface {
	Connected(conn domain.ConnID) bool
	Send(conn domain.ConnID, v any) error
}

type Option func(*Manager)

func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithRand sets the factory for each loop's private random source.
func WithRand(newRand func() *rand.Rand) Option {
	return func(m *Manager) { m.newRand = newRand }
}

// WithTrace receives human-readable progress lines.
func WithTrace(trace func(line string)) Option {
	return func(m *Manager) { m.trace = trace }
}

// Manager keeps at most one running loop per room. Loops live as long as the
// context given to NewManager unless their room is deleted first.
type Manager struct {
	ctx     context.Context
	cfg     Config
	rooms   Rooms
	members Members
	emitter Emitter

	now     func() time.Time
	newRand func() *rand.Rand
	trace   func(string)

	mu    sync.Mutex
	loops map[domain.RoomName]*loop
	wg    sync.WaitGroup
}

func NewManager(ctx context.Context, cfg Config, rooms Rooms, members Members, emitter Emitter, opts ...Option) *Manager {
	m := &Manager{
		ctx:     ctx,
		cfg:     cfg,
		rooms:   rooms,
		members: members,
		emitter: emitter,
		now:     time.Now,
		newRand: func() *rand.Rand { return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) },
		trace:   func(string) {},
		loops:   make(map[domain.RoomName]*loop),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start launches the loop of room unless one is already running or the
// manager is shutting down. It reports whether a new loop was started.
func (m *Manager) Start(room domain.RoomName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ctx.Err() != nil {
		return false
	}
	if _, ok := m.loops[room]; ok {
		return false
	}

	l := m.newLoop(room)
	m.loops[room] = l
	m.wg.Add(1)

	l.logger.Info().Str("mode", string(m.cfg.Mode)).Msg("starting room loop")
	m.trace(">>> engine started for room " + string(room))

	go l.run(m.ctx)
	return true
}

func (m *Manager) newLoop(room domain.RoomName) *loop {
	return &loop{
		room:    room,
		m:       m,
		rng:     m.newRand(),
		pending: make(map[domain.MemberID]domain.MemberID),
		logger:  log.With().Str("module", "sched").Str("room", string(room)).Logger(),
	}
}

// Running reports whether room has an active loop.
func (m *Manager) Running(room domain.RoomName) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.loops[room]
	return ok
}

// Pending copies the reply ledger of room (debtor -> creditor). Empty in simultaneous mode.
func (m *Manager) Pending(room domain.RoomName) map[domain.MemberID]domain.MemberID {
	m.mu.Lock()
	l, ok := m.loops[room]
	m.mu.Unlock()
	if !ok {
		return map[domain.MemberID]domain.MemberID{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return maps.Clone(l.pending)
}

// Wait blocks until every loop has returned.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// keepRunning is the only stop condition of a loop besides shutdown. The check
// and the deregistration happen under m.mu so a concurrent Start either sees
// the loop still registered or starts a fresh one.
func (m *Manager) keepRunning(l *loop) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rooms.Exists(l.room) {
		return true
	}
	if m.loops[l.room] == l {
		delete(m.loops, l.room)
	}
	return false
}

func (m *Manager) release(l *loop) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loops[l.room] == l {
		delete(m.loops, l.room)
	}
}
