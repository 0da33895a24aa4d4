package sched

import (
	"math/rand/v2"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
)

type fakeRooms struct {
	mu    sync.Mutex
	rooms map[domain.RoomName]bool
}

func newFakeRooms(names ...domain.RoomName) *fakeRooms {
	r := &fakeRooms{rooms: make(map[domain.RoomName]bool)}
	for _, n := range names {
		r.rooms[n] = true
	}
	return r
}

func (r *fakeRooms) Exists(name domain.RoomName) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rooms[name]
}

func (r *fakeRooms) remove(name domain.RoomName) {
	r.mu.Lock()
	delete(r.rooms, name)
	r.mu.Unlock()
}

type fakeMembers struct {
	mu       sync.Mutex
	sessions []domain.MemberSession
}

func (f *fakeMembers) add(room domain.RoomName, member domain.MemberID, conn domain.ConnID, joined time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, domain.MemberSession{
		Room: room, Member: member, Conn: conn, JoinedAt: joined, LastSeen: joined,
	})
	slices.SortFunc(f.sessions, func(a, b domain.MemberSession) int {
		return strings.Compare(string(a.Member), string(b.Member))
	})
}

func (f *fakeMembers) setPaused(member domain.MemberID, paused bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].Member == member {
			f.sessions[i].Paused = paused
		}
	}
}

func (f *fakeMembers) touch(member domain.MemberID, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].Member == member {
			f.sessions[i].LastSeen = at
		}
	}
}

// rebind moves member to conn without changing what Snapshot already handed out.
func (f *fakeMembers) rebind(member domain.MemberID, conn domain.ConnID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.sessions {
		if f.sessions[i].Member == member {
			f.sessions[i].Conn = conn
		}
	}
}

func (f *fakeMembers) Snapshot(room domain.RoomName) []domain.MemberSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MemberSession
	for _, s := range f.sessions {
		if s.Room == room {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeMembers) ConnOf(room domain.RoomName, member domain.MemberID) (domain.ConnID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.sessions {
		if s.Room == room && s.Member == member {
			return s.Conn, true
		}
	}
	return "", false
}

type sent struct {
	conn domain.ConnID
	ins  core.Instruction
}

type fakeEmitter struct {
	mu   sync.Mutex
	down map[domain.ConnID]bool
	log  []sent
}

func newFakeEmitter() *fakeEmitter {
	return &fakeEmitter{down: make(map[domain.ConnID]bool)}
}

func (e *fakeEmitter) Connected(conn domain.ConnID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.down[conn]
}

func (e *fakeEmitter) Send(conn domain.ConnID, v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.down[conn] {
		return domain.ErrTransportUnavailable
	}
	e.log = append(e.log, sent{conn: conn, ins: v.(core.Instruction)})
	return nil
}

func (e *fakeEmitter) sends() []sent {
	e.mu.Lock()
	defer e.mu.Unlock()
	return slices.Clone(e.log)
}

func fastConfig(mode Mode) Config {
	return Config{
		Mode:        mode,
		MinDelay:    time.Millisecond,
		MaxDelay:    2 * time.Millisecond,
		IdleBackoff: time.Millisecond,
		PairRetries: 16,
	}
}

func seeded() Option {
	return WithRand(func() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) })
}
