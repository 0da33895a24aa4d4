package app

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

// RoomChecker reports whether a room is registered.
type RoomChecker interface {
	Exists(name domain.RoomName) bool
}

type connRef struct {
	room   domain.RoomName
	member domain.MemberID
}

// JoinResult describes what a successful join did to the table.
type JoinResult struct {
	Session domain.MemberSession
	// Replaced is set when the member id was already present in the room.
	Replaced bool
	// Displaced is the previous connection of a replaced member, if it differed.
	Displaced domain.ConnID
}

// SessionTable owns every MemberSession. One lock guards all buckets.
type SessionTable struct {
	mu      sync.RWMutex
	rooms   RoomChecker
	buckets map[domain.RoomName]map[domain.MemberID]*domain.MemberSession
	byConn  map[domain.ConnID]connRef
	now     func() time.Time
}

func NewSessionTable(rooms RoomChecker, now func() time.Time) *SessionTable {
	if now == nil {
		now = time.Now
	}
	return &SessionTable{
		rooms:   rooms,
		buckets: make(map[domain.RoomName]map[domain.MemberID]*domain.MemberSession),
		byConn:  make(map[domain.ConnID]connRef),
		now:     now,
	}
}

// Join inserts or refreshes the session of member in room under conn.
// The registry check and the insert happen under the same lock.
func (t *SessionTable) Join(room domain.RoomName, member domain.MemberID, conn domain.ConnID) (JoinResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.rooms.Exists(room) {
		return JoinResult{}, domain.ErrUnknownRoom
	}

	// A connection holds at most one session.
	if ref, ok := t.byConn[conn]; ok && (ref.room != room || ref.member != member) {
		t.removeLocked(conn)
	}

	now := t.now()
	bucket, ok := t.buckets[room]
	if !ok {
		bucket = make(map[domain.MemberID]*domain.MemberSession)
		t.buckets[room] = bucket
	}

	var res JoinResult
	if s, ok := bucket[member]; ok {
		if s.Conn != conn {
			delete(t.byConn, s.Conn)
			res.Displaced = s.Conn
		}
		s.Conn = conn
		s.Paused = false
		s.JoinedAt = now
		s.LastSeen = now
		res.Replaced = true
		res.Session = *s
	} else {
		s := &domain.MemberSession{
			Room:     room,
			Conn:     conn,
			Member:   member,
			JoinedAt: now,
			LastSeen: now,
		}
		bucket[member] = s
		res.Session = *s
	}
	t.byConn[conn] = connRef{room: room, member: member}

	log.Info().Str("module", "app.sessions").Str("room", string(room)).Str("member", string(member)).
		Str("conn", string(conn)).Bool("replaced", res.Replaced).Msg("member joined")
	return res, nil
}

// Leave removes the session bound to conn, wherever it is.
func (t *SessionTable) Leave(conn domain.ConnID) (domain.MemberSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.removeLocked(conn)
}

func (t *SessionTable) removeLocked(conn domain.ConnID) (domain.MemberSession, bool) {
	ref, ok := t.byConn[conn]
	if !ok {
		return domain.MemberSession{}, false
	}
	delete(t.byConn, conn)

	bucket := t.buckets[ref.room]
	s, ok := bucket[ref.member]
	if !ok || s.Conn != conn {
		return domain.MemberSession{}, false
	}
	delete(bucket, ref.member)
	if len(bucket) == 0 {
		delete(t.buckets, ref.room)
	}
	log.Info().Str("module", "app.sessions").Str("room", string(ref.room)).Str("member", string(ref.member)).
		Str("conn", string(conn)).Msg("member removed")
	return *s, true
}

// SetPaused toggles the paused flag of conn's session and refreshes its liveness.
func (t *SessionTable) SetPaused(conn domain.ConnID, paused bool) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.lookupLocked(conn)
	if !ok {
		return false
	}
	s.Paused = paused
	s.LastSeen = t.now()
	return true
}

// Touch refreshes the liveness timestamp of conn's session.
func (t *SessionTable) Touch(conn domain.ConnID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	s, ok := t.lookupLocked(conn)
	if !ok {
		return false
	}
	s.LastSeen = t.now()
	return true
}

func (t *SessionTable) lookupLocked(conn domain.ConnID) (*domain.MemberSession, bool) {
	ref, ok := t.byConn[conn]
	if !ok {
		return nil, false
	}
	s, ok := t.buckets[ref.room][ref.member]
	if !ok || s.Conn != conn {
		return nil, false
	}
	return s, true
}

// Lookup returns a copy of conn's session.
func (t *SessionTable) Lookup(conn domain.ConnID) (domain.MemberSession, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.lookupLocked(conn)
	if !ok {
		return domain.MemberSession{}, false
	}
	return *s, true
}

// ConnOf returns the connection currently bound to member in room.
func (t *SessionTable) ConnOf(room domain.RoomName, member domain.MemberID) (domain.ConnID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.buckets[room][member]
	if !ok {
		return "", false
	}
	return s.Conn, true
}

// Snapshot copies the members of room, ordered by member id.
// The copy goes stale immediately; take a new one every cycle.
func (t *SessionTable) Snapshot(room domain.RoomName) []domain.MemberSession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return snapshotBucket(t.buckets[room])
}

func snapshotBucket(bucket map[domain.MemberID]*domain.MemberSession) []domain.MemberSession {
	out := make([]domain.MemberSession, 0, len(bucket))
	for _, s := range bucket {
		out = append(out, *s)
	}
	slices.SortFunc(out, func(a, b domain.MemberSession) int {
		return strings.Compare(string(a.Member), string(b.Member))
	})
	return out
}

func (t *SessionTable) Count(room domain.RoomName) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.buckets[room])
}

// Counts pairs every given room with its occupant count.
func (t *SessionTable) Counts(rooms []domain.RoomName) []domain.RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.RoomInfo, 0, len(rooms))
	for _, name := range rooms {
		out = append(out, domain.RoomInfo{Name: name, MemberCount: len(t.buckets[name])})
	}
	return out
}

// ClearRoom drops the whole bucket of room and returns what it held.
func (t *SessionTable) ClearRoom(room domain.RoomName) []domain.MemberSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	bucket, ok := t.buckets[room]
	if !ok {
		return nil
	}
	out := snapshotBucket(bucket)
	for _, s := range bucket {
		delete(t.byConn, s.Conn)
	}
	delete(t.buckets, room)
	log.Info().Str("module", "app.sessions").Str("room", string(room)).Int("members", len(out)).Msg("room cleared")
	return out
}

// EvictStale drops sessions last seen before cutoff, plus any residual bucket
// of a room that is no longer registered.
func (t *SessionTable) EvictStale(cutoff time.Time) []domain.MemberSession {
	t.mu.Lock()
	defer t.mu.Unlock()

	var out []domain.MemberSession
	for room, bucket := range t.buckets {
		orphan := !t.rooms.Exists(room)
		for member, s := range bucket {
			if orphan || s.LastSeen.Before(cutoff) {
				out = append(out, *s)
				delete(t.byConn, s.Conn)
				delete(bucket, member)
			}
		}
		if len(bucket) == 0 {
			delete(t.buckets, room)
		}
	}
	return out
}

// All snapshots every non-empty bucket.
func (t *SessionTable) All() map[domain.RoomName][]domain.MemberSession {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make(map[domain.RoomName][]domain.MemberSession, len(t.buckets))
	for room, bucket := range t.buckets {
		out[room] = snapshotBucket(bucket)
	}
	return out
}
