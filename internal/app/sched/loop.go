package sched

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog"
)

type loop struct {
	room   domain.RoomName
	m      *Manager
	rng    *rand.Rand
	logger zerolog.Logger

	mu sync.Mutex
	// pending maps a member that owes a reply to the member it must answer.
	pending map[domain.MemberID]domain.MemberID
}

func (l *loop) run(ctx context.Context) {
	defer l.m.wg.Done()
	defer l.m.release(l)

	if !sleep(ctx, l.m.cfg.StartDelay) {
		l.logger.Info().Msg("room loop stopped by shutdown")
		return
	}
	for {
		if !l.m.keepRunning(l) {
			l.logger.Info().Msg("room no longer registered, loop exiting")
			l.m.trace("<<< engine stopped for room " + string(l.room))
			return
		}
		wait := l.cycle()
		if !sleep(ctx, wait) {
			l.logger.Info().Msg("room loop stopped by shutdown")
			return
		}
	}
}

// cycle runs one select/emit step and returns how long to wait before the next.
// A panic inside a cycle never ends the loop.
func (l *loop) cycle() (wait time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error().Interface("panic", r).Msg("cycle failed, retrying after backoff")
			wait = l.m.cfg.IdleBackoff
		}
	}()

	now := l.m.now()
	snapshot := l.m.members.Snapshot(l.room)
	eligible := make([]domain.MemberSession, 0, len(snapshot))
	for _, s := range snapshot {
		if l.m.cfg.eligible(s, now) {
			eligible = append(eligible, s)
		}
	}
	if len(eligible) < 2 {
		l.logger.Debug().Int("members", len(snapshot)).Int("eligible", len(eligible)).Msg("waiting for members")
		return l.m.cfg.IdleBackoff
	}

	switch l.m.cfg.Mode {
	case TurnBased:
		l.turn(eligible)
	default:
		l.simultaneous(eligible)
	}

	wait = l.nextDelay()
	l.m.trace(fmt.Sprintf("[clock] room %s: next message in %ds", l.room, int(wait.Round(time.Second)/time.Second)))
	return wait
}

func (l *loop) simultaneous(eligible []domain.MemberSession) {
	a, b, ok := l.pickPair(eligible)
	if !ok {
		return
	}
	connA, okA := l.deliverable(a)
	connB, okB := l.deliverable(b)
	if !okA || !okB {
		l.logger.Debug().Str("a", string(a.Member)).Str("b", string(b.Member)).Msg("pair went stale, skipping")
		return
	}
	l.m.trace(fmt.Sprintf("<-> PAIR: %s <-> %s", a.Member, b.Member))
	l.send(connA, core.NewInstruction(b.Member, pick(l.rng, openingPhrases)))
	l.send(connB, core.NewInstruction(a.Member, pick(l.rng, replyPhrases)))
}

func (l *loop) turn(eligible []domain.MemberSession) {
	byMember := make(map[domain.MemberID]domain.MemberSession, len(eligible))
	for _, s := range eligible {
		byMember[s.Member] = s
	}

	l.mu.Lock()
	var debtors []domain.MemberSession
	for _, s := range eligible {
		if _, ok := l.pending[s.Member]; ok {
			debtors = append(debtors, s)
		}
	}
	if len(debtors) > 0 {
		from := debtors[l.rng.IntN(len(debtors))]
		to := l.pending[from.Member]
		delete(l.pending, from.Member)
		l.mu.Unlock()

		target, ok := byMember[to]
		if !ok {
			return
		}
		conn, okFrom := l.deliverable(from)
		if _, okTo := l.deliverable(target); !okFrom || !okTo {
			return
		}
		l.m.trace(fmt.Sprintf("<-- REPLY: %s -> %s", from.Member, to))
		l.send(conn, core.NewInstruction(to, pick(l.rng, replyPhrases)))
		return
	}
	l.mu.Unlock()

	a, b, ok := l.pickPair(eligible)
	if !ok {
		return
	}
	connA, okA := l.deliverable(a)
	if _, okB := l.deliverable(b); !okA || !okB {
		return
	}
	l.m.trace(fmt.Sprintf("--> INIT: %s -> %s", a.Member, b.Member))
	if l.send(connA, core.NewInstruction(b.Member, pick(l.rng, openingPhrases))) {
		l.mu.Lock()
		l.pending[b.Member] = a.Member
		l.mu.Unlock()
	}
}

// pickPair draws two distinct members uniformly, resampling the second on collision.
func (l *loop) pickPair(eligible []domain.MemberSession) (domain.MemberSession, domain.MemberSession, bool) {
	a := eligible[l.rng.IntN(len(eligible))]
	for range l.m.cfg.PairRetries {
		b := eligible[l.rng.IntN(len(eligible))]
		if b.Member != a.Member {
			return a, b, true
		}
	}
	return domain.MemberSession{}, domain.MemberSession{}, false
}

// deliverable re-checks, right before sending, that s still owns a live connection.
func (l *loop) deliverable(s domain.MemberSession) (domain.ConnID, bool) {
	conn, ok := l.m.members.ConnOf(l.room, s.Member)
	if !ok || conn != s.Conn {
		return "", false
	}
	if !l.m.emitter.Connected(conn) {
		return "", false
	}
	return conn, true
}

func (l *loop) send(conn domain.ConnID, ins core.Instruction) bool {
	err := l.m.emitter.Send(conn, ins)
	if err == nil {
		return true
	}
	if errors.Is(err, domain.ErrTransportUnavailable) {
		l.logger.Debug().Str("conn", string(conn)).Msg("connection gone before send")
	} else {
		l.logger.Warn().Err(err).Str("conn", string(conn)).Msg("send instruction")
	}
	return false
}

func (l *loop) nextDelay() time.Duration {
	lo, hi := l.m.cfg.MinDelay, l.m.cfg.MaxDelay
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(l.rng.Int64N(int64(hi-lo)+1))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
