package app

import (
	"context"
	"time"

	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

// Reaper periodically evicts sessions whose heartbeat stopped.
type Reaper struct {
	sessions  *SessionTable
	period    time.Duration
	staleness time.Duration
	now       func() time.Time
	onEvict   func([]domain.MemberSession)
}

func NewReaper(
	sessions *SessionTable,
	period, staleness time.Duration,
	now func() time.Time,
	onEvict func([]domain.MemberSession),
) *Reaper {
	if now == nil {
		now = time.Now
	}
	return &Reaper{
		sessions:  sessions,
		period:    period,
		staleness: staleness,
		now:       now,
		onEvict:   onEvict,
	}
}

// Run sweeps every period until ctx is done.
func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	log.Info().Str("module", "app.reaper").Dur("period", r.period).Dur("staleness", r.staleness).Msg("reaper started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.reaper").Msg("reaper stopped")
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Sweep evicts sessions not seen for longer than the staleness threshold.
func (r *Reaper) Sweep() []domain.MemberSession {
	cutoff := r.now().Add(-r.staleness)
	evicted := r.sessions.EvictStale(cutoff)
	if len(evicted) == 0 {
		return nil
	}
	for _, s := range evicted {
		log.Info().Str("module", "app.reaper").Str("room", string(s.Room)).Str("member", string(s.Member)).
			Str("conn", string(s.Conn)).Time("last_seen", s.LastSeen).Msg("evicted stale session")
	}
	if r.onEvict != nil {
		r.onEvict(evicted)
	}
	return evicted
}
