// Package sched runs one randomized pairing loop per room.
package sched

import (
	"fmt"
	"time"

	"github.com/dkeye/Chorus/internal/domain"
)

type Mode string

const (
	// Simultaneous sends an opening to A and a reply to B in the same cycle.
	Simultaneous Mode = "simultaneous"
	// TurnBased sends an opening now and the matching reply on a later cycle.
	TurnBased Mode = "turn"
)

type Config struct {
	Mode        Mode
	MinDelay    time.Duration
	MaxDelay    time.Duration
	IdleBackoff time.Duration
	StartDelay  time.Duration
	SettleDelay time.Duration
	// Freshness bounds how old a member's last heartbeat may be; zero disables the check.
	Freshness   time.Duration
	PairRetries int
}

func (c Config) Validate() error {
	switch c.Mode {
	case Simultaneous, TurnBased:
	default:
		return fmt.Errorf("unknown scheduler mode %q", c.Mode)
	}
	if c.MinDelay < 0 || c.MaxDelay < c.MinDelay {
		return fmt.Errorf("scheduler delay range [%s, %s] is invalid", c.MinDelay, c.MaxDelay)
	}
	if c.IdleBackoff <= 0 {
		return fmt.Errorf("scheduler idle backoff must be positive, got %s", c.IdleBackoff)
	}
	if c.PairRetries < 1 {
		return fmt.Errorf("scheduler pair retries must be at least 1, got %d", c.PairRetries)
	}
	return nil
}

func (c Config) eligible(s domain.MemberSession, now time.Time) bool {
	if s.Paused {
		return false
	}
	if c.SettleDelay > 0 && now.Sub(s.JoinedAt) < c.SettleDelay {
		return false
	}
	if c.Freshness > 0 && now.Sub(s.LastSeen) > c.Freshness {
		return false
	}
	return true
}
