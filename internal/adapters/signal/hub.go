package signal

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Chorus/internal/app"
	"github.com/dkeye/Chorus/internal/core"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/rs/zerolog/log"
)

// Hub tracks live sockets by connection id and implements core.Notifier.
type Hub struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]core.SignalConnection
	policy app.Policy
}

var _ core.Notifier = (*Hub)(nil)

func NewHub(policy app.Policy) *Hub {
	if policy == nil {
		policy = app.SimplePolicy{}
	}
	return &Hub{
		conns:  make(map[domain.ConnID]core.SignalConnection),
		policy: policy,
	}
}

func (h *Hub) Register(c core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID()] = c
}

// Unregister forgets c; a newer socket registered under the same id is kept.
func (h *Hub) Unregister(c core.SignalConnection) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if cur, ok := h.conns[c.ID()]; ok && cur == c {
		delete(h.conns, c.ID())
	}
}

func (h *Hub) get(id domain.ConnID) (core.SignalConnection, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.conns[id]
	return c, ok
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

func (h *Hub) Connected(id domain.ConnID) bool {
	c, ok := h.get(id)
	return ok && !c.IsClosed()
}

func (h *Hub) Send(id domain.ConnID, v any) error {
	c, ok := h.get(id)
	if !ok {
		return domain.ErrTransportUnavailable
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %T: %w", v, err)
	}
	return h.deliver(c, b)
}

func (h *Hub) Broadcast(v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("broadcast marshal")
		return
	}
	h.mu.RLock()
	targets := make([]core.SignalConnection, 0, len(h.conns))
	for _, c := range h.conns {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		_ = h.deliver(c, b)
	}
}

func (h *Hub) Disconnect(id domain.ConnID) {
	if c, ok := h.get(id); ok {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("disconnecting")
		c.Drain()
	}
}

func (h *Hub) deliver(c core.SignalConnection, b []byte) error {
	err := c.TrySend(b)
	if !errors.Is(err, ErrBackpressure) {
		return err
	}
	switch h.policy.OnBackPressure(c.ID()) {
	case app.Disconnect:
		log.Warn().Str("module", "signal").Str("conn", string(c.ID())).Msg("slow connection, closing")
		c.Close()
	case app.DropFrame, app.NoAction:
	}
	return err
}
