package signal

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/Chorus/internal/app/orch"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	ReadLimit       int64
	PingPeriod      time.Duration
	HeartbeatPeriod time.Duration
}

// SignalWSController is the transport adapter: it turns socket frames into
// orchestrator calls and carries the orchestrator's outbound events back.
type SignalWSController struct {
	Orch  *orch.Orchestrator
	Hub   *Hub
	Joins *JoinRateLimiter
	opts  Options
}

func NewSignalWSController(o *orch.Orchestrator, hub *Hub, joins *JoinRateLimiter, opts Options) *SignalWSController {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	return &SignalWSController{Orch: o, Hub: hub, Joins: joins, opts: opts}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	id := domain.ConnID(uuid.NewString())
	conn := newWsSignalConn(id, ws)
	ctl.Hub.Register(conn)
	log.Info().Str("module", "signal").Str("conn", string(id)).Str("remote", c.ClientIP()).Msg("new WS connection")

	ctl.sendJSON(conn, clientConfig{
		Type:              "clientConfig",
		Conn:              id,
		HeartbeatPeriodMS: ctl.opts.HeartbeatPeriod.Milliseconds(),
	})
	ctl.Orch.OnConnect(id)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, conn)
	go ctl.readPump(ctx, cancel, conn)
}

type clientConfig struct {
	Type              string        `json:"type"`
	Conn              domain.ConnID `json:"conn"`
	HeartbeatPeriodMS int64         `json:"heartbeat_period_ms"`
}
