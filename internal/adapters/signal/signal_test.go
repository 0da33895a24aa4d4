package signal

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dkeye/Chorus/internal/app"
	"github.com/dkeye/Chorus/internal/app/orch"
	"github.com/dkeye/Chorus/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct{ rooms []domain.RoomName }

func (s *memStore) Load(context.Context) ([]domain.RoomName, error) { return s.rooms, nil }
func (s *memStore) Save(_ context.Context, rooms []domain.RoomName) error {
	s.rooms = rooms
	return nil
}
func (s *memStore) Close() error { return nil }

type noLoops struct{}

func (noLoops) Start(domain.RoomName) bool { return true }

func newTestServer(t *testing.T) (*httptest.Server, *orch.Orchestrator) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	registry := app.NewRoomRegistry(&memStore{})
	auth, err := app.NewAuthenticator("s3cret", "")
	require.NoError(t, err)
	hub := NewHub(app.SimplePolicy{})
	o := &orch.Orchestrator{
		Registry: registry,
		Sessions: app.NewSessionTable(registry, nil),
		Loops:    noLoops{},
		Notifier: hub,
		Auth:     auth,
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctl := NewSignalWSController(o, hub, NewJoinRateLimiter(3, time.Minute), Options{
		ReadLimit:       4096,
		PingPeriod:      10 * time.Second,
		HeartbeatPeriod: 5 * time.Second,
	})
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { ctl.HandleSignal(ctx, c) })

	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return srv, o
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	return ws
}

// readType skips frames until one of the given type arrives.
func readType(t *testing.T, ws *websocket.Conn, typ string) map[string]any {
	t.Helper()
	require.NoError(t, ws.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		var msg map[string]any
		require.NoError(t, ws.ReadJSON(&msg))
		if msg["type"] == typ {
			return msg
		}
	}
}

func TestClientConfigOnConnect(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)

	msg := readType(t, ws, "clientConfig")
	assert.NotEmpty(t, msg["conn"])
	assert.EqualValues(t, 5000, msg["heartbeat_period_ms"])
}

func TestJoinFlow(t *testing.T) {
	srv, o := newTestServer(t)
	ws := dial(t, srv)
	readType(t, ws, "clientConfig")

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "join", "room": "alpha", "member": "111"}))
	msg := readType(t, ws, "joinError")
	assert.Equal(t, "unknown_room", msg["error"])

	_, _, err := o.CreateRoom(context.Background(), "alpha")
	require.NoError(t, err)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "join", "room": "alpha", "member": "111"}))
	msg = readType(t, ws, "joined")
	assert.Equal(t, "ALPHA", msg["room"])
	assert.Equal(t, "111", msg["member"])
	assert.EqualValues(t, 1, msg["count"])

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "pause", "paused": true}))
	msg = readType(t, ws, "pauseState")
	assert.Equal(t, true, msg["paused"])

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "whoami"}))
	msg = readType(t, ws, "whoami")
	assert.Equal(t, "ALPHA", msg["room"])
	assert.Equal(t, true, msg["paused"])

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "leave"}))
	msg = readType(t, ws, "left")
	assert.Equal(t, true, msg["removed"])
	assert.Zero(t, o.Sessions.Count("ALPHA"))
}

func TestJoinRateLimited(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)
	readType(t, ws, "clientConfig")

	for range 3 {
		require.NoError(t, ws.WriteJSON(map[string]any{"type": "join", "room": "ghost", "member": "111"}))
		assert.Equal(t, "unknown_room", readType(t, ws, "joinError")["error"])
	}
	require.NoError(t, ws.WriteJSON(map[string]any{"type": "join", "room": "ghost", "member": "111"}))
	assert.Equal(t, "rate_limited", readType(t, ws, "joinError")["error"])
}

func TestAdminRequiresLogin(t *testing.T) {
	srv, o := newTestServer(t)
	ws := dial(t, srv)
	readType(t, ws, "clientConfig")

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "admin.createRoom", "room": "beta"}))
	assert.Equal(t, "unauthorized", readType(t, ws, "error")["error"])
	assert.False(t, o.Registry.Exists("BETA"))

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "admin.login", "password": "wrong"}))
	assert.Equal(t, false, readType(t, ws, "adminLogin")["ok"])

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "admin.login", "password": "s3cret"}))
	assert.Equal(t, true, readType(t, ws, "adminLogin")["ok"])
	readType(t, ws, "dashboardState")

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "admin.createRoom", "room": "beta"}))
	msg := readType(t, ws, "roomCreated")
	assert.Equal(t, "BETA", msg["room"])
	assert.True(t, o.Registry.Exists("BETA"))
}

func TestDeleteRoomNotifiesMember(t *testing.T) {
	srv, o := newTestServer(t)
	_, _, err := o.CreateRoom(context.Background(), "alpha")
	require.NoError(t, err)

	member := dial(t, srv)
	readType(t, member, "clientConfig")
	require.NoError(t, member.WriteJSON(map[string]any{"type": "join", "room": "alpha", "member": "111"}))
	readType(t, member, "joined")

	_, err = o.DeleteRoom(context.Background(), "alpha")
	require.NoError(t, err)

	msg := readType(t, member, "roomRemoved")
	assert.Equal(t, "ALPHA", msg["room"])

	// The socket stays usable after its room is gone.
	require.NoError(t, member.WriteJSON(map[string]any{"type": "ping"}))
	readType(t, member, "pong")
}

func TestKickClosesSocket(t *testing.T) {
	srv, o := newTestServer(t)
	_, _, err := o.CreateRoom(context.Background(), "alpha")
	require.NoError(t, err)

	member := dial(t, srv)
	cfg := readType(t, member, "clientConfig")
	require.NoError(t, member.WriteJSON(map[string]any{"type": "join", "room": "alpha", "member": "111"}))
	readType(t, member, "joined")

	require.True(t, o.Kick(domain.ConnID(cfg["conn"].(string))))
	readType(t, member, "memberKicked")

	require.NoError(t, member.SetReadDeadline(time.Now().Add(2*time.Second)))
	for {
		if _, _, err := member.ReadMessage(); err != nil {
			assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), err.Error())
			break
		}
	}
}

func TestUnknownType(t *testing.T) {
	srv, _ := newTestServer(t)
	ws := dial(t, srv)
	readType(t, ws, "clientConfig")

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "dance"}))
	assert.Equal(t, "unknown_type", readType(t, ws, "error")["error"])
}
