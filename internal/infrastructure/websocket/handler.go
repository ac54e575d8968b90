// Package websocket exposes the /ws endpoint: each accepted connection
// becomes an observer registered with the broadcast hub until it closes or a
// send to it fails.
package websocket

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/workboxhq/workbox/internal/observability"
	"github.com/workboxhq/workbox/internal/realtime"
)

const (
	componentWS = "ws_transport"

	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
	readLimit  = 4096
)

type IDGenerator interface {
	NewID() string
}

type Handler struct {
	hub         *realtime.Hub
	idGenerator IDGenerator
	upgrader    websocket.Upgrader
	log         observability.Logger
}

func NewHandler(hub *realtime.Hub, idGen IDGenerator, tel observability.Observability) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		hub:         hub,
		idGenerator: idGen,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// The feed carries no credentials; origin policy is left to the
			// deployment's proxy.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log: tel.Logger().With(observability.F("component", componentWS)),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws_upgrade_failed",
			observability.F("remote", r.RemoteAddr),
			observability.F("error", err.Error()),
		)
		return
	}

	obs := newObserver(h.idGenerator.NewID(), conn)
	h.hub.Register(obs)

	go h.pingLoop(obs, conn)
	go h.readLoop(obs, conn)
}

// readLoop drains inbound frames so close and pong control frames are
// processed. Client payloads are ignored; the feed is push-only.
func (h *Handler) readLoop(obs *observer, conn *websocket.Conn) {
	defer func() {
		h.hub.Unregister(obs)
		_ = obs.Close()
	}()

	conn.SetReadLimit(readLimit)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws_read_closed",
					observability.F("observer_id", obs.ID()),
					observability.F("error", err.Error()),
				)
			}
			return
		}
	}
}

func (h *Handler) pingLoop(obs *observer, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for range ticker.C {
		if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
			return
		}
	}
}
