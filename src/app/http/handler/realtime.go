package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"scholarduel/src/app/http/dto"
	"scholarduel/src/app/http/response"
	"scholarduel/src/app/middleware"
	"scholarduel/src/infra/config"
	"scholarduel/src/infra/realtime"
)

const maxClientMessage = 4096

// RealtimeHandler upgrades clients to a websocket carrying change
// notifications for the duels they watch and the duels they take part in.
type RealtimeHandler struct {
	hub      *realtime.Hub
	cfg      config.RealtimeConfig
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewRealtimeHandler(hub *realtime.Hub, cfg config.RealtimeConfig, cors config.CORSConfig, log *slog.Logger) *RealtimeHandler {
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 25 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	return &RealtimeHandler{
		hub: hub,
		cfg: cfg,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     originChecker(cors),
		},
	}
}

// Connect GET /v1/realtime?token=...&duel_id=...
func (h *RealtimeHandler) Connect(c *gin.Context) {
	sess := middleware.GetSession(c)

	var duelIDs []uuid.UUID
	for _, raw := range c.QueryArray("duel_id") {
		id, err := uuid.Parse(raw)
		if err != nil {
			response.ValidationError(c, "duel_id", "must be a UUID", middleware.GetRequestID(c))
			return
		}
		duelIDs = append(duelIDs, id)
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the error response.
		h.log.Warn("websocket upgrade failed", "user_id", sess.UserID, "error", err)
		return
	}

	sub := h.hub.Register(sess.UserID, duelIDs...)
	log := h.log.With("user_id", sess.UserID, "request_id", middleware.GetRequestID(c))
	log.Info("realtime client connected", "duels", len(duelIDs))

	done := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(conn, sub, done, log)
	}()

	h.readLoop(conn, sub, log)
	close(done)
	h.hub.Unregister(sub)
	<-writerDone
	_ = conn.Close()
	log.Info("realtime client disconnected")
}

// readLoop handles subscribe and unsubscribe frames until the client goes
// away or stops answering pings.
func (h *RealtimeHandler) readLoop(conn *websocket.Conn, sub *realtime.Subscriber, log *slog.Logger) {
	pongWait := 2 * h.cfg.PingInterval
	conn.SetReadLimit(maxClientMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if !errors.As(err, &closeErr) {
				log.Debug("realtime read ended", "error", err)
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg dto.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug("ignoring malformed realtime frame", "error", err)
			continue
		}

		switch msg.Type {
		case dto.ClientSubscribe:
			if msg.DuelID != uuid.Nil {
				sub.Watch(msg.DuelID)
			}
		case dto.ClientUnsubscribe:
			sub.Unwatch(msg.DuelID)
		default:
			log.Debug("ignoring realtime client message", "type", msg.Type)
		}
	}
}

// writeLoop is the only goroutine writing to conn.
func (h *RealtimeHandler) writeLoop(conn *websocket.Conn, sub *realtime.Subscriber, done <-chan struct{}, log *slog.Logger) {
	ticker := time.NewTicker(h.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(h.cfg.WriteTimeout))
			return
		case ev, ok := <-sub.Events():
			if !ok {
				// Dropped by the hub for falling behind, or shutting down.
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "reconnect and refetch"),
					time.Now().Add(h.cfg.WriteTimeout))
				_ = conn.Close()
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(h.cfg.WriteTimeout))
			if err := conn.WriteJSON(dto.NewEventResponse(ev)); err != nil {
				log.Debug("realtime write failed", "error", err)
				_ = conn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(h.cfg.WriteTimeout)); err != nil {
				_ = conn.Close()
				return
			}
		}
	}
}

func originChecker(cors config.CORSConfig) func(*http.Request) bool {
	if cors.AllowAll() {
		return func(*http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(cors.Origins))
	for _, o := range cors.Origins {
		allowed[strings.TrimSpace(o)] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
