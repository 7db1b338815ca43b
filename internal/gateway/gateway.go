// Copyright (c) 2026 Vantari. All rights reserved.
// Author: ops@vantari.gg

/*
Package gateway owns the websocket transport: accepting connections, pumping
frames in and out, and tying each socket's lifetime to its [session.Session].

Architecture:

  - One reader goroutine and one writer goroutine per connection. The reader
    is the HTTP handler goroutine itself; the writer drains the session's
    bounded send queue. Nothing else touches the socket.
  - The connection context is cancelled exactly once, on teardown. Everything
    scoped to the connection (the admin user-count stream, the reauth timer)
    hangs off that context or the session and dies with it.
  - Backpressure is terminal: a client that cannot drain its send queue
    within the queue's capacity is closed, never waited on. Fan-out paths
    must stay non-blocking.
*/
package gateway

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/vantari/loadout/internal/dispatch"
	"github.com/vantari/loadout/internal/gamelist"
	"github.com/vantari/loadout/internal/platform/constants"
	"github.com/vantari/loadout/internal/session"
)

// maxFrameSize bounds a single serverbound frame. The largest legitimate
// payloads are keybind migrations and screen JSON, both well under this.
const maxFrameSize = 1 << 20

// Supervisor accepts websocket connections and runs their pumps.
type Supervisor struct {
	upgrader   websocket.Upgrader
	registry   *dispatch.Registry
	sessions   *session.Registry
	translator session.Translator
	redis      *redis.Client
	bus        *gamelist.Bus
	logger     *slog.Logger
}

// New creates the connection supervisor.
func New(registry *dispatch.Registry, sessions *session.Registry, translator session.Translator, redisClient *redis.Client, bus *gamelist.Bus, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The add-on connects from a game client, not a browser; there
			// is no origin to check.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		registry:   registry,
		sessions:   sessions,
		translator: translator,
		redis:      redisClient,
		bus:        bus,
		logger:     logger,
	}
}

// Handler returns the HTTP handler to mount at the websocket path.
func (sup *Supervisor) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := sup.upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade already wrote the HTTP error response.
			sup.logger.Warn("websocket_upgrade_failed",
				slog.String("remote", r.RemoteAddr),
				slog.String("error", err.Error()))
			return
		}
		sup.serve(r.Context(), conn)
	}
}

// serve runs one connection to completion. Calling goroutine becomes the
// read pump.
func (sup *Supervisor) serve(parent context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parent)

	sendQueue := make(chan []byte, constants.SendQueueSize)
	var teardownOnce sync.Once

	var sess *session.Session
	teardown := func(reason string) {
		teardownOnce.Do(func() {
			deadline := time.Now().Add(constants.WriteTimeout)
			message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
			_ = conn.WriteControl(websocket.CloseMessage, message, deadline)

			cancel()
			_ = conn.Close()

			sup.sessions.Remove(sess)
			sess.CancelReauthTimer()
			sup.publishConnectionDelta(-1)

			sup.logger.Info("connection_closed",
				slog.String("session_id", sess.ID),
				slog.String("reason", reason))
		})
	}

	send := func(frame []byte) bool {
		select {
		case sendQueue <- frame:
			return true
		default:
			// Saturated queue means the client stopped draining. Tear the
			// connection down from a fresh goroutine; send is called from
			// paths that must not block on the socket.
			go teardown("send queue saturated")
			return false
		}
	}

	sess = session.New(send, func(reason string) { go teardown(reason) }, sup.translator)
	sup.sessions.Add(sess)
	sup.publishConnectionDelta(1)
	sup.logger.Info("connection_accepted", slog.String("session_id", sess.ID))

	go sup.writePump(ctx, conn, sess, sendQueue, teardown)
	sup.readPump(ctx, conn, sess, teardown)
}

// # Read Path

// readPump decodes and dispatches serverbound frames until the connection
// dies. Runs on the HTTP handler goroutine.
func (sup *Supervisor) readPump(ctx context.Context, conn *websocket.Conn, sess *session.Session, teardown func(reason string)) {
	conn.SetReadLimit(maxFrameSize)
	_ = conn.SetReadDeadline(time.Now().Add(constants.PongDeadline))
	conn.SetPongHandler(func(string) error {
		sess.LastPongAt = time.Now()
		return conn.SetReadDeadline(time.Now().Add(constants.PongDeadline))
	})

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				sup.logger.Warn("connection_read_failed",
					slog.String("session_id", sess.ID),
					slog.String("error", err.Error()))
			}
			teardown("read error")
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		sup.dispatch(ctx, frame, sess)
	}
}

// dispatch invokes the registry with panic isolation, so one malformed or
// adversarial frame can never take the connection's reader down with a crash.
func (sup *Supervisor) dispatch(ctx context.Context, frame []byte, sess *session.Session) {
	defer func() {
		if recovered := recover(); recovered != nil {
			sup.logger.Error("handler_panic",
				slog.String("session_id", sess.ID),
				slog.Any("panic", recovered))
		}
	}()

	// Handler errors are already translated to client-facing messages and
	// logged by the registry.
	_ = sup.registry.Dispatch(ctx, frame, sess)
}

// # Write Path

// writePump owns all socket writes: queued frames and the ping heartbeat.
func (sup *Supervisor) writePump(ctx context.Context, conn *websocket.Conn, sess *session.Session, sendQueue <-chan []byte, teardown func(reason string)) {
	pinger := time.NewTicker(constants.PingInterval)
	defer pinger.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case frame := <-sendQueue:
			_ = conn.SetWriteDeadline(time.Now().Add(constants.WriteTimeout))
			if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
				sup.logger.Warn("connection_write_failed",
					slog.String("session_id", sess.ID),
					slog.String("error", err.Error()))
				teardown("write error")
				return
			}
		case <-pinger.C:
			deadline := time.Now().Add(constants.WriteTimeout)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				teardown("ping failed")
				return
			}
		}
	}
}

// # Fleet Connection Counter

// publishConnectionDelta adjusts the fleet-wide connection counter and
// broadcasts the new value. Counter drift from a crashed instance is bounded
// by that instance's own connection count and self-corrects as clients
// reconnect; failures here never block the connection lifecycle.
func (sup *Supervisor) publishConnectionDelta(delta int64) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.WriteTimeout)
	defer cancel()

	count, err := sup.redis.IncrBy(ctx, constants.RedisKeyConnections, delta).Result()
	if err != nil {
		sup.logger.Warn("connection_counter_update_failed", slog.String("error", err.Error()))
		return
	}
	if err := sup.bus.PublishConnectionCount(ctx, count); err != nil {
		sup.logger.Warn("connection_count_publish_failed", slog.String("error", err.Error()))
	}
}
