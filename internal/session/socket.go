package session

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/bydelskart/internal/mapview"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the client.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the client.
	pongWait = 60 * time.Second

	// Send pings to client with this period. Must be less than pongWait.
	pingPeriod = 15 * time.Second

	// Maximum message size allowed from client.
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades requests to websocket map sessions. The initial theme
// and viewport come from the dark, width and height query parameters.
func Handler(cfg Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		dark, _ := strconv.ParseBool(q.Get("dark"))
		width, err := strconv.Atoi(q.Get("width"))
		if err != nil || width <= 0 {
			width = 1024
		}
		height, _ := strconv.Atoi(q.Get("height"))

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// the upgrader has already replied
			return
		}

		s := New(cfg, dark, width, height)
		s.logger.Info("map session started", "remote", r.RemoteAddr, "width", width, "dark", dark)
		s.Run(r.Context(), conn, cfg.Loader)
		s.logger.Info("map session ended")
	})
}

// Run is the session's event loop. It owns the connection's write side and
// every call into the session; the read side only forwards decoded
// messages. Run returns when the client goes away or ctx is done.
func (s *Session) Run(ctx context.Context, conn *websocket.Conn, loader mapview.Loader) {
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		cancel()
		s.Close()
		conn.Close()
	}()

	inbox := make(chan ClientMessage)
	go s.readLoop(ctx, cancel, conn, inbox)

	if loader != nil {
		s.renderer.Mount(ctx, loader)
	}

	if err := s.write(conn, s.Hello(), s.SceneMessage()); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage, []byte{}, time.Now().Add(writeWait)) // nolint:errcheck
			return
		case m, ok := <-inbox:
			if !ok {
				return
			}
			if err := s.write(conn, s.Handle(m)...); err != nil {
				return
			}
		case <-s.changed:
			if err := s.write(conn, s.SceneMessage()); err != nil {
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Session) readLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, inbox chan<- ClientMessage) {
	defer func() {
		cancel()
		close(inbox)
	}()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		var m ClientMessage
		if err := conn.ReadJSON(&m); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		select {
		case inbox <- m:
		case <-ctx.Done():
			return
		}
	}
}

func (s *Session) write(conn *websocket.Conn, msgs ...ServerMessage) error {
	for _, m := range msgs {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(m); err != nil {
			s.logger.Debug("websocket write failed", "error", err)
			return err
		}
	}
	return nil
}
