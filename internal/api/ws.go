// ABOUTME: Websocket endpoint pushing the recent live feed window on a timer.
// ABOUTME: One goroutine writes, one drains client frames so closes are noticed.
package api

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/harperreed/vamos/internal/query"
)

const (
	writeWait    = 5 * time.Second
	pongWait     = 60 * time.Second
	wsMaxMessage = 512
)

func newUpgrader(allowOrigins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     originChecker(allowOrigins),
	}
}

// originChecker accepts handshakes from the allowed origins. An empty list or a "*" entry
// accepts any origin; requests without an Origin header come from non-browser clients.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || slices.Contains(allowed, origin)
	}
}

// feedMessage is one push on /feed/ws.
type feedMessage struct {
	Type   string            `json:"type"`
	Active bool              `json:"active"`
	Window *query.FeedWindow `json:"window,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// feedSocket pushes the last lookback seconds (default 10) of samples every push interval.
func (s *Server) feedSocket(c *gin.Context) {
	lookback, err := intParam(c, "lookback", 10)
	if err != nil {
		badRequest(c, err)
		return
	}
	limit, err := intParam(c, "limit", 0)
	if err != nil {
		badRequest(c, err)
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		conn.SetReadLimit(wsMaxMessage)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ctx := c.Request.Context()
	ticker := time.NewTicker(s.push)
	defer ticker.Stop()

	send := func() error {
		msg := feedMessage{Type: "feed", Active: s.app.Feed.Active()}
		w, err := s.app.Query.RecentFeed(ctx, time.Duration(lookback)*time.Second, limit)
		if err != nil {
			msg.Type, msg.Error = "error", err.Error()
		} else {
			msg.Window = &w
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(msg)
	}

	if err := send(); err != nil {
		return
	}
	for {
		select {
		case <-closed:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := send(); err != nil {
				s.log.Debug("websocket write failed", "error", err)
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
