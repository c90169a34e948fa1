package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/okian/highscores/internal/domain/model"
	"github.com/okian/highscores/pkg/logger"
)

const (
	feedWriteWait  = 5 * time.Second
	feedPongWait   = 60 * time.Second
	feedPingPeriod = feedPongWait * 9 / 10
)

// FeedSource hands out change event subscriptions.
type FeedSource interface {
	Subscribe() (uint64, <-chan model.ChangeEvent, error)
	Unsubscribe(id uint64)
}

// FeedHandler streams leaderboard changes over WebSocket.
type FeedHandler struct {
	source   FeedSource
	upgrader websocket.Upgrader
}

// NewFeedHandler creates a new feed handler.
func NewFeedHandler(source FeedSource) *FeedHandler {
	return &FeedHandler{
		source:   source,
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// HandleFeed handles GET /feed. Each committed change is sent as one JSON
// text message until the client disconnects or the feed closes.
func (h *FeedHandler) HandleFeed(w http.ResponseWriter, r *http.Request) {
	const op = "api.feed"
	id, events, err := h.source.Subscribe()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "unavailable", Wrap(op, err))
		return
	}
	defer h.source.Unsubscribe(id)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		return
	}
	defer conn.Close()

	log := logger.Named("feed")
	log.Debug(r.Context(), "feed subscriber connected", logger.Int64("subscriber", int64(id)))

	// Clients only send control frames; the read loop notices disconnects.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(feedPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(feedPongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(feedPingPeriod)
	defer ping.Stop()
	for {
		select {
		case ev, ok := <-events:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			log.Debug(r.Context(), "feed subscriber disconnected", logger.Int64("subscriber", int64(id)))
			return
		}
	}
}
