package httpapi

import (
	"log/slog"
	"net/http"
	"time"

	"voicedesk/internal/events"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = 30 * time.Second

	// wsSendBuffer bounds the per-connection queue. A slow client
	// loses events rather than stalling the publisher.
	wsSendBuffer = 64
)

// EventFeed pushes lifecycle events to websocket clients as JSON.
type EventFeed struct {
	notifier *events.Notifier
	log      *slog.Logger
	upgrader websocket.Upgrader
}

func NewEventFeed(n *events.Notifier, log *slog.Logger) *EventFeed {
	if log == nil {
		log = slog.Default()
	}
	return &EventFeed{
		notifier: n,
		log:      log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Same open policy as the CORS middleware.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

func (f *EventFeed) Handle(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		f.log.Warn("websocket upgrade failed", "error", err)
		return
	}

	send := make(chan events.Event, wsSendBuffer)
	sub := f.notifier.Subscribe(func(e events.Event) {
		select {
		case send <- e:
		default:
			f.log.Warn("websocket client too slow, dropping event", "type", string(e.Type))
		}
	})
	defer func() {
		f.notifier.Unsubscribe(sub)
		conn.Close()
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(wsPingPeriod)
	defer ping.Stop()

	for {
		select {
		case e := <-send:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
