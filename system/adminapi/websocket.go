package adminapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Admin surface is operator tooling, not a public browser endpoint;
	// same-origin checks add no value here.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeWait = 10 * time.Second

// streamEvents upgrades the request and relays every Hub event to the
// client as a JSON text frame until the connection drops.
func (d Deps) streamEvents(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		d.Log.WithField("error", err).Warn("adminapi: websocket upgrade failed")
		return
	}
	defer conn.Close()

	messages, unsubscribe := d.Hub.subscribe()
	defer unsubscribe()

	// Drain client-initiated frames (pings, close) on their own goroutine so
	// a silent client doesn't leave the connection looking alive forever.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case payload, ok := <-messages:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}
	}
}
