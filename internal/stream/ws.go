package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/Shravan-1908/projectile-motion-simulator/internal/metrics"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The stream is read-only public data; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsClient writes stream messages as websocket text frames.
type wsClient struct {
	conn *websocket.Conn
}

func (c *wsClient) sendJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("json marshal: %w", err)
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	metrics.IncStreamMessages()
	metrics.AddStreamBytes(int64(len(data)))
	return nil
}

func (c *wsClient) sendKeepalive() error {
	deadline := time.Now().Add(writeTimeout)
	if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// HandleWS serves the websocket trajectory stream. Messages are the same JSON
// objects the SSE stream sends. The server closes the socket after "done".
func (h *Handler) HandleWS(w http.ResponseWriter, r *http.Request) {
	req, ok := h.prepare(w, r)
	if !ok {
		return
	}

	ip, ok := h.acquire(w, r)
	if !ok {
		return
	}
	defer h.track("ws", ip, r, req)()

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		metrics.IncStreamErrors("upgrade")
		h.logger.Debug("websocket upgrade failed", "remote_ip", ip, "error", err)
		return
	}
	defer conn.Close()

	// Read pump: handles control frames and notices when the client leaves.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	conn.SetReadLimit(1 << 10)
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	err = h.replay(ctx, &wsClient{conn: conn}, req)
	switch {
	case err == nil:
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done")
		_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	case !errors.Is(err, context.Canceled):
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("stream send error", "transport", "ws", "remote_ip", ip, "error", err)
	}
}
