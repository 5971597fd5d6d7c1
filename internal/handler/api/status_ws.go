package api

import (
	"context"
	"net/http"
	"time"

	xlogger "StockCast/pkg/logger"
	"StockCast/pkg/util"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

const wsWriteWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// StatusStream pushes the request record on every status change and closes
// the socket once the request is terminal. poll_ms overrides the store
// polling interval within [50ms, 5s].
func (h *PredictEchoHandler) StatusStream(c echo.Context) error {
	id, aerr := parseID(c)
	if aerr != nil {
		return h.fail(c, "watch", aerr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poll := h.wsPoll
	if ms := util.ParseIntDefault(c.QueryParam("poll_ms"), 0); ms > 0 {
		poll = util.ClampDuration(time.Duration(ms)*time.Millisecond, 50*time.Millisecond, 5*time.Second)
	}

	updates, err := h.requests.Watch(ctx, id, poll)
	if err != nil {
		return h.fail(c, "watch", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		h.logger.Debug("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	defer conn.Close()

	// Drain client frames so a close from the peer ends the watch.
	go func() {
		defer cancel()
		_ = conn.SetReadDeadline(time.Time{})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for d := range updates {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(d); err != nil {
			h.logger.Debug("websocket write failed", xlogger.String("id", id.String()), xlogger.Error(err))
			return nil
		}
	}

	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
	return nil
}
