package handlers

import (
	"context"
	"log/slog"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/labstack/echo/v4"

	"github.com/devarche/wpp-dashboard/internal/feed"
)

// StreamHandler pushes change feed events to the console over a websocket so
// the inbox updates without polling.
type StreamHandler struct {
	feed   feed.Subscriber
	logger *slog.Logger
}

// NewStreamHandler creates a stream handler.
func NewStreamHandler(log *slog.Logger, subscriber feed.Subscriber) *StreamHandler {
	return &StreamHandler{
		feed:   subscriber,
		logger: log.With(slog.String("handler", "stream")),
	}
}

func (h *StreamHandler) Register(e *echo.Echo) {
	e.GET("/api/stream", h.Stream)
}

// Stream upgrades to a websocket and forwards feed events until the client
// disconnects. A slow client that lets its buffer fill simply misses events;
// the console reloads state on reconnect.
func (h *StreamHandler) Stream(c echo.Context) error {
	conn, err := websocket.Accept(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusInternalError, "stream closed")

	ctx := c.Request().Context()
	streamID, events, cancel := h.feed.Subscribe(64)
	defer cancel()

	h.logger.Debug("stream subscribed", slog.String("stream_id", streamID))
	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return nil
		case event, ok := <-events:
			if !ok {
				conn.Close(websocket.StatusNormalClosure, "")
				return nil
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 10*time.Second)
			err := wsjson.Write(writeCtx, conn, event)
			cancelWrite()
			if err != nil {
				h.logger.Debug("stream client gone", slog.String("stream_id", streamID), slog.Any("error", err))
				return nil
			}
		}
	}
}
