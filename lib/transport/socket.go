package transport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pthm/meld"
	"github.com/pthm/meld/lib/encoding"
)

func (h *Handler) handleSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(h.maxBytes)
	logger := h.logger.With("remote", r.RemoteAddr)
	logger.Debug("websocket connected")

	h.readLoop(r.Context(), conn, logger)
}

// readLoop processes frames one at a time until the connection closes.
// Replies use the frame type of the request.
func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, logger *slog.Logger) {
	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure) {
				logger.Error("websocket read error", "error", err)
			}
			return
		}

		codec := frameCodec(mt)
		reply := h.processFrame(ctx, codec, data, logger)

		out, err := codec.Marshal(reply)
		if err != nil {
			logger.Error("encode frame", "error", err)
			return
		}
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(mt, out); err != nil {
			logger.Error("websocket write error", "error", err)
			return
		}
	}
}

func (h *Handler) processFrame(ctx context.Context, codec encoding.Codec, data []byte, logger *slog.Logger) any {
	msg, err := meld.DecodeMessage(codec, data)
	if err != nil {
		logger.Warn("frame decode error", "error", err)
		return meld.ErrorResponse{Error: err.Error()}
	}
	resp, err := h.dispatcher.Process(ctx, msg)
	if err != nil {
		logger.Error("message failed",
			"component", msg.ComponentName,
			"id", msg.ID,
			"error", err)
		return meld.ErrorResponse{ID: msg.ID, Error: err.Error()}
	}
	return resp
}

func frameCodec(messageType int) encoding.Codec {
	if messageType == websocket.BinaryMessage {
		return encoding.Msgpack
	}
	return encoding.JSON
}
