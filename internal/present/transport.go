package present

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/dgallion1/layertree/internal/walker"
)

const (
	keepAliveInterval = 25 * time.Second
	writeWait         = 10 * time.Second
	pongWait          = 60 * time.Second
	maxInboundBytes   = 64 << 10
)

// Refresher handles a panel's refresh-selection request.
type Refresher interface {
	Refresh(ctx context.Context, patch walker.Patch)
}

// SSEHandler streams messages as server-sent events named after the message type.
func SSEHandler(b *Broadcaster, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		ch := b.Subscribe()
		defer b.Unsubscribe(ch)
		log.Debug("sse subscriber connected", "remote", r.RemoteAddr)

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				log.Debug("sse subscriber gone", "remote", r.RemoteAddr)
				return
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
				flusher.Flush()
			case m, ok := <-ch:
				if !ok {
					return
				}
				data, err := Marshal(m)
				if err != nil {
					log.Error("marshal message", "error", err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", m.Type, data)
				flusher.Flush()
			}
		}
	}
}

// WSHandler serves the bidirectional panel channel: outbound messages are
// written as JSON text frames, inbound refresh-selection and close requests
// are read from the same socket.
func WSHandler(b *Broadcaster, refresher Refresher, log *slog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		defer conn.Close()

		ch := b.Subscribe()
		defer b.Unsubscribe(ch)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		go readPump(ctx, cancel, conn, refresher, log)
		writePump(ctx, conn, ch, log)
	}
}

func readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, refresher Refresher, log *slog.Logger) {
	defer cancel()
	conn.SetReadLimit(maxInboundBytes)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var in Inbound
		if err := conn.ReadJSON(&in); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", "error", err)
			}
			return
		}
		switch in.Type {
		case TypeRefreshSelection:
			refresher.Refresh(ctx, in.Patch)
		case TypeClose:
			log.Debug("panel closed session")
			return
		default:
			log.Debug("ignoring inbound message", "type", in.Type)
		}
	}
}

func writePump(ctx context.Context, conn *websocket.Conn, ch chan Message, log *slog.Logger) {
	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case m, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(m); err != nil {
				log.Warn("websocket write failed", "error", err)
				return
			}
		}
	}
}
