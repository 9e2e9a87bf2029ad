package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"troubledesk/internal/bootstrap/logging"
	"troubledesk/internal/errs"
)

const (
	defaultStreamInterval = 10 * time.Second
	minStreamInterval     = time.Second
	streamWriteTimeout    = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// handleDashboardStream pushes a fresh dashboard summary over a websocket
// every interval seconds until the client goes away.
func (h *Handler) handleDashboardStream(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter, err := dashboardFilterFromQuery(query, h.loc)
	if err != nil {
		badRequest(w, r, err.Error())
		return
	}
	interval := defaultStreamInterval
	if raw := strings.TrimSpace(query.Get("interval")); raw != "" {
		seconds, err := strconv.Atoi(raw)
		if err != nil || seconds <= 0 {
			badRequest(w, r, "interval: must be a positive number of seconds")
			return
		}
		interval = max(time.Duration(seconds)*time.Second, minStreamInterval)
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already answered the client.
		return
	}
	defer conn.Close()

	ctx := logging.WithAttrs(r.Context(), slog.String("component", "adapters.httpapi.stream"))
	logging.Info(ctx, "dashboard stream opened", slog.Duration("interval", interval))

	// The reader only notices the client closing; inbound messages are ignored.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		summary, err := h.incidents.Dashboard(ctx, filter)
		if err != nil {
			logging.Error(ctx, "dashboard stream query failed", slog.Any("err", errs.Loggable(err)))
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "dashboard unavailable"),
				time.Now().Add(streamWriteTimeout),
			)
			return
		}
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		if err := conn.WriteJSON(toDashboardResponse(summary)); err != nil {
			logging.Debug(ctx, "dashboard stream write failed", slog.Any("err", err))
			return
		}

		select {
		case <-ticker.C:
		case <-closed:
			logging.Info(ctx, "dashboard stream closed by client")
			return
		case <-ctx.Done():
			_ = conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(streamWriteTimeout),
			)
			return
		}
	}
}
