package httpapi

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"troubledesk/internal/bootstrap/logging"
	domain "troubledesk/internal/domain/incident"
	"troubledesk/internal/errs"
	"troubledesk/internal/infrastructure/metrics"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderUserID    = "X-User-ID"
	HeaderRoleID    = "X-Role-ID"
)

type actorKey struct{}

// statusRecorder captures the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status  int
	written int64
}

func newStatusRecorder(w http.ResponseWriter) *statusRecorder {
	return &statusRecorder{ResponseWriter: w, status: http.StatusOK}
}

func (rw *statusRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	rw.written += int64(n)
	return n, err
}

func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack lets websocket upgrades pass through; the status is recorded as 101.
func (rw *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	conn, buf, err := hijacker.Hijack()
	if err == nil {
		rw.status = http.StatusSwitchingProtocols
	}
	return conn, buf, err
}

// RequestID reuses an inbound X-Request-ID or assigns a new uuid, echoes it
// and tags the request logger with it.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if requestID == "" || len(requestID) > 128 {
			requestID = uuid.NewString()
		}
		w.Header().Set(HeaderRequestID, requestID)

		ctx := logging.WithRequest(r.Context(), requestID, 0, 0)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Actor reads the caller from X-User-ID and X-Role-ID as set by the gateway.
// A missing role leaves the zero Role, which no permission rule grants.
func Actor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var actor domain.Actor

		if raw := strings.TrimSpace(r.Header.Get(HeaderUserID)); raw != "" {
			userID, err := strconv.ParseInt(raw, 10, 64)
			if err != nil || userID <= 0 {
				writeMessage(w, r, http.StatusBadRequest, string(errs.CodeInvalidInput), "X-User-ID must be a positive integer")
				return
			}
			actor.UserID = userID
		}
		if raw := strings.TrimSpace(r.Header.Get(HeaderRoleID)); raw != "" {
			role, err := domain.ParseRole(raw)
			if err != nil {
				writeMessage(w, r, http.StatusBadRequest, string(errs.CodeInvalidInput), err.Error())
				return
			}
			actor.Role = role
		}

		ctx := context.WithValue(r.Context(), actorKey{}, actor)
		ctx = logging.WithRequest(ctx, "", actor.UserID, int(actor.Role))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func actorFrom(ctx context.Context) domain.Actor {
	actor, _ := ctx.Value(actorKey{}).(domain.Actor)
	return actor
}

// Observe records request metrics by chi route pattern and logs each request;
// the level follows the status class.
func Observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := newStatusRecorder(w)

		next.ServeHTTP(wrapped, r)

		duration := time.Since(start)
		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		metrics.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(duration.Seconds())

		ctx := logging.WithAttrs(r.Context(), slog.String("component", "adapters.httpapi"))
		attrs := []slog.Attr{
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", wrapped.status),
			slog.Duration("duration", duration),
			slog.Int64("bytes", wrapped.written),
		}
		switch {
		case wrapped.status >= 500:
			logging.Error(ctx, "http request", attrs...)
		case wrapped.status >= 400:
			logging.Warn(ctx, "http request", attrs...)
		default:
			logging.Info(ctx, "http request", attrs...)
		}
	})
}
