package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/edvin/civicwatch/internal/api/request"
	"github.com/edvin/civicwatch/internal/api/response"
	"github.com/edvin/civicwatch/internal/realtime"
)

const (
	defaultHeartbeat = 30 * time.Second
	wsWriteTimeout   = 10 * time.Second
)

// Stream pushes hub events to dashboards over SSE and WebSocket. Each
// connection subscribes with the filter given in its query string.
type Stream struct {
	hub       *realtime.Hub
	origins   []string
	heartbeat time.Duration
	now       func() time.Time
	logger    zerolog.Logger
}

// NewStream returns the stream handler. With no origin patterns any origin
// may open a WebSocket.
func NewStream(hub *realtime.Hub, origins []string, logger zerolog.Logger) *Stream {
	return &Stream{
		hub:       hub,
		origins:   origins,
		heartbeat: defaultHeartbeat,
		now:       time.Now,
		logger:    logger.With().Str("component", "stream").Logger(),
	}
}

func (h *Stream) connected(id uint64) realtime.Event {
	return realtime.Event{
		Type:      realtime.EventConnection,
		Data:      map[string]any{"status": "connected", "subscriber": id},
		Timestamp: h.now(),
	}
}

// SSE godoc
//
//	@Summary		Server-sent event stream
//	@Description	Streams new_report, report_updated, incident_created, incident_updated and system_alert events matching the filter. The first event is always connection.
//	@Tags			Realtime
//	@Security		BearerAuth
//	@Produce		text/event-stream
//	@Param			event_type		query	string	false	"Event type or all"
//	@Param			min_trust		query	number	false	"Minimum trust, 0-1"
//	@Param			time_window		query	string	false	"Hours, 24h, 1w, 1m, 6m or all"
//	@Param			verified_only	query	bool	false	"Only verified records"
//	@Success		200
//	@Failure		400	{object}	response.ErrorResponse
//	@Router			/stream/sse [get]
func (h *Stream) SSE(w http.ResponseWriter, r *http.Request) {
	f, err := request.ParseFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	rc := http.NewResponseController(w)
	// The server-wide write timeout would cut long-lived streams.
	_ = rc.SetWriteDeadline(time.Time{})

	sub := h.hub.Subscribe(f)
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	if err := writeSSE(w, rc, h.connected(sub.ID)); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeSSE(w, rc, ev); err != nil {
				h.logger.Debug().Err(err).Uint64("subscriber", sub.ID).Msg("sse write failed")
				return
			}
		}
	}
}

func writeSSE(w http.ResponseWriter, rc *http.ResponseController, ev realtime.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	return rc.Flush()
}

// WebSocket godoc
//
//	@Summary		WebSocket event stream
//	@Description	Same events as the SSE stream, one JSON text message each. Messages sent by the client are ignored.
//	@Tags			Realtime
//	@Security		BearerAuth
//	@Param			event_type		query	string	false	"Event type or all"
//	@Param			min_trust		query	number	false	"Minimum trust, 0-1"
//	@Param			time_window		query	string	false	"Hours, 24h, 1w, 1m, 6m or all"
//	@Param			verified_only	query	bool	false	"Only verified records"
//	@Success		101
//	@Failure		400	{object}	response.ErrorResponse
//	@Router			/stream/ws [get]
func (h *Stream) WebSocket(w http.ResponseWriter, r *http.Request) {
	f, err := request.ParseFilter(r)
	if err != nil {
		response.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})
	_ = rc.SetReadDeadline(time.Time{})

	ws, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns:     h.origins,
		InsecureSkipVerify: len(h.origins) == 0,
	})
	if err != nil {
		h.logger.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer ws.CloseNow()

	sub := h.hub.Subscribe(f)
	defer sub.Close()

	// CloseRead discards client messages and cancels ctx once the peer goes away.
	ctx := ws.CloseRead(r.Context())

	if err := h.writeWS(ctx, ws, h.connected(sub.ID)); err != nil {
		return
	}

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
			err := ws.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		case ev, ok := <-sub.Events():
			if !ok {
				ws.Close(websocket.StatusGoingAway, "server shutting down")
				return
			}
			if err := h.writeWS(ctx, ws, ev); err != nil {
				h.logger.Debug().Err(err).Uint64("subscriber", sub.ID).Msg("websocket write failed")
				return
			}
		}
	}
}

func (h *Stream) writeWS(ctx context.Context, ws *websocket.Conn, ev realtime.Event) error {
	ctx, cancel := context.WithTimeout(ctx, wsWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, ws, ev)
}
