package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/blinkbus/blink-go/internal/logger"
	"github.com/blinkbus/blink-go/internal/scanner"
)

const sseWriteTimeout = 10 * time.Second

// ScannerEvent is a scanner state change as sent on the event stream.
type ScannerEvent struct {
	State string    `json:"state"`
	Mode  string    `json:"mode,omitempty"`
	Plate string    `json:"plate,omitempty"`
	Error string    `json:"error,omitempty"`
	Time  time.Time `json:"time"`
}

func newScannerEvent(ev scanner.Event) ScannerEvent {
	out := ScannerEvent{State: ev.State.String(), Mode: ev.Mode, Time: ev.Time}
	if ev.HasPlate() {
		out.Plate = ev.Plate.String()
	}
	if ev.Err != nil {
		out.Error = ev.Err.Error()
	}
	return out
}

// streamEvents sends detections and scanner state changes as server-sent
// events until the client goes away or the server shuts down.
func (s *Server) streamEvents(c echo.Context) error {
	h := c.Response().Header()
	h.Set(echo.HeaderContentType, "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set(echo.HeaderConnection, "keep-alive")
	h.Set("X-Accel-Buffering", "no")

	detections, stopDetections := s.service.Subscribe()
	defer stopDetections()

	var states <-chan scanner.Event
	if sc := s.service.Scanner(); sc != nil {
		ch, stop := sc.Subscribe()
		defer stop()
		states = ch
	}

	clientID := uuid.NewString()
	if s.metrics != nil {
		s.metrics.HTTP.StreamOpened()
		defer s.metrics.HTTP.StreamClosed()
	}

	c.Response().WriteHeader(http.StatusOK)
	if err := s.sendEvent(c, "connected", map[string]string{
		"clientId": clientID,
		"message":  "Connected to detection stream",
	}); err != nil {
		return nil
	}

	s.log.Debug("event stream opened", logger.String("client_id", clientID), logger.String("ip", c.RealIP()))
	defer s.log.Debug("event stream closed", logger.String("client_id", clientID))

	ticker := time.NewTicker(s.config.Heartbeat)
	defer ticker.Stop()

	for {
		var err error
		select {
		case d, ok := <-detections:
			if !ok {
				return nil
			}
			err = s.sendEvent(c, "detection", d)
		case ev, ok := <-states:
			if !ok {
				states = nil
				continue
			}
			err = s.sendEvent(c, "state", newScannerEvent(ev))
		case <-ticker.C:
			err = s.sendEvent(c, "heartbeat", map[string]any{"timestamp": time.Now().Unix()})
		case <-c.Request().Context().Done():
			return nil
		case <-s.ctx.Done():
			return nil
		}
		if err != nil {
			s.log.Debug("event stream write failed, client likely disconnected",
				logger.String("client_id", clientID),
				logger.Error(err))
			return nil
		}
	}
}

func (s *Server) sendEvent(c echo.Context, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	rc := http.NewResponseController(c.Response().Writer)
	_ = rc.SetWriteDeadline(time.Now().Add(sseWriteTimeout))

	if _, err := fmt.Fprintf(c.Response(), "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	c.Response().Flush()

	if s.metrics != nil {
		s.metrics.HTTP.EventSent()
	}
	return nil
}
