package handlers

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/example/pharmacy-checkout/internal/middleware"
	"github.com/example/pharmacy-checkout/internal/notify"
)

// EventsHandler streams session events as server-sent events.
type EventsHandler struct {
	hub       *notify.Hub
	keepAlive time.Duration
	log       *zap.Logger
}

// NewEventsHandler constructs EventsHandler.
func NewEventsHandler(hub *notify.Hub, log *zap.Logger) *EventsHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventsHandler{hub: hub, keepAlive: 25 * time.Second, log: log.Named("sse")}
}

// Stream keeps the connection open and writes one SSE frame per event.
func (h *EventsHandler) Stream(c *fiber.Ctx) error {
	sessionID := middleware.GetSessionID(c)
	events, cancel := h.hub.Subscribe(sessionID)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	keepAlive := h.keepAlive
	log := h.log
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		ticker := time.NewTicker(keepAlive)
		defer ticker.Stop()

		fmt.Fprint(w, "retry: 3000\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case ev, open := <-events:
				if !open {
					return
				}
				data, err := json.Marshal(ev)
				if err != nil {
					log.Warn("encode event", zap.Error(err))
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
			case <-ticker.C:
				fmt.Fprint(w, ": keep-alive\n\n")
			}

			if err := w.Flush(); err != nil {
				log.Debug("client went away", zap.String("session", sessionID))
				return
			}
		}
	}))

	return nil
}
