package handlers

import (
	"bufio"
	"fmt"
	"log"
	"time"

	"club-live-engine/broadcast"
	"club-live-engine/middleware"

	"github.com/gofiber/fiber/v2"
)

const streamKeepAlive = 15 * time.Second

// Stream serves hub events for the requested rooms as server-sent events.
// Rooms come from ?tournament_id=, ?table_id= or an explicit ?rooms= list.
func (h *LiveHandler) Stream(c *fiber.Ctx) error {
	var rooms []string
	if raw := c.Query("rooms"); raw != "" {
		parsed, err := broadcast.ParseRooms(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "rooms must be tournament:<id> or table:<id>"})
		}
		rooms = parsed
	}
	if id := c.Query("tournament_id"); id != "" {
		rooms = append(rooms, broadcast.TournamentRoom(id))
	}
	if id := c.Query("table_id"); id != "" {
		rooms = append(rooms, broadcast.TableRoom(id))
	}
	if len(rooms) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "tournament_id, table_id or rooms is required"})
	}

	userID := middleware.UserID(c)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	// Subscribe only once the writer runs, so a client that drops before the
	// stream starts leaves nothing behind in the hub.
	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		sub := h.Hub.Subscribe(userID, rooms...)
		defer h.Hub.Unsubscribe(sub)

		keepAlive := time.NewTicker(streamKeepAlive)
		defer keepAlive.Stop()

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		if err := w.Flush(); err != nil {
			return
		}

		for {
			select {
			case evt, ok := <-sub.Send:
				if !ok {
					return
				}
				data, err := broadcast.EncodeJSON(evt)
				if err != nil {
					log.Printf("[Gateway] SSE encode error for %s: %v", userID, err)
					continue
				}
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", evt.Name, data)
				if err := w.Flush(); err != nil {
					log.Printf("[Gateway] SSE client %s disconnected", userID)
					return
				}
			case <-keepAlive.C:
				w.WriteString(":\n\n")
				if err := w.Flush(); err != nil {
					log.Printf("[Gateway] SSE client %s disconnected", userID)
					return
				}
			}
		}
	})
	return nil
}
