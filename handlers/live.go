package handlers

import (
	"errors"
	"log"
	"time"

	"club-live-engine/broadcast"
	"club-live-engine/middleware"
	"club-live-engine/services"
	"club-live-engine/utils"

	"github.com/gofiber/fiber/v2"
)

const (
	defaultSessionTTL = 12 * time.Hour
	maxSessionTTL     = 24 * time.Hour
)

// LiveHandler exposes the engine to floor terminals through the Gateway.
type LiveHandler struct {
	Seating  *services.SeatingService
	Live     *services.LiveStateService
	Chips    *services.ChipService
	Archive  *services.ArchiveService
	Sessions *utils.SessionSigner
	Hub      *broadcast.Hub
}

// respondError maps service error categories to HTTP statuses.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrInvalidState):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrInvalidInput):
		status = fiber.StatusBadRequest
	}
	if status == fiber.StatusInternalServerError {
		log.Printf("❌ %s %s: %v", c.Method(), c.Path(), err)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func audit(c *fiber.Ctx, action string) {
	log.Printf("[Live] operator=%s action=%s tournament=%s", middleware.UserID(c), action, c.Params("id"))
}

func (h *LiveHandler) InitializeTables(c *fiber.Ctx) error {
	audit(c, "initialize_tables")
	n, err := h.Seating.InitializeTables(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"tablesCreated": n})
}

type balanceRequest struct {
	Moves []services.TableMoveInput `json:"moves"`
}

func (h *LiveHandler) AutoBalance(c *fiber.Ctx) error {
	var req balanceRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	audit(c, "auto_balance")

	outcome, err := h.Seating.AutoBalance(c.UserContext(), c.Params("id"), req.Moves)
	if err != nil {
		return respondError(c, err)
	}
	switch o := outcome.(type) {
	case services.BalanceNeedsInput:
		return c.JSON(fiber.Map{"status": "needs_input", "needInput": true, "moves": o.Moves})
	case services.BalanceCompleted:
		return c.JSON(fiber.Map{"status": "completed", "tablesCreated": o.TablesCreated, "seatsAssigned": o.SeatsAssigned})
	}
	return respondError(c, errors.New("unknown balance outcome"))
}

func (h *LiveHandler) ListTables(c *fiber.Ctx) error {
	tables, err := h.Seating.ListTables(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(tables)
}

type reseatRequest struct {
	PlayerID   string `json:"player_id"`
	TableID    string `json:"table_id"`
	SeatNumber int    `json:"seat_number"`
}

func (h *LiveHandler) ManualReseat(c *fiber.Ctx) error {
	var req reseatRequest
	if err := c.BodyParser(&req); err != nil || req.PlayerID == "" || req.TableID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "player_id, table_id and seat_number are required"})
	}
	audit(c, "reseat")

	seat, err := h.Seating.ManualReseat(c.UserContext(), c.Params("id"), req.PlayerID, req.TableID, req.SeatNumber)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(seat)
}

type eliminateRequest struct {
	FinishPosition int   `json:"finish_position"`
	PrizeAmount    int64 `json:"prize_amount"`
}

func (h *LiveHandler) Eliminate(c *fiber.Ctx) error {
	var req eliminateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	audit(c, "eliminate")

	out, err := h.Chips.Eliminate(c.UserContext(), c.Params("id"), c.Params("player_id"), req.FinishPosition, req.PrizeAmount)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(out)
}

func (h *LiveHandler) Rebuy(c *fiber.Ctx) error {
	audit(c, "rebuy")
	res, err := h.Chips.Rebuy(c.UserContext(), c.Params("id"), c.Params("player_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *LiveHandler) Addon(c *fiber.Ctx) error {
	audit(c, "addon")
	res, err := h.Chips.Addon(c.UserContext(), c.Params("id"), c.Params("player_id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(res)
}

func (h *LiveHandler) GetLiveState(c *fiber.Ctx) error {
	ls, err := h.Live.GetOrCreate(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ls)
}

func (h *LiveHandler) Pause(c *fiber.Ctx) error {
	audit(c, "pause")
	ls, err := h.Live.Pause(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ls)
}

func (h *LiveHandler) Resume(c *fiber.Ctx) error {
	audit(c, "resume")
	ls, err := h.Live.Resume(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ls)
}

type levelTimeRequest struct {
	Seconds *int `json:"seconds"`
}

func (h *LiveHandler) UpdateLevelTime(c *fiber.Ctx) error {
	var req levelTimeRequest
	if err := c.BodyParser(&req); err != nil || req.Seconds == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "seconds is required"})
	}
	audit(c, "update_level_time")

	ls, err := h.Live.UpdateLevelTime(c.UserContext(), c.Params("id"), *req.Seconds)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ls)
}

func (h *LiveHandler) RecalculateStats(c *fiber.Ctx) error {
	ls, err := h.Live.RecalculateStats(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ls)
}

func (h *LiveHandler) NextLevel(c *fiber.Ctx) error {
	audit(c, "next_level")
	ls, err := h.Live.SkipLevel(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(ls)
}

func (h *LiveHandler) ArchiveTournament(c *fiber.Ctx) error {
	audit(c, "archive")
	report, err := h.Archive.Teardown(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(report)
}

type sessionRequest struct {
	TTLSeconds int `json:"ttl_seconds"`
}

// IssueSession mints a subscriber token for the Gateway-authenticated user.
func (h *LiveHandler) IssueSession(c *fiber.Ctx) error {
	var req sessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
		}
	}
	ttl := defaultSessionTTL
	if req.TTLSeconds > 0 {
		ttl = min(time.Duration(req.TTLSeconds)*time.Second, maxSessionTTL)
	}

	token, err := h.Sessions.Issue(middleware.UserID(c), middleware.UserRoles(c), ttl)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"token":      token,
		"expires_at": time.Now().Add(ttl).UTC(),
	})
}
