package handlers

import (
	"club-live-engine/middleware"

	"github.com/gofiber/fiber/v2"
)

func SetupLiveRoutes(app *fiber.App, h *LiveHandler, gatewayToken string) {
	// 🔓 Subscribers authenticate with their own session token
	app.Get("/live/stream", middleware.StreamAuthMiddleware(h.Sessions), h.Stream)

	// 🔐 Operator routes: Gateway token + user context
	gateway := middleware.GatewayAuthMiddleware(gatewayToken)
	userCtx := middleware.UserContextMiddleware()

	app.Post("/sessions", gateway, userCtx, h.IssueSession)

	secured := app.Group("/tournaments", gateway, userCtx)

	// Seating
	secured.Post("/:id/tables/initialize", h.InitializeTables)
	secured.Post("/:id/tables/balance", h.AutoBalance)
	secured.Get("/:id/tables", h.ListTables)
	secured.Post("/:id/seats/reseat", h.ManualReseat)

	// Chip operations
	secured.Post("/:id/players/:player_id/eliminate", h.Eliminate)
	secured.Post("/:id/players/:player_id/rebuy", h.Rebuy)
	secured.Post("/:id/players/:player_id/addon", h.Addon)

	// Clock
	secured.Get("/:id/live", h.GetLiveState)
	secured.Post("/:id/live/pause", h.Pause)
	secured.Post("/:id/live/resume", h.Resume)
	secured.Post("/:id/live/time", h.UpdateLevelTime)
	secured.Post("/:id/live/recalculate", h.RecalculateStats)
	secured.Post("/:id/live/next-level", h.NextLevel)

	// Teardown
	secured.Post("/:id/archive", h.ArchiveTournament)
}
