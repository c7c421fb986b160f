package handlers

import (
	"tournament-ledger/internal/websocket"

	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
)

// RegisterWebSocket mounts the version heartbeat endpoint at path
func RegisterWebSocket(app *fiber.App, path string, hub *websocket.Hub) {
	app.Use(path, func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get(path, fiberws.New(func(conn *fiberws.Conn) {
		websocket.ServeWS(hub, conn)
	}))
}
