package handler

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// Pinger reports whether the ephemeral store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type GetHealthResponse struct {
	IsServerRunning bool `json:"isServerRunning"`
	IsStoreHealthy  bool `json:"isStoreHealthy"`
}

func GetHealth(pinger Pinger) func(c *fiber.Ctx) error {
	return func(ctx *fiber.Ctx) error {
		return ctx.JSON(GetHealthResponse{
			IsServerRunning: true,
			IsStoreHealthy:  pinger.Ping(ctx.UserContext()) == nil,
		})
	}
}
