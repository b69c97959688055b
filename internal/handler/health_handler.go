package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/codearena/arena-api/internal/config"
	"github.com/codearena/arena-api/internal/utils"
)

// HealthResponse is the liveness payload for the arena API.
type HealthResponse struct {
	Status      string    `json:"status"`
	Timestamp   time.Time `json:"timestamp"`
	Service     string    `json:"service"`
	Environment string    `json:"environment"`
}

// HealthCheck reports service identity and liveness for load balancer probes.
func HealthCheck(cfg config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
		}

		return utils.SendSuccess(c, "service healthy", payload)
	}
}
