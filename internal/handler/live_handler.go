package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/codearena/arena-api/internal/service"
)

// LiveHandler streams verdict updates to connected clients over websocket.
type LiveHandler struct {
	events service.VerdictEvents
	logger zerolog.Logger
}

// NewLiveHandler creates the live verdict stream handler.
func NewLiveHandler(events service.VerdictEvents, logger zerolog.Logger) *LiveHandler {
	return &LiveHandler{
		events: events,
		logger: logger.With().Str("component", "live_handler").Logger(),
	}
}

// Register binds the websocket upgrade under the provided router group.
func (h *LiveHandler) Register(router fiber.Router) {
	router.Use("/verdicts", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/verdicts", websocket.New(h.handleConnection))
}

func (h *LiveHandler) handleConnection(conn *websocket.Conn) {
	userID, ok := conn.Locals("user_id").(uint)
	if !ok || userID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "authentication required"))
		_ = conn.Close()
		return
	}

	updates, cancel := h.events.Subscribe(userID)
	defer cancel()

	h.logger.Info().Uint("user_id", userID).Msg("verdict stream connected")

	// The read loop only detects the client going away; incoming frames
	// are discarded.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			h.logger.Info().Uint("user_id", userID).Msg("verdict stream disconnected")
			return
		case submission, ok := <-updates:
			if !ok {
				_ = conn.Close()
				return
			}
			if err := conn.WriteJSON(submission); err != nil {
				h.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to write verdict update")
				_ = conn.Close()
				<-closed
				return
			}
		}
	}
}
