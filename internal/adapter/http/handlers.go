package http

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"mazaochain-backend/pkg/resilience"
)

// Handler serves the operational endpoints. Breaker states are exposed so a
// probe can tell a healthy service from one with its ledger path tripped.
type Handler struct {
	mintGuard     *resilience.Guard
	transferGuard *resilience.Guard
}

func NewHandler(mintGuard, transferGuard *resilience.Guard) *Handler {
	return &Handler{mintGuard: mintGuard, transferGuard: transferGuard}
}

func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339Nano),
		"ledger": map[string]string{
			"mint":     h.mintGuard.State().String(),
			"transfer": h.transferGuard.State().String(),
		},
	})
}
