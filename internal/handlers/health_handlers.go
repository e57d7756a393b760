package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	common *CommonServices
}

func NewHealthHandler(common *CommonServices) *HealthHandler {
	return &HealthHandler{common: common}
}

// HealthResponse reports process and storage health.
type HealthResponse struct {
	Status  string `json:"status"`
	Storage string `json:"storage"`
}

// Health godoc
// @Summary Check the health of the server
// @Description Returns "ok" when the process and its storage backend are up
// @Tags health
// @Produce json
func (h *HealthHandler) Health(c *gin.Context) {
	storage := "ok"
	status := http.StatusOK
	if err := h.common.GetStore().Ping(c.Request.Context()); err != nil {
		storage = "unreachable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, HealthResponse{
		Status:  "ok",
		Storage: storage,
	})
}
