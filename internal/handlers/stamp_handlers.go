package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stampcard/stampcard-api/internal/services"
)

// StampHandler handles stamp-add operations
type StampHandler struct {
	common *CommonServices
	stamps *services.StampService
}

// NewStampHandler creates a new stamp handler
func NewStampHandler(common *CommonServices, stamps *services.StampService) *StampHandler {
	return &StampHandler{
		common: common,
		stamps: stamps,
	}
}

// StampRequest carries the customer identifier and the QR token.
type StampRequest struct {
	Identifier string `json:"identifier"`
	Token      string `json:"token"`
}

// StampResponse is returned for an accepted stamp.
type StampResponse struct {
	CustomerID    string  `json:"customerId"`
	Stamps        int32   `json:"stamps"`
	Redeemed      bool    `json:"redeemed"`
	RewardMessage *string `json:"rewardMessage"`
}

// CooldownResponse is returned when the cooldown guard rejects the scan.
// Not an error: the wallet state is reported unchanged.
type CooldownResponse struct {
	CustomerID       string `json:"customerId"`
	Stamps           int32  `json:"stamps"`
	Cooldown         bool   `json:"cooldown"`
	SecondsRemaining int64  `json:"secondsRemaining"`
}

// AddStamp godoc
// @Summary Add a stamp for a customer
// @Description Authorizes the token and applies one ledger transition. On
// cooldown the current stamp count and remaining seconds are reported with
// no state change.
// @Tags stamps
// @Accept json
// @Produce json
func (h *StampHandler) AddStamp(c *gin.Context) {
	var req StampRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	result, err := h.stamps.AddStamp(c.Request.Context(), req.Identifier, req.Token)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	if result.Cooldown {
		sendSuccess(c, http.StatusOK, CooldownResponse{
			CustomerID:       result.CustomerID,
			Stamps:           result.Stamps,
			Cooldown:         true,
			SecondsRemaining: result.SecondsRemaining,
		})
		return
	}

	sendSuccess(c, http.StatusOK, StampResponse{
		CustomerID:    result.CustomerID,
		Stamps:        result.Stamps,
		Redeemed:      result.Redeemed,
		RewardMessage: result.RewardMessage,
	})
}
