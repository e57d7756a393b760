package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stampcard/stampcard-api/internal/db"
	"github.com/stampcard/stampcard-api/internal/metrics"
	"github.com/stampcard/stampcard-api/internal/services"
)

// SignupHandler handles customer signup operations
type SignupHandler struct {
	common   *CommonServices
	identity *services.IdentityService
}

// NewSignupHandler creates a new signup handler
func NewSignupHandler(common *CommonServices, identity *services.IdentityService) *SignupHandler {
	return &SignupHandler{
		common:   common,
		identity: identity,
	}
}

// SignupRequest carries email and/or phone plus an optional name.
type SignupRequest struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// CustomerResponse carries the customer's public fields and the current
// stamp count.
type CustomerResponse struct {
	CustomerID string    `json:"customerId"`
	Name       *string   `json:"name"`
	Email      *string   `json:"email"`
	Phone      *string   `json:"phone"`
	CreatedAt  time.Time `json:"createdAt"`
	Stamps     int32     `json:"stamps"`
}

func toCustomerResponse(customer db.Customer, wallet db.Wallet) CustomerResponse {
	return CustomerResponse{
		CustomerID: customer.ID,
		Name:       customer.Name,
		Email:      customer.Email,
		Phone:      customer.Phone,
		CreatedAt:  customer.CreatedAt,
		Stamps:     wallet.Stamps,
	}
}

// Signup godoc
// @Summary Sign a customer up
// @Description Resolves or creates a customer from an email or phone number.
// Idempotent: repeated calls with the same identifier return the same
// customer and never reset stamps.
// @Tags customers
// @Accept json
// @Produce json
func (h *SignupHandler) Signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	identifier := strings.TrimSpace(req.Email)
	if identifier == "" {
		identifier = strings.TrimSpace(req.Phone)
	}

	customer, wallet, err := h.identity.ResolveOrCreate(c.Request.Context(), identifier, req.Name)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	metrics.SignupsTotal.Inc()
	sendSuccess(c, http.StatusOK, toCustomerResponse(customer, wallet))
}
