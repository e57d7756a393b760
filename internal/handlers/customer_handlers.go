package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stampcard/stampcard-api/internal/pass"
	"github.com/stampcard/stampcard-api/internal/services"
)

// CustomerHandler handles customer lookup and pass issuance.
type CustomerHandler struct {
	common   *CommonServices
	identity *services.IdentityService
	issuer   *pass.Issuer
}

// NewCustomerHandler creates a new customer handler
func NewCustomerHandler(common *CommonServices, identity *services.IdentityService, issuer *pass.Issuer) *CustomerHandler {
	return &CustomerHandler{
		common:   common,
		identity: identity,
		issuer:   issuer,
	}
}

// GetCustomer godoc
// @Summary Get customer by identifier
// @Description Looks a customer up by email or phone. Lookup never creates
// a customer.
// @Tags customers
// @Produce json
func (h *CustomerHandler) GetCustomer(c *gin.Context) {
	identifier := c.Param("identifier")

	customer, wallet, err := h.identity.Lookup(c.Request.Context(), identifier)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, toCustomerResponse(customer, wallet))
}

// GetPass godoc
// @Summary Issue a wallet pass
// @Description Builds a platform-neutral pass artifact from the current
// {customer, wallet} snapshot.
// @Tags customers
// @Produce json
func (h *CustomerHandler) GetPass(c *gin.Context) {
	identifier := c.Param("identifier")

	customer, wallet, err := h.identity.Lookup(c.Request.Context(), identifier)
	if err != nil {
		handleServiceError(c, err)
		return
	}

	sendSuccess(c, http.StatusOK, h.issuer.Issue(customer, wallet))
}
