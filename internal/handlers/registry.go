// internal/handlers/registry.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type RegistryHandler struct {
	registryService *services.RegistryService
}

func NewRegistryHandler(registryService *services.RegistryService) *RegistryHandler {
	return &RegistryHandler{
		registryService: registryService,
	}
}

// GET /registry/components/:name
func (h *RegistryHandler) Component(c *gin.Context) {
	name := c.Param("name")

	addr, err := h.registryService.ComponentByName(c.Request.Context(), name)
	if err != nil {
		respondError(c, err, i18n.KeyComponentNotFound)
		return
	}

	authorised, err := h.registryService.IsAuthorisedComponent(c.Request.Context(), addr)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"name":       name,
		"address":    addr,
		"authorised": authorised,
	})
}
