// internal/handlers/marketplace.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type MarketplaceHandler struct {
	marketplaceService *services.MarketplaceService
}

func NewMarketplaceHandler(marketplaceService *services.MarketplaceService) *MarketplaceHandler {
	return &MarketplaceHandler{
		marketplaceService: marketplaceService,
	}
}

// POST /marketplaces
func (h *MarketplaceHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req services.RegisterMarketplaceRequest
	if !bindJSON(c, &req) {
		return
	}

	mkt, err := h.marketplaceService.Register(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err, i18n.KeyOrganisationNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":     i18n.T(lang, i18n.KeyMarketplaceRegistered),
		"marketplace": mkt,
	})
}

// GET /marketplaces
func (h *MarketplaceHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	mkts, total, err := h.marketplaceService.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(mkts, total, params))
}

// GET /marketplaces/:index
func (h *MarketplaceHandler) Get(c *gin.Context) {
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}

	mkt, err := h.marketplaceService.ByIndex(c.Request.Context(), index)
	if err != nil {
		respondError(c, err, i18n.KeyMarketplaceNotFound)
		return
	}

	utils.SuccessResponse(c, mkt)
}

// GET /marketplaces/registered/:address
func (h *MarketplaceHandler) IsRegistered(c *gin.Context) {
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}

	registered, err := h.marketplaceService.IsRegistered(c.Request.Context(), addr)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"address":    addr,
		"registered": registered,
	})
}
