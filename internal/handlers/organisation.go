// internal/handlers/organisation.go
package handlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type OrganisationHandler struct {
	organisationService *services.OrganisationService
}

func NewOrganisationHandler(organisationService *services.OrganisationService) *OrganisationHandler {
	return &OrganisationHandler{
		organisationService: organisationService,
	}
}

// POST /organisations
func (h *OrganisationHandler) Create(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req services.AddOrganisationRequest
	if !bindJSON(c, &req) {
		return
	}

	org, err := h.organisationService.Add(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err, i18n.KeyOrganisationNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message":      i18n.T(lang, i18n.KeyOrganisationCreated),
		"organisation": org,
	})
}

// GET /organisations
func (h *OrganisationHandler) List(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	orgs, total, err := h.organisationService.List(c.Request.Context(), params)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orgs, total, params))
}

// GET /organisations/:index
func (h *OrganisationHandler) Get(c *gin.Context) {
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}

	org, err := h.organisationService.AtIndex(c.Request.Context(), index)
	if err != nil {
		respondError(c, err, i18n.KeyOrganisationNotFound)
		return
	}

	utils.SuccessResponse(c, org)
}

// POST /organisations/:index/admins
func (h *OrganisationHandler) AuthoriseAdmin(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}

	var req services.AuthoriseAdminRequest
	if !bindJSON(c, &req) {
		return
	}

	admin := common.HexToAddress(req.Address)
	if err := h.organisationService.AddressAuthorise(c.Request.Context(), caller, index, admin); err != nil {
		respondError(c, err, i18n.KeyOrganisationNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":            i18n.T(lang, i18n.KeyOrganisationAdminAdded),
		"organisation_index": index,
		"address":            admin,
	})
}

// GET /organisations/:index/admins
func (h *OrganisationHandler) ListAdmins(c *gin.Context) {
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}

	admins, err := h.organisationService.Admins(c.Request.Context(), index)
	if err != nil {
		respondError(c, err, i18n.KeyOrganisationNotFound)
		return
	}

	utils.SuccessResponse(c, admins)
}

// GET /organisations/:index/admins/:address
func (h *OrganisationHandler) IsAdmin(c *gin.Context) {
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}
	addr, ok := addressParam(c, "address")
	if !ok {
		return
	}

	authorised, err := h.organisationService.IsAddressAuthorised(c.Request.Context(), index, addr)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"organisation_index": index,
		"address":            addr,
		"authorised":         authorised,
	})
}

// POST /organisations/:index/ip-types
func (h *OrganisationHandler) AddIPType(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}

	var req services.AddIPTypeRequest
	if !bindJSON(c, &req) {
		return
	}

	ipType, err := h.organisationService.IPTypeAdd(c.Request.Context(), caller, index, &req)
	if err != nil {
		respondError(c, err, i18n.KeyOrganisationNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyIPTypeAdded),
		"ip_type": ipType,
	})
}

// GET /organisations/:index/ip-types
func (h *OrganisationHandler) ListIPTypes(c *gin.Context) {
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}

	ipTypes, err := h.organisationService.IPTypes(c.Request.Context(), index)
	if err != nil {
		respondError(c, err, i18n.KeyOrganisationNotFound)
		return
	}

	utils.SuccessResponse(c, ipTypes)
}

// GET /organisations/:index/ip-types/:typeIndex
func (h *OrganisationHandler) GetIPType(c *gin.Context) {
	index, ok := indexParam(c, "index")
	if !ok {
		return
	}
	typeIndex, ok := indexParam(c, "typeIndex")
	if !ok {
		return
	}

	ipType, err := h.organisationService.IPTypeAtIndex(c.Request.Context(), index, typeIndex)
	if err != nil {
		respondError(c, err, i18n.KeyIPTypeNotFound)
		return
	}

	utils.SuccessResponse(c, ipType)
}
