// internal/handlers/token.go
package handlers

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type TokenHandler struct {
	tokenService *services.TokenService
}

type SetLicensableRequest struct {
	Licensable bool `json:"licensable"`
}

func NewTokenHandler(tokenService *services.TokenService) *TokenHandler {
	return &TokenHandler{
		tokenService: tokenService,
	}
}

// POST /tokens
func (h *TokenHandler) Register(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	var req services.RegisterTokenRequest
	if !bindJSON(c, &req) {
		return
	}

	token, err := h.tokenService.Register(c.Request.Context(), caller, &req)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyTokenRegistered),
		"name":    req.Name,
		"address": token,
	})
}

// POST /tokens/:address/claims
func (h *TokenHandler) Claim(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	token, ok := addressParam(c, "address")
	if !ok {
		return
	}

	claim, err := h.tokenService.Claim(c.Request.Context(), caller, token)
	if err != nil {
		respondError(c, err, i18n.KeyTokenNotFound)
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyIPClaimed),
		"claim":   claim,
	})
}

// GET /tokens/:address/claims/:ipIndex
func (h *TokenHandler) GetClaim(c *gin.Context) {
	token, ipIndex, ok := claimParams(c)
	if !ok {
		return
	}

	claim, err := h.tokenService.Claimed(c.Request.Context(), token, ipIndex)
	if err != nil {
		respondError(c, err, i18n.KeyIPNotFound)
		return
	}

	utils.SuccessResponse(c, claim)
}

// PUT /tokens/:address/claims/:ipIndex/licensable
func (h *TokenHandler) SetLicensable(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	token, ipIndex, ok := claimParams(c)
	if !ok {
		return
	}

	var req SetLicensableRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.tokenService.SetLicensable(c.Request.Context(), caller, token, ipIndex, req.Licensable); err != nil {
		respondError(c, err, i18n.KeyIPNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"token_address": token,
		"ip_index":      ipIndex.String(),
		"licensable":    req.Licensable,
	})
}

func claimParams(c *gin.Context) (token common.Address, ipIndex *big.Int, ok bool) {
	if token, ok = addressParam(c, "address"); !ok {
		return
	}
	ipIndex, ok = new(big.Int).SetString(c.Param("ipIndex"), 10)
	if !ok || ipIndex.Sign() < 0 {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, "ipIndex"), nil)
		return token, nil, false
	}
	return
}
