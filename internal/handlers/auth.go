// internal/handlers/auth.go
package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// POST /auth/challenge
func (h *AuthHandler) Challenge(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.ChallengeRequest
	if !bindJSON(c, &req) {
		return
	}

	challenge, err := h.authService.Challenge(&req)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message":   i18n.T(lang, i18n.KeyAuthChallengeIssued),
		"challenge": challenge,
	})
}

// POST /auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	lang := utils.GetLangFromContext(c)

	var req services.LoginRequest
	if !bindJSON(c, &req) {
		return
	}

	response, err := h.authService.Login(&req)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrUnauthorized), errors.Is(err, models.ErrInvalidSignature):
			utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthBadSignature))
		default:
			respondError(c, err, "")
		}
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyAuthLoginSuccess),
		"auth":    response,
	})
}

// GET /auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	identity, err := h.authService.Me(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, identity)
}
