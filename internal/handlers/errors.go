// internal/handlers/errors.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

// respondError maps a service error onto the response envelope.
// notFoundKey names the translation used for ErrNotFound.
func respondError(c *gin.Context, err error, notFoundKey string) {
	lang := utils.GetLangFromContext(c)

	switch {
	case errors.Is(err, models.ErrUnauthorized):
		utils.ErrorResponse(c, http.StatusForbidden, "UNAUTHORIZED", i18n.T(lang, i18n.KeyAuthForbidden), err.Error())
	case errors.Is(err, services.ErrChallengeExpired):
		utils.UnauthorizedResponse(c, i18n.T(lang, i18n.KeyAuthChallengeMissing))
	case errors.Is(err, models.ErrMalformedOrder):
		utils.ErrorResponse(c, http.StatusBadRequest, "MALFORMED_ORDER", i18n.T(lang, i18n.KeyOrderMalformed), err.Error())
	case errors.Is(err, models.ErrInvalidInput):
		utils.BadRequestResponse(c, "", err.Error())
	case errors.Is(err, models.ErrInvalidSignature):
		utils.UnprocessableResponse(c, "INVALID_SIGNATURE", i18n.T(lang, i18n.KeyOrderInvalidSignature))
	case errors.Is(err, models.ErrSignatureMismatch):
		utils.UnprocessableResponse(c, "SIGNATURE_MISMATCH", i18n.T(lang, i18n.KeyOrderSignatureMismatch))
	case errors.Is(err, models.ErrUnknownMarketplace):
		utils.UnprocessableResponse(c, "UNKNOWN_MARKETPLACE", i18n.T(lang, i18n.KeyMarketplaceUnknown))
	case errors.Is(err, models.ErrReplayedNonce):
		utils.ConflictResponse(c, "REPLAYED_NONCE", i18n.T(lang, i18n.KeyOrderReplayedNonce))
	case errors.Is(err, models.ErrInvalidState):
		utils.ConflictResponse(c, "INVALID_STATE", i18n.T(lang, i18n.KeyOrderInvalidState))
	case errors.Is(err, models.ErrAlreadyExists):
		utils.ConflictResponse(c, "ALREADY_EXISTS", i18n.T(lang, i18n.KeyAlreadyExists))
	case errors.Is(err, models.ErrNotFound):
		if notFoundKey == "" {
			notFoundKey = i18n.KeyNotFound
		}
		utils.NotFoundResponse(c, notFoundKey)
	default:
		logrus.WithError(err).WithField("path", c.FullPath()).Error("Request failed")
		utils.InternalErrorResponse(c, i18n.T(lang, i18n.KeyInternalError))
	}
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			lang := utils.GetLangFromContext(c)
			utils.ErrorResponse(c, http.StatusRequestEntityTooLarge, "REQUEST_TOO_LARGE", i18n.T(lang, i18n.KeyRequestTooLarge), nil)
			return false
		}
		utils.BadRequestResponse(c, "", err.Error())
		return false
	}
	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return false
	}
	return true
}

func requireCaller(c *gin.Context) (common.Address, bool) {
	caller, ok := utils.GetCallerFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
	}
	return caller, ok
}

func indexParam(c *gin.Context, name string) (uint64, bool) {
	index, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return 0, false
	}
	return index, true
}

func addressParam(c *gin.Context, name string) (common.Address, bool) {
	raw := c.Param(name)
	if !common.IsHexAddress(raw) {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyValidationInvalid, name), nil)
		return common.Address{}, false
	}
	return common.HexToAddress(raw), true
}
