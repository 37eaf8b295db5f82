// internal/handlers/exchange.go
package handlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/i18n"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type ExchangeHandler struct {
	exchangeService *services.ExchangeService
}

func NewExchangeHandler(exchangeService *services.ExchangeService) *ExchangeHandler {
	return &ExchangeHandler{
		exchangeService: exchangeService,
	}
}

func decodePayload(c *gin.Context) ([]byte, bool) {
	var req services.SubmitOrderRequest
	if !bindJSON(c, &req) {
		return nil, false
	}
	encoded, err := hexutil.Decode(req.Encoded)
	if err != nil {
		lang := utils.GetLangFromContext(c)
		utils.BadRequestResponse(c, i18n.T(lang, i18n.KeyOrderMalformed), err.Error())
		return nil, false
	}
	return encoded, true
}

// POST /orders
func (h *ExchangeHandler) Submit(c *gin.Context) {
	lang := utils.GetLangFromContext(c)
	sender, ok := requireCaller(c)
	if !ok {
		return
	}
	encoded, ok := decodePayload(c)
	if !ok {
		return
	}

	order, err := h.exchangeService.SubmitOrder(c.Request.Context(), sender, encoded)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.CreatedResponse(c, gin.H{
		"message": i18n.T(lang, i18n.KeyOrderSubmitted),
		"order":   order,
	})
}

// POST /orders/verify
func (h *ExchangeHandler) Verify(c *gin.Context) {
	encoded, ok := decodePayload(c)
	if !ok {
		return
	}

	result, err := h.exchangeService.VerifyOrder(c.Request.Context(), encoded)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, result)
}

// GET /orders/:marketplace
func (h *ExchangeHandler) List(c *gin.Context) {
	marketplace, ok := addressParam(c, "marketplace")
	if !ok {
		return
	}
	params := utils.GetPaginationParams(c)

	orders, total, err := h.exchangeService.List(c.Request.Context(), marketplace, params)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(orders, total, params))
}

// GET /orders/:marketplace/:index
func (h *ExchangeHandler) Get(c *gin.Context) {
	marketplace, index, ok := orderParams(c)
	if !ok {
		return
	}

	order, err := h.exchangeService.OrderAtIndex(c.Request.Context(), marketplace, index)
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"order_index":  order.OrderIndex,
		"hash":         order.Hash,
		"core":         order.Core(),
		"status":       order.Status,
		"status_name":  order.Status.String(),
		"submitted_by": order.SubmittedBy,
		"decided_by":   order.DecidedBy,
		"decided_at":   order.DecidedAt,
	})
}

// GET /orders/:marketplace/:index/payment
func (h *ExchangeHandler) GetPayment(c *gin.Context) {
	marketplace, index, ok := orderParams(c)
	if !ok {
		return
	}

	payment, err := h.exchangeService.OrderPaymentAtIndex(c.Request.Context(), marketplace, index)
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	utils.SuccessResponse(c, payment)
}

// GET /orders/:marketplace/:index/signature
func (h *ExchangeHandler) GetSignature(c *gin.Context) {
	marketplace, index, ok := orderParams(c)
	if !ok {
		return
	}

	sig, err := h.exchangeService.OrderSigAtIndex(c.Request.Context(), marketplace, index)
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	utils.SuccessResponse(c, sig)
}

// GET /orders/:marketplace/:index/status
func (h *ExchangeHandler) GetStatus(c *gin.Context) {
	marketplace, index, ok := orderParams(c)
	if !ok {
		return
	}

	status, err := h.exchangeService.OrderStatusAtIndex(c.Request.Context(), marketplace, index)
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"status":      status,
		"status_name": status.String(),
	})
}

// PUT /orders/:marketplace/:index/approve
func (h *ExchangeHandler) Approve(c *gin.Context) {
	h.decide(c, models.OrderStatusApproved)
}

// PUT /orders/:marketplace/:index/reject
func (h *ExchangeHandler) Reject(c *gin.Context) {
	h.decide(c, models.OrderStatusRejected)
}

func (h *ExchangeHandler) decide(c *gin.Context, status models.OrderStatus) {
	lang := utils.GetLangFromContext(c)
	caller, ok := requireCaller(c)
	if !ok {
		return
	}
	marketplace, index, ok := orderParams(c)
	if !ok {
		return
	}

	var (
		order *models.Order
		err   error
		key   string
	)
	if status == models.OrderStatusApproved {
		order, err = h.exchangeService.ApproveOrder(c.Request.Context(), caller, marketplace, index)
		key = i18n.KeyOrderApproved
	} else {
		order, err = h.exchangeService.RejectOrder(c.Request.Context(), caller, marketplace, index)
		key = i18n.KeyOrderRejected
	}
	if err != nil {
		respondError(c, err, i18n.KeyOrderNotFound)
		return
	}

	utils.SuccessResponse(c, gin.H{
		"message": i18n.T(lang, key),
		"order":   order,
	})
}

// GET /nonces/:signer
func (h *ExchangeHandler) LastNonce(c *gin.Context) {
	signer, ok := addressParam(c, "signer")
	if !ok {
		return
	}

	nonce, err := h.exchangeService.LastNonce(c.Request.Context(), signer)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"signer":     signer,
		"last_nonce": models.NewUint256(nonce),
	})
}

func orderParams(c *gin.Context) (marketplace common.Address, index uint64, ok bool) {
	if marketplace, ok = addressParam(c, "marketplace"); !ok {
		return
	}
	index, ok = indexParam(c, "index")
	return
}
