// internal/handlers/admin.go
package handlers

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"

	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type AdminHandler struct {
	adminService *services.AdminService
}

func NewAdminHandler(adminService *services.AdminService) *AdminHandler {
	return &AdminHandler{
		adminService: adminService,
	}
}

// GET /admin/stats
func (h *AdminHandler) GetDashboardStats(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	stats, err := h.adminService.GetDashboardStats(c.Request.Context(), caller)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.SuccessResponse(c, gin.H{
		"stats": stats,
	})
}

// GET /admin/audit-logs
func (h *AdminHandler) GetAuditLogs(c *gin.Context) {
	caller, ok := requireCaller(c)
	if !ok {
		return
	}

	filter := services.AdminAuditFilter{
		PaginationParams: utils.GetPaginationParams(c),
		Action:           c.Query("action"),
		ResourceType:     c.Query("resource_type"),
	}
	if who := c.Query("caller"); who != "" {
		if !common.IsHexAddress(who) {
			utils.BadRequestResponse(c, "", "caller must be an address")
			return
		}
		filter.Caller = common.HexToAddress(who).Hex()
	}

	logs, total, err := h.adminService.GetAuditLogs(c.Request.Context(), caller, filter)
	if err != nil {
		respondError(c, err, "")
		return
	}

	utils.PaginatedResponse(c, utils.CreatePaginationResult(logs, total, filter.PaginationParams))
}
