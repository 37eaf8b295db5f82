// internal/services/admin_service.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/civicledger/IPRx-Core/internal/database"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

// AdminService gives the global owner a read-only view over the ledger.
type AdminService struct {
	ledger *database.Ledger
	owner  common.Address
}

type AdminDashboardStats struct {
	TotalOrganisations  int64 `json:"total_organisations"`
	TotalAdmins         int64 `json:"total_admins"`
	TotalMarketplaces   int64 `json:"total_marketplaces"`
	TotalIPClaims       int64 `json:"total_ip_claims"`
	TotalOrders         int64 `json:"total_orders"`
	PendingOrders       int64 `json:"pending_orders"`
	ApprovedOrders      int64 `json:"approved_orders"`
	RejectedOrders      int64 `json:"rejected_orders"`
	OrdersThisMonth     int64 `json:"orders_this_month"`
	DistinctOrderTakers int64 `json:"distinct_order_takers"`
}

type AdminAuditFilter struct {
	utils.PaginationParams
	Caller       string `json:"caller,omitempty"`
	Action       string `json:"action,omitempty"`
	ResourceType string `json:"resource_type,omitempty"`
}

func NewAdminService(ledger *database.Ledger, owner common.Address) *AdminService {
	return &AdminService{
		ledger: ledger,
		owner:  owner,
	}
}

func (s *AdminService) GetDashboardStats(ctx context.Context, caller common.Address) (*AdminDashboardStats, error) {
	if caller != s.owner {
		return nil, fmt.Errorf("%w: dashboard is restricted to the owner", models.ErrUnauthorized)
	}

	stats := &AdminDashboardStats{}
	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	db := s.ledger.DB(ctx)

	counts := []struct {
		model interface{}
		query string
		args  []interface{}
		dest  *int64
	}{
		{&models.Organisation{}, "", nil, &stats.TotalOrganisations},
		{&models.OrganisationAdmin{}, "", nil, &stats.TotalAdmins},
		{&models.Marketplace{}, "", nil, &stats.TotalMarketplaces},
		{&models.IPClaim{}, "", nil, &stats.TotalIPClaims},
		{&models.Order{}, "", nil, &stats.TotalOrders},
		{&models.Order{}, "status = ?", []interface{}{models.OrderStatusPending}, &stats.PendingOrders},
		{&models.Order{}, "status = ?", []interface{}{models.OrderStatusApproved}, &stats.ApprovedOrders},
		{&models.Order{}, "status = ?", []interface{}{models.OrderStatusRejected}, &stats.RejectedOrders},
		{&models.Order{}, "created_at >= ?", []interface{}{monthStart}, &stats.OrdersThisMonth},
	}
	for _, c := range counts {
		query := db.Model(c.model)
		if c.query != "" {
			query = query.Where(c.query, c.args...)
		}
		if err := query.Count(c.dest).Error; err != nil {
			return nil, fmt.Errorf("failed to compute stats: %w", err)
		}
	}

	if err := db.Model(&models.NonceRecord{}).Count(&stats.DistinctOrderTakers).Error; err != nil {
		return nil, fmt.Errorf("failed to compute stats: %w", err)
	}

	return stats, nil
}

func (s *AdminService) GetAuditLogs(ctx context.Context, caller common.Address, filter AdminAuditFilter) ([]models.AuditLog, int64, error) {
	if caller != s.owner {
		return nil, 0, fmt.Errorf("%w: audit log is restricted to the owner", models.ErrUnauthorized)
	}

	query := s.ledger.DB(ctx).Model(&models.AuditLog{})
	if filter.Caller != "" {
		query = query.Where("caller = ?", filter.Caller)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("resource_type = ?", filter.ResourceType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count audit logs: %w", err)
	}

	if filter.Sort == "" {
		filter.Sort = "created_at"
		filter.Order = "desc"
	}
	var logs []models.AuditLog
	query = utils.ApplySort(query, filter.PaginationParams, []string{"created_at", "action", "status"})
	if err := utils.ApplyPagination(query, filter.PaginationParams).Find(&logs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}

// RecordAudit stores one audit entry. Failures are returned to the caller,
// which decides whether they matter.
func (s *AdminService) RecordAudit(ctx context.Context, entry *models.AuditLog) error {
	return s.ledger.DB(ctx).Create(entry).Error
}
