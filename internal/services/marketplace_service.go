// internal/services/marketplace_service.go
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/civicledger/IPRx-Core/internal/database"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type adminChecker interface {
	IsAddressAuthorised(ctx context.Context, orgIndex uint64, addr common.Address) (bool, error)
}

type MarketplaceService struct {
	ledger *database.Ledger
	orgs   adminChecker
}

type RegisterMarketplaceRequest struct {
	Name              string `json:"name" validate:"required,max=255"`
	Website           string `json:"website" validate:"omitempty,url,max=500"`
	Address           string `json:"address" validate:"required,eth_addr"`
	OrganisationIndex uint64 `json:"organisation_index"`
}

func NewMarketplaceService(ledger *database.Ledger, orgs adminChecker) *MarketplaceService {
	return &MarketplaceService{
		ledger: ledger,
		orgs:   orgs,
	}
}

// Register appends a marketplace for an organisation the caller administers.
func (s *MarketplaceService) Register(ctx context.Context, caller common.Address, req *RegisterMarketplaceRequest) (*models.Marketplace, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	addr := common.HexToAddress(req.Address)
	if addr == (common.Address{}) {
		return nil, fmt.Errorf("%w: marketplace address must not be zero", models.ErrInvalidInput)
	}

	var mkt models.Marketplace
	err := s.ledger.Execute(ctx, func(ctx context.Context) error {
		authorised, err := s.orgs.IsAddressAuthorised(ctx, req.OrganisationIndex, caller)
		if err != nil {
			return err
		}
		if !authorised {
			return fmt.Errorf("%w: caller is not an admin of organisation %d", models.ErrUnauthorized, req.OrganisationIndex)
		}

		registered, err := s.IsRegistered(ctx, addr)
		if err != nil {
			return err
		}
		if registered {
			return fmt.Errorf("%w: marketplace %s", models.ErrAlreadyExists, addr.Hex())
		}

		db := s.ledger.DB(ctx)

		var count int64
		if err := db.Model(&models.Marketplace{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count marketplaces: %w", err)
		}

		mkt = models.Marketplace{
			MktIndex:          uint64(count),
			Name:              req.Name,
			Website:           req.Website,
			Address:           addr,
			OrganisationIndex: req.OrganisationIndex,
			RegisteredBy:      caller,
		}
		if err := db.Create(&mkt).Error; err != nil {
			return fmt.Errorf("failed to register marketplace: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"marketplace_index":  mkt.MktIndex,
		"address":            addr.Hex(),
		"organisation_index": mkt.OrganisationIndex,
	}).Info("Marketplace registered")
	return &mkt, nil
}

func (s *MarketplaceService) IsRegistered(ctx context.Context, addr common.Address) (bool, error) {
	var count int64
	if err := s.ledger.DB(ctx).Model(&models.Marketplace{}).Where("address = ?", addr).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check marketplace: %w", err)
	}
	return count > 0, nil
}

func (s *MarketplaceService) ByIndex(ctx context.Context, index uint64) (*models.Marketplace, error) {
	var mkt models.Marketplace
	if err := s.ledger.DB(ctx).Where("mkt_index = ?", index).First(&mkt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: marketplace %d", models.ErrNotFound, index)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &mkt, nil
}

func (s *MarketplaceService) ByAddress(ctx context.Context, addr common.Address) (*models.Marketplace, error) {
	var mkt models.Marketplace
	if err := s.ledger.DB(ctx).Where("address = ?", addr).First(&mkt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: marketplace %s", models.ErrNotFound, addr.Hex())
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &mkt, nil
}

func (s *MarketplaceService) List(ctx context.Context, params utils.PaginationParams) ([]models.Marketplace, int64, error) {
	var total int64
	if err := s.ledger.DB(ctx).Model(&models.Marketplace{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count marketplaces: %w", err)
	}

	var mkts []models.Marketplace
	query := utils.ApplySort(s.ledger.DB(ctx), params, []string{"mkt_index", "name", "created_at"})
	if err := utils.ApplyPagination(query, params).Find(&mkts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list marketplaces: %w", err)
	}
	return mkts, total, nil
}
