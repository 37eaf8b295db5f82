// internal/services/organisation_service.go
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

// KeyTokenType is the registry category under which ip-type tokens are
// published as ("contract.name", "Token", orgIndex, typeName).
const KeyTokenType = "Token"

type OrganisationService struct {
	ledger   *database.Ledger
	registry *RegistryService
	owner    common.Address
}

type AddOrganisationRequest struct {
	Name       string `json:"name" validate:"required,max=255"`
	WebsiteURL string `json:"website_url" validate:"omitempty,url,max=500"`
}

type AuthoriseAdminRequest struct {
	Address string `json:"address" validate:"required,eth_addr"`
}

type AddIPTypeRequest struct {
	Name         string `json:"name" validate:"required,max=255"`
	TokenAddress string `json:"token_address" validate:"required,eth_addr"`
}

func NewOrganisationService(ledger *database.Ledger, registry *RegistryService, owner common.Address) *OrganisationService {
	return &OrganisationService{
		ledger:   ledger,
		registry: registry,
		owner:    owner,
	}
}

func (s *OrganisationService) Owner() common.Address {
	return s.owner
}

// Add appends a new organisation at the next index. Owner only.
func (s *OrganisationService) Add(ctx context.Context, caller common.Address, req *AddOrganisationRequest) (*models.Organisation, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if caller != s.owner {
		return nil, fmt.Errorf("%w: only the owner can add organisations", models.ErrUnauthorized)
	}

	var org models.Organisation
	err := s.ledger.Execute(ctx, func(ctx context.Context) error {
		db := s.ledger.DB(ctx)

		var count int64
		if err := db.Model(&models.Organisation{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count organisations: %w", err)
		}

		org = models.Organisation{
			OrgIndex:   uint64(count),
			Name:       req.Name,
			WebsiteURL: req.WebsiteURL,
			CreatedBy:  caller,
		}
		if err := db.Create(&org).Error; err != nil {
			return fmt.Errorf("failed to create organisation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"organisation_index": org.OrgIndex,
		"name":               org.Name,
	}).Info("Organisation added")
	return &org, nil
}

// AddressAuthorise adds addr to the organisation's admin set. Owner only.
// Authorising an existing admin again succeeds without change.
func (s *OrganisationService) AddressAuthorise(ctx context.Context, caller common.Address, orgIndex uint64, addr common.Address) error {
	if caller != s.owner {
		return fmt.Errorf("%w: only the owner can authorise admins", models.ErrUnauthorized)
	}
	if addr == (common.Address{}) {
		return fmt.Errorf("%w: admin address must not be zero", models.ErrInvalidInput)
	}

	err := s.ledger.Execute(ctx, func(ctx context.Context) error {
		if _, err := s.AtIndex(ctx, orgIndex); err != nil {
			return err
		}

		authorised, err := s.IsAddressAuthorised(ctx, orgIndex, addr)
		if err != nil || authorised {
			return err
		}

		admin := models.OrganisationAdmin{
			OrgIndex:     orgIndex,
			Address:      addr,
			AuthorisedBy: caller,
		}
		if err := s.ledger.DB(ctx).Create(&admin).Error; err != nil {
			return fmt.Errorf("failed to authorise admin: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{
		"organisation_index": orgIndex,
		"admin":              addr.Hex(),
	}).Info("Organisation admin authorised")
	return nil
}

func (s *OrganisationService) IsAddressAuthorised(ctx context.Context, orgIndex uint64, addr common.Address) (bool, error) {
	var count int64
	err := s.ledger.DB(ctx).Model(&models.OrganisationAdmin{}).
		Where("org_index = ? AND address = ?", orgIndex, addr).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check admin: %w", err)
	}
	return count > 0, nil
}

// IPTypeAdd appends a (name, token) route to the organisation's ip-type
// table and publishes the token under its discovery key. Admins only.
func (s *OrganisationService) IPTypeAdd(ctx context.Context, caller common.Address, orgIndex uint64, req *AddIPTypeRequest) (*models.IPType, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	token := common.HexToAddress(req.TokenAddress)

	var ipType models.IPType
	err := s.ledger.Execute(ctx, func(ctx context.Context) error {
		authorised, err := s.IsAddressAuthorised(ctx, orgIndex, caller)
		if err != nil {
			return err
		}
		if !authorised {
			return fmt.Errorf("%w: caller is not an admin of organisation %d", models.ErrUnauthorized, orgIndex)
		}

		db := s.ledger.DB(ctx)

		var existing int64
		if err := db.Model(&models.IPType{}).
			Where("org_index = ? AND name = ?", orgIndex, req.Name).
			Count(&existing).Error; err != nil {
			return fmt.Errorf("failed to check ip type: %w", err)
		}
		if existing > 0 {
			return fmt.Errorf("%w: ip type %q in organisation %d", models.ErrAlreadyExists, req.Name, orgIndex)
		}

		var count int64
		if err := db.Model(&models.IPType{}).Where("org_index = ?", orgIndex).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count ip types: %w", err)
		}

		ipType = models.IPType{
			OrgIndex:     orgIndex,
			TypeIndex:    uint64(count),
			Name:         req.Name,
			TokenAddress: token,
			AddedBy:      caller,
		}
		if err := db.Create(&ipType).Error; err != nil {
			return fmt.Errorf("failed to add ip type: %w", err)
		}

		return s.registry.SetAddress(ctx, Key(KeyContractName, KeyTokenType, orgIndex, req.Name), token)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"organisation_index": orgIndex,
		"type_index":         ipType.TypeIndex,
		"name":               ipType.Name,
		"token":              token.Hex(),
	}).Info("IP type added")
	return &ipType, nil
}

func (s *OrganisationService) AtIndex(ctx context.Context, orgIndex uint64) (*models.Organisation, error) {
	var org models.Organisation
	if err := s.ledger.DB(ctx).Where("org_index = ?", orgIndex).First(&org).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: organisation %d", models.ErrNotFound, orgIndex)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &org, nil
}

func (s *OrganisationService) IPTypeAtIndex(ctx context.Context, orgIndex, typeIndex uint64) (*models.IPType, error) {
	var ipType models.IPType
	err := s.ledger.DB(ctx).
		Where("org_index = ? AND type_index = ?", orgIndex, typeIndex).
		First(&ipType).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: ip type %d in organisation %d", models.ErrNotFound, typeIndex, orgIndex)
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &ipType, nil
}

func (s *OrganisationService) List(ctx context.Context, params utils.PaginationParams) ([]models.Organisation, int64, error) {
	var total int64
	if err := s.ledger.DB(ctx).Model(&models.Organisation{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count organisations: %w", err)
	}

	var orgs []models.Organisation
	query := utils.ApplySort(s.ledger.DB(ctx), params, []string{"org_index", "name", "created_at"})
	if err := utils.ApplyPagination(query, params).Find(&orgs).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list organisations: %w", err)
	}
	return orgs, total, nil
}

func (s *OrganisationService) Admins(ctx context.Context, orgIndex uint64) ([]models.OrganisationAdmin, error) {
	if _, err := s.AtIndex(ctx, orgIndex); err != nil {
		return nil, err
	}

	var admins []models.OrganisationAdmin
	if err := s.ledger.DB(ctx).Where("org_index = ?", orgIndex).Order("created_at asc").Find(&admins).Error; err != nil {
		return nil, fmt.Errorf("failed to list admins: %w", err)
	}
	return admins, nil
}

func (s *OrganisationService) IPTypes(ctx context.Context, orgIndex uint64) ([]models.IPType, error) {
	if _, err := s.AtIndex(ctx, orgIndex); err != nil {
		return nil, err
	}

	var ipTypes []models.IPType
	if err := s.ledger.DB(ctx).Where("org_index = ?", orgIndex).Order("type_index asc").Find(&ipTypes).Error; err != nil {
		return nil, fmt.Errorf("failed to list ip types: %w", err)
	}
	return ipTypes, nil
}

// AdminOf lists the organisations addr administers.
func (s *OrganisationService) AdminOf(ctx context.Context, addr common.Address) ([]uint64, error) {
	var indices []uint64
	err := s.ledger.DB(ctx).Model(&models.OrganisationAdmin{}).
		Where("address = ?", addr).
		Order("org_index asc").
		Pluck("org_index", &indices).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list administered organisations: %w", err)
	}
	return indices, nil
}
