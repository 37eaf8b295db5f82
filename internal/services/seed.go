// internal/services/seed.go
package services

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"github.com/civicledger/IPRx-Core/internal/config"
	"github.com/civicledger/IPRx-Core/internal/models"
)

const (
	SeedOrganisationName    = "IP Australia"
	SeedOrganisationWebsite = "https://www.ipaustralia.gov.au/"
	SeedIPTypeName          = "Patent"
	SeedTokenName           = "PatentToken"
)

// SeedTokenAddress is the address the demo Patent token is admitted under.
var SeedTokenAddress = ComponentAddress(SeedTokenName)

// SeedDemoData builds the demo network: IP Australia at index 0 with one
// admin, the Patent ip-type backed by an admitted token, and one
// marketplace. It does nothing when any organisation already exists.
func (s *Services) SeedDemoData(ctx context.Context, seed config.SeedConfig) error {
	owner := s.Organisations.Owner()
	admin := common.HexToAddress(seed.AdminAddress)
	marketplace := common.HexToAddress(seed.MarketplaceAddress)

	return s.Ledger.Execute(ctx, func(ctx context.Context) error {
		var count int64
		if err := s.Ledger.DB(ctx).Model(&models.Organisation{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check existing data: %w", err)
		}
		if count > 0 {
			logrus.Info("Demo data already present, skipping seed")
			return nil
		}

		org, err := s.Organisations.Add(ctx, owner, &AddOrganisationRequest{
			Name:       SeedOrganisationName,
			WebsiteURL: SeedOrganisationWebsite,
		})
		if err != nil {
			return fmt.Errorf("seed organisation: %w", err)
		}

		if err := s.Organisations.AddressAuthorise(ctx, owner, org.OrgIndex, admin); err != nil {
			return fmt.Errorf("seed admin: %w", err)
		}

		if _, err := s.Tokens.Register(ctx, owner, &RegisterTokenRequest{
			Name:    SeedTokenName,
			Address: SeedTokenAddress.Hex(),
		}); err != nil {
			return fmt.Errorf("seed token: %w", err)
		}
		if err := s.Registry.SetAddress(ctx, Key(KeyContractName, "Registration", org.OrgIndex, SeedIPTypeName), SeedTokenAddress); err != nil {
			return fmt.Errorf("seed registration key: %w", err)
		}

		if _, err := s.Organisations.IPTypeAdd(ctx, admin, org.OrgIndex, &AddIPTypeRequest{
			Name:         SeedIPTypeName,
			TokenAddress: SeedTokenAddress.Hex(),
		}); err != nil {
			return fmt.Errorf("seed ip type: %w", err)
		}

		if _, err := s.Marketplaces.Register(ctx, admin, &RegisterMarketplaceRequest{
			Name:              "Demo Marketplace",
			Website:           "https://marketplace.example.com",
			Address:           marketplace.Hex(),
			OrganisationIndex: org.OrgIndex,
		}); err != nil {
			return fmt.Errorf("seed marketplace: %w", err)
		}

		logrus.WithFields(logrus.Fields{
			"admin":       admin.Hex(),
			"marketplace": marketplace.Hex(),
			"token":       SeedTokenAddress.Hex(),
		}).Info("Demo data seeded")
		return nil
	})
}
