// internal/services/services.go
package services

import (
	"gorm.io/gorm"

	"github.com/civicledger/IPRx-Core/internal/config"
	"github.com/civicledger/IPRx-Core/internal/database"
	"github.com/civicledger/IPRx-Core/internal/events"
	"github.com/civicledger/IPRx-Core/internal/metrics"
)

// Services wires every component against one ledger. Collaborators are
// injected here and nowhere else.
type Services struct {
	Ledger        *database.Ledger
	Registry      *RegistryService
	Organisations *OrganisationService
	Marketplaces  *MarketplaceService
	Tokens        *TokenService
	Exchange      *ExchangeService
	Notifications *NotificationService
	Auth          *AuthService
	Admin         *AdminService
	Metrics       *metrics.Registry
}

func New(db *gorm.DB, cfg *config.Config, publisher events.Publisher, m *metrics.Registry) *Services {
	if m == nil {
		m = metrics.NewRegistry()
	}
	owner := cfg.Ledger.Owner()

	ledger := database.NewLedger(db)
	registry := NewRegistryService(ledger)
	organisations := NewOrganisationService(ledger, registry, owner)
	marketplaces := NewMarketplaceService(ledger, organisations)
	tokens := NewTokenService(ledger, registry, owner)
	notifications := NewNotificationService(publisher, m)
	exchange := NewExchangeService(ledger, marketplaces, organisations, tokens, notifications, m, cfg.Ledger.MaxOrderBytes)

	return &Services{
		Ledger:        ledger,
		Registry:      registry,
		Organisations: organisations,
		Marketplaces:  marketplaces,
		Tokens:        tokens,
		Exchange:      exchange,
		Notifications: notifications,
		Auth:          NewAuthService(cfg, organisations),
		Admin:         NewAdminService(ledger, owner),
		Metrics:       m,
	}
}
