package services_test

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

func TestOrganisationDirectorySetup(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	seedNetwork(t, ctx, svc)

	org, err := svc.Organisations.AtIndex(ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, "IP Australia", org.Name)
	assert.Equal(t, "https://www.ipaustralia.gov.au/", org.WebsiteURL)

	ok, err := svc.Organisations.IsAddressAuthorised(ctx, 0, adminAddr)
	require.NoError(t, err)
	assert.True(t, ok)

	ipType, err := svc.Organisations.IPTypeAtIndex(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "Patent", ipType.Name)
	assert.Equal(t, patentToken, ipType.TokenAddress)

	discovered, err := svc.Registry.GetAddress(ctx, services.Key(services.KeyContractName, services.KeyTokenType, uint64(0), "Patent"))
	require.NoError(t, err)
	assert.Equal(t, patentToken, discovered)

	registered, err := svc.Marketplaces.IsRegistered(ctx, marketplaceAddr)
	require.NoError(t, err)
	assert.True(t, registered)
}

func TestOrganisationAddIsOwnerOnly(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	_, err := svc.Organisations.Add(ctx, adminAddr, &services.AddOrganisationRequest{Name: "IP Australia"})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Organisations.Add(ctx, ownerAddr, &services.AddOrganisationRequest{})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	for i := 0; i < 3; i++ {
		org, err := svc.Organisations.Add(ctx, ownerAddr, &services.AddOrganisationRequest{
			Name:       gofakeit.Company(),
			WebsiteURL: gofakeit.URL(),
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), org.OrgIndex)
	}

	orgs, total, err := svc.Organisations.List(ctx, utils.PaginationParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, orgs, 1)
	assert.Equal(t, uint64(2), orgs[0].OrgIndex)

	_, err = svc.Organisations.AtIndex(ctx, 3)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestAddressAuthorise(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	// Owner check comes before the existence check.
	err := svc.Organisations.AddressAuthorise(ctx, adminAddr, 0, adminAddr)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	err = svc.Organisations.AddressAuthorise(ctx, ownerAddr, 0, adminAddr)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = svc.Organisations.Add(ctx, ownerAddr, &services.AddOrganisationRequest{Name: "IP Australia"})
	require.NoError(t, err)

	require.NoError(t, svc.Organisations.AddressAuthorise(ctx, ownerAddr, 0, adminAddr))
	require.NoError(t, svc.Organisations.AddressAuthorise(ctx, ownerAddr, 0, adminAddr))

	admins, err := svc.Organisations.Admins(ctx, 0)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, adminAddr, admins[0].Address)
	assert.Equal(t, ownerAddr, admins[0].AuthorisedBy)

	ok, err := svc.Organisations.IsAddressAuthorised(ctx, 0, strangerAddr)
	require.NoError(t, err)
	assert.False(t, ok)

	adminOf, err := svc.Organisations.AdminOf(ctx, adminAddr)
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, adminOf)

	// The owner is not implicitly an admin.
	ok, err = svc.Organisations.IsAddressAuthorised(ctx, 0, ownerAddr)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIPTypeAdd(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	seedNetwork(t, ctx, svc)

	_, err := svc.Organisations.IPTypeAdd(ctx, strangerAddr, 0, &services.AddIPTypeRequest{
		Name:         "Trade Mark",
		TokenAddress: patentToken.Hex(),
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Organisations.IPTypeAdd(ctx, ownerAddr, 0, &services.AddIPTypeRequest{
		Name:         "Trade Mark",
		TokenAddress: patentToken.Hex(),
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Organisations.IPTypeAdd(ctx, adminAddr, 0, &services.AddIPTypeRequest{
		Name:         "Patent",
		TokenAddress: strangerAddr.Hex(),
	})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	trademarks := common.HexToAddress("0x4444444444444444444444444444444444444444")
	ipType, err := svc.Organisations.IPTypeAdd(ctx, adminAddr, 0, &services.AddIPTypeRequest{
		Name:         "Trade Mark",
		TokenAddress: trademarks.Hex(),
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), ipType.TypeIndex)

	ipTypes, err := svc.Organisations.IPTypes(ctx, 0)
	require.NoError(t, err)
	require.Len(t, ipTypes, 2)
	assert.Equal(t, "Patent", ipTypes[0].Name)
	assert.Equal(t, "Trade Mark", ipTypes[1].Name)

	// The rejected duplicate left the original route untouched.
	discovered, err := svc.Registry.GetAddress(ctx, services.Key(services.KeyContractName, services.KeyTokenType, uint64(0), "Patent"))
	require.NoError(t, err)
	assert.Equal(t, patentToken, discovered)

	_, err = svc.Organisations.IPTypeAtIndex(ctx, 0, 2)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestMarketplaceRegister(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	seedNetwork(t, ctx, svc)

	_, err := svc.Organisations.Add(ctx, ownerAddr, &services.AddOrganisationRequest{Name: "USPTO"})
	require.NoError(t, err)

	req := &services.RegisterMarketplaceRequest{
		Name:              "Other",
		Address:           strangerAddr.Hex(),
		OrganisationIndex: 1,
	}
	_, err = svc.Marketplaces.Register(ctx, adminAddr, req)
	assert.ErrorIs(t, err, models.ErrUnauthorized, "admin of organisation 0 only")

	req.OrganisationIndex = 0
	_, err = svc.Marketplaces.Register(ctx, ownerAddr, req)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	req.OrganisationIndex = 9
	_, err = svc.Marketplaces.Register(ctx, adminAddr, req)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Marketplaces.Register(ctx, adminAddr, &services.RegisterMarketplaceRequest{
		Name:    "Again",
		Address: marketplaceAddr.Hex(),
	})
	assert.ErrorIs(t, err, models.ErrAlreadyExists)

	req.OrganisationIndex = 0
	mkt, err := svc.Marketplaces.Register(ctx, adminAddr, req)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), mkt.MktIndex)
	assert.Equal(t, adminAddr, mkt.RegisteredBy)

	byIndex, err := svc.Marketplaces.ByIndex(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, strangerAddr, byIndex.Address)

	byAddress, err := svc.Marketplaces.ByAddress(ctx, marketplaceAddr)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), byAddress.MktIndex)

	_, err = svc.Marketplaces.ByIndex(ctx, 2)
	assert.ErrorIs(t, err, models.ErrNotFound)

	mkts, total, err := svc.Marketplaces.List(ctx, utils.DefaultPagination())
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, mkts, 2)
}
