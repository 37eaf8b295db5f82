package services_test

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

func personalSign(t *testing.T, message string, keyHex string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), mustKey(t, keyHex))
	require.NoError(t, err)
	sig[64] += 27
	return hexutil.Encode(sig)
}

func TestWalletLogin(t *testing.T) {
	svc, _ := newServices(t)
	utils.SetJWTSecret("test-secret")
	key := mustKey(t, takerKeyHex)
	addr := crypto.PubkeyToAddress(key.PublicKey)

	challenge, err := svc.Auth.Challenge(&services.ChallengeRequest{Address: addr.Hex()})
	require.NoError(t, err)
	assert.Contains(t, challenge.Message, addr.Hex())

	resp, err := svc.Auth.Login(&services.LoginRequest{
		Address:   addr.Hex(),
		Signature: personalSign(t, challenge.Message, takerKeyHex),
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, resp.Role)
	assert.Equal(t, "Bearer", resp.TokenType)

	claims, err := utils.ValidateJWT(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, addr.Hex(), claims.Address)

	// A challenge is single use.
	_, err = svc.Auth.Login(&services.LoginRequest{
		Address:   addr.Hex(),
		Signature: personalSign(t, challenge.Message, takerKeyHex),
	})
	assert.ErrorIs(t, err, services.ErrChallengeExpired)
}

func TestConcurrentLoginsRedeemChallengeOnce(t *testing.T) {
	svc, _ := newServices(t)
	utils.SetJWTSecret("test-secret")
	addr := crypto.PubkeyToAddress(mustKey(t, takerKeyHex).PublicKey)

	challenge, err := svc.Auth.Challenge(&services.ChallengeRequest{Address: addr.Hex()})
	require.NoError(t, err)
	req := &services.LoginRequest{
		Address:   addr.Hex(),
		Signature: personalSign(t, challenge.Message, takerKeyHex),
	}

	const callers = 8
	errs := race(callers, func() error {
		_, err := svc.Auth.Login(req)
		return err
	})

	ok, expired, other := countOutcomes(errs, services.ErrChallengeExpired)
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, expired)
	assert.Zero(t, other)
}

func TestWalletLoginRejectsOtherSigner(t *testing.T) {
	svc, _ := newServices(t)
	addr := crypto.PubkeyToAddress(mustKey(t, takerKeyHex).PublicKey)

	challenge, err := svc.Auth.Challenge(&services.ChallengeRequest{Address: addr.Hex()})
	require.NoError(t, err)

	_, err = svc.Auth.Login(&services.LoginRequest{
		Address:   addr.Hex(),
		Signature: personalSign(t, challenge.Message, randomKeyHex),
	})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	_, err = svc.Auth.Login(&services.LoginRequest{Address: addr.Hex(), Signature: "0x1234"})
	assert.ErrorIs(t, err, models.ErrInvalidInput)

	_, err = svc.Auth.Login(&services.LoginRequest{
		Address:   ownerAddr.Hex(),
		Signature: personalSign(t, challenge.Message, takerKeyHex),
	})
	assert.ErrorIs(t, err, services.ErrChallengeExpired)
}

func TestIdentity(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	seedNetwork(t, ctx, svc)

	assert.Equal(t, models.RoleOwner, svc.Auth.RoleOf(ownerAddr))

	me, err := svc.Auth.Me(ctx, adminAddr)
	require.NoError(t, err)
	assert.Equal(t, models.RoleMember, me.Role)
	assert.Equal(t, []uint64{0}, me.AdminOf)
	assert.False(t, me.IsGlobalOwner)

	me, err = svc.Auth.Me(ctx, ownerAddr)
	require.NoError(t, err)
	assert.True(t, me.IsGlobalOwner)
	assert.Empty(t, me.AdminOf)
}

func TestRecoverPersonalSignerAcceptsRawRecoveryID(t *testing.T) {
	key := mustKey(t, takerKeyHex)
	sig, err := crypto.Sign(accounts.TextHash([]byte("hello")), key)
	require.NoError(t, err)

	signer, err := services.RecoverPersonalSigner("hello", sig)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer)

	_, err = services.RecoverPersonalSigner("hello", sig[:64])
	assert.ErrorIs(t, err, models.ErrInvalidSignature)
}

func TestDashboardStatsAndSeed(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()
	seed := testConfig().Seed
	seed.AdminAddress = adminAddr.Hex()
	seed.MarketplaceAddress = marketplaceAddr.Hex()

	require.NoError(t, svc.SeedDemoData(ctx, seed))
	require.NoError(t, svc.SeedDemoData(ctx, seed))

	_, err := svc.Admin.GetDashboardStats(ctx, adminAddr)
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	stats, err := svc.Admin.GetDashboardStats(ctx, ownerAddr)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalOrganisations)
	assert.Equal(t, int64(1), stats.TotalAdmins)
	assert.Equal(t, int64(1), stats.TotalMarketplaces)
	assert.Zero(t, stats.TotalOrders)

	ipType, err := svc.Organisations.IPTypeAtIndex(ctx, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, services.SeedIPTypeName, ipType.Name)
	assert.Equal(t, services.SeedTokenAddress, ipType.TokenAddress)

	claim, err := svc.Tokens.Claim(ctx, strangerAddr, services.SeedTokenAddress)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), claim.IPIndex)
}

func TestAuditLogs(t *testing.T) {
	svc, _ := newServices(t)
	ctx := context.Background()

	for _, action := range []string{"POST /v1/orders", "PUT /v1/orders/:marketplace/:index/approve", "POST /v1/orders"} {
		require.NoError(t, svc.Admin.RecordAudit(ctx, &models.AuditLog{
			Caller:       adminAddr.Hex(),
			Action:       action,
			ResourceType: "orders",
			Status:       201,
		}))
	}

	_, _, err := svc.Admin.GetAuditLogs(ctx, adminAddr, services.AdminAuditFilter{})
	assert.ErrorIs(t, err, models.ErrUnauthorized)

	logs, total, err := svc.Admin.GetAuditLogs(ctx, ownerAddr, services.AdminAuditFilter{
		PaginationParams: utils.DefaultPagination(),
		Action:           "POST /v1/orders",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Len(t, logs, 2)
}
