package services_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"sync"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/civicledger/IPRx-Core/internal/codec"
	"github.com/civicledger/IPRx-Core/internal/config"
	"github.com/civicledger/IPRx-Core/internal/database/dbtest"
	"github.com/civicledger/IPRx-Core/internal/events"
	"github.com/civicledger/IPRx-Core/internal/metrics"
	"github.com/civicledger/IPRx-Core/internal/services"
)

const (
	takerKeyHex  = "c6d2ac9b00bd599c4ce9d3a69c91e496eb9e79781d9dc84c79bafa7618f45f37"
	randomKeyHex = "759b3437ff0fd1af70a5a367ac281c73f6dca2e17a4650a7f939fb50ad15f6cd"
)

var (
	ownerAddr       = common.HexToAddress("0x627306090abab3a6e1400e9345bc60c78a8bef57")
	adminAddr       = common.HexToAddress("0xf17f52151ebef6c7334fad080c5704d77216b732")
	marketplaceAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	patentToken     = common.HexToAddress("0x2222222222222222222222222222222222222222")
	strangerAddr    = common.HexToAddress("0x0d1d4e623d10f9fba5db95830f7d3839406c6af2")
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.OrderEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []events.Type
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func testConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenTTL: 1,
			ChallengeTTL:   300,
		},
		Ledger: config.LedgerConfig{
			OwnerAddress:  ownerAddr.Hex(),
			MaxOrderBytes: 4096,
		},
	}
}

func newServices(t *testing.T) (*services.Services, *recordingPublisher) {
	t.Helper()
	publisher := &recordingPublisher{}
	return services.New(dbtest.Open(t), testConfig(), publisher, metrics.NewRegistry()), publisher
}

func mustKey(t *testing.T, hex string) *ecdsa.PrivateKey {
	t.Helper()
	key, err := crypto.HexToECDSA(hex)
	require.NoError(t, err)
	return key
}

// seedNetwork builds organisation 0 with adminAddr as admin, the Patent
// ip-type routed to patentToken, and marketplaceAddr registered.
func seedNetwork(t *testing.T, ctx context.Context, svc *services.Services) {
	t.Helper()

	org, err := svc.Organisations.Add(ctx, ownerAddr, &services.AddOrganisationRequest{
		Name:       "IP Australia",
		WebsiteURL: "https://www.ipaustralia.gov.au/",
	})
	require.NoError(t, err)
	require.NoError(t, svc.Organisations.AddressAuthorise(ctx, ownerAddr, org.OrgIndex, adminAddr))

	_, err = svc.Tokens.Register(ctx, ownerAddr, &services.RegisterTokenRequest{Name: "PatentToken", Address: patentToken.Hex()})
	require.NoError(t, err)

	_, err = svc.Organisations.IPTypeAdd(ctx, adminAddr, org.OrgIndex, &services.AddIPTypeRequest{
		Name:         "Patent",
		TokenAddress: patentToken.Hex(),
	})
	require.NoError(t, err)

	_, err = svc.Marketplaces.Register(ctx, adminAddr, &services.RegisterMarketplaceRequest{
		Name:              gofakeit.Company(),
		Website:           gofakeit.URL(),
		Address:           marketplaceAddr.Hex(),
		OrganisationIndex: org.OrgIndex,
	})
	require.NoError(t, err)
}

func baseOrder(taker common.Address, nonce int64) codec.Order {
	return codec.Order{
		OrganisationIndex: 0,
		IPTypeIndex:       0,
		IPIndex:           big.NewInt(1),
		OrderTaker:        taker,
		Marketplace:       marketplaceAddr,
		OrderType:         2,
		PaymentCurrency:   5,
		PaymentToken:      common.HexToAddress("0x7e9ea400443957be3918acfbd1f57cf6d3f5126a"),
		PaymentAmount:     big.NewInt(6),
		Nonce:             big.NewInt(nonce),
		Timestamp:         big.NewInt(1530184331),
		FeeRecipient:      common.HexToAddress("0x24fbed7ecd625d3f0fd19a6c9113ded436172294"),
		FeeAmount:         big.NewInt(8),
	}
}

func encodeSigned(t *testing.T, o codec.Order, key *ecdsa.PrivateKey) []byte {
	t.Helper()
	signed, err := codec.Sign(o, key)
	require.NoError(t, err)
	encoded, err := codec.Encode(signed)
	require.NoError(t, err)
	return encoded
}

var errPublish = errors.New("broker unavailable")

// race runs fn from n goroutines at once and returns every result.
func race(n int, fn func() error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			errs[i] = fn()
		}(i)
	}
	close(start)
	wg.Wait()
	return errs
}

func countOutcomes(errs []error, target error) (ok, matched, other int) {
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, target):
			matched++
		default:
			other++
		}
	}
	return ok, matched, other
}
