package services_test

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"github.com/civicledger/IPRx-Core/internal/codec"
	"github.com/civicledger/IPRx-Core/internal/events"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/services"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type ExchangeTestSuite struct {
	suite.Suite
	ctx       context.Context
	svc       *services.Services
	publisher *recordingPublisher
	takerKey  *ecdsa.PrivateKey
}

func (s *ExchangeTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.svc, s.publisher = newServices(s.T())
	seedNetwork(s.T(), s.ctx, s.svc)

	s.takerKey = mustKey(s.T(), takerKeyHex)

	// The taker is also the rights holder of patent #1.
	claim, err := s.svc.Tokens.Claim(s.ctx, s.taker(), patentToken)
	s.Require().NoError(err)
	s.Require().Equal(uint64(1), claim.IPIndex)
}

func (s *ExchangeTestSuite) taker() common.Address {
	return crypto.PubkeyToAddress(s.takerKey.PublicKey)
}

func (s *ExchangeTestSuite) sign(o codec.Order) []byte {
	return encodeSigned(s.T(), o, s.takerKey)
}

func (s *ExchangeTestSuite) submit(nonce int64) *models.Order {
	order, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, s.sign(baseOrder(s.taker(), nonce)))
	s.Require().NoError(err)
	return order
}

func (s *ExchangeTestSuite) TestSubmitAndApprove() {
	order := s.submit(1)

	s.Equal(uint64(0), order.OrderIndex)
	s.Equal(models.OrderStatusPending, order.Status)
	s.Equal(s.taker(), order.SignerAddress)
	s.Equal(s.taker(), order.OrderTakerAddress)
	s.Equal(marketplaceAddr, order.SubmittedBy)

	status, err := s.svc.Exchange.OrderStatusAtIndex(s.ctx, marketplaceAddr, 0)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPending, status)

	approved, err := s.svc.Exchange.ApproveOrder(s.ctx, s.taker(), marketplaceAddr, 0)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusApproved, approved.Status)
	s.Equal(s.taker(), approved.DecidedBy)
	s.NotNil(approved.DecidedAt)

	status, err = s.svc.Exchange.OrderStatusAtIndex(s.ctx, marketplaceAddr, 0)
	s.Require().NoError(err)
	s.Equal(uint8(2), uint8(status))

	s.Equal([]events.Type{events.OrderSubmitted, events.OrderApproved}, s.publisher.types())
}

func (s *ExchangeTestSuite) TestReadAccessors() {
	s.submit(1)

	core, err := s.svc.Exchange.OrderAtIndex(s.ctx, marketplaceAddr, 0)
	s.Require().NoError(err)
	s.Equal("1", core.IPIndex.String())
	s.Equal("1530184331", core.Timestamp.String())
	s.Equal(models.OrderTypeLicense, core.OrderType)
	expected := baseOrder(s.taker(), 1)
	s.Equal(expected.Hash(), core.Hash)

	payment, err := s.svc.Exchange.OrderPaymentAtIndex(s.ctx, marketplaceAddr, 0)
	s.Require().NoError(err)
	s.Equal(models.PaymentCurrencyFiat, payment.PaymentCurrency)
	s.Equal("6", payment.PaymentAmountInWei.String())

	sig, err := s.svc.Exchange.OrderSigAtIndex(s.ctx, marketplaceAddr, 0)
	s.Require().NoError(err)
	s.Contains([]uint8{27, 28}, sig.V)
	s.Equal(s.taker(), sig.SignerAddress)

	_, err = s.svc.Exchange.OrderAtIndex(s.ctx, marketplaceAddr, 1)
	s.ErrorIs(err, models.ErrNotFound)
	_, err = s.svc.Exchange.OrderPaymentAtIndex(s.ctx, marketplaceAddr, 1)
	s.ErrorIs(err, models.ErrNotFound)
	_, err = s.svc.Exchange.OrderSigAtIndex(s.ctx, marketplaceAddr, 1)
	s.ErrorIs(err, models.ErrNotFound)
	_, err = s.svc.Exchange.OrderStatusAtIndex(s.ctx, strangerAddr, 0)
	s.ErrorIs(err, models.ErrNotFound)
}

func (s *ExchangeTestSuite) TestReplayIsRejected() {
	encoded := s.sign(baseOrder(s.taker(), 1))

	_, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
	s.Require().NoError(err)

	_, err = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
	s.ErrorIs(err, models.ErrReplayedNonce)

	_, err = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, s.sign(baseOrder(s.taker(), 0)))
	s.ErrorIs(err, models.ErrReplayedNonce)

	count, err := s.svc.Exchange.OrderCount(s.ctx, marketplaceAddr)
	s.Require().NoError(err)
	s.Equal(int64(1), count)
}

func (s *ExchangeTestSuite) TestNoncesStrictlyIncrease() {
	s.submit(5)

	_, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, s.sign(baseOrder(s.taker(), 3)))
	s.ErrorIs(err, models.ErrReplayedNonce)

	second := s.submit(6)
	s.Equal(uint64(1), second.OrderIndex)

	last, err := s.svc.Exchange.LastNonce(s.ctx, s.taker())
	s.Require().NoError(err)
	s.Equal(int64(6), last.Int64())
}

func (s *ExchangeTestSuite) TestFirstNonceMustBePositive() {
	_, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, s.sign(baseOrder(s.taker(), 0)))
	s.ErrorIs(err, models.ErrReplayedNonce)
}

func (s *ExchangeTestSuite) TestWrongSigner() {
	encoded := encodeSigned(s.T(), baseOrder(s.taker(), 1), mustKey(s.T(), randomKeyHex))

	_, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
	s.ErrorIs(err, models.ErrSignatureMismatch)

	last, err := s.svc.Exchange.LastNonce(s.ctx, s.taker())
	s.Require().NoError(err)
	s.Equal(0, last.Sign())
}

func (s *ExchangeTestSuite) TestTamperedFieldsAreRejected() {
	for i := 0; i < codec.PayloadCount; i++ {
		s.Run(codec.FieldName(i), func() {
			signed, err := codec.Sign(baseOrder(s.taker(), 100+int64(i)), s.takerKey)
			s.Require().NoError(err)

			tamperField(&signed.Order, i)
			encoded, err := codec.Encode(signed)
			s.Require().NoError(err)

			_, err = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
			s.ErrorIs(err, models.ErrSignatureMismatch)
		})
	}
}

func tamperField(o *codec.Order, i int) {
	bump := func(v *big.Int) *big.Int { return new(big.Int).Add(v, big.NewInt(1)) }
	flip := func(a common.Address) common.Address {
		a[19] ^= 0xff
		return a
	}
	switch i {
	case codec.FieldOrganisationIndex:
		o.OrganisationIndex++
	case codec.FieldIPTypeIndex:
		o.IPTypeIndex++
	case codec.FieldIPIndex:
		o.IPIndex = bump(o.IPIndex)
	case codec.FieldOrderTaker:
		o.OrderTaker = flip(o.OrderTaker)
	case codec.FieldMarketplace:
		o.Marketplace = flip(o.Marketplace)
	case codec.FieldOrderType:
		o.OrderType++
	case codec.FieldPaymentCurrency:
		o.PaymentCurrency++
	case codec.FieldPaymentToken:
		o.PaymentToken = flip(o.PaymentToken)
	case codec.FieldPaymentAmount:
		o.PaymentAmount = bump(o.PaymentAmount)
	case codec.FieldNonce:
		o.Nonce = bump(o.Nonce)
	case codec.FieldTimestamp:
		o.Timestamp = bump(o.Timestamp)
	case codec.FieldFeeRecipient:
		o.FeeRecipient = flip(o.FeeRecipient)
	case codec.FieldFeeAmount:
		o.FeeAmount = bump(o.FeeAmount)
	}
}

func (s *ExchangeTestSuite) TestUnknownMarketplace() {
	o := baseOrder(s.taker(), 1)
	o.Marketplace = strangerAddr

	_, err := s.svc.Exchange.SubmitOrder(s.ctx, strangerAddr, s.sign(o))
	s.ErrorIs(err, models.ErrUnknownMarketplace)

	// The failed unit consumed nothing.
	last, err := s.svc.Exchange.LastNonce(s.ctx, s.taker())
	s.Require().NoError(err)
	s.Equal(0, last.Sign())
	s.Empty(s.publisher.types())
}

func (s *ExchangeTestSuite) TestMalformedPayloads() {
	_, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, []byte{0xc0})
	s.ErrorIs(err, models.ErrMalformedOrder)

	_, err = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, bytes.Repeat([]byte{0x01}, 5000))
	s.ErrorIs(err, models.ErrMalformedOrder)
}

func (s *ExchangeTestSuite) TestStateMachine() {
	s.submit(1)
	s.submit(2)

	_, err := s.svc.Exchange.ApproveOrder(s.ctx, s.taker(), marketplaceAddr, 0)
	s.Require().NoError(err)
	_, err = s.svc.Exchange.ApproveOrder(s.ctx, s.taker(), marketplaceAddr, 0)
	s.ErrorIs(err, models.ErrInvalidState)
	_, err = s.svc.Exchange.RejectOrder(s.ctx, s.taker(), marketplaceAddr, 0)
	s.ErrorIs(err, models.ErrInvalidState)

	rejected, err := s.svc.Exchange.RejectOrder(s.ctx, s.taker(), marketplaceAddr, 1)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusRejected, rejected.Status)
	_, err = s.svc.Exchange.ApproveOrder(s.ctx, s.taker(), marketplaceAddr, 1)
	s.ErrorIs(err, models.ErrInvalidState)

	_, err = s.svc.Exchange.ApproveOrder(s.ctx, s.taker(), marketplaceAddr, 7)
	s.ErrorIs(err, models.ErrInvalidState)

	s.Equal([]events.Type{
		events.OrderSubmitted, events.OrderSubmitted, events.OrderApproved, events.OrderRejected,
	}, s.publisher.types())
}

func (s *ExchangeTestSuite) TestOnlyRightsHolderDecides() {
	s.submit(1)

	_, err := s.svc.Exchange.ApproveOrder(s.ctx, adminAddr, marketplaceAddr, 0)
	s.ErrorIs(err, models.ErrUnauthorized)
	_, err = s.svc.Exchange.RejectOrder(s.ctx, ownerAddr, marketplaceAddr, 0)
	s.ErrorIs(err, models.ErrUnauthorized)

	status, err := s.svc.Exchange.OrderStatusAtIndex(s.ctx, marketplaceAddr, 0)
	s.Require().NoError(err)
	s.Equal(models.OrderStatusPending, status)
}

func (s *ExchangeTestSuite) TestUnresolvableRightsHolder() {
	// Patent #9 was never claimed and ip type 3 does not exist.
	unclaimed := baseOrder(s.taker(), 1)
	unclaimed.IPIndex = big.NewInt(9)
	_, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, s.sign(unclaimed))
	s.Require().NoError(err)

	noType := baseOrder(s.taker(), 2)
	noType.IPTypeIndex = 3
	_, err = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, s.sign(noType))
	s.Require().NoError(err)

	_, err = s.svc.Exchange.ApproveOrder(s.ctx, s.taker(), marketplaceAddr, 0)
	s.ErrorIs(err, models.ErrUnauthorized)
	_, err = s.svc.Exchange.RejectOrder(s.ctx, s.taker(), marketplaceAddr, 1)
	s.ErrorIs(err, models.ErrUnauthorized)
}

func (s *ExchangeTestSuite) TestOrderSequencesArePerMarketplace() {
	second := common.HexToAddress("0x3333333333333333333333333333333333333333")
	_, err := s.svc.Marketplaces.Register(s.ctx, adminAddr, &services.RegisterMarketplaceRequest{
		Name:    "Second",
		Address: second.Hex(),
	})
	s.Require().NoError(err)

	s.submit(1)
	o := baseOrder(s.taker(), 2)
	o.Marketplace = second
	order, err := s.svc.Exchange.SubmitOrder(s.ctx, second, s.sign(o))
	s.Require().NoError(err)
	s.Equal(uint64(0), order.OrderIndex)

	orders, total, err := s.svc.Exchange.List(s.ctx, marketplaceAddr, utils.DefaultPagination())
	s.Require().NoError(err)
	s.Equal(int64(1), total)
	s.Len(orders, 1)
}

func (s *ExchangeTestSuite) TestVerifyOrderDoesNotRecord() {
	encoded := s.sign(baseOrder(s.taker(), 1))

	result, err := s.svc.Exchange.VerifyOrder(s.ctx, encoded)
	s.Require().NoError(err)
	s.Equal(s.taker(), result.Signer)
	s.True(result.SignerMatchesTaker)
	s.True(result.MarketplaceRegistered)
	s.True(result.NonceFresh)

	count, err := s.svc.Exchange.OrderCount(s.ctx, marketplaceAddr)
	s.Require().NoError(err)
	s.Zero(count)

	_, err = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
	s.Require().NoError(err)

	result, err = s.svc.Exchange.VerifyOrder(s.ctx, encoded)
	s.Require().NoError(err)
	s.False(result.NonceFresh)
	s.Equal("1", result.LastNonce)
}

func (s *ExchangeTestSuite) TestMetricsRecordOutcomes() {
	encoded := s.sign(baseOrder(s.taker(), 1))
	_, _ = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
	_, _ = s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
	_, _ = s.svc.Exchange.ApproveOrder(s.ctx, strangerAddr, marketplaceAddr, 0)

	m := s.svc.Metrics
	s.Equal(float64(1), testutil.ToFloat64(m.OrdersSubmitted.WithLabelValues("ok")))
	s.Equal(float64(1), testutil.ToFloat64(m.OrdersSubmitted.WithLabelValues("replayed_nonce")))
	s.Equal(float64(1), testutil.ToFloat64(m.OrdersDecided.WithLabelValues("approved", "unauthorized")))
	s.Equal(float64(1), testutil.ToFloat64(m.EventsPublished))
}

func (s *ExchangeTestSuite) TestPublishFailureDoesNotFailSubmission() {
	s.publisher.err = errPublish

	order := s.submit(1)
	s.Equal(models.OrderStatusPending, order.Status)
	s.Equal(float64(1), testutil.ToFloat64(s.svc.Metrics.EventsFailed))
}

func (s *ExchangeTestSuite) TestConcurrentSubmissionsOfOneNonce() {
	const callers = 16
	encoded := s.sign(baseOrder(s.taker(), 1))

	errs := race(callers, func() error {
		_, err := s.svc.Exchange.SubmitOrder(s.ctx, marketplaceAddr, encoded)
		return err
	})

	ok, replayed, other := countOutcomes(errs, models.ErrReplayedNonce)
	s.Equal(1, ok)
	s.Equal(callers-1, replayed)
	s.Zero(other)

	count, err := s.svc.Exchange.OrderCount(s.ctx, marketplaceAddr)
	s.Require().NoError(err)
	s.Equal(int64(1), count)

	last, err := s.svc.Exchange.LastNonce(s.ctx, s.taker())
	s.Require().NoError(err)
	s.Equal(int64(1), last.Int64())
}

func (s *ExchangeTestSuite) TestConcurrentDecisionsOnOneOrder() {
	const callers = 10
	s.submit(1)

	var mu sync.Mutex
	turn := 0
	errs := race(callers, func() error {
		mu.Lock()
		approve := turn%2 == 0
		turn++
		mu.Unlock()

		var err error
		if approve {
			_, err = s.svc.Exchange.ApproveOrder(s.ctx, s.taker(), marketplaceAddr, 0)
		} else {
			_, err = s.svc.Exchange.RejectOrder(s.ctx, s.taker(), marketplaceAddr, 0)
		}
		return err
	})

	ok, invalid, other := countOutcomes(errs, models.ErrInvalidState)
	s.Equal(1, ok)
	s.Equal(callers-1, invalid)
	s.Zero(other)

	status, err := s.svc.Exchange.OrderStatusAtIndex(s.ctx, marketplaceAddr, 0)
	s.Require().NoError(err)
	s.NotEqual(models.OrderStatusPending, status)
	s.Len(s.publisher.types(), 2)
}

func TestExchangeTestSuite(t *testing.T) {
	suite.Run(t, new(ExchangeTestSuite))
}
