// internal/services/exchange_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicledger/IPRx-Core/internal/codec"
	"github.com/civicledger/IPRx-Core/internal/database"
	"github.com/civicledger/IPRx-Core/internal/metrics"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

type marketplaceRegistry interface {
	IsRegistered(ctx context.Context, addr common.Address) (bool, error)
}

type ipTypeDirectory interface {
	IPTypeAtIndex(ctx context.Context, orgIndex, typeIndex uint64) (*models.IPType, error)
}

type tokenResolver interface {
	Resolve(ctx context.Context, token common.Address) (RightsToken, error)
}

type orderNotifier interface {
	OrderSubmitted(ctx context.Context, order *models.Order)
	OrderDecided(ctx context.Context, order *models.Order)
}

// ExchangeService verifies signed orders, guards per-signer nonces and
// runs the Pending to Approved/Rejected lifecycle.
type ExchangeService struct {
	ledger        *database.Ledger
	marketplaces  marketplaceRegistry
	ipTypes       ipTypeDirectory
	tokens        tokenResolver
	notifier      orderNotifier
	metrics       *metrics.Registry
	maxOrderBytes int
}

type SubmitOrderRequest struct {
	Encoded string `json:"encoded" validate:"required,hex_payload"`
}

func NewExchangeService(
	ledger *database.Ledger,
	marketplaces marketplaceRegistry,
	ipTypes ipTypeDirectory,
	tokens tokenResolver,
	notifier orderNotifier,
	m *metrics.Registry,
	maxOrderBytes int,
) *ExchangeService {
	return &ExchangeService{
		ledger:        ledger,
		marketplaces:  marketplaces,
		ipTypes:       ipTypes,
		tokens:        tokens,
		notifier:      notifier,
		metrics:       m,
		maxOrderBytes: maxOrderBytes,
	}
}

// SubmitOrder decodes, verifies and records an encoded signed order as
// Pending under its marketplace.
func (s *ExchangeService) SubmitOrder(ctx context.Context, sender common.Address, encoded []byte) (*models.Order, error) {
	start := time.Now()
	order, err := s.submit(ctx, sender, encoded)
	if s.metrics != nil {
		s.metrics.ObserveSubmission(Outcome(err), time.Since(start))
	}
	if err != nil {
		logrus.WithError(err).WithField("sender", sender.Hex()).Warn("Order submission rejected")
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"marketplace": order.MarketplaceAddress.Hex(),
		"order_index": order.OrderIndex,
		"order_taker": order.OrderTakerAddress.Hex(),
		"nonce":       order.Nonce.String(),
	}).Info("Order submitted")
	s.notify(ctx, order, false)
	return order, nil
}

func (s *ExchangeService) submit(ctx context.Context, sender common.Address, encoded []byte) (*models.Order, error) {
	if s.maxOrderBytes > 0 && len(encoded) > s.maxOrderBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", models.ErrMalformedOrder, len(encoded), s.maxOrderBytes)
	}

	signed, err := codec.Decode(encoded)
	if err != nil {
		return nil, err
	}

	signer, err := codec.Recover(signed.Order.Hash(), signed.Signature)
	if err != nil {
		return nil, err
	}
	if signer != signed.Order.OrderTaker {
		return nil, fmt.Errorf("%w: recovered %s, order taker %s", models.ErrSignatureMismatch, signer.Hex(), signed.Order.OrderTaker.Hex())
	}

	var order *models.Order
	err = s.ledger.Execute(ctx, func(ctx context.Context) error {
		registered, err := s.marketplaces.IsRegistered(ctx, signed.Order.Marketplace)
		if err != nil {
			return err
		}
		if !registered {
			return fmt.Errorf("%w: %s", models.ErrUnknownMarketplace, signed.Order.Marketplace.Hex())
		}

		if err := s.consumeNonce(ctx, signer, signed.Order.Nonce); err != nil {
			return err
		}

		db := s.ledger.DB(ctx)

		var count int64
		if err := db.Model(&models.Order{}).
			Where("marketplace_address = ?", signed.Order.Marketplace).
			Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count orders: %w", err)
		}

		order = models.NewPendingOrder(signed, signer, sender, uint64(count))
		if err := db.Create(order).Error; err != nil {
			return fmt.Errorf("failed to record order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// OrderVerification is the dry-run result of checking an encoded order
// against the current ledger without recording it.
type OrderVerification struct {
	Hash                  common.Hash      `json:"hash"`
	Signer                common.Address   `json:"signer"`
	Order                 models.OrderCore `json:"order"`
	SignerMatchesTaker    bool             `json:"signer_matches_taker"`
	MarketplaceRegistered bool             `json:"marketplace_registered"`
	NonceFresh            bool             `json:"nonce_fresh"`
	LastNonce             string           `json:"last_nonce"`
}

// VerifyOrder decodes and recovers an encoded order and reports whether
// it would pass submission now. Wire and signature failures are returned
// as errors; ledger checks are reported as flags.
func (s *ExchangeService) VerifyOrder(ctx context.Context, encoded []byte) (*OrderVerification, error) {
	if s.maxOrderBytes > 0 && len(encoded) > s.maxOrderBytes {
		return nil, fmt.Errorf("%w: %d bytes exceeds limit of %d", models.ErrMalformedOrder, len(encoded), s.maxOrderBytes)
	}
	signed, err := codec.Decode(encoded)
	if err != nil {
		return nil, err
	}
	hash := signed.Order.Hash()
	signer, err := codec.Recover(hash, signed.Signature)
	if err != nil {
		return nil, err
	}

	registered, err := s.marketplaces.IsRegistered(ctx, signed.Order.Marketplace)
	if err != nil {
		return nil, err
	}
	last, err := s.LastNonce(ctx, signer)
	if err != nil {
		return nil, err
	}

	preview := models.NewPendingOrder(signed, signer, common.Address{}, 0)
	return &OrderVerification{
		Hash:                  hash,
		Signer:                signer,
		Order:                 preview.Core(),
		SignerMatchesTaker:    signer == signed.Order.OrderTaker,
		MarketplaceRegistered: registered,
		NonceFresh:            signed.Order.Nonce.Cmp(last) > 0,
		LastNonce:             last.String(),
	}, nil
}

// consumeNonce advances the signer's ledger entry to nonce, which must be
// strictly greater than the last one consumed. The entry is created first
// and then read under a row lock, so concurrent writers for one signer
// queue on the same row.
func (s *ExchangeService) consumeNonce(ctx context.Context, signer common.Address, nonce *big.Int) error {
	db := s.ledger.DB(ctx)

	seed := models.NonceRecord{Signer: signer, LastNonce: models.NewUint256(new(big.Int))}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return fmt.Errorf("failed to create nonce entry: %w", err)
	}

	var record models.NonceRecord
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("signer = ?", signer).
		First(&record).Error
	if err != nil {
		return fmt.Errorf("failed to lock nonce entry: %w", err)
	}

	last := record.LastNonce.Big()
	if nonce.Cmp(last) <= 0 {
		return fmt.Errorf("%w: nonce %s for %s, last used %s", models.ErrReplayedNonce, nonce, signer.Hex(), last)
	}

	err = db.Model(&models.NonceRecord{}).
		Where("signer = ?", signer).
		Updates(map[string]interface{}{
			"last_nonce": models.NewUint256(nonce),
			"updated_at": time.Now(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to update nonce: %w", err)
	}
	return nil
}

func (s *ExchangeService) ApproveOrder(ctx context.Context, caller, marketplace common.Address, index uint64) (*models.Order, error) {
	return s.decide(ctx, caller, marketplace, index, models.OrderStatusApproved)
}

func (s *ExchangeService) RejectOrder(ctx context.Context, caller, marketplace common.Address, index uint64) (*models.Order, error) {
	return s.decide(ctx, caller, marketplace, index, models.OrderStatusRejected)
}

func (s *ExchangeService) decide(ctx context.Context, caller, marketplace common.Address, index uint64, status models.OrderStatus) (*models.Order, error) {
	var order *models.Order
	err := s.ledger.Execute(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.OrderAtIndex(ctx, marketplace, index)
		if errors.Is(err, models.ErrNotFound) {
			return fmt.Errorf("%w: no order %d for marketplace %s", models.ErrInvalidState, index, marketplace.Hex())
		}
		if err != nil {
			return err
		}

		holder, err := s.rightsHolder(ctx, order)
		if err != nil {
			return err
		}
		if holder != caller {
			return fmt.Errorf("%w: caller is not the rights holder", models.ErrUnauthorized)
		}

		if order.Status != models.OrderStatusPending {
			return fmt.Errorf("%w: order is %s", models.ErrInvalidState, order.Status)
		}

		now := time.Now().UTC()
		order.Status = status
		order.DecidedBy = caller
		order.DecidedAt = &now
		return s.ledger.DB(ctx).Model(order).Updates(map[string]interface{}{
			"status":     status,
			"decided_by": caller,
			"decided_at": now,
		}).Error
	})

	if s.metrics != nil {
		s.metrics.ObserveDecision(status.String(), Outcome(err))
	}
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"marketplace": marketplace.Hex(),
		"order_index": index,
		"status":      status.String(),
		"decided_by":  caller.Hex(),
	}).Info("Order decided")
	s.notify(ctx, order, true)
	return order, nil
}

// rightsHolder resolves the owner of the order's IP asset through the
// organisation's ip-type token. An unresolvable holder means nobody may
// decide the order.
func (s *ExchangeService) rightsHolder(ctx context.Context, order *models.Order) (common.Address, error) {
	ipType, err := s.ipTypes.IPTypeAtIndex(ctx, order.OrganisationIndex, order.IPTypeIndex)
	if err != nil {
		return common.Address{}, unresolvedHolder(err)
	}
	token, err := s.tokens.Resolve(ctx, ipType.TokenAddress)
	if err != nil {
		return common.Address{}, unresolvedHolder(err)
	}
	owner, err := token.OwnerOf(ctx, order.IPIndex.Big())
	if err != nil {
		return common.Address{}, unresolvedHolder(err)
	}
	return owner, nil
}

func unresolvedHolder(err error) error {
	if errors.Is(err, models.ErrNotFound) {
		return fmt.Errorf("%w: rights holder unresolved: %v", models.ErrUnauthorized, err)
	}
	return err
}

func (s *ExchangeService) notify(ctx context.Context, order *models.Order, decided bool) {
	if s.notifier == nil {
		return
	}
	if decided {
		s.notifier.OrderDecided(ctx, order)
		return
	}
	s.notifier.OrderSubmitted(ctx, order)
}

func (s *ExchangeService) OrderAtIndex(ctx context.Context, marketplace common.Address, index uint64) (*models.Order, error) {
	var order models.Order
	err := s.ledger.DB(ctx).
		Where("marketplace_address = ? AND order_index = ?", marketplace, index).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d for marketplace %s", models.ErrNotFound, index, marketplace.Hex())
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &order, nil
}

func (s *ExchangeService) OrderPaymentAtIndex(ctx context.Context, marketplace common.Address, index uint64) (*models.OrderPayment, error) {
	order, err := s.OrderAtIndex(ctx, marketplace, index)
	if err != nil {
		return nil, err
	}
	payment := order.Payment()
	return &payment, nil
}

func (s *ExchangeService) OrderSigAtIndex(ctx context.Context, marketplace common.Address, index uint64) (*models.OrderSignature, error) {
	order, err := s.OrderAtIndex(ctx, marketplace, index)
	if err != nil {
		return nil, err
	}
	sig := order.Signature()
	return &sig, nil
}

func (s *ExchangeService) OrderStatusAtIndex(ctx context.Context, marketplace common.Address, index uint64) (models.OrderStatus, error) {
	order, err := s.OrderAtIndex(ctx, marketplace, index)
	if err != nil {
		return 0, err
	}
	return order.Status, nil
}

func (s *ExchangeService) OrderCount(ctx context.Context, marketplace common.Address) (int64, error) {
	var count int64
	if err := s.ledger.DB(ctx).Model(&models.Order{}).
		Where("marketplace_address = ?", marketplace).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return count, nil
}

func (s *ExchangeService) List(ctx context.Context, marketplace common.Address, params utils.PaginationParams) ([]models.Order, int64, error) {
	total, err := s.OrderCount(ctx, marketplace)
	if err != nil {
		return nil, 0, err
	}

	var orders []models.Order
	query := s.ledger.DB(ctx).Where("marketplace_address = ?", marketplace)
	query = utils.ApplySort(query, params, []string{"order_index", "created_at", "status"})
	if err := utils.ApplyPagination(query, params).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// LastNonce returns the highest nonce consumed for signer, zero if none.
func (s *ExchangeService) LastNonce(ctx context.Context, signer common.Address) (*big.Int, error) {
	var record models.NonceRecord
	if err := s.ledger.DB(ctx).Where("signer = ?", signer).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return new(big.Int), nil
		}
		return nil, fmt.Errorf("failed to read nonce: %w", err)
	}
	return record.LastNonce.Big(), nil
}

// Outcome labels an operation result for metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, models.ErrMalformedOrder):
		return "malformed"
	case errors.Is(err, models.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, models.ErrSignatureMismatch):
		return "signature_mismatch"
	case errors.Is(err, models.ErrUnknownMarketplace):
		return "unknown_marketplace"
	case errors.Is(err, models.ErrReplayedNonce):
		return "replayed_nonce"
	case errors.Is(err, models.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, models.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}
