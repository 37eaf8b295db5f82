// internal/services/token_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/civicledger/IPRx-Core/internal/database"
	"github.com/civicledger/IPRx-Core/internal/models"
	"github.com/civicledger/IPRx-Core/internal/utils"
)

// RightsToken answers ownership questions for one admitted token.
type RightsToken interface {
	OwnerOf(ctx context.Context, ipIndex *big.Int) (common.Address, error)
}

// TokenService is the in-ledger rights token. Token contracts are admitted
// by the owner through the registry flag table; anyone may then claim the
// next IP index under an admitted token.
type TokenService struct {
	ledger   *database.Ledger
	registry *RegistryService
	owner    common.Address
}

type RegisterTokenRequest struct {
	Name    string `json:"name" validate:"required,max=255"`
	Address string `json:"address" validate:"required,eth_addr"`
}

func NewTokenService(ledger *database.Ledger, registry *RegistryService, owner common.Address) *TokenService {
	return &TokenService{
		ledger:   ledger,
		registry: registry,
		owner:    owner,
	}
}

// Register admits a token contract. Owner only.
func (s *TokenService) Register(ctx context.Context, caller common.Address, req *RegisterTokenRequest) (common.Address, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return common.Address{}, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if caller != s.owner {
		return common.Address{}, fmt.Errorf("%w: only the owner can register tokens", models.ErrUnauthorized)
	}
	if IsCoreComponent(req.Name) {
		return common.Address{}, fmt.Errorf("%w: %q is a reserved component name", models.ErrInvalidInput, req.Name)
	}

	token := common.HexToAddress(req.Address)
	if err := s.registry.RegisterComponent(ctx, req.Name, token); err != nil {
		return common.Address{}, err
	}

	logrus.WithFields(logrus.Fields{
		"name":  req.Name,
		"token": token.Hex(),
	}).Info("Rights token registered")
	return token, nil
}

// Claim assigns the next IP index under token to caller. The first claim
// of a token is index 1.
func (s *TokenService) Claim(ctx context.Context, caller common.Address, token common.Address) (*models.IPClaim, error) {
	var claim models.IPClaim
	err := s.ledger.Execute(ctx, func(ctx context.Context) error {
		if err := s.requireAdmitted(ctx, token); err != nil {
			return err
		}

		db := s.ledger.DB(ctx)

		var count int64
		if err := db.Model(&models.IPClaim{}).Where("token_address = ?", token).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count claims: %w", err)
		}

		claim = models.IPClaim{
			TokenAddress: token,
			IPIndex:      uint64(count) + 1,
			Owner:        caller,
		}
		if err := db.Create(&claim).Error; err != nil {
			return fmt.Errorf("failed to claim ip: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"token":    token.Hex(),
		"ip_index": claim.IPIndex,
		"owner":    caller.Hex(),
	}).Info("IP claimed")
	return &claim, nil
}

// SetLicensable flags whether an IP asset may be licensed. IP owner only.
func (s *TokenService) SetLicensable(ctx context.Context, caller common.Address, token common.Address, ipIndex *big.Int, licensable bool) error {
	return s.ledger.Execute(ctx, func(ctx context.Context) error {
		claim, err := s.claim(ctx, token, ipIndex)
		if err != nil {
			return err
		}
		if claim.Owner != caller {
			return fmt.Errorf("%w: only the ip owner can change licensing", models.ErrUnauthorized)
		}
		return s.ledger.DB(ctx).Model(claim).Update("licensable", licensable).Error
	})
}

func (s *TokenService) Exists(ctx context.Context, token common.Address, ipIndex *big.Int) (bool, error) {
	_, err := s.claim(ctx, token, ipIndex)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (s *TokenService) OwnerOf(ctx context.Context, token common.Address, ipIndex *big.Int) (common.Address, error) {
	claim, err := s.claim(ctx, token, ipIndex)
	if err != nil {
		return common.Address{}, err
	}
	return claim.Owner, nil
}

func (s *TokenService) Claimed(ctx context.Context, token common.Address, ipIndex *big.Int) (*models.IPClaim, error) {
	return s.claim(ctx, token, ipIndex)
}

// Resolve returns the rights token at an admitted address.
func (s *TokenService) Resolve(ctx context.Context, token common.Address) (RightsToken, error) {
	if err := s.requireAdmitted(ctx, token); err != nil {
		return nil, err
	}
	return &ledgerToken{svc: s, address: token}, nil
}

func (s *TokenService) requireAdmitted(ctx context.Context, token common.Address) error {
	admitted, err := s.registry.IsAuthorisedComponent(ctx, token)
	if err != nil {
		return err
	}
	if !admitted {
		return fmt.Errorf("%w: token %s is not registered", models.ErrNotFound, token.Hex())
	}
	return nil
}

func (s *TokenService) claim(ctx context.Context, token common.Address, ipIndex *big.Int) (*models.IPClaim, error) {
	if ipIndex == nil || ipIndex.Sign() <= 0 || !ipIndex.IsUint64() {
		return nil, fmt.Errorf("%w: ip %v under token %s", models.ErrNotFound, ipIndex, token.Hex())
	}

	var claim models.IPClaim
	err := s.ledger.DB(ctx).
		Where("token_address = ? AND ip_index = ?", token, ipIndex.Uint64()).
		First(&claim).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: ip %s under token %s", models.ErrNotFound, ipIndex, token.Hex())
		}
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &claim, nil
}

type ledgerToken struct {
	svc     *TokenService
	address common.Address
}

func (t *ledgerToken) OwnerOf(ctx context.Context, ipIndex *big.Int) (common.Address, error) {
	return t.svc.OwnerOf(ctx, t.address, ipIndex)
}
