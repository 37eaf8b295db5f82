// internal/services/registry_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/crypto/sha3"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/civicledger/IPRx-Core/internal/database"
	"github.com/civicledger/IPRx-Core/internal/models"
)

// Registry key categories
const (
	KeyContractName    = "contract.name"
	KeyContractAddress = "contract.address"
)

// Core component names used for discovery.
const (
	ComponentOrganisations = "IPOrganisations"
	ComponentMarketplaces  = "Marketplaces"
	ComponentExchange      = "Exchange"
)

var coreComponents = []string{ComponentOrganisations, ComponentMarketplaces, ComponentExchange}

// IsCoreComponent reports whether name is reserved for a core component.
func IsCoreComponent(name string) bool {
	for _, core := range coreComponents {
		if name == core {
			return true
		}
	}
	return false
}

// RegistryService is the shared typed key/value store used for component
// discovery and as a flag table. It has no access control of its own.
type RegistryService struct {
	ledger *database.Ledger
}

func NewRegistryService(ledger *database.Ledger) *RegistryService {
	return &RegistryService{ledger: ledger}
}

// Key hashes the tightly packed parts with keccak256. Strings and byte
// slices are packed raw, addresses as 20 bytes and integers as 32-byte words.
func Key(parts ...interface{}) common.Hash {
	h := sha3.NewLegacyKeccak256()
	for _, p := range parts {
		switch v := p.(type) {
		case string:
			h.Write([]byte(v))
		case []byte:
			h.Write(v)
		case common.Address:
			h.Write(v.Bytes())
		case common.Hash:
			h.Write(v.Bytes())
		case uint64:
			h.Write(common.LeftPadBytes(new(big.Int).SetUint64(v).Bytes(), 32))
		case int:
			h.Write(common.LeftPadBytes(big.NewInt(int64(v)).Bytes(), 32))
		case *big.Int:
			h.Write(common.LeftPadBytes(v.Bytes(), 32))
		case bool:
			if v {
				h.Write([]byte{1})
			} else {
				h.Write([]byte{0})
			}
		default:
			panic(fmt.Sprintf("registry key part of unsupported type %T", p))
		}
	}
	return common.BytesToHash(h.Sum(nil))
}

// ComponentAddress derives a stable address for a named core component.
func ComponentAddress(name string) common.Address {
	return common.BytesToAddress(Key("iprx.component", name).Bytes()[12:])
}

func (s *RegistryService) SetAddress(ctx context.Context, key common.Hash, value common.Address) error {
	return s.set(ctx, key, models.RegistryKindAddress, value.Hex())
}

func (s *RegistryService) GetAddress(ctx context.Context, key common.Hash) (common.Address, error) {
	raw, err := s.get(ctx, key, models.RegistryKindAddress)
	if err != nil || raw == "" {
		return common.Address{}, err
	}
	return common.HexToAddress(raw), nil
}

func (s *RegistryService) SetUint(ctx context.Context, key common.Hash, value *big.Int) error {
	if value == nil || value.Sign() < 0 {
		return fmt.Errorf("%w: registry uint must be non-negative", models.ErrInvalidInput)
	}
	return s.set(ctx, key, models.RegistryKindUint, value.String())
}

func (s *RegistryService) GetUint(ctx context.Context, key common.Hash) (*big.Int, error) {
	raw, err := s.get(ctx, key, models.RegistryKindUint)
	if err != nil || raw == "" {
		return new(big.Int), err
	}
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, fmt.Errorf("registry uint %s is corrupt", key.Hex())
	}
	return v, nil
}

func (s *RegistryService) SetBool(ctx context.Context, key common.Hash, value bool) error {
	return s.set(ctx, key, models.RegistryKindBool, strconv.FormatBool(value))
}

func (s *RegistryService) GetBool(ctx context.Context, key common.Hash) (bool, error) {
	raw, err := s.get(ctx, key, models.RegistryKindBool)
	if err != nil || raw == "" {
		return false, err
	}
	return strconv.ParseBool(raw)
}

func (s *RegistryService) SetBytes32(ctx context.Context, key common.Hash, value common.Hash) error {
	return s.set(ctx, key, models.RegistryKindBytes32, value.Hex())
}

func (s *RegistryService) GetBytes32(ctx context.Context, key common.Hash) (common.Hash, error) {
	raw, err := s.get(ctx, key, models.RegistryKindBytes32)
	if err != nil || raw == "" {
		return common.Hash{}, err
	}
	return common.HexToHash(raw), nil
}

// RegisterComponent publishes a component under its name-derived key and
// flags its address as an authorised component.
func (s *RegistryService) RegisterComponent(ctx context.Context, name string, addr common.Address) error {
	if name == "" || addr == (common.Address{}) {
		return fmt.Errorf("%w: component needs a name and a non-zero address", models.ErrInvalidInput)
	}
	return s.ledger.Execute(ctx, func(ctx context.Context) error {
		if err := s.SetAddress(ctx, Key(KeyContractName, name), addr); err != nil {
			return err
		}
		return s.SetBool(ctx, Key(KeyContractAddress, addr), true)
	})
}

// ComponentByName resolves a registered component. Unknown names fail
// with ErrNotFound.
func (s *RegistryService) ComponentByName(ctx context.Context, name string) (common.Address, error) {
	addr, err := s.GetAddress(ctx, Key(KeyContractName, name))
	if err != nil {
		return common.Address{}, err
	}
	if addr == (common.Address{}) {
		return common.Address{}, fmt.Errorf("%w: component %q", models.ErrNotFound, name)
	}
	return addr, nil
}

func (s *RegistryService) IsAuthorisedComponent(ctx context.Context, addr common.Address) (bool, error) {
	return s.GetBool(ctx, Key(KeyContractAddress, addr))
}

// RegisterCoreComponents publishes the directory and exchange components.
func (s *RegistryService) RegisterCoreComponents(ctx context.Context) error {
	return s.ledger.Execute(ctx, func(ctx context.Context) error {
		for _, name := range coreComponents {
			if err := s.RegisterComponent(ctx, name, ComponentAddress(name)); err != nil {
				return fmt.Errorf("register %s: %w", name, err)
			}
		}
		return nil
	})
}

func (s *RegistryService) set(ctx context.Context, key common.Hash, kind models.RegistryKind, value string) error {
	entry := models.RegistryEntry{Key: key, Kind: kind, Value: value}
	err := s.ledger.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "registry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"kind", "value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to write registry key %s: %w", key.Hex(), err)
	}
	return nil
}

// get returns "" for an absent key. A key holding another kind is an error.
func (s *RegistryService) get(ctx context.Context, key common.Hash, kind models.RegistryKind) (string, error) {
	var entry models.RegistryEntry
	if err := s.ledger.DB(ctx).Where("registry_key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read registry key %s: %w", key.Hex(), err)
	}
	if entry.Kind != kind {
		return "", fmt.Errorf("%w: registry key %s holds %s, not %s", models.ErrInvalidInput, key.Hex(), entry.Kind, kind)
	}
	return entry.Value, nil
}
