// internal/models/common.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Base model with common fields
type BaseModel struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (b *BaseModel) BeforeCreate(tx *gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// JSONB type for PostgreSQL
type JSONB map[string]interface{}

func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	}
	return nil
}

// Uint256 is an unsigned 256-bit integer stored as a decimal string and
// serialised to JSON as a quoted decimal.
type Uint256 struct {
	v *big.Int
}

func NewUint256(v *big.Int) Uint256 {
	if v == nil {
		return Uint256{v: new(big.Int)}
	}
	return Uint256{v: new(big.Int).Set(v)}
}

func Uint256FromUint64(v uint64) Uint256 {
	return Uint256{v: new(big.Int).SetUint64(v)}
}

// Big returns a copy of the value.
func (u Uint256) Big() *big.Int {
	if u.v == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(u.v)
}

func (u Uint256) Cmp(other Uint256) int {
	return u.Big().Cmp(other.Big())
}

func (u Uint256) String() string {
	return u.Big().String()
}

func (u Uint256) Value() (driver.Value, error) {
	return u.String(), nil
}

func (u *Uint256) Scan(value interface{}) error {
	var s string
	switch v := value.(type) {
	case nil:
		u.v = new(big.Int)
		return nil
	case string:
		s = v
	case []byte:
		s = string(v)
	case int64:
		u.v = big.NewInt(v)
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Uint256", value)
	}

	parsed, ok := new(big.Int).SetString(s, 10)
	if !ok || parsed.Sign() < 0 {
		return fmt.Errorf("invalid uint256 %q", s)
	}
	u.v = parsed
	return nil
}

func (u Uint256) MarshalJSON() ([]byte, error) {
	return json.Marshal(u.String())
}

func (u *Uint256) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("uint256 must be a quoted decimal: %w", err)
	}
	return u.Scan(s)
}

// Enums
type OrderStatus uint8

const (
	OrderStatusPending  OrderStatus = 1
	OrderStatusApproved OrderStatus = 2
	OrderStatusRejected OrderStatus = 3
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusPending:
		return "pending"
	case OrderStatusApproved:
		return "approved"
	case OrderStatusRejected:
		return "rejected"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

type OrderType uint8

const (
	OrderTypeSale       OrderType = 1
	OrderTypeLicense    OrderType = 2
	OrderTypeAssignment OrderType = 3
)

type PaymentCurrency uint8

const (
	PaymentCurrencyEther   PaymentCurrency = 1
	PaymentCurrencyERC20   PaymentCurrency = 2
	PaymentCurrencyERC721  PaymentCurrency = 3
	PaymentCurrencyERC1155 PaymentCurrency = 4
	PaymentCurrencyFiat    PaymentCurrency = 5
)

type Role string

const (
	RoleOwner  Role = "owner"
	RoleMember Role = "member"
)
