// internal/models/registry.go
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type RegistryKind string

const (
	RegistryKindAddress RegistryKind = "address"
	RegistryKindUint    RegistryKind = "uint"
	RegistryKindBool    RegistryKind = "bool"
	RegistryKindBytes32 RegistryKind = "bytes32"
)

type RegistryEntry struct {
	Key       common.Hash  `json:"key" gorm:"column:registry_key;primaryKey"`
	Kind      RegistryKind `json:"kind" gorm:"type:varchar(16);not null"`
	Value     string       `json:"value" gorm:"size:80;not null"`
	UpdatedAt time.Time    `json:"updated_at"`
}
