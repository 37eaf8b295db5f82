// internal/models/marketplace.go
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

type Marketplace struct {
	MktIndex          uint64         `json:"index" gorm:"primaryKey;autoIncrement:false"`
	Name              string         `json:"name" gorm:"size:255;not null"`
	Website           string         `json:"website" gorm:"size:500"`
	Address           common.Address `json:"address" gorm:"not null;uniqueIndex"`
	OrganisationIndex uint64         `json:"organisation_index" gorm:"not null;index"`
	RegisteredBy      common.Address `json:"registered_by"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
}
