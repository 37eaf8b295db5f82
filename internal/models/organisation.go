// internal/models/organisation.go
package models

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Organisation indices are assigned sequentially from zero and never reused.
type Organisation struct {
	OrgIndex   uint64         `json:"index" gorm:"primaryKey;autoIncrement:false"`
	Name       string         `json:"name" gorm:"size:255;not null"`
	WebsiteURL string         `json:"website_url" gorm:"size:500"`
	CreatedBy  common.Address `json:"created_by"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`

	// Relationships
	Admins  []OrganisationAdmin `json:"admins,omitempty" gorm:"foreignKey:OrgIndex;references:OrgIndex"`
	IPTypes []IPType            `json:"ip_types,omitempty" gorm:"foreignKey:OrgIndex;references:OrgIndex"`
}

type OrganisationAdmin struct {
	BaseModel
	OrgIndex     uint64         `json:"organisation_index" gorm:"not null;uniqueIndex:idx_org_admin"`
	Address      common.Address `json:"address" gorm:"not null;uniqueIndex:idx_org_admin"`
	AuthorisedBy common.Address `json:"authorised_by"`
}

// IPType routes a named class of right within an organisation to the
// rights-token contract that tracks it.
type IPType struct {
	BaseModel
	OrgIndex     uint64         `json:"organisation_index" gorm:"not null;uniqueIndex:idx_org_type;uniqueIndex:idx_org_type_name"`
	TypeIndex    uint64         `json:"index" gorm:"not null;uniqueIndex:idx_org_type"`
	Name         string         `json:"name" gorm:"size:255;not null;uniqueIndex:idx_org_type_name"`
	TokenAddress common.Address `json:"token_address" gorm:"not null"`
	AddedBy      common.Address `json:"added_by"`
}
