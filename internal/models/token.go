// internal/models/token.go
package models

import (
	"github.com/ethereum/go-ethereum/common"
)

// IPClaim records ownership of one IP asset under a rights token.
type IPClaim struct {
	BaseModel
	TokenAddress common.Address `json:"token_address" gorm:"not null;uniqueIndex:idx_token_ip"`
	IPIndex      uint64         `json:"ip_index" gorm:"not null;uniqueIndex:idx_token_ip"`
	Owner        common.Address `json:"owner" gorm:"not null;index"`
	Licensable   bool           `json:"licensable" gorm:"default:false"`
}
