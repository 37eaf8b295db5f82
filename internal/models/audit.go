// internal/models/audit.go
package models

type AuditLog struct {
	BaseModel
	Caller       string `json:"caller" gorm:"size:42;index"`
	Action       string `json:"action" gorm:"size:100;not null;index"`
	ResourceType string `json:"resource_type" gorm:"size:50;not null;index"`
	Status       int    `json:"status"`
	RequestID    string `json:"request_id" gorm:"size:64"`
	NewValues    JSONB  `json:"new_values" gorm:"type:jsonb"`
	IPAddress    string `json:"ip_address" gorm:"size:45"`
	UserAgent    string `json:"user_agent" gorm:"type:text"`
}
