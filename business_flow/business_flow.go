// Package businessflow contains the business logic for the application.
package businessflow

import (
	"time"

	"github.com/Icekid35/elementor-node-backend/app/dto"
	"github.com/Icekid35/elementor-node-backend/models"
)

type contextKey string

// RequestIDKey carries the inbound request ID into flow contexts; the
// handlers set it and audit records pick it up.
const RequestIDKey contextKey = "request_id"

// ClientMetadata holds all client-related information for audit logging
type ClientMetadata struct {
	IPAddress  string            `json:"ip_address"`
	UserAgent  string            `json:"user_agent"`
	RequestID  string            `json:"request_id,omitempty"`
	Additional map[string]string `json:"additional,omitempty"`
}

// NewClientMetadata creates a new ClientMetadata instance with basic information
func NewClientMetadata(ipAddress, userAgent string) *ClientMetadata {
	return &ClientMetadata{
		IPAddress:  ipAddress,
		UserAgent:  userAgent,
		Additional: make(map[string]string),
	}
}

// AddAdditional adds additional custom information to the metadata
func (cm *ClientMetadata) AddAdditional(key, value string) {
	if cm.Additional == nil {
		cm.Additional = make(map[string]string)
	}
	cm.Additional[key] = value
}

// SetRequestID sets the request ID
func (cm *ClientMetadata) SetRequestID(requestID string) {
	cm.RequestID = requestID
}

// ToAccountDTO converts an account model to AccountDTO for API responses
func ToAccountDTO(account models.Account) dto.AccountDTO {
	d := dto.AccountDTO{
		ID:            account.ID,
		UUID:          account.UUID.String(),
		BusinessEmail: account.BusinessEmail,
		AccountType:   account.AccountType.TypeName,
		Active:        account.IsActive(),
		CreatedAt:     account.CreatedAt.Format(time.RFC3339),
	}

	if len(account.Profile) > 0 {
		d.Profile = account.Profile
	}
	if account.ActivatedAt != nil {
		activatedAt := account.ActivatedAt.Format(time.RFC3339)
		d.ActivatedAt = &activatedAt
	}

	return d
}
