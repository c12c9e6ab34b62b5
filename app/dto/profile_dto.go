package dto

// GetProfileResponse wraps a single account profile
type GetProfileResponse struct {
	Message string     `json:"message"`
	Account AccountDTO `json:"account"`
}

// UpdateProfileRequest represents a profile update. The business email and
// account type identify the account; neither can be changed here.
type UpdateProfileRequest struct {
	BusinessEmail string         `json:"business_email" validate:"required,email,max=255"`
	AccountType   string         `json:"account_type" validate:"required,oneof=company self_employed"`
	Updates       map[string]any `json:"updates" validate:"required,min=1"`
}

// DeleteAccountRequest identifies the account to remove
type DeleteAccountRequest struct {
	BusinessEmail string `json:"business_email" validate:"required,email,max=255"`
	AccountType   string `json:"account_type" validate:"required,oneof=company self_employed"`
}

// AccountListResponse returns every account partitioned by kind
type AccountListResponse struct {
	Message      string       `json:"message"`
	Companies    []AccountDTO `json:"companies"`
	SelfEmployed []AccountDTO `json:"self_employed"`
}
