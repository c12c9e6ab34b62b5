// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for account login
type LoginRequest struct {
	BusinessEmail string `json:"business_email" validate:"required,email,max=255" example:"owner@acme.com"`
	Password      string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123!"`
}

// LoginResponse represents the successful login response
type LoginResponse struct {
	Message      string     `json:"message"`
	Account      AccountDTO `json:"user"`
	AccountType  string     `json:"type"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type" example:"Bearer"`
	ExpiresIn    int        `json:"expires_in" example:"86400"`
}

// ErrorInvalidCredentials is the error code returned for any failed login;
// unknown emails and wrong passwords share it deliberately.
const ErrorInvalidCredentials = "INVALID_CREDENTIALS"
