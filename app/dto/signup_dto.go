// Package dto contains Data Transfer Objects for API request and response structures
package dto

import "encoding/json"

// SignupRequest represents the signup form data for either account kind.
// The kind itself comes from the route, not the body.
type SignupRequest struct {
	BusinessEmail   string `json:"business_email" validate:"required,email,max=255"`
	Password        string `json:"password" validate:"required,min=8,max=100,password_strength"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`

	// Profile is an opaque bag of presentation fields (company name, trade
	// registry number, etc.); it is stored as-is.
	Profile map[string]any `json:"profile,omitempty" validate:"omitempty"`
}

// SignupResponse represents the response after successful signup
type SignupResponse struct {
	Message      string     `json:"message"`
	Account      AccountDTO `json:"account"`
	AccessToken  string     `json:"access_token"`
	RefreshToken string     `json:"refresh_token"`
	TokenType    string     `json:"token_type"`
	ExpiresIn    int        `json:"expires_in"`
}

// AccountDTO represents account data for API responses
type AccountDTO struct {
	ID            uint            `json:"id"`
	UUID          string          `json:"uuid"`
	BusinessEmail string          `json:"business_email"`
	AccountType   string          `json:"account_type"`
	Active        bool            `json:"active"`
	Profile       json.RawMessage `json:"profile,omitempty"`
	CreatedAt     string          `json:"created_at"`
	ActivatedAt   *string         `json:"activated_at,omitempty"`
}
