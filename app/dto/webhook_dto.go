// Package dto contains Data Transfer Objects for API request and response structures
package dto

// PaymentEventPayload mirrors the payment provider's webhook body. Only the
// fields the activation flow needs are decoded; the raw body is persisted
// separately.
type PaymentEventPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			CustomerDetails struct {
				Email string `json:"email"`
			} `json:"customer_details"`
		} `json:"object"`
	} `json:"data"`
}

// WebhookAckResponse is the fast acknowledgement returned to the provider.
// Processing continues after the response is written.
type WebhookAckResponse struct {
	Message string `json:"message" example:"received"`
}
