// Package utils provides utility functions for the application.
package utils

import "strings"

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// NormalizeEmail lower-cases and trims an email address. Every lookup and
// storage write must go through this, otherwise the global uniqueness
// invariant on business_email silently breaks.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
