// Package identity holds the user identity model.
package identity

import (
	"fmt"
	"strings"

	"github.com/caadev/tutortrainer/internal/domain"
)

// User maps a human username to a stable numeric identifier.
// Created on first sight; immutable thereafter.
type User struct {
	ID       int    `json:"user_id"`
	Username string `json:"username"`
}

// ID bounds for generated user identifiers. The original deployment issued
// 3-digit ids and existing records depend on that range.
const (
	MinUserID = 100
	MaxUserID = 999
)

// ValidateUsername rejects empty or whitespace-only usernames.
func ValidateUsername(username string) error {
	if strings.TrimSpace(username) == "" {
		return fmt.Errorf("username is required: %w", domain.ErrValidation)
	}
	return nil
}
