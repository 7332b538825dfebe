package util

import "github.com/google/uuid"

// NewID generates a unique identifier for conversations, turns and audit
// correlation.
func NewID() string {
	return uuid.NewString()
}
