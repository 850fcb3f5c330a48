// Package utils provides small helpers shared across the service.
package utils

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewID generates a prefixed unique identifier, e.g. "rule-1b4e28ba-...".
func NewID(prefix string) string {
	if prefix == "" {
		return uuid.NewString()
	}
	return fmt.Sprintf("%s-%s", prefix, uuid.NewString())
}

// NewRequestID generates a request ID for tracing and correlation.
func NewRequestID() string {
	return fmt.Sprintf("req-%s-%d", uuid.NewString(), time.Now().Unix())
}
