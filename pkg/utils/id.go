package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new random record id. The web application accepts any
// unique string; uuid v4 avoids coordination with it.
func GenerateID() string {
	return uuid.NewString()
}

// IsValidUUID checks if the string is a valid UUID
func IsValidUUID(u string) bool {
	_, err := uuid.Parse(u)
	return err == nil
}
