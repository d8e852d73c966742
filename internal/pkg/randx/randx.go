/*
Package randx provides generation of unique identifiers for chat records.
*/
package randx

import (
	"github.com/google/uuid"
)

// MessageID generates a UUID v4 string to identify a message.
func MessageID() string {
	return uuid.New().String()
}

// TypingID generates a UUID v4 string to identify a typing indicator.
func TypingID() string {
	return uuid.New().String()
}
