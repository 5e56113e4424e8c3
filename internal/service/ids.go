package service

import (
	"crypto/rand"
	"encoding/hex"
)

// newConversationID returns an opaque 32-hex token. No ownership semantics:
// whoever holds the id may append to the conversation.
func newConversationID() string {
	bytes := make([]byte, 16)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
