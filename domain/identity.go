// Package domain contains core concepts of the chat desk.
// This file defines the anonymous Identity a conversation belongs to.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is one anonymous participant, recognized by its AnonymousKey.
type Identity struct {
	ID            uint64
	AnonymousKey  string
	ClientAddress string
	CreatedAt     time.Time
}

// AnonymousKey derives the stable fingerprint of a visitor as a name-based (v5) UUID
// over "address:agent". Same inputs always give the same key.
func AnonymousKey(clientAddress, agent string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(clientAddress+":"+agent)).String()
}

// Session is the result of resolving a request to an Identity.
type Session struct {
	Identity Identity
	Token    string
	Created  bool
}
