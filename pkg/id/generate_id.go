// Package id issues opaque public identifiers for API-facing entities.
package id

import (
	"crypto/rand"
	"encoding/hex"
)

// NewID32 returns a random 128-bit identifier rendered as 32 lowercase hex
// characters. Evaluations, loans and repayment records all use it as their
// public id; database row ids never leave the service.
func NewID32() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
