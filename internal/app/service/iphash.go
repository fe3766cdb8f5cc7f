package service

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// IPHasher one-way hashes visitor IPs. Clicks never store the address
// in the clear; equality of hashes still supports abuse queries.
type IPHasher struct {
	secret []byte
}

// NewIPHasher returns a keyed hasher. The secret must stay stable or
// historical equality queries break.
func NewIPHasher(secret string) *IPHasher {
	return &IPHasher{secret: []byte(secret)}
}

// Hash returns the hex HMAC-SHA256 of the address.
func (h *IPHasher) Hash(ip string) string {
	mac := hmac.New(sha256.New, h.secret)
	mac.Write([]byte(ip))
	return hex.EncodeToString(mac.Sum(nil))
}
