package procurement

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"time"
)

const tokenBytes = 32

// GenerateVendorToken returns a fresh single-use token and the digest under
// which it is persisted. The plain token is shown to the vendor exactly once.
func GenerateVendorToken() (plain, hash string, err error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("procurement: generate token: %w", err)
	}
	plain = base64.RawURLEncoding.EncodeToString(buf)
	return plain, HashVendorToken(plain), nil
}

// HashVendorToken derives the stored digest for a plain token.
func HashVendorToken(plain string) string {
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:])
}

// NewVendorToken binds a generated token to a purchase order with an expiry.
func NewVendorToken(poID int64, hash string, ttl time.Duration, now time.Time) VendorToken {
	return VendorToken{
		POID:      poID,
		TokenHash: hash,
		ExpiresAt: now.Add(ttl),
	}
}

// Consume marks the token redeemed with the vendor's decision. A consumed or
// expired token always fails, so duplicate submissions can never succeed twice.
func (t *VendorToken) Consume(accepted bool, notes string, now time.Time) error {
	if !t.Live(now) {
		return ErrTokenInvalid
	}
	t.ConsumedAt = &now
	t.Accepted = &accepted
	t.Notes = notes
	return nil
}
