package domain

import "time"

// Token is a bearer token issued by the identity provider.
// Tokens are replaced wholesale, never mutated.
type Token struct {
	// Value is the opaque access token.
	Value string

	// ExpiresAt is the server-authoritative expiry (issue time + expires_in).
	ExpiresAt time.Time
}

// IsZero reports whether no token has been issued.
func (t Token) IsZero() bool {
	return t.Value == ""
}

// ValidAt reports whether the token is usable at now with buffer to spare.
func (t Token) ValidAt(now time.Time, buffer time.Duration) bool {
	return t.Value != "" && now.Before(t.ExpiresAt.Add(-buffer))
}

// TimeUntilExpiry returns the remaining lifetime relative to now.
func (t Token) TimeUntilExpiry(now time.Time) time.Duration {
	return t.ExpiresAt.Sub(now)
}

// Masked returns a short, log-safe rendering of the token value.
func (t Token) Masked() string {
	if len(t.Value) <= 8 {
		return "****"
	}
	return t.Value[:4] + "…" + t.Value[len(t.Value)-4:]
}
