package domain

import "strings"

// Credentials identify this client to the OAuth2 identity provider.
// They are immutable once constructed.
type Credentials struct {
	// ClientID is the OAuth2 client identifier.
	ClientID string

	// ClientSecret is the OAuth2 client secret.
	ClientSecret string

	// Scopes are requested in order, space-joined on the wire.
	Scopes []string
}

// NewCredentials copies scopes so later mutation of the caller's slice has no effect.
func NewCredentials(clientID, clientSecret string, scopes []string) Credentials {
	return Credentials{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Scopes:       append([]string(nil), scopes...),
	}
}

// Validate checks that both halves of the client pair are present.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return &InvalidArgumentError{Arg: "client_id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return &InvalidArgumentError{Arg: "client_secret", Reason: "must not be empty"}
	}
	return nil
}

// Scope returns the space-joined scope string.
func (c Credentials) Scope() string {
	return strings.Join(c.Scopes, " ")
}

// MaskedSecret returns the secret with all but the last four characters hidden.
func (c Credentials) MaskedSecret() string {
	if len(c.ClientSecret) <= 4 {
		return strings.Repeat("*", len(c.ClientSecret))
	}
	return strings.Repeat("*", len(c.ClientSecret)-4) + c.ClientSecret[len(c.ClientSecret)-4:]
}
