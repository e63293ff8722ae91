package driven

// SecretStore keeps the OAuth2 client secret out of the config file.
type SecretStore interface {
	// Get returns the secret for clientID, or domain.ErrNotFound.
	Get(clientID string) (string, error)

	// Set stores the secret for clientID.
	Set(clientID, secret string) error

	// Delete removes the secret for clientID. Missing entries are not an error.
	Delete(clientID string) error
}
