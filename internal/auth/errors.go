package auth

// OAuthFailedError covers device-flow failures (expired code, access
// denied, transport failures talking to the device/token endpoints).
type OAuthFailedError struct {
	Msg string
}

func (e *OAuthFailedError) Error() string { return "oauth failed: " + e.Msg }

// TokenExpiredError reports a token that the provider no longer accepts.
// RestoreAuth does not return it: a rejected stored token is deleted and the
// coordinator reverts to Unauthenticated.
type TokenExpiredError struct{}

func (e *TokenExpiredError) Error() string { return "stored token is no longer valid" }

// KeyringError wraps a platform secret-storage failure.
type KeyringError struct {
	Msg   string
	Cause error
}

func (e *KeyringError) Error() string { return "keyring: " + e.Msg }
func (e *KeyringError) Unwrap() error { return e.Cause }
