// Package auth implements the device-flow AuthCoordinator
// and its backing KeyStore, the Go port of
// maguffin-app/src-tauri/src/keyring/mod.rs over
// github.com/zalando/go-keyring, the platform-native secret store every OS
// the desktop client targets already exposes (Keychain, Credential
// Manager, Secret Service).
package auth

import (
	"github.com/zalando/go-keyring"
)

const defaultService = "maguffin-app"

// KeyStore stores a single provider token per account under a named
// service, backed by the OS keyring.
type KeyStore struct {
	service string
}

// NewKeyStore returns a KeyStore under the default service name.
func NewKeyStore() *KeyStore {
	return &KeyStore{service: defaultService}
}

// NewKeyStoreWithService returns a KeyStore under a custom service name,
// useful for tests that must not touch the real "maguffin-app" entries.
func NewKeyStoreWithService(service string) *KeyStore {
	return &KeyStore{service: service}
}

// StoreToken persists a token under the given account (e.g. "github").
func (k *KeyStore) StoreToken(account, token string) error {
	if err := keyring.Set(k.service, account, token); err != nil {
		return &KeyringError{Msg: "failed to store token", Cause: err}
	}
	return nil
}

// GetToken returns the stored token, or ("", false, nil) if none exists.
func (k *KeyStore) GetToken(account string) (string, bool, error) {
	token, err := keyring.Get(k.service, account)
	if err != nil {
		if err == keyring.ErrNotFound {
			return "", false, nil
		}
		return "", false, &KeyringError{Msg: "failed to read token", Cause: err}
	}
	return token, true, nil
}

// DeleteToken removes a stored token; deleting an absent token is not an
// error.
func (k *KeyStore) DeleteToken(account string) error {
	if err := keyring.Delete(k.service, account); err != nil {
		if err == keyring.ErrNotFound {
			return nil
		}
		return &KeyringError{Msg: "failed to delete token", Cause: err}
	}
	return nil
}

// HasToken reports whether a token is stored, without exposing its value;
// used by Coordinator.RestoreAuth to skip a network call when nothing is
// stored, per original_source's keyring/mod.rs has_token.
func (k *KeyStore) HasToken(account string) (bool, error) {
	_, ok, err := k.GetToken(account)
	return ok, err
}
