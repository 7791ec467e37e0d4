// Package keyring provides the secret store consulted for USE_KEYRING
// directives, and an age-encrypted vault file implementing it.
//
// Secrets are addressed by a namespace and a key. A directive of the form
// USE_KEYRING on variable OS_PASSWORD in section [chicago] looks up
// namespace "chicago", key "OS_PASSWORD". The global form
// USE_KEYRING['my-password'] looks up namespace "my-password" with no key,
// which is stored under the reserved __global__ namespace.
package keyring

import (
	"errors"
	"fmt"
)

// GlobalNamespace holds secrets referenced without a section.
const GlobalNamespace = "__global__"

var (
	// ErrSecretNotFound is returned when no secret is stored for the requested entry.
	ErrSecretNotFound = errors.New("secret not found")
	// ErrStoreUnavailable is returned when a secret is needed but no store is configured.
	ErrStoreUnavailable = errors.New("secret store unavailable")
)

// Store resolves secrets. An empty key selects the global namespace, with
// namespace used as the identifier.
type Store interface {
	GetSecret(namespace, key string) (string, error)
}

// Writer persists secrets.
type Writer interface {
	SetSecret(namespace, key, value string) error
}

// EntryName returns the canonical "namespace:key" name of an entry.
func EntryName(namespace, key string) string {
	if key == "" {
		return GlobalNamespace + ":" + namespace
	}
	return namespace + ":" + key
}

func notFound(namespace, key string) error {
	if key == "" {
		return fmt.Errorf("%w: no global variable '%s' exists in keyring (use hubble-keyring --set %s)",
			ErrSecretNotFound, namespace, namespace)
	}
	return fmt.Errorf("%w: no variable '%s' in environment [%s] exists in keyring (use hubble-keyring --set %s %s)",
		ErrSecretNotFound, key, namespace, namespace, key)
}
