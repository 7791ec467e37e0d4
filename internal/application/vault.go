package application

import (
	"fmt"
	"sync"

	"github.com/eugenenazirov/hubble/internal/config"
	"github.com/eugenenazirov/hubble/internal/keyring"
)

// PassphrasePrompt asks the user for the vault passphrase.
type PassphrasePrompt func() (string, error)

// OpenVault opens the vault described by cfg. An identity file takes
// precedence over a passphrase; prompt is consulted when neither is set and
// may be nil.
func OpenVault(cfg config.VaultConfig, prompt PassphrasePrompt) (*keyring.Vault, error) {
	if cfg.Identity != "" {
		return keyring.NewIdentityVault(cfg.Path, cfg.Identity)
	}

	passphrase := cfg.Passphrase
	if passphrase == "" && prompt != nil {
		var err error
		if passphrase, err = prompt(); err != nil {
			return nil, err
		}
	}
	if passphrase == "" {
		return nil, fmt.Errorf("%w: set vault.identity or HUBBLE_VAULT_PASSPHRASE to open %s",
			keyring.ErrStoreUnavailable, cfg.Path)
	}
	return keyring.NewPassphraseVault(cfg.Path, passphrase, 0)
}

// lazyStore defers opening the vault until a USE_KEYRING directive needs it,
// so invocations without secrets never prompt.
type lazyStore struct {
	open func() (keyring.Store, error)

	once  sync.Once
	store keyring.Store
	err   error
}

func (l *lazyStore) GetSecret(namespace, key string) (string, error) {
	l.once.Do(func() {
		l.store, l.err = l.open()
	})
	if l.err != nil {
		return "", l.err
	}
	return l.store.GetSecret(namespace, key)
}
