package keyring

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"sync"

	"filippo.io/age"
	"gopkg.in/yaml.v3"
)

// Vault is a Store backed by a single age-encrypted YAML file. The file is
// decrypted on first use and rewritten atomically on every SetSecret.
type Vault struct {
	path       string
	identities []age.Identity
	recipients []age.Recipient

	mu      sync.Mutex
	loaded  bool
	entries map[string]string
}

type vaultFile struct {
	Entries map[string]string `yaml:"entries"`
}

// NewVault returns a vault that decrypts with identity and encrypts to recipient.
func NewVault(path string, identity age.Identity, recipient age.Recipient) *Vault {
	return &Vault{
		path:       path,
		identities: []age.Identity{identity},
		recipients: []age.Recipient{recipient},
	}
}

// NewPassphraseVault returns a vault sealed with an scrypt passphrase.
// workFactor is the scrypt log2(N); zero keeps the age default.
func NewPassphraseVault(path, passphrase string, workFactor int) (*Vault, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("vault passphrase must not be empty")
	}
	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return nil, fmt.Errorf("create scrypt recipient: %w", err)
	}
	if workFactor > 0 {
		recipient.SetWorkFactor(workFactor)
	}
	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("create scrypt identity: %w", err)
	}
	return NewVault(path, identity, recipient), nil
}

// NewIdentityVault returns a vault sealed to the X25519 identities found in
// identityFile (the format written by age-keygen).
func NewIdentityVault(path, identityFile string) (*Vault, error) {
	f, err := os.Open(identityFile)
	if err != nil {
		return nil, fmt.Errorf("open identity file: %w", err)
	}
	defer f.Close()

	identities, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse identity file %s: %w", identityFile, err)
	}

	v := &Vault{path: path, identities: identities}
	for _, identity := range identities {
		if x, ok := identity.(*age.X25519Identity); ok {
			v.recipients = append(v.recipients, x.Recipient())
		}
	}
	if len(v.recipients) == 0 {
		return nil, fmt.Errorf("identity file %s contains no X25519 identity", identityFile)
	}
	return v, nil
}

// Path returns the location of the vault file.
func (v *Vault) Path() string {
	return v.path
}

// GetSecret implements Store.
func (v *Vault) GetSecret(namespace, key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.load(); err != nil {
		return "", err
	}
	value, ok := v.entries[EntryName(namespace, key)]
	if !ok {
		return "", notFound(namespace, key)
	}
	return value, nil
}

// SetSecret implements Writer.
func (v *Vault) SetSecret(namespace, key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := v.load(); err != nil {
		return err
	}
	entries := make(map[string]string, len(v.entries)+1)
	maps.Copy(entries, v.entries)
	entries[EntryName(namespace, key)] = value

	if err := v.save(entries); err != nil {
		return err
	}
	v.entries = entries
	return nil
}

func (v *Vault) load() error {
	if v.loaded {
		return nil
	}

	f, err := os.Open(v.path)
	if errors.Is(err, os.ErrNotExist) {
		v.entries = map[string]string{}
		v.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}
	defer f.Close()

	reader, err := age.Decrypt(f, v.identities...)
	if err != nil {
		return fmt.Errorf("decrypt vault %s: %w", v.path, err)
	}
	plaintext, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("read vault %s: %w", v.path, err)
	}

	var contents vaultFile
	if err := yaml.Unmarshal(plaintext, &contents); err != nil {
		return fmt.Errorf("parse vault %s: %w", v.path, err)
	}
	if contents.Entries == nil {
		contents.Entries = map[string]string{}
	}

	v.entries = contents.Entries
	v.loaded = true
	return nil
}

func (v *Vault) save(entries map[string]string) error {
	plaintext, err := yaml.Marshal(vaultFile{Entries: entries})
	if err != nil {
		return fmt.Errorf("encode vault: %w", err)
	}

	var ciphertext bytes.Buffer
	writer, err := age.Encrypt(&ciphertext, v.recipients...)
	if err != nil {
		return fmt.Errorf("create age encryptor: %w", err)
	}
	if _, err := writer.Write(plaintext); err != nil {
		return fmt.Errorf("write vault plaintext: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finalize vault encryption: %w", err)
	}

	dir := filepath.Dir(v.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create vault directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".vault-*")
	if err != nil {
		return fmt.Errorf("create temporary vault file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod vault: %w", err)
	}
	if _, err := tmp.Write(ciphertext.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close vault: %w", err)
	}
	if err := os.Rename(tmp.Name(), v.path); err != nil {
		return fmt.Errorf("replace vault: %w", err)
	}
	return nil
}
