// Package cryptox implements the encryption primitives TaskVault relies on:
// argon2id master-key derivation, AES-GCM sealing of JSON payloads, and a
// per-owner keyring. Payloads are encrypted before they ever touch the
// local database or the wire; the remote record service only sees
// ciphertext.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/taskvault/taskvault/internal/common"
	"golang.org/x/crypto/argon2"
)

// DeriveMasterKey derives a 32-byte AES key from a passphrase and the
// account salt using argon2id. The same passphrase and salt always produce
// the same key, which is what lets a second device decrypt pulled records.
func DeriveMasterKey(password []byte, salt []byte) []byte {
	return argon2.IDKey(password, salt, 1, 64*1024, 4, 32)
}

// MakeVerifier returns the value registered with the record service in
// place of a password: the server can compare verifiers without ever
// learning the key itself.
func MakeVerifier(masterKey []byte) []byte {
	hash := sha256.Sum256(masterKey)
	return hash[:]
}

// EncryptPayload serializes v to JSON and encrypts it using AES-GCM.
// A fresh random 12-byte nonce is generated per call and returned
// alongside the ciphertext.
func EncryptPayload(v any, key []byte) (ciphertext, nonce []byte, err error) {
	plaintext, err := json.Marshal(v)
	if err != nil {
		return nil, nil, err
	}

	nonce = make([]byte, 12)
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}

	ciphertext = aesgcm.Seal(nil, nonce, plaintext, nil)
	return ciphertext, nonce, nil
}

// DecryptPayload decrypts ciphertext with the given key and nonce and
// unmarshals the resulting JSON into v. Any authentication or decoding
// failure is reported as common.ErrDecryptFailed so callers can treat
// corrupt records uniformly.
func DecryptPayload(ciphertext, nonce, key []byte, v any) error {
	block, err := aes.NewCipher(key)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	// aesgcm.Open panics on a wrong-sized nonce, and nonces arrive from
	// the wire here.
	if len(nonce) != aesgcm.NonceSize() {
		return fmt.Errorf("%w: nonce is %d bytes, want %d", common.ErrDecryptFailed, len(nonce), aesgcm.NonceSize())
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}

	if err := json.Unmarshal(plaintext, v); err != nil {
		return fmt.Errorf("%w: %v", common.ErrDecryptFailed, err)
	}
	return nil
}

// Sealer is the per-owner "encrypt/decrypt to self" primitive the local
// store and the change notifier use. Implementations hold key material;
// callers only name the owner.
type Sealer interface {
	Seal(owner string, v any) (ciphertext, nonce []byte, err error)
	Open(owner string, ciphertext, nonce []byte, v any) error
}

// Keyring holds per-owner symmetric keys for the lifetime of a session.
// It implements Sealer.
type Keyring struct {
	mu   sync.RWMutex
	keys map[string][]byte
}

func NewKeyring() *Keyring {
	return &Keyring{keys: make(map[string][]byte)}
}

// Put stores (a copy of) the key for owner.
func (k *Keyring) Put(owner string, key []byte) {
	cp := make([]byte, len(key))
	copy(cp, key)
	k.mu.Lock()
	k.keys[owner] = cp
	k.mu.Unlock()
}

// Forget wipes and removes the key for owner.
func (k *Keyring) Forget(owner string) {
	k.mu.Lock()
	common.WipeByteArray(k.keys[owner])
	delete(k.keys, owner)
	k.mu.Unlock()
}

func (k *Keyring) key(owner string) ([]byte, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()
	key, ok := k.keys[owner]
	if !ok {
		return nil, fmt.Errorf("no key for owner %q: %w", owner, common.ErrorUnauthorized)
	}
	return key, nil
}

func (k *Keyring) Seal(owner string, v any) ([]byte, []byte, error) {
	key, err := k.key(owner)
	if err != nil {
		return nil, nil, err
	}
	return EncryptPayload(v, key)
}

func (k *Keyring) Open(owner string, ciphertext, nonce []byte, v any) error {
	key, err := k.key(owner)
	if err != nil {
		return err
	}
	return DecryptPayload(ciphertext, nonce, key, v)
}
