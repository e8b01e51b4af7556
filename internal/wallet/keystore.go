package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/scrypt"
)

const (
	envelopeVersion = "v1"
	plainPrefix     = "plain:"

	// scrypt cost parameters. Slow enough that a leaked database
	// alone is not an immediate key compromise.
	scryptN       = 1 << 15
	scryptR       = 8
	scryptP       = 1
	derivedKeyLen = 32
	saltLen       = 16
)

// MinPassphraseLength is enforced at config load.
const MinPassphraseLength = 12

// KeyStore encrypts per-address private keys at rest with AES-256-GCM
// under a scrypt-derived key. An empty passphrase disables encryption
// entirely; callers must surface that condition at startup.
type KeyStore struct {
	passphrase string
}

func NewKeyStore(passphrase string) *KeyStore {
	return &KeyStore{passphrase: passphrase}
}

// Enabled reports whether secrets are actually encrypted at rest.
func (k *KeyStore) Enabled() bool {
	return k.passphrase != ""
}

// Encrypt seals a secret into a self-describing envelope string:
// "v1:<base58 salt>:<base58 nonce>:<base58 ciphertext>". With
// encryption disabled the secret is stored with a loud plain: marker.
func (k *KeyStore) Encrypt(secret []byte) (string, error) {
	if !k.Enabled() {
		return plainPrefix + base58.Encode(secret), nil
	}

	salt := make([]byte, saltLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := k.aead(salt)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, secret, nil)

	return strings.Join([]string{
		envelopeVersion,
		base58.Encode(salt),
		base58.Encode(nonce),
		base58.Encode(ciphertext),
	}, ":"), nil
}

// Decrypt opens an envelope produced by Encrypt. It fails closed: a
// wrong passphrase or a corrupted envelope returns an error, never a
// wrong-but-plausible secret (GCM authentication guarantees this).
func (k *KeyStore) Decrypt(envelope string) ([]byte, error) {
	if strings.HasPrefix(envelope, plainPrefix) {
		secret, err := base58.Decode(strings.TrimPrefix(envelope, plainPrefix))
		if err != nil {
			return nil, fmt.Errorf("malformed plaintext envelope: %w", err)
		}
		return secret, nil
	}

	if !k.Enabled() {
		return nil, fmt.Errorf("envelope is encrypted but no passphrase is configured")
	}

	parts := strings.Split(envelope, ":")
	if len(parts) != 4 || parts[0] != envelopeVersion {
		return nil, fmt.Errorf("malformed key envelope")
	}

	salt, err := base58.Decode(parts[1])
	if err != nil || len(salt) != saltLen {
		return nil, fmt.Errorf("malformed envelope salt")
	}
	nonce, err := base58.Decode(parts[2])
	if err != nil {
		return nil, fmt.Errorf("malformed envelope nonce")
	}
	ciphertext, err := base58.Decode(parts[3])
	if err != nil {
		return nil, fmt.Errorf("malformed envelope ciphertext")
	}

	gcm, err := k.aead(salt)
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("malformed envelope nonce")
	}

	secret, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt key envelope: %w", err)
	}

	return secret, nil
}

func (k *KeyStore) aead(salt []byte) (cipher.AEAD, error) {
	key, err := scrypt.Key([]byte(k.passphrase), salt, scryptN, scryptR, scryptP, derivedKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}
