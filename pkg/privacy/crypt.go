package privacy

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ErrCryptoUnavailable reports that the AEAD primitive could not be
// set up. Callers fall back to degraded plaintext storage instead of
// failing the operation.
var ErrCryptoUnavailable = errors.New("crypto primitive unavailable")

const KeySize = chacha20poly1305.KeySize

// EncryptedRecord is the at-rest shape for sensitive values. IV holds
// the per-operation nonce; Data the ciphertext. In degraded mode IV is
// empty and Data holds the plaintext, base64-encoded.
type EncryptedRecord struct {
	IV   string `json:"iv"`
	Data string `json:"data"`
}

type Cipher struct {
	key      []byte
	degraded bool
}

// GenerateKey produces a new 256-bit key. Generated once, persisted,
// and reused across sessions.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}
	return key, nil
}

func NewCipher(key []byte) (*Cipher, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key must be %d bytes, got %d", ErrCryptoUnavailable, KeySize, len(key))
	}
	// Construct once up front so a broken primitive surfaces here,
	// not on the first Encrypt.
	if _, err := chacha20poly1305.New(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}
	return &Cipher{key: append([]byte(nil), key...)}, nil
}

// NewDegradedCipher returns a pass-through cipher used when the
// primary primitive is unavailable. Data is stored unencrypted;
// callers must surface this mode to the user.
func NewDegradedCipher() *Cipher {
	return &Cipher{degraded: true}
}

func (c *Cipher) Degraded() bool {
	return c.degraded
}

func (c *Cipher) Encrypt(plaintext []byte) (EncryptedRecord, error) {
	if c.degraded {
		return EncryptedRecord{Data: base64.StdEncoding.EncodeToString(plaintext)}, nil
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return EncryptedRecord{}, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return EncryptedRecord{}, fmt.Errorf("generate nonce: %w", err)
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	return EncryptedRecord{
		IV:   base64.StdEncoding.EncodeToString(nonce),
		Data: base64.StdEncoding.EncodeToString(sealed),
	}, nil
}

func (c *Cipher) Decrypt(rec EncryptedRecord) ([]byte, error) {
	if rec.IV == "" {
		// Degraded-mode record. Readable regardless of cipher state
		// so upgrading to encryption never strands old data.
		data, err := base64.StdEncoding.DecodeString(rec.Data)
		if err != nil {
			return nil, fmt.Errorf("decode plaintext record: %w", err)
		}
		return data, nil
	}
	if c.degraded {
		return nil, fmt.Errorf("%w: encrypted record but cipher is degraded", ErrCryptoUnavailable)
	}

	aead, err := chacha20poly1305.New(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCryptoUnavailable, err)
	}

	nonce, err := base64.StdEncoding.DecodeString(rec.IV)
	if err != nil {
		return nil, fmt.Errorf("decode nonce: %w", err)
	}
	sealed, err := base64.StdEncoding.DecodeString(rec.Data)
	if err != nil {
		return nil, fmt.Errorf("decode ciphertext: %w", err)
	}

	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt record: %w", err)
	}
	return plaintext, nil
}

// EncryptJSON serializes v and encrypts the result.
func (c *Cipher) EncryptJSON(v any) (EncryptedRecord, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return EncryptedRecord{}, fmt.Errorf("marshal record: %w", err)
	}
	return c.Encrypt(data)
}

// DecryptJSON decrypts rec and unmarshals into v.
func (c *Cipher) DecryptJSON(rec EncryptedRecord, v any) error {
	data, err := c.Decrypt(rec)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("unmarshal record: %w", err)
	}
	return nil
}
