// Package vault keeps private keys encrypted at rest.
//
// Keys are derived with scrypt and sealed with AES-256-GCM. Every decryption
// failure is reported as the same ErrDecryption so callers cannot tell a wrong
// password from tampered ciphertext.
package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"golang.org/x/crypto/scrypt"
)

const (
	// scrypt work factor
	ScryptN = 1 << 14
	ScryptR = 8
	ScryptP = 1

	KeySize  = 32 // AES-256
	SaltSize = 16
	IVSize   = 16
	TagSize  = 16
)

// ErrDecryption is returned for every decrypt failure.
var ErrDecryption = &apperrors.AppError{
	Type:       apperrors.ErrDecryption,
	Message:    "unable to decrypt secret",
	Suggestion: "Check the vault password.",
	HTTPStatus: 401,
}

// EncryptedSecret is the persisted form of a key. Fields are base64.
type EncryptedSecret struct {
	Ciphertext string `json:"ciphertext"`
	IV         string `json:"iv"`
	AuthTag    string `json:"authTag"`
	Salt       string `json:"salt"`
}

// String encodes the secret as the single JSON string used for storage.
func (e *EncryptedSecret) String() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// ParseEncryptedSecret reads a secret stored by String.
func ParseEncryptedSecret(s string) (*EncryptedSecret, error) {
	var enc EncryptedSecret
	if err := json.Unmarshal([]byte(s), &enc); err != nil {
		return nil, apperrors.New(apperrors.ErrInvalidRequest, "malformed encrypted secret", err)
	}
	if enc.Ciphertext == "" || enc.IV == "" || enc.AuthTag == "" || enc.Salt == "" {
		return nil, apperrors.NewInvalidRequest("encrypted secret is missing fields")
	}
	return &enc, nil
}

// Encrypt seals secret under a key derived from password.
func Encrypt(secret []byte, password string) (*EncryptedSecret, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	iv := make([]byte, IVSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, fmt.Errorf("generate iv: %w", err)
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, err
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	sealed := gcm.Seal(nil, iv, secret, nil)
	ct, tag := sealed[:len(sealed)-TagSize], sealed[len(sealed)-TagSize:]

	return &EncryptedSecret{
		Ciphertext: base64.StdEncoding.EncodeToString(ct),
		IV:         base64.StdEncoding.EncodeToString(iv),
		AuthTag:    base64.StdEncoding.EncodeToString(tag),
		Salt:       base64.StdEncoding.EncodeToString(salt),
	}, nil
}

// Decrypt opens enc with password. Callers own the returned slice and
// should wipe it once used.
func Decrypt(enc *EncryptedSecret, password string) ([]byte, error) {
	if enc == nil {
		return nil, ErrDecryption
	}
	ct, err1 := base64.StdEncoding.DecodeString(enc.Ciphertext)
	iv, err2 := base64.StdEncoding.DecodeString(enc.IV)
	tag, err3 := base64.StdEncoding.DecodeString(enc.AuthTag)
	salt, err4 := base64.StdEncoding.DecodeString(enc.Salt)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return nil, ErrDecryption
	}
	if len(iv) != IVSize || len(tag) != TagSize || len(salt) == 0 {
		return nil, ErrDecryption
	}

	key, err := deriveKey(password, salt)
	if err != nil {
		return nil, ErrDecryption
	}
	defer wipe(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, ErrDecryption
	}

	sealed := make([]byte, 0, len(ct)+len(tag))
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)
	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return nil, ErrDecryption
	}
	return plain, nil
}

// Vault binds the server-held key for secrets the gateway unlocks on its own.
type Vault struct {
	serverKey string
}

// New fails with a configuration error when serverKey is empty.
func New(serverKey string) (*Vault, error) {
	if strings.TrimSpace(serverKey) == "" {
		return nil, apperrors.NewConfiguration("vault server key is not configured")
	}
	return &Vault{serverKey: serverKey}, nil
}

func (v *Vault) EncryptWithServerKey(secret []byte) (*EncryptedSecret, error) {
	return Encrypt(secret, v.serverKey)
}

func (v *Vault) DecryptWithServerKey(enc *EncryptedSecret) ([]byte, error) {
	return Decrypt(enc, v.serverKey)
}

func deriveKey(password string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, ScryptN, ScryptR, ScryptP, KeySize)
	if err != nil {
		return nil, fmt.Errorf("derive key: %w", err)
	}
	return key, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	gcm, err := cipher.NewGCMWithNonceSize(block, IVSize)
	if err != nil {
		return nil, fmt.Errorf("create GCM: %w", err)
	}
	return gcm, nil
}

// Wipe zeroes b in place.
func Wipe(b []byte) {
	wipe(b)
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
