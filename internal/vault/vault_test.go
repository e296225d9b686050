package vault

import (
	"encoding/base64"
	"testing"

	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	tests := []struct {
		name     string
		secret   []byte
		password string
	}{
		{"empty", []byte{}, "pw"},
		{"hex key", []byte("0x4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"), "correct horse"},
		{"binary", []byte{0, 1, 2, 255, 254}, ""},
		{"unicode password", []byte("secret"), "pässwörd🔐"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			enc, err := Encrypt(tt.secret, tt.password)
			require.NoError(t, err)

			plain, err := Decrypt(enc, tt.password)
			require.NoError(t, err)
			assert.Equal(t, string(tt.secret), string(plain))
		})
	}
}

func TestEncryptUsesFreshSaltAndIV(t *testing.T) {
	a, err := Encrypt([]byte("same"), "pw")
	require.NoError(t, err)
	b, err := Encrypt([]byte("same"), "pw")
	require.NoError(t, err)

	assert.NotEqual(t, a.Salt, b.Salt)
	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)

	iv, _ := base64.StdEncoding.DecodeString(a.IV)
	assert.Len(t, iv, IVSize)
	tag, _ := base64.StdEncoding.DecodeString(a.AuthTag)
	assert.Len(t, tag, TagSize)
}

func TestDecryptWrongPassword(t *testing.T) {
	enc, err := Encrypt([]byte("secret"), "right")
	require.NoError(t, err)

	_, err = Decrypt(enc, "wrong")
	assert.ErrorIs(t, err, ErrDecryption)
	assert.True(t, apperrors.Is(err, apperrors.ErrDecryption))
}

func flipBit(t *testing.T, field string) string {
	t.Helper()
	raw, err := base64.StdEncoding.DecodeString(field)
	require.NoError(t, err)
	raw[0] ^= 0x01
	return base64.StdEncoding.EncodeToString(raw)
}

func TestDecryptDetectsTampering(t *testing.T) {
	orig, err := Encrypt([]byte("a private key of some length"), "pw")
	require.NoError(t, err)

	tamper := map[string]func(e *EncryptedSecret){
		"ciphertext": func(e *EncryptedSecret) { e.Ciphertext = flipBit(t, e.Ciphertext) },
		"iv":         func(e *EncryptedSecret) { e.IV = flipBit(t, e.IV) },
		"authTag":    func(e *EncryptedSecret) { e.AuthTag = flipBit(t, e.AuthTag) },
		"salt":       func(e *EncryptedSecret) { e.Salt = flipBit(t, e.Salt) },
		"bad base64": func(e *EncryptedSecret) { e.IV = "!!!" },
		"short tag":  func(e *EncryptedSecret) { e.AuthTag = base64.StdEncoding.EncodeToString([]byte{1, 2}) },
	}

	for name, mutate := range tamper {
		t.Run(name, func(t *testing.T) {
			enc := *orig
			mutate(&enc)
			plain, err := Decrypt(&enc, "pw")
			assert.Nil(t, plain)
			assert.Equal(t, ErrDecryption, err)
		})
	}
}

func TestEncryptedSecretStringRoundTrip(t *testing.T) {
	enc, err := Encrypt([]byte("k"), "pw")
	require.NoError(t, err)

	parsed, err := ParseEncryptedSecret(enc.String())
	require.NoError(t, err)
	assert.Equal(t, enc, parsed)

	plain, err := Decrypt(parsed, "pw")
	require.NoError(t, err)
	assert.Equal(t, "k", string(plain))
}

func TestParseEncryptedSecretRejectsGarbage(t *testing.T) {
	_, err := ParseEncryptedSecret("not json")
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	_, err = ParseEncryptedSecret(`{"ciphertext":"YQ=="}`)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
}

func TestServerKeyVault(t *testing.T) {
	_, err := New("")
	assert.True(t, apperrors.Is(err, apperrors.ErrConfiguration))

	v, err := New("server-secret")
	require.NoError(t, err)

	enc, err := v.EncryptWithServerKey([]byte("operator key"))
	require.NoError(t, err)
	plain, err := v.DecryptWithServerKey(enc)
	require.NoError(t, err)
	assert.Equal(t, "operator key", string(plain))

	_, err = Decrypt(enc, "user password")
	assert.ErrorIs(t, err, ErrDecryption)
}

func TestWipe(t *testing.T) {
	b := []byte{1, 2, 3}
	Wipe(b)
	assert.Equal(t, []byte{0, 0, 0}, b)
}
