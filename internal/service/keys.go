package service

import (
	"crypto/ecdsa"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/signer"
	"github.com/hlgate/hlgate/internal/vault"
)

// KeySource yields a freshly decrypted private key for exactly one signing
// call. The trading client never stores the returned key; withKey zeroizes it
// as soon as the signature exists.
type KeySource interface {
	// Address is the account the key signs for. It must not require decryption.
	Address() common.Address
	Unlock() (*ecdsa.PrivateKey, error)
}

// PasswordKey unlocks a stored secret with the owner's password.
type PasswordKey struct {
	Secret   *vault.EncryptedSecret
	Password string
	Account  common.Address
}

func (k PasswordKey) Address() common.Address { return k.Account }

func (k PasswordKey) Unlock() (*ecdsa.PrivateKey, error) {
	raw, err := vault.Decrypt(k.Secret, k.Password)
	if err != nil {
		return nil, err
	}
	defer vault.Wipe(raw)
	return parseForAccount(raw, k.Account)
}

// ServerKey unlocks a secret sealed with the server-held vault key.
type ServerKey struct {
	Vault   *vault.Vault
	Secret  *vault.EncryptedSecret
	Account common.Address
}

func (k ServerKey) Address() common.Address { return k.Account }

func (k ServerKey) Unlock() (*ecdsa.PrivateKey, error) {
	if k.Vault == nil {
		return nil, apperrors.NewConfiguration("vault server key is not configured")
	}
	raw, err := k.Vault.DecryptWithServerKey(k.Secret)
	if err != nil {
		return nil, err
	}
	defer vault.Wipe(raw)
	return parseForAccount(raw, k.Account)
}

// StaticKey wraps raw key bytes held by the caller, for CLI tools and tests.
// The bytes are parsed anew on every Unlock.
type StaticKey struct {
	Raw []byte
}

func (k StaticKey) Address() common.Address {
	key, err := signer.ParsePrivateKey(k.Raw)
	if err != nil {
		return common.Address{}
	}
	defer signer.Zeroize(key)
	return signer.Address(key)
}

func (k StaticKey) Unlock() (*ecdsa.PrivateKey, error) {
	return signer.ParsePrivateKey(k.Raw)
}

func parseForAccount(raw []byte, account common.Address) (*ecdsa.PrivateKey, error) {
	key, err := signer.ParsePrivateKey(raw)
	if err != nil {
		// A secret that decrypts to garbage is treated like a failed decrypt.
		return nil, vault.ErrDecryption
	}
	if account != (common.Address{}) && signer.Address(key) != account {
		signer.Zeroize(key)
		return nil, apperrors.NewConfiguration("stored secret does not match account address")
	}
	return key, nil
}

// withKey runs fn with an unlocked key and zeroizes it afterwards.
func withKey(ks KeySource, fn func(key *ecdsa.PrivateKey) error) error {
	key, err := ks.Unlock()
	if err != nil {
		return err
	}
	defer signer.Zeroize(key)
	return fn(key)
}
