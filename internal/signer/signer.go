// Package signer produces exchange signatures. It is stateless: keys are
// passed in by the caller for the duration of one call and never retained.
package signer

import (
	"crypto/ecdsa"
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/pkg/metrics"
)

// SignL1Action signs a trading action through its phantom agent.
func SignL1Action(key *ecdsa.PrivateKey, action any, vault *common.Address, nonce uint64, mainnet bool) (model.Signature, error) {
	if key == nil {
		return model.Signature{}, fmt.Errorf("private key is required")
	}
	hash, err := ActionHash(action, vault, nonce)
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("l1", "error").Inc()
		return model.Signature{}, err
	}
	sig, err := signDigest(key, agentDigest(NewPhantomAgent(hash, mainnet)))
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("l1", "error").Inc()
		return model.Signature{}, err
	}
	metrics.SignaturesTotal.WithLabelValues("l1", "ok").Inc()
	return sig, nil
}

// SignWithdraw signs a withdraw3 action under the user-signed transaction
// domain. The amount must already be in normalized form.
func SignWithdraw(key *ecdsa.PrivateKey, action *model.WithdrawAction) (model.Signature, error) {
	if key == nil {
		return model.Signature{}, fmt.Errorf("private key is required")
	}
	if action == nil {
		return model.Signature{}, fmt.Errorf("withdraw action is required")
	}
	normalized, err := NormalizeDecimal(action.Amount)
	if err != nil {
		return model.Signature{}, err
	}
	if normalized != action.Amount {
		return model.Signature{}, apperrors.NewInvalidRequest(fmt.Sprintf("withdraw amount %q is not normalized", action.Amount))
	}
	td, err := withdrawTypedData(action)
	if err != nil {
		return model.Signature{}, err
	}
	digest, err := typedDataHash(td)
	if err != nil {
		return model.Signature{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	sig, err := signDigest(key, digest)
	if err != nil {
		metrics.SignaturesTotal.WithLabelValues("withdraw", "error").Inc()
		return model.Signature{}, err
	}
	metrics.SignaturesTotal.WithLabelValues("withdraw", "ok").Inc()
	return sig, nil
}

func signDigest(key *ecdsa.PrivateKey, digest []byte) (model.Signature, error) {
	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return model.Signature{}, err
	}
	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])
	// crypto.Sign yields a 0/1 recovery id; the exchange expects 27/28.
	return model.Signature{
		R: hexutil.EncodeBig(r),
		S: hexutil.EncodeBig(s),
		V: int(sig[64]) + 27,
	}, nil
}

// RecoverL1Signer returns the address that produced sig over action.
func RecoverL1Signer(action any, vault *common.Address, nonce uint64, mainnet bool, sig model.Signature) (common.Address, error) {
	hash, err := ActionHash(action, vault, nonce)
	if err != nil {
		return common.Address{}, err
	}
	digest, err := typedDataHash(agentTypedData(NewPhantomAgent(hash, mainnet)))
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return recoverAddress(digest, sig)
}

// RecoverWithdrawSigner returns the address that produced sig over action.
func RecoverWithdrawSigner(action *model.WithdrawAction, sig model.Signature) (common.Address, error) {
	td, err := withdrawTypedData(action)
	if err != nil {
		return common.Address{}, err
	}
	digest, err := typedDataHash(td)
	if err != nil {
		return common.Address{}, fmt.Errorf("failed to hash typed data: %w", err)
	}
	return recoverAddress(digest, sig)
}

func recoverAddress(digest []byte, sig model.Signature) (common.Address, error) {
	r, err := hexutil.DecodeBig(sig.R)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature r")
	}
	s, err := hexutil.DecodeBig(sig.S)
	if err != nil {
		return common.Address{}, fmt.Errorf("invalid signature s")
	}
	if r.BitLen() > 256 || s.BitLen() > 256 {
		return common.Address{}, fmt.Errorf("invalid signature length")
	}
	if sig.V != 27 && sig.V != 28 {
		return common.Address{}, fmt.Errorf("invalid signature v")
	}
	raw := make([]byte, 65)
	r.FillBytes(raw[:32])
	s.FillBytes(raw[32:64])
	raw[64] = byte(sig.V - 27)

	pub, err := crypto.SigToPub(digest, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("signature recovery failed")
	}
	return crypto.PubkeyToAddress(*pub), nil
}

// ParsePrivateKey accepts a hex key (with or without 0x) or 32 raw bytes.
func ParsePrivateKey(raw []byte) (*ecdsa.PrivateKey, error) {
	if len(raw) == 32 {
		return toECDSA(raw)
	}
	text := strings.TrimPrefix(strings.TrimSpace(string(raw)), "0x")
	b, err := hex.DecodeString(text)
	if err != nil {
		return nil, apperrors.NewInvalidRequest("invalid private key encoding")
	}
	defer zero(b)
	return toECDSA(b)
}

func toECDSA(b []byte) (*ecdsa.PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, apperrors.NewInvalidRequest("invalid private key")
	}
	return key, nil
}

// Address derives the account address of key.
func Address(key *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(key.PublicKey)
}

// Zeroize clears the private scalar of key.
func Zeroize(key *ecdsa.PrivateKey) {
	if key == nil || key.D == nil {
		return
	}
	words := key.D.Bits()
	for i := range words {
		words[i] = 0
	}
	key.D.SetInt64(0)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
