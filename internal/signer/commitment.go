package signer

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	SourceMainnet = "a"
	SourceTestnet = "b"
)

// PhantomAgent is the structure actually signed for L1 actions. It binds the
// network tag to the action hash.
type PhantomAgent struct {
	Source       string
	ConnectionID common.Hash
}

func NewPhantomAgent(actionHash common.Hash, mainnet bool) PhantomAgent {
	source := SourceTestnet
	if mainnet {
		source = SourceMainnet
	}
	return PhantomAgent{Source: source, ConnectionID: actionHash}
}

// PackAction serializes action with msgpack, preserving struct field order.
func PackAction(action any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.UseCompactInts(true)
	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("msgpack encode action: %w", err)
	}
	return buf.Bytes(), nil
}

// ActionHash computes keccak256(msgpack(normalized action) || nonce || vault flag).
func ActionHash(action any, vault *common.Address, nonce uint64) (common.Hash, error) {
	normalized, err := NormalizeAction(action)
	if err != nil {
		return common.Hash{}, err
	}
	data, err := PackAction(normalized)
	if err != nil {
		return common.Hash{}, err
	}

	var n [8]byte
	binary.BigEndian.PutUint64(n[:], nonce)
	data = append(data, n[:]...)

	if vault == nil {
		data = append(data, 0x00)
	} else {
		data = append(data, 0x01)
		data = append(data, vault.Bytes()...)
	}
	return crypto.Keccak256Hash(data), nil
}
