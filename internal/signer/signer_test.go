package signer

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleOrder(px, sz string) *model.OrderAction {
	return model.NewOrderAction(model.OrderWire{
		Asset:     0,
		IsBuy:     true,
		LimitPx:   px,
		Size:      sz,
		OrderType: model.OrderTypeWire{Limit: &model.LimitOrderType{Tif: model.TifGtc}},
	})
}

func TestSignL1ActionRecoversSigner(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)
	action := sampleOrder("27123.5", "0.123")

	for _, mainnet := range []bool{true, false} {
		sig, err := SignL1Action(key, action, nil, 1700000000000, mainnet)
		require.NoError(t, err)
		assert.Contains(t, []int{27, 28}, sig.V)

		recovered, err := RecoverL1Signer(action, nil, 1700000000000, mainnet, sig)
		require.NoError(t, err)
		assert.Equal(t, addr, recovered)

		// Same signature under the other network tag recovers to someone else.
		other, err := RecoverL1Signer(action, nil, 1700000000000, !mainnet, sig)
		if err == nil {
			assert.NotEqual(t, addr, other)
		}
	}
}

func TestSignL1ActionWithVault(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)
	vault := common.HexToAddress("0x1719884eb866cb12b2287399b15f7db5e7d775ea")
	action := model.NewCancelAction(model.CancelWire{Asset: 3, OID: 42})

	sig, err := SignL1Action(key, action, &vault, 7, true)
	require.NoError(t, err)

	recovered, err := RecoverL1Signer(action, &vault, 7, true, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, recovered)

	recovered, err = RecoverL1Signer(action, nil, 7, true, sig)
	if err == nil {
		assert.NotEqual(t, addr, recovered)
	}
}

func TestAgentDigestMatchesTypedData(t *testing.T) {
	hash := crypto.Keccak256Hash([]byte("connection"))
	for _, mainnet := range []bool{true, false} {
		agent := NewPhantomAgent(hash, mainnet)
		expected, err := typedDataHash(agentTypedData(agent))
		require.NoError(t, err)
		assert.Equal(t, hexutil.Encode(expected), hexutil.Encode(agentDigest(agent)))
	}
}

func TestPhantomAgentSource(t *testing.T) {
	h := common.Hash{1}
	assert.Equal(t, "a", NewPhantomAgent(h, true).Source)
	assert.Equal(t, "b", NewPhantomAgent(h, false).Source)
	assert.Equal(t, h, NewPhantomAgent(h, true).ConnectionID)
}

func TestSignWithdrawRecoversSigner(t *testing.T) {
	key, _ := crypto.GenerateKey()
	addr := crypto.PubkeyToAddress(key.PublicKey)
	action := model.NewWithdrawAction("Mainnet", "0xa4b1", "0x5e9ee1089755c3435139848e47e6635505d5a13a", "12.5", 1700000000000)

	sig, err := SignWithdraw(key, action)
	require.NoError(t, err)

	recovered, err := RecoverWithdrawSigner(action, sig)
	require.NoError(t, err)
	assert.Equal(t, addr, recovered)

	// A different signature chain id is a different domain.
	moved := *action
	moved.SignatureChainID = "0x66eee"
	recovered, err = RecoverWithdrawSigner(&moved, sig)
	if err == nil {
		assert.NotEqual(t, addr, recovered)
	}
}

func TestSignWithdrawRejectsUnnormalizedAmount(t *testing.T) {
	key, _ := crypto.GenerateKey()
	action := model.NewWithdrawAction("Mainnet", "0xa4b1", "0x5e9ee1089755c3435139848e47e6635505d5a13a", "12.50", 1)
	_, err := SignWithdraw(key, action)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	action.Amount = "abc"
	_, err = SignWithdraw(key, action)
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))

	action.Amount = "1"
	action.SignatureChainID = "arbitrum"
	_, err = SignWithdraw(key, action)
	assert.Error(t, err)
}

func TestRecoverRejectsMalformedSignature(t *testing.T) {
	action := sampleOrder("1", "1")
	_, err := RecoverL1Signer(action, nil, 1, true, model.Signature{R: "zz", S: "0x1", V: 27})
	assert.Error(t, err)
	_, err = RecoverL1Signer(action, nil, 1, true, model.Signature{R: "0x1", S: "0x1", V: 1})
	assert.Error(t, err)
}

func TestParsePrivateKey(t *testing.T) {
	key, _ := crypto.GenerateKey()
	want := crypto.PubkeyToAddress(key.PublicKey)
	hexKey := hexutil.Encode(crypto.FromECDSA(key))

	for name, raw := range map[string][]byte{
		"0x hex":   []byte(hexKey),
		"bare hex": []byte(hexKey[2:] + "\n"),
		"raw":      crypto.FromECDSA(key),
	} {
		t.Run(name, func(t *testing.T) {
			parsed, err := ParsePrivateKey(raw)
			require.NoError(t, err)
			assert.Equal(t, want, Address(parsed))
		})
	}

	_, err := ParsePrivateKey([]byte("not a key"))
	assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest))
}

func TestZeroize(t *testing.T) {
	key, _ := crypto.GenerateKey()
	Zeroize(key)
	assert.Equal(t, 0, key.D.Sign())
	Zeroize(nil)
}
