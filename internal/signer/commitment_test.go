package signer

import (
	"bytes"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
)

func TestNormalizeDecimal(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"1.500", "1.5"},
		{"0.000", "0"},
		{"1.5", "1.5"},
		{"0", "0"},
		{"100", "100"},
		{"27123.50", "27123.5"},
		{"-0.0", "0"},
		{"-2.10", "-2.1"},
		{"0.000100", "0.0001"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeDecimal(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			again, err := NormalizeDecimal(got)
			require.NoError(t, err)
			assert.Equal(t, got, again, "normalization must be idempotent")
		})
	}
}

func TestNormalizeDecimalRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "1.", ".5", "+1", "1e3", " 1", "1,5", "NaN", "0x10"} {
		_, err := NormalizeDecimal(in)
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidRequest), "input %q", in)
	}
}

func TestNormalizeActionDoesNotMutateInput(t *testing.T) {
	action := model.NewOrderAction(model.OrderWire{
		LimitPx: "100.00", Size: "1.500",
		OrderType: model.OrderTypeWire{Trigger: &model.TriggerOrderType{IsMarket: true, TriggerPx: "95.0", Tpsl: model.TpslStopLoss}},
	})

	out, err := NormalizeAction(action)
	require.NoError(t, err)

	n := out.(*model.OrderAction)
	assert.Equal(t, "100", n.Orders[0].LimitPx)
	assert.Equal(t, "1.5", n.Orders[0].Size)
	assert.Equal(t, "95", n.Orders[0].OrderType.Trigger.TriggerPx)

	assert.Equal(t, "100.00", action.Orders[0].LimitPx)
	assert.Equal(t, "95.0", action.Orders[0].OrderType.Trigger.TriggerPx)
}

func TestNormalizeActionRejects(t *testing.T) {
	_, err := NormalizeAction(map[string]any{"type": "order"})
	assert.Error(t, err)

	_, err = NormalizeAction(sampleOrder("1.2.3", "1"))
	assert.Error(t, err)

	_, err = NormalizeAction(model.NewOrderAction(model.OrderWire{LimitPx: "1", Size: "1"}))
	assert.Error(t, err)
}

func TestActionHashDeterministic(t *testing.T) {
	vault := common.HexToAddress("0x1719884eb866cb12b2287399b15f7db5e7d775ea")
	a := sampleOrder("27123.5", "0.123")

	h1, err := ActionHash(a, nil, 1700000000000)
	require.NoError(t, err)
	h2, err := ActionHash(sampleOrder("27123.5", "0.123"), nil, 1700000000000)
	require.NoError(t, err)
	assert.Equal(t, h1, h2)

	// Trailing zeros do not change the commitment.
	h3, err := ActionHash(sampleOrder("27123.50", "0.1230"), nil, 1700000000000)
	require.NoError(t, err)
	assert.Equal(t, h1, h3)

	hNonce, err := ActionHash(a, nil, 1700000000001)
	require.NoError(t, err)
	assert.NotEqual(t, h1, hNonce)

	hVault, err := ActionHash(a, &vault, 1700000000000)
	require.NoError(t, err)
	assert.NotEqual(t, h1, hVault)

	hVault2, err := ActionHash(a, &vault, 1700000000000)
	require.NoError(t, err)
	assert.Equal(t, hVault, hVault2)
}

func TestPackActionPreservesFieldOrder(t *testing.T) {
	packed, err := PackAction(model.NewUpdateLeverageAction(2, 10))
	require.NoError(t, err)

	dec := msgpack.NewDecoder(bytes.NewReader(packed))
	n, err := dec.DecodeMapLen()
	require.NoError(t, err)
	require.Equal(t, 4, n)

	var keys []string
	for i := 0; i < n; i++ {
		k, err := dec.DecodeString()
		require.NoError(t, err)
		keys = append(keys, k)
		_, err = dec.DecodeInterface()
		require.NoError(t, err)
	}
	assert.Equal(t, []string{"type", "asset", "isCross", "leverage"}, keys)
}
