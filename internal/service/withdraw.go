package service

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/hlgate/hlgate/internal/signer"
	"github.com/shopspring/decimal"
)

const withdrawDecimals = 6

// WithdrawFunds moves USDC from the exchange to destination. With a nil
// amount everything above the fee buffer is withdrawn. Balances at or below
// the buffer are refused without contacting /exchange.
func (c *TradingClient) WithdrawFunds(ctx context.Context, ks KeySource, destination string, amount *float64) (*model.OrderResult, error) {
	const verb = "withdraw"
	destination = strings.TrimSpace(destination)
	if !common.IsHexAddress(destination) {
		return c.fail(verb, apperrors.NewInvalidRequest(fmt.Sprintf("invalid destination address %q", destination)))
	}

	// Withdrawals always debit the signer, never a vault.
	state, err := c.GetAccountState(ctx, ks.Address())
	if err != nil {
		return c.fail(verb, err)
	}
	available, err := decimal.NewFromString(state.Withdrawable)
	if err != nil {
		return c.fail(verb, fmt.Errorf("parse withdrawable %q: %w", state.Withdrawable, err))
	}
	fee := decimal.NewFromFloat(c.opts.WithdrawFeeBuffer)
	if available.LessThanOrEqual(fee) {
		return c.done(verb, model.Failed(fmt.Sprintf("insufficient balance: %s available, %s reserved for fees", available, fee)))
	}

	maxAmount := available.Sub(fee)
	want := maxAmount
	if amount != nil {
		want = decimal.NewFromFloat(*amount)
		if !want.IsPositive() {
			return c.fail(verb, apperrors.NewInvalidRequest("withdraw amount must be positive"))
		}
		if want.GreaterThan(maxAmount) {
			return c.done(verb, model.Failed(fmt.Sprintf("insufficient balance: requested %s, at most %s can be withdrawn", want, maxAmount)))
		}
	}
	want = want.Truncate(withdrawDecimals)
	if !want.IsPositive() {
		return c.fail(verb, apperrors.NewInvalidRequest("withdraw amount rounds to zero"))
	}

	nonce := c.nonces.Next(ks.Address())
	action := model.NewWithdrawAction(c.chainName(), c.opts.SignatureChainID, destination, want.String(), nonce)
	normalized, err := signer.NormalizeAction(action)
	if err != nil {
		return c.fail(verb, err)
	}
	action = normalized.(*model.WithdrawAction)

	var sig model.Signature
	err = withKey(ks, func(key *ecdsa.PrivateKey) error {
		var err error
		sig, err = signer.SignWithdraw(key, action)
		return err
	})
	if err != nil {
		return c.fail(verb, err)
	}

	resp, err := c.gw.PostExchange(ctx, model.ExchangeRequest{Action: action, Nonce: nonce, Signature: sig})
	if err != nil {
		return c.fail(verb, err)
	}
	if err := resp.Err(); err != nil {
		return c.done(verb, model.Failed(err.Error()))
	}
	c.log.Info("Withdrawal submitted", "amount", action.Amount, "destination", destination)
	return c.done(verb, model.Succeeded())
}

func (c *TradingClient) chainName() string {
	if c.opts.Mainnet {
		return "Mainnet"
	}
	return "Testnet"
}
