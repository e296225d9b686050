package signer

import (
	"fmt"
	"regexp"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/apperrors"
	"github.com/shopspring/decimal"
)

var decimalPattern = regexp.MustCompile(`^-?[0-9]+(\.[0-9]+)?$`)

// NormalizeDecimal strips trailing fractional zeros the way the exchange does
// before hashing: "1.500" -> "1.5", "0.000" -> "0". Anything that is not a
// plain decimal literal is rejected.
func NormalizeDecimal(s string) (string, error) {
	if !decimalPattern.MatchString(s) {
		return "", apperrors.NewInvalidRequest(fmt.Sprintf("malformed decimal string %q", s))
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", apperrors.New(apperrors.ErrInvalidRequest, fmt.Sprintf("malformed decimal string %q", s), err)
	}
	return d.String(), nil
}

// NormalizeAction returns a copy of action with every numeric string field
// normalized. The input is not modified.
func NormalizeAction(action any) (any, error) {
	switch a := action.(type) {
	case *model.OrderAction:
		out := *a
		out.Orders = make([]model.OrderWire, len(a.Orders))
		for i, o := range a.Orders {
			n, err := normalizeOrder(o)
			if err != nil {
				return nil, fmt.Errorf("order %d: %w", i, err)
			}
			out.Orders[i] = n
		}
		return &out, nil
	case *model.CancelAction:
		out := *a
		out.Cancels = append([]model.CancelWire(nil), a.Cancels...)
		return &out, nil
	case *model.UpdateLeverageAction:
		out := *a
		return &out, nil
	case *model.WithdrawAction:
		out := *a
		amount, err := NormalizeDecimal(a.Amount)
		if err != nil {
			return nil, err
		}
		out.Amount = amount
		return &out, nil
	default:
		return nil, apperrors.NewInvalidRequest(fmt.Sprintf("unsupported action type %T", action))
	}
}

func normalizeOrder(o model.OrderWire) (model.OrderWire, error) {
	var err error
	if o.LimitPx, err = NormalizeDecimal(o.LimitPx); err != nil {
		return o, err
	}
	if o.Size, err = NormalizeDecimal(o.Size); err != nil {
		return o, err
	}
	if o.OrderType.Limit != nil && o.OrderType.Trigger != nil {
		return o, apperrors.NewInvalidRequest("order type must be limit or trigger, not both")
	}
	if o.OrderType.Limit == nil && o.OrderType.Trigger == nil {
		return o, apperrors.NewInvalidRequest("order type is required")
	}
	if o.OrderType.Limit != nil {
		limit := *o.OrderType.Limit
		o.OrderType.Limit = &limit
	}
	if o.OrderType.Trigger != nil {
		trigger := *o.OrderType.Trigger
		if trigger.TriggerPx, err = NormalizeDecimal(trigger.TriggerPx); err != nil {
			return o, err
		}
		o.OrderType.Trigger = &trigger
	}
	return o, nil
}
