package service

import (
	"fmt"
	"strings"

	"github.com/hlgate/hlgate/internal/model"
)

// ItemResult is the outcome of one sub-operation of a bulk verb.
type ItemResult struct {
	ID     string
	Result *model.OrderResult
}

// Aggregate is the fold of a bulk verb's item results.
type Aggregate struct {
	Attempted int
	Failed    []string
	Items     []ItemResult
}

// Fold combines item results. Every item counts as attempted; any item
// without a successful result is listed by ID.
func Fold(items []ItemResult) Aggregate {
	agg := Aggregate{Items: items}
	for _, it := range items {
		agg.Attempted++
		if it.Result == nil || !it.Result.Success {
			agg.Failed = append(agg.Failed, it.ID)
		}
	}
	return agg
}

// OrderResult renders the fold as a single result. what names the bulk
// operation in the error string.
func (a Aggregate) OrderResult(what string) *model.OrderResult {
	if len(a.Failed) == 0 {
		return model.Succeeded()
	}
	return model.Failed(fmt.Sprintf("failed to %s: %s", what, strings.Join(a.Failed, ", ")))
}
