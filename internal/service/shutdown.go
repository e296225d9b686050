package service

import (
	"context"
	"time"

	"github.com/hlgate/hlgate/internal/model"
	"github.com/hlgate/hlgate/internal/pkg/metrics"
)

type ShutdownState string

const (
	ShutdownIdle             ShutdownState = "idle"
	ShutdownCancellingOrders ShutdownState = "cancelling_orders"
	ShutdownClosingPositions ShutdownState = "closing_positions"
	ShutdownSettling         ShutdownState = "settling"
	ShutdownWithdrawing      ShutdownState = "withdrawing"
	ShutdownDone             ShutdownState = "done"
	ShutdownFailed           ShutdownState = "failed"
)

// StepRecord is one state the sequencer passed through.
type StepRecord struct {
	State    ShutdownState `json:"state"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
}

// ShutdownReport is the outcome of EmergencyWithdraw. Result is a success
// only when every step succeeded; State is Done whenever funds left.
type ShutdownReport struct {
	State    ShutdownState      `json:"state"`
	Result   *model.OrderResult `json:"result"`
	Cancel   *model.OrderResult `json:"cancel,omitempty"`
	Close    *model.OrderResult `json:"close,omitempty"`
	Withdraw *model.OrderResult `json:"withdraw,omitempty"`
	Steps    []StepRecord       `json:"steps"`
}

type sequencer struct {
	c      *TradingClient
	report *ShutdownReport
	cur    StepRecord
}

func (s *sequencer) enter(state ShutdownState) {
	s.report.State = state
	s.cur = StepRecord{State: state, Started: time.Now()}
	s.c.log.Info("Emergency shutdown step", "state", state)
}

func (s *sequencer) finish(res *model.OrderResult) {
	s.cur.Duration = time.Since(s.cur.Started)
	s.cur.Success = res != nil && res.Success
	if res != nil {
		s.cur.Error = res.Error
	}
	outcome := "ok"
	if !s.cur.Success {
		outcome = "failed"
		s.c.log.Warn("Emergency shutdown step failed", "state", s.cur.State, "error", s.cur.Error)
	}
	metrics.ShutdownSteps.WithLabelValues(string(s.cur.State), outcome).Inc()
	s.report.Steps = append(s.report.Steps, s.cur)
}

// EmergencyWithdraw cancels every order, closes every position, waits for
// the ledger to settle and withdraws. Cancel and close failures are recorded
// and never skip the later steps. Nothing is retried.
//
// The returned error is non-nil only for key or configuration failures; the
// report still describes every step attempted before it.
func (c *TradingClient) EmergencyWithdraw(ctx context.Context, ks KeySource, destination string, amount *float64) (*ShutdownReport, error) {
	report := &ShutdownReport{State: ShutdownIdle}
	s := &sequencer{c: c, report: report}
	fatal := func(err error) (*ShutdownReport, error) {
		s.finish(model.Failed(err.Error()))
		report.State = ShutdownFailed
		report.Result = model.Failed(err.Error())
		return report, err
	}

	s.enter(ShutdownCancellingOrders)
	cancel, err := c.CancelAllOrders(ctx, ks)
	if err != nil {
		return fatal(err)
	}
	report.Cancel = cancel
	s.finish(cancel)

	s.enter(ShutdownClosingPositions)
	closed, err := c.CloseAllPositions(ctx, ks)
	if err != nil {
		return fatal(err)
	}
	report.Close = closed
	s.finish(closed)

	s.enter(ShutdownSettling)
	if err := c.opts.Sleep(ctx, c.opts.SettlementDelay); err != nil {
		s.finish(model.Failed(err.Error()))
		report.State = ShutdownFailed
		report.Result = model.Failed("settlement wait interrupted: " + err.Error())
		return report, nil
	}
	s.finish(model.Succeeded())

	s.enter(ShutdownWithdrawing)
	withdraw, err := c.WithdrawFunds(ctx, ks, destination, amount)
	if err != nil {
		return fatal(err)
	}
	report.Withdraw = withdraw
	s.finish(withdraw)

	if withdraw.Success {
		report.State = ShutdownDone
	} else {
		report.State = ShutdownFailed
	}
	report.Result = summarize(report)
	return report, nil
}

func summarize(r *ShutdownReport) *model.OrderResult {
	items := []ItemResult{
		{ID: "cancel orders", Result: r.Cancel},
		{ID: "close positions", Result: r.Close},
		{ID: "withdraw", Result: r.Withdraw},
	}
	agg := Fold(items)
	if len(agg.Failed) == 0 {
		return model.Succeeded()
	}
	res := agg.OrderResult("complete emergency withdrawal")
	for _, it := range items {
		if it.Result != nil && it.Result.Error != "" {
			res.Error += "; " + it.ID + ": " + it.Result.Error
		}
	}
	return res
}
