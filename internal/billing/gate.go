// Package billing prices transcription work and moves credits.
//
// Gate is the single place where a run is charged. The charge is keyed by the
// run ID, so authorizing the same run twice never debits twice.
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alnah/go-scribe/internal/settings"
)

// Outcome is the audit record of a run's one debit.
type Outcome struct {
	AmountCharged int64          `json:"amount_charged"`
	ModelTier     settings.Model `json:"model_tier"`
	BalanceAfter  int64          `json:"balance_after"`
	ChargedAt     time.Time      `json:"charged_at"`
}

// Gate checks and debits a user's balance before paid work.
type Gate struct {
	ledger Ledger
	prices PriceTable
	logger *slog.Logger
	now    func() time.Time
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the structured logger.
func WithGateLogger(l *slog.Logger) GateOption {
	return func(g *Gate) { g.logger = l }
}

// WithClock overrides time.Now (for testing).
func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

// NewGate creates a Gate. A nil price table means DefaultPriceTable.
func NewGate(ledger Ledger, prices PriceTable, opts ...GateOption) *Gate {
	if prices == nil {
		prices = DefaultPriceTable()
	}
	g := &Gate{
		ledger: ledger,
		prices: prices,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Quote returns the cost without touching the ledger.
func (g *Gate) Quote(seconds float64, tier settings.Model) (int64, error) {
	return g.prices.Cost(seconds, tier)
}

// Authorize charges userID for seconds of tier on behalf of runID.
//
// On decline it returns *InsufficientFundsError and nothing is debited.
// Calling it again for a run that was already charged returns the original
// charge without debiting.
func (g *Gate) Authorize(ctx context.Context, runID, userID string, seconds float64, tier settings.Model) (Outcome, error) {
	cost, err := g.prices.Cost(seconds, tier)
	if err != nil {
		return Outcome{}, err
	}

	res, err := g.ledger.TryDebit(ctx, userID, cost, DebitKey(runID))
	if err != nil {
		return Outcome{}, fmt.Errorf("debit %s: %w", userID, err)
	}
	if !res.OK {
		g.logger.Info("charge declined",
			"run_id", runID, "user_id", userID, "required", cost, "available", res.Balance)
		return Outcome{}, &InsufficientFundsError{Required: cost, Available: res.Balance}
	}

	if res.Replayed {
		g.logger.Info("charge already recorded", "run_id", runID, "user_id", userID, "amount", cost)
	} else {
		g.logger.Info("charged",
			"run_id", runID, "user_id", userID, "amount", cost, "tier", tier, "balance_after", res.Balance)
	}

	return Outcome{
		AmountCharged: cost,
		ModelTier:     tier,
		BalanceAfter:  res.Balance,
		ChargedAt:     g.now().UTC(),
	}, nil
}

// Refund returns a run's charge. It is idempotent per run.
func (g *Gate) Refund(ctx context.Context, runID, userID string, o Outcome) (int64, error) {
	bal, err := g.ledger.Credit(ctx, userID, o.AmountCharged, RefundKey(runID))
	if err != nil {
		return 0, fmt.Errorf("refund %s: %w", userID, err)
	}
	g.logger.Info("refunded", "run_id", runID, "user_id", userID, "amount", o.AmountCharged, "balance_after", bal)
	return bal, nil
}

// Balance returns the user's current balance.
func (g *Gate) Balance(ctx context.Context, userID string) (int64, error) {
	return g.ledger.Balance(ctx, userID)
}

// DebitKey is the idempotency key of a run's charge.
func DebitKey(runID string) string { return "run:" + runID }

// RefundKey is the idempotency key of a run's refund.
func RefundKey(runID string) string { return "refund:" + runID }
