package billing

import (
	"context"
	"fmt"
	"sync"
)

// DebitResult is the answer of an atomic check-and-debit.
type DebitResult struct {
	// OK is false when the balance did not cover the amount; nothing moved.
	OK bool

	// Balance is the balance after the debit, or the current balance on decline.
	Balance int64

	// Replayed is true when the idempotency key had already been debited.
	// No funds moved this time; Balance is the balance recorded back then.
	Replayed bool
}

// Ledger holds user balances. TryDebit is the only way money leaves an
// account and must check and debit atomically.
type Ledger interface {
	// TryDebit removes amount from userID if the balance covers it.
	// A second call with the same non-empty key returns the first result
	// without debiting again.
	TryDebit(ctx context.Context, userID string, amount int64, key string) (DebitResult, error)

	// Credit adds amount to userID and returns the new balance. A non-empty
	// key makes the credit idempotent.
	Credit(ctx context.Context, userID string, amount int64, key string) (int64, error)

	// Balance returns the current balance (0 for unknown users).
	Balance(ctx context.Context, userID string) (int64, error)
}

// Compile-time interface implementation checks.
var (
	_ Ledger = (*MemoryLedger)(nil)
	_ Ledger = (*RedisLedger)(nil)
)

// MemoryLedger is an in-process Ledger for local runs and tests.
type MemoryLedger struct {
	mu       sync.Mutex
	initial  int64
	balances map[string]int64
	debits   map[string]int64
	credits  map[string]bool
}

// MemoryLedgerOption configures a MemoryLedger.
type MemoryLedgerOption func(*MemoryLedger)

// WithInitialBalance gives every user this balance on first sight.
func WithInitialBalance(credits int64) MemoryLedgerOption {
	return func(l *MemoryLedger) { l.initial = credits }
}

// NewMemoryLedger creates an empty MemoryLedger.
func NewMemoryLedger(opts ...MemoryLedgerOption) *MemoryLedger {
	l := &MemoryLedger{
		balances: make(map[string]int64),
		debits:   make(map[string]int64),
		credits:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// balanceLocked returns the balance, seeding new users. Caller holds mu.
func (l *MemoryLedger) balanceLocked(userID string) int64 {
	bal, ok := l.balances[userID]
	if !ok {
		bal = l.initial
		l.balances[userID] = bal
	}
	return bal
}

// TryDebit implements Ledger.
func (l *MemoryLedger) TryDebit(_ context.Context, userID string, amount int64, key string) (DebitResult, error) {
	if amount < 0 {
		return DebitResult{}, fmt.Errorf("%w: debit of %d", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if key != "" {
		if after, ok := l.debits[key]; ok {
			return DebitResult{OK: true, Balance: after, Replayed: true}, nil
		}
	}

	bal := l.balanceLocked(userID)
	if bal < amount {
		return DebitResult{OK: false, Balance: bal}, nil
	}

	bal -= amount
	l.balances[userID] = bal
	if key != "" {
		l.debits[key] = bal
	}
	return DebitResult{OK: true, Balance: bal}, nil
}

// Credit implements Ledger.
func (l *MemoryLedger) Credit(_ context.Context, userID string, amount int64, key string) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: credit of %d", ErrInvalidAmount, amount)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balanceLocked(userID)
	if key != "" {
		if l.credits[key] {
			return bal, nil
		}
		l.credits[key] = true
	}

	bal += amount
	l.balances[userID] = bal
	return bal, nil
}

// Balance implements Ledger.
func (l *MemoryLedger) Balance(_ context.Context, userID string) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balanceLocked(userID), nil
}
