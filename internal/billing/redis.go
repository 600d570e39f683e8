package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultLedgerPrefix = "scribe:ledger"
	defaultReceiptTTL   = 30 * 24 * time.Hour
)

// debitScript checks the receipt, then the balance, then debits and writes
// the receipt, all inside one script so no other client can interleave.
//
// KEYS[1] balance, KEYS[2] receipt. ARGV[1] amount, ARGV[2] receipt ttl (s).
// Returns {status, balance}: 0 declined, 1 debited, 2 replayed.
var debitScript = redis.NewScript(`
local done = redis.call('GET', KEYS[2])
if done then
  return {2, tonumber(done)}
end
local bal = tonumber(redis.call('GET', KEYS[1]) or '0')
local amount = tonumber(ARGV[1])
if bal < amount then
  return {0, bal}
end
local after = redis.call('DECRBY', KEYS[1], ARGV[1])
if KEYS[2] ~= '' then
  if tonumber(ARGV[2]) > 0 then
    redis.call('SET', KEYS[2], after, 'EX', ARGV[2])
  else
    redis.call('SET', KEYS[2], after)
  end
end
return {1, after}
`)

// creditScript adds funds unless the receipt already exists.
//
// KEYS[1] balance, KEYS[2] receipt. ARGV[1] amount, ARGV[2] receipt ttl (s).
// Returns {status, balance}: 1 credited, 2 replayed.
var creditScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[2]) == 1 then
  return {2, tonumber(redis.call('GET', KEYS[1]) or '0')}
end
local after = redis.call('INCRBY', KEYS[1], ARGV[1])
if tonumber(ARGV[2]) > 0 then
  redis.call('SET', KEYS[2], 1, 'EX', ARGV[2])
else
  redis.call('SET', KEYS[2], 1)
end
return {1, after}
`)

// RedisLedger keeps balances in Redis. Balances are integer keys; debit and
// credit receipts are stored next to them so that a retried run never moves
// funds twice.
type RedisLedger struct {
	client     redis.UniversalClient
	prefix     string
	receiptTTL time.Duration
}

// RedisLedgerOption configures a RedisLedger.
type RedisLedgerOption func(*RedisLedger)

// WithLedgerPrefix sets the key prefix. Default is "scribe:ledger".
func WithLedgerPrefix(prefix string) RedisLedgerOption {
	return func(l *RedisLedger) { l.prefix = prefix }
}

// WithReceiptTTL sets how long idempotency receipts are kept.
// Default is 30 days. Set to 0 to keep them forever.
func WithReceiptTTL(ttl time.Duration) RedisLedgerOption {
	return func(l *RedisLedger) { l.receiptTTL = ttl }
}

// NewRedisLedger creates a Redis-backed ledger.
func NewRedisLedger(client redis.UniversalClient, opts ...RedisLedgerOption) *RedisLedger {
	l := &RedisLedger{
		client:     client,
		prefix:     defaultLedgerPrefix,
		receiptTTL: defaultReceiptTTL,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// TryDebit implements Ledger.
func (l *RedisLedger) TryDebit(ctx context.Context, userID string, amount int64, key string) (DebitResult, error) {
	if amount < 0 {
		return DebitResult{}, fmt.Errorf("%w: debit of %d", ErrInvalidAmount, amount)
	}

	receipt := ""
	if key != "" {
		receipt = l.receiptKey(userID, "debit", key)
	}
	status, bal, err := l.run(ctx, debitScript, userID, receipt, amount)
	if err != nil {
		return DebitResult{}, err
	}

	switch status {
	case 0:
		return DebitResult{OK: false, Balance: bal}, nil
	case 2:
		return DebitResult{OK: true, Balance: bal, Replayed: true}, nil
	default:
		return DebitResult{OK: true, Balance: bal}, nil
	}
}

// Credit implements Ledger.
func (l *RedisLedger) Credit(ctx context.Context, userID string, amount int64, key string) (int64, error) {
	if amount < 0 {
		return 0, fmt.Errorf("%w: credit of %d", ErrInvalidAmount, amount)
	}

	if key == "" {
		bal, err := l.client.IncrBy(ctx, l.balanceKey(userID), amount).Result()
		if err != nil {
			return 0, fmt.Errorf("%w: redis incrby failed: %v", ErrLedger, err)
		}
		return bal, nil
	}

	_, bal, err := l.run(ctx, creditScript, userID, l.receiptKey(userID, "credit", key), amount)
	return bal, err
}

// Balance implements Ledger.
func (l *RedisLedger) Balance(ctx context.Context, userID string) (int64, error) {
	bal, err := l.client.Get(ctx, l.balanceKey(userID)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: redis get failed: %v", ErrLedger, err)
	}
	return bal, nil
}

// run executes a ledger script and decodes its {status, balance} reply.
func (l *RedisLedger) run(ctx context.Context, script *redis.Script, userID, receipt string, amount int64) (int64, int64, error) {
	ttl := int64(l.receiptTTL / time.Second)
	reply, err := script.Run(ctx, l.client, []string{l.balanceKey(userID), receipt}, amount, ttl).Int64Slice()
	if err != nil {
		return 0, 0, fmt.Errorf("%w: redis script failed: %v", ErrLedger, err)
	}
	if len(reply) != 2 {
		return 0, 0, fmt.Errorf("%w: unexpected script reply %v", ErrLedger, reply)
	}
	return reply[0], reply[1], nil
}

// Keys share a hash tag per user so both live in one cluster slot.
func (l *RedisLedger) balanceKey(userID string) string {
	return fmt.Sprintf("%s:{%s}:balance", l.prefix, userID)
}

func (l *RedisLedger) receiptKey(userID, kind, key string) string {
	return fmt.Sprintf("%s:{%s}:%s:%s", l.prefix, userID, kind, key)
}
