package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/alnah/go-scribe/internal/billing"
	"github.com/alnah/go-scribe/internal/format"
)

// BalanceCmd creates the balance command.
func BalanceCmd(env *Env) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <user>",
		Short: "Show a user's credit balance",
		Long: `Show a user's credit balance.

Without redis-addr the ledger lives in memory and every user starts with
local-credits.`,
		Example: `  scribe balance alice`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBalance(cmd, env, args[0])
		},
	}
}

// TopupCmd creates the topup command.
func TopupCmd(env *Env) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "topup <user> <credits>",
		Short: "Add credits to a user's balance",
		Long: `Add credits to a user's balance.

A top-up is applied at most once per --key, so a retried command does not
credit twice. Without --key a fresh key is generated. Requires the redis
backend (redis-addr).`,
		Example: `  scribe topup alice 500
  scribe topup alice 500 --key invoice-2041`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopup(cmd, env, args[0], args[1], key)
		},
	}

	cmd.Flags().StringVar(&key, "key", "", "Idempotency key of this top-up")

	return cmd
}

func runBalance(cmd *cobra.Command, env *Env, user string) error {
	ctx := cmd.Context()

	s, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer s.close()

	bal, err := s.gate.Balance(ctx, user)
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Stdout, bal)
	return nil
}

func runTopup(cmd *cobra.Command, env *Env, user, amount, key string) error {
	ctx := cmd.Context()

	credits, err := parseCredits(amount)
	if err != nil {
		return err
	}
	if strings.TrimSpace(user) == "" {
		return fmt.Errorf("%w: empty user", ErrInvalidArgument)
	}
	if key == "" {
		key = uuid.NewString()
	}

	s, err := openSession(ctx, env)
	if err != nil {
		return err
	}
	defer s.close()

	if !s.backend.Persistent {
		return fmt.Errorf("%w: an in-memory top-up would be lost on exit", ErrPersistenceRequired)
	}

	bal, err := s.backend.Ledger.Credit(ctx, user, credits, "topup:"+key)
	if err != nil {
		return err
	}
	s.logger.Info("topped up", "user_id", user, "amount", credits, "key", key, "balance_after", bal)
	fmt.Fprintf(env.Stderr, "Added %s to %s (key %s)\n", format.Credits(credits), user, key)
	fmt.Fprintln(env.Stdout, bal)
	return nil
}

// parseCredits accepts a positive whole number of credits.
func parseCredits(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("%w: credits must be a positive integer, got %q", billing.ErrInvalidAmount, s)
	}
	return n, nil
}
