package cli

import "github.com/spf13/cobra"

// BindGlobalFlags registers the flags shared by every command. Their values
// override the config for this invocation only.
func BindGlobalFlags(root *cobra.Command, env *Env) {
	root.PersistentFlags().StringVar(&env.LogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	root.PersistentFlags().StringVar(&env.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9090 (overrides config)")
}
