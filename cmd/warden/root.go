package main

import (
	"fmt"

	nats "github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	rootCmd = &cobra.Command{
		Use:   "warden",
		Short: "reentrant distributed locks on Redis",
		Long: fmt.Sprintf(`warden (v%s)

Reentrant distributed locks kept alive by a watchdog, built on atomic
Redis scripts.`, version),
		SilenceUsage:      true,
		PersistentPreRunE: setup,
		PersistentPostRun: teardown,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of warden",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("warden v%s\n", version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.AddCommand(demoCmd, holdCmd, inspectCmd, watchCmd, versionCmd)

	pf := rootCmd.PersistentFlags()
	pf.String("endpoint", "localhost:6379", "Redis endpoint, host:port or redis:// URL")
	pf.Bool("embedded", false, "Run against an in-process store instead of --endpoint")
	pf.String("log-level", "info", "Log level (debug, info, warn, error)")
	pf.String("metrics-addr", "", "Serve Prometheus metrics on this address")
	pf.Bool("trace", false, "Print OpenTelemetry spans to stdout")
	pf.Duration("watchdog-floor", 0, "Minimum watchdog renewal period (0 keeps the default)")
	pf.String("bus", "none", "Lock event bus (none, redis, nats)")
	pf.String("nats-url", nats.DefaultURL, "NATS server used when --bus=nats")
}
