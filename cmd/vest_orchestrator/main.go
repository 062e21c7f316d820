package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	chainFlag  uint64
	accountArg string
)

var rootCmd = &cobra.Command{
	Use:           "vest_orchestrator",
	Short:         "Membership tree client: sync state, manage hidden slots and submit transactions",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yml", "path to the YAML configuration")
	rootCmd.PersistentFlags().Uint64Var(&chainFlag, "chain", 0, "chain id (overrides session.chainID)")
	rootCmd.PersistentFlags().StringVar(&accountArg, "account", "", "account address (overrides session.account)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
