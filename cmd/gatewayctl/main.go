package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(d *deps) *cobra.Command {
	var envDir string

	rootCmd := &cobra.Command{
		Use:           "gatewayctl",
		Short:         "Operator tool for the notification gateway",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return d.loadConfig(envDir)
		},
	}
	rootCmd.PersistentFlags().StringVar(&envDir, "env-dir", ".", "Directory holding the .env file, relative to the module root")

	rootCmd.AddCommand(sendCodeCmd(d))
	rootCmd.AddCommand(chargeCmd(d))
	rootCmd.AddCommand(fanoutCmd(d))

	return rootCmd
}
