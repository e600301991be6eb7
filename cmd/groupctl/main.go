package main

import (
	"fmt"
	"os"

	_ "github.com/danmuck/groupctl/internal/capabilities/builtin"
	"github.com/danmuck/groupctl/internal/group"
	logs "github.com/danmuck/groupctl/internal/logging"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "groupctl",
	Short: "groupctl - capability registry and startup orchestrator",
	Long: `groupctl waits for the robot description, builds the shared planning
context, loads the configured capabilities and serves until shutdown.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          run,
}

func init() {
	rootCmd.Flags().StringVar(&cfgFile, "config", "", "config file (.toml, .yaml or .yml)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug mode")
}

func run(cmd *cobra.Command, _ []string) error {
	cfg := group.DefaultServiceConfig()
	if cfgFile != "" {
		loaded, err := loadServiceConfig(cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if cmd.Flags().Changed("debug") {
		cfg.Debug = debug
	}

	if cfg.Debug {
		logs.Configure(logs.ProfileDebug)
	} else {
		logs.ConfigureRuntime()
	}
	return group.NewServiceWithConfig(cfg).Run()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "groupctl: %v\n", err)
		os.Exit(1)
	}
}
