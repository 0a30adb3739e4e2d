package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/go-go-golems/lexflow/cmd/lexflow/cmds"
	"github.com/go-go-golems/lexflow/pkg/config"
	"github.com/go-go-golems/lexflow/pkg/logging"
)

var logCloser = func() error { return nil }

var rootCmd = &cobra.Command{
	Use:          "lexflow",
	Short:        "lexflow is a terminal client for LexFlow legal chat webhooks",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.InitViper("lexflow", cmd.Root()); err != nil {
			return err
		}
		// reinitialize the logger now that --log-level and co are parsed
		closer, err := logging.InitLogger(logging.SettingsFromViper(nil))
		if err != nil {
			return err
		}
		logCloser = closer
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logCloser()
	},
}

func main() {
	config.LoadDotEnv()

	_, err := logging.InitLogger(logging.Settings{Level: "info"})
	cobra.CheckErr(err)

	logging.AddFlags(rootCmd)
	cmds.AddGlobalFlags(rootCmd)
	cmds.Register(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
