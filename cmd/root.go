package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/eamonnfaherty/codebundle/pkg/config"
	"github.com/eamonnfaherty/codebundle/pkg/logging"
	"github.com/eamonnfaherty/codebundle/pkg/version"
)

var (
	configPath string
	debug      bool

	// cfg is loaded before any subcommand runs.
	cfg = config.Default()
)

// RootCmd is the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:   "codebundle",
	Short: "codebundle packages a workspace into an upload-ready archive",
	Long: `codebundle selects the source files of a workspace that are eligible for upload,
enforces a size limit and writes them into a checksummed zip archive.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if err := logging.Setup(debug || cfg.Debug, "codebundle", version.Get().Version); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logging.Logger.Debug("Loaded configuration", zap.String("config", configPath))
		return nil
	},
}

func init() {
	RootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a YAML config file (default $"+config.EnvConfigPath+")")
	RootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")
}

// Execute adds all child commands to the root command and runs it.
func Execute(ctx context.Context) error {
	return RootCmd.ExecuteContext(ctx)
}
