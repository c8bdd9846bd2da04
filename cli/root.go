package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/refacekit/leadops/pkg/config"
	"github.com/refacekit/leadops/pkg/logger"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:               "leadops",
		Short:             "Lead CSV ingestion API and dialer export worker",
		SilenceUsage:      true,
		PersistentPreRunE: setupCommand,
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "Path to a YAML configuration file")
	flags.String("env-file", ".env", "Path to an environment file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.Bool("log-json", false, "Emit logs as JSON")
	flags.Bool("log-source", false, "Include source locations in logs")
	flags.String("redis-url", "", "Redis URL; overrides host, port and db")
	flags.String("redis-host", "", "Redis host")
	flags.String("redis-port", "", "Redis port")
	flags.Int("redis-db", 0, "Redis database number")
	flags.String("queue", "", "Name of the Redis list used as the job queue")

	root.AddCommand(
		APICmd(),
		WorkerCmd(),
		ConfigCmd(),
		VersionCmd(),
	)

	return root
}

// setupCommand loads the env file and the layered configuration, then
// installs the logger and the config on the command context.
func setupCommand(cmd *cobra.Command, _ []string) error {
	envFile, err := cmd.Flags().GetString("env-file")
	if err != nil {
		return fmt.Errorf("failed to get env-file flag: %w", err)
	}
	if err := config.LoadDotEnv(envFile); err != nil {
		return err
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger.SetupLogger(logger.LogLevel(cfg.Runtime.LogLevel), cfg.Runtime.LogJSON, cfg.Runtime.LogSource)
	ctx := config.ContextWithConfig(cmd.Context(), cfg)
	ctx = logger.ContextWithLogger(ctx, logger.GetDefault())
	cmd.SetContext(ctx)
	return nil
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	var sources []config.Source
	path, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	if path != "" {
		sources = append(sources, config.NewYAMLProvider(path))
	}
	sources = append(sources, config.NewCLIProvider(changedFlags(cmd.Flags())))
	cfg, err := config.NewService().Load(cmd.Context(), sources...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return cfg, nil
}

// changedFlags collects the flags set on the command line that map onto a
// configuration key. Defaults are left to the lower-precedence sources.
func changedFlags(flags *pflag.FlagSet) map[string]any {
	out := make(map[string]any)
	flags.Visit(func(f *pflag.Flag) {
		if _, ok := config.CLIFlagPaths[f.Name]; ok {
			out[f.Name] = f.Value.String()
		}
	})
	return out
}
