package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/boardaid/internal/config"
	bdlog "github.com/nao1215/boardaid/internal/log"
)

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	return getPersistentBool(cmd, "verbose")
}

func getPersistentBool(cmd *cobra.Command, name string) bool {
	v, err := cmd.Flags().GetBool(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetBool(name)
		if err != nil {
			return false
		}
	}
	return v
}

func getPersistentString(cmd *cobra.Command, name string) string {
	v, err := cmd.Flags().GetString(name)
	if err != nil {
		v, err = cmd.Root().PersistentFlags().GetString(name)
		if err != nil {
			return ""
		}
	}
	return v
}

// loadConfig builds a Config from the defaults, the configuration file and
// the environment. Command specific flags are applied by the caller.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.NewConfig()
	cfg.ConfigFilePath = getPersistentString(cmd, "config")
	cfg.Verbose = getVerboseFlag(cmd)
	cfg.JSONLog = getPersistentBool(cmd, "json-log")

	// An explicit path must exist; the default locations are optional.
	explicitConfigPath := cfg.ConfigFilePath != ""
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case configPath != "":
		f, err := config.LoadConfigFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
		cfg.Apply(f)
	case explicitConfigPath:
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if f := cmd.Flag("data-dir"); f != nil && f.Changed {
		cfg.SetDataDir(f.Value.String())
	}

	if err := config.LoadEnvFile(getPersistentString(cmd, "env-file")); err != nil {
		return nil, fmt.Errorf("failed to load env file: %w", err)
	}
	cfg.ApplyEnv()

	return cfg, nil
}

// setupLogger creates the process logger. Secrets are masked in every
// record.
func setupLogger(cfg *config.Config) *slog.Logger {
	return bdlog.New(os.Stderr, cfg.Verbose, cfg.JSONLog)
}
