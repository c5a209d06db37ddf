package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/srg/blinky/pkg/config"
)

// loadConfig builds the effective configuration: defaults, then the --config
// file, then --log-level / --verbose. Without either flag or a configured
// level the logger stays quiet so command output is not interleaved with logs.
func loadConfig(cmd *cobra.Command) (*config.Config, *logrus.Logger, error) {
	cfg := config.DefaultConfig()
	quiet := true

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
		quiet = false
	}

	// --log-level takes precedence over --verbose
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		switch level {
		case "debug", "info", "warn", "error":
		default:
			return nil, nil, fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", level)
		}
		cfg.LogLevel = level
		quiet = false
	} else if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		cfg.LogLevel = "debug"
		quiet = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := cfg.NewLogger()
	if quiet {
		logger.SetLevel(logrus.PanicLevel)
	}
	return cfg, logger, nil
}
