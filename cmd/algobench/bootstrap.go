package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/algobench/pkg/algobench/config"
	"github.com/jamesainslie/algobench/pkg/algobench/logging"
)

// initializeLogging is the root PersistentPreRunE hook. It sets up the
// log file and console output from configuration and the -v/-q flags.
func initializeLogging(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	if err := config.EnsureStateDir(); err != nil {
		return err
	}

	if err := logging.Init(loggingConfig(cfg.Logging, getVerbose(), getQuiet())); err != nil {
		return fmt.Errorf("initializing logging: %w", err)
	}
	return nil
}

// loggingConfig applies the verbosity flags on top of the configured
// logging. Verbose drops per-component levels; quiet wins over verbose.
func loggingConfig(lc config.LoggingConfig, verbose, quiet bool) logging.Config {
	cfg := lc.ToLogging()
	switch {
	case quiet:
		cfg.ConsoleLevel = ""
	case verbose:
		cfg.ConsoleLevel = "debug"
		cfg.Level = "debug"
		cfg.Components = nil
	}
	return cfg
}
