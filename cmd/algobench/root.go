package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesainslie/algobench/pkg/algobench/config"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "algobench",
		Short: "Benchmark hashing algorithms across a pool of devices",
		Long: `Algobench runs every algorithm in its catalog on a pool of workers, one
per device, switching all workers to the next algorithm in lockstep. After
each switch it checks device memory for leaks and reclaims what it finds.

Examples:
  algobench bench                     # Benchmark on every CPU
  algobench bench -t 2 --slice 2s     # Two workers, two seconds per algorithm
  algobench bench --device sim        # Dry run on simulated devices
  algobench bench scrypt -o json      # Start at scrypt, JSON report
  algobench algos                     # List the catalog
  algobench config show               # Show configuration`,
		SilenceUsage:      true,
		PersistentPreRunE: initializeLogging,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/algobench/config.yaml)")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "minimal output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "debug output")

	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

// initConfig reads in config file and environment variables.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		if dir, err := config.ConfigDir(); err == nil {
			viper.AddConfigPath(dir)
		}
	}

	config.BindEnv(viper.GetViper())
	config.SetDefaults(viper.GetViper())

	// A missing file leaves the defaults in place.
	_ = viper.ReadInConfig()
}

// loadConfig decodes the merged flag, env, file and default settings.
func loadConfig() (*config.Config, error) {
	return config.FromViper(viper.GetViper())
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func getVerbose() bool {
	return viper.GetBool("verbose")
}

func getQuiet() bool {
	return viper.GetBool("quiet")
}

// printVerbose prints a message if verbose mode is enabled.
func printVerbose(format string, args ...any) {
	if getVerbose() && !getQuiet() {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// printInfo prints a message to stderr unless quiet mode is enabled. The
// report itself goes to stdout.
func printInfo(format string, args ...any) {
	if !getQuiet() {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	}
}
