package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/algobench/pkg/algobench/device"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List the devices of a backend",
	Long:  `List the devices the chosen backend would bind workers to, with free memory.`,
	Args:  cobra.NoArgs,
	RunE:  runDevices,
}

func init() {
	devicesCmd.Flags().String("device", "", "device backend: host or sim (default from config)")
	devicesCmd.Flags().IntP("threads", "t", 0, "workers to list (0=auto)")
	rootCmd.AddCommand(devicesCmd)
}

func runDevices(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if backend, _ := cmd.Flags().GetString("device"); backend != "" {
		cfg.Bench.Device = backend
	}
	if threads, _ := cmd.Flags().GetInt("threads"); threads > 0 {
		cfg.Bench.Threads = threads
	}

	probe, threads, err := newProbe(cfg)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "INDEX\tNAME\tTOTAL\tFREE")

	for _, info := range device.Describe(probe, threads) {
		total := "-"
		if info.TotalMB > 0 {
			total = types.FormatMB(info.TotalMB)
		}

		free := "error"
		if mb, err := probe.FreeMemory(cmd.Context(), info.Index); err == nil {
			free = types.FormatMB(mb)
		} else {
			printVerbose("device %d: %v", info.Index, err)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", info.Index, info.Name, total, free)
	}
	return tw.Flush()
}
