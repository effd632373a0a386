package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jamesainslie/algobench/pkg/algobench/kernel"
	"github.com/jamesainslie/algobench/pkg/algobench/types"
)

var algosCmd = &cobra.Command{
	Use:   "algos",
	Short: "List the algorithm catalog",
	Long: `List every algorithm in benchmark order with its status and the
working memory one lane needs. Skipped algorithms keep their position but
are never run.`,
	Args: cobra.NoArgs,
	RunE: runAlgos,
}

func init() {
	rootCmd.AddCommand(algosCmd)
}

func runAlgos(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cat, err := cfg.Bench.Catalog()
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tALGO\tSTATUS\tLANE MEMORY")

	for _, id := range cat.IDs() {
		name := cat.Name(id)

		status, lane := "active", "-"
		k, err := kernel.Lookup(name)
		switch {
		case cat.Skipped(id):
			status = "skipped"
		case err != nil:
			status = "no kernel"
		}
		if err == nil && k.LaneBytes > 0 {
			lane = types.FormatSize(k.LaneBytes)
		}

		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", id, name, status, lane)
	}
	return tw.Flush()
}
