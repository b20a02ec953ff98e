package main

import (
	"os"

	"tracekit/internal/bpfilter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	filterMarker  string
	filterCompact bool
	filterFollow  bool
)

// filterCmd prints breakpoint lines from a simulator log
var filterCmd = &cobra.Command{
	Use:   "filter FILE",
	Short: "Print breakpoint lines from a simulator log",
	Long: `Prints every line of FILE that starts with the breakpoint marker,
exactly as read and in order, each followed by a blank line.

Examples:
  tracekit filter sim.log
  tracekit filter --compact --follow sim.log`,
	Args: cobra.ExactArgs(1),
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().StringVar(&filterMarker, "marker", bpfilter.DefaultMarker, "Line prefix to match")
	filterCmd.Flags().BoolVar(&filterCompact, "compact", false, "Omit the blank line after each match")
	filterCmd.Flags().BoolVarP(&filterFollow, "follow", "f", false, "Keep printing lines appended to FILE")
}

// filterOptions merges explicitly set flags over the config.
func filterOptions(cmd *cobra.Command) bpfilter.Options {
	opts := bpfilter.Options{Marker: cfg.Filter.Marker, Compact: cfg.Filter.Compact}
	if cmd.Flags().Changed("marker") {
		opts.Marker = filterMarker
	}
	if cmd.Flags().Changed("compact") {
		opts.Compact = filterCompact
	}
	return opts
}

func runFilter(cmd *cobra.Command, args []string) error {
	path := args[0]
	opts := filterOptions(cmd)
	logger.Debug("Filtering", zap.String("path", path), zap.String("marker", opts.Marker))

	var (
		n   int
		err error
	)
	if filterFollow {
		n, err = bpfilter.Follow(commandContext(cmd), path, os.Stdout, opts, cfg.GetDebounce())
	} else {
		n, err = bpfilter.FilterFile(path, os.Stdout, opts)
	}
	if err != nil {
		return err
	}

	logger.Info("Filter complete", zap.String("path", path), zap.Int("matches", n))
	return nil
}
