package main

import (
	"fmt"
	"os"
	"strings"

	"tracekit/cmd/tracekit/ui"
	"tracekit/internal/divergence"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	refFile       string
	decoderDump   string
	skipToken     string
	contextLines  int
	divergeAsJSON bool
	divergePlain  bool
)

// divergeCmd compares a reference trace against a decoder dump
var divergeCmd = &cobra.Command{
	Use:   "diverge",
	Short: "Find where the decoder output stops matching the reference trace",
	Long: `Anchors the reference trace at the first address of the decoder dump,
then walks the reference until it reaches an address the decoder never
produced. Reports the last match, the first divergence and how many
consecutive addresses matched.

Example:
  tracekit diverge -r spike.trace -d trace.dump --context 5`,
	Args: cobra.NoArgs,
	RunE: runDiverge,
}

func init() {
	divergeCmd.Flags().StringVarP(&refFile, "ref_file", "r", "", "Reference trace file (required)")
	divergeCmd.Flags().StringVarP(&decoderDump, "decoder_dump", "d", "", "Decoder dump file (required)")
	divergeCmd.Flags().StringVar(&skipToken, "skip-token", divergence.DefaultSkipToken, "Skip dump lines containing this token")
	divergeCmd.Flags().IntVar(&contextLines, "context", 0, "Show a diff of N addresses around the divergence")
	divergeCmd.Flags().BoolVar(&divergeAsJSON, "json", false, "Print the result as JSON")
	divergeCmd.Flags().BoolVar(&divergePlain, "plain", false, "Disable colored output")
	divergeCmd.MarkFlagRequired("ref_file")
	divergeCmd.MarkFlagRequired("decoder_dump")
}

func runDiverge(cmd *cobra.Command, args []string) error {
	skip := cfg.Divergence.SkipToken
	if cmd.Flags().Changed("skip-token") {
		skip = skipToken
	}
	window := cfg.Divergence.ContextLines
	if cmd.Flags().Changed("context") {
		window = contextLines
	}
	if window < 0 {
		return fmt.Errorf("--context must be >= 0, got %d", window)
	}

	logger.Debug("Loading traces",
		zap.String("ref_file", refFile),
		zap.String("decoder_dump", decoderDump))

	ref, dump, err := divergence.Load(commandContext(cmd), refFile, decoderDump, skip)
	if err != nil {
		return err
	}
	res, err := divergence.Find(ref, dump)
	if err != nil {
		return fmt.Errorf("compare %s with %s: %w", refFile, decoderDump, err)
	}

	logger.Info("Comparison complete",
		zap.Int("anchor", res.AnchorIndex),
		zap.Bool("diverged", res.Diverged),
		zap.Int("count", res.Count))

	if divergeAsJSON {
		return divergence.WriteJSON(os.Stdout, res)
	}

	var hl divergence.Highlighter
	styles := ui.DefaultStyles()
	if !divergePlain {
		hl = styles
	}
	if err := divergence.WriteReport(os.Stdout, res, hl); err != nil {
		return err
	}

	if d := divergence.Context(ref, dump, res, window); d != nil && !d.Empty() {
		fmt.Println()
		for _, line := range strings.Split(strings.TrimSuffix(d.Unified(), "\n"), "\n") {
			if !divergePlain {
				line = styles.DiffLine(line)
			}
			fmt.Println(line)
		}
	}
	return nil
}
