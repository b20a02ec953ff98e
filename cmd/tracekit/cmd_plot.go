package main

import (
	"context"
	"fmt"

	"tracekit/internal/foc"
	"tracekit/internal/watch"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gonum.org/v1/plot/vg"
)

var (
	plotInput  string
	plotOutput string
	plotShow   bool
	plotWatch  bool
)

// plotCmd renders the FOC path trace
var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Render execution paths and timing of the FOC sine trace",
	Long: `Parses the FOC receiver trace and renders two panels to a PNG:
each input angle on a circle coloured by branch path, and execution
time against input angle. Warmup lines are ignored.

Examples:
  tracekit plot
  tracekit plot --input run2.foc.txt --output run2.png --show=false
  tracekit plot --watch`,
	Args: cobra.NoArgs,
	RunE: runPlot,
}

func init() {
	plotCmd.Flags().StringVarP(&plotInput, "input", "i", "trace.foc.txt", "FOC trace file")
	plotCmd.Flags().StringVarP(&plotOutput, "output", "o", "foc.png", "Output image")
	plotCmd.Flags().BoolVar(&plotShow, "show", true, "Open the image after saving")
	plotCmd.Flags().BoolVarP(&plotWatch, "watch", "w", false, "Re-render whenever the input changes")
}

// plotSettings merges explicitly set flags over the config.
func plotSettings(cmd *cobra.Command) (input, output string, show bool, opts foc.Options) {
	input, output, show = cfg.Plot.Input, cfg.Plot.Output, cfg.Plot.Show
	if cmd.Flags().Changed("input") {
		input = plotInput
	}
	if cmd.Flags().Changed("output") {
		output = plotOutput
	}
	if cmd.Flags().Changed("show") {
		show = plotShow
	}
	opts = foc.Options{
		Radius: cfg.Plot.Radius,
		Width:  vg.Length(cfg.Plot.Width) * vg.Inch,
		Height: vg.Length(cfg.Plot.Height) * vg.Inch,
		DPI:    cfg.Plot.DPI,
	}
	return input, output, show, opts
}

func renderPlot(input, output string, opts foc.Options) error {
	ds, err := foc.ParseFile(input)
	if err != nil {
		return err
	}
	if err := foc.SaveImage(ds, output, opts); err != nil {
		return err
	}
	logger.Info("Plot saved",
		zap.String("output", output),
		zap.Int("records", len(ds.Records)),
		zap.Int("paths", len(ds.Paths)))
	return nil
}

func runPlot(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	input, output, show, opts := plotSettings(cmd)

	if err := renderPlot(input, output, opts); err != nil {
		return err
	}
	fmt.Printf("Saved %s\n", output)

	if show {
		if err := foc.Show(ctx, output); err != nil {
			// The image is already on disk.
			logger.Warn("Could not open image", zap.Error(err))
		}
	}

	if !plotWatch {
		return nil
	}
	return watchPlot(ctx, input, output, opts)
}

// watchPlot re-renders on every settled change to input until ctx ends.
// Parse errors are reported and the previous image is kept.
func watchPlot(ctx context.Context, input, output string, opts foc.Options) error {
	fw, err := watch.New(input, cfg.GetDebounce(), func(_ context.Context, path string) {
		if err := renderPlot(path, output, opts); err != nil {
			logger.Warn("Re-render failed", zap.String("input", path), zap.Error(err))
			return
		}
		fmt.Printf("Saved %s\n", output)
	})
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		fw.Stop()
		return err
	}
	defer fw.Stop()

	fmt.Printf("Watching %s (Ctrl+C to stop)\n", input)
	<-ctx.Done()
	return nil
}
