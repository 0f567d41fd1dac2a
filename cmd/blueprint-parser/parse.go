package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ironsheep/blueprint-parser/internal/blueprint"
	"github.com/ironsheep/blueprint-parser/internal/config"
	"github.com/ironsheep/blueprint-parser/internal/imaging"
	"github.com/ironsheep/blueprint-parser/internal/logging"
	"github.com/ironsheep/blueprint-parser/internal/queue"
)

type parseOptions struct {
	Threshold float64
	Erode     int
	Dilate    int
	Format    string
}

var parseOpts parseOptions

var parseCmd = &cobra.Command{
	Use:   "parse <input> <output>",
	Short: "Parse one blueprint image into a mask file",
	Long: `Parse reads an image, runs it through the same queue and pipeline as
the server and writes the mask to output.

Flags that are not given fall back to the pipeline section of the config.
Without --format, an output ending in .png is written as PNG and anything
else as JPEG.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true

		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		flags := cmd.Flags()
		if !flags.Changed("threshold") {
			parseOpts.Threshold = cfg.Pipeline.Threshold
		}
		if !flags.Changed("erode") {
			parseOpts.Erode = cfg.Pipeline.ErodeIterations
		}
		if !flags.Changed("dilate") {
			parseOpts.Dilate = cfg.Pipeline.DilateIterations
		}
		if !flags.Changed("format") {
			parseOpts.Format = formatForPath(args[1], cfg.Output.Format)
		}
		return runParse(cmd.Context(), cfg, args[0], args[1], parseOpts)
	},
}

func init() {
	parseCmd.Flags().Float64VarP(&parseOpts.Threshold, "threshold", "t", blueprint.DefaultThreshold, "Brightness bias relative to the image average")
	parseCmd.Flags().IntVarP(&parseOpts.Erode, "erode", "e", blueprint.DefaultErodeIterations, "Number of erosion passes")
	parseCmd.Flags().IntVarP(&parseOpts.Dilate, "dilate", "d", blueprint.DefaultDilateIterations, "Number of dilation passes")
	parseCmd.Flags().StringVarP(&parseOpts.Format, "format", "f", "", "Output format: jpeg, png")
	rootCmd.AddCommand(parseCmd)
}

func runParse(ctx context.Context, cfg *config.Config, input, output string, opts parseOptions) error {
	log, err := logging.New(os.Stderr, cfg.Log.Level, "console")
	if err != nil {
		return err
	}

	format, err := imaging.ParseFormat(opts.Format)
	if err != nil {
		return err
	}
	kernel, err := cfg.Pipeline.Kernel()
	if err != nil {
		return err
	}

	in, err := os.Open(input)
	if err != nil {
		return fmt.Errorf("failed to open input: %w", err)
	}
	grid, err := imaging.Decode(in, cfg.Pipeline.MaxDimension)
	in.Close()
	if err != nil {
		return fmt.Errorf("%s: %w", input, err)
	}

	// This goroutine is the queue's only consumer.
	q := queue.New(queue.ExecutorFunc(blueprint.NewPipeline(log).Parse), log)
	job := q.Submit(blueprint.Request{
		Grid:             grid,
		Threshold:        opts.Threshold,
		ErodeIterations:  opts.Erode,
		DilateIterations: opts.Dilate,
		Kernel:           kernel,
	})
	q.Close()
	q.Drain()

	res, err := job.Await(ctx)
	if err != nil {
		return err
	}
	out, err := res.Output()
	if err != nil {
		return err
	}

	f, err := os.Create(output)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	if err := imaging.EncodeMask(f, out.Mask, format, cfg.Output.JPEGQuality); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	log.Info().
		Str("job_id", job.ID()).
		Str("output", output).
		Int("width", out.Mask.Width()).
		Int("height", out.Mask.Height()).
		Int("foreground", out.Mask.Count()).
		Str("average", imaging.ColorHex(out.AverageColor)).
		Msg("mask written")
	return nil
}

// formatForPath picks the output format from the file extension, falling
// back to def.
func formatForPath(path, def string) string {
	switch filepath.Ext(path) {
	case ".png", ".PNG":
		return string(imaging.PNG)
	case ".jpg", ".jpeg", ".JPG", ".JPEG":
		return string(imaging.JPEG)
	default:
		return def
	}
}
