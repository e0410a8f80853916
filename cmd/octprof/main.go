package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"octprof/internal/models"
	"octprof/pkg/config"
	"octprof/pkg/metadata"
	"octprof/pkg/pipeline"
	"octprof/pkg/visualization"
)

func main() {
	// Parse command line arguments
	inputPath := flag.String("input", "", "Path to the .prof volume to decode")
	outputPath := flag.String("output", "", "Write the (corrected) volume to this .prof path")
	configPath := flag.String("config", "octprof.yaml", "Path to the YAML configuration file")
	initConfig := flag.Bool("init-config", false, "Write the default configuration to -config and exit")
	height := flag.Int("height", 0, "Frame height to use when no sidecar exists")
	width := flag.Int("width", 0, "Frame width to use when no sidecar exists")
	elementWidth := flag.Int("element-width", 0, "Sample width in bytes, 4 or 8 (default from config)")
	linearize := flag.Bool("linearize", false, "Convert rows from sinusoidal to linear sample spacing")
	align := flag.Bool("align", false, "Align odd (reverse sweep) rows to even rows")
	numCores := flag.Int("cores", 0, "Number of CPU cores to use (default from config)")
	exportDir := flag.String("export-frames", "", "Save every frame of the decoded volume as JPEG into this directory")
	debug := flag.Bool("debug", false, "Enable debug logging")
	logJSON := flag.Bool("log-json", false, "Log in JSON format")
	flag.Parse()

	if *initConfig {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write config: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Default configuration written to %s\n", *configPath)
		return
	}

	if *inputPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Flags override the configuration file
	if *elementWidth != 0 {
		cfg.Format.ElementWidth = *elementWidth
	}
	if *numCores != 0 {
		cfg.Processing.NumCores = *numCores
	}
	if *linearize {
		cfg.Correction.LinearizeSinusoid = true
	}
	if *align {
		cfg.Correction.AlignScanPasses = true
	}
	if *debug {
		cfg.Output.Verbose = true
	}
	if *logJSON {
		cfg.Output.LogFormat = "json"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := initLogger(cfg.Output.Verbose, cfg.Output.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, logger, *inputPath, *outputPath, *exportDir, *height, *width); err != nil {
		logger.WithError(err).Error("octprof failed")
		if pipeline.IsRecoverable(err) {
			fmt.Fprintln(os.Stderr, "No sidecar found: pass -height and -width to decode without one.")
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger, input, output, exportDir string, height, width int) error {
	resolver := &metadata.Resolver{
		DataExt:      cfg.Format.DataExtension,
		SidecarExt:   cfg.Format.SidecarExtension,
		Suffixes:     cfg.Format.ScanSuffixes,
		ElementWidth: cfg.Format.ElementWidth,
	}

	params := &pipeline.Params{
		HeightHint: height,
		WidthHint:  width,
		Flags: models.CorrectionFlags{
			LinearizeSinusoid: cfg.Correction.LinearizeSinusoid,
			AlignScanPasses:   cfg.Correction.AlignScanPasses,
		},
		NumCores: cfg.Processing.NumCores,
	}

	processor := pipeline.NewProcessor(params, resolver, logger)

	logger.WithFields(logrus.Fields{
		"input":     input,
		"linearize": params.Flags.LinearizeSinusoid,
		"align":     params.Flags.AlignScanPasses,
		"cores":     params.NumCores,
	}).Info("Decoding volume")

	layer, err := processor.DecodeVolume(ctx, input)
	if err != nil {
		return err
	}

	if exportDir != "" {
		viewer, err := visualization.NewViewer(layer.Data)
		if err != nil {
			return err
		}
		dir := filepath.Join(exportDir, layer.Name)
		if err := viewer.SaveSliceSequence("frame", dir); err != nil {
			return fmt.Errorf("failed to export frames: %w", err)
		}
		logger.WithField("dir", dir).Info("Frames exported")
	}

	if output != "" {
		if _, err := processor.EncodeVolume(ctx, output, layer.Data); err != nil {
			return err
		}
	}

	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}
	return nil
}

// initLogger initializes the logger with the configured level and format
func initLogger(verbose bool, format string) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)

	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}
