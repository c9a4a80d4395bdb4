package main

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/facette/natsort"

	"github.com/wildstyl3r/rfbucket/internal/config"
	"github.com/wildstyl3r/rfbucket/internal/diagnostics"
	"github.com/wildstyl3r/rfbucket/internal/utils"
)

func main() {
	df := diagnostics.NewDataFlags(flag.CommandLine)
	configFileNamePointer := flag.String("input", "sps", "bucket configuration in toml format")
	threads := flag.Int("threads", runtime.NumCPU(), "goroutines for particle acceptance")
	verbose := flag.Bool("v", false, "verbose output")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	startTime := time.Now()
	configFileName := strings.TrimSuffix(*configFileNamePointer, ".toml")
	if err := run(configFileName, df, *threads, *verbose); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
	slog.Info("done", "elapsed", time.Since(startTime))
}

func run(configFileName string, df diagnostics.DataFlags, threads int, verbose bool) error {
	cfg, meta, err := config.LoadConfig(configFileName)
	if err != nil {
		return err
	}
	if cfg.OutputDir != "" && cfg.OutputDir != "." {
		if err := os.MkdirAll(cfg.OutputDir, 0750); err != nil {
			return err
		}
	}
	df.SetOutputPath(cfg.OutputDir)

	modelNames := slices.Collect(maps.Keys(cfg.Models))
	natsort.Sort(modelNames)

	var summary utils.CSV
	var failed []error
	for _, modelName := range modelNames {
		parameters := cfg.Models[modelName]
		parameters.SetThreads(threads)
		parameters.SetVerbosity(verbose)
		row, err := process(modelName, &parameters, &cfg, &meta, df)
		if err != nil {
			slog.Error("model skipped", "model", modelName, "error", err)
			failed = append(failed, fmt.Errorf("%s: %w", modelName, err))
			continue
		}
		summary = append(summary, row)
	}

	if len(summary) > 0 {
		err := utils.WriteAsCSV(summary, cfg.OutputDir, "summary", configFileName, diagnostics.SummaryColumns(cfg.OutputUnits))
		if err != nil {
			return fmt.Errorf("unable to save summary: %w", err)
		}
	}
	return errors.Join(failed...)
}

func process(modelName string, parameters *config.BucketParameters, cfg *config.Config, meta *toml.MetaData, df diagnostics.DataFlags) ([]string, error) {
	if err := parameters.CheckAndUnify(modelName, cfg, meta); err != nil {
		return nil, err
	}
	b, err := parameters.Build()
	if err != nil {
		return nil, err
	}
	de, err := diagnostics.NewDataExtractor(b, parameters)
	if err != nil {
		return nil, err
	}
	s, err := de.Summary()
	if err != nil {
		return nil, err
	}
	if err := de.Save(modelName, df); err != nil {
		return nil, err
	}
	slog.Info("bucket",
		"model", modelName,
		"Qs", s.Qs,
		"z_sfp", s.ZSFP,
		"z_left", s.ZLeft,
		"z_right", s.ZRight,
		"area", s.Area,
	)
	return s.Row(modelName, parameters.OutputUnits()), nil
}
