package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/roskit/mcap2table/config"
	"github.com/roskit/mcap2table/logging"
	"github.com/roskit/mcap2table/processor"
	"github.com/roskit/mcap2table/sink"
	"github.com/roskit/mcap2table/source"
)

const (
	serviceName    = "mcap2table"
	serviceVersion = "v1.0.0"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	outputDir := flag.String("output", "", "Output directory (default <bag dir>/<format>)")
	format := flag.String("format", "", "Output format: csv, parquet, sqlite or duckdb")
	compress := flag.String("compress", "", "CSV compression: none, gzip, zstd or lz4")
	topics := flag.String("topics", "", "Comma-separated topic allow-list, empty exports all")
	progressEvery := flag.Int("progress-every", -1, "Log ingest progress every N messages, 0 disables")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn or error")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <bag.mcap>\n", serviceName)
		flag.PrintDefaults()
		os.Exit(2)
	}

	logger := logging.NewComponentLogger(serviceName, serviceVersion)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to load config")
	}
	cfg.Input.Bag = flag.Arg(0)
	if *outputDir != "" {
		cfg.Output.Directory = *outputDir
	}
	if *format != "" {
		cfg.Output.Format = *format
	}
	if *compress != "" {
		cfg.Output.Compression = *compress
	}
	if *topics != "" {
		for _, topic := range strings.Split(*topics, ",") {
			if topic = strings.TrimSpace(topic); topic != "" {
				cfg.Input.Topics = append(cfg.Input.Topics, topic)
			}
		}
	}
	if *progressEvery >= 0 {
		cfg.Service.ProgressEvery = *progressEvery
	}
	if *logLevel != "" {
		cfg.Logging.Level = *logLevel
	}

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logging.SetLevel(cfg.Logging.Level)

	if _, err := os.Stat(cfg.Input.Bag); err != nil {
		logger.Fatal().Err(err).Str("bag", cfg.Input.Bag).Msg("Bag file is not readable")
	}
	if cfg.Output.Directory == "" {
		cfg.Output.Directory = filepath.Join(filepath.Dir(cfg.Input.Bag), cfg.Output.Format)
		logger.Info().Str("output_dir", cfg.Output.Directory).Msg("Output directory defaulted from bag path")
	}
	if err := os.MkdirAll(cfg.Output.Directory, 0755); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create output directory")
	}
	logger.Info().Str("output_dir", cfg.Output.Directory).Msg("Output directory ready")

	runID := uuid.New().String()
	logger = logger.WithRunID(runID)
	logger.LogStartup(logging.StartupConfig{
		BagPath:       cfg.Input.Bag,
		Format:        cfg.Output.Format,
		OutputDir:     cfg.Output.Directory,
		Compression:   cfg.Output.Compression,
		TopicFilter:   len(cfg.Input.Topics),
		ProgressEvery: cfg.Service.ProgressEvery,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logger.Warn().Str("signal", sig.String()).Msg("Shutdown signal received, aborting export")
		cancel()
	}()

	start := time.Now()
	src, err := source.Open(cfg.Input.Bag, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open bag")
	}

	ingestor := processor.NewIngestor(logger, cfg.Input.Topics, cfg.Service.ProgressEvery)
	set := processor.NewChannelSet()
	stats, err := ingestor.Run(ctx, src, set)
	if closeErr := src.Close(); closeErr != nil {
		logger.Error().Err(closeErr).Msg("Failed to close bag")
	}
	if err != nil {
		logger.Fatal().Err(err).Msg("Export failed")
	}

	metrics := logging.ExportMetrics{
		MessagesRead:   stats.MessagesRead,
		RowsBuffered:   stats.RowsBuffered,
		DecodeFailures: stats.DecodeFailures,
	}

	if set.Empty() {
		logger.Warn().Msg("Bag contained no convertible messages, nothing to write")
		metrics.ExportDuration = time.Since(start)
		logger.LogSummary(metrics)
		return
	}

	bagStem := strings.TrimSuffix(filepath.Base(cfg.Input.Bag), filepath.Ext(cfg.Input.Bag))
	out, err := sink.New(sink.Options{
		Format:      cfg.Output.Format,
		Directory:   cfg.Output.Directory,
		Compression: cfg.Output.Compression,
		BagName:     bagStem,
		RunID:       runID,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open output sink")
	}

	assembler := processor.NewAssembler(logger)
	for _, topic := range set.Topics() {
		table := assembler.Assemble(topic, set.Rows(topic))
		if err := out.WriteTable(ctx, table); err != nil {
			out.Close()
			logger.Fatal().Err(err).Str("topic", topic).Msg("Failed to write topic table")
		}
		metrics.TopicsWritten++
	}
	if err := out.Close(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to finalize output")
	}

	metrics.ExportDuration = time.Since(start)
	logger.LogSummary(metrics)
}
