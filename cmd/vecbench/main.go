package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"vecbench/internal/bench"
	"vecbench/internal/config"
	"vecbench/internal/domain"
	"vecbench/internal/eval"
	"vecbench/internal/recordio"
	"vecbench/internal/report"
	"vecbench/internal/tui"
)

const usage = `Usage: vecbench [flags] <command>

Commands:
  embed    chunk the corpus and write embedding record batches
  ingest   load record batches into the configured providers
  bench    run the query workload and write provider reports
  report   render previously written reports

Flags:
`

func main() {
	_ = godotenv.Load()

	var (
		cfgPath   = flag.String("config", "config.yaml", "path to YAML config")
		corpus    = flag.String("corpus", "", "corpus JSONL file (embed)")
		judgments = flag.String("judgments", "", "judgment JSONL file (bench)")
		providers = flag.String("provider", "", "restrict to one provider by name")
		out       = flag.String("out", "reports.jsonl", "report output file (bench, report)")
		useTUI    = flag.Bool("tui", false, "browse reports interactively (report)")
		verbose   = flag.Bool("verbose", false, "development logging")
	)
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := buildLogger(*verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx := context.Background()
	switch flag.Arg(0) {
	case "embed":
		err = runEmbed(ctx, cfg, logger, *corpus)
	case "ingest":
		err = runIngest(ctx, cfg, logger, *providers)
	case "bench":
		err = runBench(ctx, cfg, logger, *providers, *judgments, *out)
	case "report":
		err = runReport(*out, *useTUI)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Fatal("command failed", zap.String("command", flag.Arg(0)), zap.Error(err))
	}
}

func buildLogger(verbose bool) *zap.Logger {
	var logger *zap.Logger
	var err error
	if verbose {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to build logger:", err)
		os.Exit(1)
	}
	return logger
}

func runEmbed(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, corpusPath string) error {
	if corpusPath == "" {
		return fmt.Errorf("%w: embed requires -corpus", domain.ErrInvalidConfig)
	}
	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}
	docs, err := recordio.ReadDocuments(corpusPath)
	if err != nil {
		return err
	}
	chunks, byDoc, err := runner.ChunkCorpus(docs)
	if err != nil {
		return err
	}
	records, summary, err := runner.EmbedChunks(ctx, chunks, byDoc)
	if err != nil {
		return err
	}
	if summary.FailedBatches > 0 {
		logger.Warn("some embedding batches failed",
			zap.Int("failed", summary.FailedBatches),
			zap.Strings("errors", summary.Errors))
	}
	files, err := bench.WriteRecordFiles(cfg.Run.DataDir, cfg.Run.BatchPrefix, records, cfg.Run.RecordsPerFile)
	if err != nil {
		return err
	}
	logger.Info("record batches written",
		zap.Int("records", len(records)),
		zap.Int("files", len(files)),
		zap.String("dir", cfg.Run.DataDir))
	return nil
}

func runIngest(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, only string) error {
	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}
	registry, _, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	files, err := recordio.ListBatchFiles(cfg.Run.DataDir, cfg.Run.BatchPrefix)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no record batches under %s, run embed first", cfg.Run.DataDir)
	}
	// validate the shared record set once; all providers ingest the same data
	if _, err := recordio.ReadRecordSet(files); err != nil {
		return err
	}

	dim := cfg.Embedder.Model.Dimension
	for _, name := range registry.Names() {
		if only != "" && name != only {
			continue
		}
		p, err := registry.Get(name)
		if err != nil {
			return err
		}
		if err := p.Init(ctx, dim); err != nil {
			logger.Error("provider init failed", zap.String("provider", name), zap.Error(err))
			continue
		}
		progress := filepath.Join(cfg.Run.DataDir, "ingest_"+name+"_done.txt")
		rep, err := runner.IngestFiles(ctx, p, files, progress, cfg.Run.MaxVectors)
		if err != nil {
			return err
		}
		logger.Info("ingest finished",
			zap.String("provider", name),
			zap.Int("attempted", rep.Attempted),
			zap.Int("succeeded", rep.Succeeded),
			zap.Int("failed", rep.Failed))
		if err := writeIngestReport(cfg.Run.DataDir, rep); err != nil {
			return err
		}
	}
	return nil
}

func runBench(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger, only, judgmentPath, outPath string) error {
	if judgmentPath == "" {
		return fmt.Errorf("%w: bench requires -judgments", domain.ErrInvalidConfig)
	}
	runner, err := buildRunner(cfg, logger)
	if err != nil {
		return err
	}
	registry, pricing, err := buildProviders(cfg)
	if err != nil {
		return err
	}
	judgments, err := recordio.ReadJudgments(judgmentPath)
	if err != nil {
		return err
	}

	var reports []domain.ProviderReport
	for _, name := range registry.Names() {
		if only != "" && name != only {
			continue
		}
		p, err := registry.Get(name)
		if err != nil {
			return err
		}
		ingest, err := readIngestReport(cfg.Run.DataDir, name)
		if err != nil {
			logger.Warn("no ingest report, cost and N-of-M will be zero",
				zap.String("provider", name), zap.Error(err))
		}
		results, err := runner.RunQueries(ctx, p, judgments, cfg.Run.TopK)
		if err != nil {
			logger.Error("query workload failed", zap.String("provider", name), zap.Error(err))
			continue
		}
		rep := eval.Evaluate(name, results, judgments, ingest, pricing[name])
		reports = append(reports, rep)
		logger.Info("provider evaluated",
			zap.String("provider", name),
			zap.Float64("map", rep.MAP),
			zap.Float64("p50_ms", rep.P50LatencyMs),
			zap.Float64("p95_ms", rep.P95LatencyMs))
	}
	if len(reports) == 0 {
		return fmt.Errorf("no providers evaluated")
	}
	if err := report.WriteJSONL(outPath, reports); err != nil {
		return err
	}
	fmt.Println(report.RenderTable(reports))
	return nil
}

func runReport(path string, useTUI bool) error {
	reports, err := report.ReadJSONL(path)
	if err != nil {
		return err
	}
	if !useTUI {
		fmt.Println(report.RenderTable(reports))
		return nil
	}
	m := tui.New(reports)
	_, err = tea.NewProgram(m).Run()
	return err
}
