// Command inspect runs the full analysis pipeline locally against two video
// files, without the API, queue, or any backing services. Stage result
// documents are written to the output directory.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/lmittmann/tint"

	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/ingest"
	"github.com/your-org/td/internal/models"
	"github.com/your-org/td/internal/severity"
	"github.com/your-org/td/internal/vision"
)

func main() {
	referencePath := flag.String("reference", "", "path to the baseline tyre video")
	damagedPath := flag.String("damaged", "", "path to the damaged tyre video")
	outDir := flag.String("out", "analysis_output", "output directory for result documents")
	fps := flag.Int("fps", 0, "frame sampling rate (default from config)")
	configPath := flag.String("config", "", "optional config file")
	flag.Parse()

	slog.SetDefault(slog.New(
		tint.NewHandler(os.Stderr, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: "15:04:05",
		}),
	))

	if *referencePath == "" || *damagedPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect -reference ref.mp4 -damaged dam.mp4 [-out dir] [-fps n]")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *fps <= 0 {
		*fps = cfg.Analysis.FPS
	}

	if err := run(context.Background(), cfg, *referencePath, *damagedPath, *outDir, *fps); err != nil {
		slog.Error("analysis failed", "error", err)
		os.Exit(1)
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func run(ctx context.Context, cfg *config.Config, referencePath, damagedPath, outDir string, fps int) error {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return err
	}

	refFrames, err := extractFrames(ctx, cfg, referencePath, fps)
	if err != nil {
		return fmt.Errorf("reference video: %w", err)
	}
	damFrames, err := extractFrames(ctx, cfg, damagedPath, fps)
	if err != nil {
		return fmt.Errorf("damaged video: %w", err)
	}
	slog.Info("frames preprocessed", "reference", len(refFrames), "damaged", len(damFrames))

	n := len(damFrames)
	if len(refFrames) < n {
		n = len(refFrames)
	}
	if n == 0 {
		return fmt.Errorf("no frame pairs to analyze")
	}

	crackDetector := vision.NewCrackDetector(cfg.Analysis.Crack)
	depthEstimator := vision.NewDepthEstimator(cfg.Analysis.Depth)
	classifier := vision.NewDamageClassifier(cfg.Analysis.Classify.PresenceRatio)

	crackFrames := make([]models.CrackFrameMetrics, 0, n)
	depthFrames := make([]models.DepthFrameMetrics, 0, n)
	damageFrames := make([]models.DamageFrameMetrics, 0, n)

	for i := 0; i < n; i++ {
		out := crackDetector.AnalyzeFrame(i, refFrames[i], damFrames[i])
		crackFrames = append(crackFrames, out.Metrics)
		depthFrames = append(depthFrames, depthEstimator.EstimateFrame(i, refFrames[i], damFrames[i]))
		damageFrames = append(damageFrames, classifier.ClassifyFrame(i, damFrames[i], out.Binary))
		if (i+1)%25 == 0 {
			slog.Info("analyzing", "frame", i+1, "of", n)
		}
	}

	crack := vision.AggregateCracks(crackFrames)
	depth := vision.AggregateDepth(depthFrames)
	damage := classifier.Aggregate(damageFrames)

	if err := writeJSON(outDir, models.CrackResultsFile, crack); err != nil {
		return err
	}
	if err := writeJSON(outDir, models.DepthResultsFile, depth); err != nil {
		return err
	}
	if err := writeJSON(outDir, models.DamageResultsFile, damage); err != nil {
		return err
	}

	calc := severity.Calculator{
		Scorer: severity.Scorer{
			MaxCrackDensity: cfg.Analysis.Severity.MaxCrackDensity,
			MaxDepthMM:      cfg.Analysis.Severity.MaxDepthMM,
		},
		OutputDir: outDir,
	}
	report, err := calc.CalculateOverallSeverity(crack, depth, damage)
	if err != nil {
		return err
	}

	slog.Info("analysis complete",
		"severity", fmt.Sprintf("%.1f/100", report.OverallSeverityScore),
		"action", report.RecommendedAction,
		"damage_types", damage.DetectedDamageTypes,
		"report", filepath.Join(outDir, severity.ReportFile),
	)
	return nil
}

func extractFrames(ctx context.Context, cfg *config.Config, path string, fps int) ([]*image.Gray, error) {
	extractor := &ingest.FFmpegExtractor{}
	pre := vision.NewPreprocessor(cfg.Analysis.FrameSize)

	var frames []*image.Gray
	_, err := extractor.Extract(ctx, path, fps, cfg.Analysis.FrameSize*2, cfg.Analysis.MaxFrames,
		func(index int, frameData []byte) error {
			frame, _, ok, err := pre.ProcessFrame(frameData)
			if err != nil || !ok {
				return nil
			}
			frames = append(frames, frame)
			return nil
		})
	if err != nil {
		return nil, err
	}
	return frames, nil
}

func writeJSON(dir, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, name), data, 0o644)
}
