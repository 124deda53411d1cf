// Package pipeline orchestrates the analysis stages of one inspection:
// preprocessing, crack detection, depth estimation, damage classification
// and severity calculation, each runnable as a standalone job or chained as
// a full inspection.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/ingest"
	"github.com/your-org/td/internal/models"
	"github.com/your-org/td/internal/observability"
	"github.com/your-org/td/internal/queue"
	"github.com/your-org/td/internal/severity"
	"github.com/your-org/td/internal/storage"
	"github.com/your-org/td/internal/vision"
)

type Pipeline struct {
	db       *storage.PostgresStore
	objects  *storage.MinIOStore
	producer *queue.Producer
	cfg      *config.Config

	extractor  *ingest.FFmpegExtractor
	crack      *vision.CrackDetector
	depth      *vision.DepthEstimator
	classifier *vision.DamageClassifier
}

func New(db *storage.PostgresStore, objects *storage.MinIOStore, producer *queue.Producer, cfg *config.Config) *Pipeline {
	return &Pipeline{
		db:         db,
		objects:    objects,
		producer:   producer,
		cfg:        cfg,
		extractor:  &ingest.FFmpegExtractor{},
		crack:      vision.NewCrackDetector(cfg.Analysis.Crack),
		depth:      vision.NewDepthEstimator(cfg.Analysis.Depth),
		classifier: vision.NewDamageClassifier(cfg.Analysis.Classify.PresenceRatio),
	}
}

type progressFn func(ctx context.Context, fraction float64)

// Run executes one analysis task end to end, including job lifecycle
// bookkeeping and progress events.
func (p *Pipeline) Run(ctx context.Context, task models.AnalysisTask) error {
	insp, err := p.db.GetInspection(ctx, task.InspectionID)
	if err != nil {
		return err
	}
	if insp == nil {
		// Inspection deleted while queued; nothing to retry.
		slog.Warn("task for missing inspection", "inspection_id", task.InspectionID, "job_id", task.JobID)
		return nil
	}

	if err := p.db.MarkJobStarted(ctx, task.JobID); err != nil {
		return err
	}
	p.setInspectionStatus(ctx, insp.ID, models.InspectionStatusAnalyzing)
	p.publishEvent(ctx, task, models.JobStatusProcessing, 0, "")

	start := time.Now()
	progress := func(ctx context.Context, fraction float64) {
		_ = p.db.UpdateJobProgress(ctx, task.JobID, fraction)
		p.publishEvent(ctx, task, models.JobStatusProcessing, fraction, "")
	}

	metadata, err := p.runStage(ctx, task, insp, progress)

	observability.JobDuration.WithLabelValues(string(task.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		observability.JobsTotal.WithLabelValues(string(task.Kind), string(models.JobStatusFailed)).Inc()
		if dbErr := p.db.MarkJobFailed(ctx, task.JobID, err.Error()); dbErr != nil {
			slog.Warn("mark job failed", "job_id", task.JobID, "error", dbErr)
		}
		p.setInspectionStatus(ctx, insp.ID, models.InspectionStatusFailed)
		p.publishEvent(ctx, task, models.JobStatusFailed, 0, err.Error())
		return err
	}

	observability.JobsTotal.WithLabelValues(string(task.Kind), string(models.JobStatusCompleted)).Inc()
	if err := p.db.MarkJobCompleted(ctx, task.JobID, metadata); err != nil {
		return err
	}
	if task.Kind == models.JobKindSeverityCalculation || task.Kind == models.JobKindFullInspection {
		p.setInspectionStatus(ctx, insp.ID, models.InspectionStatusCompleted)
	}
	p.publishEvent(ctx, task, models.JobStatusCompleted, 1.0, "")
	return nil
}

func (p *Pipeline) runStage(ctx context.Context, task models.AnalysisTask, insp *models.Inspection, progress progressFn) (json.RawMessage, error) {
	switch task.Kind {
	case models.JobKindPreprocess:
		meta, err := p.Preprocess(ctx, insp, task.FPS, progress)
		if err != nil {
			return nil, err
		}
		return json.Marshal(meta)

	case models.JobKindCrackDetection:
		agg, err := p.DetectCracks(ctx, insp, progress)
		if err != nil {
			return nil, err
		}
		return marshalSummary(agg)

	case models.JobKindDepthEstimation:
		agg, err := p.EstimateDepth(ctx, insp, progress)
		if err != nil {
			return nil, err
		}
		return marshalSummary(agg)

	case models.JobKindDamageClassification:
		agg, err := p.ClassifyDamage(ctx, insp, progress)
		if err != nil {
			return nil, err
		}
		return marshalSummary(agg)

	case models.JobKindSeverityCalculation:
		report, err := p.CalculateSeverity(ctx, insp, progress)
		if err != nil {
			return nil, err
		}
		return json.Marshal(map[string]any{
			"overall_severity_score": report.OverallSeverityScore,
			"recommended_action":     report.RecommendedAction,
		})

	case models.JobKindFullInspection:
		return p.FullInspection(ctx, insp, task.FPS, progress)

	default:
		return nil, fmt.Errorf("unknown job kind %q", task.Kind)
	}
}

// marshalSummary drops the frame_results tail when embedding an aggregate in
// job metadata; the full document lives in object storage.
func marshalSummary(v any) (json.RawMessage, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	delete(m, "frame_results")
	return json.Marshal(m)
}

func (p *Pipeline) publishEvent(ctx context.Context, task models.AnalysisTask, status models.JobStatus, fraction float64, errMsg string) {
	err := p.producer.PublishJobEvent(ctx, models.JobEvent{
		JobID:        task.JobID,
		InspectionID: task.InspectionID,
		Kind:         task.Kind,
		Status:       status,
		Progress:     fraction,
		Error:        errMsg,
		Timestamp:    time.Now(),
	})
	if err != nil {
		slog.Warn("publish job event", "job_id", task.JobID, "error", err)
	}
}

// setInspectionStatus is best-effort bookkeeping: a failure must not abort
// the job, but it is worth a warning.
func (p *Pipeline) setInspectionStatus(ctx context.Context, id uuid.UUID, status models.InspectionStatus) {
	if err := p.db.UpdateInspectionStatus(ctx, id, status); err != nil {
		slog.Warn("update inspection status", "inspection_id", id, "status", status, "error", err)
	}
}

// stageTimer records a stage's wall time on completion.
func stageTimer(stage string) func() {
	start := time.Now()
	return func() {
		observability.StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
	}
}

// --- Stage: preprocess ---

// Preprocess extracts frames from both inspection videos, localizes the tyre
// in each, and stores the normalized frames plus per-role metadata.
func (p *Pipeline) Preprocess(ctx context.Context, insp *models.Inspection, fps int, progress progressFn) (map[string]models.PreprocessMetadata, error) {
	defer stageTimer("preprocess")()
	if fps <= 0 {
		fps = p.cfg.Analysis.FPS
	}

	meta := make(map[string]models.PreprocessMetadata, 2)
	roles := []struct {
		role string
		key  string
	}{
		{storage.RoleReference, insp.ReferenceVideoKey},
		{storage.RoleDamaged, insp.DamagedVideoKey},
	}

	for ri, r := range roles {
		m, err := p.preprocessVideo(ctx, insp, r.role, r.key, fps, func(ctx context.Context, f float64) {
			progress(ctx, (float64(ri)+f)/2)
		})
		if err != nil {
			return nil, fmt.Errorf("preprocess %s video: %w", r.role, err)
		}
		meta[r.role] = m
	}

	// Timeline coverage is bounded by the shorter role.
	frameCount := meta[storage.RoleReference].TotalFrames
	if meta[storage.RoleDamaged].TotalFrames < frameCount {
		frameCount = meta[storage.RoleDamaged].TotalFrames
	}
	if err := p.db.UpdateInspectionFrameCount(ctx, insp.ID, frameCount); err != nil {
		return nil, err
	}

	data, err := json.Marshal(meta)
	if err != nil {
		return nil, err
	}
	if err := p.objects.PutObject(ctx, storage.ResultKey(insp.ID, models.PreprocessMetadataFile), data, "application/json"); err != nil {
		return nil, err
	}
	return meta, nil
}

func (p *Pipeline) preprocessVideo(ctx context.Context, insp *models.Inspection, role, videoKey string, fps int, progress progressFn) (models.PreprocessMetadata, error) {
	var meta models.PreprocessMetadata
	if videoKey == "" {
		return meta, fmt.Errorf("no %s video uploaded", role)
	}

	videoData, err := p.objects.GetObject(ctx, videoKey)
	if err != nil {
		return meta, err
	}

	tmpDir, err := os.MkdirTemp("", "td-preprocess-")
	if err != nil {
		return meta, err
	}
	defer os.RemoveAll(tmpDir)

	videoPath := filepath.Join(tmpDir, role+".mp4")
	if err := os.WriteFile(videoPath, videoData, 0o644); err != nil {
		return meta, err
	}

	pre := vision.NewPreprocessor(p.cfg.Analysis.FrameSize)
	maxFrames := p.cfg.Analysis.MaxFrames
	processed := 0

	_, err = p.extractor.Extract(ctx, videoPath, fps, p.cfg.Analysis.FrameSize*2, maxFrames,
		func(index int, frameData []byte) error {
			frame, _, ok, err := pre.ProcessFrame(frameData)
			if err != nil {
				slog.Warn("skip undecodable frame", "role", role, "index", index, "error", err)
				return nil
			}
			if !ok {
				// No tyre circle in this frame.
				return nil
			}

			jpegData, err := vision.EncodeJPEG(frame, 90)
			if err != nil {
				return err
			}
			key := storage.FrameKey(insp.ID, role, processed)
			if err := p.objects.PutObject(ctx, key, jpegData, "image/jpeg"); err != nil {
				return err
			}
			processed++
			observability.FramesExtracted.WithLabelValues(role).Inc()
			if maxFrames > 0 && index%10 == 0 {
				progress(ctx, float64(index)/float64(maxFrames))
			}
			return nil
		})
	if err != nil {
		return meta, err
	}

	return models.PreprocessMetadata{
		VideoKey:     videoKey,
		TotalFrames:  processed,
		FPS:          fps,
		AvgCircle:    pre.AvgCircle(),
		FramesPrefix: storage.FramesPrefix(insp.ID, role),
	}, nil
}

// --- Stage: crack detection ---

func (p *Pipeline) DetectCracks(ctx context.Context, insp *models.Inspection, progress progressFn) (models.CrackAnalysis, error) {
	defer stageTimer("crack")()
	refKeys, damKeys, err := p.framePairs(ctx, insp.ID)
	if err != nil {
		return models.CrackAnalysis{}, err
	}

	frames := make([]models.CrackFrameMetrics, 0, len(damKeys))
	for i, damKey := range damKeys {
		ref, dam, err := p.loadPair(ctx, refKeys, damKey, i)
		if err != nil {
			return models.CrackAnalysis{}, err
		}

		out := p.crack.AnalyzeFrame(i, ref, dam)
		frames = append(frames, out.Metrics)

		binPNG, err := vision.EncodePNG(out.Binary)
		if err != nil {
			return models.CrackAnalysis{}, err
		}
		if err := p.objects.PutObject(ctx, storage.CrackBinaryKey(insp.ID, i), binPNG, "image/png"); err != nil {
			return models.CrackAnalysis{}, err
		}
		mapPNG, err := vision.EncodePNG(out.Overlay)
		if err != nil {
			return models.CrackAnalysis{}, err
		}
		if err := p.objects.PutObject(ctx, storage.CrackMapKey(insp.ID, i), mapPNG, "image/png"); err != nil {
			return models.CrackAnalysis{}, err
		}

		observability.FramesAnalyzed.WithLabelValues("crack").Inc()
		progress(ctx, float64(i+1)/float64(len(damKeys)))
	}

	agg := vision.AggregateCracks(frames)
	if err := p.putResultJSON(ctx, insp.ID, models.CrackResultsFile, agg); err != nil {
		return models.CrackAnalysis{}, err
	}
	return agg, nil
}

// --- Stage: depth estimation ---

func (p *Pipeline) EstimateDepth(ctx context.Context, insp *models.Inspection, progress progressFn) (models.DepthAnalysis, error) {
	defer stageTimer("depth")()
	refKeys, damKeys, err := p.framePairs(ctx, insp.ID)
	if err != nil {
		return models.DepthAnalysis{}, err
	}

	frames := make([]models.DepthFrameMetrics, 0, len(damKeys))
	for i, damKey := range damKeys {
		ref, dam, err := p.loadPair(ctx, refKeys, damKey, i)
		if err != nil {
			return models.DepthAnalysis{}, err
		}
		if ref == nil {
			return models.DepthAnalysis{}, fmt.Errorf("depth estimation needs a reference frame for index %d", i)
		}

		frames = append(frames, p.depth.EstimateFrame(i, ref, dam))
		observability.FramesAnalyzed.WithLabelValues("depth").Inc()
		progress(ctx, float64(i+1)/float64(len(damKeys)))
	}

	agg := vision.AggregateDepth(frames)
	if err := p.putResultJSON(ctx, insp.ID, models.DepthResultsFile, agg); err != nil {
		return models.DepthAnalysis{}, err
	}
	return agg, nil
}

// --- Stage: damage classification ---

func (p *Pipeline) ClassifyDamage(ctx context.Context, insp *models.Inspection, progress progressFn) (models.DamageAnalysis, error) {
	defer stageTimer("classify")()
	_, damKeys, err := p.framePairs(ctx, insp.ID)
	if err != nil {
		return models.DamageAnalysis{}, err
	}

	frames := make([]models.DamageFrameMetrics, 0, len(damKeys))
	for i, damKey := range damKeys {
		damData, err := p.objects.GetObject(ctx, damKey)
		if err != nil {
			return models.DamageAnalysis{}, err
		}
		damImg, err := vision.DecodeImage(damData)
		if err != nil {
			return models.DamageAnalysis{}, err
		}
		damGray := vision.ToGray(damImg)

		// The binary crack map comes from the crack detection stage.
		crackBin, err := p.loadCrackBinary(ctx, insp.ID, i, damGray.Rect.Dx(), damGray.Rect.Dy())
		if err != nil {
			return models.DamageAnalysis{}, err
		}

		frames = append(frames, p.classifier.ClassifyFrame(i, damGray, crackBin))
		observability.FramesAnalyzed.WithLabelValues("classify").Inc()
		progress(ctx, float64(i+1)/float64(len(damKeys)))
	}

	agg := p.classifier.Aggregate(frames)
	if err := p.putResultJSON(ctx, insp.ID, models.DamageResultsFile, agg); err != nil {
		return models.DamageAnalysis{}, err
	}
	return agg, nil
}

func (p *Pipeline) loadCrackBinary(ctx context.Context, inspectionID uuid.UUID, index, w, h int) (*image.Gray, error) {
	data, err := p.objects.GetObject(ctx, storage.CrackBinaryKey(inspectionID, index))
	if err != nil {
		// No map for this frame: classify against an empty crack map rather
		// than failing the whole stage.
		return image.NewGray(image.Rect(0, 0, w, h)), nil
	}
	img, err := vision.DecodeImage(data)
	if err != nil {
		return nil, err
	}
	return vision.ToGray(img), nil
}

// --- Stage: severity calculation ---

func (p *Pipeline) CalculateSeverity(ctx context.Context, insp *models.Inspection, progress progressFn) (*severity.Report, error) {
	var crack models.CrackAnalysis
	if err := p.getResultJSON(ctx, insp.ID, models.CrackResultsFile, &crack); err != nil {
		return nil, err
	}
	var depth models.DepthAnalysis
	if err := p.getResultJSON(ctx, insp.ID, models.DepthResultsFile, &depth); err != nil {
		return nil, err
	}
	var damage models.DamageAnalysis
	if err := p.getResultJSON(ctx, insp.ID, models.DamageResultsFile, &damage); err != nil {
		return nil, err
	}
	progress(ctx, 0.3)

	return p.severityFromAggregates(ctx, insp, crack, depth, damage)
}

func (p *Pipeline) severityFromAggregates(ctx context.Context, insp *models.Inspection, crack models.CrackAnalysis, depth models.DepthAnalysis, damage models.DamageAnalysis) (*severity.Report, error) {
	defer stageTimer("severity")()
	tmpDir, err := os.MkdirTemp("", "td-severity-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	calc := severity.Calculator{
		Scorer: severity.Scorer{
			MaxCrackDensity: p.cfg.Analysis.Severity.MaxCrackDensity,
			MaxDepthMM:      p.cfg.Analysis.Severity.MaxDepthMM,
		},
		OutputDir: tmpDir,
	}
	report, err := calc.CalculateOverallSeverity(crack, depth, damage)
	if err != nil {
		return nil, err
	}

	doc, err := os.ReadFile(filepath.Join(tmpDir, severity.ReportFile))
	if err != nil {
		return nil, err
	}
	if err := p.objects.PutObject(ctx, storage.ResultKey(insp.ID, severity.ReportFile), doc, "application/json"); err != nil {
		return nil, err
	}

	if _, err := p.db.SaveReport(ctx, insp.ID, report); err != nil {
		return nil, err
	}

	observability.SeverityScore.Observe(report.OverallSeverityScore)
	slog.Info("severity report ready",
		"inspection_id", insp.ID,
		"score", report.OverallSeverityScore,
		"action", report.RecommendedAction,
	)
	return report, nil
}

// --- Stage: full inspection ---

// FullInspection chains all five stages, scaling each stage's progress into
// its fifth of the whole.
func (p *Pipeline) FullInspection(ctx context.Context, insp *models.Inspection, fps int, progress progressFn) (json.RawMessage, error) {
	scale := func(stage int) progressFn {
		return func(ctx context.Context, f float64) {
			progress(ctx, (float64(stage)+f)/5)
		}
	}

	if _, err := p.Preprocess(ctx, insp, fps, scale(0)); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	crack, err := p.DetectCracks(ctx, insp, scale(1))
	if err != nil {
		return nil, fmt.Errorf("crack detection: %w", err)
	}
	depth, err := p.EstimateDepth(ctx, insp, scale(2))
	if err != nil {
		return nil, fmt.Errorf("depth estimation: %w", err)
	}
	damage, err := p.ClassifyDamage(ctx, insp, scale(3))
	if err != nil {
		return nil, fmt.Errorf("damage classification: %w", err)
	}
	report, err := p.severityFromAggregates(ctx, insp, crack, depth, damage)
	if err != nil {
		return nil, fmt.Errorf("severity calculation: %w", err)
	}
	progress(ctx, 1.0)

	return json.Marshal(map[string]any{
		"overall_severity_score": report.OverallSeverityScore,
		"recommended_action":     report.RecommendedAction,
		"timeline_points":        len(report.SeverityTimeline),
	})
}

// --- Retention ---

// SweepFrames deletes processed frames and crack maps of inspections whose
// analysis completed before the configured retention window. Videos and
// result documents are kept.
func (p *Pipeline) SweepFrames(ctx context.Context) {
	cutoff := time.Now().Add(-p.cfg.Storage.FrameRetention)
	inspections, err := p.db.ListCompletedBefore(ctx, cutoff)
	if err != nil {
		slog.Error("retention sweep: list inspections", "error", err)
		return
	}

	for _, insp := range inspections {
		removed := 0
		for _, prefix := range []string{
			storage.FramesPrefix(insp.ID, storage.RoleReference),
			storage.FramesPrefix(insp.ID, storage.RoleDamaged),
			storage.MapsPrefix(insp.ID),
		} {
			n, err := p.objects.DeleteByPrefix(ctx, prefix)
			if err != nil {
				slog.Warn("retention sweep: delete prefix", "prefix", prefix, "error", err)
				continue
			}
			removed += n
		}
		if removed > 0 {
			slog.Info("retention sweep removed frames", "inspection_id", insp.ID, "objects", removed)
		}
	}
}

// --- helpers ---

// framePairs lists both roles' processed frames. The damaged sequence drives
// iteration; the reference list may be shorter or empty (positional join,
// missing reference frames degrade gracefully per stage).
func (p *Pipeline) framePairs(ctx context.Context, inspectionID uuid.UUID) (refKeys, damKeys []string, err error) {
	refKeys, err = p.objects.ListObjects(ctx, storage.FramesPrefix(inspectionID, storage.RoleReference))
	if err != nil {
		return nil, nil, err
	}
	damKeys, err = p.objects.ListObjects(ctx, storage.FramesPrefix(inspectionID, storage.RoleDamaged))
	if err != nil {
		return nil, nil, err
	}
	if len(damKeys) == 0 {
		return nil, nil, fmt.Errorf("no processed frames; run preprocess first")
	}
	sort.Strings(refKeys)
	sort.Strings(damKeys)
	return refKeys, damKeys, nil
}

func (p *Pipeline) loadPair(ctx context.Context, refKeys []string, damKey string, i int) (ref, dam image.Image, err error) {
	damData, err := p.objects.GetObject(ctx, damKey)
	if err != nil {
		return nil, nil, err
	}
	dam, err = vision.DecodeImage(damData)
	if err != nil {
		return nil, nil, err
	}

	if i < len(refKeys) {
		refData, err := p.objects.GetObject(ctx, refKeys[i])
		if err != nil {
			return nil, nil, err
		}
		ref, err = vision.DecodeImage(refData)
		if err != nil {
			return nil, nil, err
		}
	}
	return ref, dam, nil
}

func (p *Pipeline) putResultJSON(ctx context.Context, inspectionID uuid.UUID, filename string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filename, err)
	}
	return p.objects.PutObject(ctx, storage.ResultKey(inspectionID, filename), data, "application/json")
}

func (p *Pipeline) getResultJSON(ctx context.Context, inspectionID uuid.UUID, filename string, v any) error {
	data, err := p.objects.GetObject(ctx, storage.ResultKey(inspectionID, filename))
	if err != nil {
		return fmt.Errorf("load %s (has its stage run?): %w", filename, err)
	}
	return json.Unmarshal(data, v)
}
