package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/your-org/td/internal/config"
	"github.com/your-org/td/internal/models"
	"github.com/your-org/td/internal/severity"
)

type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(cfg config.DatabaseConfig) (*PostgresStore, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	poolCfg.MaxConns = int32(cfg.MaxConns)

	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// InitSchema ensures the tables and the pgvector extension exist.
func (s *PostgresStore) InitSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS inspections (
			id UUID PRIMARY KEY,
			label TEXT NOT NULL DEFAULT '',
			reference_video_key TEXT NOT NULL DEFAULT '',
			damaged_video_key TEXT NOT NULL DEFAULT '',
			status TEXT NOT NULL,
			frame_count INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS analysis_jobs (
			id UUID PRIMARY KEY,
			inspection_id UUID NOT NULL REFERENCES inspections(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			progress FLOAT8 NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			metadata JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			started_at TIMESTAMPTZ,
			completed_at TIMESTAMPTZ
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS severity_reports (
			id UUID PRIMARY KEY,
			inspection_id UUID NOT NULL REFERENCES inspections(id) ON DELETE CASCADE,
			overall_score FLOAT8 NOT NULL,
			recommended_action TEXT NOT NULL,
			report JSONB NOT NULL,
			signature vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, severity.SignatureDim),
		`CREATE INDEX IF NOT EXISTS idx_jobs_inspection ON analysis_jobs(inspection_id)`,
		`CREATE INDEX IF NOT EXISTS idx_reports_inspection ON severity_reports(inspection_id)`,
	}

	for _, stmt := range stmts {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

// --- Inspections ---

func (s *PostgresStore) CreateInspection(ctx context.Context, in *models.Inspection) error {
	in.ID = uuid.New()
	in.Status = models.InspectionStatusCreated
	return s.pool.QueryRow(ctx,
		`INSERT INTO inspections (id, label, reference_video_key, damaged_video_key, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at, updated_at`,
		in.ID, in.Label, in.ReferenceVideoKey, in.DamagedVideoKey, in.Status,
	).Scan(&in.CreatedAt, &in.UpdatedAt)
}

func (s *PostgresStore) GetInspection(ctx context.Context, id uuid.UUID) (*models.Inspection, error) {
	in := &models.Inspection{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, label, reference_video_key, damaged_video_key, status, frame_count, created_at, updated_at
		 FROM inspections WHERE id = $1`, id,
	).Scan(&in.ID, &in.Label, &in.ReferenceVideoKey, &in.DamagedVideoKey,
		&in.Status, &in.FrameCount, &in.CreatedAt, &in.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get inspection: %w", err)
	}
	return in, nil
}

func (s *PostgresStore) ListInspections(ctx context.Context) ([]models.Inspection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, reference_video_key, damaged_video_key, status, frame_count, created_at, updated_at
		 FROM inspections ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list inspections: %w", err)
	}
	defer rows.Close()

	var inspections []models.Inspection
	for rows.Next() {
		var in models.Inspection
		if err := rows.Scan(&in.ID, &in.Label, &in.ReferenceVideoKey, &in.DamagedVideoKey,
			&in.Status, &in.FrameCount, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		inspections = append(inspections, in)
	}
	return inspections, nil
}

func (s *PostgresStore) UpdateInspectionStatus(ctx context.Context, id uuid.UUID, status models.InspectionStatus) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE inspections SET status = $1, updated_at = now() WHERE id = $2`,
		status, id)
	return err
}

func (s *PostgresStore) UpdateInspectionFrameCount(ctx context.Context, id uuid.UUID, frameCount int) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE inspections SET frame_count = $1, updated_at = now() WHERE id = $2`,
		frameCount, id)
	return err
}

func (s *PostgresStore) DeleteInspection(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM inspections WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete inspection: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("inspection not found")
	}
	return nil
}

// ListCompletedBefore returns inspections whose analysis completed before the
// cutoff, for frame retention sweeps.
func (s *PostgresStore) ListCompletedBefore(ctx context.Context, cutoff time.Time) ([]models.Inspection, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, label, reference_video_key, damaged_video_key, status, frame_count, created_at, updated_at
		 FROM inspections WHERE status = $1 AND updated_at < $2`,
		models.InspectionStatusCompleted, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list completed inspections: %w", err)
	}
	defer rows.Close()

	var inspections []models.Inspection
	for rows.Next() {
		var in models.Inspection
		if err := rows.Scan(&in.ID, &in.Label, &in.ReferenceVideoKey, &in.DamagedVideoKey,
			&in.Status, &in.FrameCount, &in.CreatedAt, &in.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan inspection: %w", err)
		}
		inspections = append(inspections, in)
	}
	return inspections, nil
}

// --- Analysis Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, job *models.AnalysisJob) error {
	job.ID = uuid.New()
	job.Status = models.JobStatusQueued
	if job.Metadata == nil {
		job.Metadata = json.RawMessage("{}")
	}
	return s.pool.QueryRow(ctx,
		`INSERT INTO analysis_jobs (id, inspection_id, kind, status, progress, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		job.ID, job.InspectionID, job.Kind, job.Status, job.Progress, job.Metadata,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.AnalysisJob, error) {
	job := &models.AnalysisJob{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, inspection_id, kind, status, progress, error, metadata, created_at, updated_at, started_at, completed_at
		 FROM analysis_jobs WHERE id = $1`, id,
	).Scan(&job.ID, &job.InspectionID, &job.Kind, &job.Status, &job.Progress,
		&job.Error, &job.Metadata, &job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, inspectionID uuid.UUID) ([]models.AnalysisJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, inspection_id, kind, status, progress, error, metadata, created_at, updated_at, started_at, completed_at
		 FROM analysis_jobs WHERE inspection_id = $1 ORDER BY created_at DESC`, inspectionID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []models.AnalysisJob
	for rows.Next() {
		var job models.AnalysisJob
		if err := rows.Scan(&job.ID, &job.InspectionID, &job.Kind, &job.Status, &job.Progress,
			&job.Error, &job.Metadata, &job.CreatedAt, &job.UpdatedAt, &job.StartedAt, &job.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// MarkJobStarted transitions a job to processing and stamps started_at.
func (s *PostgresStore) MarkJobStarted(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE analysis_jobs SET status = $1, started_at = now(), updated_at = now() WHERE id = $2`,
		models.JobStatusProcessing, id)
	return err
}

func (s *PostgresStore) UpdateJobProgress(ctx context.Context, id uuid.UUID, progress float64) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE analysis_jobs SET progress = $1, updated_at = now() WHERE id = $2`,
		progress, id)
	return err
}

// MarkJobCompleted finishes a job, storing whatever stage metadata the
// worker produced.
func (s *PostgresStore) MarkJobCompleted(ctx context.Context, id uuid.UUID, metadata json.RawMessage) error {
	if metadata == nil {
		metadata = json.RawMessage("{}")
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE analysis_jobs SET status = $1, progress = 1.0, metadata = $2, completed_at = now(), updated_at = now()
		 WHERE id = $3`,
		models.JobStatusCompleted, metadata, id)
	return err
}

func (s *PostgresStore) MarkJobFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE analysis_jobs SET status = $1, error = $2, completed_at = now(), updated_at = now() WHERE id = $3`,
		models.JobStatusFailed, errMsg, id)
	return err
}

// --- Severity Reports ---

// SavedReport is a persisted severity report row.
type SavedReport struct {
	ID           uuid.UUID       `json:"id"`
	InspectionID uuid.UUID       `json:"inspection_id"`
	OverallScore float64         `json:"overall_score"`
	Action       string          `json:"recommended_action"`
	Report       json.RawMessage `json:"report"`
	CreatedAt    time.Time       `json:"created_at"`
}

// SaveReport stores a severity report document together with its damage
// signature for vector similarity search.
func (s *PostgresStore) SaveReport(ctx context.Context, inspectionID uuid.UUID, report *severity.Report) (*SavedReport, error) {
	doc, err := json.Marshal(report)
	if err != nil {
		return nil, fmt.Errorf("marshal report: %w", err)
	}

	saved := &SavedReport{
		ID:           uuid.New(),
		InspectionID: inspectionID,
		OverallScore: report.OverallSeverityScore,
		Action:       string(report.RecommendedAction),
		Report:       doc,
	}
	vec := pgvector.NewVector(severity.Signature(report))

	err = s.pool.QueryRow(ctx,
		`INSERT INTO severity_reports (id, inspection_id, overall_score, recommended_action, report, signature)
		 VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`,
		saved.ID, saved.InspectionID, saved.OverallScore, saved.Action, saved.Report, vec,
	).Scan(&saved.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("save report: %w", err)
	}
	return saved, nil
}

// GetLatestReport returns the most recent report for an inspection, nil if none.
func (s *PostgresStore) GetLatestReport(ctx context.Context, inspectionID uuid.UUID) (*SavedReport, error) {
	r := &SavedReport{}
	err := s.pool.QueryRow(ctx,
		`SELECT id, inspection_id, overall_score, recommended_action, report, created_at
		 FROM severity_reports WHERE inspection_id = $1 ORDER BY created_at DESC LIMIT 1`, inspectionID,
	).Scan(&r.ID, &r.InspectionID, &r.OverallScore, &r.Action, &r.Report, &r.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get latest report: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) getReportSignature(ctx context.Context, inspectionID uuid.UUID) (*pgvector.Vector, error) {
	var vec pgvector.Vector
	err := s.pool.QueryRow(ctx,
		`SELECT signature FROM severity_reports WHERE inspection_id = $1 ORDER BY created_at DESC LIMIT 1`,
		inspectionID,
	).Scan(&vec)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get report signature: %w", err)
	}
	return &vec, nil
}

type SimilarReport struct {
	InspectionID uuid.UUID `json:"inspection_id"`
	Label        string    `json:"label"`
	OverallScore float64   `json:"overall_score"`
	Action       string    `json:"recommended_action"`
	Similarity   float64   `json:"similarity"`
}

// SearchSimilarReports finds prior inspections whose damage signature is
// closest to the given inspection's latest report, by cosine similarity.
// Returns nil when the inspection has no report yet.
func (s *PostgresStore) SearchSimilarReports(ctx context.Context, inspectionID uuid.UUID, limit int) ([]SimilarReport, error) {
	if limit <= 0 {
		limit = 5
	}

	vec, err := s.getReportSignature(ctx, inspectionID)
	if err != nil {
		return nil, err
	}
	if vec == nil {
		return nil, nil
	}

	// Latest report per inspection, then rank by cosine similarity.
	rows, err := s.pool.Query(ctx,
		`SELECT inspection_id, label, overall_score, recommended_action, similarity FROM (
			SELECT DISTINCT ON (sr.inspection_id)
				sr.inspection_id, i.label, sr.overall_score, sr.recommended_action,
				1 - (sr.signature <=> $1) AS similarity
			FROM severity_reports sr
			JOIN inspections i ON i.id = sr.inspection_id
			WHERE sr.inspection_id != $2
			ORDER BY sr.inspection_id, sr.created_at DESC
		) latest ORDER BY similarity DESC LIMIT $3`,
		*vec, inspectionID, limit)
	if err != nil {
		return nil, fmt.Errorf("search similar reports: %w", err)
	}
	defer rows.Close()

	matches := []SimilarReport{}
	for rows.Next() {
		var m SimilarReport
		if err := rows.Scan(&m.InspectionID, &m.Label, &m.OverallScore, &m.Action, &m.Similarity); err != nil {
			return nil, fmt.Errorf("scan similar report: %w", err)
		}
		matches = append(matches, m)
	}
	return matches, nil
}
