package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/td/internal/models"
	"github.com/your-org/td/internal/queue"
	"github.com/your-org/td/internal/storage"
	"github.com/your-org/td/pkg/dto"
)

type JobHandler struct {
	db       *storage.PostgresStore
	producer *queue.Producer
}

func NewJobHandler(db *storage.PostgresStore, producer *queue.Producer) *JobHandler {
	return &JobHandler{db: db, producer: producer}
}

// Analyze queues an analysis job of the requested kind against an inspection.
func (h *JobHandler) Analyze(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
		return
	}

	var req dto.AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	kind := models.JobKind(req.Kind)
	if !kind.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown job kind " + req.Kind})
		return
	}

	in, err := h.db.GetInspection(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if in == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "inspection not found"})
		return
	}

	job := &models.AnalysisJob{
		InspectionID: id,
		Kind:         kind,
	}
	if err := h.db.CreateJob(c.Request.Context(), job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	task := models.AnalysisTask{
		JobID:        job.ID,
		InspectionID: id,
		Kind:         kind,
		FPS:          req.FPS,
	}
	if err := h.producer.PublishTask(c.Request.Context(), task); err != nil {
		_ = h.db.MarkJobFailed(c.Request.Context(), job.ID, "failed to queue task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to queue task"})
		return
	}

	_ = h.producer.PublishJobEvent(c.Request.Context(), models.JobEvent{
		JobID:        job.ID,
		InspectionID: id,
		Kind:         kind,
		Status:       models.JobStatusQueued,
		Timestamp:    time.Now(),
	})

	c.JSON(http.StatusAccepted, dto.AnalyzeResponse{
		JobID:   job.ID,
		Status:  string(models.JobStatusQueued),
		Message: "analysis queued",
	})
}

func (h *JobHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
		return
	}

	job, err := h.db.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if job == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}

	c.JSON(http.StatusOK, jobToResponse(job))
}

func (h *JobHandler) List(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
		return
	}

	jobs, err := h.db.ListJobs(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.JobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, jobToResponse(&jobs[i]))
	}

	c.JSON(http.StatusOK, dto.JobListResponse{Jobs: resp, Total: len(resp)})
}

func jobToResponse(job *models.AnalysisJob) dto.JobResponse {
	r := dto.JobResponse{
		JobID:        job.ID,
		InspectionID: job.InspectionID,
		Kind:         string(job.Kind),
		Status:       string(job.Status),
		Progress:     job.Progress,
		Metadata:     job.Metadata,
		Error:        job.Error,
		CreatedAt:    job.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if job.StartedAt != nil {
		r.StartedAt = job.StartedAt.Format("2006-01-02T15:04:05Z")
	}
	if job.CompletedAt != nil {
		r.CompletedAt = job.CompletedAt.Format("2006-01-02T15:04:05Z")
	}
	return r
}
