package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/td/internal/models"
	"github.com/your-org/td/internal/severity"
	"github.com/your-org/td/internal/storage"
	"github.com/your-org/td/pkg/dto"
)

// resultFiles maps a result kind in the URL to its stored document.
var resultFiles = map[string]string{
	"preprocess": models.PreprocessMetadataFile,
	"crack":      models.CrackResultsFile,
	"depth":      models.DepthResultsFile,
	"damage":     models.DamageResultsFile,
	"severity":   severity.ReportFile,
}

type ReportHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
}

func NewReportHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *ReportHandler {
	return &ReportHandler{db: db, minio: minio}
}

// Report returns the latest persisted severity report for an inspection.
func (h *ReportHandler) Report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
		return
	}

	r, err := h.db.GetLatestReport(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if r == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no severity report for inspection"})
		return
	}

	c.JSON(http.StatusOK, dto.ReportResponse{
		ID:           r.ID,
		InspectionID: r.InspectionID,
		OverallScore: r.OverallScore,
		Action:       r.Action,
		Report:       r.Report,
		CreatedAt:    r.CreatedAt.Format("2006-01-02T15:04:05Z"),
	})
}

// Results serves a raw stage result document from object storage. Kind is
// one of preprocess, crack, depth, damage, severity.
func (h *ReportHandler) Results(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
		return
	}

	filename, ok := resultFiles[c.Param("kind")]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown result kind"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), storage.ResultKey(id, filename))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "result not found; has its stage run?"})
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}
