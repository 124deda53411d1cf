package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/td/internal/models"
	"github.com/your-org/td/internal/storage"
	"github.com/your-org/td/pkg/dto"
)

// maxVideoBytes caps an uploaded inspection video at 512 MiB.
const maxVideoBytes = 512 << 20

type InspectionHandler struct {
	db    *storage.PostgresStore
	minio *storage.MinIOStore
}

func NewInspectionHandler(db *storage.PostgresStore, minio *storage.MinIOStore) *InspectionHandler {
	return &InspectionHandler{db: db, minio: minio}
}

// Create accepts a multipart upload with a "reference" and a "damaged" video
// part plus an optional "label" field, stores both videos, and registers the
// inspection.
func (h *InspectionHandler) Create(c *gin.Context) {
	id := uuid.New()
	label := c.PostForm("label")

	refKey, err := h.storeVideo(c, id, storage.RoleReference)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	damKey, err := h.storeVideo(c, id, storage.RoleDamaged)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	in := &models.Inspection{
		Label:             label,
		ReferenceVideoKey: refKey,
		DamagedVideoKey:   damKey,
	}
	if err := h.db.CreateInspection(c.Request.Context(), in); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, inspectionToResponse(in))
}

func (h *InspectionHandler) storeVideo(c *gin.Context, inspectionID uuid.UUID, role string) (string, error) {
	fh, err := c.FormFile(role)
	if err != nil {
		return "", fmt.Errorf("missing %q video part", role)
	}
	if fh.Size > maxVideoBytes {
		return "", fmt.Errorf("%s video exceeds %d bytes", role, maxVideoBytes)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s upload: %w", role, err)
	}
	defer f.Close()

	key := storage.VideoKey(inspectionID, role)
	if err := h.minio.PutObjectStream(c.Request.Context(), key, f, fh.Size, "video/mp4"); err != nil {
		return "", fmt.Errorf("store %s video: %w", role, err)
	}
	return key, nil
}

func (h *InspectionHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
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

	c.JSON(http.StatusOK, inspectionToResponse(in))
}

func (h *InspectionHandler) List(c *gin.Context) {
	inspections, err := h.db.ListInspections(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	resp := make([]dto.InspectionResponse, 0, len(inspections))
	for _, in := range inspections {
		resp = append(resp, inspectionToResponse(&in))
	}

	c.JSON(http.StatusOK, dto.InspectionListResponse{Inspections: resp, Total: len(resp)})
}

// Delete removes the inspection row (jobs and reports cascade) and every
// stored object belonging to it.
func (h *InspectionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
		return
	}

	if err := h.db.DeleteInspection(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	for _, prefix := range []string{
		storage.VideosPrefix(id),
		storage.FramesPrefix(id, storage.RoleReference),
		storage.FramesPrefix(id, storage.RoleDamaged),
		storage.MapsPrefix(id),
		storage.ResultsPrefix(id),
	} {
		if _, err := h.minio.DeleteByPrefix(c.Request.Context(), prefix); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": fmt.Sprintf("delete objects under %s: %v", prefix, err)})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// Frame serves one processed frame as JPEG. Role is "reference" or "damaged".
func (h *InspectionHandler) Frame(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
		return
	}

	role := c.Param("role")
	if role != storage.RoleReference && role != storage.RoleDamaged {
		c.JSON(http.StatusBadRequest, gin.H{"error": "role must be reference or damaged"})
		return
	}

	index, err := strconv.Atoi(c.Param("index"))
	if err != nil || index < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid frame index"})
		return
	}

	data, err := h.minio.GetObject(c.Request.Context(), storage.FrameKey(id, role, index))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "frame not found"})
		return
	}

	c.Data(http.StatusOK, "image/jpeg", data)
}

// Similar returns prior inspections ranked by damage-signature similarity.
func (h *InspectionHandler) Similar(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid inspection id"})
		return
	}

	var req dto.SimilarRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	matches, err := h.db.SearchSimilarReports(c.Request.Context(), id, req.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if matches == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no severity report for inspection; run analysis first"})
		return
	}

	resp := make([]dto.SimilarMatch, 0, len(matches))
	for _, m := range matches {
		resp = append(resp, dto.SimilarMatch{
			InspectionID: m.InspectionID,
			Label:        m.Label,
			OverallScore: m.OverallScore,
			Action:       m.Action,
			Similarity:   m.Similarity,
		})
	}

	c.JSON(http.StatusOK, dto.SimilarResponse{Matches: resp, Total: len(resp)})
}

func inspectionToResponse(in *models.Inspection) dto.InspectionResponse {
	return dto.InspectionResponse{
		ID:                in.ID,
		Label:             in.Label,
		ReferenceVideoKey: in.ReferenceVideoKey,
		DamagedVideoKey:   in.DamagedVideoKey,
		Status:            string(in.Status),
		FrameCount:        in.FrameCount,
		CreatedAt:         in.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:         in.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
