package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/models"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/internal/timetable"
	appErrors "github.com/noah-isme/sma-timetable/pkg/errors"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

const (
	maxSubjects    = 256
	maxAssignments = 4096
)

type timetableEngine interface {
	Classify(ctx context.Context, req dto.ClassifySubjectsRequest) (*dto.ClassifySubjectsResponse, error)
	DefaultConfig(days int) timetable.SchoolTimeConfig
	Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.TimetableRunResponse, error)
	GetRun(ctx context.Context, runID string) (*dto.TimetableRunResponse, error)
	DiscardRun(ctx context.Context, runID string) error
	Rebalance(ctx context.Context, runID string, req dto.RebalanceTimetableRequest) (*dto.RebalanceTimetableResponse, error)
	Save(ctx context.Context, runID string, req dto.SaveTimetableRequest) (*dto.SavedTimetableResponse, error)
	Export(ctx context.Context, runID string, query dto.ExportTimetableQuery) (*service.ExportedTimetable, error)
	List(ctx context.Context, query dto.TimetableQuery) ([]models.TimetableRun, error)
	Blocks(ctx context.Context, id string) ([]models.TimetableBlock, error)
	Publish(ctx context.Context, id string) (*models.TimetableRun, error)
	Delete(ctx context.Context, id string) error
}

// TimetableHandler exposes timetable engine endpoints.
type TimetableHandler struct {
	service timetableEngine
}

// NewTimetableHandler constructs the handler.
func NewTimetableHandler(svc *service.TimetableService) *TimetableHandler {
	return &TimetableHandler{service: svc}
}

// RegisterRoutes mounts the timetable endpoints on group.
func (h *TimetableHandler) RegisterRoutes(group *gin.RouterGroup) {
	timetables := group.Group("/timetables")
	timetables.GET("", h.List)
	timetables.GET("/default-config", h.DefaultConfig)
	timetables.POST("/classify", h.Classify)
	timetables.POST("/generate", h.Generate)
	timetables.GET("/runs/:id", h.GetRun)
	timetables.DELETE("/runs/:id", h.DiscardRun)
	timetables.POST("/runs/:id/rebalance", h.Rebalance)
	timetables.POST("/runs/:id/save", h.Save)
	timetables.GET("/runs/:id/export", h.Export)
	timetables.GET("/saved/:id/blocks", h.Blocks)
	timetables.POST("/saved/:id/publish", h.Publish)
	timetables.DELETE("/saved/:id", h.Delete)
}

// Classify godoc
// @Summary Derive weekly periods per subject
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.ClassifySubjectsRequest true "Subjects with load facts"
// @Success 200 {object} response.Envelope
// @Router /timetables/classify [post]
func (h *TimetableHandler) Classify(c *gin.Context) {
	var req dto.ClassifySubjectsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid classify payload"))
		return
	}
	if len(req.Subjects) > maxSubjects {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subjects exceeds supported limit"))
		return
	}
	result, err := h.service.Classify(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// DefaultConfig godoc
// @Summary Standard school week
// @Description Monday-first week starting 09:00 and ending 17:00 with morning break, lunch and afternoon break.
// @Tags Timetable
// @Produce json
// @Param days query int false "5 or 6"
// @Success 200 {object} response.Envelope
// @Router /timetables/default-config [get]
func (h *TimetableHandler) DefaultConfig(c *gin.Context) {
	var query dto.DefaultConfigQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid days"))
		return
	}
	if query.Days != 0 && query.Days != 5 && query.Days != 6 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "days must be 5 or 6"))
		return
	}
	response.JSON(c, http.StatusOK, h.service.DefaultConfig(query.Days))
}

// Generate godoc
// @Summary Generate timetables for every class of a school
// @Description Runs classification, grid building, allocation and free-time filling. Validation and under-allocation diagnostics are returned in the body.
// @Tags Timetable
// @Accept json
// @Produce json
// @Param payload body dto.GenerateTimetableRequest true "Generation payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/generate [post]
func (h *TimetableHandler) Generate(c *gin.Context) {
	var req dto.GenerateTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	if len(req.Subjects) > maxSubjects || len(req.Assignments) > maxAssignments {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "payload exceeds supported limit"))
		return
	}
	result, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, result, map[string]interface{}{"complete": result.Diagnostics.Empty()})
}

// GetRun godoc
// @Summary Get a generated run
// @Tags Timetable
// @Produce json
// @Param id path string true "Run ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id} [get]
func (h *TimetableHandler) GetRun(c *gin.Context) {
	result, err := h.service.GetRun(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Rebalance godoc
// @Summary Rebuild one class day after its anchors changed
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.RebalanceTimetableRequest true "New day anchors"
// @Success 200 {object} response.Envelope
// @Router /timetables/runs/{id}/rebalance [post]
func (h *TimetableHandler) Rebalance(c *gin.Context) {
	var req dto.RebalanceTimetableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid rebalance payload"))
		return
	}
	result, err := h.service.Rebalance(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Save godoc
// @Summary Save a run as a draft version
// @Tags Timetable
// @Accept json
// @Produce json
// @Param id path string true "Run ID"
// @Param payload body dto.SaveTimetableRequest false "Extra metadata"
// @Success 201 {object} response.Envelope
// @Router /timetables/runs/{id}/save [post]
func (h *TimetableHandler) Save(c *gin.Context) {
	var req dto.SaveTimetableRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid save payload"))
			return
		}
	}
	result, err := h.service.Save(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Export godoc
// @Summary Download a class week
// @Tags Timetable
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Run ID"
// @Param classId query string true "Class ID"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /timetables/runs/{id}/export [get]
func (h *TimetableHandler) Export(c *gin.Context) {
	query := dto.ExportTimetableQuery{
		ClassID: c.Query("classId"),
		Format:  c.Query("format"),
	}
	file, err := h.service.Export(c.Request.Context(), c.Param("id"), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// List godoc
// @Summary List saved timetable versions
// @Tags Timetable
// @Produce json
// @Param schoolId query string true "School ID"
// @Param termId query string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /timetables [get]
func (h *TimetableHandler) List(c *gin.Context) {
	query := dto.TimetableQuery{
		SchoolID: c.Query("schoolId"),
		TermID:   c.Query("termId"),
	}
	result, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Blocks godoc
// @Summary Get stored blocks of a saved version
// @Tags Timetable
// @Produce json
// @Param id path string true "Saved timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/saved/{id}/blocks [get]
func (h *TimetableHandler) Blocks(c *gin.Context) {
	blocks, err := h.service.Blocks(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks)
}

// Publish godoc
// @Summary Publish a saved version
// @Description Archives the previously published version of the same school and term.
// @Tags Timetable
// @Produce json
// @Param id path string true "Saved timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/saved/{id}/publish [post]
func (h *TimetableHandler) Publish(c *gin.Context) {
	record, err := h.service.Publish(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// Delete godoc
// @Summary Delete a draft version
// @Tags Timetable
// @Param id path string true "Saved timetable ID"
// @Success 204
// @Router /timetables/saved/{id} [delete]
func (h *TimetableHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// DiscardRun godoc
// @Summary Drop an unsaved run
// @Tags Timetable
// @Param id path string true "Run ID"
// @Success 204
// @Router /timetables/runs/{id} [delete]
func (h *TimetableHandler) DiscardRun(c *gin.Context) {
	if err := h.service.DiscardRun(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
