package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-timetable/internal/dto"
	"github.com/noah-isme/sma-timetable/internal/service"
	"github.com/noah-isme/sma-timetable/pkg/response"
)

type timetableArchive interface {
	Links(ctx context.Context, id string) ([]dto.ArchiveLink, error)
	Open(token string) (*service.ArchivedFile, error)
}

// TimetableArchiveHandler serves archived PDFs of published timetables.
type TimetableArchiveHandler struct {
	archive timetableArchive
}

// NewTimetableArchiveHandler constructs the handler.
func NewTimetableArchiveHandler(archive *service.TimetableArchive) *TimetableArchiveHandler {
	return &TimetableArchiveHandler{archive: archive}
}

// RegisterRoutes mounts the archive endpoints on group.
func (h *TimetableArchiveHandler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/timetables/saved/:id/archive", h.Links)
	group.GET("/timetables/archive/:token", h.Download)
}

// Links godoc
// @Summary Signed download links for a published version
// @Tags Timetable Versions
// @Produce json
// @Param id path string true "Saved timetable ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/saved/{id}/archive [get]
func (h *TimetableArchiveHandler) Links(c *gin.Context) {
	links, err := h.archive.Links(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	ready := 0
	for _, link := range links {
		if link.Ready {
			ready++
		}
	}
	response.JSON(c, http.StatusOK, links, map[string]interface{}{"ready": ready, "total": len(links)})
}

// Download godoc
// @Summary Download an archived class timetable
// @Tags Timetable Versions
// @Produce application/pdf
// @Param token path string true "Signed token"
// @Success 200 {file} file
// @Router /timetables/archive/{token} [get]
func (h *TimetableArchiveHandler) Download(c *gin.Context) {
	file, err := h.archive.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.File.Close()
	response.Stream(c, file.Name, "application/pdf", file.Size, file.File)
}
