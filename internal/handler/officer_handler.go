package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/emr-lookup-api/internal/dto"
	"github.com/noah-isme/emr-lookup-api/internal/middleware"
	"github.com/noah-isme/emr-lookup-api/internal/models"
	"github.com/noah-isme/emr-lookup-api/internal/service"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
	"github.com/noah-isme/emr-lookup-api/pkg/response"
)

type officerQueryService interface {
	OfficerNames() ([]string, error)
	SearchOfficer(req dto.OfficerSearchRequest) (*dto.OfficerSearchResponse, error)
	ListComplaints(officerID string) ([]models.ReconciledRow, error)
	ComplaintDetail(officerID string, index int) (*dto.ComplaintDetail, error)
	SnapshotInfo() (*dto.SnapshotInfo, error)
}

type officerExportService interface {
	Officer(officerID, format string) (*service.ExportFile, error)
}

// OfficerHandler serves officer lookups and complaint drill-downs.
type OfficerHandler struct {
	query  officerQueryService
	export officerExportService
}

// NewOfficerHandler constructs the handler.
func NewOfficerHandler(query officerQueryService, export officerExportService) *OfficerHandler {
	return &OfficerHandler{query: query, export: export}
}

// Names godoc
// @Summary Officer name suggestions
// @Tags Officers
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /officers/names [get]
func (h *OfficerHandler) Names(c *gin.Context) {
	names, err := h.query.OfficerNames()
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, h.query, names)
}

// Search godoc
// @Summary Search officer by "Last, First" name
// @Tags Officers
// @Produce json
// @Param name query string true "Officer display name"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /officers/search [get]
func (h *OfficerHandler) Search(c *gin.Context) {
	var req dto.OfficerSearchRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query"))
		return
	}
	result, err := h.query.SearchOfficer(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, h.query, result)
}

// Complaints godoc
// @Summary Officer complaints ordered by incident date
// @Tags Officers
// @Produce json
// @Param id path string true "Officer DSN"
// @Success 200 {object} response.Envelope
// @Router /officers/{id}/complaints [get]
func (h *OfficerHandler) Complaints(c *gin.Context) {
	rows, err := h.query.ListComplaints(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, h.query, dto.NewComplaintList(rows))
}

// ComplaintDetail godoc
// @Summary Complaint detail by position in the officer's list
// @Tags Officers
// @Produce json
// @Param id path string true "Officer DSN"
// @Param index path int true "Zero-based row index"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /officers/{id}/complaints/{index} [get]
func (h *OfficerHandler) ComplaintDetail(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "index must be an integer"))
		return
	}
	detail, err := h.query.ComplaintDetail(c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, h.query, detail)
}

// Export godoc
// @Summary Download an officer's complaint list
// @Tags Officers
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Officer DSN"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /officers/{id}/complaints/export [get]
func (h *OfficerHandler) Export(c *gin.Context) {
	if h.export == nil {
		response.Error(c, appErrors.ErrInternal)
		return
	}
	file, err := h.export.Officer(c.Param("id"), strings.TrimSpace(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Payload)
}

type snapshotDescriber interface {
	SnapshotInfo() (*dto.SnapshotInfo, error)
}

// respond writes data with the serving snapshot recorded in the meta block.
func respond(c *gin.Context, snaps snapshotDescriber, data interface{}) {
	if info, err := snaps.SnapshotInfo(); err == nil {
		middleware.SetSnapshot(c, info.Version, info.LoadedAt)
	}
	response.JSON(c, http.StatusOK, data, middleware.ExtractMeta(c))
}
