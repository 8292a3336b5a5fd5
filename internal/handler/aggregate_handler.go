package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/emr-lookup-api/internal/dto"
	"github.com/noah-isme/emr-lookup-api/pkg/response"
)

type aggregateQueryService interface {
	Aggregate(req dto.AggregateRequest) (*dto.AggregateResponse, error)
	SnapshotInfo() (*dto.SnapshotInfo, error)
}

// AggregateHandler serves complaint breakdowns for the public charts.
type AggregateHandler struct {
	query aggregateQueryService
}

// NewAggregateHandler constructs the handler.
func NewAggregateHandler(query aggregateQueryService) *AggregateHandler {
	return &AggregateHandler{query: query}
}

// Get godoc
// @Summary Complaint counts by dimension
// @Tags Aggregates
// @Produce json
// @Param dimension path string true "race, gender, district or nature"
// @Param sort query string false "count or label"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /aggregates/{dimension} [get]
func (h *AggregateHandler) Get(c *gin.Context) {
	req := dto.AggregateRequest{Dimension: c.Param("dimension"), Sort: c.Query("sort")}
	result, err := h.query.Aggregate(req)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, h.query, result)
}
