package dto

import (
	"time"

	"github.com/noah-isme/emr-lookup-api/internal/models"
)

// Aggregate orderings.
const (
	AggregateSortLabel = "label"
	AggregateSortCount = "count"
)

// AggregateRequest selects a breakdown. Sort defaults to first-seen label order.
type AggregateRequest struct {
	Dimension string `uri:"dimension" validate:"required,dimension"`
	Sort      string `form:"sort" validate:"omitempty,oneof=count label"`
}

// AggregateResponse carries label/count pairs for one chart.
type AggregateResponse struct {
	Dimension models.Dimension    `json:"dimension"`
	Window    string              `json:"window"`
	Items     []models.LabelCount `json:"items"`
	Total     int                 `json:"total"`
}

// SnapshotInfo describes the dataset currently served.
type SnapshotInfo struct {
	Version    string    `json:"version"`
	LoadedAt   time.Time `json:"loadedAt"`
	Officers   int       `json:"officers"`
	Complaints int       `json:"complaints"`
	Links      int       `json:"links"`
	Rows       int       `json:"rows"`
	Stale      []string  `json:"stale,omitempty"`
}
