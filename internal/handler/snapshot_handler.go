package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/emr-lookup-api/internal/dto"
	"github.com/noah-isme/emr-lookup-api/internal/service"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
	"github.com/noah-isme/emr-lookup-api/pkg/jobs"
	"github.com/noah-isme/emr-lookup-api/pkg/response"
)

type snapshotRefresher interface {
	Refresh(ctx context.Context) (*service.Snapshot, error)
}

type jobEnqueuer interface {
	Enqueue(job jobs.Job) error
}

// SnapshotHandler reports on and rebuilds the served dataset.
type SnapshotHandler struct {
	query          snapshotDescriber
	refresher      snapshotRefresher
	queue          jobEnqueuer
	refreshEnabled bool
}

// NewSnapshotHandler constructs the handler. Refresh answers 403 unless
// refreshEnabled is set.
func NewSnapshotHandler(query snapshotDescriber, refresher snapshotRefresher, queue jobEnqueuer, refreshEnabled bool) *SnapshotHandler {
	return &SnapshotHandler{query: query, refresher: refresher, queue: queue, refreshEnabled: refreshEnabled}
}

// Info godoc
// @Summary Metadata of the snapshot being served
// @Tags Snapshot
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /snapshot [get]
func (h *SnapshotHandler) Info(c *gin.Context) {
	info, err := h.query.SnapshotInfo()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, info)
}

// Refresh godoc
// @Summary Rebuild the snapshot from the table source
// @Tags Snapshot
// @Produce json
// @Param wait query bool false "Run synchronously and return the new snapshot"
// @Success 200 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /admin/refresh [post]
func (h *SnapshotHandler) Refresh(c *gin.Context) {
	if !h.refreshEnabled {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "refresh API disabled"))
		return
	}

	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))
	if !wait {
		job := jobs.Job{ID: uuid.NewString(), Type: service.JobTypeRefresh}
		if err := h.queue.Enqueue(job); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "enqueue refresh"))
			return
		}
		response.Accepted(c, gin.H{"jobId": job.ID, "status": "queued"})
		return
	}

	snap, err := h.refresher.Refresh(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.SnapshotInfo{
		Version:    snap.Version,
		LoadedAt:   snap.LoadedAt,
		Officers:   len(snap.Officers),
		Complaints: len(snap.Complaints),
		Links:      len(snap.Links),
		Rows:       len(snap.Rows),
		Stale:      snap.Stale,
	})
}
