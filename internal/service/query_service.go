package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/emr-lookup-api/internal/dto"
	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

// QueryService answers read requests against the published snapshot. It
// never mutates the snapshot and holds no locks on the read path.
type QueryService struct {
	store     *SnapshotStore
	validator *validator.Validate
	window    string
	logger    *zap.Logger
}

// NewQueryService constructs a QueryService reading from store.
func NewQueryService(store *SnapshotStore, validate *validator.Validate, window string, logger *zap.Logger) *QueryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &QueryService{store: store, validator: validate, window: window, logger: logger}
	svc.validator.RegisterValidation("dimension", func(fl validator.FieldLevel) bool {
		_, err := models.ParseDimension(fl.Field().String())
		return err == nil
	})
	return svc
}

func (s *QueryService) snapshot() (*Snapshot, error) {
	snap := s.store.Current()
	if snap == nil {
		return nil, appErrors.ErrSnapshotNotReady
	}
	return snap, nil
}

// FindOfficer looks up an officer by exact display name ("Last, First").
// Surrounding whitespace is ignored; nothing else is normalised.
func (s *QueryService) FindOfficer(displayName string) (models.Officer, error) {
	snap, err := s.snapshot()
	if err != nil {
		return models.Officer{}, err
	}
	return snap.FindOfficer(displayName)
}

// FindOfficer looks up an officer by exact display name within the snapshot.
func (snap *Snapshot) FindOfficer(displayName string) (models.Officer, error) {
	idx, ok := snap.officerByName[strings.TrimSpace(displayName)]
	if !ok {
		return models.Officer{}, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
	}
	return snap.Officers[idx], nil
}

// ListComplaints returns the officer's complaint rows sorted by incident
// date, oldest first, blank or unparseable dates first. It returns an empty
// slice for an officer without complaints.
func (s *QueryService) ListComplaints(officerID string) ([]models.ReconciledRow, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return snap.ListComplaints(officerID), nil
}

// ListComplaints returns a fresh copy of the sorted complaint rows of the
// first roster entry carrying officerID. Linked rows for a DSN missing from
// the roster are listed under that DSN alone.
func (snap *Snapshot) ListComplaints(officerID string) []models.ReconciledRow {
	if i, ok := snap.officerByID[officerID]; ok {
		return snap.OfficerComplaints(snap.Officers[i])
	}
	return snap.complaintRows(rosterKey{officerID: officerID})
}

// OfficerComplaints returns the sorted complaint rows joined to this roster
// entry only.
func (snap *Snapshot) OfficerComplaints(officer models.Officer) []models.ReconciledRow {
	return snap.complaintRows(officerKey(officer))
}

func (snap *Snapshot) complaintRows(key rosterKey) []models.ReconciledRow {
	idx := snap.complaints[key]
	rows := make([]models.ReconciledRow, 0, len(idx))
	for _, i := range idx {
		rows = append(rows, snap.Rows[i])
	}
	return rows
}

// GetComplaintDetail resolves index within a list previously returned by
// ListComplaints.
func (s *QueryService) GetComplaintDetail(rows []models.ReconciledRow, index int) (models.ReconciledRow, error) {
	return GetComplaintDetail(rows, index)
}

// GetComplaintDetail returns rows[index] or INDEX_OUT_OF_RANGE. The index is
// never clamped.
func GetComplaintDetail(rows []models.ReconciledRow, index int) (models.ReconciledRow, error) {
	if index < 0 || index >= len(rows) {
		return models.ReconciledRow{}, appErrors.Clone(appErrors.ErrIndexOutOfRange,
			fmt.Sprintf("row index %d outside list of %d", index, len(rows)))
	}
	return rows[index], nil
}

// SearchOfficer resolves a name to the officer summary plus the full sorted
// complaint list. A miss yields Found=false rather than an error.
func (s *QueryService) SearchOfficer(req dto.OfficerSearchRequest) (*dto.OfficerSearchResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "name is required")
	}
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	resp := &dto.OfficerSearchResponse{Query: req.Name, Complaints: []dto.ComplaintListItem{}}
	officer, err := snap.FindOfficer(req.Name)
	if err != nil {
		if errors.Is(err, appErrors.ErrNotFound) {
			return resp, nil
		}
		return nil, err
	}
	resp.Found = true
	resp.Officer = dto.NewOfficerSummary(officer)
	resp.Complaints = dto.NewComplaintList(snap.OfficerComplaints(officer))
	return resp, nil
}

// ComplaintDetail lists the officer's complaints and resolves index in that
// list, mirroring a row selection in the results table.
func (s *QueryService) ComplaintDetail(officerID string, index int) (*dto.ComplaintDetail, error) {
	rows, err := s.ListComplaints(officerID)
	if err != nil {
		return nil, err
	}
	row, err := GetComplaintDetail(rows, index)
	if err != nil {
		return nil, err
	}
	detail := dto.NewComplaintDetail(index, row)
	return &detail, nil
}

// OfficerNames returns the distinct display names for autocomplete, in
// English collation order.
func (s *QueryService) OfficerNames() ([]string, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return append([]string(nil), snap.names...), nil
}

// Aggregate returns the precomputed breakdown for the requested dimension.
func (s *QueryService) Aggregate(req dto.AggregateRequest) (*dto.AggregateResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status,
			fmt.Sprintf("dimension must be one of %v and sort one of count, label", models.Dimensions))
	}
	dimension, _ := models.ParseDimension(req.Dimension)
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	agg, ok := snap.Aggregates[dimension]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown dimension %q", dimension))
	}
	items := agg.Items
	if req.Sort == dto.AggregateSortCount {
		items = SortByCount(items)
	}
	return &dto.AggregateResponse{Dimension: dimension, Window: s.window, Items: items, Total: agg.Total}, nil
}

// SnapshotInfo describes the snapshot currently serving.
func (s *QueryService) SnapshotInfo() (*dto.SnapshotInfo, error) {
	snap, err := s.snapshot()
	if err != nil {
		return nil, err
	}
	return &dto.SnapshotInfo{
		Version:    snap.Version,
		LoadedAt:   snap.LoadedAt,
		Officers:   len(snap.Officers),
		Complaints: len(snap.Complaints),
		Links:      len(snap.Links),
		Rows:       len(snap.Rows),
		Stale:      snap.Stale,
	}, nil
}

// FindOfficerByID returns the roster entry for officerID with its sorted
// complaint rows.
func (s *QueryService) FindOfficerByID(officerID string) (models.Officer, []models.ReconciledRow, error) {
	snap, err := s.snapshot()
	if err != nil {
		return models.Officer{}, nil, err
	}
	if i, ok := snap.officerByID[officerID]; ok {
		officer := snap.Officers[i]
		return officer, snap.OfficerComplaints(officer), nil
	}
	return models.Officer{}, nil, appErrors.Clone(appErrors.ErrNotFound, "officer not found")
}
