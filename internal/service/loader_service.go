package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

// TableSource fetches a named table as a rectangular grid of text cells with
// the header in the first row.
type TableSource interface {
	FetchTable(ctx context.Context, name string) (models.Grid, error)
}

// Column headers of the canonical EMR workbook.
const (
	colDSN        = "DSN"
	colLastName   = "Last Name"
	colFirstName  = "First Name"
	colRank       = "Rank"
	colAssignment = "2020 Assignment"
	colSalary     = "FY 2021 Salary"

	colFileNumber = "File #"
	colDate       = "Date of Incident"
	colLocation   = "Location of Incident"
	colNature     = "Nature of Complaint"
	colStatement  = "Redacted Complainant's Statement"
	colAge        = "Age"
	colRace       = "Race of Complainant"
	colGender     = "Complainant Gender"
	colDistrict   = "District"
	colCity       = "City"
	colOnDuty     = "On-Duty"

	colIncidentAssignment = "Assignment"
)

type tableSchema struct {
	name     string
	required []string
	optional []string
}

var (
	officersSchema = tableSchema{
		name:     models.TableOfficers,
		required: []string{colDSN, colLastName, colFirstName, colRank, colAssignment, colSalary},
	}
	complaintsSchema = tableSchema{
		name: models.TableComplaints,
		required: []string{colFileNumber, colDate, colLocation, colNature, colStatement, colAge,
			colRace, colGender, colDistrict, colCity, colOnDuty},
		optional: []string{colRank, colIncidentAssignment},
	}
	linksSchema = tableSchema{
		name:     models.TableOfficersComplaints,
		required: []string{colDSN, colFileNumber},
		optional: []string{colRank, colIncidentAssignment, colDistrict},
	}
)

// Tables holds the typed contents of the three source tables.
type Tables struct {
	Officers   []models.Officer
	Complaints []models.Complaint
	Links      []models.OfficerComplaintLink
	// Stale lists tables served from the last-known-good cache.
	Stale []string
}

// LoaderConfig bounds fetch time and retry behaviour.
type LoaderConfig struct {
	FetchTimeout   time.Duration
	MaxAttempts    int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	CachePrefix    string
}

// LoadOptions tune a single load.
type LoadOptions struct {
	// AllowCached permits falling back to the last-known-good copy of a table
	// when the source cannot be reached.
	AllowCached bool
}

// LoaderService reads and types the three raw tables.
type LoaderService struct {
	source  TableSource
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     LoaderConfig
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewLoaderService constructs a LoaderService. cache and metrics may be nil.
func NewLoaderService(source TableSource, cache *CacheService, metrics *MetricsService, cfg LoaderConfig, logger *zap.Logger) *LoaderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = 15 * time.Second
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 500 * time.Millisecond
	}
	if cfg.RetryMaxDelay < cfg.RetryBaseDelay {
		cfg.RetryMaxDelay = cfg.RetryBaseDelay
	}
	if cfg.CachePrefix == "" {
		cfg.CachePrefix = "emr:table"
	}
	return &LoaderService{source: source, cache: cache, metrics: metrics, logger: logger, cfg: cfg, sleep: sleepContext}
}

// Load fetches all three tables and maps them to typed records.
func (s *LoaderService) Load(ctx context.Context, opts LoadOptions) (*Tables, error) {
	tables := &Tables{}

	grid, stale, err := s.fetch(ctx, models.TableOfficers, opts)
	if err != nil {
		return nil, err
	}
	if tables.Officers, err = parseOfficers(grid); err != nil {
		return nil, err
	}
	if stale {
		tables.Stale = append(tables.Stale, models.TableOfficers)
	}

	if grid, stale, err = s.fetch(ctx, models.TableComplaints, opts); err != nil {
		return nil, err
	}
	if tables.Complaints, err = parseComplaints(grid); err != nil {
		return nil, err
	}
	if stale {
		tables.Stale = append(tables.Stale, models.TableComplaints)
	}

	if grid, stale, err = s.fetch(ctx, models.TableOfficersComplaints, opts); err != nil {
		return nil, err
	}
	if tables.Links, err = parseLinks(grid); err != nil {
		return nil, err
	}
	if stale {
		tables.Stale = append(tables.Stale, models.TableOfficersComplaints)
	}

	s.logger.Info("tables loaded",
		zap.Int("officers", len(tables.Officers)),
		zap.Int("complaints", len(tables.Complaints)),
		zap.Int("links", len(tables.Links)),
		zap.Strings("stale", tables.Stale),
	)
	return tables, nil
}

// fetch retrieves one table with retries, then falls back to the cache when
// allowed. The bool result reports a cache fallback.
func (s *LoaderService) fetch(ctx context.Context, name string, opts LoadOptions) (models.Grid, bool, error) {
	grid, err := s.fetchWithRetry(ctx, name)
	if err == nil {
		if s.cache.Enabled() {
			if cacheErr := s.cache.Set(ctx, s.cacheKey(name), grid, 0); cacheErr != nil {
				s.logger.Debug("last-known-good copy not updated", zap.String("table", name), zap.Error(cacheErr))
			}
		}
		return grid, false, nil
	}
	if !opts.AllowCached || !errors.Is(err, appErrors.ErrSourceUnavailable) || ctx.Err() != nil {
		return nil, false, err
	}

	var cached models.Grid
	hit, cacheErr := s.cache.Get(ctx, s.cacheKey(name), &cached)
	if cacheErr != nil || !hit {
		return nil, false, err
	}
	s.logger.Warn("serving table from last-known-good cache", zap.String("table", name), zap.Error(err))
	return cached, true, nil
}

func (s *LoaderService) fetchWithRetry(ctx context.Context, name string) (models.Grid, error) {
	var lastErr error
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			delay := backoffDelay(s.cfg.RetryBaseDelay, s.cfg.RetryMaxDelay, attempt-1)
			s.logger.Warn("table fetch failed, retrying",
				zap.String("table", name), zap.Int("attempt", attempt), zap.Duration("delay", delay), zap.Error(lastErr))
			if err := s.sleep(ctx, delay); err != nil {
				return nil, appErrors.Wrapf(appErrors.ErrSourceUnavailable, lastErr, "fetch %s: %v", name, err)
			}
		}

		grid, err := s.fetchOnce(ctx, name)
		if err == nil {
			return grid, nil
		}
		if !errors.Is(err, appErrors.ErrSourceUnavailable) {
			return nil, err
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, lastErr
}

func (s *LoaderService) fetchOnce(ctx context.Context, name string) (models.Grid, error) {
	fetchCtx, cancel := context.WithTimeout(ctx, s.cfg.FetchTimeout)
	defer cancel()

	start := time.Now()
	grid, err := s.source.FetchTable(fetchCtx, name)
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.ObserveTableFetch(name, result, time.Since(start))

	if err != nil {
		var appErr *appErrors.Error
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, appErrors.Wrapf(appErrors.ErrSourceUnavailable, err, "fetch table %s", name)
	}
	return grid, nil
}

func (s *LoaderService) cacheKey(name string) string {
	return s.cfg.CachePrefix + ":" + name
}

// backoffDelay doubles base per retry, capped at limit.
func backoffDelay(base, limit time.Duration, retry int) time.Duration {
	delay := base
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	if delay > limit {
		return limit
	}
	return delay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// tableView resolves columns by header name over a grid's data rows.
type tableView struct {
	columns map[string]int
	rows    [][]string
}

func newTableView(grid models.Grid, schema tableSchema) (*tableView, error) {
	if len(grid) == 0 {
		return nil, appErrors.Clone(appErrors.ErrSchemaMismatch, fmt.Sprintf("table %s has no header row", schema.name))
	}
	columns := make(map[string]int, len(grid[0]))
	for i, header := range grid[0] {
		header = strings.TrimSpace(header)
		if _, dup := columns[header]; !dup && header != "" {
			columns[header] = i
		}
	}
	var missing []string
	for _, col := range schema.required {
		if _, ok := columns[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.Clone(appErrors.ErrSchemaMismatch,
			fmt.Sprintf("table %s is missing column(s): %s", schema.name, strings.Join(missing, ", ")))
	}

	rows := make([][]string, 0, len(grid)-1)
	for _, row := range grid[1:] {
		if isBlankRow(row) {
			continue
		}
		rows = append(rows, row)
	}
	return &tableView{columns: columns, rows: rows}, nil
}

// cell returns the trimmed value of col in row, or "" when the column is
// absent or the row is short.
func (v *tableView) cell(row []string, col string) string {
	idx, ok := v.columns[col]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func parseOfficers(grid models.Grid) ([]models.Officer, error) {
	view, err := newTableView(grid, officersSchema)
	if err != nil {
		return nil, err
	}
	officers := make([]models.Officer, 0, len(view.rows))
	for _, row := range view.rows {
		officers = append(officers, models.Officer{
			OfficerID:         view.cell(row, colDSN),
			LastName:          view.cell(row, colLastName),
			FirstName:         view.cell(row, colFirstName),
			CurrentRank:       view.cell(row, colRank),
			CurrentAssignment: view.cell(row, colAssignment),
			CurrentSalary:     view.cell(row, colSalary),
		})
	}
	return officers, nil
}

func parseComplaints(grid models.Grid) ([]models.Complaint, error) {
	view, err := newTableView(grid, complaintsSchema)
	if err != nil {
		return nil, err
	}
	complaints := make([]models.Complaint, 0, len(view.rows))
	for _, row := range view.rows {
		complaints = append(complaints, models.Complaint{
			FileNumber:        view.cell(row, colFileNumber),
			IncidentDate:      view.cell(row, colDate),
			IncidentLocation:  view.cell(row, colLocation),
			NatureOfComplaint: view.cell(row, colNature),
			RedactedStatement: view.cell(row, colStatement),
			ComplainantAge:    view.cell(row, colAge),
			ComplainantRace:   view.cell(row, colRace),
			ComplainantGender: view.cell(row, colGender),
			District:          view.cell(row, colDistrict),
			City:              view.cell(row, colCity),
			OnDuty:            view.cell(row, colOnDuty),
			Rank:              view.cell(row, colRank),
			Assignment:        view.cell(row, colIncidentAssignment),
		})
	}
	return complaints, nil
}

func parseLinks(grid models.Grid) ([]models.OfficerComplaintLink, error) {
	view, err := newTableView(grid, linksSchema)
	if err != nil {
		return nil, err
	}
	links := make([]models.OfficerComplaintLink, 0, len(view.rows))
	for _, row := range view.rows {
		links = append(links, models.OfficerComplaintLink{
			OfficerID:  view.cell(row, colDSN),
			FileNumber: view.cell(row, colFileNumber),
			Rank:       view.cell(row, colRank),
			Assignment: view.cell(row, colIncidentAssignment),
			District:   view.cell(row, colDistrict),
		})
	}
	return links, nil
}
