package service

import (
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
	"github.com/noah-isme/emr-lookup-api/pkg/export"
)

// Supported download formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

var exportHeaders = []string{
	"Date of Incident",
	"File #",
	"Nature of Complaint",
	"Location of Incident",
	"Age",
	"Race of Complainant",
	"Complainant Gender",
	"District",
}

var unsafeFilename = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
	ContentType() string
	Extension() string
}

type officerLookup interface {
	FindOfficerByID(officerID string) (models.Officer, []models.ReconciledRow, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Payload     []byte
}

// ExportService renders an officer's complaint list for download.
type ExportService struct {
	lookup    officerLookup
	renderers map[string]renderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with CSV and PDF renderers.
func NewExportService(lookup officerLookup, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		lookup: lookup,
		renderers: map[string]renderer{
			ExportFormatCSV: export.NewCSVExporter(),
			ExportFormatPDF: export.NewPDFExporter(),
		},
		logger: logger,
	}
}

// Officer renders the officer's sorted complaint list in format.
func (s *ExportService) Officer(officerID, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	officer, rows, err := s.lookup.FindOfficerByID(officerID)
	if err != nil {
		return nil, err
	}

	payload, err := r.Render(officerDataset(officer, rows))
	if err != nil {
		s.logger.Error("render export", zap.String("officer_id", officerID), zap.String("format", format), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render export")
	}

	name := unsafeFilename.ReplaceAllString(strings.ToLower(officer.LastName+"_"+officer.FirstName), "_")
	return &ExportFile{
		Filename:    fmt.Sprintf("emr_%s_%s.%s", strings.Trim(name, "_"), officer.OfficerID, r.Extension()),
		ContentType: r.ContentType(),
		Payload:     payload,
	}, nil
}

func officerDataset(officer models.Officer, rows []models.ReconciledRow) export.Dataset {
	summary := []string{"DSN: " + officer.OfficerID}
	if officer.Employed() {
		summary = append(summary,
			"Rank: "+officer.CurrentRank,
			"Assignment: "+officer.CurrentAssignment,
			"2021 Salary: "+officer.CurrentSalary)
	} else {
		summary = append(summary, models.NotEmployedMessage)
	}
	summary = append(summary, fmt.Sprintf("EMR allegations: %d", len(rows)))

	data := export.Dataset{
		Title:    officer.DisplayName(),
		Subtitle: summary,
		Headers:  exportHeaders,
		Rows:     make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		data.Rows = append(data.Rows, map[string]string{
			"Date of Incident":     row.IncidentDate,
			"File #":               row.FileNumber,
			"Nature of Complaint":  row.NatureOfComplaint,
			"Location of Incident": row.IncidentLocation,
			"Age":                  row.ComplainantAge,
			"Race of Complainant":  row.ComplainantRace,
			"Complainant Gender":   row.ComplainantGender,
			"District":             row.District,
		})
	}
	return data
}
