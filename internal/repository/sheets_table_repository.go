package repository

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

// SheetsConfig configures the Google Sheets values API source.
type SheetsConfig struct {
	BaseURL           string
	SpreadsheetID     string
	APIKey            string
	RequestsPerSecond float64
}

// unparsableRangeMessage is how the values API reports a range naming no
// worksheet. Other 400s (bad API key, disabled API) are source failures.
const unparsableRangeMessage = "Unable to parse range"

type sheetsValues struct {
	Range          string     `json:"range"`
	MajorDimension string     `json:"majorDimension"`
	Values         [][]string `json:"values"`
}

type sheetsError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// SheetsTableRepository reads worksheets of the EMR spreadsheet. Each table
// name is the worksheet title.
type SheetsTableRepository struct {
	client        *resty.Client
	limiter       *rate.Limiter
	spreadsheetID string
	apiKey        string
	logger        *zap.Logger
}

// NewSheetsTableRepository constructs a Sheets-backed table source. Calls
// are rate limited; retries are left to the loader.
func NewSheetsTableRepository(cfg SheetsConfig, logger *zap.Logger) *SheetsTableRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = 1
	}
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(30*time.Second).
		SetHeader("Accept", "application/json")

	return &SheetsTableRepository{
		client:        client,
		limiter:       rate.NewLimiter(rate.Limit(rps), 1),
		spreadsheetID: cfg.SpreadsheetID,
		apiKey:        cfg.APIKey,
		logger:        logger,
	}
}

// FetchTable returns the worksheet's formatted cell values, header first.
func (r *SheetsTableRepository) FetchTable(ctx context.Context, name string) (models.Grid, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait failed: %w", err)
	}

	var result sheetsValues
	var apiErr sheetsError
	resp, err := r.client.R().
		SetContext(ctx).
		SetPathParams(map[string]string{
			"spreadsheetId": r.spreadsheetID,
			"range":         "'" + name + "'",
		}).
		SetQueryParams(map[string]string{
			"key":               r.apiKey,
			"majorDimension":    "ROWS",
			"valueRenderOption": "FORMATTED_VALUE",
		}).
		SetResult(&result).
		SetError(&apiErr).
		Get("/{spreadsheetId}/values/{range}")
	if err != nil {
		return nil, fmt.Errorf("sheets request for %s: %w", name, err)
	}

	switch {
	case resp.IsSuccess():
	case resp.StatusCode() == http.StatusBadRequest && strings.Contains(apiErr.Error.Message, unparsableRangeMessage):
		return nil, appErrors.Clone(appErrors.ErrSchemaMismatch,
			fmt.Sprintf("worksheet %s not found: %s", name, apiErr.Error.Message))
	default:
		r.logger.Warn("sheets api error",
			zap.String("table", name),
			zap.Int("status_code", resp.StatusCode()),
			zap.String("status", apiErr.Error.Status),
		)
		return nil, fmt.Errorf("sheets api returned %d for %s: %s", resp.StatusCode(), name, apiErr.Error.Message)
	}

	r.logger.Debug("fetched worksheet", zap.String("table", name), zap.Int("rows", len(result.Values)))
	return models.Grid(result.Values), nil
}
