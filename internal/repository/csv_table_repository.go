package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/noah-isme/emr-lookup-api/internal/models"
)

// CSVTableRepository reads <dir>/<name>.csv files exported from the
// spreadsheet.
type CSVTableRepository struct {
	dir string
}

// NewCSVTableRepository constructs a directory-backed table source.
func NewCSVTableRepository(dir string) *CSVTableRepository {
	return &CSVTableRepository{dir: dir}
}

// FetchTable parses the CSV file for name. Ragged rows are accepted; the
// loader pads short rows.
func (r *CSVTableRepository) FetchTable(ctx context.Context, name string) (models.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := filepath.Join(r.dir, name+".csv")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = strings.TrimPrefix(records[0][0], "\uFEFF")
	}
	return models.Grid(records), nil
}
