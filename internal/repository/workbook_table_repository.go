package repository

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/noah-isme/emr-lookup-api/internal/models"
	appErrors "github.com/noah-isme/emr-lookup-api/pkg/errors"
)

// WorkbookTableRepository reads tables from an .xlsx export of the EMR
// spreadsheet, one worksheet per table. The file is reopened on every fetch
// so a replaced export is picked up by the next refresh.
type WorkbookTableRepository struct {
	path string
}

// NewWorkbookTableRepository constructs a workbook-backed table source.
func NewWorkbookTableRepository(path string) *WorkbookTableRepository {
	return &WorkbookTableRepository{path: path}
}

// FetchTable returns the rows of the worksheet called name.
func (r *WorkbookTableRepository) FetchTable(ctx context.Context, name string) (models.Grid, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := excelize.OpenFile(r.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", r.path, err)
	}
	defer f.Close()

	if idx, err := f.GetSheetIndex(name); err != nil || idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrSchemaMismatch,
			fmt.Sprintf("worksheet %s not found in %s", name, r.path))
	}

	rows, err := f.GetRows(name)
	if err != nil {
		return nil, fmt.Errorf("read worksheet %s: %w", name, err)
	}
	return models.Grid(rows), nil
}
