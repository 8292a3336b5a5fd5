package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/emr-lookup-api/internal/models"
)

// PostgresTableRepository reads tables loaded into PostgreSQL with the
// workbook's column headers as (quoted) column names. Every value is read
// back as text; NULL becomes an empty cell.
type PostgresTableRepository struct {
	db     *sqlx.DB
	schema string
}

// NewPostgresTableRepository constructs a Postgres-backed table source.
func NewPostgresTableRepository(db *sqlx.DB, schema string) *PostgresTableRepository {
	if schema == "" {
		schema = "public"
	}
	return &PostgresTableRepository{db: db, schema: schema}
}

// FetchTable returns the table as a grid whose header row is the column list.
func (r *PostgresTableRepository) FetchTable(ctx context.Context, name string) (models.Grid, error) {
	query := fmt.Sprintf("SELECT * FROM %s.%s", pq.QuoteIdentifier(r.schema), pq.QuoteIdentifier(name))
	rows, err := r.db.QueryxContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query table %s: %w", name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns of %s: %w", name, err)
	}

	grid := models.Grid{columns}
	values := make([]sql.NullString, len(columns))
	dest := make([]interface{}, len(columns))
	for i := range values {
		dest[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan table %s: %w", name, err)
		}
		record := make([]string, len(columns))
		for i, v := range values {
			record[i] = v.String
		}
		grid = append(grid, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate table %s: %w", name, err)
	}
	return grid, nil
}
