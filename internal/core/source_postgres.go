package core

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/lexia/internal/tablequery"
	"github.com/jackc/pgx/v5"
)

// Querier is the read side of a pgx connection.
// Satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresSource reads views straight from the consulta_judicial database
// using each view's SQL.
type PostgresSource struct {
	db Querier
}

// NewPostgresSource creates a source over a pgx pool or connection.
func NewPostgresSource(db Querier) *PostgresSource {
	return &PostgresSource{db: db}
}

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Fetch(ctx context.Context, def ViewDefinition) ([]tablequery.Record, error) {
	if def.Query == "" {
		return nil, fmt.Errorf("unknown view: %s has no query", def.Info.Key)
	}

	rows, err := s.db.Query(ctx, def.Query)
	if err != nil {
		return nil, fmt.Errorf("%w: query %s: %v", ErrSourceUnavailable, def.Info.Key, err)
	}

	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrSourceUnavailable, def.Info.Key, err)
	}

	records := make([]tablequery.Record, len(maps))
	for i, m := range maps {
		rec := make(tablequery.Record, len(m))
		for k, v := range m {
			rec[k] = RecordValue(v)
		}
		records[i] = rec
	}
	return records, nil
}
