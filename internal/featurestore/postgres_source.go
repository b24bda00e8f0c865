package featurestore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"
)

// PostgresSource reads the dataset from a table with a bigint user_id column
// and a json/jsonb features column.
type PostgresSource struct {
	db    *sql.DB
	table string
}

func NewPostgresSource(db *sql.DB, table string) *PostgresSource {
	return &PostgresSource{db: db, table: table}
}

func (s *PostgresSource) Name() string {
	return "postgres:" + s.table
}

func (s *PostgresSource) query() string {
	return fmt.Sprintf("SELECT user_id, features FROM %s", pq.QuoteIdentifier(s.table))
}

func (s *PostgresSource) Load(ctx context.Context) (map[int64]Record, error) {
	rows, err := s.db.QueryContext(ctx, s.query())
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	records := make(map[int64]Record)
	for rows.Next() {
		var (
			id  int64
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan %s: %w", s.table, err)
		}
		if _, dup := records[id]; dup {
			return nil, fmt.Errorf("duplicate user id %d in %s", id, s.table)
		}
		record, err := decodeRecord(raw)
		if err != nil {
			return nil, fmt.Errorf("user %d: %w", id, err)
		}
		records[id] = record
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", s.table, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("table %s has no rows", s.table)
	}
	return records, nil
}
