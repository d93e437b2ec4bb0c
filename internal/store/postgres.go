package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver

	"github.com/breathesafe/air-quality-service/internal/models"
)

// PostgresStore reads measurements from PostgreSQL via database/sql with the
// pgx driver. The measurements table is owned by the ingestion service; this
// store only selects from it.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a connection pool for the given DSN and verifies
// connectivity before returning.
func NewPostgresStore(dsn string, maxOpenConns int, connTimeout time.Duration) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
		db.SetMaxIdleConns(maxOpenConns / 2)
	}
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), connTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

const measurementColumns = `id, node_id, user_id, recorded_at, latitude, longitude, o3_value, co_value, no2_value`

// FindMeasurements implements Store. Results are ordered ascending by
// timestamp at the query level.
func (s *PostgresStore) FindMeasurements(ctx context.Context, f Filter) ([]models.Measurement, error) {
	query := `SELECT ` + measurementColumns + `
		FROM measurements
		WHERE recorded_at >= $1 AND recorded_at < $2`
	args := []any{f.Range.Start, f.Range.End}
	if f.UserID != "" {
		query += ` AND user_id = $3`
		args = append(args, f.UserID)
	}
	query += ` ORDER BY recorded_at ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("find measurements: %w", err)
	}
	defer rows.Close()

	var out []models.Measurement
	for rows.Next() {
		m, err := scanMeasurement(rows)
		if err != nil {
			return nil, fmt.Errorf("find measurements: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find measurements: %w", err)
	}
	return out, nil
}

// LastMeasurement implements Store. Returns ok=false when the user has no
// measurements at all.
func (s *PostgresStore) LastMeasurement(ctx context.Context, userID string) (models.Measurement, bool, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+measurementColumns+`
		FROM measurements
		WHERE user_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1`, userID)
	m, err := scanMeasurement(row)
	if err == sql.ErrNoRows {
		return models.Measurement{}, false, nil
	}
	if err != nil {
		return models.Measurement{}, false, fmt.Errorf("last measurement: %w", err)
	}
	return m, true, nil
}

// Ping implements Store. Used by the health handler.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool. Call during shutdown.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMeasurement(r rowScanner) (models.Measurement, error) {
	var m models.Measurement
	err := r.Scan(&m.ID, &m.NodeID, &m.UserID, &m.Timestamp,
		&m.Latitude, &m.Longitude, &m.O3Value, &m.COValue, &m.NO2Value)
	return m, err
}
