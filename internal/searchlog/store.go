package searchlog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dharmasatrya/farebroker/internal/models"
)

// Entry is one completed search.
type Entry struct {
	Origin        string
	Destination   string
	DepartureDate string
	Passengers    models.Passengers
	CabinClass    models.CabinClass
	ResultCount   int
	CacheHit      bool
	SearchedAt    time.Time
}

type RouteCount struct {
	Origin      string
	Destination string
	Searches    int
}

type Store interface {
	Record(ctx context.Context, e Entry) error
	TopRoutes(ctx context.Context, since time.Time, limit int) ([]RouteCount, error)
}

const schema = `CREATE TABLE IF NOT EXISTS search_logs (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	origin VARCHAR(3) NOT NULL,
	destination VARCHAR(3) NOT NULL,
	departure_date VARCHAR(10) NOT NULL,
	adults INT NOT NULL DEFAULT 1,
	children INT NOT NULL DEFAULT 0,
	infants INT NOT NULL DEFAULT 0,
	cabin_class VARCHAR(16) NOT NULL,
	result_count INT NOT NULL DEFAULT 0,
	cache_hit BOOLEAN NOT NULL DEFAULT FALSE,
	searched_at DATETIME NOT NULL,
	INDEX idx_search_logs_route (origin, destination),
	INDEX idx_search_logs_searched_at (searched_at)
)`

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create search_logs: %w", err)
	}
	return nil
}

func (s *MySQLStore) Record(ctx context.Context, e Entry) error {
	if e.SearchedAt.IsZero() {
		e.SearchedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO search_logs
			(origin, destination, departure_date, adults, children, infants, cabin_class, result_count, cache_hit, searched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Origin, e.Destination, e.DepartureDate,
		e.Passengers.Adults, e.Passengers.Children, e.Passengers.Infants,
		string(e.CabinClass), e.ResultCount, e.CacheHit, e.SearchedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert search log: %w", err)
	}
	return nil
}

// TopRoutes returns the most searched routes since the given time.
func (s *MySQLStore) TopRoutes(ctx context.Context, since time.Time, limit int) ([]RouteCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT origin, destination, COUNT(*) AS searches
		FROM search_logs
		WHERE searched_at >= ?
		GROUP BY origin, destination
		ORDER BY searches DESC, origin, destination
		LIMIT ?`,
		since.UTC(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query top routes: %w", err)
	}
	defer rows.Close()

	var out []RouteCount
	for rows.Next() {
		var rc RouteCount
		if err := rows.Scan(&rc.Origin, &rc.Destination, &rc.Searches); err != nil {
			return nil, fmt.Errorf("scan top route: %w", err)
		}
		out = append(out, rc)
	}
	return out, rows.Err()
}

// NoopStore is used when no database is configured.
type NoopStore struct{}

func (NoopStore) Record(context.Context, Entry) error { return nil }

func (NoopStore) TopRoutes(context.Context, time.Time, int) ([]RouteCount, error) {
	return nil, nil
}
