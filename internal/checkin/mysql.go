package checkin

import (
	"context"
	"database/sql"
	"fmt"
)

const (
	StatusReadyForCheckin = "ready_for_checkin"
	StatusCheckinOpen     = "checkin_open"
)

const schema = `CREATE TABLE IF NOT EXISTS flight_bookings (
	id BIGINT AUTO_INCREMENT PRIMARY KEY,
	booking_reference VARCHAR(50) NOT NULL UNIQUE,
	airline_code VARCHAR(3) NOT NULL DEFAULT '',
	customer_email VARCHAR(255) NOT NULL DEFAULT '',
	departure_at DATETIME NULL,
	status VARCHAR(32) NOT NULL,
	notes TEXT,
	INDEX idx_flight_bookings_status (status)
)`

type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

func (s *MySQLStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("create flight_bookings: %w", err)
	}
	return nil
}

func (s *MySQLStore) ReadyForCheckin(ctx context.Context) ([]Booking, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, booking_reference, airline_code, customer_email, departure_at
		FROM flight_bookings
		WHERE status = ?`,
		StatusReadyForCheckin,
	)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var out []Booking
	for rows.Next() {
		var (
			b         Booking
			departure sql.NullTime
		)
		if err := rows.Scan(&b.ID, &b.Reference, &b.AirlineCode, &b.CustomerEmail, &departure); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		if departure.Valid {
			b.DepartureAt = departure.Time.UTC()
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

// MarkCheckinOpen only moves bookings still in the ready state.
func (s *MySQLStore) MarkCheckinOpen(ctx context.Context, id int64, note string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE flight_bookings
		SET status = ?, notes = TRIM(CONCAT(?, ' ', COALESCE(notes, '')))
		WHERE id = ? AND status = ?`,
		StatusCheckinOpen, note, id, StatusReadyForCheckin,
	)
	if err != nil {
		return fmt.Errorf("update booking %d: %w", id, err)
	}
	return nil
}
