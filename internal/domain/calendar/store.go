package calendar

import (
	"context"
	"errors"
	"time"

	"lms/internal/platform/querier"
)

var ErrNotFound = errors.New("calendar entry not found")

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// HolidayDates returns active non-restricted holiday dates inside the range.
// Restricted holidays are their own leave type and never count as off days.
func (s *Store) HolidayDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT date FROM holidays
    WHERE active = TRUE AND restricted = FALSE AND date >= $1 AND date <= $2
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) IsRestrictedHolidayDate(ctx context.Context, year int, date time.Time) (bool, error) {
	var count int
	err := s.DB.QueryRow(ctx, `
    SELECT COUNT(1) FROM holidays
    WHERE active = TRUE AND restricted = TRUE AND date = $1 AND EXTRACT(YEAR FROM date) = $2
  `, date, year).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) EventDates(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT date FROM company_events
    WHERE active = TRUE AND date >= $1 AND date <= $2
  `, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}

func (s *Store) ListHolidays(ctx context.Context, year int) ([]Holiday, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, date, name, active, restricted, created_at
    FROM holidays
    WHERE EXTRACT(YEAR FROM date) = $1
    ORDER BY date
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Holiday
	for rows.Next() {
		var h Holiday
		if err := rows.Scan(&h.ID, &h.Date, &h.Name, &h.Active, &h.Restricted, &h.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Store) CreateHoliday(ctx context.Context, h Holiday) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO holidays (date, name, active, restricted)
    VALUES ($1,$2,$3,$4)
    RETURNING id
  `, h.Date, h.Name, h.Active, h.Restricted).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteHoliday(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) ListEvents(ctx context.Context, year int) ([]CompanyEvent, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, date, name, active, created_at
    FROM company_events
    WHERE EXTRACT(YEAR FROM date) = $1
    ORDER BY date
  `, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CompanyEvent
	for rows.Next() {
		var e CompanyEvent
		if err := rows.Scan(&e.ID, &e.Date, &e.Name, &e.Active, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) CreateEvent(ctx context.Context, e CompanyEvent) (string, error) {
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO company_events (date, name, active)
    VALUES ($1,$2,$3)
    RETURNING id
  `, e.Date, e.Name, e.Active).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	tag, err := s.DB.Exec(ctx, "DELETE FROM company_events WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
