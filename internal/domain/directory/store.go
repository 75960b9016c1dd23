package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lms/internal/platform/querier"
)

var ErrNotFound = errors.New("employee not found")

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

func (s *Store) Employee(ctx context.Context, id string) (Employee, error) {
	var e Employee
	var managerID *string
	err := s.DB.QueryRow(ctx, `
    SELECT id, code, name, email, join_date, active, manager_id, role, created_at
    FROM employees
    WHERE id = $1
  `, id).Scan(&e.ID, &e.Code, &e.Name, &e.Email, &e.JoinDate, &e.Active, &managerID, &e.Role, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrNotFound
	}
	if err != nil {
		return Employee{}, fmt.Errorf("load employee: %w", err)
	}
	if managerID != nil {
		e.ManagerID = *managerID
	}
	return e, nil
}

// SubordinateIDs returns every active employee in the reporting subtree of
// the given manager, direct and indirect.
func (s *Store) SubordinateIDs(ctx context.Context, managerID string) ([]string, error) {
	rows, err := s.DB.Query(ctx, `
    WITH RECURSIVE reports AS (
      SELECT id FROM employees WHERE manager_id = $1 AND active = TRUE
      UNION
      SELECT e.id
      FROM employees e
      JOIN reports r ON e.manager_id = r.id
      WHERE e.active = TRUE
    )
    SELECT id FROM reports
  `, managerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) ActiveEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := s.DB.Query(ctx, `
    SELECT id, code, name, email, join_date, active, manager_id, role, created_at
    FROM employees
    WHERE active = TRUE
    ORDER BY code
  `)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Employee
	for rows.Next() {
		var e Employee
		var managerID *string
		if err := rows.Scan(&e.ID, &e.Code, &e.Name, &e.Email, &e.JoinDate, &e.Active, &managerID, &e.Role, &e.CreatedAt); err != nil {
			return nil, err
		}
		if managerID != nil {
			e.ManagerID = *managerID
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) Create(ctx context.Context, e Employee) (string, error) {
	var managerID *string
	if e.ManagerID != "" {
		managerID = &e.ManagerID
	}
	var id string
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO employees (code, name, email, join_date, active, manager_id, role)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
    RETURNING id
  `, e.Code, e.Name, e.Email, e.JoinDate, e.Active, managerID, e.Role).Scan(&id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Store) SetActive(ctx context.Context, id string, active bool) error {
	tag, err := s.DB.Exec(ctx, "UPDATE employees SET active = $1 WHERE id = $2", active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
