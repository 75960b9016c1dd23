package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lms/internal/platform/config"
)

// Seed creates the bootstrap admin employee when the directory is empty.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	var count int
	if err := pool.QueryRow(ctx, "SELECT COUNT(1) FROM employees").Scan(&count); err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	_, err := pool.Exec(ctx, `
    INSERT INTO employees (code, name, email, join_date, active, role)
    VALUES ($1, $2, $3, $4, TRUE, 'ADMIN')
  `, cfg.SeedAdminCode, cfg.SeedAdminName, cfg.SeedAdminEmail, time.Now().UTC())
	return err
}
