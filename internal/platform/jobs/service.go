package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"lms/internal/domain/leave"
)

const JobLeaveAccrual = "leave_accrual"

// SystemActor attributes scheduled runs in the audit trail and the wallet
// ledger, keeping them distinguishable from operator-triggered runs.
const SystemActor = "system"

// Service runs background jobs through a bounded queue with a single worker
// and records each run in the job_runs table.
type Service struct {
	DB    *pgxpool.Pool
	Leave *leave.Service
	queue chan job
}

type job struct {
	Name string
	Run  func(context.Context) (any, error)
}

func New(db *pgxpool.Pool, leaveSvc *leave.Service) *Service {
	return &Service{
		DB:    db,
		Leave: leaveSvc,
		queue: make(chan job, 128),
	}
}

// Start launches the worker and, when an interval is configured, the
// accrual scheduler. Both stop when the context is cancelled.
func (s *Service) Start(ctx context.Context, accrualInterval time.Duration) {
	go s.worker(ctx)
	if accrualInterval > 0 {
		go s.scheduleAccruals(ctx, accrualInterval)
	}
}

func (s *Service) Enqueue(name string, run func(context.Context) (any, error)) {
	select {
	case s.queue <- job{Name: name, Run: run}:
	default:
		slog.Warn("job queue full", "job", name)
	}
}

func (s *Service) RunNow(ctx context.Context, name string, run func(context.Context) (any, error)) (any, error) {
	return s.runJob(ctx, job{Name: name, Run: run})
}

func (s *Service) worker(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-s.queue:
			if _, err := s.runJob(ctx, j); err != nil {
				slog.Warn("job run failed", "job", j.Name, "err", err)
			}
		}
	}
}

func (s *Service) runJob(ctx context.Context, j job) (any, error) {
	runID := ""
	if err := s.DB.QueryRow(ctx, `
    INSERT INTO job_runs (job_name, status)
    VALUES ($1,$2)
    RETURNING id
  `, j.Name, "running").Scan(&runID); err != nil {
		slog.Warn("job run insert failed", "err", err)
	}

	detail, err := j.Run(ctx)
	status := "completed"
	if err != nil {
		status = "failed"
	}
	detailJSON, marshalErr := json.Marshal(detail)
	if marshalErr != nil {
		slog.Warn("job detail marshal failed", "err", marshalErr)
		detailJSON = []byte("{}")
	}
	if runID != "" {
		if _, updErr := s.DB.Exec(ctx, `
      UPDATE job_runs
      SET status = $1, detail = $2, finished_at = now()
      WHERE id = $3
    `, status, string(detailJSON), runID); updErr != nil {
			slog.Warn("job run update failed", "err", updErr)
		}
	}
	return detail, err
}

// scheduleAccruals enqueues a refresh of the previous month's accruals on
// every tick. The accrual itself is idempotent, so overlapping runs only
// cost a no-op.
func (s *Service) scheduleAccruals(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now().UTC()
			// Last day of the previous month; AddDate(0, -1, 0) normalizes
			// month-end dates into the wrong month.
			previous := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
			year, month := previous.Year(), previous.Month()
			s.Enqueue(JobLeaveAccrual, func(ctx context.Context) (any, error) {
				return s.Leave.RunMonthlyAccrual(ctx, year, month, SystemActor)
			})
		}
	}
}
