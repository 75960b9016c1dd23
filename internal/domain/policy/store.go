package policy

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"lms/internal/platform/querier"
)

type Store struct {
	DB querier.Querier
}

func NewStore(db querier.Querier) *Store {
	return &Store{DB: db}
}

// Get loads the policy for a year, creating the default row when absent.
func (s *Store) Get(ctx context.Context, year int) (Settings, error) {
	settings, err := s.load(ctx, year)
	if err == nil {
		return settings, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return Settings{}, err
	}

	defaults := Defaults(year)
	if _, err := s.DB.Exec(ctx, `
    INSERT INTO policy_settings (
      year, annual_pl, annual_cl, annual_sl, annual_rh,
      monthly_credit_pl, monthly_credit_cl, pl_eligibility_months,
      backdated_max_days, carry_forward_pl_max, notice_days_cl_pl,
      enforce_notice_days, monthly_cap_cl_pl, enforce_monthly_cap,
      weekly_off_day, sandwich_enabled, sandwich_include_events
    )
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
    ON CONFLICT (year) DO NOTHING
  `, defaults.Year, defaults.AnnualPL, defaults.AnnualCL, defaults.AnnualSL, defaults.AnnualRH,
		defaults.MonthlyCreditPL, defaults.MonthlyCreditCL, defaults.PLEligibilityMonths,
		defaults.BackdatedMaxDays, defaults.CarryForwardPLMax, defaults.NoticeDaysCLPL,
		defaults.EnforceNoticeDays, defaults.MonthlyCapCLPL, defaults.EnforceMonthlyCap,
		defaults.WeeklyOffDay, defaults.SandwichEnabled, defaults.SandwichIncludeEvents); err != nil {
		return Settings{}, fmt.Errorf("create default policy: %w", err)
	}
	return s.load(ctx, year)
}

func (s *Store) Update(ctx context.Context, settings Settings) error {
	// Get guarantees the row exists before an update lands on it.
	if _, err := s.Get(ctx, settings.Year); err != nil {
		return err
	}
	_, err := s.DB.Exec(ctx, `
    UPDATE policy_settings
    SET annual_pl = $2, annual_cl = $3, annual_sl = $4, annual_rh = $5,
        monthly_credit_pl = $6, monthly_credit_cl = $7, pl_eligibility_months = $8,
        backdated_max_days = $9, carry_forward_pl_max = $10, notice_days_cl_pl = $11,
        enforce_notice_days = $12, monthly_cap_cl_pl = $13, enforce_monthly_cap = $14,
        weekly_off_day = $15, sandwich_enabled = $16, sandwich_include_events = $17
    WHERE year = $1
  `, settings.Year, settings.AnnualPL, settings.AnnualCL, settings.AnnualSL, settings.AnnualRH,
		settings.MonthlyCreditPL, settings.MonthlyCreditCL, settings.PLEligibilityMonths,
		settings.BackdatedMaxDays, settings.CarryForwardPLMax, settings.NoticeDaysCLPL,
		settings.EnforceNoticeDays, settings.MonthlyCapCLPL, settings.EnforceMonthlyCap,
		settings.WeeklyOffDay, settings.SandwichEnabled, settings.SandwichIncludeEvents)
	return err
}

func (s *Store) load(ctx context.Context, year int) (Settings, error) {
	var p Settings
	err := s.DB.QueryRow(ctx, `
    SELECT year, annual_pl, annual_cl, annual_sl, annual_rh,
           monthly_credit_pl, monthly_credit_cl, pl_eligibility_months,
           backdated_max_days, carry_forward_pl_max, notice_days_cl_pl,
           enforce_notice_days, monthly_cap_cl_pl, enforce_monthly_cap,
           weekly_off_day, sandwich_enabled, sandwich_include_events
    FROM policy_settings
    WHERE year = $1
  `, year).Scan(&p.Year, &p.AnnualPL, &p.AnnualCL, &p.AnnualSL, &p.AnnualRH,
		&p.MonthlyCreditPL, &p.MonthlyCreditCL, &p.PLEligibilityMonths,
		&p.BackdatedMaxDays, &p.CarryForwardPLMax, &p.NoticeDaysCLPL,
		&p.EnforceNoticeDays, &p.MonthlyCapCLPL, &p.EnforceMonthlyCap,
		&p.WeeklyOffDay, &p.SandwichEnabled, &p.SandwichIncludeEvents)
	if err != nil {
		return Settings{}, err
	}
	return p, nil
}
