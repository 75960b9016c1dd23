package policy

// Settings holds the per-year leave policy configuration. Absent years are
// created lazily with these defaults: PL=7, CL=5, SL=6, RH=1, six-month PL
// eligibility, seven-day backdated window, PL carry forward capped at 4.
type Settings struct {
	Year                  int     `json:"year"`
	AnnualPL              int     `json:"annualPl"`
	AnnualCL              int     `json:"annualCl"`
	AnnualSL              int     `json:"annualSl"`
	AnnualRH              int     `json:"annualRh"`
	MonthlyCreditPL       float64 `json:"monthlyCreditPl"`
	MonthlyCreditCL       float64 `json:"monthlyCreditCl"`
	PLEligibilityMonths   int     `json:"plEligibilityMonths"`
	BackdatedMaxDays      int     `json:"backdatedMaxDays"`
	CarryForwardPLMax     int     `json:"carryForwardPlMax"`
	NoticeDaysCLPL        int     `json:"noticeDaysClPl"`
	EnforceNoticeDays     bool    `json:"enforceNoticeDays"`
	MonthlyCapCLPL        float64 `json:"monthlyCapClPl"`
	EnforceMonthlyCap     bool    `json:"enforceMonthlyCap"`
	WeeklyOffDay          int     `json:"weeklyOffDay"`
	SandwichEnabled       bool    `json:"sandwichEnabled"`
	SandwichIncludeEvents bool    `json:"sandwichIncludeEvents"`
}

// Defaults returns the self-created policy for a year with no stored row.
func Defaults(year int) Settings {
	return Settings{
		Year:                  year,
		AnnualPL:              7,
		AnnualCL:              5,
		AnnualSL:              6,
		AnnualRH:              1,
		MonthlyCreditPL:       1.0,
		MonthlyCreditCL:       1.0,
		PLEligibilityMonths:   6,
		BackdatedMaxDays:      7,
		CarryForwardPLMax:     4,
		NoticeDaysCLPL:        3,
		EnforceNoticeDays:     false,
		MonthlyCapCLPL:        4.0,
		EnforceMonthlyCap:     false,
		WeeklyOffDay:          7,
		SandwichEnabled:       true,
		SandwichIncludeEvents: true,
	}
}
