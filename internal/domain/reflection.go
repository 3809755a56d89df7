package domain

import "strings"

// Reflection holds the answers for the three horizons.
type Reflection struct {
	TenMinutes string `json:"ten_minutes"`
	TenMonths  string `json:"ten_months"`
	TenYears   string `json:"ten_years"`
}

// Get returns the answer for a horizon.
func (r Reflection) Get(h Horizon) string {
	switch h {
	case HorizonTenMinutes:
		return r.TenMinutes
	case HorizonTenMonths:
		return r.TenMonths
	case HorizonTenYears:
		return r.TenYears
	default:
		return ""
	}
}

// Trimmed returns a copy with surrounding whitespace removed from every answer.
func (r Reflection) Trimmed() Reflection {
	return Reflection{
		TenMinutes: strings.TrimSpace(r.TenMinutes),
		TenMonths:  strings.TrimSpace(r.TenMonths),
		TenYears:   strings.TrimSpace(r.TenYears),
	}
}
