package domain

// catalog is the fixed set of values a user can pick from. Order is only used for display.
var catalog = []string{
	"Scope", "Radius", "Familycentrism", "Non Sibi", "Luminance",
	"Agency", "Workcentrism", "Eudaimonia", "Achievement", "Affluence",
	"Voice", "Beholderism", "Belonging", "Place", "Cosmos",
}

// Catalog returns a copy of the value catalog.
func Catalog() []string {
	out := make([]string, len(catalog))
	copy(out, catalog)
	return out
}

// IsCatalogValue reports whether name is one of the selectable values.
func IsCatalogValue(name string) bool {
	for _, v := range catalog {
		if v == name {
			return true
		}
	}
	return false
}

// Horizon is one of the three reflection time frames.
type Horizon string

const (
	HorizonTenMinutes Horizon = "ten_minutes"
	HorizonTenMonths  Horizon = "ten_months"
	HorizonTenYears   Horizon = "ten_years"
)

// Horizons returns the reflection horizons, nearest first.
func Horizons() []Horizon {
	return []Horizon{HorizonTenMinutes, HorizonTenMonths, HorizonTenYears}
}

// Label returns the short label used in prompts.
func (h Horizon) Label() string {
	switch h {
	case HorizonTenMinutes:
		return "10 Minutes"
	case HorizonTenMonths:
		return "10 Months"
	case HorizonTenYears:
		return "10 Years"
	default:
		return string(h)
	}
}

// Question returns the question asked for the horizon.
func (h Horizon) Question() string {
	switch h {
	case HorizonTenMinutes:
		return "If you make this decision, how will it feel 10 minutes from now?"
	case HorizonTenMonths:
		return "If you make this decision, how might your life look 10 months from now?"
	case HorizonTenYears:
		return "If you make this decision, how might it matter 10 years from now?"
	default:
		return ""
	}
}
