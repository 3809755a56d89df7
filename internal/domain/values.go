package domain

// SelectionsPerCategory is the exact number of values picked for each category.
const SelectionsPerCategory = 2

// Category names one of the three value pickers.
type Category string

const (
	CategoryMustHave   Category = "must_have"
	CategoryDontCare   Category = "dont_care"
	CategoryNiceToHave Category = "nice_to_have"
)

// Categories returns the value categories in display order.
func Categories() []Category {
	return []Category{CategoryMustHave, CategoryDontCare, CategoryNiceToHave}
}

// Label returns the picker label for the category.
func (c Category) Label() string {
	switch c {
	case CategoryMustHave:
		return "Values you can't live without"
	case CategoryDontCare:
		return "Values you don't care about"
	case CategoryNiceToHave:
		return "Values that are nice to have"
	default:
		return string(c)
	}
}

// Values holds the user's picks. The same value may appear in more than one category.
type Values struct {
	MustHave   []string `json:"must_have"`
	DontCare   []string `json:"dont_care"`
	NiceToHave []string `json:"nice_to_have"`
}

// Get returns the selection for a category.
func (v Values) Get(c Category) []string {
	switch c {
	case CategoryMustHave:
		return v.MustHave
	case CategoryDontCare:
		return v.DontCare
	case CategoryNiceToHave:
		return v.NiceToHave
	default:
		return nil
	}
}

func (v Values) clone() Values {
	return Values{
		MustHave:   append([]string(nil), v.MustHave...),
		DontCare:   append([]string(nil), v.DontCare...),
		NiceToHave: append([]string(nil), v.NiceToHave...),
	}
}
