package macros

// Entry origins.
const (
	OriginRecipe  = "recipe"
	OriginProduct = "product"
	OriginTemp    = "temp"
)

// Totals holds one set of macro totals. Calories are whole numbers;
// gram values are rounded to 2 decimal places.
type Totals struct {
	Calories int     `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Protein  float64 `json:"protein"`
}

// Entry is one consumed contribution, tagged by origin. Macros are the
// entry's own totals (per-serving values already multiplied out).
type Entry struct {
	Type     string  `json:"type"`
	ID       int     `json:"id"`
	Name     string  `json:"name"`
	Servings float64 `json:"servings,omitempty"`
	Calories int     `json:"calories"`
	Carbs    float64 `json:"carbs"`
	Fats     float64 `json:"fats"`
	Protein  float64 `json:"protein"`
}

// Consumed is the consumed side of a day summary: totals plus the
// origin-tagged contributions they sum over.
type Consumed struct {
	Totals
	Entries []Entry `json:"entries"`
}

// DaySummary is the aggregation result for one logical day.
//
// Planned reflects every meal-plan entry for the day regardless of done
// state: it is the full intended macro budget, not the not-yet-eaten
// remainder.
type DaySummary struct {
	Day      string   `json:"day"`
	Consumed Consumed `json:"consumed"`
	Planned  Totals   `json:"planned"`
	Goal     Totals   `json:"goal"`
}

// DayPage is one page of recent-day summaries.
type DayPage struct {
	Days        []DaySummary `json:"days"`
	TotalPages  int          `json:"total_pages"`
	CurrentPage int          `json:"current_page"`
	TotalDays   int          `json:"total_days"`
}
