package report

// MealReport aggregates one meal slot for the requested day.
type MealReport struct {
	Label    string   `json:"label"`
	Ratings  int      `json:"ratings"`
	Average  float64  `json:"average"`
	Comments []string `json:"comments,omitempty"`
}

// Response is the daily survey report payload.
type Response struct {
	RequestID       string       `json:"request_id,omitempty"`
	Date            string       `json:"date"`
	TotalSurveys    int          `json:"total_surveys"`
	EatingCount     int          `json:"eating_count"`
	NotEatingCount  int          `json:"not_eating_count"`
	AverageOverall  *float64     `json:"average_overall,omitempty"`
	Meals           []MealReport `json:"meals"`
	NoSchoolReasons []string     `json:"no_school_reasons,omitempty"`
}
