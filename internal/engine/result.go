package engine

// Result is the normalized outcome every game type produces exactly once.
type Result struct {
	ScorePercentage  float64 `json:"score_percentage"`
	TimeTakenSeconds int     `json:"time_taken_seconds"`
	AttemptData      any     `json:"attempt_data"`
}

// Percentage returns part/total*100, or 0 for an empty total.
func Percentage(part, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
