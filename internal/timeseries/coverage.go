package timeseries

import "math"

// Coverage counts present and missing values of one key.
type Coverage struct {
	Points  int `json:"points"`
	Present int `json:"present"`
	Gaps    int `json:"gaps"`
}

// CoverageOf reports how many samples have a value for key.
// Only nulls and missing keys are gaps; zero is a value.
func CoverageOf(data []Sample, key string) Coverage {
	c := Coverage{Points: len(data)}
	for i := range data {
		if _, ok := data[i].Value(key); ok {
			c.Present++
		} else {
			c.Gaps++
		}
	}
	return c
}

// LossPct returns the share of gaps as a percentage rounded to two decimals.
func (c Coverage) LossPct() float64 {
	if c.Points == 0 {
		return 0
	}
	return math.Round(float64(c.Gaps)/float64(c.Points)*10000) / 100
}
