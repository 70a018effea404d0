package model

import "fmt"

// Summary is one response of the WakaTime summaries endpoint covering a
// range of days.
type Summary struct {
	Data            []DaySummary    `json:"data"`
	CumulativeTotal CumulativeTotal `json:"cumulative_total"`
	DailyAverage    *DailyAverage   `json:"daily_average,omitempty"`
	Start           string          `json:"start"`
	End             string          `json:"end"`
}

// CumulativeTotal is the aggregate duration over the whole range.
type CumulativeTotal struct {
	Seconds float64 `json:"seconds"`
	Text    string  `json:"text,omitempty"`
	Decimal string  `json:"decimal,omitempty"`
	Digital string  `json:"digital,omitempty"`
}

// DailyAverage is returned by the API for multi-day ranges.
type DailyAverage struct {
	Seconds                       float64 `json:"seconds"`
	Text                          string  `json:"text,omitempty"`
	DaysIncludingHolidays         int     `json:"days_including_holidays,omitempty"`
	DaysMinusHolidays             int     `json:"days_minus_holidays,omitempty"`
	SecondsIncludingOtherLanguage float64 `json:"seconds_including_other_language,omitempty"`
}

// DaySummary holds the per-category breakdown for one day.
type DaySummary struct {
	Range            Range      `json:"range"`
	GrandTotal       GrandTotal `json:"grand_total"`
	Projects         []Category `json:"projects,omitempty"`
	Languages        []Category `json:"languages,omitempty"`
	Editors          []Category `json:"editors,omitempty"`
	Machines         []Category `json:"machines,omitempty"`
	OperatingSystems []Category `json:"operating_systems,omitempty"`
	Categories       []Category `json:"categories,omitempty"`
	Dependencies     []Category `json:"dependencies,omitempty"`
}

// Range identifies the day a DaySummary covers.
type Range struct {
	Date     string `json:"date"`
	Start    string `json:"start,omitempty"`
	End      string `json:"end,omitempty"`
	Text     string `json:"text,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// GrandTotal is the total tracked time of one day.
type GrandTotal struct {
	TotalSeconds float64 `json:"total_seconds"`
	Text         string  `json:"text,omitempty"`
	Digital      string  `json:"digital,omitempty"`
	Decimal      string  `json:"decimal,omitempty"`
	Hours        int     `json:"hours,omitempty"`
	Minutes      int     `json:"minutes,omitempty"`
}

// Category is a single named entry of a day's breakdown. Name is unique
// within its sequence for a given day.
type Category struct {
	Name         string  `json:"name"`
	TotalSeconds float64 `json:"total_seconds"`
	Percent      float64 `json:"percent,omitempty"`
	Text         string  `json:"text,omitempty"`
	Digital      string  `json:"digital,omitempty"`
	Hours        int     `json:"hours,omitempty"`
	Minutes      int     `json:"minutes,omitempty"`
	Seconds      int     `json:"seconds,omitempty"`
}

// Item is one aggregated, flattened category total.
type Item struct {
	Name         string  `json:"name"`
	TotalSeconds float64 `json:"total_seconds"`
}

// Dimension is the category axis used for aggregation and charting.
type Dimension string

const (
	DimensionProject         Dimension = "Project"
	DimensionLanguage        Dimension = "Language"
	DimensionEditor          Dimension = "Editor"
	DimensionMachine         Dimension = "Machine"
	DimensionOperatingSystem Dimension = "OperatingSystem"
)

// Dimensions lists every supported dimension in display order.
var Dimensions = []Dimension{
	DimensionProject,
	DimensionLanguage,
	DimensionEditor,
	DimensionMachine,
	DimensionOperatingSystem,
}

// ParseDimension validates s against the known dimensions.
func ParseDimension(s string) (Dimension, error) {
	for _, d := range Dimensions {
		if string(d) == s {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown dimension %q (want one of %v)", s, Dimensions)
}

// Of returns the day's entries for the given dimension, or nil for an
// unknown dimension.
func (d DaySummary) Of(dim Dimension) []Category {
	switch dim {
	case DimensionProject:
		return d.Projects
	case DimensionLanguage:
		return d.Languages
	case DimensionEditor:
		return d.Editors
	case DimensionMachine:
		return d.Machines
	case DimensionOperatingSystem:
		return d.OperatingSystems
	}
	return nil
}
