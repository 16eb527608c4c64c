// Package charts turns aggregated totals into Chart.js configurations. The
// page script destroys the previous chart and builds a new one from each
// configuration it receives.
package charts

import (
	"time"

	"expensetracker/internal/core"
)

// Palette is indexed by the position of a category in core.Categories.
var Palette = []string{
	"#3b82f6",
	"#10b981",
	"#f59e0b",
	"#ef4444",
	"#8b5cf6",
	"#ec4899",
	"#06b6d4",
	"#f97316",
}

const (
	TypeDoughnut = "doughnut"
	TypeLine     = "line"

	trendFill = "rgba(59, 130, 246, 0.1)"
)

type Config struct {
	Type    string  `json:"type"`
	Data    Data    `json:"data"`
	Options Options `json:"options"`
}

type Data struct {
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
}

type Dataset struct {
	Label           string    `json:"label"`
	Data            []float64 `json:"data"`
	BackgroundColor any       `json:"backgroundColor,omitempty"`
	BorderColor     string    `json:"borderColor,omitempty"`
	BorderWidth     int       `json:"borderWidth"`
	Fill            bool      `json:"fill,omitempty"`
	Tension         float64   `json:"tension,omitempty"`
	PointRadius     int       `json:"pointRadius,omitempty"`
}

type Options struct {
	Responsive          bool    `json:"responsive"`
	MaintainAspectRatio bool    `json:"maintainAspectRatio"`
	Cutout              string  `json:"cutout,omitempty"`
	Plugins             Plugins `json:"plugins"`
}

type Plugins struct {
	Legend Legend `json:"legend"`
}

type Legend struct {
	Display  bool   `json:"display"`
	Position string `json:"position,omitempty"`
}

// ColorFor returns the fixed color of a category. Unknown categories get
// the color of Others.
func ColorFor(c core.Category) string {
	for i, known := range core.Categories {
		if known == c {
			return Palette[i%len(Palette)]
		}
	}
	return Palette[(len(core.Categories)-1)%len(Palette)]
}

// CategoryChart builds a doughnut of the totals, in the order given.
func CategoryChart(totals []core.CategoryTotal) Config {
	labels := make([]string, len(totals))
	values := make([]float64, len(totals))
	colors := make([]string, len(totals))
	for i, t := range totals {
		labels[i] = string(t.Category)
		values[i] = t.Total.Float()
		colors[i] = ColorFor(t.Category)
	}

	return Config{
		Type: TypeDoughnut,
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{{
				Label:           "Spending by Category",
				Data:            values,
				BackgroundColor: colors,
			}},
		},
		Options: Options{
			Responsive: true,
			Cutout:     "65%",
			Plugins:    Plugins{Legend: Legend{Display: true, Position: "right"}},
		},
	}
}

// MonthlyChart builds the spending trend line, labelled "Jan 2026".
func MonthlyChart(totals []core.MonthlyTotal) Config {
	labels := make([]string, len(totals))
	values := make([]float64, len(totals))
	for i, t := range totals {
		labels[i] = MonthLabel(t.Month)
		values[i] = t.Total.Float()
	}

	return Config{
		Type: TypeLine,
		Data: Data{
			Labels: labels,
			Datasets: []Dataset{{
				Label:           "Monthly Expenses",
				Data:            values,
				BackgroundColor: trendFill,
				BorderColor:     Palette[0],
				BorderWidth:     2,
				Fill:            true,
				Tension:         0.4,
				PointRadius:     4,
			}},
		},
		Options: Options{
			Responsive: true,
			Plugins:    Plugins{Legend: Legend{Display: false}},
		},
	}
}

// MonthLabel formats a YYYY-MM key as "Jan 2026". Malformed keys are
// returned unchanged.
func MonthLabel(month string) string {
	t, err := time.Parse(core.MonthLayout, month)
	if err != nil {
		return month
	}
	return t.Format("Jan 2006")
}
