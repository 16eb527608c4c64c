package charts

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"expensetracker/internal/core"
)

func TestColorFor(t *testing.T) {
	tests := []struct {
		category core.Category
		want     string
	}{
		{core.CategoryFood, "#3b82f6"},
		{core.CategoryBills, "#ef4444"},
		{core.CategoryOthers, "#f97316"},
		{"Unknown", "#f97316"},
	}
	for _, tt := range tests {
		if got := ColorFor(tt.category); got != tt.want {
			t.Errorf("ColorFor(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestCategoryChart(t *testing.T) {
	cfg := CategoryChart([]core.CategoryTotal{
		{Category: core.CategoryBills, Total: core.Money{Cents: 40000}},
		{Category: core.CategoryFood, Total: core.Money{Cents: 1250}},
	})

	if cfg.Type != TypeDoughnut {
		t.Errorf("Type = %q", cfg.Type)
	}
	if want := []string{"Bills", "Food"}; !reflect.DeepEqual(cfg.Data.Labels, want) {
		t.Errorf("Labels = %v, want %v", cfg.Data.Labels, want)
	}
	if len(cfg.Data.Datasets) != 1 {
		t.Fatalf("Datasets = %d, want 1", len(cfg.Data.Datasets))
	}
	ds := cfg.Data.Datasets[0]
	if want := []float64{400, 12.5}; !reflect.DeepEqual(ds.Data, want) {
		t.Errorf("Data = %v, want %v", ds.Data, want)
	}
	if want := []string{"#ef4444", "#3b82f6"}; !reflect.DeepEqual(ds.BackgroundColor, want) {
		t.Errorf("BackgroundColor = %v, want %v", ds.BackgroundColor, want)
	}
}

func TestCategoryChart_Empty(t *testing.T) {
	cfg := CategoryChart(nil)
	b, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	// empty arrays, not null, so the script can render an empty chart
	if !strings.Contains(string(b), `"labels":[]`) {
		t.Errorf("JSON = %s", b)
	}
}

func TestMonthlyChart(t *testing.T) {
	cfg := MonthlyChart([]core.MonthlyTotal{
		{Month: "2025-12", Total: core.Money{Cents: 10000}},
		{Month: "2026-01"},
	})

	if cfg.Type != TypeLine {
		t.Errorf("Type = %q", cfg.Type)
	}
	if want := []string{"Dec 2025", "Jan 2026"}; !reflect.DeepEqual(cfg.Data.Labels, want) {
		t.Errorf("Labels = %v, want %v", cfg.Data.Labels, want)
	}
	if want := []float64{100, 0}; !reflect.DeepEqual(cfg.Data.Datasets[0].Data, want) {
		t.Errorf("Data = %v, want %v", cfg.Data.Datasets[0].Data, want)
	}
	if cfg.Options.Plugins.Legend.Display {
		t.Errorf("trend chart hides its legend")
	}
}

func TestMonthLabel(t *testing.T) {
	if got := MonthLabel("2026-03"); got != "Mar 2026" {
		t.Errorf("MonthLabel() = %q", got)
	}
	if got := MonthLabel("garbage"); got != "garbage" {
		t.Errorf("MonthLabel(garbage) = %q", got)
	}
}
