package mathutil

import (
	"math"
	"testing"
)

func TestMean(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		want float64
	}{
		{"empty", nil, 0},
		{"single", []float64{3.5}, 3.5},
		{"several", []float64{1, 2, 3, 4}, 2.5},
		{"negative", []float64{-2, 2}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Mean(tt.xs); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("Mean(%v) = %v, want %v", tt.xs, got, tt.want)
			}
		})
	}
}

func TestStdDev(t *testing.T) {
	tests := []struct {
		name  string
		xs    []float64
		want  float64
		delta float64
	}{
		{"empty", nil, 0, 0},
		{"single", []float64{5}, 0, 0},
		{"identical", []float64{2, 2, 2}, 0, 1e-12},
		{"known sample", []float64{2, 4, 4, 4, 5, 5, 7, 9}, 2.1381, 0.0001},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StdDev(tt.xs); math.Abs(got-tt.want) > tt.delta {
				t.Errorf("StdDev(%v) = %v, want %v", tt.xs, got, tt.want)
			}
		})
	}
}

func TestPercentile(t *testing.T) {
	xs := []float64{15, 20, 35, 40, 50}

	tests := []struct {
		name string
		p    float64
		want float64
	}{
		{"minimum", 0, 15},
		{"maximum", 100, 50},
		{"median", 50, 35},
		{"quarter", 25, 20},
		{"interpolated", 10, 17},
		{"below range clamps", -5, 15},
		{"above range clamps", 150, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentile(xs, tt.p); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Percentile(xs, %v) = %v, want %v", tt.p, got, tt.want)
			}
		})
	}

	if got := Percentile(nil, 50); got != 0 {
		t.Errorf("Percentile(nil, 50) = %v, want 0", got)
	}

	// Input must stay untouched.
	unsorted := []float64{9, 1, 5}
	Percentile(unsorted, 50)
	if unsorted[0] != 9 || unsorted[1] != 1 || unsorted[2] != 5 {
		t.Errorf("Percentile mutated its input: %v", unsorted)
	}
}
