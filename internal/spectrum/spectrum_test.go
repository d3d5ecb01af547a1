package spectrum

import (
	"math"
	"testing"
)

func floatEquals(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBandAverage(t *testing.T) {
	tests := []struct {
		name   string
		sample Sample
		lo, hi int
		want   float64
	}{
		{"all zero", make(Sample, 16), 0, 15, 0},
		{"uniform", Uniform(16, 100), 0, 15, 100.0 / 255},
		{"uniform max", Uniform(8, 255), 0, 7, 1},
		{"sub band", Sample{0, 0, 255, 255, 0}, 2, 3, 1},
		{"inclusive hi", Sample{0, 51, 102}, 1, 2, 76.5 / 255},
		{"hi past end", Uniform(16, 51), 0, 32, 0.2},
		{"lo negative", Sample{10, 20}, -5, 1, 15.0 / 255},
		{"out of bounds", Uniform(16, 200), 20, 30, 0},
		{"inverted", Uniform(16, 200), 5, 3, 0},
		{"empty", nil, 0, 32, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sample.BandAverage(tt.lo, tt.hi); !floatEquals(got, tt.want) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPeakIntensity(t *testing.T) {
	if p := (Sample{3, 200, 17}).PeakIntensity(); p != 200 {
		t.Errorf("got %v, want 200", p)
	}
	if p := Sample(nil).PeakIntensity(); p != 0 {
		t.Errorf("empty: got %v, want 0", p)
	}
}
