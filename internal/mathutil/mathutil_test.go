package mathutil

import (
	"math"
	"testing"
)

func TestNormalInvCDF(t *testing.T) {
	tests := []struct {
		p        float64
		expected float64
		delta    float64
	}{
		{0.5, 0, 0.001},
		{0.8413, 1.0, 0.01},
		{0.1587, -1.0, 0.01},
		{0.9772, 2.0, 0.01},
		{0.0228, -2.0, 0.01},
	}

	for _, tt := range tests {
		result := NormalInvCDF(tt.p)
		if math.Abs(result-tt.expected) > tt.delta {
			t.Errorf("NormalInvCDF(%.4f) = %.4f, want %.4f", tt.p, result, tt.expected)
		}
	}
}

func TestNormalInvCDFBoundary(t *testing.T) {
	// Edge cases: clamped to ±10
	if NormalInvCDF(0) != -10 {
		t.Errorf("NormalInvCDF(0) should be -10, got %v", NormalInvCDF(0))
	}
	if NormalInvCDF(1) != 10 {
		t.Errorf("NormalInvCDF(1) should be 10, got %v", NormalInvCDF(1))
	}
}
