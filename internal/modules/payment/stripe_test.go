package payment

import "testing"

func TestToMinorUnits(t *testing.T) {
	tests := []struct {
		amount float64
		want   int64
	}{
		{0, 0},
		{1, 100},
		{27.00, 2700},
		{19.99, 1999},
		{0.01, 1},
		{0.005, 1},
		{10.555, 1056},
		// 19.99 is not exactly representable; the rounding must still land
		// on the right cent.
		{19.99 * 1, 1999},
		{1234567.89, 123456789},
	}
	for _, tt := range tests {
		if got := toMinorUnits(tt.amount); got != tt.want {
			t.Errorf("toMinorUnits(%v) = %d, want %d", tt.amount, got, tt.want)
		}
	}
}

func TestFromMinorUnits(t *testing.T) {
	tests := []struct {
		minor int64
		want  float64
	}{
		{0, 0},
		{100, 1},
		{2700, 27.00},
		{1999, 19.99},
	}
	for _, tt := range tests {
		if got := fromMinorUnits(tt.minor); got != tt.want {
			t.Errorf("fromMinorUnits(%d) = %v, want %v", tt.minor, got, tt.want)
		}
	}
}

func TestMinorUnitsRoundTrip(t *testing.T) {
	for _, amount := range []float64{0.01, 4.20, 19.99, 27.00, 99.95, 1000.00} {
		if got := fromMinorUnits(toMinorUnits(amount)); got != amount {
			t.Errorf("round trip of %v = %v", amount, got)
		}
	}
}
