package imaging

import (
	"errors"
	"image"
	"math"
	"testing"
)

// grayFromValues builds a single-row raster holding the given levels
func grayFromValues(values ...uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, len(values), 1))
	copy(g.Pix, values)
	return g
}

// repeatLevels returns n copies of each level, in order
func repeatLevels(n int, levels ...uint8) []uint8 {
	out := make([]uint8, 0, n*len(levels))
	for _, l := range levels {
		for i := 0; i < n; i++ {
			out = append(out, l)
		}
	}
	return out
}

func TestOtsuThreshold(t *testing.T) {
	tests := []struct {
		name   string
		values []uint8
		want   int
		ok     bool
	}{
		{"two levels", repeatLevels(50, 0, 200), 0, true},
		{"three levels", repeatLevels(100, 10, 20, 200), 20, true},
		{"single level", repeatLevels(10, 90), 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := OtsuThreshold(grayFromValues(tt.values...))
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("threshold: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBinarizeWithAutoThreshold(t *testing.T) {
	tests := []struct {
		name      string
		values    []uint8
		low, high float64
		want      []uint8
	}{
		{"edge map", []uint8{0, 255, 0, 255}, 127, 255, []uint8{0, 255, 0, 255}},
		{"three levels", []uint8{10, 20, 200, 200}, 127, 255, []uint8{0, 0, 255, 255}},
		{"custom high", []uint8{0, 100}, 127, 128, []uint8{0, 128}},
		{"single level above fallback", []uint8{200, 200}, 127, 255, []uint8{255, 255}},
		{"single level below fallback", []uint8{100, 100}, 127, 255, []uint8{0, 0}},
		{"all black", []uint8{0, 0, 0}, 127, 255, []uint8{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := grayFromValues(tt.values...)
			before := append([]uint8(nil), in.Pix...)

			out, err := BinarizeWithAutoThreshold(in, tt.low, tt.high)
			if err != nil {
				t.Fatalf("BinarizeWithAutoThreshold failed: %v", err)
			}
			for i, want := range tt.want {
				if out.Pix[i] != want {
					t.Errorf("pixel %d: got %d, want %d", i, out.Pix[i], want)
				}
			}
			for i := range before {
				if in.Pix[i] != before[i] {
					t.Fatal("input was modified")
				}
			}
		})
	}
}

func TestBinarizeWithAutoThreshold_Invalid(t *testing.T) {
	in := grayFromValues(0, 255)

	tests := []struct {
		name      string
		low, high float64
		field     string
	}{
		{"negative low", -1, 255, "bin_low"},
		{"nan low", math.NaN(), 255, "bin_low"},
		{"high above 255", 127, 256, "bin_high"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BinarizeWithAutoThreshold(in, tt.low, tt.high)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("Field: got %s, want %s", ve.Field, tt.field)
			}
		})
	}
}

func TestThreshold(t *testing.T) {
	in := grayFromValues(0, 100, 101, 255)

	out, err := Threshold(in, ThresholdParams{Threshold: 100, MaxValue: 200})
	if err != nil {
		t.Fatalf("Threshold failed: %v", err)
	}
	want := []uint8{0, 0, 200, 200}
	for i := range want {
		if out.Pix[i] != want[i] {
			t.Errorf("pixel %d: got %d, want %d", i, out.Pix[i], want[i])
		}
	}

	for _, p := range []ThresholdParams{{Threshold: -1, MaxValue: 255}, {Threshold: 10, MaxValue: 300}} {
		if _, err := Threshold(in, p); err == nil {
			t.Errorf("expected error for %+v", p)
		}
	}
}

func TestNormalizeToBinary(t *testing.T) {
	tests := []struct {
		name   string
		values []uint8
		want   []uint8
	}{
		{"already binary", []uint8{0, 255, 255}, []uint8{0, 255, 255}},
		{"two arbitrary levels kept", []uint8{3, 7, 3}, []uint8{3, 7, 3}},
		{"single level", []uint8{90, 90}, []uint8{90, 90}},
		{"grayscale cut at 127", []uint8{0, 127, 128, 255}, []uint8{0, 0, 255, 255}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := grayFromValues(tt.values...)
			out := NormalizeToBinary(in)
			if out == in {
				t.Fatal("NormalizeToBinary must return a copy")
			}
			for i, want := range tt.want {
				if out.Pix[i] != want {
					t.Errorf("pixel %d: got %d, want %d", i, out.Pix[i], want)
				}
			}
		})
	}
}

func TestIsBinary(t *testing.T) {
	if !IsBinary(grayFromValues(0, 255, 0)) {
		t.Error("{0,255} should be binary")
	}
	if !IsBinary(grayFromValues(0, 0)) {
		t.Error("all-zero raster should be binary")
	}
	if IsBinary(grayFromValues(0, 128, 255)) {
		t.Error("raster with 128 should not be binary")
	}
}
