package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"
)

func TestSaturate(t *testing.T) {
	tests := []struct {
		in   float64
		want uint8
	}{
		{-20, 0},
		{0, 0},
		{12.4, 12},
		{12.5, 13},
		{254.6, 255},
		{600, 255},
	}
	for _, tt := range tests {
		if got := saturate(tt.in); got != tt.want {
			t.Errorf("saturate(%v): got %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestAdjustBrightnessContrast(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 50, B: 250, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{R: 0, G: 10, B: 20, A: 255})

	out, err := AdjustBrightnessContrast(img, 2.0, 30)
	if err != nil {
		t.Fatalf("AdjustBrightnessContrast failed: %v", err)
	}

	tests := []struct {
		x    int
		want color.NRGBA
	}{
		{0, color.NRGBA{R: 230, G: 130, B: 255, A: 255}},
		{1, color.NRGBA{R: 30, G: 50, B: 70, A: 255}},
	}
	for _, tt := range tests {
		if got := out.NRGBAAt(tt.x, 0); got != tt.want {
			t.Errorf("pixel %d: got %+v, want %+v", tt.x, got, tt.want)
		}
	}

	if img.NRGBAAt(0, 0).R != 100 {
		t.Error("input image was modified")
	}
}

func TestAdjustBrightnessContrast_Identity(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 3, 1))
	copy(img.Pix, []uint8{0, 77, 255})

	out, err := AdjustBrightnessContrast(img, 1, 0)
	if err != nil {
		t.Fatalf("AdjustBrightnessContrast failed: %v", err)
	}
	for x, want := range []uint8{0, 77, 255} {
		if got := out.NRGBAAt(x, 0); got.R != want || got.G != want || got.B != want {
			t.Errorf("pixel %d: got %+v, want level %d", x, got, want)
		}
	}
}

func TestAdjustBrightnessContrast_Translucent(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	img.SetNRGBA(0, 0, color.NRGBA{R: 100, G: 40, B: 0, A: 128})
	img.SetNRGBA(1, 0, color.NRGBA{R: 200, G: 200, B: 200, A: 0})

	out, err := AdjustBrightnessContrast(img, 1.0, 50)
	if err != nil {
		t.Fatalf("AdjustBrightnessContrast failed: %v", err)
	}

	// Straight values 100, 40, 0 become 150, 90, 50; premultiplying through
	// 8 bits may shift them by a level or two.
	got := out.NRGBAAt(0, 0)
	want := color.NRGBA{R: 150, G: 90, B: 50, A: 128}
	for _, c := range []struct {
		name      string
		got, want uint8
	}{
		{"R", got.R, want.R},
		{"G", got.G, want.G},
		{"B", got.B, want.B},
	} {
		if d := int(c.got) - int(c.want); d < -2 || d > 2 {
			t.Errorf("%s: got %d, want %d±2", c.name, c.got, c.want)
		}
	}
	if got.A != 128 {
		t.Errorf("A: got %d, want 128", got.A)
	}
	if a := out.NRGBAAt(1, 0).A; a != 0 {
		t.Errorf("transparent pixel should stay transparent, got alpha %d", a)
	}
}

func TestAdjustBrightnessContrast_Invalid(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 1, 1))

	tests := []struct {
		name        string
		alpha, beta float64
		field       string
	}{
		{"nan contrast", math.NaN(), 0, "contrast"},
		{"infinite brightness", 1, math.Inf(-1), "brightness"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := AdjustBrightnessContrast(img, tt.alpha, tt.beta)
			var ve *ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.field {
				t.Errorf("expected %s validation error, got %v", tt.field, err)
			}
		})
	}
}
