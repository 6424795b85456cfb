//go:build cgo

package viewer

import (
	"image"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const (
	maxWindowWidth  = 1280
	maxWindowHeight = 800
)

// Show displays img in a window and blocks until a key is pressed or the
// window is closed.
func Show(title string, img image.Image) error {
	a := app.New()
	w := a.NewWindow(title)

	w.SetContent(imageCanvas(img))
	w.Canvas().SetOnTypedKey(func(*fyne.KeyEvent) {
		w.Close()
	})
	w.Resize(windowSize(img.Bounds()))
	w.ShowAndRun()
	return nil
}

// imageCanvas wraps img so it scales with the window.
func imageCanvas(img image.Image) *canvas.Image {
	c := canvas.NewImageFromImage(img)
	c.FillMode = canvas.ImageFillContain
	c.ScaleMode = canvas.ImageScalePixels
	return c
}

// windowSize fits the image into the maximum window while keeping its aspect.
func windowSize(r image.Rectangle) fyne.Size {
	w, h := float32(r.Dx()), float32(r.Dy())
	if w <= 0 || h <= 0 {
		return fyne.NewSize(320, 240)
	}
	scale := float32(1)
	if w > maxWindowWidth {
		scale = maxWindowWidth / w
	}
	if h*scale > maxWindowHeight {
		scale = maxWindowHeight / h
	}
	return fyne.NewSize(w*scale, h*scale)
}

// labeledSlider builds a slider for a 0-255 level with a caption that tracks
// its value.
func labeledSlider(name string, value int, onChanged func(int)) (*widget.Slider, *fyne.Container) {
	label := widget.NewLabel("")
	setLabel := func(v int) {
		label.SetText(name + ": " + strconv.Itoa(v))
	}
	setLabel(value)

	slider := widget.NewSlider(0, 255)
	slider.Step = 1
	slider.SetValue(float64(value))
	slider.OnChanged = func(v float64) {
		setLabel(int(v))
		onChanged(int(v))
	}
	return slider, container.NewBorder(nil, nil, label, nil, slider)
}
