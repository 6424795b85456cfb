//go:build cgo

package viewer

import (
	"image"
	"strconv"

	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/contour-count/internal/imaging"
)

// thresholdTuner re-renders a fixed-threshold mask whenever a slider moves.
type thresholdTuner struct {
	gray    *image.Gray
	params  imaging.ThresholdParams
	preview *widget.Label
	render  func(image.Image)
}

// apply thresholds the source with the current values and hands the mask to
// the renderer. The previous mask stays on screen if the values are rejected.
func (t *thresholdTuner) apply() {
	mask, err := imaging.Threshold(t.gray, t.params)
	if err != nil {
		log.Warn().Err(err).Msg("threshold rejected")
		return
	}
	hist := imaging.Histogram(mask)
	fg := mask.Rect.Dx()*mask.Rect.Dy() - hist[0]
	t.preview.SetText("foreground pixels: " + strconv.Itoa(fg))
	t.render(mask)
}

// TuneThreshold shows the grayscale source next to its thresholded mask with
// a slider for each of the threshold and the foreground level. It blocks until
// the window is closed and returns the last accepted values.
func TuneThreshold(title string, gray *image.Gray, p imaging.ThresholdParams) (imaging.ThresholdParams, error) {
	if err := p.Validate(); err != nil {
		return p, err
	}

	a := app.New()
	w := a.NewWindow(title)

	source := imageCanvas(gray)
	result := imageCanvas(image.NewGray(gray.Rect))

	t := &thresholdTuner{
		gray:    gray,
		params:  p,
		preview: widget.NewLabel(""),
		render: func(img image.Image) {
			result.Image = img
			result.Refresh()
		},
	}

	_, thresholdRow := labeledSlider("threshold", p.Threshold, func(v int) {
		t.params.Threshold = v
		t.apply()
	})
	_, maxRow := labeledSlider("max value", p.MaxValue, func(v int) {
		t.params.MaxValue = v
		t.apply()
	})
	t.apply()

	images := container.NewGridWithColumns(2, source, result)
	controls := container.NewVBox(thresholdRow, maxRow, t.preview)
	w.SetContent(container.NewBorder(nil, controls, nil, nil, images))

	size := windowSize(gray.Rect)
	size.Width *= 2
	if size.Width > maxWindowWidth {
		size.Width = maxWindowWidth
	}
	w.Resize(size)
	w.ShowAndRun()

	log.Info().
		Int("threshold", t.params.Threshold).
		Int("max_value", t.params.MaxValue).
		Msg("threshold tuning finished")
	return t.params, nil
}
