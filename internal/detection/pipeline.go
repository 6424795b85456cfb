package detection

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/contour-count/internal/imaging"
)

// Pipeline stage names reported in ProcessingError.Stage and in log events.
const (
	StageInput     = "input"
	StageEnhance   = "enhance"
	StageEdges     = "edges"
	StageBinarize  = "binarize"
	StageClose     = "close"
	StageContours  = "contours"
	StageFilter    = "filter"
	StageAnnotate  = "annotate"
	StageCleanMask = "clean_mask"
)

// ProcessingError reports a failure inside a pipeline stage after the
// parameters were accepted.
type ProcessingError struct {
	Stage string
	Err   error
}

func (e *ProcessingError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *ProcessingError) Unwrap() error {
	return e.Err
}

// runStage executes fn, converting a returned error or a panic into a
// *ProcessingError tagged with the stage name.
func runStage(stage string, fn func() error) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &ProcessingError{Stage: stage, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	if err := fn(); err != nil {
		return &ProcessingError{Stage: stage, Err: err}
	}
	log.Debug().Str("stage", stage).Dur("elapsed", time.Since(start)).Msg("stage complete")
	return nil
}

// logFailure writes the single error event for a failed pipeline run.
func logFailure(op string, err error) {
	ev := log.Error().Err(err).Str("op", op)
	var pe *ProcessingError
	if errors.As(err, &pe) {
		ev = ev.Str("stage", pe.Stage)
	}
	ev.Msg("pipeline failed")
}

// Detect counts the distinct objects in an image.
//
// The image is converted to grayscale, edge-detected, binarized at its Otsu
// threshold, closed with a square kernel to bridge small gaps, and then its
// outer contours are traced and filtered by area. The kept contours are drawn
// on a copy of img; img itself is never modified.
//
// Parameter errors are returned as *imaging.ValidationError before any raster
// work starts. Any later failure, including a panic in a stage, is returned as
// *ProcessingError and logged once.
func Detect(img image.Image, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	res, err := detect(img, p)
	if err != nil {
		logFailure("detect", err)
		return nil, err
	}
	return res, nil
}

// DetectOnEnhancedImage remaps every channel of img with
// saturate(contrast*v + brightness) and runs Detect on the result, so the
// contours in the returned annotation are drawn on the enhanced image.
func DetectOnEnhancedImage(img image.Image, e EnhanceParams, p Params) (*Result, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var enhanced *image.NRGBA
	err := runStage(StageEnhance, func() error {
		if img == nil {
			return errors.New("nil image")
		}
		var err error
		enhanced, err = imaging.AdjustBrightnessContrast(img, e.Contrast, e.Brightness)
		return err
	})
	if err != nil {
		logFailure("detect_enhanced", err)
		return nil, err
	}

	res, err := detect(enhanced, p)
	if err != nil {
		logFailure("detect_enhanced", err)
		return nil, err
	}
	return res, nil
}

func detect(img image.Image, p Params) (*Result, error) {
	var (
		gray     *image.Gray
		edges    *image.Gray
		binary   *image.Gray
		closed   *image.Gray
		contours []Contour
		kept     []Contour
		out      *image.NRGBA
	)

	stages := []struct {
		name string
		fn   func() error
	}{
		{StageInput, func() error {
			if img == nil {
				return errors.New("nil image")
			}
			if img.Bounds().Empty() {
				return errors.New("empty image")
			}
			gray = imaging.ToGray(img)
			return nil
		}},
		{StageEdges, func() (err error) {
			edges, err = imaging.DetectEdges(gray, p.EdgeLow, p.EdgeHigh)
			return err
		}},
		{StageBinarize, func() (err error) {
			binary, err = imaging.BinarizeWithAutoThreshold(edges, p.BinLow, p.BinHigh)
			return err
		}},
		{StageClose, func() (err error) {
			closed, err = imaging.Close(binary, p.CloseKernel, p.CloseIterations)
			return err
		}},
		{StageContours, func() error {
			contours, _ = ExtractOuterContours(closed)
			return nil
		}},
		{StageFilter, func() error {
			kept = FilterByArea(contours, p.MinArea, p.MaxArea)
			return nil
		}},
		{StageAnnotate, func() error {
			c, err := imaging.ParseColor(p.ContourColor)
			if err != nil {
				return err
			}
			pts := make([][]image.Point, len(kept))
			for i, k := range kept {
				pts[i] = k.Points
			}
			out = imaging.DrawContours(img, pts, c, p.StrokeWidth)
			if p.Caption {
				out = imaging.DrawLabel(out, 4, 4, imaging.CountCaption(len(kept)))
			}
			return nil
		}},
	}

	for _, s := range stages {
		if err := runStage(s.name, s.fn); err != nil {
			return nil, err
		}
	}

	log.Info().
		Int("candidates", len(contours)).
		Int("count", len(kept)).
		Float64("min_area", p.MinArea).
		Float64("max_area", p.MaxArea).
		Msg("objects detected")

	return newResult(kept, out), nil
}

// CleanMask removes salt noise and fills small holes in a binary mask by
// opening and then closing it with square kernels.
//
// A mask with more than two intensity levels is first cut at 127. The input is
// never modified.
func CleanMask(mask image.Image, m imaging.MorphParams) (*image.Gray, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}

	var cleaned *image.Gray
	err := runStage(StageCleanMask, func() error {
		if mask == nil {
			return errors.New("nil mask")
		}
		var err error
		cleaned, err = imaging.CleanMask(imaging.ToGray(mask), m)
		return err
	})
	if err != nil {
		logFailure("clean_mask", err)
		return nil, err
	}
	return cleaned, nil
}
