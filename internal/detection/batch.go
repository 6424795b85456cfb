package detection

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/contour-count/internal/imaging"
)

// BatchOptions configures a multi-image detection run.
type BatchOptions struct {
	// Workers is the number of images processed concurrently. Values below 1
	// mean one worker per CPU.
	Workers int

	// Enhance runs DetectOnEnhancedImage with EnhanceParams instead of Detect.
	Enhance       bool
	EnhanceParams EnhanceParams

	Params Params

	// OutputDir, when set, receives one annotated image per input named
	// <base>_contours<OutputExt>.
	OutputDir string

	// OutputExt selects the annotated image format (".png" or ".webp").
	// Empty means ".png".
	OutputExt string
}

// BatchItem is the outcome for one input image.
type BatchItem struct {
	Path       string    `json:"path"`
	Count      int       `json:"count"`
	AreaStats  AreaStats `json:"area_stats"`
	OutputPath string    `json:"output_path,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// BatchReport collects every item of a batch run in input order.
type BatchReport struct {
	RunID    string        `json:"run_id"`
	Items    []BatchItem   `json:"items"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration_ns"`
}

// RunBatch counts objects in every image in paths using a worker pool.
//
// A failure on one image is recorded in its BatchItem and does not stop the
// others. Cancelling ctx stops dispatching new images; items not yet started
// report ctx.Err().
func RunBatch(ctx context.Context, cache *imaging.ImageCache, paths []string, opts BatchOptions) BatchReport {
	workers := opts.Workers
	if workers < 1 {
		workers = runtime.NumCPU()
	}
	runID := uuid.NewString()
	logger := log.With().Str("run_id", runID).Logger()
	logger.Info().Int("images", len(paths)).Int("workers", workers).Msg("batch started")

	start := time.Now()
	items := make([]BatchItem, len(paths))
	var processed atomic.Int64

	jobs := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				items[idx] = processImage(cache, paths[idx], opts)
				processed.Add(1)
			}
		}()
	}

	dispatched := 0
dispatch:
	for i := range paths {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
			break dispatch
		case jobs <- i:
			dispatched++
		}
	}
	close(jobs)
	wg.Wait()

	for i := dispatched; i < len(paths); i++ {
		items[i] = BatchItem{Path: paths[i], Error: ctx.Err().Error()}
	}

	report := BatchReport{RunID: runID, Items: items, Duration: time.Since(start)}
	for _, it := range items {
		if it.Error != "" {
			report.Failed++
		}
	}
	logger.Info().
		Int64("processed", processed.Load()).
		Int("failed", report.Failed).
		Dur("elapsed", report.Duration).
		Msg("batch finished")
	return report
}

func processImage(cache *imaging.ImageCache, path string, opts BatchOptions) BatchItem {
	item := BatchItem{Path: path}

	img, err := cache.Load(path)
	if err != nil {
		item.Error = err.Error()
		return item
	}

	var res *Result
	if opts.Enhance {
		res, err = DetectOnEnhancedImage(img, opts.EnhanceParams, opts.Params)
	} else {
		res, err = Detect(img, opts.Params)
	}
	if err != nil {
		item.Error = err.Error()
		return item
	}
	item.Count = res.Count
	item.AreaStats = res.AreaStats

	if opts.OutputDir != "" {
		item.OutputPath = annotatedPath(opts.OutputDir, path, opts.OutputExt)
		if err := imaging.Save(item.OutputPath, res.Annotated); err != nil {
			item.Error = fmt.Sprintf("save annotation: %v", err)
		}
	}
	return item
}

// annotatedPath derives the output file name for an annotated input.
func annotatedPath(dir, input, ext string) string {
	if ext == "" {
		ext = ".png"
	}
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(dir, base+"_contours"+ext)
}
