package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"io"
	"math/rand/v2"
	"os"
	"os/signal"
	"time"

	"github.com/ironsheep/contour-count/internal/config"
	"github.com/ironsheep/contour-count/internal/detection"
	"github.com/ironsheep/contour-count/internal/imaging"
	"github.com/ironsheep/contour-count/internal/viewer"
)

// detectFlags registers the detection parameter flags shared by coins and
// detect and returns the overrides they map to.
type detectFlags struct {
	minArea, maxArea  float64
	edgeLow, edgeHigh float64
	binLow, binHigh   float64
	color             string
	strokeWidth       int
	caption           bool
}

func (d *detectFlags) register(fs *flag.FlagSet, defaults detection.Params) map[string]func(*config.Config) {
	fs.Float64Var(&d.minArea, "min-area", defaults.MinArea, "Drop contours with area at or below this")
	fs.Float64Var(&d.maxArea, "max-area", defaults.MaxArea, "Drop contours with area at or above this")
	fs.Float64Var(&d.edgeLow, "edge-low", defaults.EdgeLow, "Canny low hysteresis threshold")
	fs.Float64Var(&d.edgeHigh, "edge-high", defaults.EdgeHigh, "Canny high hysteresis threshold")
	fs.Float64Var(&d.binLow, "bin-low", defaults.BinLow, "Binarization fallback threshold")
	fs.Float64Var(&d.binHigh, "bin-high", defaults.BinHigh, "Binarization foreground level")
	fs.StringVar(&d.color, "color", defaults.ContourColor, "Contour color as #RRGGBB")
	fs.IntVar(&d.strokeWidth, "stroke-width", defaults.StrokeWidth, "Contour stroke width in pixels")
	fs.BoolVar(&d.caption, "caption", defaults.Caption, "Write the object count on the output image")

	return map[string]func(*config.Config){
		"min-area":     func(c *config.Config) { c.Detect.MinArea = d.minArea },
		"max-area":     func(c *config.Config) { c.Detect.MaxArea = d.maxArea },
		"edge-low":     func(c *config.Config) { c.Detect.EdgeLow = d.edgeLow },
		"edge-high":    func(c *config.Config) { c.Detect.EdgeHigh = d.edgeHigh },
		"bin-low":      func(c *config.Config) { c.Detect.BinLow = d.binLow },
		"bin-high":     func(c *config.Config) { c.Detect.BinHigh = d.binHigh },
		"color":        func(c *config.Config) { c.Detect.ContourColor = d.color },
		"stroke-width": func(c *config.Config) { c.Detect.StrokeWidth = d.strokeWidth },
		"caption":      func(c *config.Config) { c.Detect.Caption = d.caption },
	}
}

// requireOne returns the single positional argument of a command.
func requireOne(positional []string, what string) (string, error) {
	if len(positional) != 1 {
		return "", fmt.Errorf("expected exactly one %s, got %d", what, len(positional))
	}
	return positional[0], nil
}

func runCoins(args []string, stdout io.Writer) error {
	var configPath, output string
	var show bool
	var df detectFlags

	base := config.Default()
	base.Detect = detection.DefaultCoinParams()

	fs := newFlagSet("coins")
	configFlag(fs, &configPath)
	overrides := df.register(fs, base.Detect)
	fs.StringVar(&output, "output", "", "Save the annotated image to this path")
	fs.BoolVar(&show, "show", false, "Display the annotated image")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	path, err := requireOne(positional, "image")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(fs, configPath, base, overrides)
	if err != nil {
		return err
	}

	img, err := imaging.NewImageCache().Load(path)
	if err != nil {
		return err
	}
	res, err := detection.Detect(img, cfg.Detect)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "objects: %d\n", res.Count)
	if err := saveOutput(stdout, output, res.Annotated); err != nil {
		return err
	}
	if show {
		return viewer.Show(fmt.Sprintf("%s - %d objects", path, res.Count), res.Annotated)
	}
	return nil
}

func runDetect(args []string, stdout io.Writer) error {
	var configPath, output, outputDir string
	var contrast, brightness float64
	var testCount, workers int
	var show bool
	var df detectFlags

	defaults := config.Default()
	fs := newFlagSet("detect")
	configFlag(fs, &configPath)
	overrides := df.register(fs, defaults.Detect)
	fs.Float64Var(&contrast, "contrast", defaults.Enhance.Contrast, "Contrast gain applied before detection")
	fs.Float64Var(&brightness, "brightness", defaults.Enhance.Brightness, "Brightness offset applied before detection")
	fs.IntVar(&testCount, "test-count", 0, "Known object count; prints the detection percentage")
	fs.StringVar(&output, "output", "", "Save the annotated image to this path (single image)")
	fs.StringVar(&outputDir, "output-dir", "", "Directory for annotated images (several images)")
	fs.IntVar(&workers, "workers", 0, "Concurrent workers for several images (default: NumCPU)")
	fs.BoolVar(&show, "show", false, "Display the original next to the annotated image (single image)")
	overrides["contrast"] = func(c *config.Config) { c.Enhance.Contrast = contrast }
	overrides["brightness"] = func(c *config.Config) { c.Enhance.Brightness = brightness }
	overrides["workers"] = func(c *config.Config) { c.Batch.Workers = workers }
	overrides["output-dir"] = func(c *config.Config) { c.Batch.OutputDir = outputDir }

	paths, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return errors.New("expected at least one image")
	}

	cfg, err := loadConfig(fs, configPath, defaults, overrides)
	if err != nil {
		return err
	}
	cache := imaging.NewImageCache()

	if len(paths) > 1 {
		return detectBatch(stdout, cache, paths, cfg)
	}

	img, err := cache.Load(paths[0])
	if err != nil {
		return err
	}
	res, err := detection.DetectOnEnhancedImage(img, cfg.Enhance, cfg.Detect)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "objects: %d\n", res.Count)
	if isSet(fs, "test-count") {
		pct := detection.PercentDetected(res.Count, testCount)
		fmt.Fprintf(stdout, "detected: %.2f%% (%d/%d)\n", pct, res.Count, testCount)
	}
	if err := saveOutput(stdout, output, res.Annotated); err != nil {
		return err
	}
	if show {
		return viewer.Show("Object Detection Comparison", imaging.SideBySide(img, res.Annotated))
	}
	return nil
}

func detectBatch(stdout io.Writer, cache *imaging.ImageCache, paths []string, cfg config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	report := detection.RunBatch(ctx, cache, paths, detection.BatchOptions{
		Workers:       cfg.Batch.Workers,
		Enhance:       true,
		EnhanceParams: cfg.Enhance,
		Params:        cfg.Detect,
		OutputDir:     cfg.Batch.OutputDir,
		OutputExt:     cfg.Batch.OutputExt,
	})

	total := 0
	for _, it := range report.Items {
		if it.Error != "" {
			fmt.Fprintf(stdout, "%s: error: %s\n", it.Path, it.Error)
			continue
		}
		total += it.Count
		fmt.Fprintf(stdout, "%s: %d\n", it.Path, it.Count)
	}
	fmt.Fprintf(stdout, "total: %d objects in %d images (%d failed)\n", total, len(report.Items), report.Failed)

	if report.Failed > 0 {
		return fmt.Errorf("%d of %d images failed", report.Failed, len(report.Items))
	}
	return nil
}

func runClean(args []string, stdout io.Writer) error {
	var configPath, inputMask, output string
	var openKernel, closeKernel, openIter, closeIter int
	var noiseLevel float64
	var seed uint64
	var show bool

	defaults := imaging.DefaultMorphParams()
	fs := newFlagSet("clean")
	configFlag(fs, &configPath)
	fs.StringVar(&inputMask, "input-mask", "", "Mask to process (default: a random 400x400 mask)")
	fs.IntVar(&openKernel, "kernel-size-open", defaults.OpenKernel, "Kernel size of the open pass")
	fs.IntVar(&closeKernel, "kernel-size-close", defaults.CloseKernel, "Kernel size of the close pass")
	fs.IntVar(&openIter, "iter-open", defaults.OpenIterations, "Iterations of the open pass")
	fs.IntVar(&closeIter, "iter-close", defaults.CloseIterations, "Iterations of the close pass")
	fs.Float64Var(&noiseLevel, "noise-level", 0.1, "Probability of flipping each mask pixel before cleaning")
	fs.Uint64Var(&seed, "seed", 0, "Random seed (default: time based)")
	fs.StringVar(&output, "output", "", "Save the noisy and cleaned masks side by side to this path")
	fs.BoolVar(&show, "show", false, "Display the noisy and cleaned masks side by side")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	if len(positional) > 0 {
		return fmt.Errorf("unexpected argument %q", positional[0])
	}

	cfg, err := loadConfig(fs, configPath, config.Default(), map[string]func(*config.Config){
		"kernel-size-open":  func(c *config.Config) { c.Clean.OpenKernel = openKernel },
		"kernel-size-close": func(c *config.Config) { c.Clean.CloseKernel = closeKernel },
		"iter-open":         func(c *config.Config) { c.Clean.OpenIterations = openIter },
		"iter-close":        func(c *config.Config) { c.Clean.CloseIterations = closeIter },
	})
	if err != nil {
		return err
	}

	if !isSet(fs, "seed") {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed))

	var mask *image.Gray
	if inputMask != "" {
		mask, err = imaging.NewImageCache().LoadGray(inputMask)
		if err != nil {
			return err
		}
	} else {
		mask = imaging.RandomMask(400, 400, rng)
	}

	noisy, err := imaging.AddNoise(mask, noiseLevel, rng)
	if err != nil {
		return err
	}
	cleaned, err := detection.CleanMask(noisy, cfg.Clean)
	if err != nil {
		return err
	}

	before, after := detection.AnalyzeMask(noisy), detection.AnalyzeMask(cleaned)
	fmt.Fprintf(stdout, "before: %d foreground pixels, %d components, %d isolated\n",
		before.Foreground, before.Components, before.Isolated)
	fmt.Fprintf(stdout, "after:  %d foreground pixels, %d components, %d isolated\n",
		after.Foreground, after.Components, after.Isolated)

	if output == "" && !show {
		return nil
	}
	comparison := imaging.SideBySide(noisy, cleaned)
	if err := saveOutput(stdout, output, comparison); err != nil {
		return err
	}
	if show {
		return viewer.Show("Comparison", comparison)
	}
	return nil
}

func runMask(args []string, stdout io.Writer) error {
	var shapeName, output string
	var radius int
	var show bool

	fs := newFlagSet("mask")
	fs.StringVar(&shapeName, "shape", string(imaging.ShapeCircle), "Shape of the mask: circle or square")
	fs.IntVar(&radius, "radius", 100, "Radius of the circle or half-side of the square")
	fs.StringVar(&output, "output", "output.png", "Output file name")
	fs.BoolVar(&show, "show", false, "Display the result")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	path, err := requireOne(positional, "image")
	if err != nil {
		return err
	}
	shape, err := imaging.ParseShape(shapeName)
	if err != nil {
		return err
	}

	img, err := imaging.NewImageCache().Load(path)
	if err != nil {
		return err
	}
	b := img.Bounds()
	mask, err := imaging.ShapeMask(shape, radius, b.Dx(), b.Dy())
	if err != nil {
		return err
	}
	result, err := imaging.ApplyMask(img, mask)
	if err != nil {
		return err
	}

	if err := saveOutput(stdout, output, result); err != nil {
		return err
	}
	if show {
		return viewer.Show("Result", result)
	}
	return nil
}

func runTune(args []string, stdout io.Writer) error {
	var p imaging.ThresholdParams

	fs := newFlagSet("tune")
	fs.IntVar(&p.Threshold, "threshold", 127, "Initial threshold")
	fs.IntVar(&p.MaxValue, "max-value", 255, "Initial foreground level")

	positional, err := parseInterleaved(fs, args)
	if err != nil {
		return err
	}
	path, err := requireOne(positional, "image")
	if err != nil {
		return err
	}
	if err := p.Validate(); err != nil {
		return err
	}

	gray, err := imaging.NewImageCache().LoadGray(path)
	if err != nil {
		return err
	}
	final, err := viewer.TuneThreshold("Binarization", gray, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "threshold: %d\nmax value: %d\n", final.Threshold, final.MaxValue)
	return nil
}

// saveOutput writes img when path is set and reports where it went.
func saveOutput(stdout io.Writer, path string, img image.Image) error {
	if path == "" {
		return nil
	}
	if err := imaging.Save(path, img); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "saved: %s\n", path)
	return nil
}
