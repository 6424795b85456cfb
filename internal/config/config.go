// Package config loads tunable pipeline parameters from a YAML or JSON file.
//
// Every field that is absent from the file keeps its default, so a file only
// needs to name the values it changes:
//
//	detect:
//	  min_area: 200
//	  contour_color: "#FF0000"
//	clean:
//	  kernel_size_open: 3
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	yaml "gopkg.in/yaml.v3"

	"github.com/ironsheep/contour-count/internal/detection"
	"github.com/ironsheep/contour-count/internal/imaging"
)

// Config groups the parameters of every pipeline entry point.
type Config struct {
	Detect  detection.Params        `json:"detect" yaml:"detect"`
	Enhance detection.EnhanceParams `json:"enhance" yaml:"enhance"`
	Clean   imaging.MorphParams     `json:"clean" yaml:"clean"`
	Batch   Batch                   `json:"batch" yaml:"batch"`
}

// Batch configures multi-image runs.
type Batch struct {
	Workers   int    `json:"workers" yaml:"workers"`
	OutputDir string `json:"output_dir" yaml:"output_dir"`
	OutputExt string `json:"output_ext" yaml:"output_ext"`
}

// Default returns the built-in parameters.
func Default() Config {
	return Config{
		Detect:  detection.DefaultParams(),
		Enhance: detection.DefaultEnhanceParams(),
		Clean:   imaging.DefaultMorphParams(),
		Batch:   Batch{OutputExt: ".png"},
	}
}

// Load reads path over the defaults. An empty path returns the defaults.
// Unknown keys are rejected so that typos do not silently fall back.
func Load(path string) (Config, error) {
	return LoadOver(path, Default())
}

// LoadOver reads path over base instead of the built-in defaults, for entry
// points with defaults of their own.
func LoadOver(path string, base Config) (Config, error) {
	cfg := base
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
			return cfg, fmt.Errorf("failed to parse YAML config file %s: %w", path, err)
		}
	case ".json":
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse JSON config file %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config file format: %s (supported: .yaml, .yml, .json)", ext)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config file %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks every section.
func (c Config) Validate() error {
	if err := c.Detect.Validate(); err != nil {
		return err
	}
	if err := c.Enhance.Validate(); err != nil {
		return err
	}
	if err := c.Clean.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Batch.OutputExt) {
	case "", ".png", ".webp", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff":
	default:
		return &imaging.ValidationError{Field: "output_ext", Value: c.Batch.OutputExt, Reason: "unsupported image format"}
	}
	return nil
}
