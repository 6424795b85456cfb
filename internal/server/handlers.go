package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/contour-count/internal/detection"
	"github.com/ironsheep/contour-count/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "image_count_objects").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Rejected parameter values return a JSON-RPC error with code -32602; any
// other tool failure uses -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		log.Warn().Err(err).Str("tool", params.Name).Msg("tool call failed")
		var ve *imaging.ValidationError
		if errors.As(err, &ve) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid tool arguments", err.Error())
		}
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
//
// Each tool handler:
//  1. Unmarshals arguments from JSON
//  2. Overlays the supplied arguments on the server's configured defaults
//  3. Loads images from cache as needed
//  4. Calls the appropriate imaging/detection function
//  5. Returns the result or error
func (s *Server) executeTool(name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)

	// Object Counting
	case "image_count_objects":
		return s.handleCountObjects(args, false)
	case "image_count_objects_enhanced":
		return s.handleCountObjects(args, true)
	case "image_count_batch":
		return s.handleCountBatch(args)
	case "image_percent_detected":
		return s.handlePercentDetected(args)

	// Pipeline Stages
	case "image_edge_detect":
		return s.handleEdgeDetect(args)
	case "image_binarize":
		return s.handleBinarize(args)
	case "image_clean_mask":
		return s.handleCleanMask(args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments and rejects a missing path.
func decodeArgs(args json.RawMessage, v interface{ imagePath() string }) error {
	if err := json.Unmarshal(args, v); err != nil {
		return err
	}
	if v.imagePath() == "" {
		return fmt.Errorf("path is required")
	}
	return nil
}

type pathArg struct {
	Path string `json:"path"`
}

func (a pathArg) imagePath() string { return a.Path }

// imageOutput carries an optional rendered image back to the client, either
// written to disk, inlined as base64 PNG, or both.
type imageOutput struct {
	OutputPath  string `json:"output_path,omitempty"`
	ImageBase64 string `json:"image_base64,omitempty"`
	MimeType    string `json:"mime_type,omitempty"`
}

type outputArgs struct {
	OutputPath   string `json:"output_path"`
	IncludeImage bool   `json:"include_image"`
}

func (o outputArgs) render(img image.Image) (imageOutput, error) {
	var out imageOutput
	if o.OutputPath != "" {
		if err := imaging.Save(o.OutputPath, img); err != nil {
			return out, err
		}
		out.OutputPath = o.OutputPath
	}
	if o.IncludeImage {
		encoded, err := imaging.EncodePNGBase64(img)
		if err != nil {
			return out, fmt.Errorf("failed to encode image: %w", err)
		}
		out.ImageBase64 = encoded
		out.MimeType = "image/png"
	}
	return out, nil
}

// === Basic Image Information Handlers ===

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a pathArg
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

// === Object Counting Handlers ===

type countObjectsArgs struct {
	pathArg
	outputArgs

	MinArea      *float64 `json:"min_area"`
	MaxArea      *float64 `json:"max_area"`
	EdgeLow      *float64 `json:"edge_low"`
	EdgeHigh     *float64 `json:"edge_high"`
	ContourColor *string  `json:"contour_color"`
	StrokeWidth  *int     `json:"stroke_width"`
	Caption      *bool    `json:"caption"`

	Contrast   *float64 `json:"contrast"`
	Brightness *float64 `json:"brightness"`

	ExpectedCount *int `json:"expected_count"`
}

// params overlays the supplied arguments on base.
func (a countObjectsArgs) params(base detection.Params) detection.Params {
	p := base
	setIf(&p.MinArea, a.MinArea)
	setIf(&p.MaxArea, a.MaxArea)
	setIf(&p.EdgeLow, a.EdgeLow)
	setIf(&p.EdgeHigh, a.EdgeHigh)
	setIf(&p.ContourColor, a.ContourColor)
	setIf(&p.StrokeWidth, a.StrokeWidth)
	setIf(&p.Caption, a.Caption)
	return p
}

func (a countObjectsArgs) enhance(base detection.EnhanceParams) detection.EnhanceParams {
	e := base
	setIf(&e.Contrast, a.Contrast)
	setIf(&e.Brightness, a.Brightness)
	return e
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// CountObjectsResult is returned by the counting tools.
type CountObjectsResult struct {
	Count     int                      `json:"count"`
	Regions   []detection.Region       `json:"regions"`
	AreaStats detection.AreaStats      `json:"area_stats"`
	Params    detection.Params         `json:"params"`
	Enhance   *detection.EnhanceParams `json:"enhance,omitempty"`

	ExpectedCount   *int     `json:"expected_count,omitempty"`
	PercentDetected *float64 `json:"percent_detected,omitempty"`

	imageOutput
}

func (s *Server) handleCountObjects(args json.RawMessage, enhanced bool) (interface{}, error) {
	var a countObjectsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}

	p := a.params(s.cfg.Detect)
	out := &CountObjectsResult{Params: p}

	var res *detection.Result
	if enhanced {
		e := a.enhance(s.cfg.Enhance)
		out.Enhance = &e
		res, err = detection.DetectOnEnhancedImage(img, e, p)
	} else {
		res, err = detection.Detect(img, p)
	}
	if err != nil {
		return nil, err
	}

	out.Count = res.Count
	out.Regions = res.Regions
	out.AreaStats = res.AreaStats
	if a.ExpectedCount != nil {
		pct := detection.PercentDetected(res.Count, *a.ExpectedCount)
		out.ExpectedCount = a.ExpectedCount
		out.PercentDetected = &pct
	}

	out.imageOutput, err = a.render(res.Annotated)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type countBatchArgs struct {
	Paths     []string `json:"paths"`
	Workers   int      `json:"workers"`
	OutputDir string   `json:"output_dir"`
	OutputExt string   `json:"output_ext"`
	Enhance   bool     `json:"enhance"`
}

func (s *Server) handleCountBatch(args json.RawMessage) (interface{}, error) {
	var a countBatchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if len(a.Paths) == 0 {
		return nil, fmt.Errorf("paths must name at least one image")
	}

	opts := detection.BatchOptions{
		Workers:       s.cfg.Batch.Workers,
		Enhance:       a.Enhance,
		EnhanceParams: s.cfg.Enhance,
		Params:        s.cfg.Detect,
		OutputDir:     s.cfg.Batch.OutputDir,
		OutputExt:     s.cfg.Batch.OutputExt,
	}
	if a.Workers > 0 {
		opts.Workers = a.Workers
	}
	if a.OutputDir != "" {
		opts.OutputDir = a.OutputDir
	}
	if a.OutputExt != "" {
		opts.OutputExt = a.OutputExt
	}

	report := detection.RunBatch(context.Background(), s.cache, a.Paths, opts)
	return report, nil
}

type percentDetectedArgs struct {
	Detected int `json:"detected"`
	Expected int `json:"expected"`
}

// PercentDetectedResult is returned by image_percent_detected.
type PercentDetectedResult struct {
	Detected int     `json:"detected"`
	Expected int     `json:"expected"`
	Percent  float64 `json:"percent"`
}

func (s *Server) handlePercentDetected(args json.RawMessage) (interface{}, error) {
	var a percentDetectedArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return &PercentDetectedResult{
		Detected: a.Detected,
		Expected: a.Expected,
		Percent:  detection.PercentDetected(a.Detected, a.Expected),
	}, nil
}

// === Pipeline Stage Handlers ===

type edgeDetectArgs struct {
	pathArg
	ThresholdLow  *float64 `json:"threshold_low"`
	ThresholdHigh *float64 `json:"threshold_high"`
}

func (s *Server) handleEdgeDetect(args json.RawMessage) (interface{}, error) {
	var a edgeDetectArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	low, high := s.cfg.Detect.EdgeLow, s.cfg.Detect.EdgeHigh
	setIf(&low, a.ThresholdLow)
	setIf(&high, a.ThresholdHigh)

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.EdgeDetect(img, low, high)
}

type binarizeArgs struct {
	pathArg
	outputArgs

	// Threshold selects a fixed cut; when absent the Otsu threshold is used.
	Threshold *int `json:"threshold"`
	MaxValue  *int `json:"max_value"`
}

// BinarizeResult is returned by image_binarize.
type BinarizeResult struct {
	Width      int  `json:"width"`
	Height     int  `json:"height"`
	Threshold  int  `json:"threshold"`
	Auto       bool `json:"auto"`
	Foreground int  `json:"foreground_pixels"`

	imageOutput
}

func (s *Server) handleBinarize(args json.RawMessage) (interface{}, error) {
	var a binarizeArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.OutputPath == "" {
		a.IncludeImage = true
	}
	gray, err := s.cache.LoadGray(a.Path)
	if err != nil {
		return nil, err
	}

	p := imaging.ThresholdParams{Threshold: int(s.cfg.Detect.BinLow), MaxValue: int(s.cfg.Detect.BinHigh)}
	setIf(&p.MaxValue, a.MaxValue)
	auto := a.Threshold == nil
	if auto {
		if t, ok := imaging.OtsuThreshold(gray); ok {
			p.Threshold = t
		}
	} else {
		p.Threshold = *a.Threshold
	}

	binary, err := imaging.Threshold(gray, p)
	if err != nil {
		return nil, err
	}

	out := &BinarizeResult{
		Width:      binary.Rect.Dx(),
		Height:     binary.Rect.Dy(),
		Threshold:  p.Threshold,
		Auto:       auto,
		Foreground: detection.AnalyzeMask(binary).Foreground,
	}
	out.imageOutput, err = a.render(binary)
	if err != nil {
		return nil, err
	}
	return out, nil
}

type cleanMaskArgs struct {
	pathArg
	outputArgs

	OpenKernel      *int `json:"kernel_size_open"`
	CloseKernel     *int `json:"kernel_size_close"`
	OpenIterations  *int `json:"iter_open"`
	CloseIterations *int `json:"iter_close"`
}

// CleanMaskResult is returned by image_clean_mask.
type CleanMaskResult struct {
	Before detection.MaskStats `json:"before"`
	After  detection.MaskStats `json:"after"`
	Params imaging.MorphParams `json:"params"`

	imageOutput
}

func (s *Server) handleCleanMask(args json.RawMessage) (interface{}, error) {
	var a cleanMaskArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.OutputPath == "" {
		a.IncludeImage = true
	}

	m := s.cfg.Clean
	setIf(&m.OpenKernel, a.OpenKernel)
	setIf(&m.CloseKernel, a.CloseKernel)
	setIf(&m.OpenIterations, a.OpenIterations)
	setIf(&m.CloseIterations, a.CloseIterations)

	mask, err := s.cache.LoadGray(a.Path)
	if err != nil {
		return nil, err
	}
	cleaned, err := detection.CleanMask(mask, m)
	if err != nil {
		return nil, err
	}

	out := &CleanMaskResult{
		Before: detection.AnalyzeMask(imaging.NormalizeToBinary(mask)),
		After:  detection.AnalyzeMask(cleaned),
		Params: m,
	}
	out.imageOutput, err = a.render(cleaned)
	if err != nil {
		return nil, err
	}
	return out, nil
}
