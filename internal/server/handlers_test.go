package server

import (
	"encoding/json"
	"image"
	"image/color"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ironsheep/contour-count/internal/config"
	"github.com/ironsheep/contour-count/internal/detection"
	"github.com/ironsheep/contour-count/internal/imaging"
)

// createTestImageFile saves img as a PNG under the test's temp dir and
// returns its path
func createTestImageFile(t *testing.T, name string, img image.Image) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := imaging.Save(path, img); err != nil {
		t.Fatalf("failed to save test image: %v", err)
	}
	return path
}

// createCirclesImage draws white filled circles of radius 20 on black.
func createCirclesImage(centers ...image.Point) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, 260, 180))
	for _, c := range centers {
		for y := c.Y - 20; y <= c.Y+20; y++ {
			for x := c.X - 20; x <= c.X+20; x++ {
				dx, dy := x-c.X, y-c.Y
				if dx*dx+dy*dy <= 400 {
					img.SetGray(x, y, color.Gray{Y: 255})
				}
			}
		}
	}
	return img
}

var fourCenters = []image.Point{{50, 50}, {130, 50}, {210, 50}, {50, 130}}

// callTool issues a tools/call request and returns the response.
func callTool(t *testing.T, s *Server, name string, args map[string]interface{}) *MCPResponse {
	t.Helper()

	paramsJSON, err := json.Marshal(map[string]interface{}{
		"name":      name,
		"arguments": args,
	})
	if err != nil {
		t.Fatalf("failed to marshal params: %v", err)
	}

	resp := s.handleRequest(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	if resp == nil {
		t.Fatal("handleRequest returned nil")
	}
	return resp
}

// decodeToolResult unwraps the MCP text content into v.
func decodeToolResult(t *testing.T, resp *MCPResponse, v interface{}) {
	t.Helper()

	if resp.Error != nil {
		t.Fatalf("Unexpected error: %+v", resp.Error)
	}
	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	content, ok := result["content"].([]map[string]interface{})
	if !ok || len(content) != 1 {
		t.Fatalf("Result should carry one content item, got %v", result["content"])
	}
	if content[0]["type"] != "text" {
		t.Errorf("content type: got %v, want text", content[0]["type"])
	}
	text, _ := content[0]["text"].(string)
	if err := json.Unmarshal([]byte(text), v); err != nil {
		t.Fatalf("content is not JSON: %v", err)
	}
}

func TestHandleToolsCall_ImageLoad(t *testing.T) {
	s := New(config.Default())
	imgPath := createTestImageFile(t, "circles.png", createCirclesImage(fourCenters...))

	var info imaging.ImageInfo
	decodeToolResult(t, callTool(t, s, "image_load", map[string]interface{}{"path": imgPath}), &info)

	if info.Width != 260 || info.Height != 180 {
		t.Errorf("Dimensions: got %dx%d, want 260x180", info.Width, info.Height)
	}
	if info.Format != "png" || !info.Grayscale || !info.Binary {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestHandleToolsCall_Errors(t *testing.T) {
	s := New(config.Default())
	imgPath := createTestImageFile(t, "circles.png", createCirclesImage(fourCenters[0]))

	tests := []struct {
		name     string
		tool     string
		args     map[string]interface{}
		wantCode int
		substr   string
	}{
		{"unknown tool", "nonexistent_tool", map[string]interface{}{}, codeToolFailed, "unknown tool"},
		{"missing path", "image_load", map[string]interface{}{}, codeToolFailed, "path is required"},
		{"missing file", "image_count_objects", map[string]interface{}{"path": "/nonexistent/image.png"}, codeToolFailed, "/nonexistent/image.png"},
		{"bad color", "image_count_objects", map[string]interface{}{"path": imgPath, "contour_color": "green"}, codeInvalidParams, "invalid color"},
		{"negative edge_low", "image_count_objects", map[string]interface{}{"path": imgPath, "edge_low": -1}, codeInvalidParams, "edge_low"},
		{"bad threshold", "image_binarize", map[string]interface{}{"path": imgPath, "threshold": 300}, codeInvalidParams, "threshold"},
		{"zero iterations", "image_clean_mask", map[string]interface{}{"path": imgPath, "iter_open": 0}, codeInvalidParams, "iter_open"},
		{"no batch paths", "image_count_batch", map[string]interface{}{}, codeToolFailed, "paths"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, tt.tool, tt.args)
			if resp.Error == nil {
				t.Fatal("expected error response")
			}
			if resp.Error.Code != tt.wantCode {
				t.Errorf("Error code: got %d, want %d", resp.Error.Code, tt.wantCode)
			}
			data, _ := resp.Error.Data.(string)
			if !strings.Contains(data, tt.substr) {
				t.Errorf("error data %q should mention %q", data, tt.substr)
			}
		})
	}
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(config.Default())
	resp := s.handleToolsCall(&MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Params:  json.RawMessage(`"not an object"`),
	})

	if resp.Error == nil || resp.Error.Code != codeInvalidParams {
		t.Errorf("expected invalid params error, got %+v", resp.Error)
	}
}

func TestHandleToolsCall_CountObjects(t *testing.T) {
	s := New(config.Default())
	imgPath := createTestImageFile(t, "circles.png", createCirclesImage(fourCenters...))
	outPath := filepath.Join(t.TempDir(), "out", "annotated.png")

	var result CountObjectsResult
	decodeToolResult(t, callTool(t, s, "image_count_objects", map[string]interface{}{
		"path":           imgPath,
		"output_path":    outPath,
		"include_image":  true,
		"expected_count": 5,
	}), &result)

	if result.Count != len(fourCenters) || len(result.Regions) != result.Count {
		t.Errorf("Count: got %d with %d regions, want %d", result.Count, len(result.Regions), len(fourCenters))
	}
	if result.PercentDetected == nil || *result.PercentDetected != 80 {
		t.Errorf("PercentDetected: got %v, want 80", result.PercentDetected)
	}
	if result.Params != detection.DefaultParams() {
		t.Errorf("Params should be the configured defaults, got %+v", result.Params)
	}
	if result.Enhance != nil {
		t.Error("Enhance should be omitted for the plain count")
	}
	if result.ImageBase64 == "" || result.MimeType != "image/png" {
		t.Error("Expected an inline PNG")
	}
	if _, err := os.Stat(outPath); err != nil {
		t.Errorf("annotated image not written: %v", err)
	}
}

func TestHandleToolsCall_CountObjectsOverrides(t *testing.T) {
	s := New(config.Default())
	imgPath := createTestImageFile(t, "circles.png", createCirclesImage(fourCenters...))

	var result CountObjectsResult
	decodeToolResult(t, callTool(t, s, "image_count_objects", map[string]interface{}{
		"path":     imgPath,
		"min_area": 5000,
		"max_area": 9000,
	}), &result)

	if result.Count != 0 {
		t.Errorf("Count: got %d, want 0 when every circle is below min_area", result.Count)
	}
	if result.Params.MinArea != 5000 || result.Params.EdgeLow != 50 {
		t.Errorf("overrides should only replace named fields, got %+v", result.Params)
	}
	if result.ImageBase64 != "" || result.OutputPath != "" {
		t.Error("No image should be returned unless requested")
	}
}

func TestHandleToolsCall_CountObjectsNegativeMinArea(t *testing.T) {
	s := New(config.Default())
	imgPath := createTestImageFile(t, "circles.png", createCirclesImage(fourCenters...))

	var result CountObjectsResult
	decodeToolResult(t, callTool(t, s, "image_count_objects", map[string]interface{}{
		"path":     imgPath,
		"min_area": -1,
	}), &result)

	if result.Count < len(fourCenters) {
		t.Errorf("Count: got %d, want at least %d", result.Count, len(fourCenters))
	}
	if result.Params.MinArea != -1 {
		t.Errorf("MinArea: got %v, want -1", result.Params.MinArea)
	}
}

func TestHandleToolsCall_CountObjectsEnhanced(t *testing.T) {
	s := New(config.Default())
	imgPath := createTestImageFile(t, "circles.png", createCirclesImage(fourCenters...))

	var result CountObjectsResult
	decodeToolResult(t, callTool(t, s, "image_count_objects_enhanced", map[string]interface{}{
		"path":       imgPath,
		"brightness": 10,
	}), &result)

	if result.Count != len(fourCenters) {
		t.Errorf("Count: got %d, want %d", result.Count, len(fourCenters))
	}
	if result.Enhance == nil || result.Enhance.Contrast != 2.0 || result.Enhance.Brightness != 10 {
		t.Errorf("Enhance: got %+v", result.Enhance)
	}
}

func TestHandleToolsCall_CountBatch(t *testing.T) {
	s := New(config.Default())
	good := createTestImageFile(t, "circles.png", createCirclesImage(fourCenters[:2]...))
	outDir := t.TempDir()

	var report detection.BatchReport
	decodeToolResult(t, callTool(t, s, "image_count_batch", map[string]interface{}{
		"paths":      []string{good, "/nonexistent/image.png"},
		"workers":    2,
		"output_dir": outDir,
	}), &report)

	if len(report.Items) != 2 || report.Failed != 1 {
		t.Fatalf("expected 2 items with 1 failure, got %+v", report)
	}
	if report.Items[0].Count != 2 || report.Items[0].Error != "" {
		t.Errorf("first item: got %+v", report.Items[0])
	}
	if report.Items[1].Error == "" {
		t.Error("missing file should be reported on its item")
	}
	if _, err := os.Stat(filepath.Join(outDir, "circles_contours.png")); err != nil {
		t.Errorf("annotated image not written: %v", err)
	}
}

func TestHandleToolsCall_PercentDetected(t *testing.T) {
	s := New(config.Default())

	tests := []struct {
		detected, expected int
		want               float64
	}{
		{3, 4, 75},
		{2, 3, 66.67},
		{5, 0, 0},
	}

	for _, tt := range tests {
		var result PercentDetectedResult
		decodeToolResult(t, callTool(t, s, "image_percent_detected", map[string]interface{}{
			"detected": tt.detected,
			"expected": tt.expected,
		}), &result)
		if result.Percent != tt.want {
			t.Errorf("%d/%d: got %v, want %v", tt.detected, tt.expected, result.Percent, tt.want)
		}
	}
}

func TestHandleToolsCall_EdgeDetect(t *testing.T) {
	s := New(config.Default())

	uniform := image.NewGray(image.Rect(0, 0, 50, 50))
	for i := range uniform.Pix {
		uniform.Pix[i] = 100
	}
	imgPath := createTestImageFile(t, "uniform.png", uniform)

	var result imaging.EdgeDetectResult
	decodeToolResult(t, callTool(t, s, "image_edge_detect", map[string]interface{}{"path": imgPath}), &result)

	if result.Width != 50 || result.Height != 50 {
		t.Errorf("Dimensions: got %dx%d", result.Width, result.Height)
	}
	if result.EdgePixels != 0 {
		t.Errorf("uniform image should have no edges, got %d", result.EdgePixels)
	}
	if result.ImageBase64 == "" {
		t.Error("Expected the edge map")
	}
}

func TestHandleToolsCall_Binarize(t *testing.T) {
	s := New(config.Default())

	img := image.NewGray(image.Rect(0, 0, 20, 20))
	for y := 5; y < 15; y++ {
		for x := 5; x < 15; x++ {
			img.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	imgPath := createTestImageFile(t, "square.png", img)

	tests := []struct {
		name           string
		args           map[string]interface{}
		wantThreshold  int
		wantAuto       bool
		wantForeground int
	}{
		{"otsu", map[string]interface{}{"path": imgPath}, 0, true, 100},
		{"fixed", map[string]interface{}{"path": imgPath, "threshold": 250}, 250, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var result BinarizeResult
			decodeToolResult(t, callTool(t, s, "image_binarize", tt.args), &result)

			if result.Threshold != tt.wantThreshold || result.Auto != tt.wantAuto {
				t.Errorf("threshold: got %d (auto %v), want %d (auto %v)",
					result.Threshold, result.Auto, tt.wantThreshold, tt.wantAuto)
			}
			if result.Foreground != tt.wantForeground {
				t.Errorf("Foreground: got %d, want %d", result.Foreground, tt.wantForeground)
			}
			if result.ImageBase64 == "" {
				t.Error("mask should be inlined when no output_path is given")
			}
		})
	}
}

func TestHandleToolsCall_CleanMask(t *testing.T) {
	s := New(config.Default())

	rng := rand.New(rand.NewPCG(1, 2))
	noisy, err := imaging.AddNoise(image.NewGray(image.Rect(0, 0, 100, 100)), 0.05, rng)
	if err != nil {
		t.Fatalf("AddNoise failed: %v", err)
	}
	imgPath := createTestImageFile(t, "noisy.png", noisy)
	outPath := filepath.Join(t.TempDir(), "clean.png")

	var result CleanMaskResult
	decodeToolResult(t, callTool(t, s, "image_clean_mask", map[string]interface{}{
		"path":        imgPath,
		"output_path": outPath,
	}), &result)

	if result.Before.Isolated == 0 {
		t.Error("noisy mask should report isolated pixels before cleaning")
	}
	if result.After.Isolated != 0 {
		t.Errorf("After.Isolated: got %d, want 0", result.After.Isolated)
	}
	if result.Params != imaging.DefaultMorphParams() {
		t.Errorf("Params: got %+v", result.Params)
	}
	if result.OutputPath != outPath || result.ImageBase64 != "" {
		t.Errorf("expected only the file output, got %+v", result.imageOutput)
	}

	cleaned, err := imaging.NewImageCache().LoadGray(outPath)
	if err != nil {
		t.Fatalf("failed to read cleaned mask: %v", err)
	}
	if !imaging.IsBinary(cleaned) {
		t.Error("cleaned mask should be binary")
	}
}
