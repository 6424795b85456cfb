package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// property builds a JSON schema property with a type and description.
func property(typ, description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        typ,
		"description": description,
	}
}

// pathProperty is shared by every tool that reads an image file.
var pathProperty = property("string", "Absolute path to the image file")

// outputProperties are shared by every tool that renders an image.
func outputProperties(props map[string]interface{}) map[string]interface{} {
	props["output_path"] = property("string", "Optional path to save the rendered image. The format follows the extension (.png, .webp, .jpg, .bmp, .tiff)")
	props["include_image"] = property("boolean", "Return the rendered image as base64-encoded PNG")
	return props
}

// countProperties are the detection overrides accepted by the counting tools.
func countProperties() map[string]interface{} {
	return outputProperties(map[string]interface{}{
		"path":           pathProperty,
		"min_area":       property("number", "Contours with area at or below this are dropped. Default from config (100)"),
		"max_area":       property("number", "Contours with area at or above this are dropped. Default from config (5000)"),
		"edge_low":       property("number", "Canny hysteresis low threshold on the gradient magnitude. Default 50"),
		"edge_high":      property("number", "Canny hysteresis high threshold on the gradient magnitude. Default 150"),
		"contour_color":  property("string", "Outline color as #RRGGBB. Default #00FF00"),
		"stroke_width":   property("integer", "Outline width in pixels. Default 3"),
		"caption":        property("boolean", "Write the object count in the top-left corner of the annotated image"),
		"expected_count": property("integer", "Known object count; when given the result includes percent_detected"),
	})
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	enhanced := countProperties()
	enhanced["contrast"] = property("number", "Contrast gain applied before detection. Default 2.0")
	enhanced["brightness"] = property("number", "Brightness offset applied before detection. Default 30")

	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load an image file and return its dimensions, format, file size and whether it is grayscale or already a binary mask.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty,
				},
				"required": []string{"path"},
			},
		},

		// Object Counting
		{
			Name:        "image_count_objects",
			Description: "Count distinct objects in an image. Runs Canny edge detection, Otsu binarization, a closing pass and external contour extraction, then keeps contours whose area lies strictly between min_area and max_area. Returns the count, one bounding box per object and area statistics.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": countProperties(),
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_count_objects_enhanced",
			Description: "Same as image_count_objects but applies a linear contrast and brightness adjustment first. Useful for dim or low-contrast photos.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": enhanced,
				"required":   []string{"path"},
			},
		},
		{
			Name:        "image_count_batch",
			Description: "Count objects in several images concurrently using the configured detection parameters. Failed images are reported per item and do not stop the run.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"paths": map[string]interface{}{
						"type":        "array",
						"description": "Absolute paths of the images to process",
						"items":       map[string]interface{}{"type": "string"},
					},
					"workers":    property("integer", "Number of concurrent workers. Default is the number of CPUs"),
					"output_dir": property("string", "Directory for annotated images. Omit to skip writing them"),
					"output_ext": property("string", "Extension of the annotated images. Default .png"),
					"enhance":    property("boolean", "Apply the configured contrast and brightness adjustment first"),
				},
				"required": []string{"paths"},
			},
		},
		{
			Name:        "image_percent_detected",
			Description: "Compute detected/expected*100 rounded to two decimals. Returns 0 when expected is not positive.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"detected": property("integer", "Number of objects detected"),
					"expected": property("integer", "Number of objects actually present"),
				},
				"required": []string{"detected", "expected"},
			},
		},

		// Pipeline Stages
		{
			Name:        "image_edge_detect",
			Description: "Detect edges using the Canny algorithm. Returns a binary edge map as base64-encoded PNG and the number of edge pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path":           pathProperty,
					"threshold_low":  property("number", "Low threshold for hysteresis on the gradient magnitude. Default 50"),
					"threshold_high": property("number", "High threshold for hysteresis on the gradient magnitude. Default 150"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_binarize",
			Description: "Convert an image to a binary mask. Pixels strictly above the threshold become max_value. Without a threshold the Otsu threshold is computed from the histogram.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": outputProperties(map[string]interface{}{
					"path":      pathProperty,
					"threshold": property("integer", "Fixed threshold 0-255. Omit to use Otsu"),
					"max_value": property("integer", "Foreground level 0-255. Default 255"),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_clean_mask",
			Description: "Remove speckle noise and fill small holes in a binary mask with a morphological open followed by a close. Non-binary input is thresholded at 127 first. Returns component statistics before and after cleaning.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": outputProperties(map[string]interface{}{
					"path":              pathProperty,
					"kernel_size_open":  property("integer", "Square kernel size of the open pass. Default 5"),
					"kernel_size_close": property("integer", "Square kernel size of the close pass. Default 5"),
					"iter_open":         property("integer", "Iterations of the open pass. Default 1"),
					"iter_close":        property("integer", "Iterations of the close pass. Default 1"),
				}),
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
