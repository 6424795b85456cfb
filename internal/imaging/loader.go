package imaging

import (
	"fmt"
	"image"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/HugoSmits86/nativewebp"
	"github.com/disintegration/imaging"
	_ "github.com/ftrvxmtrx/tga" // Register TGA format decoder
	_ "golang.org/x/image/bmp"   // Register BMP format decoder
	_ "golang.org/x/image/tiff"  // Register TIFF format decoder
	_ "golang.org/x/image/webp"  // Register WebP format decoder
)

// ImageCache provides thread-safe caching of decoded images keyed by path.
//
// Cached images are shared between callers and must be treated as read-only;
// every pipeline stage copies before it draws or thresholds.
//
// # Example Usage
//
//	cache := imaging.NewImageCache()
//	img, err := cache.Load("/path/to/coins.png")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	cache.Evict("/path/to/coins.png") // Optional: free memory
type ImageCache struct {
	mu     sync.RWMutex
	images map[string]image.Image
}

// NewImageCache creates and initializes a new empty image cache.
func NewImageCache() *ImageCache {
	return &ImageCache{
		images: make(map[string]image.Image),
	}
}

// Load retrieves an image from the cache or decodes it from disk.
//
// Supported formats are PNG, JPEG, GIF, BMP, TIFF, WebP and TGA. A missing or
// unreadable file yields an *IOError with Op "open"; a file that is not a
// supported image yields Op "decode".
func (c *ImageCache) Load(path string) (image.Image, error) {
	c.mu.RLock()
	if img, ok := c.images[path]; ok {
		c.mu.RUnlock()
		return img, nil
	}
	c.mu.RUnlock()

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.images[path] = img
	c.mu.Unlock()

	return img, nil
}

// LoadGray loads an image and converts it to a single-channel raster.
// The returned raster is a fresh copy that the caller owns.
func (c *ImageCache) LoadGray(path string) (*image.Gray, error) {
	img, err := c.Load(path)
	if err != nil {
		return nil, err
	}
	return ToGray(img), nil
}

// Clear removes all images from the cache.
func (c *ImageCache) Clear() {
	c.mu.Lock()
	c.images = make(map[string]image.Image)
	c.mu.Unlock()
}

// Evict removes a specific image from the cache by its path.
func (c *ImageCache) Evict(path string) {
	c.mu.Lock()
	delete(c.images, path)
	c.mu.Unlock()
}

// Len returns the number of cached images.
func (c *ImageCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.images)
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, &IOError{Op: "decode", Path: path, Err: err}
	}
	return img, nil
}

// Save writes img to path, choosing the encoder from the file extension.
//
// ".webp" is encoded losslessly with nativewebp; every other extension is
// handed to disintegration/imaging (PNG, JPEG, GIF, BMP, TIFF). Missing
// parent directories are created.
func Save(path string, img image.Image) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return &IOError{Op: "save", Path: path, Err: err}
		}
	}

	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Create(path)
		if err != nil {
			return &IOError{Op: "save", Path: path, Err: err}
		}
		defer f.Close()

		if err := nativewebp.Encode(f, img, nil); err != nil {
			return &IOError{Op: "encode", Path: path, Err: err}
		}
		return nil
	}

	if err := imaging.Save(img, path); err != nil {
		return &IOError{Op: "save", Path: path, Err: err}
	}
	return nil
}

// ImageInfo contains metadata about a loaded image file.
type ImageInfo struct {
	// Width is the image width in pixels.
	Width int `json:"width"`

	// Height is the image height in pixels.
	Height int `json:"height"`

	// Format is derived from the file extension: "png", "jpeg", "gif", "bmp",
	// "tiff", "webp", "tga" or "unknown".
	Format string `json:"format"`

	// Grayscale is true for single-channel images.
	Grayscale bool `json:"grayscale"`

	// Binary is true when the image holds at most two intensity levels after
	// grayscale conversion.
	Binary bool `json:"binary"`

	// FileSizeBytes is the size of the image file on disk in bytes.
	FileSizeBytes int64 `json:"file_size_bytes"`
}

// LoadImageInfo loads an image through the cache and reports its metadata.
func LoadImageInfo(cache *ImageCache, path string) (*ImageInfo, error) {
	img, err := cache.Load(path)
	if err != nil {
		return nil, err
	}

	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	grayscale := false
	switch img.(type) {
	case *image.Gray, *image.Gray16:
		grayscale = true
	}

	bounds := img.Bounds()
	return &ImageInfo{
		Width:         bounds.Dx(),
		Height:        bounds.Dy(),
		Format:        formatFromExt(path),
		Grayscale:     grayscale,
		Binary:        DistinctValues(ToGray(img)) <= 2,
		FileSizeBytes: stat.Size(),
	}, nil
}

func formatFromExt(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png"
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".gif":
		return "gif"
	case ".bmp":
		return "bmp"
	case ".tif", ".tiff":
		return "tiff"
	case ".webp":
		return "webp"
	case ".tga":
		return "tga"
	}
	return "unknown"
}
