// Package imageio loads and saves the images being annotated. Decoding goes
// through the imaging library with an explicit WebP fallback; TIFF and BMP
// decoders are registered as a side effect of the imports.
package imageio

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"

	"boxlabel/internal/annotation"
	"boxlabel/pkg/geometry"
)

// Item is a loaded image plus the metadata the editor needs.
type Item struct {
	Path  string
	Image image.Image
}

// Load opens an image file, trying the registered decoders first and WebP
// explicitly as a fallback.
func Load(path string) (*Item, error) {
	if img, err := imaging.Open(path); err == nil {
		return &Item{Path: path, Image: img}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	if img, err := webp.Decode(f); err == nil {
		return &Item{Path: path, Image: img}, nil
	}
	if _, err := f.Seek(0, 0); err == nil {
		if img, _, err := image.Decode(f); err == nil {
			return &Item{Path: path, Image: img}, nil
		}
	}
	return nil, fmt.Errorf("decode image %s: unknown format", path)
}

// Width returns the image width in pixels.
func (it *Item) Width() int {
	if it.Image == nil {
		return 0
	}
	return it.Image.Bounds().Dx()
}

// Height returns the image height in pixels.
func (it *Item) Height() int {
	if it.Image == nil {
		return 0
	}
	return it.Image.Bounds().Dy()
}

// Size returns the image dimensions.
func (it *Item) Size() geometry.Size {
	return geometry.NewSize(float64(it.Width()), float64(it.Height()))
}

// Thumbnail returns a copy scaled to fit within maxDim on its longer side.
// Images already small enough are returned unscaled.
func (it *Item) Thumbnail(maxDim int) image.Image {
	if it.Width() <= maxDim && it.Height() <= maxDim {
		return it.Image
	}
	return imaging.Fit(it.Image, maxDim, maxDim, imaging.Lanczos)
}

// Crop extracts the pixel region covered by a normalized box.
func (it *Item) Crop(b annotation.Box) (image.Image, error) {
	bounds := it.Image.Bounds()
	fw, fh := float64(bounds.Dx()), float64(bounds.Dy())

	r := b.Rect().ClampUnit()
	x0 := int(r.X*fw + 0.5)
	y0 := int(r.Y*fh + 0.5)
	x1 := int((r.X+r.Width)*fw + 0.5)
	y1 := int((r.Y+r.Height)*fh + 0.5)

	rect := image.Rect(x0, y0, x1, y1).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("crop %s: empty region", b.ID)
	}
	return imaging.Crop(it.Image, rect), nil
}

// Save writes an image to disk. The format follows the file extension; WebP
// gets its dedicated encoder, everything else goes through imaging.
func Save(img image.Image, path string, quality int) error {
	if strings.EqualFold(filepath.Ext(path), ".webp") {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create %s: %w", path, err)
		}
		defer f.Close()
		return webp.Encode(f, img, &webp.Options{Quality: float32(quality)})
	}
	return imaging.Save(img, path, imaging.JPEGQuality(quality))
}

// SaveCrops writes one file per box into dir, each cropped from the item and
// named after the source image with a running index. Degenerate regions are
// skipped. Returns the paths written.
func SaveCrops(it *Item, boxes []annotation.Box, dir string, quality int) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}
	stem := strings.TrimSuffix(filepath.Base(it.Path), filepath.Ext(it.Path))

	var paths []string
	for i, b := range boxes {
		img, err := it.Crop(b)
		if err != nil {
			continue
		}
		path := filepath.Join(dir, fmt.Sprintf("%s_%03d.jpg", stem, i))
		if err := Save(img, path, quality); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SupportedFormats returns the accepted file extensions.
func SupportedFormats() []string {
	return []string{".png", ".jpg", ".jpeg", ".webp", ".bmp", ".tiff", ".tif"}
}

// IsSupportedFormat checks whether the path has a supported image extension.
func IsSupportedFormat(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, format := range SupportedFormats() {
		if ext == format {
			return true
		}
	}
	return false
}
