package imageio

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"boxlabel/internal/annotation"
)

func writeTestPNG(t *testing.T, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x % 256), G: uint8(y % 256), A: 255})
		}
	}
	path := filepath.Join(t.TempDir(), "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPNG(t *testing.T) {
	path := writeTestPNG(t, 64, 48)

	it, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if it.Width() != 64 || it.Height() != 48 {
		t.Errorf("dimensions = %dx%d, want 64x48", it.Width(), it.Height())
	}
	if it.Path != path {
		t.Errorf("path = %q", it.Path)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.png")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestThumbnailFitsLongSide(t *testing.T) {
	path := writeTestPNG(t, 200, 100)
	it, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	thumb := it.Thumbnail(50)
	b := thumb.Bounds()
	if b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("thumbnail = %dx%d, want 50x25", b.Dx(), b.Dy())
	}

	// Small images pass through untouched.
	if got := it.Thumbnail(500); got != it.Image {
		t.Error("small image was rescaled")
	}
}

func TestCropNormalizedBox(t *testing.T) {
	path := writeTestPNG(t, 100, 100)
	it, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	cropped, err := it.Crop(annotation.Box{ID: "a", X: 0.25, Y: 0.25, Width: 0.5, Height: 0.25})
	if err != nil {
		t.Fatalf("Crop: %v", err)
	}
	b := cropped.Bounds()
	if b.Dx() != 50 || b.Dy() != 25 {
		t.Errorf("crop = %dx%d, want 50x25", b.Dx(), b.Dy())
	}
}

func TestCropDegenerateBoxFails(t *testing.T) {
	path := writeTestPNG(t, 10, 10)
	it, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := it.Crop(annotation.Box{ID: "tiny", X: 0.5, Y: 0.5}); err == nil {
		t.Fatal("expected error for degenerate crop")
	}
}

func TestSaveCropsWritesOneFilePerBox(t *testing.T) {
	path := writeTestPNG(t, 100, 100)
	it, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	dir := filepath.Join(t.TempDir(), "crops")
	paths, err := SaveCrops(it, []annotation.Box{
		{ID: "a", X: 0, Y: 0, Width: 0.5, Height: 0.5},
		{ID: "tiny", X: 0.5, Y: 0.5}, // degenerate, skipped
		{ID: "b", X: 0.5, Y: 0.5, Width: 0.25, Height: 0.25},
	}, dir, 90)
	if err != nil {
		t.Fatalf("SaveCrops: %v", err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %d, want 2", len(paths))
	}

	got, err := Load(paths[0])
	if err != nil {
		t.Fatalf("reload crop: %v", err)
	}
	if got.Width() != 50 || got.Height() != 50 {
		t.Errorf("crop = %dx%d, want 50x50", got.Width(), got.Height())
	}
	if filepath.Base(paths[0]) != "test_000.jpg" {
		t.Errorf("crop name = %q", filepath.Base(paths[0]))
	}
}

func TestIsSupportedFormat(t *testing.T) {
	cases := map[string]bool{
		"photo.jpg":  true,
		"photo.JPEG": true,
		"scan.tiff":  true,
		"pic.webp":   true,
		"pic.bmp":    true,
		"notes.txt":  false,
		"archive":    false,
	}
	for path, want := range cases {
		if got := IsSupportedFormat(path); got != want {
			t.Errorf("IsSupportedFormat(%q) = %v, want %v", path, got, want)
		}
	}
}
