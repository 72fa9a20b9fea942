// Package export writes annotation datasets to training formats and computes
// dataset statistics.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/stat"

	"boxlabel/internal/annotation"
	"boxlabel/internal/store"
)

// Summary describes an exported dataset.
type Summary struct {
	Images   int
	Boxes    int
	PerClass map[int]int

	// Distribution of normalized box areas and width/height aspect ratios.
	AreaMean   float64
	AreaStd    float64
	AreaMedian float64
	AspectMean float64
	AspectStd  float64

	areas   []float64
	aspects []float64
}

// WriteYOLO exports every annotated image as a YOLO label file: one
// "<class-index> <cx> <cy> <w> <h>" line per box, coordinates normalized to
// the image with a centered origin. A classes.txt with the class names in
// index order is written alongside.
func WriteYOLO(db *store.DB, classes *annotation.ClassList, outDir string) (*Summary, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	images, err := db.Images()
	if err != nil {
		return nil, err
	}

	summary := newSummary()
	for _, imgPath := range images {
		boxes, err := db.Load(imgPath)
		if err != nil {
			return nil, err
		}
		if len(boxes) == 0 {
			continue
		}

		var sb strings.Builder
		for _, b := range boxes {
			idx := classes.IndexOf(b.ClassID)
			if idx < 0 {
				idx = b.ClassID
			}
			cx := b.X + b.Width/2
			cy := b.Y + b.Height/2
			fmt.Fprintf(&sb, "%d %.6f %.6f %.6f %.6f\n", idx, cx, cy, b.Width, b.Height)
			summary.add(b)
		}
		summary.Images++

		name := strings.TrimSuffix(filepath.Base(imgPath), filepath.Ext(imgPath)) + ".txt"
		if err := os.WriteFile(filepath.Join(outDir, name), []byte(sb.String()), 0o644); err != nil {
			return nil, fmt.Errorf("write label file %s: %w", name, err)
		}
	}

	var names strings.Builder
	for _, c := range classes.Classes {
		names.WriteString(c.Name)
		names.WriteByte('\n')
	}
	if err := os.WriteFile(filepath.Join(outDir, "classes.txt"), []byte(names.String()), 0o644); err != nil {
		return nil, fmt.Errorf("write classes.txt: %w", err)
	}

	summary.finish()
	return summary, nil
}

// WriteCSV exports the whole dataset as a single CSV file with one row per
// box, keeping absolute image paths so the file works as a manifest.
func WriteCSV(db *store.DB, classes *annotation.ClassList, outPath string) (*Summary, error) {
	images, err := db.Images()
	if err != nil {
		return nil, err
	}

	f, err := os.Create(outPath)
	if err != nil {
		return nil, fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"image", "class_id", "class_name", "x", "y", "width", "height", "auto_label"}); err != nil {
		return nil, err
	}

	summary := newSummary()
	for _, imgPath := range images {
		boxes, err := db.Load(imgPath)
		if err != nil {
			return nil, err
		}
		if len(boxes) == 0 {
			continue
		}
		summary.Images++
		for _, b := range boxes {
			rec := []string{
				imgPath,
				strconv.Itoa(b.ClassID),
				classes.Name(b.ClassID),
				formatFloat(b.X),
				formatFloat(b.Y),
				formatFloat(b.Width),
				formatFloat(b.Height),
				strconv.FormatBool(b.AutoLabel),
			}
			if err := w.Write(rec); err != nil {
				return nil, err
			}
			summary.add(b)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	summary.finish()
	return summary, nil
}

// Stats computes the dataset summary without writing anything.
func Stats(db *store.DB) (*Summary, error) {
	images, err := db.Images()
	if err != nil {
		return nil, err
	}
	summary := newSummary()
	for _, imgPath := range images {
		boxes, err := db.Load(imgPath)
		if err != nil {
			return nil, err
		}
		if len(boxes) == 0 {
			continue
		}
		summary.Images++
		for _, b := range boxes {
			summary.add(b)
		}
	}
	summary.finish()
	return summary, nil
}

// String renders the summary as a short multi-line report.
func (s *Summary) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%d images, %d boxes\n", s.Images, s.Boxes)
	fmt.Fprintf(&sb, "area   mean=%.5f std=%.5f median=%.5f\n", s.AreaMean, s.AreaStd, s.AreaMedian)
	fmt.Fprintf(&sb, "aspect mean=%.3f std=%.3f", s.AspectMean, s.AspectStd)
	return sb.String()
}

func newSummary() *Summary {
	return &Summary{PerClass: make(map[int]int)}
}

func (s *Summary) add(b annotation.Box) {
	s.Boxes++
	s.PerClass[b.ClassID]++
	s.areas = append(s.areas, b.Width*b.Height)
	if b.Height > 0 {
		s.aspects = append(s.aspects, b.Width/b.Height)
	}
}

func (s *Summary) finish() {
	if len(s.areas) > 0 {
		s.AreaMean = stat.Mean(s.areas, nil)
		s.AreaStd = stat.StdDev(s.areas, nil)
		sort.Float64s(s.areas)
		s.AreaMedian = stat.Quantile(0.5, stat.Empirical, s.areas, nil)
	}
	if len(s.aspects) > 0 {
		s.AspectMean = stat.Mean(s.aspects, nil)
		s.AspectStd = stat.StdDev(s.aspects, nil)
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
