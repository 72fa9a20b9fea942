// Package autolabel talks to an external detection service that proposes
// candidate bounding boxes for an image. Proposals come back in normalized
// coordinates and are imported into the editor marked as machine-generated.
package autolabel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"boxlabel/internal/annotation"
)

// Detection is one proposal from the service.
type Detection struct {
	ClassID    int     `json:"class_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// Client calls the detection service over HTTP.
type Client struct {
	baseURL       string
	minConfidence float64
	http          *http.Client
}

// NewClient creates a client for the given service base URL. Detections below
// minConfidence are dropped client-side.
func NewClient(baseURL string, minConfidence float64) *Client {
	return &Client{
		baseURL:       baseURL,
		minConfidence: minConfidence,
		http:          &http.Client{Timeout: 60 * time.Second},
	}
}

// Detect uploads an image and returns the proposed boxes, highest confidence
// first as delivered by the service. The returned boxes have no ids; the
// editor assigns them on import.
func (c *Client) Detect(ctx context.Context, img image.Image, name string) ([]annotation.Box, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", filepath.Base(name))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := jpeg.Encode(part, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("finish multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/detect", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("detection failed with status %d: %s", resp.StatusCode, msg)
	}

	var result struct {
		Detections []Detection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var boxes []annotation.Box
	for _, d := range result.Detections {
		if d.Confidence < c.minConfidence {
			continue
		}
		boxes = append(boxes, annotation.Box{
			ClassID: d.ClassID,
			X:       d.X,
			Y:       d.Y,
			Width:   d.Width,
			Height:  d.Height,
		})
	}
	return boxes, nil
}

// CheckHealth probes the service.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("detection service unhealthy: %d", resp.StatusCode)
	}
	return nil
}
