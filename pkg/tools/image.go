package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

const (
	hfImageModelURL = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-xl-base-1.0"

	// modelLoadWait is how long to wait before the single retry when the
	// hosted model is still loading (HTTP 503).
	modelLoadWait = 20 * time.Second
)

// GeneratedImage describes one generated image on disk.
type GeneratedImage struct {
	// Path is the filesystem location of the PNG.
	Path string

	// URL is the public path clients can fetch it from.
	URL string

	// Prompt is the enhanced prompt that produced it.
	Prompt string
}

// ImageClient generates images via the Hugging Face inference API.
// The API works without a key; a key only speeds it up.
type ImageClient struct {
	apiKey   string
	modelURL string
	outDir   string
	urlBase  string
	client   *http.Client
	logger   *slog.Logger
}

// NewImageClient creates an image client writing PNGs under outDir and
// serving them under urlBase (e.g. "/static/generated_images").
func NewImageClient(apiKey, outDir, urlBase string, logger *slog.Logger) *ImageClient {
	if logger == nil {
		logger = slog.Default()
	}
	return &ImageClient{
		apiKey:   apiKey,
		modelURL: hfImageModelURL,
		outDir:   outDir,
		urlBase:  urlBase,
		client:   &http.Client{Timeout: 90 * time.Second},
		logger:   logger.With("component", "tools.image"),
	}
}

// WithModelURL overrides the inference endpoint, for tests.
func (c *ImageClient) WithModelURL(url string) *ImageClient {
	c.modelURL = url
	return c
}

// Generate renders one image for the prompt and saves it to disk.
// A 503 (model loading) is retried once after a fixed wait.
func (c *ImageClient) Generate(ctx context.Context, prompt string) (*GeneratedImage, error) {
	enhanced := prompt + ", high quality, detailed, digital art"

	data, err := c.request(ctx, enhanced)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(c.outDir, 0o755); err != nil {
		return nil, fmt.Errorf("tools: create image dir: %w", err)
	}

	name := fmt.Sprintf("img_%s.png", uuid.NewString()[:8])
	path := filepath.Join(c.outDir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("tools: write image: %w", err)
	}

	c.logger.Info("image generated", "path", path, "bytes", len(data))
	return &GeneratedImage{
		Path:   path,
		URL:    c.urlBase + "/" + name,
		Prompt: enhanced,
	}, nil
}

// request calls the inference endpoint, retrying once on model-loading.
func (c *ImageClient) request(ctx context.Context, prompt string) ([]byte, error) {
	for attempt := 0; ; attempt++ {
		data, status, err := c.post(ctx, prompt)
		if err != nil {
			return nil, err
		}

		switch {
		case status == http.StatusOK:
			return data, nil
		case status == http.StatusServiceUnavailable && attempt == 0:
			c.logger.Info("image model loading, waiting before retry")
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(modelLoadWait):
			}
		default:
			return nil, fmt.Errorf("tools: image API error %d: %s", status, data)
		}
	}
}

func (c *ImageClient) post(ctx context.Context, prompt string) ([]byte, int, error) {
	payload, err := json.Marshal(map[string]any{
		"inputs": prompt,
		"parameters": map[string]any{
			"num_inference_steps": 20,
			"guidance_scale":      7.5,
			"width":               1024,
			"height":              1024,
		},
	})
	if err != nil {
		return nil, 0, fmt.Errorf("tools: marshal image payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.modelURL, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("tools: create image request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("tools: image request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("tools: read image response: %w", err)
	}
	return data, resp.StatusCode, nil
}

// ImageApology is the degraded reply when image generation fails; the
// turn still completes with some text.
const ImageApology = "My art studio hit a snag on that one. Give me another try in a minute?"

// imageCaptions are rotated through for successful generations.
var imageCaptions = []string{
	"Fresh off the easel! Your image is ready.",
	"Done! One brand new picture, as requested.",
	"There it is. I'd hang that one on the fridge.",
	"Painted, polished, and posted for you.",
}

// CaptionFor returns a stable caption for a generated image.
func CaptionFor(img *GeneratedImage) string {
	if img == nil {
		return ImageApology
	}
	// Stable per-image choice so repeated renders don't flap.
	idx := 0
	for _, b := range []byte(img.URL) {
		idx += int(b)
	}
	return imageCaptions[idx%len(imageCaptions)]
}
