package vision

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client calls the Haar-cascade/LBPH face service over HTTP. Images and
// model blobs travel base64-encoded in JSON bodies.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

// NewClient creates a client with a configurable timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		BaseURL: baseURL,
		HTTP:    &http.Client{Timeout: timeout},
	}
}

// DetectFaces runs frontal-face detection over the whole frame.
func (c *Client) DetectFaces(ctx context.Context, image []byte) ([]Region, error) {
	var out struct {
		Faces []Region `json:"faces"`
	}
	if err := c.post(ctx, "/detect/faces", map[string]string{
		"image": base64.StdEncoding.EncodeToString(image),
	}, &out); err != nil {
		return nil, err
	}
	return out.Faces, nil
}

// DetectSmiles counts smiles inside a face crop.
func (c *Client) DetectSmiles(ctx context.Context, face []byte) (int, error) {
	return c.detectCount(ctx, "/detect/smiles", face)
}

// DetectEyes counts eyes inside a face crop.
func (c *Client) DetectEyes(ctx context.Context, face []byte) (int, error) {
	return c.detectCount(ctx, "/detect/eyes", face)
}

func (c *Client) detectCount(ctx context.Context, path string, face []byte) (int, error) {
	var out struct {
		Count int `json:"count"`
	}
	if err := c.post(ctx, path, map[string]string{
		"image": base64.StdEncoding.EncodeToString(face),
	}, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Train builds a recognizer model from the full sample set and returns its
// serialized bytes.
func (c *Client) Train(ctx context.Context, samples []LabeledSample) ([]byte, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("training requires at least one sample")
	}
	type wireSample struct {
		Label int64  `json:"label"`
		Image string `json:"image"`
	}
	payload := struct {
		Samples []wireSample `json:"samples"`
	}{Samples: make([]wireSample, 0, len(samples))}
	for _, s := range samples {
		payload.Samples = append(payload.Samples, wireSample{
			Label: s.Label,
			Image: base64.StdEncoding.EncodeToString(s.Image),
		})
	}

	var out struct {
		Model string `json:"model"`
	}
	if err := c.post(ctx, "/train", payload, &out); err != nil {
		return nil, err
	}
	model, err := base64.StdEncoding.DecodeString(out.Model)
	if err != nil {
		return nil, fmt.Errorf("decode trained model: %w", err)
	}
	if len(model) == 0 {
		return nil, fmt.Errorf("face service returned an empty model")
	}
	return model, nil
}

// Predict matches a face crop against the provided model snapshot.
func (c *Client) Predict(ctx context.Context, model []byte, face []byte) (*Prediction, error) {
	var out Prediction
	if err := c.post(ctx, "/predict", map[string]string{
		"model": base64.StdEncoding.EncodeToString(model),
		"image": base64.StdEncoding.EncodeToString(face),
	}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health checks if the face service is available.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service unavailable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("face service unhealthy: %s", resp.Status)
	}

	return nil
}

func (c *Client) post(ctx context.Context, path string, payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("face service request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("face service error %s: %s", resp.Status, string(respBody))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
