// Package render calls an external generation service to produce target
// pixels from an adaptation plan. Deployments without such a service fall
// back to the synthetic renderer in the worker package.
package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"creatflow/internal/domain"
	"creatflow/internal/worker"
)

// StageName identifies this stage in classified failures.
const StageName = "render"

// DefaultTimeout bounds a single render call. Rendering is slower than
// analysis, so the bound is wider.
const DefaultTimeout = 120 * time.Second

// Config holds the render service settings wired at construction time.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPRenderer implements worker.Renderer over a JSON generation API.
type HTTPRenderer struct {
	cfg    Config
	client httpClient
}

// NewHTTPRenderer builds the renderer; a nil client gets a default one.
func NewHTTPRenderer(cfg Config, client *http.Client) *HTTPRenderer {
	if cfg.Model == "" {
		cfg.Model = "creatflow-render-1"
	}
	var hc httpClient = http.DefaultClient
	if client != nil {
		hc = client
	}
	return &HTTPRenderer{cfg: cfg, client: hc}
}

type renderSource struct {
	AssetID    string `json:"asset_id"`
	StorageKey string `json:"storage_key,omitempty"`
	URL        string `json:"url,omitempty"`
}

type renderRequest struct {
	Model  string                `json:"model"`
	Source renderSource          `json:"source"`
	Plan   domain.AdaptationPlan `json:"plan"`
	Width  int                   `json:"width"`
	Height int                   `json:"height"`
}

type renderResponse struct {
	ContentB64 string `json:"content_b64"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

func (r *HTTPRenderer) Render(ctx context.Context, req worker.RenderRequest) (*worker.Rendered, error) {
	payload := renderRequest{
		Model: r.cfg.Model,
		Source: renderSource{
			AssetID:    req.Source.AssetID,
			StorageKey: req.Source.StorageKey,
			URL:        req.Source.URL,
		},
		Plan:   req.Plan,
		Width:  req.Format.Width,
		Height: req.Format.Height,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, domain.NewFailure(domain.FailurePermanentInput, StageName, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.timeout())
	defer cancel()

	endpoint := strings.TrimRight(r.cfg.BaseURL, "/") + "/v1/generate"
	httpReq, err := http.NewRequestWithContext(callCtx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewFailure(domain.FailureConfiguration, StageName, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if r.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+r.cfg.APIKey)
	}

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, domain.NewFailure(domain.FailureTransient, StageName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("render service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
		return nil, domain.NewFailure(classifyStatus(resp.StatusCode), StageName, err)
	}

	var out renderResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, domain.NewFailure(domain.FailureTransient, StageName, err)
	}
	content, err := base64.StdEncoding.DecodeString(out.ContentB64)
	if err != nil {
		return nil, domain.NewFailure(domain.FailureTransient, StageName, fmt.Errorf("decode rendered content: %w", err))
	}
	if len(content) == 0 {
		return nil, domain.NewFailure(domain.FailureTransient, StageName, fmt.Errorf("render service returned empty content"))
	}

	width, height := out.Width, out.Height
	if width <= 0 || height <= 0 {
		width, height = req.Format.Width, req.Format.Height
	}
	return &worker.Rendered{Content: content, Width: width, Height: height}, nil
}

func classifyStatus(status int) domain.FailureKind {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return domain.FailureAuth
	case status == http.StatusBadRequest || status == http.StatusUnsupportedMediaType || status == http.StatusUnprocessableEntity:
		return domain.FailurePermanentInput
	default:
		return domain.FailureTransient
	}
}

var _ worker.Renderer = (*HTTPRenderer)(nil)
