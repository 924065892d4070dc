package analysis

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"creatflow/internal/moderation"
)

// HTTPScreener screens rendered content through an OpenAI-style moderation
// endpoint. It satisfies moderation.Screener; failures reaching the worker
// are already classified by postJSON.
type HTTPScreener struct {
	cfg    Config
	client httpClient
}

// NewHTTPScreener builds the screener; a nil client gets a default one.
func NewHTTPScreener(cfg Config, client *http.Client) *HTTPScreener {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "omni-moderation-latest"
	}
	var hc httpClient = http.DefaultClient
	if client != nil {
		hc = client
	}
	return &HTTPScreener{cfg: cfg, client: hc}
}

type moderationRequest struct {
	Model string `json:"model"`
	Input struct {
		ImageB64 string `json:"image_b64"`
	} `json:"input"`
}

type moderationResponse struct {
	Flagged    bool    `json:"flagged"`
	Category   string  `json:"category"`
	Confidence float64 `json:"confidence"`
}

// Screen submits the rendered bytes for a pass/flag verdict.
func (s *HTTPScreener) Screen(ctx context.Context, content []byte) (moderation.Verdict, error) {
	payload := moderationRequest{Model: s.cfg.Model}
	payload.Input.ImageB64 = base64.StdEncoding.EncodeToString(content)

	endpoint := strings.TrimRight(s.cfg.BaseURL, "/") + "/moderations"
	headers := map[string]string{"Authorization": "Bearer " + s.cfg.APIKey}

	var out moderationResponse
	if err := postJSON(ctx, s.client, s.cfg, endpoint, headers, payload, &out); err != nil {
		return moderation.Verdict{}, timeoutToFailure(err)
	}
	return moderation.Verdict{
		Flagged:    out.Flagged,
		Category:   moderation.ParseCategory(out.Category),
		Confidence: out.Confidence,
	}, nil
}

var _ moderation.Screener = (*HTTPScreener)(nil)
