package analysis

import (
	"context"
	"net/http"
	"strings"

	"creatflow/internal/domain"
)

// OpenAIAnalyzer speaks the OpenAI-style vision analysis API.
type OpenAIAnalyzer struct {
	cfg    Config
	client httpClient
}

// NewOpenAIAnalyzer builds the variant; a nil client gets a default one.
func NewOpenAIAnalyzer(cfg Config, client *http.Client) *OpenAIAnalyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	var hc httpClient = http.DefaultClient
	if client != nil {
		hc = client
	}
	return &OpenAIAnalyzer{cfg: cfg, client: hc}
}

func (a *OpenAIAnalyzer) Name() string { return "openai" }

type openAIAnalyzeRequest struct {
	Model string `json:"model"`
	Input struct {
		AssetURL string `json:"asset_url,omitempty"`
		AssetKey string `json:"asset_key,omitempty"`
		MIME     string `json:"mime,omitempty"`
	} `json:"input"`
}

type openAIAnalyzeResponse struct {
	Elements []wireElement `json:"elements"`
	Image    struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"image"`
	Metadata map[string]any `json:"metadata"`
}

func (a *OpenAIAnalyzer) Analyze(ctx context.Context, ref AssetRef) (*Detection, error) {
	payload := openAIAnalyzeRequest{Model: a.cfg.Model}
	payload.Input.AssetURL = ref.URL
	payload.Input.AssetKey = ref.StorageKey
	payload.Input.MIME = ref.MIME

	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/images/analyze"
	headers := map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}

	var out openAIAnalyzeResponse
	if err := postJSON(ctx, a.client, a.cfg, endpoint, headers, payload, &out); err != nil {
		return nil, timeoutToFailure(err)
	}
	return &Detection{
		Elements: toDomainElements(out.Elements),
		Source:   domain.Dimensions{Width: out.Image.Width, Height: out.Image.Height},
		Raw:      out.Metadata,
		Provider: a.Name(),
	}, nil
}

var _ Analyzer = (*OpenAIAnalyzer)(nil)
