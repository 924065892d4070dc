package analysis

import (
	"context"
	"net/http"
	"strings"

	"creatflow/internal/domain"
)

// QwenAnalyzer speaks the DashScope-style multimodal analysis API.
type QwenAnalyzer struct {
	cfg    Config
	client httpClient
}

// NewQwenAnalyzer builds the variant; a nil client gets a default one.
func NewQwenAnalyzer(cfg Config, client *http.Client) *QwenAnalyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://dashscope.aliyuncs.com/api/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "qwen-vl-plus"
	}
	var hc httpClient = http.DefaultClient
	if client != nil {
		hc = client
	}
	return &QwenAnalyzer{cfg: cfg, client: hc}
}

func (a *QwenAnalyzer) Name() string { return "qwen" }

type qwenAnalyzeRequest struct {
	Model string `json:"model"`
	Input struct {
		ImageURL string `json:"image_url,omitempty"`
		ImageKey string `json:"image_key,omitempty"`
	} `json:"input"`
	Parameters struct {
		Task string `json:"task"`
	} `json:"parameters"`
}

type qwenAnalyzeResponse struct {
	Output struct {
		Elements []wireElement `json:"elements"`
		Width    int           `json:"width"`
		Height   int           `json:"height"`
	} `json:"output"`
	Usage map[string]any `json:"usage"`
}

func (a *QwenAnalyzer) Analyze(ctx context.Context, ref AssetRef) (*Detection, error) {
	payload := qwenAnalyzeRequest{Model: a.cfg.Model}
	payload.Input.ImageURL = ref.URL
	payload.Input.ImageKey = ref.StorageKey
	payload.Parameters.Task = "element-detection"

	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/services/vision/analysis"
	headers := map[string]string{"Authorization": "Bearer " + a.cfg.APIKey}

	var out qwenAnalyzeResponse
	if err := postJSON(ctx, a.client, a.cfg, endpoint, headers, payload, &out); err != nil {
		return nil, timeoutToFailure(err)
	}
	return &Detection{
		Elements: toDomainElements(out.Output.Elements),
		Source:   domain.Dimensions{Width: out.Output.Width, Height: out.Output.Height},
		Raw:      out.Usage,
		Provider: a.Name(),
	}, nil
}

var _ Analyzer = (*QwenAnalyzer)(nil)
