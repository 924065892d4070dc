package analysis

import (
	"context"
	"net/http"
	"strings"

	"creatflow/internal/domain"
)

// GeminiAnalyzer speaks the Gemini-style generateContent analysis API.
type GeminiAnalyzer struct {
	cfg    Config
	client httpClient
}

// NewGeminiAnalyzer builds the variant; a nil client gets a default one.
func NewGeminiAnalyzer(cfg Config, client *http.Client) *GeminiAnalyzer {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com/v1beta"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.5-flash"
	}
	var hc httpClient = http.DefaultClient
	if client != nil {
		hc = client
	}
	return &GeminiAnalyzer{cfg: cfg, client: hc}
}

func (a *GeminiAnalyzer) Name() string { return "gemini" }

type geminiAnalyzeRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts,omitempty"`
}

type geminiPart struct {
	Text     string          `json:"text,omitempty"`
	FileData *geminiFileData `json:"fileData,omitempty"`
}

type geminiFileData struct {
	MimeType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri,omitempty"`
}

type geminiAnalyzeResponse struct {
	Detections []wireElement `json:"detections"`
	Source     struct {
		Width  int `json:"width"`
		Height int `json:"height"`
	} `json:"source"`
	Metadata map[string]any `json:"metadata"`
}

func (a *GeminiAnalyzer) Analyze(ctx context.Context, ref AssetRef) (*Detection, error) {
	uri := ref.URL
	if uri == "" {
		uri = ref.StorageKey
	}
	payload := geminiAnalyzeRequest{Contents: []geminiContent{{
		Role: "user",
		Parts: []geminiPart{
			{FileData: &geminiFileData{MimeType: ref.MIME, FileURI: uri}},
			{Text: "Detect faces, products, logos and text regions with bounding boxes."},
		},
	}}}

	endpoint := strings.TrimRight(a.cfg.BaseURL, "/") + "/models/" + a.cfg.Model + ":analyzeContent?key=" + a.cfg.APIKey
	var out geminiAnalyzeResponse
	if err := postJSON(ctx, a.client, a.cfg, endpoint, nil, payload, &out); err != nil {
		return nil, timeoutToFailure(err)
	}
	return &Detection{
		Elements: toDomainElements(out.Detections),
		Source:   domain.Dimensions{Width: out.Source.Width, Height: out.Source.Height},
		Raw:      out.Metadata,
		Provider: a.Name(),
	}, nil
}

var _ Analyzer = (*GeminiAnalyzer)(nil)
