package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"creatflow/internal/domain"
)

// httpClient is the minimal surface the variants need; tests inject fakes.
type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// postJSON performs one bounded backend call and classifies every failure
// mode. The per-call timeout produces a transient failure on expiry.
func postJSON(ctx context.Context, client httpClient, cfg Config, endpoint string, headers map[string]string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.timeout())
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return domain.NewFailure(domain.FailurePermanentInput, StageName, fmt.Errorf("marshal request: %w", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return domain.NewFailure(domain.FailurePermanentInput, StageName, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return domain.NewFailure(domain.FailureTransient, StageName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return classifyStatus(resp)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.NewFailure(domain.FailureTransient, StageName, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

func classifyStatus(resp *http.Response) error {
	detail := readErrorDetail(resp.Body)
	err := fmt.Errorf("backend status %d: %s", resp.StatusCode, detail)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewFailure(domain.FailureAuth, StageName, err)
	case http.StatusBadRequest, http.StatusUnsupportedMediaType, http.StatusUnprocessableEntity:
		return domain.NewFailure(domain.FailurePermanentInput, StageName, err)
	default:
		// Rate limits, request timeouts and server-side faults are all
		// retryable from the caller's point of view.
		return domain.NewFailure(domain.FailureTransient, StageName, err)
	}
}

func readErrorDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 2048))
	if err != nil || len(data) == 0 {
		return "no detail"
	}
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(data, &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	return strings.TrimSpace(string(data))
}

// timeoutToFailure rewraps a context expiry produced inside a backend call.
func timeoutToFailure(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.NewFailure(domain.FailureTransient, StageName, err)
	}
	return err
}

// toDomainElements converts wire elements into domain detections, dropping
// entries with degenerate regions rather than failing the whole analysis.
func toDomainElements(elements []wireElement) []domain.DetectedElement {
	out := make([]domain.DetectedElement, 0, len(elements))
	for _, el := range elements {
		if el.W <= 0 || el.H <= 0 {
			continue
		}
		out = append(out, domain.DetectedElement{
			Kind:        domain.ElementKind(strings.ToLower(strings.TrimSpace(el.Kind))),
			Region:      domain.Region{X: el.X, Y: el.Y, W: el.W, H: el.H},
			Confidence:  el.Confidence,
			Description: el.Description,
		})
	}
	return out
}
