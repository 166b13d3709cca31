package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"scholarduel/src/core/domain"
	"scholarduel/src/core/ports"
)

// maxVerdictBytes bounds how much of a remote response is read.
const maxVerdictBytes = 1 << 20

// HTTPScorer scores through a remote analyze endpoint that streams the
// judge output as the response body.
type HTTPScorer struct {
	url    string
	token  string
	client *http.Client
}

var _ ports.Scorer = (*HTTPScorer)(nil)

// NewHTTPScorer posts to url. A nil client uses http.DefaultClient; the
// caller's context bounds each request.
func NewHTTPScorer(url, token string, client *http.Client) *HTTPScorer {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPScorer{url: url, token: token, client: client}
}

func (s *HTTPScorer) Score(ctx context.Context, arg ports.Argument) (domain.Assessment, error) {
	body, err := json.Marshal(arg)
	if err != nil {
		return domain.Assessment{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("build scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("scoring request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxVerdictBytes))
	if err != nil {
		return domain.Assessment{}, fmt.Errorf("read scoring response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.Assessment{}, fmt.Errorf("scoring endpoint returned %d", resp.StatusCode)
	}
	return ParseAssessment(string(raw))
}
