// Package scoring turns judge output into domain assessments.
package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"scholarduel/src/core/domain"
)

// ErrNoVerdict is returned when the judge output holds no JSON object.
var ErrNoVerdict = errors.New("scoring: no verdict in judge output")

type verdict struct {
	TotalScore     *float64 `json:"totalScore"`
	EvidenceScore  float64  `json:"evidenceScore"`
	CitationScore  float64  `json:"citationScore"`
	LogicScore     float64  `json:"logicScore"`
	FallacyPenalty float64  `json:"fallacyPenalty"`
	HasFallacy     bool     `json:"hasFallacy"`
	FallacyType    *string  `json:"fallacyType"`
	Analysis       *string  `json:"analysis"`
}

// ParseAssessment extracts the verdict from raw judge output. Markdown
// fences and surrounding prose are tolerated. Sub-scores are clamped. The
// judge's totalScore is kept when present; otherwise the total is derived.
func ParseAssessment(raw string) (domain.Assessment, error) {
	body := cleanModelOutput(raw)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return domain.Assessment{}, ErrNoVerdict
	}

	var v verdict
	if err := json.Unmarshal([]byte(body[start:end+1]), &v); err != nil {
		return domain.Assessment{}, fmt.Errorf("scoring: decode verdict: %w", err)
	}

	a := domain.Assessment{
		Scores: domain.Scores{
			Evidence:       round(v.EvidenceScore),
			Citation:       round(v.CitationScore),
			Logic:          round(v.LogicScore),
			FallacyPenalty: round(v.FallacyPenalty),
		}.Clamp(),
		HasFallacy: v.HasFallacy,
		Analysis:   nonBlank(v.Analysis),
	}
	if v.TotalScore != nil {
		total := min(max(round(*v.TotalScore), 0), domain.MaxTotalScore)
		a.Total = &total
	}
	if a.HasFallacy {
		a.FallacyType = nonBlank(v.FallacyType)
	}
	return a, nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```JSON")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	return strings.TrimSpace(cleaned)
}

func round(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(math.Round(f))
}

func nonBlank(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
