// Package judge provides the AI judges that grade duel arguments.
package judge

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"scholarduel/src/core/ports"
	"scholarduel/src/infra/config"
)

const rubric = `You are the judge of an academic debate. Grade the argument below and
reply with a single JSON object and nothing else:

{
  "totalScore": number,      // evidenceScore + citationScore + logicScore - fallacyPenalty
  "evidenceScore": number,   // 0-40, quality and relevance of evidence
  "citationScore": number,   // 0-30, presence and credibility of cited sources
  "logicScore": number,      // 0-30, structure and validity of reasoning
  "fallacyPenalty": number,  // 0-30, deduction for logical fallacies
  "hasFallacy": boolean,
  "fallacyType": string|null, // name of the main fallacy, if any
  "analysis": string         // two or three sentences of feedback
}

Judge only the argument's merit for its stated position, not whether you agree.`

// Gemini judges with a Google Gemini model.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	name   string
	log    *slog.Logger
}

var _ ports.Judge = (*Gemini)(nil)

// NewGemini connects to the Gemini API. Close releases the client.
func NewGemini(ctx context.Context, cfg config.GeminiConfig, log *slog.Logger) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	model := client.GenerativeModel(cfg.Model)
	model.SetTemperature(cfg.Temperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(rubric)}}
	model.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockOnlyHigh},
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockOnlyHigh},
	}

	log.Info("gemini judge ready", "model", cfg.Model)
	return &Gemini{client: client, model: model, name: "gemini:" + cfg.Model, log: log}, nil
}

func (g *Gemini) Name() string { return g.name }

// StreamAnalysis writes each streamed text part to w as it arrives.
func (g *Gemini) StreamAnalysis(ctx context.Context, arg ports.Argument, w io.Writer) error {
	iter := g.model.GenerateContentStream(ctx, genai.Text(Prompt(arg)))
	var wrote bool
	for {
		resp, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return fmt.Errorf("gemini: stream: %w", err)
		}
		for _, cand := range resp.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, part := range cand.Content.Parts {
				text, ok := part.(genai.Text)
				if !ok {
					continue
				}
				if _, err := io.WriteString(w, string(text)); err != nil {
					return err
				}
				wrote = true
			}
		}
	}
	if !wrote {
		return errors.New("gemini: empty response")
	}
	return nil
}

// Health reports whether the model endpoint answers.
func (g *Gemini) Health(ctx context.Context) error {
	_, err := g.model.Info(ctx)
	return err
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Prompt renders the per-argument part of the judge prompt.
func Prompt(arg ports.Argument) string {
	position := arg.Position
	if position == "" {
		position = "unspecified"
	}
	return fmt.Sprintf("Debate topic: %s\nPosition argued: %s\n\nArgument:\n%s", arg.Topic, position, arg.Content)
}
