package vision

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

// taskPrompt is the fixed task description sent with every frame. The
// detection semantics live here, not in client code: a tricolor flag is
// three horizontal bands stacked top to bottom in the order saffron,
// white, green.
const taskPrompt = `Look at this photo and decide whether the Indian tricolor flag pattern is visible: three horizontal color bands stacked vertically, saffron on top, white in the middle, green at the bottom, in exactly that top-to-bottom order. Be tolerant of lighting, print and fabric variation (saffron may read as orange, green may be dark). Reject patterns whose bands are arranged side by side or in any other orientation, and reject different band orders.

Respond with a single JSON object and nothing else, with these fields:
{"isTricolorPresent": boolean, "reason": short string explaining the decision, "colorsFound": array of color name strings in the order seen top to bottom, "confidence": number between 0 and 1, "orientation": "horizontal-bands" | "other" | "none"}`

// Gemini classifies frames with one Gemini generate-content call per
// Classify. generate is swappable so tests can run without a network.
type Gemini struct {
	model    string
	generate func(ctx context.Context, image []byte, mime string) (string, error)
}

// NewGemini builds the client once at startup. A missing API key is a
// fatal configuration error surfaced here, before any camera
// interaction is offered.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrNoAPIKey
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("vision: create client: %w", err)
	}

	g := &Gemini{model: model}
	g.generate = func(ctx context.Context, image []byte, mime string) (string, error) {
		parts := []*genai.Part{
			genai.NewPartFromBytes(image, mime),
			genai.NewPartFromText(taskPrompt),
		}
		contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
		resp, err := client.Models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
			ResponseMIMEType: "application/json",
		})
		if err != nil {
			return "", err
		}
		text := resp.Text()
		if strings.TrimSpace(text) == "" {
			return "", ErrEmptyResult
		}
		return text, nil
	}
	return g, nil
}

// Classify performs exactly one exchange. No client-side timeout is
// enforced; the transport's own limits apply.
func (g *Gemini) Classify(ctx context.Context, image []byte, mime string) (Verdict, error) {
	raw, err := g.generate(ctx, image, mime)
	if err != nil {
		return Verdict{}, fmt.Errorf("vision: generate: %w", err)
	}
	v, err := ParseVerdict(raw)
	if err != nil {
		slog.Warn("vision: unparsable response", "model", g.model, "error", err)
		return Verdict{}, err
	}
	slog.Info("vision: classified",
		"model", g.model,
		"tricolor", v.IsTricolorPresent,
		"colors", len(v.ColorsFound),
		"confidence", v.Confidence,
	)
	return v, nil
}
