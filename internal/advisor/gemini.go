package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/generativelanguage/v1beta"
	"google.golang.org/api/option"
)

const DefaultGeminiModel = "gemini-1.5-flash"

// GeminiProvider calls the Generative Language API and asks for a JSON reply.
type GeminiProvider struct {
	svc   *generativelanguage.Service
	model string
}

func NewGeminiProvider(ctx context.Context, apiKey, model string, opts ...option.ClientOption) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini api key is empty")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	svc, err := generativelanguage.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("generativelanguage service: %w", err)
	}
	return &GeminiProvider{svc: svc, model: model}, nil
}

func (g *GeminiProvider) Analyze(ctx context.Context, req AnalysisRequest) (AnalysisResponse, error) {
	prompt, err := buildPrompt(req)
	if err != nil {
		return AnalysisResponse{}, err
	}

	call := g.svc.Models.GenerateContent(modelResource(g.model), &generativelanguage.GenerateContentRequest{
		Contents: []*generativelanguage.Content{{
			Role:  "user",
			Parts: []*generativelanguage.Part{{Text: prompt}},
		}},
		GenerationConfig: &generativelanguage.GenerationConfig{
			ResponseMimeType: "application/json",
		},
	})
	resp, err := call.Context(ctx).Do()
	if err != nil {
		return AnalysisResponse{}, fmt.Errorf("generate content: %w", err)
	}

	text := firstCandidateText(resp)
	if text == "" {
		return AnalysisResponse{}, errors.New("gemini returned no candidates")
	}
	return parseResponse(text)
}

func modelResource(model string) string {
	if strings.HasPrefix(model, "models/") {
		return model
	}
	return "models/" + model
}

func firstCandidateText(resp *generativelanguage.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	for _, c := range resp.Candidates {
		if c == nil || c.Content == nil {
			continue
		}
		var b strings.Builder
		for _, p := range c.Content.Parts {
			if p != nil {
				b.WriteString(p.Text)
			}
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			return s
		}
	}
	return ""
}
