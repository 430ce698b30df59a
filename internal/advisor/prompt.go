package advisor

import (
	"encoding/json"
	"fmt"
	"strings"
)

const promptHeader = `You review a personal debt payoff plan.
Given the JSON below, reply with a JSON object of the form
{"message": string, "estimated_completion": string, "tone": "positive"|"neutral"|"concerned"}.
"message" is two or three encouraging but honest sentences.
"estimated_completion" is a month and year extrapolated from the payment pace, or "" if there is no pace yet.
"tone" is "concerned" when payments are sparse or stalled.

`

func buildPrompt(req AnalysisRequest) (string, error) {
	body, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode analysis request: %w", err)
	}
	return promptHeader + string(body), nil
}

// parseResponse accepts the provider's JSON, optionally wrapped in a
// markdown code fence.
func parseResponse(text string) (AnalysisResponse, error) {
	text = stripCodeFence(strings.TrimSpace(text))
	var resp AnalysisResponse
	if err := json.Unmarshal([]byte(text), &resp); err != nil {
		return AnalysisResponse{}, fmt.Errorf("decode analysis response: %w", err)
	}
	return resp, nil
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimPrefix(s, "json")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
