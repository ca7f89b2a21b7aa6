package content

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// LocalScenarioWriter writes scenarios with a local model served behind an
// OpenAI-compatible API (Ollama, LM Studio, vLLM, etc.). Small models often
// wrap their answer in prose, so the reply is asked for as JSON and the
// object is dug out of whatever comes back.
type LocalScenarioWriter struct {
	client *openai.Client
	model  string // e.g. "qwen3-8b"
}

var _ ScenarioWriter = (*LocalScenarioWriter)(nil)

// NewLocalScenarioWriter creates a writer for the server at url, e.g.
// "http://localhost:1234".
func NewLocalScenarioWriter(url, model string) *LocalScenarioWriter {
	cfg := openai.DefaultConfig("")
	cfg.BaseURL = strings.TrimRight(url, "/") + "/v1"
	cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}

	return &LocalScenarioWriter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

const maxRetries = 2

// WriteScenario asks the model for a scenario and extracts it from the JSON
// reply, retrying once when the reply cannot be used.
func (w *LocalScenarioWriter) WriteScenario(ctx context.Context, text string) (string, error) {
	req := openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: buildScenarioPrompt(text)},
		},
		Temperature: 0.7,
	}

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		scenario, err := w.attempt(ctx, req)
		if err == nil {
			return scenario, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return "", &GenerationError{
		Reason:  fmt.Sprintf("failed after %d attempts", maxRetries),
		Wrapped: lastErr,
	}
}

func (w *LocalScenarioWriter) attempt(ctx context.Context, req openai.ChatCompletionRequest) (string, error) {
	resp, err := w.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("scenario request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Reason: "no choices in LLM response"}
	}

	raw := extractJSON(resp.Choices[0].Message.Content)
	if raw == "" {
		return "", &GenerationError{Reason: "no JSON object found in LLM response"}
	}

	var reply struct {
		Scenario string `json:"scenario"`
	}
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return "", &GenerationError{Reason: "invalid JSON from LLM", Wrapped: err}
	}

	scenario := strings.TrimSpace(reply.Scenario)
	if scenario == "" {
		return "", &GenerationError{Reason: "LLM returned an empty scenario"}
	}
	return scenario, nil
}

// extractJSON returns the first complete JSON object embedded in s, or ""
// if there is none.
func extractJSON(s string) string {
	for i := strings.IndexByte(s, '{'); i >= 0; {
		var obj json.RawMessage
		if err := json.NewDecoder(strings.NewReader(s[i:])).Decode(&obj); err == nil {
			return string(obj)
		}

		next := strings.IndexByte(s[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	return ""
}

// buildScenarioPrompt is kept short and directive for small (4-8B) models,
// and always ends with the JSON shape so it's the last thing the model sees.
func buildScenarioPrompt(text string) string {
	return fmt.Sprintf(`/no_think
You help a child who learns language in whole phrases ("scripts").
Describe ONE short everyday situation (one or two sentences, present tense)
in which someone would naturally say the script below.

RULES:
- Do NOT quote or paraphrase the script itself.
- Use simple words a young child understands.
- No names of real people or brands.

SCRIPT:
%s

Respond with ONLY this JSON, no explanation, no markdown:
{"scenario": "..."}`, text)
}
