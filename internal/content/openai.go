package content

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIScenarioWriter writes scenarios with the OpenAI chat API.
type OpenAIScenarioWriter struct {
	client *openai.Client
	model  string
}

var _ ScenarioWriter = (*OpenAIScenarioWriter)(nil)

func NewOpenAIScenarioWriter(client *openai.Client, model string) *OpenAIScenarioWriter {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIScenarioWriter{client: client, model: model}
}

func (w *OpenAIScenarioWriter) WriteScenario(ctx context.Context, text string) (string, error) {
	resp, err := w.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: w.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: "You write one short, concrete everyday situation for a child who learns language in whole phrases. Never quote the phrase itself.",
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: fmt.Sprintf("Describe, in one or two simple present-tense sentences, a situation where someone would say: %q", text),
			},
		},
		Temperature: 0.7,
	})
	if err != nil {
		return "", fmt.Errorf("scenario request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", &GenerationError{Reason: "no choices in scenario response"}
	}

	scenario := strings.TrimSpace(resp.Choices[0].Message.Content)
	if scenario == "" {
		return "", &GenerationError{Reason: "empty scenario in response"}
	}
	return scenario, nil
}

// OpenAIIllustrator generates illustrations with the OpenAI image API.
type OpenAIIllustrator struct {
	client      *openai.Client
	imageModel  string
	visionModel string // used to describe reference images
}

var _ Illustrator = (*OpenAIIllustrator)(nil)

func NewOpenAIIllustrator(client *openai.Client, imageModel, visionModel string) *OpenAIIllustrator {
	if imageModel == "" {
		imageModel = openai.CreateImageModelDallE3
	}
	if visionModel == "" {
		visionModel = openai.GPT4oMini
	}
	return &OpenAIIllustrator{
		client:      client,
		imageModel:  imageModel,
		visionModel: visionModel,
	}
}

// Illustrate generates a single image. When a reference image is given it
// is first described by a vision model and the description is folded into
// the prompt, so recurring characters keep their look.
func (il *OpenAIIllustrator) Illustrate(ctx context.Context, req IllustrationRequest) (*Image, error) {
	prompt := fmt.Sprintf("A simple, warm, flat-colour illustration for a child of a situation where someone says %q. No text or letters in the image.", req.Text)

	if req.Reference != nil && len(req.Reference.Data) > 0 {
		desc, err := il.describeReference(ctx, req.Reference)
		if err != nil {
			return nil, err
		}
		prompt += " Include this character: " + desc
	}

	resp, err := il.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         prompt,
		Model:          il.imageModel,
		N:              1,
		Size:           openai.CreateImageSize1024x1024,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		return nil, fmt.Errorf("image request failed: %w", err)
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return nil, &GenerationError{Reason: "no image data in response"}
	}

	data, err := base64.StdEncoding.DecodeString(resp.Data[0].B64JSON)
	if err != nil {
		return nil, &GenerationError{Reason: "invalid base64 image data", Wrapped: err}
	}

	return &Image{Data: data, MIMEType: "image/png"}, nil
}

func (il *OpenAIIllustrator) describeReference(ctx context.Context, ref *Image) (string, error) {
	mime := ref.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(ref.Data))

	resp, err := il.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: il.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: "Describe the main character in this picture in one sentence for an illustrator: appearance, clothing, colours. No names.",
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailLow,
						},
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("reference description failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", &GenerationError{Reason: "no choices in reference description"}
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
