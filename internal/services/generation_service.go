package services

import (
	"chatmate-api/internal/config"
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"

	"google.golang.org/genai"
)

type GenerateRequest struct {
	Tone      models.Tone
	History   []models.Message
	Content   string
	IsPremium bool
}

// Generator produces the assistant's reply to one chat turn. An empty reply
// with a nil error means the model returned no text.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// contentGenerator is the part of *genai.Models the generator uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type geminiGenerator struct {
	models contentGenerator
	cfg    config.GeminiConfig
}

func NewGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create Gemini client")
	}
	return client, nil
}

func NewGeminiGenerator(client *genai.Client, cfg config.GeminiConfig) Generator {
	return &geminiGenerator{models: client.Models, cfg: cfg}
}

func (g *geminiGenerator) Generate(ctx context.Context, req GenerateRequest) (string, error) {
	history := req.History
	if n := g.cfg.HistoryWindow; n <= 0 {
		history = nil
	} else if len(history) > n {
		history = history[len(history)-n:]
	}

	contents := make([]*genai.Content, 0, len(history)+1)
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Sender == models.SenderAI {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Content, role))
	}
	contents = append(contents, genai.NewContentFromText(req.Content, genai.RoleUser))

	temperature := g.cfg.Temperature
	maxTokens := g.cfg.FreeMaxOutputTokens
	if req.IsPremium {
		maxTokens = g.cfg.PremiumMaxOutputTokens
	}

	res, err := g.models.GenerateContent(ctx, g.cfg.Model, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(SystemPrompt(req.Tone), genai.RoleUser),
		Temperature:       &temperature,
		MaxOutputTokens:   maxTokens,
	})
	if err != nil {
		return "", &errors.Error{
			Err:     err,
			Message: "failed to generate reply",
			Code:    "GENERATION_FAILED",
			Kind:    errors.ErrGenerationFailed,
		}
	}
	return res.Text(), nil
}
