package services

import (
	"chatmate-api/internal/config"
	"chatmate-api/internal/models"
	"chatmate-api/internal/pkg/errors"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type fakeModels struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
	text     string
	err      error
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	f.contents = contents
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.text}}},
		}},
	}, nil
}

func testGeminiConfig() config.GeminiConfig {
	return config.GeminiConfig{
		Model:                  "gemini-2.0-flash",
		Temperature:            0.7,
		FreeMaxOutputTokens:    500,
		PremiumMaxOutputTokens: 1000,
		HistoryWindow:          6,
	}
}

func TestGeminiGeneratorBuildsRequest(t *testing.T) {
	fake := &fakeModels{text: "Sure thing!"}
	gen := &geminiGenerator{models: fake, cfg: testGeminiConfig()}

	var history []models.Message
	for i := 0; i < 8; i++ {
		sender := models.SenderUser
		if i%2 == 1 {
			sender = models.SenderAI
		}
		history = append(history, models.Message{Sender: sender, Content: fmt.Sprintf("m%d", i)})
	}

	reply, err := gen.Generate(context.Background(), GenerateRequest{
		Tone:    models.ToneTutor,
		History: history,
		Content: "explain recursion",
	})
	require.NoError(t, err)
	assert.Equal(t, "Sure thing!", reply)

	assert.Equal(t, "gemini-2.0-flash", fake.model)
	require.Len(t, fake.contents, 7)
	assert.Equal(t, "m2", fake.contents[0].Parts[0].Text)
	assert.Equal(t, string(genai.RoleUser), string(fake.contents[0].Role))
	assert.Equal(t, string(genai.RoleModel), string(fake.contents[1].Role))
	assert.Equal(t, "explain recursion", fake.contents[6].Parts[0].Text)

	assert.Equal(t, int32(500), fake.config.MaxOutputTokens)
	require.NotNil(t, fake.config.Temperature)
	assert.InDelta(t, 0.7, *fake.config.Temperature, 0.0001)
	assert.Equal(t, tutorPrompt, fake.config.SystemInstruction.Parts[0].Text)
}

func TestGeminiGeneratorZeroWindowSendsNoHistory(t *testing.T) {
	fake := &fakeModels{text: "ok"}
	cfg := testGeminiConfig()
	cfg.HistoryWindow = 0
	gen := &geminiGenerator{models: fake, cfg: cfg}

	_, err := gen.Generate(context.Background(), GenerateRequest{
		History: []models.Message{{Sender: models.SenderUser, Content: "old"}},
		Content: "hi",
	})
	require.NoError(t, err)
	require.Len(t, fake.contents, 1)
	assert.Equal(t, "hi", fake.contents[0].Parts[0].Text)
}

func TestGeminiGeneratorPremiumBudget(t *testing.T) {
	fake := &fakeModels{text: "ok"}
	gen := &geminiGenerator{models: fake, cfg: testGeminiConfig()}

	_, err := gen.Generate(context.Background(), GenerateRequest{Content: "hi", IsPremium: true})
	require.NoError(t, err)
	assert.Equal(t, int32(1000), fake.config.MaxOutputTokens)
	assert.Equal(t, friendlyPrompt, fake.config.SystemInstruction.Parts[0].Text)
}

func TestGeminiGeneratorError(t *testing.T) {
	fake := &fakeModels{err: errors.New("quota exhausted upstream")}
	gen := &geminiGenerator{models: fake, cfg: testGeminiConfig()}

	reply, err := gen.Generate(context.Background(), GenerateRequest{Content: "hi"})
	assert.Empty(t, reply)
	assert.True(t, errors.Is(err, errors.ErrGenerationFailed))
}

func TestSystemPrompt(t *testing.T) {
	assert.Equal(t, friendlyPrompt, SystemPrompt(models.ToneFriendly))
	assert.Equal(t, professionalPrompt, SystemPrompt(models.ToneProfessional))
	assert.Equal(t, tutorPrompt, SystemPrompt(models.ToneTutor))
	assert.Equal(t, friendlyPrompt, SystemPrompt("pirate"))

	for _, tone := range models.AllTones {
		assert.Contains(t, SystemPrompt(tone), "You are ChatMate")
	}
}
