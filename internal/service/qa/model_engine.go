package qa

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/claude"
	"github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"medlabel/internal/config"
)

const systemPrompt = `You are an extractive question answering engine for medication labels.
Answer using only a short span copied from the provided context. Respond with a
single JSON object: {"answer": "<span>", "confidence": <0..1>}. If the context
does not contain the answer, use your best matching span with low confidence.`

// ModelEngine answers questions with a chat model behind the eino interface.
type ModelEngine struct {
	chatModel model.BaseChatModel
}

// NewModelEngine builds the engine for the configured provider.
func NewModelEngine(cfg *config.Config, provider string) (*ModelEngine, error) {
	provCfg, ok := cfg.Providers[provider]
	if !ok {
		return nil, fmt.Errorf("provider %s not configured", provider)
	}
	modelName := provCfg.Model

	var (
		chatModel model.BaseChatModel
		err       error
	)
	switch provider {
	case "openai":
		chatModel, err = openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
			BaseURL: provCfg.BaseURL,
			Model:   modelName,
			APIKey:  provCfg.APIKey,
		})
	case "gemini":
		client, cerr := genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey: provCfg.APIKey,
		})
		if cerr != nil {
			return nil, fmt.Errorf("gemini client: %w", cerr)
		}
		chatModel, err = gemini.NewChatModel(context.Background(), &gemini.Config{
			Client: client,
			Model:  modelName,
		})
	case "claude":
		var baseURLPtr *string
		if provCfg.BaseURL != "" {
			baseURLPtr = &provCfg.BaseURL
		}
		chatModel, err = claude.NewChatModel(context.Background(), &claude.Config{
			APIKey:    provCfg.APIKey,
			Model:     modelName,
			BaseURL:   baseURLPtr,
			MaxTokens: 512,
		})
	default:
		return nil, fmt.Errorf("invalid provider: %s", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s chat model: %w", provider, err)
	}
	return &ModelEngine{chatModel: chatModel}, nil
}

// NewModelEngineFromChatModel wires a prebuilt chat model (used by tests).
func NewModelEngineFromChatModel(m model.BaseChatModel) *ModelEngine {
	return &ModelEngine{chatModel: m}
}

// Answer asks the model one question against the context and parses the
// JSON reply. A reply that is not valid JSON degrades to the raw content
// with zero confidence rather than failing the request.
func (e *ModelEngine) Answer(ctx context.Context, question, contextText string) (Answer, error) {
	messages := []*schema.Message{
		{Role: schema.System, Content: systemPrompt},
		{Role: schema.User, Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", contextText, question)},
	}
	reply, err := e.chatModel.Generate(ctx, messages)
	if err != nil {
		return Answer{}, fmt.Errorf("qa generate: %w", err)
	}
	return parseAnswer(reply.Content), nil
}

func parseAnswer(content string) Answer {
	var ans Answer
	trimmed := strings.TrimSpace(content)
	if err := json.Unmarshal([]byte(trimmed), &ans); err == nil && ans.Text != "" {
		return ans
	}
	// models sometimes wrap the object in prose or code fences
	if start, end := strings.Index(trimmed, "{"), strings.LastIndex(trimmed, "}"); start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), &ans); err == nil && ans.Text != "" {
			return ans
		}
	}
	return Answer{Text: trimmed, Confidence: 0}
}
