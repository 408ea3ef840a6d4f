package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"

	"pharmassist-backend/logging"
)

// DefaultGeminiModel is used when no model name is configured
const DefaultGeminiModel = "gemini-2.5-flash"

var errNoCandidates = errors.New("API returned no candidates")

// GeminiModel implements Model on the Gemini API
type GeminiModel struct {
	client      *genai.Client
	name        string
	temperature float32
	logger      *zap.Logger
}

// NewGeminiModel wraps client for the named model
func NewGeminiModel(client *genai.Client, name string, logger *zap.Logger) *GeminiModel {
	if name == "" {
		name = DefaultGeminiModel
	}
	return &GeminiModel{
		client:      client,
		name:        name,
		temperature: 0.2,
		logger:      logging.OrNop(logger),
	}
}

func (m *GeminiModel) model(tools []Tool) *genai.GenerativeModel {
	gm := m.client.GenerativeModel(m.name)
	gm.SetTemperature(m.temperature)
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, functionDeclaration(t))
		}
		gm.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	return gm
}

func functionDeclaration(t Tool) *genai.FunctionDeclaration {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(t.Params)),
	}
	for _, p := range t.Params {
		schema.Properties[p.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Description,
		}
		if p.Required {
			schema.Required = append(schema.Required, p.Name)
		}
	}
	return &genai.FunctionDeclaration{
		Name:        t.Name,
		Description: t.Description,
		Parameters:  schema,
	}
}

// Generate sends a single prompt and returns the response text
func (m *GeminiModel) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := m.model(nil).GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	turn, err := m.toTurn(resp)
	if err != nil {
		return "", err
	}
	return turn.Text, nil
}

// StartChat opens a chat session with tools bound
func (m *GeminiModel) StartChat(tools []Tool) ChatSession {
	return &geminiChat{cs: m.model(tools).StartChat(), model: m}
}

func (m *GeminiModel) toTurn(resp *genai.GenerateContentResponse) (*Turn, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, errNoCandidates
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason != genai.FinishReasonStop && candidate.FinishReason != genai.FinishReasonUnspecified {
		m.logger.Warn("candidate finished early", zap.String("finish_reason", candidate.FinishReason.String()))
	}

	turn := &Turn{}
	for _, fc := range candidate.FunctionCalls() {
		turn.ToolCalls = append(turn.ToolCalls, ToolCall{Name: fc.Name, Args: fc.Args})
	}

	if candidate.Content != nil {
		var sb strings.Builder
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				sb.WriteString(string(text))
			}
		}
		turn.Text = sb.String()
	}
	return turn, nil
}

type geminiChat struct {
	cs    *genai.ChatSession
	model *GeminiModel
}

func (g *geminiChat) Send(ctx context.Context, text string) (*Turn, error) {
	resp, err := g.cs.SendMessage(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return g.model.toTurn(resp)
}

func (g *geminiChat) SendToolResults(ctx context.Context, results []ToolResult) (*Turn, error) {
	parts := make([]genai.Part, 0, len(results))
	for _, r := range results {
		response := map[string]any{"result": r.Output}
		if r.Err != nil {
			response = map[string]any{"error": r.Err.Error()}
		}
		parts = append(parts, genai.FunctionResponse{Name: r.Name, Response: response})
	}
	resp, err := g.cs.SendMessage(ctx, parts...)
	if err != nil {
		return nil, fmt.Errorf("failed to send tool results: %w", err)
	}
	return g.model.toTurn(resp)
}
