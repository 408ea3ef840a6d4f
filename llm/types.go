package llm

import "context"

// Param describes one string argument of a tool
type Param struct {
	Name        string
	Description string
	Required    bool
}

// Tool is a capability the model may call during a tool-calling completion
type Tool struct {
	Name        string
	Description string
	Params      []Param
	Run         func(ctx context.Context, args map[string]any) (string, error)
}

// ToolCall is a function-call request emitted by the model
type ToolCall struct {
	Name string
	Args map[string]any
}

// ToolResult is the response sent back for one ToolCall
type ToolResult struct {
	Name   string
	Output string
	Err    error
}

// Turn is one model response: final text, or pending tool calls
type Turn struct {
	Text      string
	ToolCalls []ToolCall
}

// Model is a generative model backend
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	StartChat(tools []Tool) ChatSession
}

// ChatSession is a multi-turn conversation that keeps its own history
type ChatSession interface {
	Send(ctx context.Context, text string) (*Turn, error)
	SendToolResults(ctx context.Context, results []ToolResult) (*Turn, error)
}
