package model

import (
	"context"
	"fmt"

	"github.com/hupe1980/memchat/core"
)

// Message roles understood by all providers.
const (
	RoleSystem    = "system"
	RoleUser      = core.RoleUser
	RoleAssistant = core.RoleAssistant
)

// Message is a single role-tagged prompt segment.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request captures the normalized model input produced by the prompt composer.
type Request struct {
	Messages []Message `json:"messages"`
}

// Response is the completed model output.
type Response struct {
	Text string `json:"text"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock", etc.
}

// Model is the minimal interface required by the runner to drive generation.
type Model interface {
	// Complete generates a single completion for the given messages. Failures
	// are returned as *core.GenerationError.
	Complete(ctx context.Context, req Request) (Response, error)

	// Info returns information about the model implementation.
	Info() Info
}

// MockModel is a lightweight in-memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
	err       error
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
// The prompt is matched against the content of the last user message.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// FailWith makes every subsequent Complete call return the given error.
func (m *MockModel) FailWith(err error) { m.err = err }

// Complete implements Model; returns the canned response for the last user
// message or a generic echo when none is registered.
func (m *MockModel) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, &core.GenerationError{Model: m.info.Name, Err: err}
	}
	if m.err != nil {
		return Response{}, &core.GenerationError{Model: m.info.Name, Err: m.err}
	}
	if len(req.Messages) == 0 {
		return Response{}, &core.GenerationError{Model: m.info.Name, Err: fmt.Errorf("no messages provided")}
	}
	var lastUser string
	for _, msg := range req.Messages {
		if msg.Role == RoleUser {
			lastUser = msg.Content
		}
	}
	if resp, ok := m.responses[lastUser]; ok {
		return Response{Text: resp}, nil
	}
	return Response{Text: fmt.Sprintf("Mock response to: %s", lastUser)}, nil
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
