package model

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// MockProvider is a deterministic in-memory Provider for tests and previews.
// Canned responses are keyed on the last user message; a failure script can
// inject classified errors for the first N calls to exercise retry paths.
type MockProvider struct {
	mu        sync.Mutex
	info      Info
	responses map[string]string
	script    []error
	calls     int
}

// NewMockProvider constructs a MockProvider under the given provider name.
func NewMockProvider(name string) *MockProvider {
	return &MockProvider{
		info:      Info{Name: "mock-model", Provider: name},
		responses: make(map[string]string),
	}
}

// AddResponse registers a canned completion for an input message.
func (m *MockProvider) AddResponse(input, output string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[input] = output
	return m
}

// FailWith queues errors returned by the next Generate calls, in order,
// before canned responses resume.
func (m *MockProvider) FailWith(errs ...error) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, errs...)
	return m
}

// Calls returns how many times Generate has been invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Generate implements Provider.
func (m *MockProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, Transient(err)
	}

	m.mu.Lock()
	m.calls++
	if len(m.script) > 0 {
		err := m.script[0]
		m.script = m.script[1:]
		m.mu.Unlock()
		return nil, err
	}

	var input string
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == RoleUser {
			input = req.Messages[i].Text
			break
		}
	}
	text, ok := m.responses[input]
	m.mu.Unlock()

	if !ok {
		text = fmt.Sprintf("Mock reply to: %s", strings.TrimSpace(input))
	}
	return &Response{
		Text:         text,
		Model:        m.info.Name,
		Provider:     m.info.Provider,
		FinishReason: "stop",
	}, nil
}

// Info implements Provider.
func (m *MockProvider) Info() Info { return m.info }
