package llm

import (
	"context"
	"sync"
)

// MockBackend is a mock implementation of the Backend interface.
// It can be configured to return a specific response or error.
type MockBackend struct {
	// Response is the text response to return.
	Response string
	// Err is the error to return (if any).
	Err error

	mu       sync.Mutex
	requests []GenerationRequest
}

// NewMockBackend creates a new MockBackend with a simple response.
func NewMockBackend(response string) *MockBackend {
	return &MockBackend{Response: response}
}

// NewMockBackendWithError creates a new MockBackend that returns an error.
func NewMockBackendWithError(err error) *MockBackend {
	return &MockBackend{Err: err}
}

// Generate records the request and returns the canned response or error.
func (m *MockBackend) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	m.mu.Unlock()
	return m.Response, m.Err
}

// Requests returns a copy of the recorded requests.
func (m *MockBackend) Requests() []GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]GenerationRequest, len(m.requests))
	copy(out, m.requests)
	return out
}

// LastRequest returns the most recent request, or a zero value when none
// was recorded.
func (m *MockBackend) LastRequest() GenerationRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return GenerationRequest{}
	}
	return m.requests[len(m.requests)-1]
}

var _ Backend = (*MockBackend)(nil)
