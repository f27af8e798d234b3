// Package testutil provides test doubles for the llm package.
package testutil

import (
	"context"
	"sync"

	"github.com/spoolkit/spool/llm"
)

// MockCompleter is a thread-safe scripted Completer for tests. It returns
// configured responses in sequence and records every request it sees.
//
// Usage:
//
//	mock := &testutil.MockCompleter{
//	    Responses: []*llm.Response{{Content: `{"ok":true}`}},
//	}
//
// Script can be set instead for per-call behavior (e.g., fail only the
// fifth call).
type MockCompleter struct {
	mu        sync.Mutex
	Responses []*llm.Response // returned in sequence
	Err       error           // takes precedence over Responses

	// Script, if non-nil, fully controls each call. The argument is the
	// 1-based call number.
	Script func(call int, req llm.Request) (*llm.Response, error)

	requests []llm.Request
	index    int
}

// Complete implements llm.Completer.
func (m *MockCompleter) Complete(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.requests = append(m.requests, req)

	if m.Script != nil {
		return m.Script(len(m.requests), req)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.index < len(m.Responses) {
		resp := m.Responses[m.index]
		m.index++
		return resp, nil
	}

	return &llm.Response{Content: "", Model: "mock"}, nil
}

// CallCount returns how many times Complete was called.
func (m *MockCompleter) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Request returns the i-th recorded request (0-based).
func (m *MockCompleter) Request(i int) llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[i]
}

// LastRequest returns the most recent request, or a zero Request.
func (m *MockCompleter) LastRequest() llm.Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return llm.Request{}
	}
	return m.requests[len(m.requests)-1]
}

// Reset clears recorded requests and rewinds the response sequence.
func (m *MockCompleter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = nil
	m.index = 0
}
