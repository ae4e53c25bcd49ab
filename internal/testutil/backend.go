package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/MeKo-Tech/lotra/internal/lang"
)

// BackendCall records one Translate invocation.
type BackendCall struct {
	Text   string
	Source lang.Code
	Target lang.Code
}

// FakeBackend is an in-memory translation backend for tests. By default it
// returns "[src->tgt] text".
type FakeBackend struct {
	mu     sync.Mutex
	calls  []BackendCall
	closed bool

	// Responses maps input text to a canned translation.
	Responses map[string]string
	// Err, when set, is returned from every Translate call.
	Err error
	// FailOn lists input texts that fail with Err or a generic error.
	FailOn map[string]bool
	// Block makes Translate wait until the context is done.
	Block bool
}

// NewFakeBackend creates a FakeBackend with no canned responses.
func NewFakeBackend() *FakeBackend {
	return &FakeBackend{
		Responses: map[string]string{},
		FailOn:    map[string]bool{},
	}
}

// Translate implements the backend interface.
func (f *FakeBackend) Translate(ctx context.Context, text string, src, tgt lang.Code) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, BackendCall{Text: text, Source: src, Target: tgt})
	block := f.Block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if f.Err != nil && (len(f.FailOn) == 0 || f.FailOn[text]) {
		return "", f.Err
	}
	if f.FailOn[text] {
		return "", fmt.Errorf("fake backend failure for %q", text)
	}
	if out, ok := f.Responses[text]; ok {
		return out, nil
	}
	return fmt.Sprintf("[%s->%s] %s", src, tgt, text), nil
}

// Close marks the backend closed.
func (f *FakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// Calls returns a copy of the recorded calls.
func (f *FakeBackend) Calls() []BackendCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]BackendCall, len(f.calls))
	copy(out, f.calls)
	return out
}

// Closed reports whether Close was called.
func (f *FakeBackend) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}
