package voice

import (
	"context"
	"errors"
	"sync"

	"revline/models"
)

// fakeTransport is an in-memory Transport double driven by tests.
type fakeTransport struct {
	mu sync.Mutex

	connectErr error
	connected  bool
	closed     bool
	closeErr   error

	events chan Event

	sentAudio   [][]byte
	sentText    []string
	toolResults []map[string]any
	cancels     int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{events: make(chan Event, 32)}
}

func (f *fakeTransport) Connect(ctx context.Context) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	return nil
}

func (f *fakeTransport) Configure(ctx context.Context, cfg TransportConfig) error { return nil }

func (f *fakeTransport) SendAudio(chunk []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentAudio = append(f.sentAudio, chunk)
	return nil
}

func (f *fakeTransport) SendText(text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sentText = append(f.sentText, text)
	return nil
}

func (f *fakeTransport) SendToolResult(toolCallID string, result map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.toolResults = append(f.toolResults, result)
	return nil
}

func (f *fakeTransport) CancelResponse() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancels++
	return nil
}

func (f *fakeTransport) Events() <-chan Event { return f.events }

func (f *fakeTransport) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
	f.closed = true
	return f.closeErr
}

func (f *fakeTransport) cancelCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cancels
}

func (f *fakeTransport) lastToolResult() map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.toolResults) == 0 {
		return nil
	}
	return f.toolResults[len(f.toolResults)-1]
}

// fakeExecutor returns canned results, errors, or panics per tool name.
type fakeExecutor struct {
	mu      sync.Mutex
	results map[string]map[string]any
	errs    map[string]error
	panics  map[string]bool
	calls   []string
}

func newFakeExecutor() *fakeExecutor {
	return &fakeExecutor{
		results: make(map[string]map[string]any),
		errs:    make(map[string]error),
		panics:  make(map[string]bool),
	}
}

func (f *fakeExecutor) Execute(ctx context.Context, name string, args map[string]any) (map[string]any, error) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
	if f.panics[name] {
		panic("tool exploded")
	}
	if err := f.errs[name]; err != nil {
		return nil, err
	}
	if result, ok := f.results[name]; ok {
		return result, nil
	}
	return map[string]any{"success": true}, nil
}

func (f *fakeExecutor) Definitions() []ToolDefinition { return nil }

func (f *fakeExecutor) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// fakeSink captures emitted call records.
type fakeSink struct {
	mu      sync.Mutex
	records []models.CallRecord
	err     error
}

func (f *fakeSink) SaveCallRecord(ctx context.Context, record models.CallRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeSink) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeSink) last() models.CallRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.records[len(f.records)-1]
}

// staticResolver resolves every shop to a fixed limit.
type staticResolver struct{ limit int }

func (r staticResolver) ConcurrentCallLimit(ctx context.Context, shopID string) int { return r.limit }

var errToolBroken = errors.New("backend unavailable")
