package voice

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"revline/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type sessionFixture struct {
	session   *Session
	transport *fakeTransport
	executor  *fakeExecutor
	limiter   *Limiter
	registry  *Registry
	sink      *fakeSink
}

func newSessionFixture(t *testing.T, params SessionParams, mutate func(*SessionDeps)) *sessionFixture {
	t.Helper()

	f := &sessionFixture{
		transport: newFakeTransport(),
		executor:  newFakeExecutor(),
		limiter:   NewLimiter(10, zap.NewNop()),
		registry:  NewRegistry(zap.NewNop()),
		sink:      &fakeSink{},
	}
	if params.CallSID == "" {
		params.CallSID = "CA-test"
	}
	if params.ShopID == "" {
		params.ShopID = "shop-1"
	}
	deps := SessionDeps{
		Transport: f.transport,
		Tools:     f.executor,
		Limiter:   f.limiter,
		Registry:  f.registry,
		Sink:      f.sink,
		Logger:    zap.NewNop(),
	}
	if mutate != nil {
		mutate(&deps)
	}
	f.session = NewSession(params, deps)
	return f
}

// admit mirrors the production path: slot acquired before the session runs.
func (f *sessionFixture) admit(t *testing.T) {
	t.Helper()
	require.True(t, f.limiter.TryAcquire(f.session.ShopID, 5))
	require.NoError(t, f.registry.Register(f.session))
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

func TestSessionStartHappyPath(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)

	require.NoError(t, f.session.Start(context.Background()))
	assert.Equal(t, StateListening, f.session.State())

	f.session.Stop()
}

func TestSessionStartConnectFailure(t *testing.T) {
	var states []State
	f := newSessionFixture(t, SessionParams{}, func(d *SessionDeps) {
		d.OnStateChange = func(s State) { states = append(states, s) }
	})
	f.admit(t)
	f.transport.connectErr = errors.New("dial refused")

	err := f.session.Start(context.Background())
	require.Error(t, err)
	assert.Equal(t, []State{StateConnecting, StateError}, states)

	// Stop after a failed start still reclaims the slot and registry entry.
	f.session.Stop()
	assert.Equal(t, 0, f.limiter.ActiveCount("shop-1"))
	_, found := f.registry.Get(f.session.CallSID)
	assert.False(t, found)
	assert.Equal(t, models.OutcomeFailed, f.sink.last().Outcome)
}

func TestSessionBargeIn(t *testing.T) {
	cleared := 0
	f := newSessionFixture(t, SessionParams{}, func(d *SessionDeps) {
		d.OnBargeIn = func() { cleared++ }
	})
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	f.transport.events <- Event{Type: EventAudioDelta, Audio: []byte{1, 2, 3}}
	waitFor(t, func() bool { return f.session.State() == StateSpeaking }, "session never entered SPEAKING")

	f.transport.events <- Event{Type: EventSpeechStarted}
	waitFor(t, func() bool { return f.session.State() == StateListening }, "barge-in must land in LISTENING")

	assert.Equal(t, 1, f.transport.cancelCount(), "barge-in must cancel the response exactly once")
	assert.Equal(t, 1, cleared)

	f.session.Stop()
}

func TestSessionSpeechStoppedEntersProcessing(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	f.transport.events <- Event{Type: EventSpeechStopped}
	waitFor(t, func() bool { return f.session.State() == StateProcessing }, "expected PROCESSING")

	f.transport.events <- Event{Type: EventResponseDone, ResponseStatus: "completed"}
	waitFor(t, func() bool { return f.session.State() == StateListening }, "expected LISTENING after response")

	f.session.Stop()
}

func TestSessionObserverFiresOncePerTransition(t *testing.T) {
	var mu sync.Mutex
	var states []State
	f := newSessionFixture(t, SessionParams{}, func(d *SessionDeps) {
		d.OnStateChange = func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		}
	})
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	// Duplicate same-state events must not re-notify.
	f.transport.events <- Event{Type: EventSpeechStarted}
	f.transport.events <- Event{Type: EventSpeechStarted}
	f.transport.events <- Event{Type: EventSpeechStopped}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(states) == 3
	}, "expected three observer notifications")

	mu.Lock()
	assert.Equal(t, []State{StateConnecting, StateListening, StateProcessing}, states)
	mu.Unlock()

	f.session.Stop()
}

func TestSessionToolErrorIsNotFatal(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	f.executor.errs["lookup_work_order"] = errToolBroken
	require.NoError(t, f.session.Start(context.Background()))

	args, _ := json.Marshal(map[string]any{"phone": "+15550100"})
	f.transport.events <- Event{Type: EventFunctionCall, ToolCallID: "fc-1", ToolName: "lookup_work_order", ToolArgs: string(args)}

	waitFor(t, func() bool { return f.transport.lastToolResult() != nil }, "no tool result sent")
	result := f.transport.lastToolResult()
	assert.Equal(t, false, result["success"])
	assert.Equal(t, errToolBroken.Error(), result["error"])
	assert.NotEqual(t, StateError, f.session.State(), "a tool failure must not kill the session")
	assert.Equal(t, 1, f.executor.callCount("lookup_work_order"), "executor invoked at most once per event")

	f.session.Stop()
}

func TestSessionToolPanicIsConverted(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	f.executor.panics["get_location"] = true
	require.NoError(t, f.session.Start(context.Background()))

	f.transport.events <- Event{Type: EventFunctionCall, ToolCallID: "fc-2", ToolName: "get_location", ToolArgs: "{}"}

	waitFor(t, func() bool { return f.transport.lastToolResult() != nil }, "no tool result sent")
	result := f.transport.lastToolResult()
	assert.Equal(t, false, result["success"])
	assert.Contains(t, result["error"], "panicked")
	assert.NotEqual(t, StateError, f.session.State())

	f.session.Stop()
}

func TestSessionStopIdempotent(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	f.session.Stop()
	f.session.Stop()

	assert.Equal(t, 1, f.sink.count(), "record must be emitted exactly once")
	assert.Equal(t, 0, f.limiter.ActiveCount("shop-1"), "slot must be released exactly once")
	assert.Equal(t, StateEnded, f.session.State())
}

// Shutdown may drain the registry while a call is still connecting, so Stop
// can race Start. The event-loop handoff must stay consistent either way:
// one record, one release, no panic.
func TestSessionStopRacesStart(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = f.session.Start(context.Background())
	}()
	go func() {
		defer wg.Done()
		f.session.Stop()
	}()
	wg.Wait()

	f.session.Stop()
	assert.Equal(t, 1, f.sink.count(), "record must be emitted exactly once")
	assert.Equal(t, 0, f.limiter.ActiveCount("shop-1"), "slot must be released")

	// If Start won the race after teardown ran, reap its event loop.
	f.session.mu.Lock()
	cancel := f.session.cancelEvents
	f.session.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func TestSessionTeardownSurvivesCloseFailure(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))
	f.transport.closeErr = errors.New("socket already gone")

	f.session.Stop()

	assert.Equal(t, 0, f.limiter.ActiveCount("shop-1"), "limiter release must happen despite close failure")
	_, found := f.registry.Get(f.session.CallSID)
	assert.False(t, found, "registry removal must happen despite close failure")
	assert.Equal(t, 1, f.sink.count())
}

func TestSessionStopDuringConnecting(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)

	// Never started: transport never connected, no event loop running.
	f.session.Stop()

	assert.Equal(t, 0, f.limiter.ActiveCount("shop-1"))
	_, found := f.registry.Get(f.session.CallSID)
	assert.False(t, found)
}

func TestSessionOutcomeResolved(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	f.executor.results["get_business_hours"] = map[string]any{"success": true, "hours": "8-6"}
	require.NoError(t, f.session.Start(context.Background()))

	f.transport.events <- Event{Type: EventFunctionCall, ToolCallID: "fc-3", ToolName: "get_business_hours", ToolArgs: "{}"}
	waitFor(t, func() bool { return f.transport.lastToolResult() != nil }, "no tool result sent")

	f.session.Stop()
	record := f.sink.last()
	assert.Equal(t, models.OutcomeResolved, record.Outcome)
	assert.Equal(t, models.IntentGetHours, record.Intent)
	require.Len(t, record.ToolCalls, 1)
	assert.True(t, record.ToolCalls[0].Succeeded)
}

func TestSessionAvailabilityCheckRecordsBookingIntent(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	f.executor.results["check_availability"] = map[string]any{"success": true, "slots": []string{"Tue 9am"}}
	require.NoError(t, f.session.Start(context.Background()))

	args, _ := json.Marshal(map[string]any{"date": "2026-09-01"})
	f.transport.events <- Event{Type: EventFunctionCall, ToolCallID: "fc-6", ToolName: "check_availability", ToolArgs: string(args)}
	waitFor(t, func() bool { return f.transport.lastToolResult() != nil }, "no tool result sent")

	f.session.Stop()
	assert.Equal(t, models.IntentBookVisit, f.sink.last().Intent,
		"an availability check is part of booking a visit")
}

func TestSessionOutcomeAbandoned(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	f.session.Stop()
	assert.Equal(t, models.OutcomeAbandoned, f.sink.last().Outcome)
}

func TestSessionTransferOutcome(t *testing.T) {
	transferred := 0
	f := newSessionFixture(t, SessionParams{}, func(d *SessionDeps) {
		d.Transfer = func(ctx context.Context, callSID, reason string) error {
			transferred++
			return nil
		}
	})
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	args, _ := json.Marshal(map[string]any{"reason": "caller asked for a human"})
	f.transport.events <- Event{Type: EventFunctionCall, ToolCallID: "fc-4", ToolName: "transfer_to_human", ToolArgs: string(args)}
	f.transport.events <- Event{Type: EventResponseDone, ResponseStatus: "completed"}
	waitFor(t, func() bool { return f.session.Outcome() == models.OutcomeTransferred }, "transfer never executed")

	assert.Equal(t, 1, transferred)

	f.session.Stop()
	record := f.sink.last()
	assert.Equal(t, models.OutcomeTransferred, record.Outcome)
	assert.Equal(t, "caller asked for a human", record.TransferReason)
}

func TestSessionTransportStreamLossEndsInError(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	close(f.transport.events)

	waitFor(t, func() bool { return f.sink.count() == 1 }, "stream loss must trigger stop")
	assert.Equal(t, StateError, f.session.State())
	assert.Equal(t, models.OutcomeFailed, f.sink.last().Outcome)
	assert.Equal(t, 0, f.limiter.ActiveCount("shop-1"))
}

func TestSessionForwardAudioBeforeConnect(t *testing.T) {
	f := newSessionFixture(t, SessionParams{}, nil)
	f.admit(t)

	// Must not panic or error before the handshake.
	f.session.ForwardAudio([]byte{0xff})
	assert.Empty(t, f.transport.sentAudio)

	f.session.Stop()
}

func TestSessionAudioMetrics(t *testing.T) {
	var out []byte
	f := newSessionFixture(t, SessionParams{}, func(d *SessionDeps) {
		d.OnAudioOut = func(chunk []byte) { out = append(out, chunk...) }
	})
	f.admit(t)
	require.NoError(t, f.session.Start(context.Background()))

	f.session.ForwardAudio(make([]byte, 160))
	f.transport.events <- Event{Type: EventAudioDelta, Audio: make([]byte, 320)}
	waitFor(t, func() bool { return f.session.MetricsSnapshot().AudioBytesOut == 320 }, "audio out not counted")

	m := f.session.MetricsSnapshot()
	assert.Equal(t, int64(160), m.AudioBytesIn)
	assert.Len(t, out, 320)

	f.session.Stop()
}
