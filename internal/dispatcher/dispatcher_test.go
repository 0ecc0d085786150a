package dispatcher

import (
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tellofleet/sim/internal/protocol"
)

// logSpy records dispatcher log output by severity.
type logSpy struct {
	mu      sync.Mutex
	entries []spyEntry
}

type spyEntry struct {
	level string
	msg   string
}

func (s *logSpy) record(level, msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, spyEntry{level: level, msg: msg})
}

func (s *logSpy) Debug(msg string, _ ...any) { s.record("debug", msg) }
func (s *logSpy) Info(msg string, _ ...any)  { s.record("info", msg) }
func (s *logSpy) Error(msg string, _ ...any) { s.record("error", msg) }

func (s *logSpy) seen(level, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.level == level && e.msg == msg {
			return true
		}
	}
	return false
}

func (s *logSpy) all() []spyEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]spyEntry(nil), s.entries...)
}

func newDispatcher(t *testing.T) (*Dispatcher, *logSpy) {
	t.Helper()
	spy := &logSpy{}
	d, err := New(spy)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return d, spy
}

func TestDispatch_InlineHandler(t *testing.T) {
	d, _ := newDispatcher(t)

	var got Event
	d.Register("takeoff", func(e Event) (any, error) {
		got = e
		return "ok", nil
	})

	sent := Event{
		Keyword:   "takeoff",
		Cmd:       protocol.Control{Cmd: "takeoff"},
		Timestamp: time.Now(),
	}
	res, err := d.Dispatch(sent)
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res != "ok" {
		t.Errorf("result = %v, want ok", res)
	}
	if got.Cmd != sent.Cmd || !got.Timestamp.Equal(sent.Timestamp) {
		t.Errorf("handler saw %+v, want %+v", got, sent)
	}
}

func TestDispatch_UnknownKeyword(t *testing.T) {
	d, _ := newDispatcher(t)

	if _, err := d.Dispatch(Event{Keyword: "warp"}); err == nil {
		t.Fatal("want error for unregistered keyword")
	}
}

func TestDispatch_PayloadReachesHandler(t *testing.T) {
	d, _ := newDispatcher(t)

	var got any
	d.Register("announce", func(e Event) (any, error) {
		got = e.Payload
		return nil, nil
	})

	if _, err := d.Dispatch(Event{Keyword: "announce", Payload: "drone_4"}); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if got != "drone_4" {
		t.Errorf("payload = %v, want drone_4", got)
	}
}

func TestRegister_ReplacesBinding(t *testing.T) {
	d, _ := newDispatcher(t)

	d.Register("land", func(Event) (any, error) { return "first", nil })
	d.Register("land", func(Event) (any, error) { return "second", nil })

	res, err := d.Dispatch(Event{Keyword: "land"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res != "second" {
		t.Errorf("result = %v, want second", res)
	}
}

func TestDispatch_BufferedQueuesAndProcesses(t *testing.T) {
	d, _ := newDispatcher(t)

	var handled atomic.Int32
	var wg sync.WaitGroup
	wg.Add(3)
	d.Register("announce", func(Event) (any, error) {
		handled.Add(1)
		wg.Done()
		return nil, nil
	}, Buffered(8))

	for i := 0; i < 3; i++ {
		res, err := d.Dispatch(Event{Keyword: "announce"})
		if err != nil {
			t.Fatalf("Dispatch %d: %v", i, err)
		}
		if res != "queued" {
			t.Errorf("result = %v, want queued", res)
		}
	}

	wg.Wait()
	if n := handled.Load(); n != 3 {
		t.Errorf("handled %d events, want 3", n)
	}
}

func TestDispatch_BufferedShedsWhenFull(t *testing.T) {
	d, _ := newDispatcher(t)

	release := make(chan struct{})
	d.Register("telemetry", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(2))
	defer close(release)

	// One event in flight plus a full queue. The worker removes at most
	// one event before parking in the handler, so the fourth dispatch
	// always finds the queue full.
	for i := 0; i < 3; i++ {
		d.Dispatch(Event{Keyword: "telemetry"})
	}
	_, err := d.Dispatch(Event{Keyword: "telemetry"})
	if err == nil {
		t.Fatal("want error once the queue is full")
	}
	if !strings.Contains(err.Error(), "queue full") {
		t.Errorf("error = %v, want queue full", err)
	}
}

func TestDispatch_BlockingWaitsForRoom(t *testing.T) {
	d, _ := newDispatcher(t)

	release := make(chan struct{})
	d.Register("telemetry", func(Event) (any, error) {
		<-release
		return nil, nil
	}, Buffered(1), Blocking())

	d.Dispatch(Event{Keyword: "telemetry"}) // worker parks in the handler
	d.Dispatch(Event{Keyword: "telemetry"}) // fills the queue

	unblocked := make(chan struct{})
	go func() {
		d.Dispatch(Event{Keyword: "telemetry"})
		close(unblocked)
	}()

	select {
	case <-unblocked:
		t.Fatal("dispatch returned with the queue full")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	<-unblocked
}

func TestDispatch_LoggedHandler(t *testing.T) {
	d, spy := newDispatcher(t)

	d.Register("battery?", func(Event) (any, error) { return "87", nil }, Logged())

	res, err := d.Dispatch(Event{Keyword: "battery?"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res != "87" {
		t.Errorf("result = %v, want 87", res)
	}
	if !spy.seen("debug", "dispatching") || !spy.seen("debug", "dispatched") {
		t.Errorf("missing debug entries, got %+v", spy.all())
	}
}

func TestDispatch_LoggedHandlerFailure(t *testing.T) {
	d, spy := newDispatcher(t)

	boom := errors.New("motor stop")
	d.Register("go", func(Event) (any, error) { return nil, boom }, Logged())

	if _, err := d.Dispatch(Event{Keyword: "go"}); !errors.Is(err, boom) {
		t.Fatalf("Dispatch error = %v, want %v", err, boom)
	}
	if !spy.seen("error", "dispatch failed") {
		t.Errorf("missing failure entry, got %+v", spy.all())
	}
}

func TestHasHandler(t *testing.T) {
	d, _ := newDispatcher(t)

	d.Register("land", func(Event) (any, error) { return nil, nil })

	if !d.HasHandler("land") {
		t.Error("land should be registered")
	}
	if d.HasHandler("hover") {
		t.Error("hover should not be registered")
	}
}

func TestDispatch_BufferedAndLogged(t *testing.T) {
	d, spy := newDispatcher(t)

	var wg sync.WaitGroup
	wg.Add(1)
	d.Register("announce", func(Event) (any, error) {
		wg.Done()
		return "done", nil
	}, Buffered(8), Logged())

	res, err := d.Dispatch(Event{Keyword: "announce"})
	if err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if res != "queued" {
		t.Errorf("result = %v, want queued", res)
	}

	// The logging wrapper sits outside the queue, so both entries are
	// written before Dispatch returns.
	if !spy.seen("debug", "dispatching") || !spy.seen("debug", "dispatched") {
		t.Errorf("missing debug entries, got %+v", spy.all())
	}

	wg.Wait()
}
