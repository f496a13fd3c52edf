package main

import (
	"context"
	"io"
	"net"
	"testing"
	"time"

	"doorcloser/actuator"
	"doorcloser/eventpipe"
	"doorcloser/indicator"
	"doorcloser/intake"
	"doorcloser/sequencer"
	"doorcloser/server"
)

type fakePoller struct {
	queue []*server.Request
	polls int
}

func (f *fakePoller) Poll() (*server.Request, bool) {
	f.polls++
	if len(f.queue) == 0 {
		return nil, false
	}
	r := f.queue[0]
	f.queue = f.queue[1:]
	return r, true
}

var testTiming = sequencer.Timing{
	Init:    230 * time.Millisecond,
	Retract: 200 * time.Millisecond,
	Return:  200 * time.Millisecond,
}

func newTestApp(t *testing.T) (*App, *actuator.Noop, *fakePoller) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	port := &actuator.Noop{}
	poller := &fakePoller{}
	app := &App{
		cfg:       &Config{ClientID: "test"},
		events:    make(chan event, 16),
		ctx:       ctx,
		cancel:    cancel,
		port:      port,
		requests:  poller,
		indicator: &indicator.Noop{},
	}
	app.setup(testTiming, time.Now())
	return app, port, poller
}

func TestApp_RequestHeldUntilReady(t *testing.T) {
	app, port, poller := newTestApp(t)
	poller.queue = append(poller.queue, &server.Request{
		Lines:    []string{"GET /open HTTP/1.1"},
		Received: time.Now(),
	})

	app.step(100 * time.Millisecond)
	if poller.polls != 0 {
		t.Errorf("Polled %d times during initialization", poller.polls)
	}
	if port.Last() != actuator.Reverse {
		t.Errorf("Expected reverse during init, got %s", port.Last())
	}

	// The held request is read and applied once ready.
	app.step(testTiming.Init)
	if app.seq.Phase() != sequencer.Ready {
		t.Fatalf("Expected ready, got %s", app.seq.Phase())
	}
	now := testTiming.Init + time.Millisecond
	app.step(now)
	if poller.polls != 1 {
		t.Errorf("Expected one poll, got %d", poller.polls)
	}
	if app.seq.Phase() != sequencer.ClosingRetract || app.seq.PhaseClock() != now {
		t.Errorf("Expected closing_retract @ %v, got %s @ %v", now, app.seq.Phase(), app.seq.PhaseClock())
	}
}

func TestApp_IncompleteRequestLinesApplied(t *testing.T) {
	app, _, poller := newTestApp(t)
	app.step(testTiming.Init)

	poller.queue = append(poller.queue, &server.Request{
		Lines:      []string{"GET /open HTTP/1.1"},
		Received:   time.Now(),
		Incomplete: true,
	})
	app.step(testTiming.Init + time.Millisecond)

	if app.seq.Phase() != sequencer.ClosingRetract {
		t.Errorf("Open line from dropped client not applied: %s", app.seq.Phase())
	}
	if app.intake.Requests != 0 {
		t.Errorf("Incomplete request counted as answered: %d", app.intake.Requests)
	}
}

func TestApp_OpenRequestStartsCycle(t *testing.T) {
	app, port, poller := newTestApp(t)
	app.step(testTiming.Init)

	now := testTiming.Init + 10*time.Millisecond
	poller.queue = append(poller.queue,
		&server.Request{Lines: []string{"GET /open HTTP/1.1", "Host: door"}, Received: time.Now()},
		&server.Request{Lines: []string{"GET /status HTTP/1.1"}, Received: time.Now()},
	)

	app.step(now)
	if app.seq.Phase() != sequencer.ClosingRetract || app.seq.PhaseClock() != now {
		t.Fatalf("Expected closing_retract @ %v, got %s @ %v", now, app.seq.Phase(), app.seq.PhaseClock())
	}
	if port.Last() != actuator.Forward {
		t.Errorf("Expected forward, got %s", port.Last())
	}
	if len(poller.queue) != 1 {
		t.Errorf("Expected one request per iteration, %d left", len(poller.queue))
	}

	app.step(now + testTiming.Retract)
	if app.seq.Phase() != sequencer.ClosingReturn || port.Last() != actuator.Reverse {
		t.Errorf("Expected closing_return/reverse, got %s/%s", app.seq.Phase(), port.Last())
	}
	app.step(now + testTiming.Cycle())
	if app.seq.Phase() != sequencer.Ready || port.Last() != actuator.Stop {
		t.Errorf("Expected ready/stop, got %s/%s", app.seq.Phase(), port.Last())
	}
	if app.intake.Requests != 2 || app.intake.Accepted != 1 {
		t.Errorf("Expected 2 requests / 1 accepted, got %d / %d", app.intake.Requests, app.intake.Accepted)
	}
}

func TestApp_EventsDuringInitializationAreRejected(t *testing.T) {
	app, _, _ := newTestApp(t)

	app.post(event{kind: evCommand, cmd: intake.Open})
	app.step(50 * time.Millisecond)
	if app.intake.Opens != 1 || app.intake.Accepted != 0 {
		t.Errorf("Expected rejected open, got opens=%d accepted=%d", app.intake.Opens, app.intake.Accepted)
	}

	app.step(testTiming.Init)
	if app.seq.Phase() != sequencer.Ready {
		t.Fatalf("Expected ready, got %s", app.seq.Phase())
	}

	app.onPipeEvent(eventpipe.Event{Command: intake.Open})
	app.step(testTiming.Init + time.Millisecond)
	if app.seq.Phase() != sequencer.ClosingRetract {
		t.Errorf("Pipe open did not start a cycle: %s", app.seq.Phase())
	}
}

func TestApp_MQTTCommand(t *testing.T) {
	app, _, _ := newTestApp(t)
	app.step(testTiming.Init)

	app.onMQTTCommand("bogus")
	app.onMQTTCommand("closed")
	app.step(testTiming.Init + time.Millisecond)
	if app.seq.Phase() != sequencer.Ready {
		t.Errorf("Closed event changed phase to %s", app.seq.Phase())
	}

	app.onMQTTCommand("open")
	app.step(testTiming.Init + 2*time.Millisecond)
	if app.seq.Phase() != sequencer.ClosingRetract {
		t.Errorf("MQTT open did not start a cycle: %s", app.seq.Phase())
	}
}

func TestApp_ServerRequestDuringInitialization(t *testing.T) {
	app, _, _ := newTestApp(t)
	srv, err := server.New(server.Config{Listen: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("server.New: %v", err)
	}
	defer srv.Close()
	app.requests = srv

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()
	io.WriteString(conn, "GET /open HTTP/1.1\r\n\r\n")

	app.step(50 * time.Millisecond)
	app.step(testTiming.Init)
	if app.seq.Phase() != sequencer.Ready {
		t.Fatalf("Expected ready, got %s", app.seq.Phase())
	}

	now := testTiming.Init
	deadline := time.Now().Add(2 * time.Second)
	for app.seq.Phase() == sequencer.Ready && time.Now().Before(deadline) {
		now += time.Millisecond
		app.step(now)
		time.Sleep(5 * time.Millisecond)
	}
	if app.seq.Phase() != sequencer.ClosingRetract {
		t.Fatalf("Request sent during initialization did not start a cycle: %s", app.seq.Phase())
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	got, err := io.ReadAll(conn)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != intake.Response {
		t.Errorf("Unexpected response %q", got)
	}
}
