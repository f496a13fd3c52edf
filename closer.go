package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"doorcloser/actuator"
	"doorcloser/button"
	"doorcloser/eventpipe"
	"doorcloser/indicator"
	"doorcloser/intake"
	"doorcloser/mqtt"
	"doorcloser/sequencer"
	"doorcloser/server"
)

var myBuild string

// requestPoller supplies complete requests without blocking.
type requestPoller interface {
	Poll() (*server.Request, bool)
}

type eventKind int

const (
	evCommand eventKind = iota
	evStatus
	evConnected
	evConnectionLost
)

// event is something delivered from a background goroutine to the loop.
type event struct {
	kind eventKind
	cmd  intake.Command
}

// App holds the controller state. Everything below the events channel is
// touched only by the loop goroutine.
type App struct {
	cfg    *Config
	events chan event
	ctx    context.Context
	cancel context.CancelFunc

	start     time.Time
	port      actuator.Port
	seq       *sequencer.Sequencer
	intake    *intake.Intake
	requests  requestPoller
	mqtt      *mqtt.Client
	indicator indicator.Indicator
}

func main() {
	fmt.Printf("doorcloser build %s\n", myBuild)

	cfgfile := flag.String("cfg", "doorcloser.cfg", "Config file")
	initOnly := flag.Bool("init-only", false, "Run the initialization stroke and exit")
	flag.Parse()

	cfg, err := LoadConfig(*cfgfile)
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		cfg:    cfg,
		events: make(chan event, 16),
		ctx:    ctx,
		cancel: cancel,
	}

	app.indicator, err = indicator.New(cfg.Indicator)
	if err != nil {
		log.Fatalf("Init indicator: %v", err)
	}
	app.indicator.ConnectionLost() // Start with connection lost state

	app.port, err = actuator.New(cfg.Actuator)
	if err != nil {
		log.Fatalf("Init actuator: %v", err)
	}
	pinA, pinB := cfg.Actuator.Pins()
	log.Printf("H-bridge initialized (A=%d, B=%d)", pinA, pinB)

	app.setup(cfg.Timing.Sequencer(), time.Now())

	if *initOnly {
		app.runInit(cfg.Timing.Poll())
		app.shutdown()
		return
	}

	srv, err := server.New(cfg.HTTP)
	if err != nil {
		log.Fatalf("Init server: %v", err)
	}
	app.requests = srv

	pipe, err := eventpipe.New(cfg.EventPipe, app.onPipeEvent)
	if err != nil {
		log.Fatalf("Init event pipe: %v", err)
	}
	if pipe != nil {
		go pipe.Start()
	}

	btn, err := button.New(cfg.Button, func() {
		fmt.Println("Button pressed")
		app.post(event{kind: evCommand, cmd: intake.Open})
	})
	if err != nil {
		log.Fatalf("Init button: %v", err)
	}

	app.mqtt, err = mqtt.New(cfg.MQTT, cfg.ClientID, mqtt.Handlers{
		OnConnect:    func() { app.post(event{kind: evConnected}) },
		OnDisconnect: func() { app.post(event{kind: evConnectionLost}) },
		OnCommand:    app.onMQTTCommand,
	})
	if err != nil {
		log.Fatalf("Init MQTT: %v", err)
	}

	go func() {
		if err := app.mqtt.Connect(); err != nil {
			log.Printf("MQTT connect: %v", err)
		}
	}()
	go app.pingSender()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("Shutting down...")
		cancel()
	}()

	app.run(cfg.Timing.Poll())

	srv.Close()
	if pipe != nil {
		pipe.Close()
	}
	if btn != nil {
		btn.Release()
	}
	app.mqtt.Disconnect()
	app.shutdown()
	fmt.Println("Shutdown complete")
}

// setup builds the sequencer and intake and starts the initialization
// stroke at start.
func (app *App) setup(timing sequencer.Timing, start time.Time) {
	app.start = start
	app.seq = sequencer.New(app.port, timing, sequencer.Handlers{
		OnPhase: app.onPhase,
	})
	app.intake = intake.New(app.seq)
	app.indicator.Initializing()
	app.seq.Start(0)
}

// now returns monotonic time since start.
func (app *App) now() time.Duration {
	return time.Since(app.start)
}

func (app *App) run(poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
		}
		app.step(app.now())
	}
}

func (app *App) runInit(poll time.Duration) {
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for app.seq.Phase() == sequencer.Initializing {
		<-ticker.C
		app.step(app.now())
	}
}

// step is one loop iteration. While initializing no request is read; queued
// events are still applied, so door events are rejected by the sequencer
// rather than held. Afterwards at most one request is served per iteration.
func (app *App) step(now time.Duration) {
	if app.seq.Phase() == sequencer.Initializing {
		app.drainEvents(now)
		app.seq.Tick(now)
		return
	}

	if app.requests != nil {
		if req, ok := app.requests.Poll(); ok {
			app.serve(req, now)
		}
	}
	app.drainEvents(now)
	app.seq.Tick(now)
}

// serve feeds a request's lines to the intake. A request cut off before its
// blank line still has its lines applied but gets no response.
func (app *App) serve(req *server.Request, now time.Duration) {
	for _, line := range req.Lines {
		app.intake.OnRequestLine(line, now)
	}
	if req.Incomplete {
		log.Printf("Client %s dropped mid-request, %d lines applied", req.Remote, len(req.Lines))
		return
	}
	app.intake.OnRequestLine("", now)

	if err := req.Respond(intake.Response); err != nil {
		log.Printf("Respond: %v", err)
	}
	log.Printf("Client %s disconnected", req.Remote)
}

func (app *App) drainEvents(now time.Duration) {
	for {
		select {
		case ev := <-app.events:
			app.handle(ev, now)
		default:
			return
		}
	}
}

func (app *App) handle(ev event, now time.Duration) {
	switch ev.kind {
	case evCommand:
		app.intake.Dispatch(ev.cmd, now)
	case evStatus:
		log.Printf("Status: phase=%s closing=%v remaining=%v requests=%d opens=%d accepted=%d",
			app.seq.Phase(), app.seq.Closing(), app.seq.Remaining(now),
			app.intake.Requests, app.intake.Opens, app.intake.Accepted)
	case evConnected:
		app.indicator.Connected()
	case evConnectionLost:
		app.indicator.ConnectionLost()
	}
}

func (app *App) onPhase(from, to sequencer.Phase) {
	switch to {
	case sequencer.Ready:
		app.indicator.Ready()
	case sequencer.ClosingRetract, sequencer.ClosingReturn:
		app.indicator.Closing()
	}

	if app.mqtt != nil {
		app.mqtt.PublishPhase(mqtt.PhaseStatus{
			Phase:   to.String(),
			From:    from.String(),
			Drive:   to.Drive().String(),
			Closing: app.seq.Closing(),
		})
	}
}

// post queues an event for the loop without blocking the caller.
func (app *App) post(ev event) {
	select {
	case app.events <- ev:
	default:
		log.Printf("Event queue full, dropping event %d", ev.kind)
	}
}

func (app *App) onMQTTCommand(name string) {
	cmd, err := intake.ParseWord(name)
	if err != nil {
		log.Printf("MQTT command: %v", err)
		return
	}
	fmt.Printf("MQTT door event: %s\n", cmd)
	app.post(event{kind: evCommand, cmd: cmd})
}

func (app *App) onPipeEvent(ev eventpipe.Event) {
	if ev.Status {
		app.post(event{kind: evStatus})
		return
	}
	app.post(event{kind: evCommand, cmd: ev.Command})
}

func (app *App) pingSender() {
	ticker := time.NewTicker(120 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-app.ctx.Done():
			return
		case <-ticker.C:
			app.mqtt.Ping()
		}
	}
}

func (app *App) shutdown() {
	if err := app.port.Release(); err != nil {
		log.Printf("Release actuator: %v", err)
	}
	app.indicator.Shutdown()
	app.indicator.Release()
}
