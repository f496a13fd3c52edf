package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v2"

	"doorcloser/actuator"
	"doorcloser/button"
	"doorcloser/eventpipe"
	"doorcloser/indicator"
	"doorcloser/mqtt"
	"doorcloser/sequencer"
	"doorcloser/server"
)

// DefaultPoll is the main loop evaluation interval.
const DefaultPoll = 10 * time.Millisecond

// Config is the main configuration structure for the door closer.
type Config struct {
	// H-bridge output lines
	Actuator actuator.Config `yaml:"actuator"`

	// Stroke durations
	Timing TimingConfig `yaml:"timing"`

	// Request listener
	HTTP server.Config `yaml:"http"`

	// MQTT connection settings
	MQTT mqtt.Config `yaml:"mqtt"`

	// Indicator configuration
	Indicator indicator.Config `yaml:"indicator"`

	// Local command pipe
	EventPipe eventpipe.Config `yaml:"event_pipe"`

	// Manual open button
	Button button.Config `yaml:"button"`

	ClientID string `yaml:"client_id"`
}

// TimingConfig holds stroke durations in milliseconds. Zero selects the
// calibrated default.
type TimingConfig struct {
	InitMS    int `yaml:"init_ms"`
	RetractMS int `yaml:"retract_ms"`
	ReturnMS  int `yaml:"return_ms"`
	PollMS    int `yaml:"poll_ms"`
}

// Sequencer returns the stroke durations with defaults applied.
func (t TimingConfig) Sequencer() sequencer.Timing {
	timing := sequencer.DefaultTiming()
	if t.InitMS > 0 {
		timing.Init = time.Duration(t.InitMS) * time.Millisecond
	}
	if t.RetractMS > 0 {
		timing.Retract = time.Duration(t.RetractMS) * time.Millisecond
	}
	if t.ReturnMS > 0 {
		timing.Return = time.Duration(t.ReturnMS) * time.Millisecond
	}
	return timing
}

// Poll returns the loop interval with the default applied.
func (t TimingConfig) Poll() time.Duration {
	if t.PollMS > 0 {
		return time.Duration(t.PollMS) * time.Millisecond
	}
	return DefaultPoll
}

// LoadConfig reads and validates the YAML config file at path.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if cfg.ClientID == "" {
		return nil, errors.New("client_id missing in config file")
	}
	if cfg.Timing.InitMS < 0 || cfg.Timing.RetractMS < 0 || cfg.Timing.ReturnMS < 0 || cfg.Timing.PollMS < 0 {
		return nil, errors.New("timing values must not be negative")
	}
	return &cfg, nil
}
