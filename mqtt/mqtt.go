// Package mqtt links the door closer to a broker: door events arrive on
// control topics and phase changes leave on status topics.
package mqtt

import (
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// Config holds MQTT connection settings.
type Config struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	CACert     string `yaml:"ca_cert"`
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
}

// Handlers holds callback functions for MQTT events.
// Callbacks run on the paho client's goroutines.
type Handlers struct {
	OnConnect    func()
	OnDisconnect func()
	OnCommand    func(event string) // last element of a control topic: "open", "closed"
}

// Topics for one node.
type Topics struct {
	Control string // subscription filter for door events
	Phase   string
	Ping    string
	Online  string
}

// NodeTopics returns the topics used by node clientID.
func NodeTopics(clientID string) Topics {
	return Topics{
		Control: fmt.Sprintf("closer/control/node/%s/+", clientID),
		Phase:   fmt.Sprintf("closer/status/node/%s/phase", clientID),
		Ping:    fmt.Sprintf("closer/status/node/%s/ping", clientID),
		Online:  fmt.Sprintf("closer/status/node/%s/online", clientID),
	}
}

// CommandFromTopic returns the event name carried by a control topic.
func CommandFromTopic(topic string) (string, bool) {
	if !strings.HasPrefix(topic, "closer/control/node/") {
		return "", false
	}
	i := strings.LastIndexByte(topic, '/')
	return topic[i+1:], true
}

// PhaseStatus is the payload published on every phase transition.
type PhaseStatus struct {
	Phase   string `json:"phase"`
	From    string `json:"from"`
	Drive   string `json:"drive"`
	Closing bool   `json:"closing"`
}

// Client wraps the paho client. A Client with no host configured is a no-op.
type Client struct {
	client   paho.Client
	topics   Topics
	enabled  bool
	handlers Handlers
}

// New creates a new MQTT client. Returns a disabled no-op client if host is empty.
func New(cfg Config, clientID string, handlers Handlers) (*Client, error) {
	c := &Client{
		topics:   NodeTopics(clientID),
		handlers: handlers,
	}

	if cfg.Host == "" {
		log.Println("MQTT disabled (no host configured)")
		return c, nil
	}
	c.enabled = true

	var broker string
	var tlsConfig *tls.Config

	if cfg.CACert != "" || cfg.ClientCert != "" {
		if cfg.Port == 0 {
			cfg.Port = 8883
		}
		broker = fmt.Sprintf("ssl://%s:%d", cfg.Host, cfg.Port)

		var err error
		tlsConfig, err = buildTLSConfig(cfg)
		if err != nil {
			return nil, fmt.Errorf("build TLS config: %w", err)
		}
	} else {
		if cfg.Port == 0 {
			cfg.Port = 1883
		}
		broker = fmt.Sprintf("tcp://%s:%d", cfg.Host, cfg.Port)
		log.Println("MQTT using non-TLS connection")
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetKeepAlive(60*time.Second).
		SetWill(c.topics.Online, `{"online":false}`, 0, true).
		SetConnectionLostHandler(c.handleConnectionLost).
		SetOnConnectHandler(c.handleConnect).
		SetDefaultPublishHandler(c.handleMessage)

	if tlsConfig != nil {
		opts.SetTLSConfig(tlsConfig)
	}

	c.client = paho.NewClient(opts)

	paho.ERROR = log.New(os.Stdout, "[MQTT ERROR] ", 0)
	paho.CRITICAL = log.New(os.Stdout, "[MQTT CRIT] ", 0)
	paho.WARN = log.New(os.Stdout, "[MQTT WARN] ", 0)

	return c, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	tlsConfig := &tls.Config{}

	if cfg.CACert != "" {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}
		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("no certificates in %s", cfg.CACert)
		}
		tlsConfig.RootCAs = caPool
	}

	if cfg.ClientCert != "" && cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	return tlsConfig, nil
}

// Connect connects to the broker. If disabled, calls OnConnect immediately.
func (c *Client) Connect() error {
	if !c.enabled {
		if c.handlers.OnConnect != nil {
			c.handlers.OnConnect()
		}
		return nil
	}

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("connect: %w", token.Error())
	}
	log.Println("MQTT connected")
	return nil
}

// Disconnect publishes the offline marker and disconnects. No-op if disabled.
func (c *Client) Disconnect() {
	if !c.enabled || c.client == nil {
		return
	}
	c.client.Publish(c.topics.Online, 0, true, `{"online":false}`).WaitTimeout(time.Second)
	c.client.Disconnect(250)
}

// PublishPhase publishes a phase transition. No-op if disabled.
func (c *Client) PublishPhase(st PhaseStatus) {
	b, err := json.Marshal(st)
	if err != nil {
		log.Printf("Encode phase status: %v", err)
		return
	}
	c.publish(c.topics.Phase, true, b)
}

// Ping publishes a liveness message. No-op if disabled.
func (c *Client) Ping() {
	c.publish(c.topics.Ping, false, []byte(`{"status":"ok"}`))
}

// IsEnabled returns whether MQTT is enabled.
func (c *Client) IsEnabled() bool {
	return c.enabled
}

func (c *Client) publish(topic string, retained bool, payload []byte) {
	if !c.enabled {
		return
	}
	c.client.Publish(topic, 0, retained, payload)
}

func (c *Client) handleConnect(client paho.Client) {
	log.Println("MQTT connection established")
	if token := client.Subscribe(c.topics.Control, 0, nil); token.Wait() && token.Error() != nil {
		log.Printf("Subscribe %s: %v", c.topics.Control, token.Error())
	}
	client.Publish(c.topics.Online, 0, true, `{"online":true}`)
	if c.handlers.OnConnect != nil {
		c.handlers.OnConnect()
	}
}

func (c *Client) handleConnectionLost(client paho.Client, err error) {
	log.Printf("MQTT connection lost: %v", err)
	if c.handlers.OnDisconnect != nil {
		c.handlers.OnDisconnect()
	}
}

func (c *Client) handleMessage(client paho.Client, msg paho.Message) {
	event, ok := CommandFromTopic(msg.Topic())
	if !ok {
		return
	}
	if c.handlers.OnCommand != nil {
		c.handlers.OnCommand(event)
	}
}
