// Package notify publishes schedule changes to an MQTT broker so other
// devices can follow edits as they happen.
package notify

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/julianstephens/weekplan/internal/config"
	"github.com/julianstephens/weekplan/internal/constants"
	"github.com/julianstephens/weekplan/internal/logger"
	"github.com/julianstephens/weekplan/internal/schedule"
)

// Client is the part of paho.Client the publisher uses.
type Client interface {
	Connect() paho.Token
	IsConnected() bool
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

var newClient = func(opts *paho.ClientOptions) Client {
	return paho.NewClient(opts)
}

var now = time.Now

// Message is the JSON payload of one event.
type Message struct {
	Schedule string    `json:"schedule"`
	Kind     string    `json:"kind"`
	SlotID   string    `json:"slot_id,omitempty"`
	Slot     string    `json:"slot,omitempty"`
	OldName  string    `json:"old_name,omitempty"`
	Day      string    `json:"day,omitempty"`
	Field    string    `json:"field,omitempty"`
	At       time.Time `json:"at"`
}

func newMessage(name string, e schedule.Event) Message {
	msg := Message{
		Schedule: name,
		Kind:     string(e.Kind),
		SlotID:   e.SlotID,
		Slot:     e.Slot,
		OldName:  e.OldName,
		At:       now().UTC(),
	}
	if e.Kind == schedule.EventCellChanged {
		msg.Day = e.Day.String()
		msg.Field = e.Field.String()
	}
	return msg
}

// Topic returns <prefix>/<schedule>/events.
func Topic(prefix, name string) string {
	return fmt.Sprintf("%s/%s/events", prefix, name)
}

// Publisher delivers events from a background goroutine so schedule edits
// never wait on the broker.
type Publisher struct {
	client   Client
	topic    string
	schedule string

	mu     sync.Mutex
	closed bool
	events chan schedule.Event
	done   chan struct{}
}

func newPublisher(client Client, topic, name string) *Publisher {
	p := &Publisher{
		client:   client,
		topic:    topic,
		schedule: name,
		events:   make(chan schedule.Event, constants.MQTTQueueSize),
		done:     make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) run() {
	defer close(p.done)
	for e := range p.events {
		if err := p.Publish(e); err != nil {
			logger.Warn("Failed to publish schedule event", "topic", p.topic, "kind", e.Kind, "error", err)
		}
	}
}

// Connect dials the broker in cfg and returns a publisher for the named
// schedule.
func Connect(cfg config.MQTTConfig, name string) (*Publisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(cfg.ClientID).
		SetConnectTimeout(constants.MQTTConnectTimeout).
		SetAutoReconnect(true)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		logger.Warn("MQTT connection lost", "broker", cfg.Broker, "error", err)
	}

	client := newClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(constants.MQTTConnectTimeout) {
		return nil, fmt.Errorf("timed out connecting to MQTT broker %s", cfg.Broker)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker %s: %w", cfg.Broker, err)
	}

	logger.Debug("Connected to MQTT broker", "broker", cfg.Broker, "client_id", cfg.ClientID)
	return newPublisher(client, Topic(cfg.TopicPrefix, name), name), nil
}

// Publish sends one event with QoS 1, not retained, and waits for the
// broker to acknowledge it.
func (p *Publisher) Publish(e schedule.Event) error {
	payload, err := json.Marshal(newMessage(p.schedule, e))
	if err != nil {
		return err
	}
	token := p.client.Publish(p.topic, 1, false, payload)
	if !token.WaitTimeout(constants.MQTTPublishTimeout) {
		return fmt.Errorf("timed out publishing to %s", p.topic)
	}
	return token.Error()
}

// Listener queues every event for delivery and returns at once. Events
// arriving while the queue is full, or after Close, are dropped.
func (p *Publisher) Listener() schedule.Listener {
	return func(e schedule.Event) {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return
		}
		select {
		case p.events <- e:
		default:
			logger.Warn("MQTT queue full, dropping schedule event", "topic", p.topic, "kind", e.Kind)
		}
	}
}

// Close stops accepting events, gives queued ones a bounded time to be
// delivered and disconnects.
func (p *Publisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
	case <-time.After(constants.MQTTDrainTimeout):
		logger.Warn("Timed out delivering queued MQTT events", "topic", p.topic)
	}
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
}
