package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/condition-detector-mcp/internal/config"
	"github.com/ironsheep/condition-detector-mcp/internal/detector"
)

const (
	connectTimeout = 30 * time.Second
	publishTimeout = 10 * time.Second
	disconnectWait = 250 // milliseconds
)

// ErrTimeout is returned when the broker does not acknowledge a connect or
// publish in time.
var ErrTimeout = errors.New("mqtt operation timed out")

// Publisher is the part of mqtt.Client the sink uses.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Message is the JSON payload published for each result.
type Message struct {
	Condition string    `json:"condition,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	detector.Result
}

// MQTT publishes results as JSON. Results delivered through Deliver go to
// the base topic; Publish appends the condition name as a sub-topic.
type MQTT struct {
	mu     sync.Mutex
	pub    Publisher
	client mqtt.Client
	topic  string
	qos    byte
	retain bool
	log    *logrus.Entry
	now    func() time.Time
}

// NewMQTT wraps an existing publisher.
func NewMQTT(pub Publisher, cfg config.MQTTConfig, log *logrus.Entry) *MQTT {
	return &MQTT{
		pub:    pub,
		topic:  cfg.Topic,
		qos:    byte(cfg.QoS),
		retain: cfg.Retain,
		log:    log,
		now:    time.Now,
	}
}

// DialMQTT connects to cfg.Broker and returns a sink publishing on it.
func DialMQTT(ctx context.Context, cfg config.MQTTConfig, log *logrus.Entry) (*MQTT, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(connectTimeout)
	opts.SetOnConnectHandler(func(mqtt.Client) {
		log.WithField("broker", cfg.Broker).Info("Connected to MQTT broker")
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).WithField("broker", cfg.Broker).Warn("Connection to MQTT broker lost")
	})

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if err := wait(ctx, token, connectTimeout); err != nil {
		return nil, fmt.Errorf("connection error: %w", err)
	}

	m := NewMQTT(client, cfg, log)
	m.client = client
	return m, nil
}

// Deliver publishes res on the base topic. Failures are logged.
func (m *MQTT) Deliver(res detector.Result) {
	if err := m.Publish("", res); err != nil {
		m.log.WithError(err).Warn("Failed to publish result")
	}
}

// Publish sends res on <topic>/<name>, or the base topic when name is empty.
func (m *MQTT) Publish(name string, res detector.Result) error {
	payload, err := json.Marshal(Message{Condition: name, Timestamp: m.now().UTC(), Result: res})
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}

	topic := m.topic
	if name != "" {
		topic = topic + "/" + name
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.log.WithFields(logrus.Fields{"topic": topic, "found": res.Found}).Trace("Publishing result")
	token := m.pub.Publish(topic, m.qos, m.retain, payload)
	return wait(context.Background(), token, publishTimeout)
}

// Close disconnects a sink created by DialMQTT.
func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.client.Disconnect(disconnectWait)
	}
}

func wait(ctx context.Context, token mqtt.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}
