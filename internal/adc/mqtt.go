package adc

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// MQTTReader serves the latest raw reading published by a remote ADC node.
// Payloads are either a bare decimal ("1234") or JSON ({"raw": 1234}).
type MQTTReader struct {
	broker   string
	topic    string
	clientID string

	client paho.Client
	last   latest
}

// rawPayload is the JSON form of a remote reading.
type rawPayload struct {
	Raw *int `json:"raw"`
}

// NewMQTTReader creates a reader subscribing to topic on broker.
func NewMQTTReader(broker, topic, clientID string) *MQTTReader {
	return &MQTTReader{broker: broker, topic: topic, clientID: clientID}
}

// Configure connects to the broker and subscribes to the reading topic.
// The subscription is restored on reconnect.
func (r *MQTTReader) Configure() error {
	opts := paho.NewClientOptions().
		AddBroker(r.broker).
		SetClientID(r.clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetOnConnectHandler(func(c paho.Client) {
			token := c.Subscribe(r.topic, 0, r.handle)
			if token.WaitTimeout(5*time.Second) && token.Error() != nil {
				slog.Warn("mqtt: subscribe failed", "topic", r.topic, "err", token.Error())
			}
		}).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			slog.Warn("mqtt: connection lost", "broker", r.broker, "err", err)
		})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		// Stop the background connect retries.
		client.Disconnect(0)
		return fmt.Errorf("connect to %s: timeout", r.broker)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connect to broker: %w", err)
	}

	r.client = client
	return nil
}

func (r *MQTTReader) handle(_ paho.Client, msg paho.Message) {
	v, err := parsePayload(msg.Payload())
	if err != nil {
		slog.Debug("mqtt: skipping payload", "topic", msg.Topic(), "err", err)
		return
	}
	r.last.set(v)
}

func parsePayload(payload []byte) (int, error) {
	s := strings.TrimSpace(string(payload))
	if !strings.HasPrefix(s, "{") {
		return ParseRaw(s)
	}

	var p rawPayload
	if err := json.Unmarshal([]byte(s), &p); err != nil {
		return 0, fmt.Errorf("decode payload: %w", err)
	}
	if p.Raw == nil {
		return 0, fmt.Errorf("decode payload: missing raw field")
	}
	if *p.Raw < 0 || *p.Raw > MaxRaw {
		return 0, fmt.Errorf("%w: %d", ErrOutOfRange, *p.Raw)
	}
	return *p.Raw, nil
}

// Read returns the most recent reading received.
func (r *MQTTReader) Read() (int, error) {
	return r.last.get()
}

// Close unsubscribes and disconnects from the broker.
func (r *MQTTReader) Close() error {
	if r.client == nil {
		return nil
	}
	r.client.Unsubscribe(r.topic).WaitTimeout(time.Second)
	r.client.Disconnect(1000) // 1 second timeout
	r.client = nil
	return nil
}
