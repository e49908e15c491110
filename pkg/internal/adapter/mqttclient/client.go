package mqttclient

import (
	"context"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// ErrNotConnected is returned when an operation needs a live broker session.
var ErrNotConnected = errors.New("mqtt: not connected")

func (a *MQTTClientAdapter) clientOptions() (*mqtt.ClientOptions, error) {
	a.configLock.Lock()
	defer a.configLock.Unlock()

	if len(a.brokers) == 0 {
		return nil, errors.New("mqtt: no broker configured")
	}
	opts := mqtt.NewClientOptions()
	for _, b := range a.brokers {
		opts.AddBroker(b)
	}
	opts.SetClientID(a.clientID)
	if a.username != "" {
		opts.SetUsername(a.username)
		opts.SetPassword(a.password)
	}
	opts.SetConnectTimeout(a.connectTimeout)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(a.onConnect)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		a.NotifyLoggers(types.WarnLevel, "MQTT connection lost",
			"component", a.GetComponentMetadata(), "event", "ConnectionLost", "error", err)
	})
	return opts, nil
}

// Connect dials the broker. Calling it on a connected adapter is a no-op.
func (a *MQTTClientAdapter) Connect(ctx context.Context) error {
	a.clientLock.Lock()
	if a.client != nil && a.client.IsConnected() {
		a.clientLock.Unlock()
		return nil
	}
	opts, err := a.clientOptions()
	if err != nil {
		a.clientLock.Unlock()
		return err
	}
	client := a.newClient(opts)
	a.client = client
	a.clientLock.Unlock()

	if err := waitToken(ctx, client.Connect()); err != nil {
		a.NotifyLoggers(types.ErrorLevel, "MQTT connect failed",
			"component", a.GetComponentMetadata(), "event", "Connect", "result", "FAILURE", "error", err)
		return fmt.Errorf("mqtt connect: %w", err)
	}
	a.NotifyLoggers(types.InfoLevel, "MQTT connected",
		"component", a.GetComponentMetadata(), "event", "Connect", "result", "SUCCESS")
	return nil
}

// onConnect restores subscriptions after the initial connect and every reconnect.
func (a *MQTTClientAdapter) onConnect(client mqtt.Client) {
	a.clientLock.Lock()
	routes := make(map[string]func([]byte), len(a.routes))
	for topic, h := range a.routes {
		routes[topic] = h
	}
	a.clientLock.Unlock()

	a.configLock.Lock()
	qos := a.qos
	a.configLock.Unlock()

	for topic, h := range routes {
		tok := client.Subscribe(topic, qos, messageHandler(h))
		if tok.Wait() && tok.Error() != nil {
			a.NotifyLoggers(types.ErrorLevel, "MQTT resubscribe failed",
				"component", a.GetComponentMetadata(), "event", "Subscribe", "topic", topic, "error", tok.Error())
		}
	}
}

func (a *MQTTClientAdapter) connected() (mqtt.Client, error) {
	a.clientLock.Lock()
	defer a.clientLock.Unlock()
	if a.client == nil || !a.client.IsConnected() {
		return nil, ErrNotConnected
	}
	return a.client, nil
}

// Publish sends payload to the topic for path and waits for the broker to accept it.
func (a *MQTTClientAdapter) Publish(ctx context.Context, path string, payload []byte) error {
	client, err := a.connected()
	if err != nil {
		return err
	}
	a.configLock.Lock()
	qos := a.qos
	a.configLock.Unlock()

	topic := a.PublishTopic(path)
	if err := waitToken(ctx, client.Publish(topic, qos, false, payload)); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	a.NotifyLoggers(types.DebugLevel, "MQTT published",
		"component", a.GetComponentMetadata(), "event", "Publish", "topic", topic, "bytes", len(payload))
	return nil
}

// Subscribe registers handler for path. The route survives reconnects and
// may be registered before Connect.
func (a *MQTTClientAdapter) Subscribe(path string, handler func(payload []byte)) error {
	if handler == nil {
		return errors.New("mqtt: nil handler")
	}
	topic := a.SubscribeTopic(path)

	a.clientLock.Lock()
	a.routes[topic] = handler
	client := a.client
	a.clientLock.Unlock()

	if client == nil || !client.IsConnected() {
		return nil
	}
	a.configLock.Lock()
	qos := a.qos
	a.configLock.Unlock()

	tok := client.Subscribe(topic, qos, messageHandler(handler))
	if tok.Wait() && tok.Error() != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", topic, tok.Error())
	}
	return nil
}

// Reachable reports one node while the broker session is up.
func (a *MQTTClientAdapter) Reachable(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if _, err := a.connected(); err != nil {
		return 0, nil
	}
	return 1, nil
}

// Close disconnects from the broker. Safe to call more than once.
func (a *MQTTClientAdapter) Close() error {
	a.clientLock.Lock()
	client := a.client
	a.client = nil
	a.clientLock.Unlock()

	if client != nil {
		client.Disconnect(250)
		a.NotifyLoggers(types.InfoLevel, "MQTT disconnected",
			"component", a.GetComponentMetadata(), "event", "Close")
	}
	return nil
}

func messageHandler(h func([]byte)) mqtt.MessageHandler {
	return func(_ mqtt.Client, msg mqtt.Message) {
		h(msg.Payload())
	}
}

func waitToken(ctx context.Context, tok mqtt.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
