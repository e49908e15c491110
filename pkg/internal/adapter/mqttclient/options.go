package mqttclient

import (
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// WithBroker adds a broker URL such as tcp://localhost:1883.
func WithBroker(urls ...string) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		for _, u := range urls {
			if u = strings.TrimSpace(u); u != "" {
				a.brokers = append(a.brokers, u)
			}
		}
	}
}

// WithClientID sets the MQTT client id.
func WithClientID(id string) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		if id != "" {
			a.clientID = id
		}
	}
}

// WithCredentials sets username/password authentication.
func WithCredentials(username, password string) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		a.username = username
		a.password = password
	}
}

// WithTopicPrefixes sets the prefixes for outbound and inbound topics.
// A simulated watch uses the phone's prefixes swapped.
func WithTopicPrefixes(publish, subscribe string) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		a.publishPrefix = strings.TrimSuffix(publish, "/")
		a.subscribePrefix = strings.TrimSuffix(subscribe, "/")
	}
}

// WithQoS sets the QoS used for publish and subscribe.
func WithQoS(qos byte) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		if qos <= 2 {
			a.qos = qos
		}
	}
}

// WithConnectTimeout bounds the initial broker handshake.
func WithConnectTimeout(d time.Duration) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		if d > 0 {
			a.connectTimeout = d
		}
	}
}

// WithClientFactory replaces mqtt.NewClient.
func WithClientFactory(factory func(*mqtt.ClientOptions) mqtt.Client) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		if factory != nil {
			a.newClient = factory
		}
	}
}

// WithLogger attaches loggers.
func WithLogger(loggers ...types.Logger) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		a.loggersLock.Lock()
		a.loggers = append(a.loggers, loggers...)
		a.loggersLock.Unlock()
	}
}

// WithComponentMetadata sets the adapter's name and id.
func WithComponentMetadata(name, id string) types.Option[*MQTTClientAdapter] {
	return func(a *MQTTClientAdapter) {
		a.componentMetadata.Name = name
		if id != "" {
			a.componentMetadata.ID = id
		}
	}
}
