// Package mqttclient carries wearable link messages over an MQTT broker.
// Outbound endpoint paths map onto <publishPrefix><path> and inbound ones
// onto <subscribePrefix><path>, so a command and its reply on the same path
// never loop back to the sender.
package mqttclient

import (
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

const (
	DefaultPublishPrefix   = "foodback/watch"
	DefaultSubscribePrefix = "foodback/phone"
	DefaultConnectTimeout  = 5 * time.Second
)

// MQTTClientAdapter publishes and subscribes on broker topics derived from
// wearable endpoint paths.
type MQTTClientAdapter struct {
	componentMetadata types.ComponentMetadata

	configLock      sync.Mutex
	brokers         []string
	clientID        string
	username        string
	password        string
	publishPrefix   string
	subscribePrefix string
	qos             byte
	connectTimeout  time.Duration

	clientLock sync.Mutex
	client     mqtt.Client
	newClient  func(*mqtt.ClientOptions) mqtt.Client
	routes     map[string]func([]byte)

	loggersLock sync.Mutex
	loggers     []types.Logger
}

// NewMQTTClientAdapter constructs an adapter. Nothing is dialed until Connect.
func NewMQTTClientAdapter(options ...types.Option[*MQTTClientAdapter]) *MQTTClientAdapter {
	a := &MQTTClientAdapter{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "MQTT_CLIENT",
		},
		clientID:        "foodback-" + utils.GenerateUniqueHash()[:8],
		publishPrefix:   DefaultPublishPrefix,
		subscribePrefix: DefaultSubscribePrefix,
		connectTimeout:  DefaultConnectTimeout,
		newClient:       mqtt.NewClient,
		routes:          make(map[string]func([]byte)),
	}
	for _, opt := range options {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// GetComponentMetadata returns the adapter's metadata.
func (a *MQTTClientAdapter) GetComponentMetadata() types.ComponentMetadata {
	a.configLock.Lock()
	defer a.configLock.Unlock()
	return a.componentMetadata
}

// PublishTopic maps an outbound endpoint path onto its broker topic.
func (a *MQTTClientAdapter) PublishTopic(path string) string {
	a.configLock.Lock()
	defer a.configLock.Unlock()
	return a.publishPrefix + path
}

// SubscribeTopic maps an inbound endpoint path onto its broker topic.
func (a *MQTTClientAdapter) SubscribeTopic(path string) string {
	a.configLock.Lock()
	defer a.configLock.Unlock()
	return a.subscribePrefix + path
}

// NotifyLoggers emits a log entry to all configured loggers.
func (a *MQTTClientAdapter) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	a.loggersLock.Lock()
	loggers := append([]types.Logger(nil), a.loggers...)
	a.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
