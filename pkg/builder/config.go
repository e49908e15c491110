package builder

import (
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/adapter/kafkaclient"
	"github.com/joeydtaylor/foodback/pkg/internal/adapter/mqttclient"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/health"
	"github.com/joeydtaylor/foodback/pkg/internal/protocol"
	"github.com/joeydtaylor/foodback/pkg/internal/resample"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// Config is everything Build needs. LoadConfig fills it from FOODBACK_* variables.
type Config struct {
	Flow        Flow
	DataDir     string
	CollectData bool
	Exports     []string

	Preparation time.Duration
	Recording   time.Duration
	SettleDelay time.Duration
	EEGHz       int
	TargetHz    int
	AlignWindow time.Duration
	MaxRating   int

	HealthInterval time.Duration
	ReportInterval time.Duration
	LogLevel       string

	EEGURL    string
	EEGFormat string

	MQTTBrokers  []string
	MQTTPrefix   string
	MQTTUsername string
	MQTTPassword string

	KafkaBrokers []string
	KafkaTopic   string

	S3Bucket      string
	S3Endpoint    string
	S3Region      string
	S3AccessKey   string
	S3SecretKey   string
	S3RoleARN     string
	S3Compression string

	ModelURL    string
	ControlAddr string
}

// DefaultConfig returns the protocol defaults for flow with no optional sinks.
func DefaultConfig(flow Flow) Config {
	p := protocol.DefaultConfig(flow)
	return Config{
		Flow:           flow,
		DataDir:        "data",
		CollectData:    true,
		Preparation:    p.Preparation,
		Recording:      p.Recording,
		SettleDelay:    p.SettleDelay,
		EEGHz:          p.EEGHz,
		TargetHz:       p.Align.TargetHz,
		AlignWindow:    p.Align.Duration,
		MaxRating:      p.MaxRating,
		HealthInterval: health.DefaultInterval,
		ReportInterval: time.Minute,
		LogLevel:       "info",
		EEGURL:         "ws://127.0.0.1:8765/eeg",
		EEGFormat:      "json",
		MQTTPrefix:     "foodback",
		KafkaTopic:     kafkaclient.DefaultTopic,
		S3Region:       "us-east-1",
		S3Compression:  string(codec.CompressGzip),
	}
}

// LoadConfig reads the FOODBACK_* environment on top of DefaultConfig.
func LoadConfig() Config {
	flow := types.ParseFlow(EnvOr("FOODBACK_FLOW", "collection"))
	d := DefaultConfig(flow)
	return Config{
		Flow:        flow,
		DataDir:     EnvOr("FOODBACK_DATA_DIR", d.DataDir),
		CollectData: EnvBoolOr("FOODBACK_COLLECT_DATA", d.CollectData),
		Exports:     EnvListOr("FOODBACK_EXPORTS", d.Exports),

		Preparation: EnvDurationOr("FOODBACK_PREPARATION", d.Preparation),
		Recording:   EnvDurationOr("FOODBACK_RECORDING", d.Recording),
		SettleDelay: EnvDurationOr("FOODBACK_SETTLE_DELAY", d.SettleDelay),
		EEGHz:       EnvIntOr("FOODBACK_EEG_HZ", d.EEGHz),
		TargetHz:    EnvIntOr("FOODBACK_TARGET_HZ", d.TargetHz),
		AlignWindow: EnvDurationOr("FOODBACK_ALIGN_WINDOW", d.AlignWindow),
		MaxRating:   EnvIntOr("FOODBACK_MAX_RATING", d.MaxRating),

		HealthInterval: EnvDurationOr("FOODBACK_HEALTH_INTERVAL", d.HealthInterval),
		ReportInterval: EnvDurationOr("FOODBACK_REPORT_INTERVAL", d.ReportInterval),
		LogLevel:       EnvOr("FOODBACK_LOG_LEVEL", d.LogLevel),

		EEGURL:    EnvOr("FOODBACK_EEG_URL", d.EEGURL),
		EEGFormat: EnvOr("FOODBACK_EEG_FORMAT", d.EEGFormat),

		MQTTBrokers:  EnvListOr("FOODBACK_MQTT_BROKER", d.MQTTBrokers),
		MQTTPrefix:   EnvOr("FOODBACK_MQTT_PREFIX", d.MQTTPrefix),
		MQTTUsername: EnvOr("FOODBACK_MQTT_USERNAME", ""),
		MQTTPassword: EnvOr("FOODBACK_MQTT_PASSWORD", ""),

		KafkaBrokers: EnvListOr("FOODBACK_KAFKA_BROKERS", d.KafkaBrokers),
		KafkaTopic:   EnvOr("FOODBACK_KAFKA_TOPIC", d.KafkaTopic),

		S3Bucket:      EnvOr("FOODBACK_S3_BUCKET", ""),
		S3Endpoint:    EnvOr("FOODBACK_S3_ENDPOINT", ""),
		S3Region:      EnvOr("FOODBACK_S3_REGION", d.S3Region),
		S3AccessKey:   EnvOr("FOODBACK_S3_ACCESS_KEY", ""),
		S3SecretKey:   EnvOr("FOODBACK_S3_SECRET_KEY", ""),
		S3RoleARN:     EnvOr("FOODBACK_S3_ROLE_ARN", ""),
		S3Compression: EnvOr("FOODBACK_S3_COMPRESSION", d.S3Compression),

		ModelURL:    EnvOr("FOODBACK_MODEL_URL", ""),
		ControlAddr: EnvOr("FOODBACK_CONTROL_ADDR", ""),
	}
}

// protocolConfig maps c onto the state machine's settings.
func (c Config) protocolConfig() protocol.Config {
	return protocol.Config{
		Flow:        c.Flow,
		Preparation: c.Preparation,
		Recording:   c.Recording,
		SettleDelay: c.SettleDelay,
		EEGHz:       c.EEGHz,
		Align:       resample.Config{TargetHz: c.TargetHz, Duration: c.AlignWindow},
		MaxRating:   c.MaxRating,
	}
}

// mqttTopics derives the phone-side topic prefixes from the shared root.
func (c Config) mqttTopics() (publish, subscribe string) {
	root := c.MQTTPrefix
	if root == "" {
		return mqttclient.DefaultPublishPrefix, mqttclient.DefaultSubscribePrefix
	}
	return root + "/watch", root + "/phone"
}
