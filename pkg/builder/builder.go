package builder

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/joeydtaylor/foodback/pkg/internal/adapter/httpclient"
	"github.com/joeydtaylor/foodback/pkg/internal/adapter/httpserver"
	"github.com/joeydtaylor/foodback/pkg/internal/adapter/kafkaclient"
	"github.com/joeydtaylor/foodback/pkg/internal/adapter/mqttclient"
	"github.com/joeydtaylor/foodback/pkg/internal/adapter/s3client"
	"github.com/joeydtaylor/foodback/pkg/internal/adapter/websocketclient"
	"github.com/joeydtaylor/foodback/pkg/internal/circuitbreaker"
	"github.com/joeydtaylor/foodback/pkg/internal/classifier"
	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/headset"
	"github.com/joeydtaylor/foodback/pkg/internal/health"
	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/persistence"
	"github.com/joeydtaylor/foodback/pkg/internal/protocol"
	"github.com/joeydtaylor/foodback/pkg/internal/session"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/wearable"
)

// Pipeline is a built and opened acquisition setup.
type Pipeline struct {
	session *session.Session
	machine *protocol.Machine
	store   *persistence.Store
	meter   *meter.Meter
	control *httpserver.ControlServer
	logger  types.Logger
}

type buildOptions struct {
	logger     types.Logger
	transport  wearable.Transport
	classifier classifier.Classifier
}

// BuildOption customises Build beyond Config.
type BuildOption func(*buildOptions)

// BuildWithLogger uses l instead of a logger built from Config.LogLevel.
func BuildWithLogger(l types.Logger) BuildOption {
	return func(o *buildOptions) { o.logger = l }
}

// BuildWithWearableTransport replaces the MQTT transport, e.g. with a loopback end.
func BuildWithWearableTransport(t WearableTransport) BuildOption {
	return func(o *buildOptions) { o.transport = t }
}

// BuildWithClassifier scores inference windows with c.
func BuildWithClassifier(c Classifier) BuildOption {
	return func(o *buildOptions) { o.classifier = c }
}

// Build wires every component described by cfg and opens the session. The
// returned Pipeline owns them all; Close releases them.
func Build(ctx context.Context, cfg Config, options ...BuildOption) (*Pipeline, error) {
	var o buildOptions
	for _, opt := range options {
		if opt != nil {
			opt(&o)
		}
	}
	if o.logger == nil {
		o.logger = NewLogger(LoggerWithLevel(cfg.LogLevel))
	}
	log := o.logger

	var (
		link    *wearable.Link
		closers []io.Closer
	)
	fail := func(err error) (*Pipeline, error) {
		if link != nil {
			_ = link.Close()
		}
		for _, c := range closers {
			_ = c.Close()
		}
		return nil, err
	}

	m := meter.NewMeter(meter.WithLogger(log))

	frames, err := codec.FrameCodecFor(cfg.EEGFormat)
	if err != nil {
		return nil, types.NewError(types.KindValidation, "Build", err)
	}
	source := websocketclient.NewWebSocketClientAdapter(
		websocketclient.WithURL(cfg.EEGURL),
		websocketclient.WithLogger(log),
	)
	eeg := headset.NewHeadset(source, frames, headset.WithLogger(log), headset.WithMeter(m))

	transport := o.transport
	var broker *mqttclient.MQTTClientAdapter
	if transport == nil {
		if len(cfg.MQTTBrokers) == 0 {
			return nil, types.NewError(types.KindValidation, "Build", fmt.Errorf("no wearable transport: set FOODBACK_MQTT_BROKER"))
		}
		pub, sub := cfg.mqttTopics()
		broker = mqttclient.NewMQTTClientAdapter(
			mqttclient.WithBroker(cfg.MQTTBrokers...),
			mqttclient.WithCredentials(cfg.MQTTUsername, cfg.MQTTPassword),
			mqttclient.WithTopicPrefixes(pub, sub),
			mqttclient.WithLogger(log),
		)
		transport = broker
	}
	breaker := circuitbreaker.NewCircuitBreaker(wearable.DefaultBreakerErrors, wearable.DefaultBreakerWindow,
		circuitbreaker.WithLogger(log))
	link, err = wearable.NewLink(transport,
		wearable.WithLogger(log),
		wearable.WithMeter(m),
		wearable.WithCircuitBreaker(breaker),
	)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	if broker != nil {
		if err := broker.Connect(ctx); err != nil {
			return fail(types.NewError(types.KindTransport, "Build", err))
		}
	}

	monitor := health.NewMonitor(link,
		health.WithInterval(cfg.HealthInterval),
		health.WithLogger(log),
		health.WithMeter(m),
	)

	machineOpts := []types.Option[*protocol.Machine]{
		protocol.WithLogger(log),
		protocol.WithHeadset(eeg),
		protocol.WithWearable(link),
		protocol.WithConnectivity(monitor),
		protocol.WithMeter(m),
	}

	var store *persistence.Store
	if cfg.Flow == types.FlowCollection && cfg.CollectData {
		exporters, err := buildExporters(ctx, cfg, log)
		if err != nil {
			return fail(err)
		}
		store = persistence.NewStore(cfg.DataDir,
			persistence.WithLogger(log),
			persistence.WithMeter(m),
			persistence.WithExporter(exporters...),
		)
		machineOpts = append(machineOpts, protocol.WithPersister(store))
	}

	if c := buildClassifier(cfg, o.classifier, log); c != nil {
		machineOpts = append(machineOpts, protocol.WithClassifier(c))
		closers = append(closers, c)
	}

	if len(cfg.KafkaBrokers) > 0 {
		pub := kafkaclient.NewPublisher(
			kafkaclient.WithBrokers(cfg.KafkaBrokers...),
			kafkaclient.WithTopic(cfg.KafkaTopic),
			kafkaclient.WithLogger(log),
		)
		machineOpts = append(machineOpts, protocol.WithPublisher(pub))
		closers = append(closers, pub)
	}

	machine := protocol.NewMachine(ctx, cfg.protocolConfig(), machineOpts...)

	sess, err := session.Open(ctx, session.Parts{
		EEG:            eeg,
		Wearable:       link,
		Health:         monitor,
		Machine:        machine,
		Meter:          m,
		ReportInterval: cfg.ReportInterval,
		Closers:        closers,
	}, session.WithLogger(log))
	if err != nil {
		// Open has already released every part.
		return nil, err
	}

	p := &Pipeline{session: sess, machine: machine, store: store, meter: m, logger: log}
	if cfg.ControlAddr != "" {
		p.control = httpserver.NewControlServer(machine,
			httpserver.WithAddress(cfg.ControlAddr),
			httpserver.WithLogger(log),
		)
	}
	return p, nil
}

func buildExporters(ctx context.Context, cfg Config, log types.Logger) ([]persistence.Exporter, error) {
	var out []persistence.Exporter
	exportDir := filepath.Join(cfg.DataDir, "exports")
	for _, name := range cfg.Exports {
		switch strings.ToLower(name) {
		case "parquet":
			out = append(out, persistence.NewParquetExporter(exportDir, "zstd"))
		case "edf":
			out = append(out, persistence.NewEDFExporter(exportDir))
		default:
			return nil, types.NewError(types.KindValidation, "Build", fmt.Errorf("unknown exporter %q", name))
		}
	}
	if cfg.S3Bucket == "" {
		return out, nil
	}
	cli, err := newS3Client(ctx, cfg)
	if err != nil {
		return nil, types.NewError(types.KindTransport, "Build", err)
	}
	out = append(out, s3client.NewArchiver(cli, cfg.S3Bucket,
		s3client.WithSource(cfg.DataDir, persistence.EEGFile, persistence.HeartRateFile, persistence.EDAFile),
		s3client.WithCompression(cfg.S3Compression),
		s3client.WithLogger(log),
	))
	return out, nil
}

// buildClassifier returns the explicit classifier, a remote model client when
// a URL is configured, or nil for the machine's spectral baseline.
func buildClassifier(cfg Config, explicit classifier.Classifier, log types.Logger) classifier.Classifier {
	var next classifier.Classifier
	switch {
	case explicit != nil:
		next = explicit
	case cfg.ModelURL != "":
		next = httpclient.NewModelClient(cfg.ModelURL, httpclient.WithLogger(log))
	default:
		return nil
	}
	guard := classifier.NewShapeGuard(next)
	guard.AuxSamples = cfg.protocolConfig().Align.Samples()
	return guard
}

// Machine returns the protocol state machine.
func (p *Pipeline) Machine() *protocol.Machine { return p.machine }

// Store returns the CSV store, or nil when the flow does not persist.
func (p *Pipeline) Store() *persistence.Store { return p.store }

// Meter returns the pipeline's counters.
func (p *Pipeline) Meter() *meter.Meter { return p.meter }

// Logger returns the logger every component reports to.
func (p *Pipeline) Logger() types.Logger { return p.logger }

// ServeControl runs the control API until ctx ends. It returns immediately
// when no control address is configured.
func (p *Pipeline) ServeControl(ctx context.Context) error {
	if p.control == nil {
		return nil
	}
	return p.control.Serve(ctx)
}

// Close releases every component. Safe to call more than once.
func (p *Pipeline) Close() error {
	err := p.session.Close()
	_ = p.logger.Flush()
	return err
}
