package internallogger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/logschema"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LoggerOption mutates the settings used to build a ZapLoggerAdapter.
type LoggerOption func(*settings)

type settings struct {
	level       zapcore.Level
	development bool
	callerSkip  int
	fields      map[string]interface{}
	output      zapcore.WriteSyncer
}

// ZapLoggerAdapter implements types.Logger on top of zap. The base core writes
// JSON to stdout; extra sinks are tee'd next to it.
type ZapLoggerAdapter struct {
	mu          sync.Mutex
	logger      *zap.Logger
	atomicLevel zap.AtomicLevel
	encConfig   zapcore.EncoderConfig
	baseCore    zapcore.Core
	baseFields  []zap.Field
	callerDepth int
	callerOn    bool
	sinks       map[string]sinkEntry
}

// sinkEntry is an extra output tee'd next to the base core, such as a
// per-session log file.
type sinkEntry struct {
	core  zapcore.Core
	close func()
}

// NewLogger initializes a new ZapLoggerAdapter with configurable options.
func NewLogger(options ...LoggerOption) *ZapLoggerAdapter {
	s := &settings{
		level:      zapcore.InfoLevel,
		callerSkip: 2,
		fields: map[string]interface{}{
			logschema.FieldSchema: logschema.SchemaID,
		},
		output: zapcore.Lock(os.Stdout),
	}
	for _, option := range options {
		option(s)
	}

	atomicLevel := zap.NewAtomicLevelAt(s.level)
	enc := encoderConfig(s.development)

	z := &ZapLoggerAdapter{
		atomicLevel: atomicLevel,
		encConfig:   enc,
		baseCore:    zapcore.NewCore(zapcore.NewJSONEncoder(enc), s.output, atomicLevel),
		baseFields:  fieldsFromMap(s.fields),
		callerDepth: s.callerSkip,
		callerOn:    true,
		sinks:       make(map[string]sinkEntry),
	}
	z.mu.Lock()
	z.rebuildLoggerLocked()
	z.mu.Unlock()
	return z
}

func (z *ZapLoggerAdapter) rebuildLoggerLocked() {
	cores := make([]zapcore.Core, 0, 1+len(z.sinks))
	cores = append(cores, z.baseCore)
	for _, entry := range z.sinks {
		cores = append(cores, entry.core)
	}
	opts := []zap.Option{zap.AddCallerSkip(z.callerDepth)}
	if z.callerOn {
		opts = append(opts, zap.AddCaller())
	}
	logger := zap.New(zapcore.NewTee(cores...), opts...)
	if len(z.baseFields) > 0 {
		logger = logger.With(z.baseFields...)
	}
	z.logger = logger
}

func fieldsFromMap(fields map[string]interface{}) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		if key == "" {
			continue
		}
		out = append(out, zap.Any(key, value))
	}
	return out
}

// encoderConfig lays out every line with the logschema field names and UTC
// RFC3339Nano timestamps so session logs from different machines sort.
func encoderConfig(development bool) zapcore.EncoderConfig {
	levelEnc := zapcore.LowercaseLevelEncoder
	if development {
		levelEnc = zapcore.CapitalLevelEncoder
	}
	return zapcore.EncoderConfig{
		TimeKey:       logschema.FieldTimestamp,
		LevelKey:      logschema.FieldLevel,
		NameKey:       logschema.FieldLogger,
		CallerKey:     logschema.FieldCaller,
		MessageKey:    logschema.FieldMessage,
		StacktraceKey: logschema.FieldStack,
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   levelEnc,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.UTC().Format(time.RFC3339Nano))
		},
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

var levelPairs = [...]struct {
	level types.LogLevel
	zap   zapcore.Level
}{
	{types.DebugLevel, zapcore.DebugLevel},
	{types.InfoLevel, zapcore.InfoLevel},
	{types.WarnLevel, zapcore.WarnLevel},
	{types.ErrorLevel, zapcore.ErrorLevel},
	{types.DPanicLevel, zapcore.DPanicLevel},
	{types.PanicLevel, zapcore.PanicLevel},
	{types.FatalLevel, zapcore.FatalLevel},
}

// ConvertLevel maps a pipeline log level to zap. Unknown levels become info.
func ConvertLevel(level types.LogLevel) zapcore.Level {
	for _, p := range levelPairs {
		if p.level == level {
			return p.zap
		}
	}
	return zapcore.InfoLevel
}

func convertZapLevel(level zapcore.Level) types.LogLevel {
	for _, p := range levelPairs {
		if p.zap == level {
			return p.level
		}
	}
	return types.InfoLevel
}

// parseLogLevel reads LOG_LEVEL style names; "warning" is accepted for warn.
func parseLogLevel(name string) types.LogLevel {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "warning" {
		name = "warn"
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(name)); err != nil {
		return types.InfoLevel
	}
	return convertZapLevel(lvl)
}

// AddSink tees an extra output next to stdout. File sinks take a "path"
// entry and create its directory; a sink with the same identifier is replaced.
func (z *ZapLoggerAdapter) AddSink(identifier string, config types.SinkConfig) error {
	ws, closeFn, err := openSink(config)
	if err != nil {
		return err
	}

	z.mu.Lock()
	defer z.mu.Unlock()
	if old, ok := z.sinks[identifier]; ok && old.close != nil {
		old.close()
	}
	z.sinks[identifier] = sinkEntry{
		core:  zapcore.NewCore(zapcore.NewJSONEncoder(z.encConfig), ws, z.atomicLevel),
		close: closeFn,
	}
	z.rebuildLoggerLocked()
	return nil
}

func openSink(config types.SinkConfig) (zapcore.WriteSyncer, func(), error) {
	switch types.SinkType(config.Type) {
	case types.StdoutSink:
		return zapcore.Lock(os.Stdout), nil, nil
	case types.FileSink:
		path, _ := config.Config["path"].(string)
		if path == "" {
			return nil, nil, fmt.Errorf("file sink: missing path")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("file sink %s: %w", path, err)
		}
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("file sink %s: %w", path, err)
		}
		return zapcore.AddSync(f), func() { _ = f.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unsupported sink type: %s", config.Type)
}

// RemoveSink detaches and closes a sink added by AddSink.
func (z *ZapLoggerAdapter) RemoveSink(identifier string) error {
	z.mu.Lock()
	defer z.mu.Unlock()

	entry, ok := z.sinks[identifier]
	if !ok {
		return fmt.Errorf("sink not found: %s", identifier)
	}
	delete(z.sinks, identifier)
	if entry.close != nil {
		entry.close()
	}
	z.rebuildLoggerLocked()
	return nil
}

func (z *ZapLoggerAdapter) ListSinks() ([]string, error) {
	z.mu.Lock()
	defer z.mu.Unlock()

	ids := make([]string, 0, len(z.sinks))
	for id := range z.sinks {
		ids = append(ids, id)
	}
	return ids, nil
}
