package simulator

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeydtaylor/foodback/pkg/internal/codec"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
	"nhooyr.io/websocket"
)

// EEGServer streams synthetic EEG frames to every WebSocket client.
type EEGServer struct {
	componentMetadata types.ComponentMetadata
	rate              int
	frameInterval     time.Duration
	amplitude         float64
	frames            codec.FrameCodec

	seq         atomic.Int64
	connections atomic.Int64
	paused      atomic.Bool

	loggers     []types.Logger
	loggersLock sync.Mutex
}

// NewEEGServer builds an EEG server. Mount it on any http mux.
func NewEEGServer(options ...types.Option[*EEGServer]) *EEGServer {
	s := &EEGServer{
		componentMetadata: types.ComponentMetadata{
			ID:   utils.GenerateUniqueHash(),
			Type: "EEG_SIMULATOR",
		},
		rate:          DefaultEEGRate,
		frameInterval: DefaultFrameInterval,
		amplitude:     DefaultAmplitude,
		frames:        codec.JSONFrames{},
	}
	for _, opt := range options {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Connections is the number of clients currently streaming.
func (s *EEGServer) Connections() int64 { return s.connections.Load() }

// Sent is the last sequence number written.
func (s *EEGServer) Sent() int64 { return s.seq.Load() }

// SetPaused stops frame output without closing connections, e.g. to
// simulate a cap that stopped transmitting.
func (s *EEGServer) SetPaused(paused bool) { s.paused.Store(paused) }

// ServeHTTP upgrades the request and streams until the client leaves.
func (s *EEGServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.NotifyLoggers(types.WarnLevel, "WebSocket accept failed",
			"component", s.componentMetadata, "event", "Accept", "result", "FAILURE", "error", err)
		return
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")
	s.connections.Add(1)
	defer s.connections.Add(-1)

	// CloseRead handles control frames and cancels ctx when the client goes away.
	ctx := conn.CloseRead(r.Context())
	msgType := websocket.MessageText
	if _, ok := s.frames.(codec.BinaryFrames); ok {
		msgType = websocket.MessageBinary
	}

	perFrame := int(float64(s.rate) * s.frameInterval.Seconds())
	if perFrame < 1 {
		perFrame = 1
	}
	ticker := time.NewTicker(s.frameInterval)
	defer ticker.Stop()

	s.NotifyLoggers(types.InfoLevel, "EEG client connected",
		"component", s.componentMetadata, "event", "Connect", "result", "SUCCESS",
		"remote", r.RemoteAddr, "rate", s.rate, "per_frame", perFrame)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if s.paused.Load() {
			continue
		}
		first := s.seq.Add(int64(perFrame)) - int64(perFrame) + 1
		frame, err := s.frames.EncodeFrame(EEGSamples(first, perFrame, s.rate, s.amplitude))
		if err != nil {
			s.NotifyLoggers(types.ErrorLevel, "EEG frame encode failed",
				"component", s.componentMetadata, "event", "Encode", "result", "FAILURE", "error", err)
			return
		}
		if err := s.write(ctx, conn, msgType, frame); err != nil {
			return
		}
	}
}

func (s *EEGServer) write(ctx context.Context, conn *websocket.Conn, typ websocket.MessageType, frame []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return conn.Write(ctx, typ, frame)
}

// NotifyLoggers emits a log entry to all configured loggers.
func (s *EEGServer) NotifyLoggers(level types.LogLevel, msg string, keysAndValues ...interface{}) {
	s.loggersLock.Lock()
	loggers := append([]types.Logger(nil), s.loggers...)
	s.loggersLock.Unlock()
	types.Notify(loggers, level, msg, keysAndValues...)
}
