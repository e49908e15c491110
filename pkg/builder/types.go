package builder

import (
	"github.com/joeydtaylor/foodback/pkg/internal/classifier"
	"github.com/joeydtaylor/foodback/pkg/internal/persistence"
	"github.com/joeydtaylor/foodback/pkg/internal/protocol"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/wearable"
)

type (
	Flow              = types.Flow
	Stage             = types.Stage
	ErrorKind         = types.ErrorKind
	Prediction        = types.Prediction
	ProtocolSnapshot  = types.ProtocolSnapshot
	ConnectivityState = types.ConnectivityState
	SessionEvent      = types.SessionEvent
	EEGSample         = types.EEGSample
	TimestampedSample = types.TimestampedSample
	SensorSeries      = types.SensorSeries

	Event     = protocol.Event
	EventType = protocol.EventType
	Machine   = protocol.Machine

	Classifier        = classifier.Classifier
	ClassifierFunc    = classifier.Func
	WearableTransport = wearable.Transport
	LoopbackTransport = wearable.Loopback
)

const (
	FlowCollection = types.FlowCollection
	FlowInference  = types.FlowInference

	StageIdle         = types.StageIdle
	StagePreparation  = types.StagePreparation
	StageRecording    = types.StageRecording
	StageFinished     = types.StageFinished
	StageAskingRating = types.StageAskingRating
	StageDone         = types.StageDone

	EventError        = protocol.EventError
	EventStageChanged = protocol.EventStageChanged
	EventFinished     = protocol.EventFinished
	EventSaved        = protocol.EventSaved
	EventPrediction   = protocol.EventPrediction

	KindConnectivity   = types.KindConnectivity
	KindEmptyBuffer    = types.KindEmptyBuffer
	KindPersistence    = types.KindPersistence
	KindTransport      = types.KindTransport
	KindValidation     = types.KindValidation
	KindClassification = types.KindClassification
)

// Session CSV files written under Config.DataDir.
const (
	EEGFile       = persistence.EEGFile
	HeartRateFile = persistence.HeartRateFile
	EDAFile       = persistence.EDAFile
)

// ParseFlow maps "inference"/"home" to FlowInference; anything else is FlowCollection.
func ParseFlow(s string) Flow { return types.ParseFlow(s) }

// KindOf returns the ErrorKind carried by err, or "".
func KindOf(err error) ErrorKind { return types.KindOf(err) }

// NewLoopbackPair returns two connected in-memory wearable transports: the
// phone end for Build and the watch end for a simulator.
func NewLoopbackPair() (phone, watch *LoopbackTransport) { return wearable.NewLoopbackPair() }
