package codec

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/joeydtaylor/foodback/pkg/internal/types"
)

// EEGRecordSize is the size of one binary EEG record: int64 sequence
// followed by six float32 channel values, little-endian.
const EEGRecordSize = 8 + 4*types.EEGChannelCount

// FrameCodec converts between headset frames and EEG samples. A frame may
// carry several records.
type FrameCodec interface {
	Name() string
	EncodeFrame(samples []types.EEGSample) ([]byte, error)
	DecodeFrame(frame []byte) ([]types.EEGSample, error)
}

// FrameCodecFor returns the codec named by format ("json" or "binary").
func FrameCodecFor(format string) (FrameCodec, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "json":
		return JSONFrames{}, nil
	case "binary", "bin":
		return BinaryFrames{}, nil
	default:
		return nil, fmt.Errorf("unsupported eeg frame format: %q", format)
	}
}

type jsonRecord struct {
	Seq int64     `json:"seq"`
	Ch  []float64 `json:"ch"`
}

// JSONFrames encodes one {"seq":N,"ch":[...]} object per record; a frame
// holding several records is a JSON array of such objects.
type JSONFrames struct{}

func (JSONFrames) Name() string { return "json" }

func (JSONFrames) EncodeFrame(samples []types.EEGSample) ([]byte, error) {
	recs := make([]jsonRecord, len(samples))
	for i, s := range samples {
		recs[i] = jsonRecord{Seq: s.Sequence, Ch: append([]float64(nil), s.Channels[:]...)}
	}
	if len(recs) == 1 {
		return json.Marshal(recs[0])
	}
	return json.Marshal(recs)
}

func (JSONFrames) DecodeFrame(frame []byte) ([]types.EEGSample, error) {
	trimmed := strings.TrimSpace(string(frame))
	var recs []jsonRecord
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(frame, &recs); err != nil {
			return nil, err
		}
	} else {
		var rec jsonRecord
		if err := json.Unmarshal(frame, &rec); err != nil {
			return nil, err
		}
		recs = []jsonRecord{rec}
	}
	out := make([]types.EEGSample, 0, len(recs))
	for _, r := range recs {
		if len(r.Ch) != types.EEGChannelCount {
			return nil, fmt.Errorf("eeg record has %d channels, want %d", len(r.Ch), types.EEGChannelCount)
		}
		s := types.EEGSample{Sequence: r.Seq}
		copy(s.Channels[:], r.Ch)
		out = append(out, s)
	}
	return out, nil
}

// BinaryFrames packs records back to back in EEGRecordSize-byte slots.
type BinaryFrames struct{}

func (BinaryFrames) Name() string { return "binary" }

func (BinaryFrames) EncodeFrame(samples []types.EEGSample) ([]byte, error) {
	buf := make([]byte, len(samples)*EEGRecordSize)
	for i, s := range samples {
		rec := buf[i*EEGRecordSize:]
		binary.LittleEndian.PutUint64(rec, uint64(s.Sequence))
		for ch, v := range s.Channels {
			binary.LittleEndian.PutUint32(rec[8+4*ch:], math.Float32bits(float32(v)))
		}
	}
	return buf, nil
}

func (BinaryFrames) DecodeFrame(frame []byte) ([]types.EEGSample, error) {
	if len(frame)%EEGRecordSize != 0 {
		return nil, fmt.Errorf("binary eeg frame of %d bytes is not a multiple of %d", len(frame), EEGRecordSize)
	}
	out := make([]types.EEGSample, len(frame)/EEGRecordSize)
	for i := range out {
		rec := frame[i*EEGRecordSize:]
		out[i].Sequence = int64(binary.LittleEndian.Uint64(rec))
		for ch := range out[i].Channels {
			out[i].Channels[ch] = float64(math.Float32frombits(binary.LittleEndian.Uint32(rec[8+4*ch:])))
		}
	}
	return out, nil
}
