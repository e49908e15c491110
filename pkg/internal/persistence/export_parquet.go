package persistence

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joeydtaylor/foodback/pkg/internal/utils"
	parquet "github.com/parquet-go/parquet-go"
)

// EEGRow is one EEG sample in the Parquet export.
type EEGRow struct {
	Sample     int64   `parquet:"sample"`
	Experiment int32   `parquet:"experiment"`
	Subject    string  `parquet:"subject"`
	Rating     int32   `parquet:"rating"`
	Ch1        float64 `parquet:"ch1"`
	Ch2        float64 `parquet:"ch2"`
	Ch3        float64 `parquet:"ch3"`
	Ch4        float64 `parquet:"ch4"`
	Ch5        float64 `parquet:"ch5"`
	Ch6        float64 `parquet:"ch6"`
}

// AlignedRow is one grid point of the resampled wearable streams.
type AlignedRow struct {
	Experiment int32   `parquet:"experiment"`
	Index      int32   `parquet:"index"`
	Timestamp  int64   `parquet:"timestamp"`
	HeartRate  float64 `parquet:"heart_rate"`
	EDA        float64 `parquet:"eda"`
}

// ParquetExporter writes one EEG file and, when aligned streams are present,
// one aligned wearable file per experiment.
type ParquetExporter struct {
	dir         string
	compression string
}

// NewParquetExporter writes into dir with the given codec (snappy, zstd or gzip).
func NewParquetExporter(dir, compression string) *ParquetExporter {
	return &ParquetExporter{dir: dir, compression: strings.ToLower(compression)}
}

func (e *ParquetExporter) Name() string { return "parquet" }

func (e *ParquetExporter) compressionOption() parquet.WriterOption {
	switch e.compression {
	case "zstd":
		return parquet.Compression(&parquet.Zstd)
	case "gzip", "gz":
		return parquet.Compression(&parquet.Gzip)
	default:
		return parquet.Compression(&parquet.Snappy)
	}
}

// Export returns the path of the EEG file.
func (e *ParquetExporter) Export(_ context.Context, rec Record, res Result) (string, error) {
	if err := utils.EnsureDir(e.dir); err != nil {
		return "", err
	}

	rows := make([]EEGRow, len(rec.EEG))
	for i, s := range rec.EEG {
		rows[i] = EEGRow{
			Sample:     res.FirstSample + int64(i),
			Experiment: int32(res.Experiment),
			Subject:    rec.Subject,
			Rating:     int32(rec.Rating),
			Ch1:        s.Channels[0],
			Ch2:        s.Channels[1],
			Ch3:        s.Channels[2],
			Ch4:        s.Channels[3],
			Ch5:        s.Channels[4],
			Ch6:        s.Channels[5],
		}
	}
	eegPath := filepath.Join(e.dir, fmt.Sprintf("experiment_%04d_eeg.parquet", res.Experiment))
	if err := writeParquet(eegPath, rows, e.compressionOption()); err != nil {
		return "", err
	}

	n := len(rec.AlignedHeartRate)
	if n == 0 || n != len(rec.AlignedEDA) {
		return eegPath, nil
	}
	aligned := make([]AlignedRow, n)
	for i := range aligned {
		aligned[i] = AlignedRow{
			Experiment: int32(res.Experiment),
			Index:      int32(i),
			Timestamp:  rec.AlignedHeartRate[i].Timestamp,
			HeartRate:  rec.AlignedHeartRate[i].Value,
			EDA:        rec.AlignedEDA[i].Value,
		}
	}
	auxPath := filepath.Join(e.dir, fmt.Sprintf("experiment_%04d_aligned.parquet", res.Experiment))
	if err := writeParquet(auxPath, aligned, e.compressionOption()); err != nil {
		return "", err
	}
	return eegPath, nil
}

func writeParquet[T any](path string, rows []T, opts ...parquet.WriterOption) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	pw := parquet.NewGenericWriter[T](f, opts...)
	if _, err := pw.Write(rows); err != nil {
		_ = f.Close()
		return err
	}
	if err := pw.Close(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
