package persistence

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joeydtaylor/foodback/pkg/internal/meter"
	"github.com/joeydtaylor/foodback/pkg/internal/types"
	"github.com/joeydtaylor/foodback/pkg/internal/utils"
)

func errUnknownFile(name string) error {
	return fmt.Errorf("unknown data file %q", name)
}

// SaveSession appends rec to the three CSV files and returns the numbering used.
func (s *Store) SaveSession(ctx context.Context, rec Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, types.NewError(types.KindPersistence, "save", err)
	}

	s.mu.Lock()
	res, err := s.appendLocked(rec)
	s.mu.Unlock()
	if err != nil {
		s.NotifyLoggers(types.ErrorLevel, "Session save failed",
			"component", s.GetComponentMetadata(), "event", "Save", "result", "FAILURE",
			"session_id", rec.SessionID, "error", err)
		return Result{}, types.NewError(types.KindPersistence, "save", err)
	}

	s.NotifyLoggers(types.InfoLevel, "Session saved",
		"component", s.GetComponentMetadata(), "event", "Save", "result", "SUCCESS",
		"session_id", rec.SessionID, "experiment", res.Experiment,
		"eeg_rows", res.EEGRows, "heart_rate_rows", res.HeartRateRows, "eda_rows", res.EDARows)

	for _, e := range s.exporters {
		path, err := e.Export(ctx, rec, res)
		if err != nil {
			s.meter.IncrementCount(meter.MetricExportsFailed)
			s.NotifyLoggers(types.WarnLevel, "Export failed",
				"component", s.GetComponentMetadata(), "event", "Export", "result", "FAILURE",
				"exporter", e.Name(), "experiment", res.Experiment, "error", err)
			continue
		}
		res.Exports = append(res.Exports, path)
	}
	return res, nil
}

func (s *Store) appendLocked(rec Record) (Result, error) {
	if err := utils.EnsureDir(s.dir); err != nil {
		return Result{}, err
	}

	lastSample, lastExperiment, err := lastNumbering(filepath.Join(s.dir, EEGFile))
	if err != nil {
		return Result{}, err
	}
	res := Result{
		Experiment:  lastExperiment + 1,
		FirstSample: lastSample + 1,
		LastSample:  lastSample + int64(len(rec.EEG)),
	}
	rating := strconv.Itoa(rec.Rating)
	experiment := strconv.Itoa(res.Experiment)

	eegRows := make([][]string, 0, len(rec.EEG))
	for i, smp := range rec.EEG {
		row := make([]string, 0, len(eegHeader))
		row = append(row, strconv.FormatInt(res.FirstSample+int64(i), 10))
		for _, v := range smp.Channels {
			row = append(row, formatFloat(v))
		}
		row = append(row, experiment, rec.Subject, rating)
		eegRows = append(eegRows, row)
	}
	auxRows := func(samples []types.TimestampedSample) [][]string {
		rows := make([][]string, 0, len(samples))
		for _, smp := range samples {
			rows = append(rows, []string{experiment, strconv.FormatInt(smp.Timestamp, 10), formatFloat(smp.Value), rec.Subject, rating})
		}
		return rows
	}

	hrRows, edaRows := auxRows(rec.HeartRate), auxRows(rec.EDA)
	err = appendAll([]pendingAppend{
		{path: filepath.Join(s.dir, EEGFile), header: eegHeader, rows: eegRows},
		{path: filepath.Join(s.dir, HeartRateFile), header: auxHeader, rows: hrRows},
		{path: filepath.Join(s.dir, EDAFile), header: auxHeader, rows: edaRows},
	})
	if err != nil {
		return Result{}, err
	}
	res.EEGRows, res.HeartRateRows, res.EDARows = len(eegRows), len(hrRows), len(edaRows)
	return res, nil
}

type pendingAppend struct {
	path   string
	header []string
	rows   [][]string

	f    *os.File
	size int64
}

// appendAll appends to every file or to none. All files are opened before
// the first write; when a write fails, files already written are truncated
// back to their previous size.
func appendAll(files []pendingAppend) (err error) {
	defer func() {
		for i := range files {
			if files[i].f != nil {
				if cerr := files[i].f.Close(); cerr != nil && err == nil {
					err = cerr
				}
			}
		}
	}()

	for i := range files {
		f, err := os.OpenFile(files[i].path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return err
		}
		files[i].f = f
		info, err := f.Stat()
		if err != nil {
			return err
		}
		files[i].size = info.Size()
	}

	for i := range files {
		if err := writeRows(files[i].f, files[i].size == 0, files[i].header, files[i].rows); err != nil {
			for j := 0; j <= i; j++ {
				if terr := files[j].f.Truncate(files[j].size); terr != nil {
					err = errors.Join(err, fmt.Errorf("roll back %s: %w", filepath.Base(files[j].path), terr))
				}
			}
			return err
		}
	}
	return nil
}

// writeRows writes the header when the file is new or empty, then rows.
func writeRows(f *os.File, withHeader bool, header []string, rows [][]string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if withHeader {
		_ = w.Write(header)
	}
	_ = w.WriteAll(rows)
	if err := w.Error(); err != nil {
		return err
	}
	_, err := f.Write(buf.Bytes())
	return err
}

// lastNumbering reads the sample and experiment columns of the last data
// row. A missing, empty or header-only file yields zeros.
func lastNumbering(path string) (sample int64, experiment int, err error) {
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.ReuseRecord = true

	var last []string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, 0, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		last = append(last[:0], row...)
	}
	if last == nil || strings.TrimSpace(last[0]) == eegHeader[0] {
		return 0, 0, nil
	}
	if len(last) <= eegExperimentColumn {
		return 0, 0, fmt.Errorf("last row of %s has %d columns", filepath.Base(path), len(last))
	}
	sample, err = strconv.ParseInt(strings.TrimSpace(last[eegSampleColumn]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("parse sample: %w", err)
	}
	experiment, err = strconv.Atoi(strings.TrimSpace(last[eegExperimentColumn]))
	if err != nil {
		return 0, 0, fmt.Errorf("parse experiment: %w", err)
	}
	return sample, experiment, nil
}

// Delete removes a managed file. Deleting a missing file is not an error.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return types.NewError(types.KindPersistence, "delete", err)
	}
	s.NotifyLoggers(types.InfoLevel, "Data file deleted",
		"component", s.GetComponentMetadata(), "event", "Delete", "file", name)
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
