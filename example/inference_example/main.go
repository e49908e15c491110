package main

import (
	"context"
	"fmt"
	"log"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/joeydtaylor/foodback/pkg/builder"
)

// Runs the inference flow three times against simulated devices and prints
// each predicted rating with its band powers.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	logger := builder.NewLogger(builder.LoggerWithLevel("warn"))

	eeg, err := builder.NewEEGSimulator("binary", 500, 10*time.Millisecond, logger)
	if err != nil {
		log.Fatal(err)
	}
	srv := httptest.NewServer(eeg)
	defer srv.Close()

	phone, watchEnd := builder.NewLoopbackPair()
	watch, err := builder.NewWatchSimulator(ctx, watchEnd, 0, 2*time.Second, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer watch.Close()

	cfg := builder.DefaultConfig(builder.FlowInference)
	cfg.EEGURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.EEGFormat = "binary"
	cfg.Preparation = 500 * time.Millisecond
	cfg.Recording = 2 * time.Second
	cfg.HealthInterval = 250 * time.Millisecond

	p, err := builder.Build(ctx, cfg,
		builder.BuildWithLogger(logger),
		builder.BuildWithWearableTransport(phone),
	)
	if err != nil {
		log.Fatal(err)
	}
	defer p.Close()

	m := p.Machine()
	for !m.Snapshot().Connectivity.Ready() {
		select {
		case <-ctx.Done():
			log.Fatal("devices never connected")
		case <-time.After(100 * time.Millisecond):
		}
	}

	for run := 1; run <= 3; run++ {
		if err := m.Start(ctx); err != nil {
			log.Fatal(err)
		}
		ev := waitPrediction(ctx, m)
		bp := ev.Prediction.BandPowers
		fmt.Printf("run %d: rating %d scores=%.3f delta=%.2f theta=%.2f alpha=%.2f beta=%.2f gamma=%.2f\n",
			run, ev.Prediction.Class, ev.Prediction.Scores, bp.Delta, bp.Theta, bp.Alpha, bp.Beta, bp.Gamma)
	}
	fmt.Printf("classifications: %d\n", p.Meter().GetMetricCount(builder.MetricClassifications))
}

func waitPrediction(ctx context.Context, m *builder.Machine) builder.Event {
	for {
		select {
		case ev := <-m.Events():
			switch ev.Type {
			case builder.EventPrediction:
				return ev
			case builder.EventError:
				log.Fatalf("run failed (%s): %s", ev.Kind, ev.Message)
			}
		case <-ctx.Done():
			log.Fatal(ctx.Err())
		}
	}
}
