package main

import (
	"context"
	"fmt"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"time"

	"github.com/joeydtaylor/foodback/pkg/builder"
)

// A complete collection run against simulated devices: one subject tastes,
// rates 4, and the three CSV files land in ./tasting_data.
func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	logger := builder.NewLogger(builder.LoggerWithLevel("info"), builder.LoggerWithDevelopment(true))

	eeg, err := builder.NewEEGSimulator("json", 500, 20*time.Millisecond, logger)
	if err != nil {
		log.Fatal(err)
	}
	srv := httptest.NewServer(eeg)
	defer srv.Close()

	phone, watchEnd := builder.NewLoopbackPair()
	watch, err := builder.NewWatchSimulator(ctx, watchEnd, 4*time.Second, 0, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer watch.Close()

	cfg := builder.DefaultConfig(builder.FlowCollection)
	cfg.DataDir = "tasting_data"
	cfg.Exports = []string{"parquet", "edf"}
	cfg.EEGURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	cfg.Preparation = time.Second
	cfg.Recording = 5 * time.Second
	cfg.SettleDelay = time.Second
	cfg.HealthInterval = 500 * time.Millisecond

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
		case <-time.After(200 * time.Millisecond):
		}
	}

	m.SetSubject("SteveRogers")
	if err := m.Start(ctx); err != nil {
		log.Fatal(err)
	}

	for {
		select {
		case ev := <-m.Events():
			switch ev.Type {
			case builder.EventStageChanged:
				fmt.Printf("stage: %s\n", ev.Stage)
				if ev.Stage == builder.StageAskingRating {
					if err := m.SetRating("4"); err != nil {
						log.Fatal(err)
					}
					if err := m.SubmitRating(ctx); err != nil {
						log.Fatal(err)
					}
				}
			case builder.EventSaved:
				fmt.Printf("saved experiment %d: %d EEG rows, %d HR rows, %d EDA rows\n",
					ev.Saved.Experiment, ev.Saved.EEGRows, ev.Saved.HeartRateRows, ev.Saved.EDARows)
				for _, f := range ev.Saved.Exports {
					fmt.Printf("  export: %s\n", f)
				}
				return
			case builder.EventError:
				fmt.Fprintf(os.Stderr, "error (%s): %s\n", ev.Kind, ev.Message)
				return
			}
		case <-ctx.Done():
			log.Fatal(ctx.Err())
		}
	}
}
