package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joeydtaylor/foodback/pkg/builder"
)

// A tasting station against real devices, driven over HTTP. Configure it with
// FOODBACK_* variables, for example:
//
//	FOODBACK_FLOW=collection
//	FOODBACK_EEG_URL=ws://192.168.1.20:8765/eeg
//	FOODBACK_MQTT_BROKER=tcp://localhost:1883
//	FOODBACK_CONTROL_ADDR=:8088
//	FOODBACK_KAFKA_BROKERS=localhost:9092
//	FOODBACK_S3_BUCKET=tastings FOODBACK_S3_ENDPOINT=http://localhost:4566
//
// then drive it with
//
//	curl -X PUT localhost:8088/session/subject -d '{"subject":"SteveRogers"}'
//	curl -X POST localhost:8088/session/start
//	curl localhost:8088/session
//	curl -X PUT localhost:8088/session/rating -d '{"rating":4}'
//	curl -X POST localhost:8088/session/submit
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := builder.LoadConfig()
	if cfg.ControlAddr == "" {
		cfg.ControlAddr = ":8088"
	}

	p, err := builder.Build(ctx, cfg)
	if err != nil {
		log.Fatalf("build: %v", err)
	}
	defer p.Close()

	go func() {
		for ev := range p.Machine().Events() {
			switch ev.Type {
			case builder.EventStageChanged:
				fmt.Printf("[%s] stage %s\n", ev.SessionID, ev.Stage)
			case builder.EventPrediction:
				fmt.Printf("[%s] predicted rating %d\n", ev.SessionID, ev.Prediction.Class)
			case builder.EventSaved:
				fmt.Printf("[%s] saved experiment %d\n", ev.SessionID, ev.Saved.Experiment)
			case builder.EventError:
				fmt.Printf("[%s] %s error: %s\n", ev.SessionID, ev.Kind, ev.Message)
			}
		}
	}()

	fmt.Printf("%s flow, control API on %s\n", cfg.Flow, cfg.ControlAddr)
	if err := p.ServeControl(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("control server: %v", err)
	}
}
