// Command telemetryhubd ingests MAVLink telemetry over UDP from an
// unknown, changing population of ground-control stations and fans the
// decoded state out over WebSocket.
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skywatch/telemetryhub/broadcast"
	"github.com/skywatch/telemetryhub/config"
	"github.com/skywatch/telemetryhub/httpapi"
	"github.com/skywatch/telemetryhub/listener"
	"github.com/skywatch/telemetryhub/metrics"
	"github.com/skywatch/telemetryhub/persist"
	"github.com/skywatch/telemetryhub/portscan"
	"github.com/skywatch/telemetryhub/store"
	"github.com/skywatch/telemetryhub/supervisor"
	"github.com/skywatch/telemetryhub/telemetry"
)

const shutdownDeadline = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./telemetryhub.yaml", "Path to YAML config")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("telemetryhubd: config load failed: %v", err)
	}

	db, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Fatalf("telemetryhubd: store open failed: %v", err)
	}
	defer db.Close()

	reg := metrics.New()
	reg.Register()

	engine := telemetry.NewStateEngine(time.Duration(cfg.StaleThresholdMs) * time.Millisecond)
	registry := listener.NewRegistry(time.Duration(cfg.IdleThresholdMs)*time.Millisecond, engine)
	ports := portscan.NewPortSet(cfg.PortRange.Min, cfg.PortRange.Max, cfg.MaxPorts)
	probe := portscan.NewPortProbe(time.Duration(cfg.ScannerTimeoutMs)*time.Millisecond, cfg.BufferSize)
	orchestrator := portscan.NewScanOrchestrator(ports, probe, registry)
	hub := broadcast.NewHub(engine)
	persister := persist.NewPersister(engine, db)

	probe.OnResult(func(r portscan.Result) {
		reg.PortsProbedTotal.WithLabelValues(r.Kind.String()).Inc()
	})
	orchestrator.OnDetect(func(port int, sender string) {
		log.Printf("telemetryhubd: detected traffic on port %d from %s", port, sender)
	})
	hub.OnEmit(func(filter string) {
		reg.BroadcastFramesTotal.WithLabelValues(filter).Inc()
	})
	persister.OnFlush(func(outcome string, size int) {
		reg.PersistBatchTotal.WithLabelValues(outcome).Inc()
		reg.PersistBatchSize.Set(float64(size))
	})

	sup := supervisor.New(orchestrator, registry, hub, persister, engine, reg)

	api := httpapi.New(hub, registry, probe, sup.Running())

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sup.Start(ctx)

	go func() {
		log.Printf("telemetryhubd: listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("telemetryhubd: http server stopped: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Printf("telemetryhubd: shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownDeadline)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetryhubd: http shutdown error: %v", err)
	}

	sup.Shutdown(shutdownDeadline)
	log.Printf("telemetryhubd: stopped")
}
