package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/armctl/internal/sim"
)

func main() {
	// Parse flags
	port := flag.Int("port", 8080, "Port to listen on")
	faultList := flag.String("fail", "", `Faults for the first requests, e.g. "reset,status:503,slow:2s"`)
	isDebug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	slogLevel := slog.LevelInfo
	if *isDebug {
		slogLevel = slog.LevelDebug
	}
	stylelog.InitDefault(
		&tint.Options{
			Level:      slogLevel,
			TimeFormat: time.RFC3339,
		})

	ctrl := sim.NewController(slog.Default())
	if *faultList != "" {
		for _, s := range strings.Split(*faultList, ",") {
			f, err := sim.ParseFault(strings.TrimSpace(s))
			if err != nil {
				slog.Error("Invalid fault", "fault", s, "error", err)
				os.Exit(1)
			}
			ctrl.FailNext(1, f)
		}
	}

	srv := sim.NewServer(ctrl, *port)

	// Handle OS Signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Simulator stopped", "error", err)
			os.Exit(1)
		}
	}()
	slog.Info("Simulated controller listening", "port", *port, "faults", *faultList)

	// Wait for Signal
	sig := <-sigChan
	slog.Info("Received signal, shutting down...", "signal", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		slog.Error("Error during shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Simulator stopped gracefully",
		"requests", ctrl.Requests(),
		"inits", ctrl.Inits(),
		"moves", len(ctrl.Poses()),
	)
}
