package main

import (
	"context"
	"fmt"
	"os"

	"fleetflow/internal/config"
	"fleetflow/internal/mylogger"
	telemetryservice "fleetflow/internal/telemetry-service"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: app <api|worker|all>")
		os.Exit(1)
	}

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	mylog, err := mylogger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	var runApi, runWorker bool
	switch os.Args[1] {
	case "api":
		runApi = true
	case "worker":
		runWorker = true
	case "all":
		runApi, runWorker = true, true
	default:
		fmt.Fprintln(os.Stderr, "usage: app <api|worker|all>")
		os.Exit(1)
	}

	if err := telemetryservice.Run(context.Background(), mylog, cfg, runApi, runWorker); err != nil {
		mylog.Error("service stopped with error", err)
		os.Exit(1)
	}
}
