package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/annel0/netsim/internal/config"
	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/network"
	"github.com/annel0/netsim/internal/simulation"
	"github.com/annel0/netsim/internal/timer"
	"github.com/annel0/netsim/internal/transport"
)

func main() {
	logger := logging.GetServerLogger()
	defer logger.Close()

	logger.Info("starting simulation server")

	cfg, err := config.Load("")
	if err != nil {
		logger.Warn("failed to load config, using defaults: %v", err)
		cfg = &config.Config{}
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	mapPath := cfg.Server.GetMapPath()
	if len(os.Args) > 1 {
		mapPath = os.Args[1]
	}
	if mapPath == "" {
		logger.Error("no map path given (pass as argument or server.map_path in config)")
		os.Exit(1)
	}

	level, err := simulation.LoadLevel(mapPath)
	if err != nil {
		logger.Error("fatal: failed to load level %q: %v", mapPath, err)
		os.Exit(1)
	}

	listenAddr := cfg.Server.GetListenAddr()
	listener, err := transport.ListenKCP(listenAddr, logger)
	if err != nil {
		logger.Error("fatal: failed to listen on %s: %v", listenAddr, err)
		os.Exit(1)
	}

	metrics := network.NewServerMetrics()
	metrics.StartHTTP(":9090", logger)

	srv := network.NewServer(network.ServerConfig{
		Level:       level,
		PeriodMs:    float64(cfg.Server.GetTickRate()) / float64(time.Millisecond),
		SnapshotMax: uint64(cfg.Server.GetSnapshotMax()),
		Logger:      logger,
		Metrics:     metrics,
		Clock:       timer.RealClock{},
	})

	go func() {
		if err := srv.Serve(listener); err != nil {
			logger.Error("server stopped: %v", err)
		}
	}()

	logger.Info("listening on %s, map %s", listenAddr, mapPath)
	fmt.Printf("server listening on %s\n", listenAddr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal %v, shutting down", sig)

	srv.Halt()
	listener.Close()
	logger.Info("server stopped")
}
