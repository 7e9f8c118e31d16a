package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/annel0/netsim/internal/config"
	"github.com/annel0/netsim/internal/demo"
	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/network"
	"github.com/annel0/netsim/internal/pid"
	"github.com/annel0/netsim/internal/simulation"
	"github.com/annel0/netsim/internal/timer"
	"github.com/annel0/netsim/internal/transport"
)

func main() {
	logger := logging.GetClientLogger()
	defer logger.Close()

	cfg, err := config.Load("")
	if err != nil {
		logger.Warn("failed to load config, using defaults: %v", err)
	}
	if cfg == nil {
		cfg = &config.Config{}
	}

	host := cfg.Client.GetHost()
	port := cfg.Client.GetPort()
	if len(os.Args) > 1 {
		host = os.Args[1]
	}
	if len(os.Args) > 2 {
		fmt.Sscanf(os.Args[2], "%d", &port)
	}

	mapPath := cfg.Server.GetMapPath()
	if mapPath == "" {
		logger.Error("client requires the session's map path to predict locally")
		os.Exit(1)
	}
	level, err := simulation.LoadLevel(mapPath)
	if err != nil {
		logger.Error("fatal: failed to load level %q: %v", mapPath, err)
		os.Exit(1)
	}

	kp, ki, kd := cfg.PID.Resolved()
	periodMs := float64(cfg.Server.GetTickRate().Milliseconds())
	if periodMs == 0 {
		periodMs = float64(config.DefaultTickRate)
	}

	cli := network.NewClient(network.ClientConfig{
		Name:     cfg.Client.Name,
		Level:    level,
		PeriodMs: periodMs,
		Logger:   logger,
		Clock:    timer.RealClock{},
		PID:      pid.New(kp, ki, kd),
	})

	recorder := demo.NewRecorder()
	cli.SetRecorder(recorder)

	addr := fmt.Sprintf("%s:%d", host, port)
	dialer := transport.KCPDialer{Logger: logger}
	tr, err := dialer.Dial(context.Background(), addr)
	if err != nil {
		logger.Error("fatal: failed to connect to %s: %v", addr, err)
		os.Exit(1)
	}

	cli.Connect(tr)
	cli.Run()

	logger.Info("connected to %s", addr)
	fmt.Printf("connected to %s\n", addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	cli.Halt()
	tr.Close()

	demoPath := "session.demo"
	if err := recorder.Save(demoPath); err != nil {
		logger.Error("failed to save demo: %v", err)
	} else {
		logger.Info("saved demo to %s", demoPath)
	}

	logger.Info("client stopped")
}
