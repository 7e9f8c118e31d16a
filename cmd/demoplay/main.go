// Command demoplay replays a captured session against a fresh client,
// driving the same tick function the live session used.
package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/annel0/netsim/internal/config"
	"github.com/annel0/netsim/internal/demo"
	"github.com/annel0/netsim/internal/logging"
	"github.com/annel0/netsim/internal/network"
	"github.com/annel0/netsim/internal/pid"
	"github.com/annel0/netsim/internal/simulation"
	"github.com/annel0/netsim/internal/timer"
)

func main() {
	logger := logging.GetDemoLogger()
	defer logger.Close()

	if len(os.Args) < 3 {
		fmt.Println("usage: demoplay <demo-file> <map-file>")
		os.Exit(1)
	}
	demoPath, mapPath := os.Args[1], os.Args[2]

	doc, err := demo.Load(demoPath)
	if err != nil {
		logger.Error("fatal: failed to load demo %q: %v", demoPath, err)
		os.Exit(1)
	}

	level, err := simulation.LoadLevel(mapPath)
	if err != nil {
		logger.Error("fatal: failed to load level %q: %v", mapPath, err)
		os.Exit(1)
	}

	kp, ki, kd := config.PIDConfig{}.Resolved()
	cli := network.NewClient(network.ClientConfig{
		Name:     "demoplay",
		Level:    level,
		PeriodMs: float64(config.DefaultTickRate),
		Logger:   logger,
		Clock:    timer.RealClock{},
		PID:      pid.New(kp, ki, kd),
	})

	player := demo.NewPlayer(doc, cli)

	fmt.Printf("loaded %d ticks from %s\n", len(doc.Ticks), demoPath)
	fmt.Println("commands: first, prev, next, end, play, pause, quit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		switch scanner.Text() {
		case "first":
			player.First()
		case "prev":
			player.Previous()
		case "next":
			if !player.Next() {
				fmt.Println("end of demo")
			}
		case "end":
			player.End()
		case "play":
			player.Play(float64(config.DefaultTickRate))
		case "pause":
			player.Pause()
		case "quit":
			return
		default:
			fmt.Println("unknown command")
		}

		if snap := cli.Snapshot(); snap != nil {
			fmt.Printf("clock=%d entities=%d\n", snap.Clock, len(snap.Entities))
		}
	}
}
