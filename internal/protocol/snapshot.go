package protocol

import (
	"github.com/annel0/netsim/internal/command"
	"github.com/annel0/netsim/internal/simulation"
)

// WireEntity is the textual, self-describing representation of a
// simulation.Entity.
type WireEntity struct {
	ID           uint64     `json:"id"`
	Config       string     `json:"config"`
	Position     [3]float64 `json:"position"`
	Velocity     [3]float64 `json:"velocity"`
	PitchDeg     float64    `json:"pitch"`
	YawDeg       float64    `json:"yaw"`
	PolygonIndex int        `json:"polygon"`
	HeldButtons  uint32     `json:"held_buttons"`
	Grounded     bool       `json:"grounded"`
}

// WireSnapshot is the textual representation of a simulation.Snapshot.
type WireSnapshot struct {
	Clock    uint64                `json:"clock"`
	Players  map[uint64]uint64     `json:"players"`
	Entities map[uint64]WireEntity `json:"entities"`
}

// configRegistry resolves a config name back to the shared EntityConfig
// pointer every locally-created Entity uses. This core only ever spawns
// players, so "player" is the only bound name; an unrecognized name falls
// back to the default player config rather than leaving Config nil, since
// a nil config would crash the renderer's dimension lookups.
var configRegistry = map[string]*simulation.EntityConfig{
	simulation.DefaultPlayerConfig.Name: &simulation.DefaultPlayerConfig,
}

func resolveConfig(name string) *simulation.EntityConfig {
	if cfg, ok := configRegistry[name]; ok {
		return cfg
	}
	return &simulation.DefaultPlayerConfig
}

func configName(cfg *simulation.EntityConfig) string {
	if cfg == nil {
		return simulation.DefaultPlayerConfig.Name
	}
	return cfg.Name
}

// ToWireSnapshot converts an in-memory snapshot to its wire form.
func ToWireSnapshot(s *simulation.Snapshot) WireSnapshot {
	wire := WireSnapshot{
		Clock:    s.Clock,
		Players:  make(map[uint64]uint64, len(s.Players)),
		Entities: make(map[uint64]WireEntity, len(s.Entities)),
	}
	for clientID, entityID := range s.Players {
		wire.Players[clientID] = entityID
	}
	for id, e := range s.Entities {
		wire.Entities[id] = WireEntity{
			ID:           e.ID,
			Config:       configName(e.Config),
			Position:     [3]float64{e.Position[0], e.Position[1], e.Position[2]},
			Velocity:     [3]float64{e.Velocity[0], e.Velocity[1], e.Velocity[2]},
			PitchDeg:     e.PitchDeg,
			YawDeg:       e.YawDeg,
			PolygonIndex: e.PolygonIndex,
			HeldButtons:  e.HeldButtons,
			Grounded:     e.Grounded,
		}
	}
	return wire
}

// FromWireSnapshot reconstructs an in-memory snapshot from its wire form.
func FromWireSnapshot(wire WireSnapshot) *simulation.Snapshot {
	s := &simulation.Snapshot{
		Clock:    wire.Clock,
		Players:  make(map[uint64]uint64, len(wire.Players)),
		Entities: make(map[uint64]*simulation.Entity, len(wire.Entities)),
	}
	for clientID, entityID := range wire.Players {
		s.Players[clientID] = entityID
	}
	for id, we := range wire.Entities {
		s.Entities[id] = &simulation.Entity{
			ID:           we.ID,
			Config:       resolveConfig(we.Config),
			Position:     [3]float64(we.Position),
			Velocity:     [3]float64(we.Velocity),
			PitchDeg:     we.PitchDeg,
			YawDeg:       we.YawDeg,
			PolygonIndex: we.PolygonIndex,
			HeldButtons:  we.HeldButtons,
			Grounded:     we.Grounded,
		}
	}
	return s
}

// WireCommand is the textual representation of a command.Command.
type WireCommand struct {
	Kind     string        `json:"kind"`
	ClientID uint64        `json:"client_id"`
	Clock    uint64        `json:"clock,omitempty"`
	Input    command.Input `json:"input,omitempty"`
	Action   string        `json:"action,omitempty"`
}

// ToWireCommand converts an in-memory command to its wire form.
func ToWireCommand(c command.Command) WireCommand {
	switch c.Kind {
	case command.KindInput:
		return WireCommand{Kind: "input", ClientID: c.ClientID, Clock: c.Clock, Input: c.Input}
	default:
		action := "add"
		if c.Action == command.PlayerRemove {
			action = "remove"
		}
		return WireCommand{Kind: "player", ClientID: c.ClientID, Action: action}
	}
}

// FromWireCommand reconstructs an in-memory command from its wire form.
// An unrecognized kind or action is not an error here: callers treat the
// command list as best-effort context for prediction, and an
// unrecognized entry is simply skipped.
func FromWireCommand(wire WireCommand) (command.Command, bool) {
	switch wire.Kind {
	case "input":
		return command.NewInputCommand(wire.ClientID, wire.Clock, wire.Input), true
	case "player":
		switch wire.Action {
		case "add":
			return command.NewPlayerAddCommand(wire.ClientID), true
		case "remove":
			return command.NewPlayerRemoveCommand(wire.ClientID), true
		default:
			return command.Command{}, false
		}
	default:
		return command.Command{}, false
	}
}

// ToWireCommands converts a command list to its wire form.
func ToWireCommands(commands []command.Command) []WireCommand {
	wire := make([]WireCommand, len(commands))
	for i, c := range commands {
		wire[i] = ToWireCommand(c)
	}
	return wire
}

// FromWireCommands reconstructs a command list, skipping any entries that
// fail to parse.
func FromWireCommands(wire []WireCommand) []command.Command {
	commands := make([]command.Command, 0, len(wire))
	for _, w := range wire {
		if c, ok := FromWireCommand(w); ok {
			commands = append(commands, c)
		}
	}
	return commands
}
