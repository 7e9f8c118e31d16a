package simulation

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/annel0/netsim/internal/physics"
)

// Level is the immutable, session-wide geometry and spawn point the tick
// function is handed on every call. It is owned by the simulation and
// shared by reference; nothing mutates it after load.
type Level struct {
	Geometry      *physics.Level
	SpawnPosition mgl64.Vec3
	SpawnPolygon  int
}

// levelDocument is the on-disk JSON shape for a level file: a flat list of
// polygons, each a 2D footprint with per-edge back-polygon indices.
type levelDocument struct {
	Polygons []polygonDocument `json:"polygons"`
	Spawn    [3]float64        `json:"spawn"`
}

type polygonDocument struct {
	Vertices      [][2]float64 `json:"vertices"`
	BackPolygons  []int        `json:"back_polygons"`
	FloorHeight   float64      `json:"floor_height"`
	CeilingHeight float64      `json:"ceiling_height"`
}

// LoadLevel parses a textual level document into the immutable Level
// geometry shared by every snapshot in a session. A corrupt level is
// fatal: the caller is expected to abort at startup, never
// mid-simulation.
func LoadLevel(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read level %q: %w", path, err)
	}

	var doc levelDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse level %q: %w", path, err)
	}
	if len(doc.Polygons) == 0 {
		return nil, fmt.Errorf("level %q has no polygons", path)
	}

	geometry := &physics.Level{Polygons: make([]physics.Polygon, len(doc.Polygons))}
	for i, pd := range doc.Polygons {
		if len(pd.Vertices) < 3 {
			return nil, fmt.Errorf("level %q: polygon %d has fewer than 3 vertices", path, i)
		}
		if len(pd.BackPolygons) != len(pd.Vertices) {
			return nil, fmt.Errorf("level %q: polygon %d edge/back-polygon count mismatch", path, i)
		}
		vertices := make([]mgl64.Vec2, len(pd.Vertices))
		for j, v := range pd.Vertices {
			vertices[j] = mgl64.Vec2{v[0], v[1]}
		}
		geometry.Polygons[i] = physics.Polygon{
			Vertices:      vertices,
			BackPolygons:  append([]int(nil), pd.BackPolygons...),
			FloorHeight:   pd.FloorHeight,
			CeilingHeight: pd.CeilingHeight,
		}
	}

	spawn := mgl64.Vec3{doc.Spawn[0], doc.Spawn[1], doc.Spawn[2]}
	footprint := mgl64.Vec2{spawn[0], spawn[2]}
	spawnPolygon := 0
	for i, poly := range geometry.Polygons {
		if poly.Contains(footprint) {
			spawnPolygon = i
			break
		}
	}

	return &Level{Geometry: geometry, SpawnPosition: spawn, SpawnPolygon: spawnPolygon}, nil
}
