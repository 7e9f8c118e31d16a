// Package physics resolves entity movement against the level's polygon
// geometry: containment updates (including portal crossings) and
// floor/ceiling clamping.
package physics

import "github.com/go-gl/mathgl/mgl64"

// Polygon is one convex floor/ceiling cell of the level. Edge i runs from
// Vertices[i] to Vertices[(i+1)%len(Vertices)]; BackPolygons[i] is the
// index of the polygon across that edge, or -1 for a solid wall.
type Polygon struct {
	Vertices      []mgl64.Vec2
	BackPolygons  []int
	FloorHeight   float64
	CeilingHeight float64
}

// Level is the immutable, session-wide polygon geometry entities move
// through.
type Level struct {
	Polygons []Polygon
}

const edgeEpsilon = 1e-9

// signedDistance returns the 2D cross product of a->b and a->p, which is
// the signed perpendicular distance from p to the line through a->b
// scaled by the edge length; positive means p is to the left of a->b
// (inside, for a polygon wound counter-clockwise).
func signedDistance(a, b, p mgl64.Vec2) float64 {
	edge := b.Sub(a)
	toPoint := p.Sub(a)
	return edge[0]*toPoint[1] - edge[1]*toPoint[0]
}

// Contains reports whether p lies inside (or on) the convex polygon's 2D
// footprint.
func (poly Polygon) Contains(p mgl64.Vec2) bool {
	n := len(poly.Vertices)
	for i := 0; i < n; i++ {
		a := poly.Vertices[i]
		b := poly.Vertices[(i+1)%n]
		if signedDistance(a, b, p) < -edgeEpsilon {
			return false
		}
	}
	return true
}

// crossedEdge returns the index of the edge p lies outside of, or -1 if p
// is contained.
func (poly Polygon) crossedEdge(p mgl64.Vec2) int {
	n := len(poly.Vertices)
	for i := 0; i < n; i++ {
		a := poly.Vertices[i]
		b := poly.Vertices[(i+1)%n]
		if signedDistance(a, b, p) < -edgeEpsilon {
			return i
		}
	}
	return -1
}

// Resolve updates polygonIndex to the polygon footprint containing
// position's XZ projection, following portal edges (BackPolygons) across
// at most len(level.Polygons) hops, and clamps position's height between
// the resolved polygon's floor and ceiling. It returns the resolved
// polygon index and clamped position.
//
// If position has left the level geometry entirely (no portal to follow
// from a solid edge), the entity stays in its last-known polygon and only
// the height clamp is applied — the tick must never panic on an
// out-of-bounds command.
func Resolve(level *Level, polygonIndex int, position mgl64.Vec3) (int, mgl64.Vec3) {
	if polygonIndex < 0 || polygonIndex >= len(level.Polygons) {
		return polygonIndex, position
	}

	footprint := mgl64.Vec2{position[0], position[2]}
	current := polygonIndex

	for hops := 0; hops < len(level.Polygons); hops++ {
		poly := level.Polygons[current]
		edge := poly.crossedEdge(footprint)
		if edge < 0 {
			break
		}
		back := poly.BackPolygons[edge]
		if back < 0 {
			// Solid wall: stay in the current polygon, the caller's
			// kinematic step is responsible for not tunneling through
			// it next tick.
			break
		}
		current = back
	}

	poly := level.Polygons[current]
	clamped := position
	if clamped[1] < poly.FloorHeight {
		clamped[1] = poly.FloorHeight
	}
	if clamped[1] > poly.CeilingHeight {
		clamped[1] = poly.CeilingHeight
	}
	return current, clamped
}
