package simulation

// Snapshot is the complete world state at a discrete tick. Two snapshots
// are equal iff their clocks agree and both maps are element-wise equal.
type Snapshot struct {
	Clock    uint64
	Players  map[uint64]uint64 // client ID -> entity ID
	Entities map[uint64]*Entity
}

// NewSnapshot returns an empty snapshot at clock 0.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Players:  make(map[uint64]uint64),
		Entities: make(map[uint64]*Entity),
	}
}

// Clone returns a deep copy: the entities map holds independent Entity
// values, so mutating the clone never affects the source. Tick's first
// step is exactly this clone, stepped forward by incrementing Clock.
func (s *Snapshot) Clone() *Snapshot {
	next := &Snapshot{
		Clock:    s.Clock,
		Players:  make(map[uint64]uint64, len(s.Players)),
		Entities: make(map[uint64]*Entity, len(s.Entities)),
	}
	for clientID, entityID := range s.Players {
		next.Players[clientID] = entityID
	}
	for entityID, entity := range s.Entities {
		next.Entities[entityID] = entity.Clone()
	}
	return next
}

// Equal reports structural equality: same clock, same player bindings,
// same entity states.
func (s *Snapshot) Equal(other *Snapshot) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Clock != other.Clock {
		return false
	}
	if len(s.Players) != len(other.Players) || len(s.Entities) != len(other.Entities) {
		return false
	}
	for clientID, entityID := range s.Players {
		if otherID, ok := other.Players[clientID]; !ok || otherID != entityID {
			return false
		}
	}
	for id, entity := range s.Entities {
		otherEntity, ok := other.Entities[id]
		if !ok || !entitiesEqual(entity, otherEntity) {
			return false
		}
	}
	return true
}

func entitiesEqual(a, b *Entity) bool {
	configEqual := (a.Config == nil && b.Config == nil) ||
		(a.Config != nil && b.Config != nil && *a.Config == *b.Config)
	return a.ID == b.ID &&
		configEqual &&
		a.Position == b.Position &&
		a.Velocity == b.Velocity &&
		a.PitchDeg == b.PitchDeg &&
		a.YawDeg == b.YawDeg &&
		a.PolygonIndex == b.PolygonIndex &&
		a.HeldButtons == b.HeldButtons &&
		a.Grounded == b.Grounded
}

// smallestUnusedEntityID returns the smallest positive integer not
// already a key of entities, preserving determinism across a remove/add
// cycle. Zero is reserved as the "no entity" value.
func smallestUnusedEntityID(entities map[uint64]*Entity) uint64 {
	id := uint64(1)
	for {
		if _, taken := entities[id]; !taken {
			return id
		}
		id++
	}
}
