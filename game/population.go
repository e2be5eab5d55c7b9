package game

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/ecotile/components"
	"github.com/pthm-cable/ecotile/systems"
)

// Population owns every live agent. Identity is the ECS entity, so agents
// can be removed while a phase walks a snapshot taken before the change.
//
// Component pointers returned by Agent are only valid until the next
// insert or remove.
type Population struct {
	world *ecs.World

	plantMapper  *ecs.Map2[components.Kind, components.Trail]
	animalMapper *ecs.Map3[components.Kind, components.Trail, components.Vitals]

	allFilter    *ecs.Filter2[components.Kind, components.Trail]
	animalFilter *ecs.Filter3[components.Kind, components.Trail, components.Vitals]

	kindMap   *ecs.Map1[components.Kind]
	trailMap  *ecs.Map1[components.Trail]
	vitalsMap *ecs.Map1[components.Vitals]

	nearest [components.NumKinds]*systems.NearestIndex
	counts  [components.NumKinds]int
}

// NewPopulation creates an empty population.
func NewPopulation() *Population {
	world := ecs.NewWorld()
	p := &Population{
		world:        world,
		plantMapper:  ecs.NewMap2[components.Kind, components.Trail](world),
		animalMapper: ecs.NewMap3[components.Kind, components.Trail, components.Vitals](world),
		allFilter:    ecs.NewFilter2[components.Kind, components.Trail](world),
		animalFilter: ecs.NewFilter3[components.Kind, components.Trail, components.Vitals](world),
		kindMap:      ecs.NewMap1[components.Kind](world),
		trailMap:     ecs.NewMap1[components.Trail](world),
		vitalsMap:    ecs.NewMap1[components.Vitals](world),
	}
	for k := range p.nearest {
		p.nearest[k] = systems.NewNearestIndex()
	}
	return p
}

// InsertPlant adds a plant at pos.
func (p *Population) InsertPlant(pos components.Position) ecs.Entity {
	kind := components.KindPlant
	trail := components.NewTrail(pos)
	e := p.plantMapper.NewEntity(&kind, &trail)
	p.track(e, kind, pos)
	return e
}

// InsertAnimal adds a prey or predator at pos with the given vitals.
func (p *Population) InsertAnimal(kind components.Kind, pos components.Position, v components.Vitals) ecs.Entity {
	if !kind.IsAnimal() {
		panic(InvariantError{Check: "insert animal", Detail: "kind " + kind.String() + " is not an animal"})
	}
	trail := components.NewTrail(pos)
	e := p.animalMapper.NewEntity(&kind, &trail, &v)
	p.track(e, kind, pos)
	return e
}

func (p *Population) track(e ecs.Entity, kind components.Kind, pos components.Position) {
	p.nearest[kind].Insert(e, pos)
	p.counts[kind]++
}

// Remove deletes e. Removing a dead entity is a no-op.
func (p *Population) Remove(e ecs.Entity) {
	if !p.world.Alive(e) {
		return
	}
	kind := *p.kindMap.Get(e)
	p.nearest[kind].Remove(e)
	p.counts[kind]--
	p.world.RemoveEntity(e)
}

// Alive reports whether e is still in the population.
func (p *Population) Alive(e ecs.Entity) bool {
	return p.world.Alive(e)
}

// Kind returns the kind of a live entity.
func (p *Population) Kind(e ecs.Entity) components.Kind {
	return *p.kindMap.Get(e)
}

// Agent returns a read/write view of a live entity. Plants have no vitals.
func (p *Population) Agent(e ecs.Entity) components.Agent {
	a := components.Agent{
		Entity: e,
		Kind:   *p.kindMap.Get(e),
		Trail:  p.trailMap.Get(e),
	}
	if a.Kind.IsAnimal() {
		a.Vitals = p.vitalsMap.Get(e)
	}
	return a
}

// Position returns the current position of a live entity.
func (p *Population) Position(e ecs.Entity) components.Position {
	return p.trailMap.Get(e).Current()
}

// Relocate syncs the nearest-of-kind index after e moved.
func (p *Population) Relocate(e ecs.Entity) {
	kind := *p.kindMap.Get(e)
	p.nearest[kind].Move(e, p.trailMap.Get(e).Current())
}

// Snapshot appends every live entity to dst.
func (p *Population) Snapshot(dst []ecs.Entity) []ecs.Entity {
	query := p.allFilter.Query()
	for query.Next() {
		dst = append(dst, query.Entity())
	}
	return dst
}

// Animals appends every live prey and predator to dst.
func (p *Population) Animals(dst []ecs.Entity) []ecs.Entity {
	query := p.animalFilter.Query()
	for query.Next() {
		dst = append(dst, query.Entity())
	}
	return dst
}

// Nearest returns the closest other agent of kind to e by Euclidean
// distance. It reports false when there is none.
func (p *Population) Nearest(e ecs.Entity, kind components.Kind) (ecs.Entity, bool) {
	return p.nearest[kind].Nearest(p.Position(e), e)
}

// Count returns the number of live agents of kind.
func (p *Population) Count(kind components.Kind) int {
	return p.counts[kind]
}

// Len returns the number of live agents.
func (p *Population) Len() int {
	n := 0
	for _, c := range p.counts {
		n += c
	}
	return n
}

// Each calls fn for every live agent with its kind and current position.
func (p *Population) Each(fn func(e ecs.Entity, kind components.Kind, pos components.Position)) {
	query := p.allFilter.Query()
	for query.Next() {
		kind, trail := query.Get()
		fn(query.Entity(), *kind, trail.Current())
	}
}
