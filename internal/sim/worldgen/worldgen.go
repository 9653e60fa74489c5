// Package worldgen builds a playable demo world from layered simplex
// noise, for running the server without authored config files. Output is
// deterministic for a given seed.
package worldgen

import (
	"fmt"
	"math"
	"math/rand"

	opensimplex "github.com/ojrac/opensimplex-go"

	"runnerkeep.gg/internal/sim/items"
	"runnerkeep.gg/internal/sim/skills"
	"runnerkeep.gg/internal/sim/worldmap"
)

type Config struct {
	Seed                int64
	Nodes               int     // gathering nodes besides the hub
	Radius              float64 // placement radius around the hub
	TravelDistanceScale float64
}

func DefaultConfig() Config {
	return Config{Seed: 1337, Nodes: 8, Radius: 150, TravelDistanceScale: 1.4}
}

// theme groups the gatherables a generated node can carry. Richness from
// the noise field decides whether the secondary resource appears.
type theme struct {
	name      string
	primary   worldmap.GatherableConfig
	secondary worldmap.GatherableConfig
}

var themes = []theme{
	{
		name:      "grove",
		primary:   worldmap.GatherableConfig{Item: "LOG", Skill: skills.Woodcutting, BaseTicks: 40, XPPerTick: 0.5, MinSkillLevel: 1},
		secondary: worldmap.GatherableConfig{Item: "RESIN", Skill: skills.Herbalism, BaseTicks: 25, XPPerTick: 0.4, MinSkillLevel: 3},
	},
	{
		name:      "quarry",
		primary:   worldmap.GatherableConfig{Item: "COPPER_ORE", Skill: skills.Mining, BaseTicks: 55, XPPerTick: 0.6, MinSkillLevel: 1},
		secondary: worldmap.GatherableConfig{Item: "QUARTZ", Skill: skills.Crystallurgy, BaseTicks: 70, XPPerTick: 0.8, MinSkillLevel: 5},
	},
	{
		name:      "shallows",
		primary:   worldmap.GatherableConfig{Item: "RIVER_TROUT", Skill: skills.Fishing, BaseTicks: 35, XPPerTick: 0.5, MinSkillLevel: 1},
		secondary: worldmap.GatherableConfig{Item: "MOREL", Skill: skills.Mycology, BaseTicks: 20, XPPerTick: 0.3, MinSkillLevel: 2},
	},
	{
		name:      "barrow",
		primary:   worldmap.GatherableConfig{Item: "RELIC_SHARD", Skill: skills.Excavation, BaseTicks: 60, XPPerTick: 0.7, MinSkillLevel: 2},
		secondary: worldmap.GatherableConfig{Item: "GRAVE_MOSS", Skill: skills.Foraging, BaseTicks: 18, XPPerTick: 0.25, MinSkillLevel: 1},
	},
}

// ItemDefs lists every item the generated gatherables can produce, so the
// caller can build a matching catalog.
func ItemDefs() []items.ItemDef {
	return []items.ItemDef{
		{ID: "LOG", Name: "Oak Log"},
		{ID: "RESIN", Name: "Amber Resin", Stackable: true, StackSize: 10},
		{ID: "COPPER_ORE", Name: "Copper Ore"},
		{ID: "QUARTZ", Name: "Rough Quartz"},
		{ID: "RIVER_TROUT", Name: "River Trout"},
		{ID: "MOREL", Name: "Black Morel", Stackable: true, StackSize: 20},
		{ID: "RELIC_SHARD", Name: "Relic Shard"},
		{ID: "GRAVE_MOSS", Name: "Grave Moss", Stackable: true, StackSize: 25},
	}
}

// Generate lays out a hub-and-spoke map: nodes on a jittered ring around
// the hub, themed by a noise field, with spoke edges to the hub and ring
// edges between noise-chosen neighbors.
func Generate(cfg Config) (*worldmap.Map, error) {
	if cfg.Nodes < 1 {
		return nil, fmt.Errorf("worldgen: need at least one node, got %d", cfg.Nodes)
	}
	if cfg.Radius <= 0 {
		cfg.Radius = DefaultConfig().Radius
	}
	if cfg.TravelDistanceScale <= 0 {
		cfg.TravelDistanceScale = DefaultConfig().TravelDistanceScale
	}
	themeNoise := opensimplex.NewNormalized(cfg.Seed)
	richNoise := opensimplex.NewNormalized(cfg.Seed + 1)
	rng := rand.New(rand.NewSource(cfg.Seed + 2))

	m := worldmap.New()
	m.TravelDistanceScale = cfg.TravelDistanceScale
	m.AddNode(worldmap.Node{ID: "hub", Name: "Keep Courtyard"})

	counts := map[string]int{}
	ids := make([]string, 0, cfg.Nodes)
	positions := make([]worldmap.Vec2, 0, cfg.Nodes)
	for i := 0; i < cfg.Nodes; i++ {
		angle := 2 * math.Pi * float64(i) / float64(cfg.Nodes)
		radius := cfg.Radius * (0.6 + 0.4*rng.Float64())
		pos := worldmap.Vec2{X: radius * math.Cos(angle), Y: radius * math.Sin(angle)}

		th := themes[int(themeNoise.Eval2(pos.X/cfg.Radius, pos.Y/cfg.Radius)*float64(len(themes)))%len(themes)]
		counts[th.name]++
		id := fmt.Sprintf("%s_%d", th.name, counts[th.name])

		gatherables := []worldmap.GatherableConfig{th.primary}
		if richNoise.Eval2(pos.X/cfg.Radius, pos.Y/cfg.Radius) > 0.5 {
			gatherables = append(gatherables, th.secondary)
		}
		m.AddNode(worldmap.Node{
			ID:          id,
			Name:        fmt.Sprintf("%s %d", th.name, counts[th.name]),
			Pos:         pos,
			Gatherables: gatherables,
		})
		m.AddEdge("hub", id, round1(math.Hypot(pos.X, pos.Y)))
		ids = append(ids, id)
		positions = append(positions, pos)
	}

	// Ring edges between adjacent spokes, where the noise says the
	// terrain allows a road.
	for i := range ids {
		j := (i + 1) % len(ids)
		if i == j {
			continue
		}
		mid := worldmap.Vec2{X: (positions[i].X + positions[j].X) / 2, Y: (positions[i].Y + positions[j].Y) / 2}
		if richNoise.Eval2(mid.X/cfg.Radius, mid.Y/cfg.Radius) > 0.45 {
			m.AddEdge(ids[i], ids[j], round1(positions[i].DistanceTo(positions[j])))
		}
	}

	if err := m.Initialize(); err != nil {
		return nil, err
	}
	return m, nil
}

func round1(f float64) float64 {
	return math.Round(f*10) / 10
}
