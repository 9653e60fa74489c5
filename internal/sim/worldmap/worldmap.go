// Package worldmap holds the authored node/edge graph and its routing
// queries. The map is a pure query surface during play; nothing here
// mutates after Initialize.
package worldmap

import (
	"fmt"
	"math"

	"runnerkeep.gg/internal/sim/skills"
)

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) DistanceTo(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// GatherableConfig describes one harvestable resource attached to a node.
type GatherableConfig struct {
	Item          string    `json:"item"`
	Skill         skills.ID `json:"skill"`
	BaseTicks     float64   `json:"base_ticks"`
	XPPerTick     float64   `json:"xp_per_tick"`
	MinSkillLevel int       `json:"min_skill_level"`
}

// Node is a world location. A node with no gatherables is a pure
// waypoint/hub; its "type" is implicit in the gatherable list.
type Node struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Pos         Vec2               `json:"pos"`
	Gatherables []GatherableConfig `json:"gatherables,omitempty"`
}

// Edge is an undirected connection between two nodes with an authored
// travel distance.
type Edge struct {
	A        string  `json:"a"`
	B        string  `json:"b"`
	Distance float64 `json:"distance"`
}

// NoDirectEdge is the sentinel returned by GetDirectDistance when the two
// nodes are not directly connected.
const NoDirectEdge = -1.0

type adjacency struct {
	to       string
	distance float64
}

// Map is the world graph. Add nodes and edges, then call Initialize once
// before any query (and again after deserialization).
type Map struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`

	// TravelDistanceScale multiplies straight-line distance when the
	// pathfinding fallback is used for unconnected node pairs.
	TravelDistanceScale float64 `json:"travel_distance_scale"`

	byID        map[string]*Node
	adj         map[string][]adjacency
	initialized bool
}

func New() *Map {
	return &Map{TravelDistanceScale: 1}
}

func (m *Map) AddNode(n Node) { m.Nodes = append(m.Nodes, n) }

func (m *Map) AddEdge(a, b string, distance float64) {
	m.Edges = append(m.Edges, Edge{A: a, B: b, Distance: distance})
}

// Initialize builds the id and adjacency lookups. Must be called after all
// nodes/edges are added and before any query.
func (m *Map) Initialize() error {
	m.byID = make(map[string]*Node, len(m.Nodes))
	for i := range m.Nodes {
		n := &m.Nodes[i]
		if _, dup := m.byID[n.ID]; dup {
			return fmt.Errorf("worldmap: duplicate node id %q", n.ID)
		}
		m.byID[n.ID] = n
	}
	m.adj = make(map[string][]adjacency, len(m.Nodes))
	for _, e := range m.Edges {
		if _, ok := m.byID[e.A]; !ok {
			return fmt.Errorf("worldmap: edge references unknown node %q", e.A)
		}
		if _, ok := m.byID[e.B]; !ok {
			return fmt.Errorf("worldmap: edge references unknown node %q", e.B)
		}
		m.adj[e.A] = append(m.adj[e.A], adjacency{to: e.B, distance: e.Distance})
		m.adj[e.B] = append(m.adj[e.B], adjacency{to: e.A, distance: e.Distance})
	}
	if m.TravelDistanceScale <= 0 {
		m.TravelDistanceScale = 1
	}
	m.initialized = true
	return nil
}

func (m *Map) Initialized() bool { return m.initialized }

// GetNode returns the node with the given id, or nil.
func (m *Map) GetNode(id string) *Node {
	return m.byID[id]
}

// GetDirectDistance returns the authored edge weight between a and b, or
// NoDirectEdge when they are not directly connected. No fallback here.
func (m *Map) GetDirectDistance(a, b string) float64 {
	for _, adj := range m.adj[a] {
		if adj.to == b {
			return adj.distance
		}
	}
	return NoDirectEdge
}
