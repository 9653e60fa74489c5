package worldmap

import (
	"math"
	"testing"
)

func buildMap(t *testing.T) *Map {
	t.Helper()
	m := New()
	m.AddNode(Node{ID: "hub", Pos: Vec2{X: 0, Y: 0}})
	m.AddNode(Node{ID: "forest", Pos: Vec2{X: 10, Y: 0}})
	m.AddNode(Node{ID: "quarry", Pos: Vec2{X: 10, Y: 10}})
	m.AddNode(Node{ID: "island", Pos: Vec2{X: 3, Y: 4}})
	m.AddEdge("hub", "forest", 12)
	m.AddEdge("forest", "quarry", 9)
	m.AddEdge("hub", "quarry", 30)
	if err := m.Initialize(); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	return m
}

func TestFindPath_SameNode(t *testing.T) {
	m := buildMap(t)
	d, path, ok := m.FindPath("hub", "hub")
	if !ok || d != 0 {
		t.Fatalf("FindPath(hub,hub) = %v,%v,%v want 0 distance", d, path, ok)
	}
	if len(path) != 1 || path[0] != "hub" {
		t.Fatalf("path = %v, want single-element [hub]", path)
	}
}

func TestFindPath_DirectEdge(t *testing.T) {
	m := buildMap(t)
	d, path, ok := m.FindPath("hub", "forest")
	if !ok || d != 12 {
		t.Fatalf("distance = %v, want 12", d)
	}
	if len(path) != 2 || path[0] != "hub" || path[1] != "forest" {
		t.Fatalf("path = %v", path)
	}
}

func TestFindPath_MultiHopBeatsDirect(t *testing.T) {
	m := buildMap(t)
	// hub->forest->quarry = 21 beats the direct 30 edge.
	d, path, ok := m.FindPath("hub", "quarry")
	if !ok || d != 21 {
		t.Fatalf("distance = %v, want 21", d)
	}
	want := []string{"hub", "forest", "quarry"}
	if len(path) != len(want) {
		t.Fatalf("path = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Fatalf("path = %v, want %v", path, want)
		}
	}
}

func TestFindPath_EuclideanFallback(t *testing.T) {
	m := buildMap(t)
	m.TravelDistanceScale = 2
	// island has no edges; fallback is straight-line * scale = 5 * 2.
	d, path, ok := m.FindPath("hub", "island")
	if !ok {
		t.Fatalf("expected fallback path")
	}
	if math.Abs(d-10) > 1e-9 {
		t.Fatalf("fallback distance = %v, want 10", d)
	}
	if len(path) != 2 || path[0] != "hub" || path[1] != "island" {
		t.Fatalf("fallback path = %v, want [hub island]", path)
	}
}

func TestGetDirectDistance(t *testing.T) {
	m := buildMap(t)
	if d := m.GetDirectDistance("hub", "forest"); d != 12 {
		t.Fatalf("direct hub-forest = %v, want 12", d)
	}
	if d := m.GetDirectDistance("forest", "hub"); d != 12 {
		t.Fatalf("edges are undirected, got %v", d)
	}
	if d := m.GetDirectDistance("hub", "island"); d != NoDirectEdge {
		t.Fatalf("unconnected pair = %v, want sentinel %v", d, NoDirectEdge)
	}
}

func TestInitialize_RejectsBadData(t *testing.T) {
	m := New()
	m.AddNode(Node{ID: "a"})
	m.AddNode(Node{ID: "a"})
	if err := m.Initialize(); err == nil {
		t.Fatalf("expected duplicate node error")
	}

	m2 := New()
	m2.AddNode(Node{ID: "a"})
	m2.AddEdge("a", "ghost", 1)
	if err := m2.Initialize(); err == nil {
		t.Fatalf("expected unknown edge endpoint error")
	}
}
