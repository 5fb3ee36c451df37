package models

import (
	"encoding/json"
	"testing"
)

func TestVec3AddAndDist(t *testing.T) {
	a := Vec3{X: 1, Y: 2, Z: 3}
	b := Vec3{X: -1, Y: 0, Z: 10}
	if got := a.Add(b); got != (Vec3{X: 0, Y: 2, Z: 13}) {
		t.Fatalf("unexpected sum %v", got)
	}
	if d := (Vec3{}).Dist(Vec3{X: 3, Y: 4}); d != 5 {
		t.Fatalf("expected distance 5, got %v", d)
	}
	if s := a.String(); s != "(1, 2, 3)" {
		t.Fatalf("unexpected string %q", s)
	}
}

func TestDistanceHeuristicSameDimensionTruncates(t *testing.T) {
	a := Location{Vec3: Vec3{X: 0, Y: 0, Z: 0}, Dim: Overworld}
	b := Location{Vec3: Vec3{X: 1, Y: 1, Z: 1}, Dim: Overworld}
	// sqrt(3) ~= 1.73
	if got := a.DistanceHeuristic(b); got != 1 {
		t.Fatalf("expected truncated distance 1, got %d", got)
	}
}

func TestDistanceHeuristicCrossDimension(t *testing.T) {
	pos := Vec3{X: 5, Y: 64, Z: -5}
	cases := []struct{ a, b Location }{
		{Location{Vec3: pos, Dim: Overworld}, Location{Vec3: pos, Dim: TheNether}},
		{Location{Vec3: pos, Dim: TheEnd}, Location{Vec3: Vec3{X: 100000}, Dim: Overworld}},
	}
	for _, c := range cases {
		if got := c.a.DistanceHeuristic(c.b); got != CrossDimensionPenalty {
			t.Fatalf("expected %d, got %d", CrossDimensionPenalty, got)
		}
	}
}

func TestDistanceDoesNotOverflow(t *testing.T) {
	a := Vec3{X: -2147483648}
	b := Vec3{X: 2147483647}
	if d := a.Dist(b); d != 4294967295 {
		t.Fatalf("unexpected distance %v", d)
	}
}

func TestLocationJSONRoundTrip(t *testing.T) {
	loc := Location{Vec3: Vec3{X: 1, Y: 2, Z: 3}, Dim: TheNether}
	data, err := json.Marshal(loc)
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}
	if string(data) != `{"vec3":{"x":1,"y":2,"z":3},"dim":"TheNether"}` {
		t.Fatalf("unexpected json %s", data)
	}
	var out Location
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if out != loc {
		t.Fatalf("mismatch after roundtrip: %v", out)
	}
	if err := json.Unmarshal([]byte(`{"vec3":{"x":1,"y":2,"z":3},"dim":"Moon"}`), &out); err == nil {
		t.Fatalf("expected error for unknown dimension")
	}
}
