package models

import (
	"fmt"
	"math"
)

// CrossDimensionPenalty is the travel cost reported between locations that
// live in different dimensions.
const CrossDimensionPenalty = 1000

// Vec3 is a block position in the world.
type Vec3 struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
	Z int32 `json:"z"`
}

// Add returns the component-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Dist returns the Euclidean distance between v and o.
func (v Vec3) Dist(o Vec3) float64 {
	dx := int64(o.X) - int64(v.X)
	dy := int64(o.Y) - int64(v.Y)
	dz := int64(o.Z) - int64(v.Z)
	return math.Sqrt(float64(dx*dx + dy*dy + dz*dz))
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%d, %d, %d)", v.X, v.Y, v.Z)
}

// Dimension is one of the fixed world partitions.
type Dimension uint8

const (
	Overworld Dimension = iota
	TheNether
	TheEnd
)

var dimensionNames = map[Dimension]string{
	Overworld: "Overworld",
	TheNether: "TheNether",
	TheEnd:    "TheEnd",
}

func (d Dimension) String() string {
	if name, ok := dimensionNames[d]; ok {
		return name
	}
	return fmt.Sprintf("Dimension(%d)", uint8(d))
}

// Valid reports whether d is one of the known dimensions.
func (d Dimension) Valid() bool {
	_, ok := dimensionNames[d]
	return ok
}

// MarshalText encodes the dimension by name so JSON and map keys read naturally.
func (d Dimension) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, fmt.Errorf("unknown dimension %d", uint8(d))
	}
	return []byte(d.String()), nil
}

// UnmarshalText parses a dimension name.
func (d *Dimension) UnmarshalText(text []byte) error {
	dim, err := ParseDimension(string(text))
	if err != nil {
		return err
	}
	*d = dim
	return nil
}

// ParseDimension resolves a dimension by name.
func ParseDimension(name string) (Dimension, error) {
	for dim, n := range dimensionNames {
		if n == name {
			return dim, nil
		}
	}
	return 0, fmt.Errorf("unknown dimension %q", name)
}

// Location identifies a storage container by position and dimension. It is
// comparable and used directly as a map key.
type Location struct {
	Vec3 Vec3      `json:"vec3"`
	Dim  Dimension `json:"dim"`
}

// DistanceHeuristic approximates the cost of travelling from l to other.
// Locations in different dimensions always cost CrossDimensionPenalty.
func (l Location) DistanceHeuristic(other Location) int {
	if l.Dim != other.Dim {
		return CrossDimensionPenalty
	}
	return int(l.Vec3.Dist(other.Vec3))
}

func (l Location) String() string {
	return fmt.Sprintf("%s@%s", l.Vec3, l.Dim)
}
