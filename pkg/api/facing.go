package api

import "strings"

// Facing is one side of a cube. Values can be OR-ed together into a mask;
// a mask is only meaningful as a set of flags.
type Facing uint8

const (
	Down  Facing = 1 << iota // ( 0,-1, 0)
	Up                       // ( 0, 1, 0)
	North                    // ( 0, 0,-1)
	South                    // ( 0, 0, 1)
	West                     // (-1, 0, 0)
	East                     // ( 1, 0, 0)
)

// AllFaces is the mask covering every side.
const AllFaces = Down | Up | North | South | West | East

// Faces lists the six single faces in index order.
var Faces = [6]Facing{Down, Up, North, South, West, East}

// Has reports whether every face of f is also in mask.
func (mask Facing) Has(f Facing) bool {
	return f != 0 && mask&f == f
}

// Empty reports whether no face is set.
func (mask Facing) Empty() bool {
	return mask == 0
}

// Index returns the position of a single face in Faces, or -1 for masks.
func (f Facing) Index() int {
	for i, face := range Faces {
		if face == f {
			return i
		}
	}
	return -1
}

// Opposite returns the face on the other side of the cube. Masks are
// mirrored face by face.
func (f Facing) Opposite() Facing {
	var out Facing
	if f&Down != 0 {
		out |= Up
	}
	if f&Up != 0 {
		out |= Down
	}
	if f&North != 0 {
		out |= South
	}
	if f&South != 0 {
		out |= North
	}
	if f&West != 0 {
		out |= East
	}
	if f&East != 0 {
		out |= West
	}
	return out
}

// Offset returns the unit vector pointing out of a single face.
func (f Facing) Offset() (x, y, z int) {
	switch f {
	case Down:
		return 0, -1, 0
	case Up:
		return 0, 1, 0
	case North:
		return 0, 0, -1
	case South:
		return 0, 0, 1
	case West:
		return -1, 0, 0
	case East:
		return 1, 0, 0
	}
	return 0, 0, 0
}

var faceNames = [6]string{"down", "up", "north", "south", "west", "east"}

// String returns the face names joined by '|', e.g. "north|south".
func (f Facing) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	for i, face := range Faces {
		if f&face != 0 {
			parts = append(parts, faceNames[i])
		}
	}
	return strings.Join(parts, "|")
}
