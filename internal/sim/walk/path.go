package walk

import "fmt"

// Path is the anchor-plus-offsets form consumed by the movement system.
// Anchor is in world coordinates; DX/DY are relative to it and always have
// the same, non-zero length.
type Path struct {
	Anchor Point  `json:"anchor"`
	DX     []int8 `json:"dx"`
	DY     []int8 `json:"dy"`
}

func (p Path) Len() int { return len(p.DX) }

// Decode expands the offsets back into world tiles, in walking order.
func (p Path) Decode() []Point {
	out := make([]Point, len(p.DX))
	for i := range p.DX {
		out[i] = Point{X: p.Anchor.X + int(p.DX[i]), Y: p.Anchor.Y + int(p.DY[i])}
	}
	return out
}

func (p Path) Validate() error {
	if len(p.DX) == 0 || len(p.DX) != len(p.DY) {
		return fmt.Errorf("waypoint arrays mismatch: dx=%d dy=%d", len(p.DX), len(p.DY))
	}
	return nil
}

// Encode converts a step list (local coords, ordered target to start) into a
// Path. The last step becomes the anchor; up to maxWaypoints of the remaining
// steps nearest the anchor are kept, reversed into walking order. A path with
// nothing past the anchor still yields one zero offset.
func Encode(steps []Point, origin Point, maxWaypoints int) Path {
	if maxWaypoints <= 0 {
		maxWaypoints = DefaultMaxWaypoints
	}
	n := len(steps)
	if n == 0 {
		return Path{Anchor: origin, DX: []int8{0}, DY: []int8{0}}
	}
	anchor := steps[n-1]
	rest := n - 1
	if rest == 0 {
		return Path{Anchor: anchor.Add(origin), DX: []int8{0}, DY: []int8{0}}
	}
	keep := rest
	if keep > maxWaypoints {
		keep = maxWaypoints
	}

	dx := make([]int8, keep)
	dy := make([]int8, keep)
	// steps[n-2] is the first tile walked after the anchor.
	for j := 0; j < keep; j++ {
		s := steps[n-2-j]
		dx[j] = int8(s.X - anchor.X)
		dy[j] = int8(s.Y - anchor.Y)
	}
	return Path{Anchor: anchor.Add(origin), DX: dx, DY: dy}
}
