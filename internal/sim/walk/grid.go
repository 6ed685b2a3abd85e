package walk

// Grid is a square tile window with a blocked mask. Its StepCount is a
// breadth-first search over the 8 neighbours; diagonal moves need both
// adjacent orthogonal tiles open.
type Grid struct {
	origin  Point
	size    int
	blocked []bool
}

func NewGrid(origin Point, size int) *Grid {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Grid{origin: origin, size: size, blocked: make([]bool, size*size)}
}

func (g *Grid) Origin() Point { return g.origin }
func (g *Grid) Size() int     { return g.size }

// Recenter moves the window. Blocked tiles are cleared; the owner reloads
// them for the new area.
func (g *Grid) Recenter(origin Point) {
	g.origin = origin
	for i := range g.blocked {
		g.blocked[i] = false
	}
}

func (g *Grid) InBounds(p Point) bool { return inWindow(p, g.size) }

// SetBlocked marks a local tile.
func (g *Grid) SetBlocked(p Point, blocked bool) {
	if !g.InBounds(p) {
		return
	}
	g.blocked[p.Y*g.size+p.X] = blocked
}

func (g *Grid) Blocked(p Point) bool {
	if !g.InBounds(p) {
		return true
	}
	return g.blocked[p.Y*g.size+p.X]
}

// SetBlockedWorld marks a tile given in world coordinates.
func (g *Grid) SetBlockedWorld(p Point, blocked bool) {
	g.SetBlocked(p.Sub(g.origin), blocked)
}

func (g *Grid) BlockedWorld(p Point) bool {
	return g.Blocked(p.Sub(g.origin))
}

// searchOrder keeps BFS expansion deterministic.
var searchOrder = [...]Point{
	{X: 0, Y: -1},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: -1, Y: 0},
	{X: 1, Y: -1},
	{X: 1, Y: 1},
	{X: -1, Y: 1},
	{X: -1, Y: -1},
}

func (g *Grid) StepCount(start, target Point) ([]Point, bool) {
	if !g.InBounds(start) || !g.InBounds(target) || g.Blocked(target) {
		return nil, false
	}
	if start == target {
		return []Point{start}, true
	}

	n := g.size * g.size
	prev := make([]int32, n)
	for i := range prev {
		prev[i] = -1
	}
	idx := func(p Point) int { return p.Y*g.size + p.X }
	startIdx := idx(start)
	prev[startIdx] = int32(startIdx)

	queue := make([]Point, 0, 256)
	queue = append(queue, start)
	found := false
	for head := 0; head < len(queue) && !found; head++ {
		cur := queue[head]
		for _, d := range searchOrder {
			np := cur.Add(d)
			if !g.InBounds(np) || g.Blocked(np) {
				continue
			}
			if d.X != 0 && d.Y != 0 {
				if g.Blocked(Point{X: cur.X + d.X, Y: cur.Y}) || g.Blocked(Point{X: cur.X, Y: cur.Y + d.Y}) {
					continue
				}
			}
			ni := idx(np)
			if prev[ni] != -1 {
				continue
			}
			prev[ni] = int32(idx(cur))
			if np == target {
				found = true
				break
			}
			queue = append(queue, np)
		}
	}
	if !found {
		return nil, false
	}

	steps := make([]Point, 0, 32)
	for i := idx(target); ; i = int(prev[i]) {
		steps = append(steps, Point{X: i % g.size, Y: i / g.size})
		if i == startIdx {
			break
		}
	}
	return steps, true
}
