package sim

import "math"

// MapView is an agent's fog-of-war companion to the shared Map: a bitmap of
// every cell the agent has ever seen. Revealed cells are monotone — once a
// cell is revealed it stays revealed for the agent's lifetime.
//
// MapView implements Graph over the *explored* world, so agent-side
// pathfinding only routes around walls the agent has actually seen;
// unrevealed cells are hoped to be free.
type MapView struct {
	m        *Map
	revealed [][]bool // indexed [x][y]
}

// NewMapView creates a fully fogged view of the map.
func NewMapView(m *Map) *MapView {
	v := &MapView{m: m}
	v.revealed = make([][]bool, m.Width())
	for x := range v.revealed {
		v.revealed[x] = make([]bool, m.Height())
	}
	return v
}

func (v *MapView) Width() int  { return v.m.Width() }
func (v *MapView) Height() int { return v.m.Height() }

// IsWall delegates to the underlying map (true out of bounds).
func (v *MapView) IsWall(x, y int) bool { return v.m.IsWall(x, y) }

// VisionModifier delegates to the underlying map.
func (v *MapView) VisionModifier(x, y int) float64 { return v.m.VisionModifier(x, y) }

// IsRevealed reports whether the agent has ever seen the cell.
// Out-of-bounds cells count as revealed.
func (v *MapView) IsRevealed(x, y int) bool {
	if !v.m.InBounds(x, y) {
		return true
	}
	return v.revealed[x][y]
}

// RevealedCount returns how many cells have been revealed so far.
func (v *MapView) RevealedCount() int {
	n := 0
	for x := range v.revealed {
		for y := range v.revealed[x] {
			if v.revealed[x][y] {
				n++
			}
		}
	}
	return n
}

// RevealAll lifts the fog from the whole map.
func (v *MapView) RevealAll() {
	for x := range v.revealed {
		for y := range v.revealed[x] {
			v.revealed[x][y] = true
		}
	}
}

// RevealVisible reveals every cell inside the vision cone rooted at cell
// (x0, y0): within radius, within viewAngle/2 of heading, and with a clear
// Bresenham sight line. A wall cell at the end of a clear line is revealed —
// walls become visible once seen. A tower is elevated, so sight lines from a
// tower ignore intervening walls.
func (v *MapView) RevealVisible(x0, y0 int, radius, viewAngle, heading float64, inTower bool) {
	if !v.m.InBounds(x0, y0) {
		return
	}
	// The observer always sees the cell they stand in.
	v.revealed[x0][y0] = true

	r := int(math.Ceil(radius)) + 1
	for x := x0 - r; x <= x0+r; x++ {
		for y := y0 - r; y <= y0+r; y++ {
			if !v.m.InBounds(x, y) {
				continue
			}
			dx := float64(x - x0)
			dy := float64(y - y0)
			if dx*dx+dy*dy > radius*radius {
				continue
			}
			angle := math.Atan2(float64(y0-y), float64(x0-x)) * 180 / math.Pi
			angle = NormalizeHeading(angle + heading + 90)
			if math.Abs(angle) > viewAngle/2 {
				continue
			}
			if !inTower && !TileLOS(v.m, x0, y0, x, y) {
				continue
			}
			v.revealed[x][y] = true
		}
	}
}

// --- Graph implementation over the explored grid ---

// passable reports whether the agent believes it can stand in the cell: in
// bounds and not a wall it has seen. Fogged cells pass.
func (v *MapView) passable(c Cell) bool {
	if !v.m.InBounds(c.X, c.Y) {
		return false
	}
	return !(v.revealed[c.X][c.Y] && v.m.walls[c.X][c.Y])
}

var axisSteps = [4][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
var diagSteps = [4][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}

// Neighbors returns the passable 8-connected neighbours of c. Diagonal steps
// are allowed only when both adjacent axis-aligned cells are passable, so
// paths never cut corners.
func (v *MapView) Neighbors(c Cell) []Cell {
	out := make([]Cell, 0, 8)
	for _, d := range axisSteps {
		n := Cell{c.X + d[0], c.Y + d[1]}
		if v.passable(n) {
			out = append(out, n)
		}
	}
	for _, d := range diagSteps {
		n := Cell{c.X + d[0], c.Y + d[1]}
		if v.passable(n) &&
			v.passable(Cell{c.X + d[0], c.Y}) &&
			v.passable(Cell{c.X, c.Y + d[1]}) {
			out = append(out, n)
		}
	}
	return out
}

// Cost returns sqrt(2) for diagonal steps and 1 for straight ones.
func (v *MapView) Cost(a, b Cell) float64 {
	if a.X != b.X && a.Y != b.Y {
		return math.Sqrt2
	}
	return 1
}

// FindPath runs A* over the explored grid between two continuous positions
// and returns the path as cell-center waypoints. When the destination cell
// itself is impassable the nearest passable neighbour stands in for it.
// Returns nil when no path exists.
func (v *MapView) FindPath(from, to Position) []Position {
	start := from.Tile()
	goal := to.Tile()

	if start == goal {
		return []Position{start.Center()}
	}
	if !v.passable(goal) {
		sub, ok := v.nearestPassableNeighbor(goal)
		if !ok {
			return nil
		}
		goal = sub
		if start == goal {
			return []Position{start.Center()}
		}
	}

	cells := AStar(v, start, goal, DiagonalHeuristic)
	if cells == nil {
		return nil
	}
	path := make([]Position, len(cells))
	for i, c := range cells {
		path[i] = c.Center()
	}
	return path
}

// nearestPassableNeighbor picks the passable 8-neighbour of c closest to c
// by the search heuristic.
func (v *MapView) nearestPassableNeighbor(c Cell) (Cell, bool) {
	best := Cell{}
	bestCost := math.Inf(1)
	found := false
	for _, d := range [8][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}, {1, 1}, {1, -1}, {-1, 1}, {-1, -1}} {
		n := Cell{c.X + d[0], c.Y + d[1]}
		if !v.passable(n) {
			continue
		}
		if cost := DiagonalHeuristic(c, n); cost < bestCost {
			best, bestCost, found = n, cost, true
		}
	}
	return best, found
}
