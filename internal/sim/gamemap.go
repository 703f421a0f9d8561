package sim

import "math/rand"

// Gate is a door or window: a generally unpassable block that can be opened
// by interacting with it. Gates are stored and serialized but not exercised
// by any core predicate yet.
type Gate struct {
	Location Position
	Open     bool
}

// Map holds the static world: walls, per-tile vision modifiers, targets,
// towers and markers. The size is fixed at construction; during a run the
// map is never mutated.
type Map struct {
	width  int
	height int

	walls          [][]bool    // indexed [x][y]
	visionModifier [][]float64 // indexed [x][y], each in [0, 1]

	targets []Position
	towers  []Position
	markers []Marker
	gates   []Gate
}

// NewMap creates an empty map of the given size with no walls and a vision
// modifier of 1.0 everywhere.
func NewMap(width, height int) *Map {
	m := &Map{width: width, height: height}
	m.walls = make([][]bool, width)
	m.visionModifier = make([][]float64, width)
	for x := 0; x < width; x++ {
		m.walls[x] = make([]bool, height)
		m.visionModifier[x] = make([]float64, height)
		for y := 0; y < height; y++ {
			m.visionModifier[x][y] = 1.0
		}
	}
	return m
}

func (m *Map) Width() int  { return m.width }
func (m *Map) Height() int { return m.height }

// InBounds reports whether the cell lies on the map.
func (m *Map) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < m.width && y < m.height
}

// IsWall reports whether the cell is a wall. Out-of-bounds cells count as
// walls so agents can never leave the playfield.
func (m *Map) IsWall(x, y int) bool {
	if !m.InBounds(x, y) {
		return true
	}
	return m.walls[x][y]
}

// SetWall places or removes a wall. Out-of-bounds calls are ignored.
func (m *Map) SetWall(x, y int, wall bool) {
	if m.InBounds(x, y) {
		m.walls[x][y] = wall
	}
}

// SetWallRectangle fills only the four edges of the rectangle spanned by the
// two corners (inclusive), leaving the interior untouched.
func (m *Map) SetWallRectangle(x0, y0, x1, y1 int, wall bool) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for x := x0; x <= x1; x++ {
		m.SetWall(x, y0, wall)
		m.SetWall(x, y1, wall)
	}
	for y := y0; y <= y1; y++ {
		m.SetWall(x0, y, wall)
		m.SetWall(x1, y, wall)
	}
}

// VisionModifier returns the vision multiplier of the cell, 1.0 out of
// bounds.
func (m *Map) VisionModifier(x, y int) float64 {
	if !m.InBounds(x, y) {
		return 1.0
	}
	return m.visionModifier[x][y]
}

// SetVision sets the vision multiplier of a cell, clamped into [0, 1].
func (m *Map) SetVision(x, y int, v float64) {
	if m.InBounds(x, y) {
		m.visionModifier[x][y] = clamp01(v)
	}
}

// SetVisionArea sets the vision multiplier of every cell in the rectangle
// spanned by the two corners (inclusive).
func (m *Map) SetVisionArea(x0, y0, x1, y1 int, v float64) {
	if x0 > x1 {
		x0, x1 = x1, x0
	}
	if y0 > y1 {
		y0, y1 = y1, y0
	}
	for x := x0; x <= x1; x++ {
		for y := y0; y <= y1; y++ {
			m.SetVision(x, y, v)
		}
	}
}

func (m *Map) Targets() []Position { return m.targets }
func (m *Map) Towers() []Position  { return m.towers }
func (m *Map) Markers() []Marker   { return m.markers }
func (m *Map) Gates() []Gate       { return m.gates }

// AddTarget adds a target point.
func (m *Map) AddTarget(x, y float64) {
	m.targets = append(m.targets, Pos(x, y))
}

// RemoveTarget removes the first target within Manhattan distance 2 of the
// given point.
func (m *Map) RemoveTarget(x, y float64) {
	for i, t := range m.targets {
		if manhattan(t, x, y) <= 2 {
			m.targets = append(m.targets[:i], m.targets[i+1:]...)
			return
		}
	}
}

// AddTower adds a camera tower position.
func (m *Map) AddTower(x, y float64) {
	m.towers = append(m.towers, Pos(x, y))
}

// RemoveTower removes the first tower within Manhattan distance 2 of the
// given point.
func (m *Map) RemoveTower(x, y float64) {
	for i, t := range m.towers {
		if manhattan(t, x, y) <= 2 {
			m.towers = append(m.towers[:i], m.towers[i+1:]...)
			return
		}
	}
}

// AddMarker places a marker on the map.
func (m *Map) AddMarker(mk Marker) {
	m.markers = append(m.markers, mk)
}

func manhattan(p Position, x, y float64) float64 {
	return abs(p.X()-x) + abs(p.Y()-y)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// --- generators ---

const (
	genWallRatio   = 0.02
	genLowVisRatio = 0.02
	genNumTargets  = 4
	genNumTowers   = 10
)

// BlankMap returns an empty walled-in playfield of the given size: a border
// of walls around open ground.
func BlankMap(width, height int) *Map {
	m := NewMap(width, height)
	m.SetWallRectangle(0, 0, width-1, height-1, true)
	return m
}

// GenerateRandomMap scatters walls, low-vision patches, targets and towers
// over a bordered map. Layout depends only on the rng passed in.
func GenerateRandomMap(width, height int, rng *rand.Rand) *Map {
	m := BlankMap(width, height)

	cell := func() (int, int) {
		return 1 + rng.Intn(width-2), 1 + rng.Intn(height-2)
	}

	for i := 0; i < int(genWallRatio*float64(width*height)); i++ {
		x, y := cell()
		m.walls[x][y] = true
	}
	for i := 0; i < int(genLowVisRatio*float64(width*height)); i++ {
		x, y := cell()
		m.visionModifier[x][y] = rng.Float64()*0.75 + 0.25
	}
	for i := 0; i < genNumTargets; i++ {
		x, y := cell()
		if m.walls[x][y] {
			m.walls[x][y] = false
		}
		m.AddTarget(float64(x)+0.5, float64(y)+0.5)
	}
	for i := 0; i < genNumTowers; i++ {
		x, y := cell()
		m.AddTower(float64(x), float64(y))
	}
	return m
}
