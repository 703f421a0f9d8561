package sim

// wallGrid is the subset of Map used by line-of-sight checks.
type wallGrid interface {
	IsWall(x, y int) bool
}

// TileLOS walks the Bresenham line between two cells and reports whether the
// sight line is clear. Only intermediate cells block: the start cell (the
// observer stands in it) and the destination cell (a wall becomes visible
// the moment it is seen) never do.
func TileLOS(g wallGrid, x0, y0, x1, y1 int) bool {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := 1
	if x0 > x1 {
		sx = -1
	}
	sy := 1
	if y0 > y1 {
		sy = -1
	}

	err := dx - dy
	x, y := x0, y0
	for {
		if x == x1 && y == y1 {
			return true
		}
		if (x != x0 || y != y0) && g.IsWall(x, y) {
			return false
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x += sx
		}
		if e2 < dx {
			err += dx
			y += sy
		}
	}
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
