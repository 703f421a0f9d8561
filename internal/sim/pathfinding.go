package sim

import (
	"container/heap"
	"math"
)

// Graph is the interface A* and Dijkstra traverse. The fog-of-war MapView is
// the one implementation used by agents, but anything grid-shaped works.
type Graph interface {
	// Neighbors returns the cells reachable in one step from c.
	Neighbors(c Cell) []Cell
	// Cost returns the cost of stepping between two adjacent cells.
	Cost(a, b Cell) float64
}

// DiagonalHeuristic is the admissible octile-distance heuristic for grids
// with unit straight moves and sqrt(2) diagonal moves.
func DiagonalHeuristic(a, b Cell) float64 {
	dx := math.Abs(float64(a.X - b.X))
	dy := math.Abs(float64(a.Y - b.Y))
	return dx + dy + (math.Sqrt2-2)*math.Min(dx, dy)
}

// --- priority queue ---

type pqItem struct {
	cell Cell
	f    float64 // cost so far + heuristic
	h    float64 // heuristic alone, used as a tie-breaker
}

type priorityQueue []pqItem

func (pq priorityQueue) Len() int { return len(pq) }
func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].f != pq[j].f {
		return pq[i].f < pq[j].f
	}
	return pq[i].h < pq[j].h
}
func (pq priorityQueue) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }
func (pq *priorityQueue) Push(x interface{}) { *pq = append(*pq, x.(pqItem)) }
func (pq *priorityQueue) Pop() interface{} {
	old := *pq
	it := old[len(old)-1]
	*pq = old[:len(old)-1]
	return it
}

// AStar searches graph g from start to goal using the given heuristic.
// It returns the cell path including both endpoints, or nil when the goal is
// unreachable.
func AStar(g Graph, start, goal Cell, heuristic func(a, b Cell) float64) []Cell {
	frontier := &priorityQueue{{cell: start}}
	heap.Init(frontier)

	cameFrom := map[Cell]Cell{start: start}
	costSoFar := map[Cell]float64{start: 0}

	for frontier.Len() > 0 {
		current := heap.Pop(frontier).(pqItem).cell
		if current == goal {
			break
		}
		for _, next := range g.Neighbors(current) {
			newCost := costSoFar[current] + g.Cost(current, next)
			if prev, seen := costSoFar[next]; !seen || newCost < prev {
				costSoFar[next] = newCost
				h := heuristic(goal, next)
				heap.Push(frontier, pqItem{cell: next, f: newCost + h, h: h})
				cameFrom[next] = current
			}
		}
	}
	return reconstructPath(cameFrom, start, goal)
}

// Dijkstra is AStar without a heuristic: uniform-cost search from start to
// goal. Returns nil when no path exists.
func Dijkstra(g Graph, start, goal Cell) []Cell {
	return AStar(g, start, goal, func(Cell, Cell) float64 { return 0 })
}

// reconstructPath walks cameFrom back from goal to start. Returns nil when
// goal was never reached.
func reconstructPath(cameFrom map[Cell]Cell, start, goal Cell) []Cell {
	if _, ok := cameFrom[goal]; !ok {
		return nil
	}
	var path []Cell
	for current := goal; current != start; current = cameFrom[current] {
		path = append(path, current)
	}
	path = append(path, start)
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}
