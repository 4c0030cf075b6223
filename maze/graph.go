package maze

import (
	"errors"

	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

var (
	ErrNoSolution = errors.New("exit is not reachable from start")
)

// NodeID maps a position to the id of its node in Graph.
func (g *Grid) NodeID(p Position) int64 {
	return int64(p.Y*g.width + p.X)
}

// PositionOf maps a node id of Graph back to a position.
func (g *Grid) PositionOf(id int64) Position {
	return Position{X: int(id) % g.width, Y: int(id) / g.width}
}

// Graph returns the undirected graph of non-wall cells joined by 4-adjacency,
// together with its edge count.
func (g *Grid) Graph() (*simple.UndirectedGraph, int) {
	ug := simple.NewUndirectedGraph()
	edges := 0
	for y := 0; y < g.height; y++ {
		for x := 0; x < g.width; x++ {
			p := Position{X: x, Y: y}
			if g.State(p) == Wall {
				continue
			}
			node := simple.Node(g.NodeID(p))
			if ug.Node(node.ID()) == nil {
				ug.AddNode(node)
			}
			for _, d := range [2]Direction{Right, Down} {
				q := p.Step(d)
				if g.State(q) == Wall {
					continue
				}
				ug.SetEdge(ug.NewEdge(node, simple.Node(g.NodeID(q))))
				edges++
			}
		}
	}
	return ug, edges
}

// IsPerfect reports whether the open cells form a spanning tree:
// a single connected component with exactly one edge fewer than nodes.
func (g *Grid) IsPerfect() bool {
	ug, edges := g.Graph()
	nodes := ug.Nodes().Len()
	if nodes == 0 {
		return false
	}
	return len(topo.ConnectedComponents(ug)) == 1 && edges == nodes-1
}

// SolutionLength returns the number of moves on the shortest walk from start to exit.
func (g *Grid) SolutionLength() (int, error) {
	ug, _ := g.Graph()
	from := ug.Node(g.NodeID(g.start))
	if from == nil || ug.Node(g.NodeID(g.exit)) == nil {
		return 0, ErrNoSolution
	}
	shortest := path.DijkstraFrom(from, ug)
	nodes, _ := shortest.To(g.NodeID(g.exit))
	if len(nodes) == 0 {
		return 0, ErrNoSolution
	}
	return len(nodes) - 1, nil
}
