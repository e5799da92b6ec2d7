package export

import (
	"strconv"

	"github.com/duynguyendang/routescan/pkg/routes"
)

// D3Node represents a node in the D3 force-directed graph.
type D3Node struct {
	ID       string            `json:"id"`                 // Stable hex id derived from the path
	Name     string            `json:"name"`               // Segment or method label
	Kind     string            `json:"kind"`               // "root", "segment" or "method"
	Group    string            `json:"group,omitempty"`    // Method for leaves, used for colouring
	Path     string            `json:"path"`               // Full path up to this node
	Metadata map[string]string `json:"metadata,omitempty"` // Extra data (e.g. declaration count)
}

// D3Link represents a link/edge in the D3 force-directed graph.
type D3Link struct {
	Source   string `json:"source"`
	Target   string `json:"target"`
	Relation string `json:"relation"`
	Type     string `json:"type"` // "segment" or "method"
}

// D3Graph represents the full graph structure for D3.js.
type D3Graph struct {
	Nodes []D3Node `json:"nodes"`
	Links []D3Link `json:"links"`
}

// D3 converts routes into the path tree as a node/link graph.
func D3(rs []routes.Route) *D3Graph {
	tree := buildTree(rs)
	g := &D3Graph{
		Nodes: make([]D3Node, 0, len(tree)),
		Links: make([]D3Link, 0, len(tree)),
	}
	for _, n := range tree {
		node := D3Node{ID: n.id, Name: n.label, Kind: n.kind, Path: n.path}
		if n.kind == KindMethod {
			node.Group = string(n.method)
			node.Metadata = map[string]string{"declarations": strconv.Itoa(n.count)}
		}
		g.Nodes = append(g.Nodes, node)

		if n.parent == "" {
			continue
		}
		relation := "contains"
		if n.kind == KindMethod {
			relation = "handles"
		}
		g.Links = append(g.Links, D3Link{Source: n.parent, Target: n.id, Relation: relation, Type: n.kind})
	}
	return g
}
