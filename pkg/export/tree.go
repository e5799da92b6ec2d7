package export

import (
	"encoding/hex"
	"strings"

	"github.com/duynguyendang/routescan/pkg/routes"
)

// Node kinds in the route tree.
const (
	KindRoot    = "root"
	KindSegment = "segment"
	KindMethod  = "method"
)

const rootID = "root"

type treeNode struct {
	id     string
	parent string // empty for the root
	label  string
	kind   string
	path   string
	method routes.Method
	count  int // declarations behind a method leaf
}

// buildTree lays routes out as root -> one node per path prefix -> one
// leaf per method. Nodes come back in first-seen order, parents first.
func buildTree(rs []routes.Route) []treeNode {
	nodes := []treeNode{{id: rootID, label: "/", kind: KindRoot, path: "/"}}
	index := map[string]int{rootID: 0}

	add := func(n treeNode) int {
		if i, ok := index[n.id]; ok {
			return i
		}
		index[n.id] = len(nodes)
		nodes = append(nodes, n)
		return len(nodes) - 1
	}

	for _, group := range routes.GroupByPath(rs) {
		parent := rootID
		current := ""
		for _, seg := range strings.Split(group.Path, "/") {
			if seg == "" {
				continue
			}
			current += "/" + seg
			id := nodeID(current)
			add(treeNode{id: id, parent: parent, label: seg, kind: KindSegment, path: current})
			parent = id
		}
		// Leaves hang off the normalized prefix, so "/users" and "/users/"
		// share one leaf per method.
		if current == "" {
			current = "/"
		}
		for _, r := range group.Routes {
			i := add(treeNode{
				id:     nodeID(current + "_" + string(r.Method)),
				parent: parent,
				label:  string(r.Method),
				kind:   KindMethod,
				path:   current,
				method: r.Method,
			})
			nodes[i].count++
		}
	}
	return nodes
}

func nodeID(key string) string {
	return "node" + hex.EncodeToString([]byte(key))
}
