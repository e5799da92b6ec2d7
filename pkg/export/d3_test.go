package export

import (
	"strings"
	"testing"

	"github.com/duynguyendang/routescan/pkg/routes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureRoutes() []routes.Route {
	return []routes.Route{
		{Method: routes.MethodGet, Path: "/api/users", FilePath: "/src/users.ts", LineNumber: 3},
		{Method: routes.MethodPost, Path: "/api/users", FilePath: "/src/users.ts", LineNumber: 9},
		{Method: routes.MethodGet, Path: "/api/items", FilePath: "/src/items.ts", LineNumber: 4},
		{Method: routes.MethodGet, Path: "/", FilePath: "/src/app.ts", LineNumber: 1},
		{Method: routes.MethodGet, Path: "/api/users", FilePath: "/src/legacy.ts", LineNumber: 12},
	}
}

func TestNodeID(t *testing.T) {
	assert.Equal(t, "node2f61", nodeID("/a"))
}

func TestMermaid(t *testing.T) {
	out := Mermaid(fixtureRoutes())
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")

	api, users, items := nodeID("/api"), nodeID("/api/users"), nodeID("/api/items")
	want := []string{
		"graph TD",
		`    root["/"];`,
		`    ` + api + `["api"];`,
		`    root --> ` + api + `;`,
		`    ` + users + `["users"];`,
		`    ` + api + ` --> ` + users + `;`,
		`    ` + nodeID("/api/users_GET") + `["GET"];`,
		`    ` + users + ` --> ` + nodeID("/api/users_GET") + `;`,
		`    ` + nodeID("/api/users_POST") + `["POST"];`,
		`    ` + users + ` --> ` + nodeID("/api/users_POST") + `;`,
		`    ` + items + `["items"];`,
		`    ` + api + ` --> ` + items + `;`,
		`    ` + nodeID("/api/items_GET") + `["GET"];`,
		`    ` + items + ` --> ` + nodeID("/api/items_GET") + `;`,
		`    ` + nodeID("/_GET") + `["GET"];`,
		`    root --> ` + nodeID("/_GET") + `;`,
	}
	assert.Equal(t, want, lines)
}

func TestMermaidEmpty(t *testing.T) {
	assert.Equal(t, "graph TD\n    root[\"/\"];\n", Mermaid(nil))
}

func TestMermaidEscapesQuotes(t *testing.T) {
	out := Mermaid([]routes.Route{{Method: routes.MethodGet, Path: `/say"hi`}})
	assert.Contains(t, out, `["say#quot;hi"]`)
}

func TestD3(t *testing.T) {
	g := D3(fixtureRoutes())

	// root, api, users, GET, POST, items, GET, "/" GET
	require.Len(t, g.Nodes, 8)
	assert.Len(t, g.Links, 7)

	assert.Equal(t, KindRoot, g.Nodes[0].Kind)
	assert.Equal(t, "/", g.Nodes[0].Path)

	var usersGet D3Node
	for _, n := range g.Nodes {
		if n.ID == nodeID("/api/users_GET") {
			usersGet = n
		}
	}
	assert.Equal(t, KindMethod, usersGet.Kind)
	assert.Equal(t, "GET", usersGet.Group)
	assert.Equal(t, "2", usersGet.Metadata["declarations"])

	for _, l := range g.Links {
		if l.Target == nodeID("/api/users") {
			assert.Equal(t, nodeID("/api"), l.Source)
			assert.Equal(t, "contains", l.Relation)
		}
		if l.Target == usersGet.ID {
			assert.Equal(t, "handles", l.Relation)
			assert.Equal(t, KindMethod, l.Type)
		}
	}
}

func TestD3TrailingSlashSharesLeaf(t *testing.T) {
	g := D3([]routes.Route{
		{Method: routes.MethodGet, Path: "/users", FilePath: "/src/a.ts", LineNumber: 1},
		{Method: routes.MethodGet, Path: "/users/", FilePath: "/src/a.ts", LineNumber: 2},
		{Method: routes.MethodPost, Path: "/users/", FilePath: "/src/a.ts", LineNumber: 3},
	})

	// root, users, GET, POST
	require.Len(t, g.Nodes, 4)
	assert.Len(t, g.Links, 3)

	ids := map[string]bool{}
	for _, n := range g.Nodes {
		assert.False(t, ids[n.ID], "duplicate node %s", n.ID)
		ids[n.ID] = true
	}
	get := g.Nodes[2]
	assert.Equal(t, nodeID("/users_GET"), get.ID)
	assert.Equal(t, "/users", get.Path)
	assert.Equal(t, "2", get.Metadata["declarations"])

	out := Mermaid([]routes.Route{
		{Method: routes.MethodGet, Path: "/users"},
		{Method: routes.MethodGet, Path: "/users/"},
	})
	assert.Equal(t, 1, strings.Count(out, nodeID("/users_GET")+`["GET"]`))
}

func TestD3Empty(t *testing.T) {
	g := D3(nil)
	assert.Len(t, g.Nodes, 1)
	assert.NotNil(t, g.Links)
	assert.Empty(t, g.Links)
}
