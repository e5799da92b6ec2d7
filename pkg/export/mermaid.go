package export

import (
	"fmt"
	"strings"

	"github.com/duynguyendang/routescan/pkg/routes"
)

// Mermaid renders routes as a top-down Mermaid flowchart of path segments
// with one leaf per HTTP method.
func Mermaid(rs []routes.Route) string {
	var b strings.Builder
	b.WriteString("graph TD\n")
	for _, n := range buildTree(rs) {
		fmt.Fprintf(&b, "    %s[\"%s\"];\n", n.id, mermaidLabel(n.label))
		if n.parent != "" {
			fmt.Fprintf(&b, "    %s --> %s;\n", n.parent, n.id)
		}
	}
	return b.String()
}

func mermaidLabel(s string) string {
	return strings.ReplaceAll(s, `"`, "#quot;")
}
