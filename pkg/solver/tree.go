package solver

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/moxie/pkg/errors"
	"github.com/matzehuels/moxie/pkg/maven"
)

// Node is one occurrence of a dependency in the resolution graph.
type Node struct {
	Dependency *maven.Dependency
	Children   []*Node

	// Selected marks the occurrence mediation kept.
	Selected bool
	// Repeated marks an occurrence whose subtree was already expanded
	// elsewhere and is not shown again.
	Repeated bool
}

// Tree is the dependency graph of one scope before mediation, with the
// winning occurrences marked.
type Tree struct {
	Scope maven.Scope
	Root  *Node
}

// Tree walks scope and returns its graph. It reads POMs but fetches no
// other artifacts.
func (s *Solver) Tree(ctx context.Context, scope maven.Scope) (*Tree, error) {
	if !scope.IsValid() || scope.IsMeta() {
		return nil, errors.New(errors.ErrCodeInvalidScope, "cannot solve scope %q", scope)
	}
	if err := s.prepare(ctx); err != nil {
		return nil, err
	}
	w, err := s.walk(ctx, scope)
	if err != nil {
		return nil, err
	}
	winners := make(map[*maven.Dependency]bool)
	for _, d := range mediate(w.candidates) {
		winners[d] = true
	}
	markSelected(w.root, winners)
	return &Tree{Scope: scope, Root: w.root}, nil
}

func markSelected(n *Node, winners map[*maven.Dependency]bool) {
	for _, c := range n.Children {
		c.Selected = winners[c.Dependency]
		markSelected(c, winners)
	}
}

// Walk calls fn for every node in depth-first order with its depth below
// the root.
func (t *Tree) Walk(fn func(n *Node, depth int)) {
	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		fn(n, depth)
		for _, c := range n.Children {
			visit(c, depth+1)
		}
	}
	visit(t.Root, 0)
}

// WriteText writes the tree with box-drawing guides. Occurrences that lost
// mediation are marked "(omitted)".
func (t *Tree) WriteText(w io.Writer) error {
	var buf bytes.Buffer
	buf.WriteString(t.Root.Dependency.Coordinates())
	buf.WriteByte('\n')
	var visit func(n *Node, prefix string)
	visit = func(n *Node, prefix string) {
		for i, c := range n.Children {
			branch, next := "├── ", "│   "
			if i == len(n.Children)-1 {
				branch, next = "└── ", "    "
			}
			buf.WriteString(prefix + branch + nodeLabel(c))
			switch {
			case !c.Selected:
				buf.WriteString(" (omitted)")
			case c.Repeated:
				buf.WriteString(" (*)")
			}
			buf.WriteByte('\n')
			visit(c, prefix+next)
		}
	}
	visit(t.Root, "")
	_, err := w.Write(buf.Bytes())
	return err
}

func nodeLabel(n *Node) string {
	d := n.Dependency
	label := d.Coordinates()
	if d.Revision != "" && d.Revision != d.Version {
		label += " [" + d.Revision + "]"
	}
	if ext := d.Extension(); ext != maven.DefaultType {
		label += " @" + ext
	}
	if d.Optional {
		label += " optional"
	}
	return label
}

// ToDOT converts the tree to Graphviz DOT. Each distinct coordinate is one
// node; occurrences that lost mediation are drawn dashed.
func (t *Tree) ToDOT() string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=12];\n")
	buf.WriteString("\n")

	seen := make(map[string]bool)
	var edges []string
	t.Walk(func(n *Node, _ int) {
		id := n.Dependency.Coordinates()
		if !seen[id] {
			seen[id] = true
			attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n))}
			if !n.Selected {
				attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
			}
			fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(attrs, ", "))
		}
		for _, c := range n.Children {
			edge := fmt.Sprintf("  %q -> %q;\n", id, c.Dependency.Coordinates())
			if !seen["edge:"+edge] {
				seen["edge:"+edge] = true
				edges = append(edges, edge)
			}
		}
	})

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox drops graphviz's point-based width and height so the
// SVG scales with its container.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}
	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}
	tag := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`, w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(tag))
}
