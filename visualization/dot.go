// Package visualization renders machine definitions as Graphviz graphs.
package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/umlsm"
)

// DOTGenerator generates Graphviz DOT format representations of state machines
type DOTGenerator[C any] struct {
	machine *umlsm.StateMachine[C]
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowGuards      bool
	ShowEffects     bool
	RankDirection   string // "TB", "LR", "BT", "RL"
	NodeShape       string
	CompositeColor  string
	OrthogonalColor string
	PseudoColor     string
}

// DefaultDOTOptions returns the options used when none are given
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowGuards:      true,
		ShowEffects:     true,
		RankDirection:   "TB",
		NodeShape:       "box",
		CompositeColor:  "lightcyan",
		OrthogonalColor: "lavender",
		PseudoColor:     "lightyellow",
	}
}

// NewDOTGenerator creates a new DOT generator for the given machine
func NewDOTGenerator[C any](m *umlsm.StateMachine[C], options ...DOTOptions) *DOTGenerator[C] {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}
	return &DOTGenerator[C]{machine: m, options: opts}
}

// Generate creates a DOT representation of the state machine. Composite
// states become clusters, one nested cluster per region when orthogonal.
func (g *DOTGenerator[C]) Generate() (string, error) {
	if g.machine == nil {
		return "", fmt.Errorf("no machine to render")
	}
	var dot strings.Builder
	var emitted []*umlsm.Vertex[C]

	fmt.Fprintf(&dot, "digraph %q {\n", g.machine.ID())
	fmt.Fprintf(&dot, "  rankdir=%s;\n", g.options.RankDirection)
	fmt.Fprintf(&dot, "  compound=true;\n")
	fmt.Fprintf(&dot, "  node [shape=%s];\n", g.options.NodeShape)
	dot.WriteString("  edge [fontsize=10];\n\n")

	for _, cp := range g.machine.ConnectionPoints() {
		emitted = append(emitted, g.writeVertex(&dot, cp, "  ")...)
	}
	regions := g.machine.Regions()
	for _, r := range regions {
		if len(regions) > 1 {
			emitted = append(emitted, g.writeRegion(&dot, r, "  ")...)
			continue
		}
		for _, v := range r.Subvertices() {
			emitted = append(emitted, g.writeVertex(&dot, v, "  ")...)
		}
	}

	dot.WriteString("\n")
	for _, v := range emitted {
		for _, t := range v.Outgoing() {
			g.writeTransition(&dot, t)
		}
	}
	dot.WriteString("}\n")
	return dot.String(), nil
}

func (g *DOTGenerator[C]) writeRegion(dot *strings.Builder, r *umlsm.Region[C], indent string) []*umlsm.Vertex[C] {
	fmt.Fprintf(dot, "%ssubgraph %q {\n", indent, "cluster_"+r.ID())
	fmt.Fprintf(dot, "%s  label=%q;\n", indent, title(r.Name(), r.ID()))
	fmt.Fprintf(dot, "%s  style=dashed;\n", indent)
	var emitted []*umlsm.Vertex[C]
	for _, v := range r.Subvertices() {
		emitted = append(emitted, g.writeVertex(dot, v, indent+"  ")...)
	}
	fmt.Fprintf(dot, "%s}\n", indent)
	return emitted
}

// writeVertex writes v and everything it contains, returning the vertices
// whose outgoing transitions still need an edge.
func (g *DOTGenerator[C]) writeVertex(dot *strings.Builder, v *umlsm.Vertex[C], indent string) []*umlsm.Vertex[C] {
	if !v.IsComposite() {
		fmt.Fprintf(dot, "%s%q [%s];\n", indent, v.ID(), g.attributes(v))
		return []*umlsm.Vertex[C]{v}
	}

	color := g.options.CompositeColor
	if v.IsOrthogonal() {
		color = g.options.OrthogonalColor
	}
	fmt.Fprintf(dot, "%ssubgraph %q {\n", indent, "cluster_"+v.ID())
	fmt.Fprintf(dot, "%s  label=%q;\n", indent, title(v.Name(), v.ID()))
	fmt.Fprintf(dot, "%s  style=\"rounded,filled\";\n", indent)
	fmt.Fprintf(dot, "%s  fillcolor=%s;\n", indent, color)
	fmt.Fprintf(dot, "%s  %q [shape=box style=rounded label=%q];\n", indent, v.ID(), title(v.Name(), v.ID()))

	emitted := []*umlsm.Vertex[C]{v}
	for _, cp := range v.ConnectionPoints() {
		emitted = append(emitted, g.writeVertex(dot, cp, indent+"  ")...)
	}
	for _, cpr := range v.Connections() {
		emitted = append(emitted, g.writeVertex(dot, cpr, indent+"  ")...)
	}
	for _, r := range v.Regions() {
		if v.IsOrthogonal() {
			emitted = append(emitted, g.writeRegion(dot, r, indent+"  ")...)
			continue
		}
		for _, sub := range r.Subvertices() {
			emitted = append(emitted, g.writeVertex(dot, sub, indent+"  ")...)
		}
	}
	fmt.Fprintf(dot, "%s}\n", indent)
	return emitted
}

func (g *DOTGenerator[C]) attributes(v *umlsm.Vertex[C]) string {
	switch {
	case v.IsFinal():
		return fmt.Sprintf("shape=doublecircle label=%q", title(v.Name(), v.ID()))
	case v.Kind() == umlsm.KindConnectionPointReference:
		return fmt.Sprintf("shape=cds label=%q", title(v.Name(), v.ID()))
	case v.IsPseudo():
		return g.pseudoAttributes(v)
	default:
		return fmt.Sprintf("label=%q", title(v.Name(), v.ID()))
	}
}

func (g *DOTGenerator[C]) pseudoAttributes(v *umlsm.Vertex[C]) string {
	fill := fmt.Sprintf("style=filled fillcolor=%s", g.options.PseudoColor)
	switch v.PseudoKind() {
	case umlsm.Initial:
		return `shape=point width=0.2 label=""`
	case umlsm.Choice:
		return fmt.Sprintf("shape=diamond %s label=%q", fill, title(v.Name(), v.ID()))
	case umlsm.Junction:
		return `shape=point width=0.1 label=""`
	case umlsm.Fork, umlsm.Join:
		return `shape=box style=filled fillcolor=black height=0.05 width=1 label=""`
	case umlsm.ShallowHistory:
		return fmt.Sprintf("shape=circle %s label=\"H\"", fill)
	case umlsm.DeepHistory:
		return fmt.Sprintf("shape=circle %s label=\"H*\"", fill)
	case umlsm.EntryPoint:
		return fmt.Sprintf("shape=circle width=0.2 label=\"\" xlabel=%q", title(v.Name(), v.ID()))
	case umlsm.ExitPoint:
		return fmt.Sprintf("shape=circle width=0.2 style=bold label=\"x\" xlabel=%q", title(v.Name(), v.ID()))
	case umlsm.Terminate:
		return `shape=none label="X"`
	default:
		return fmt.Sprintf("label=%q", title(v.Name(), v.ID()))
	}
}

func (g *DOTGenerator[C]) writeTransition(dot *strings.Builder, t *umlsm.Transition[C]) {
	attrs := []string{fmt.Sprintf("label=%q", g.label(t))}
	if t.Kind() == umlsm.Local {
		attrs = append(attrs, "style=dashed")
	}
	fmt.Fprintf(dot, "  %q -> %q [%s];\n", t.Source().ID(), t.Target().ID(), strings.Join(attrs, " "))
}

// label renders a transition as "trigger, trigger [guard] / effect"
func (g *DOTGenerator[C]) label(t *umlsm.Transition[C]) string {
	var names []string
	for _, tr := range t.Triggers() {
		names = append(names, tr.Name())
	}
	label := strings.Join(names, ", ")
	if g.options.ShowGuards && t.Guard() != nil {
		label += " [guard]"
	}
	if g.options.ShowEffects && len(t.Effects()) > 0 {
		label += " / effect"
	}
	return strings.TrimSpace(label)
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator[C]) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}
	return os.WriteFile(filename, []byte(content), 0o644)
}

// GenerateSVG pipes the DOT representation through the Graphviz dot binary
func (g *DOTGenerator[C]) GenerateSVG() (string, error) {
	content, err := g.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(content)
	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}
	return out.String(), nil
}

func title(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
