package techrules

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
)

const (
	// DefaultProductCode identifies the product family of exported graphs.
	DefaultProductCode = "ROLLER_STD"
	// DefaultFileName is the file name offered for downloaded exports.
	DefaultFileName = "tech_rules_export.json"
)

// Document is the export file: the editor graph plus the runtime view
// consumed by the execution engine.
type Document struct {
	ProductCode string        `json:"productCode"`
	Graph       GraphSnapshot `json:"graph"`
	Runtime     Runtime       `json:"runtime"`
}

// GraphSnapshot is the graph with every node attribute resolved, suitable
// for reopening in the editor.
type GraphSnapshot struct {
	Nodes []ResolvedNode `json:"nodes"`
	Edges []Link         `json:"edges"`
}

// ResolvedNode is a node after attribute resolution.
type ResolvedNode struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Kind         Kind     `json:"kind"`
	TaskType     string   `json:"taskType"`
	WorkCenter   string   `json:"wc"`
	Terminal     bool     `json:"terminal"`
	KitImpact    float64  `json:"kitImpact"`
	Mandatory    bool     `json:"mandatory"`
	FormulasText string   `json:"formulasText"`
	Position     Position `json:"position"`
}

// Link is an exported edge.
type Link struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Runtime is the dependency view of the graph.
type Runtime struct {
	Tasks          []RuntimeTask        `json:"tasks"`
	FormulasByTask map[string]*Formulas `json:"formulasByTask"`
}

// RuntimeTask is one task with the task types it depends on.
type RuntimeTask struct {
	TaskType   string   `json:"taskType"`
	WorkCenter string   `json:"wc"`
	IsTerminal bool     `json:"isTerminal"`
	DependsOn  []string `json:"dependsOn"`
}

// Exporter turns a graph snapshot into a Document. It never fails: missing
// or malformed input degrades to defaults or is left out.
type Exporter struct {
	productCode      string
	distinguishKinds bool
	positions        PositionSource
	logger           *slog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithProductCode sets the product code written when the graph has none.
func WithProductCode(code string) Option {
	return func(x *Exporter) {
		if code != "" {
			x.productCode = code
		}
	}
}

// WithoutKinds treats every node as a task, as editors without start and
// finish nodes expect.
func WithoutKinds() Option {
	return func(x *Exporter) { x.distinguishKinds = false }
}

// WithPositions reads live node positions from ps before falling back to
// the positions stored on the nodes.
func WithPositions(ps PositionSource) Option {
	return func(x *Exporter) { x.positions = ps }
}

// WithLogger sets the logger used for debug output.
func WithLogger(l *slog.Logger) Option {
	return func(x *Exporter) {
		if l != nil {
			x.logger = l
		}
	}
}

// NewExporter creates an Exporter with kind distinction enabled.
func NewExporter(opts ...Option) *Exporter {
	x := &Exporter{
		productCode:      DefaultProductCode,
		distinguishKinds: true,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Export builds the export document for the current state of src.
// src is only read.
func (x *Exporter) Export(src Source) *Document {
	srcNodes := src.ListNodes()
	srcEdges := src.ListEdges()

	nodes := make([]ResolvedNode, 0, len(srcNodes))
	byID := make(map[string]int, len(srcNodes))
	for _, n := range srcNodes {
		rn := x.resolve(n)
		if _, dup := byID[rn.ID]; !dup {
			byID[rn.ID] = len(nodes)
		}
		nodes = append(nodes, rn)
	}

	edges := make([]Link, 0, len(srcEdges))
	depends := make(map[string][]string)
	for _, e := range srcEdges {
		edges = append(edges, Link{From: e.From, To: e.To})
		depends[e.To] = append(depends[e.To], e.From)
	}

	tasks := []RuntimeTask{}
	formulas := map[string]*Formulas{}
	for _, n := range nodes {
		if x.distinguishKinds && n.Kind != KindTask {
			continue
		}
		deps := []string{}
		for _, id := range depends[n.ID] {
			i, ok := byID[id]
			if !ok {
				x.logger.Debug("dropping unknown prerequisite", "task", n.TaskType, "from", id)
				continue
			}
			deps = append(deps, nodes[i].TaskType)
		}
		tasks = append(tasks, RuntimeTask{
			TaskType:   n.TaskType,
			WorkCenter: n.WorkCenter,
			IsTerminal: n.Terminal,
			DependsOn:  deps,
		})
		if f := ParseFormulas(n.FormulasText); f.Len() > 0 {
			formulas[n.TaskType] = f
		}
	}

	code := x.productCode
	if g, ok := src.(*Graph); ok && g.ProductCode != "" {
		code = g.ProductCode
	}

	return &Document{
		ProductCode: code,
		Graph:       GraphSnapshot{Nodes: nodes, Edges: edges},
		Runtime:     Runtime{Tasks: tasks, FormulasByTask: formulas},
	}
}

// Resolve returns the attributes of n as the exporter sees them.
func (x *Exporter) Resolve(n Node) ResolvedNode { return x.resolve(n) }

func (x *Exporter) resolve(n Node) ResolvedNode {
	kind := n.Kind.Normalize()
	c, d := n.Controls, n.Defaults

	rn := ResolvedNode{
		ID:           n.ID,
		Title:        n.Title,
		Kind:         kind,
		TaskType:     firstText(fallbackTaskType(kind), c.TaskType, d.TaskType),
		WorkCenter:   firstText("WC", c.WorkCenter, d.WorkCenter),
		Terminal:     first(kind == KindFinish, c.Terminal, d.Terminal),
		KitImpact:    first(0, finite(c.KitImpact), finite(d.KitImpact)),
		Mandatory:    first(true, c.Mandatory, d.Mandatory),
		FormulasText: first("", c.FormulasText, d.FormulasText),
	}

	if x.positions != nil {
		if pos, ok := x.positions.PositionOf(n.ID); ok {
			rn.Position = pos.finite()
			return rn
		}
	}
	if n.Position != nil {
		rn.Position = n.Position.finite()
	}
	return rn
}

func fallbackTaskType(k Kind) string {
	switch k {
	case KindStart:
		return "START"
	case KindFinish:
		return "FINISH"
	default:
		return "TASK"
	}
}

// first returns the first set layer, or fallback.
func first[T any](fallback T, layers ...*T) T {
	for _, l := range layers {
		if l != nil {
			return *l
		}
	}
	return fallback
}

// finite drops NaN and infinities so they fall through to the next layer.
func finite(p *float64) *float64 {
	if p == nil || math.IsNaN(*p) || math.IsInf(*p, 0) {
		return nil
	}
	return p
}

func (p Position) finite() Position {
	for i, v := range p {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			p[i] = 0
		}
	}
	return p
}

// firstText is like first but also skips empty strings.
func firstText(fallback string, layers ...*string) string {
	for _, l := range layers {
		if l != nil && *l != "" {
			return *l
		}
	}
	return fallback
}

// Encode writes doc as indented JSON.
func Encode(w io.Writer, doc *Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("techrules: encode export: %w", err)
	}
	return nil
}

// WriteFile writes doc to path as indented JSON.
func WriteFile(path string, doc *Document) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("techrules: create %s: %w", path, err)
	}
	if err := Encode(f, doc); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
