package techrules

// Graph is a task-dependency graph as authored in the editor.
type Graph struct {
	ID          string `json:"id" yaml:"id"`
	ProductCode string `json:"productCode,omitempty" yaml:"productCode,omitempty"`
	Nodes       []Node `json:"nodes" yaml:"nodes"`
	Edges       []Edge `json:"edges" yaml:"edges"`
}

// Kind is the variant of a node. The zero value behaves as KindTask.
type Kind string

const (
	KindStart  Kind = "start"
	KindFinish Kind = "finish"
	KindTask   Kind = "task"
)

// Normalize maps empty and unknown kinds to KindTask.
func (k Kind) Normalize() Kind {
	switch k {
	case KindStart, KindFinish:
		return k
	default:
		return KindTask
	}
}

// Position is an on-canvas [x, y] coordinate owned by the editor.
type Position [2]float64

// Overrides holds optional attribute values. A nil field is "not set".
// It is used both for the editable controls of a node and for its stored
// hidden defaults.
type Overrides struct {
	TaskType     *string  `json:"taskType,omitempty" yaml:"taskType,omitempty"`
	WorkCenter   *string  `json:"wc,omitempty" yaml:"wc,omitempty"`
	Terminal     *bool    `json:"terminal,omitempty" yaml:"terminal,omitempty"`
	Mandatory    *bool    `json:"mandatory,omitempty" yaml:"mandatory,omitempty"`
	KitImpact    *float64 `json:"kitImpact,omitempty" yaml:"kitImpact,omitempty"`
	FormulasText *string  `json:"formulasText,omitempty" yaml:"formulasText,omitempty"`
}

// Node represents a task unit in the graph.
// Ref is a temporary key used only while saving a graph for edge wiring; it is never persisted.
type Node struct {
	ID       string    `json:"id,omitempty" yaml:"id,omitempty"`
	Ref      string    `json:"ref,omitempty" yaml:"ref,omitempty"`
	Kind     Kind      `json:"kind,omitempty" yaml:"kind,omitempty"`
	Title    string    `json:"title" yaml:"title"`
	Position *Position `json:"position,omitempty" yaml:"position,omitempty"`
	Controls Overrides `json:"controls" yaml:"controls"`
	Defaults Overrides `json:"defaults" yaml:"defaults"`
}

// Edge is a directed dependency: From is a prerequisite of To.
// FromRef / ToRef are temporary keys used only while saving a graph; they are never persisted.
type Edge struct {
	ID      string `json:"id,omitempty" yaml:"id,omitempty"`
	From    string `json:"from,omitempty" yaml:"from,omitempty"`
	To      string `json:"to,omitempty" yaml:"to,omitempty"`
	FromRef string `json:"fromRef,omitempty" yaml:"fromRef,omitempty"`
	ToRef   string `json:"toRef,omitempty" yaml:"toRef,omitempty"`
}

// Source lists the current nodes and edges of a graph.
type Source interface {
	ListNodes() []Node
	ListEdges() []Edge
}

// PositionSource reports the live on-canvas position of a node.
type PositionSource interface {
	PositionOf(nodeID string) (Position, bool)
}

// ListNodes implements Source.
func (g *Graph) ListNodes() []Node { return g.Nodes }

// ListEdges implements Source.
func (g *Graph) ListEdges() []Edge { return g.Edges }
