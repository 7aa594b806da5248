package techrules

import "github.com/google/uuid"

// Defaults applied to newly created task nodes.
const (
	DefaultKitImpact  = 10
	DefaultTaskType   = "CUT_FABRIC"
	DefaultWorkCenter = "FAB"

	// nodeSpacing is the horizontal gap between appended nodes.
	nodeSpacing = 480
)

// TaskSpec describes a task node to create.
type TaskSpec struct {
	Title        string
	TaskType     string
	WorkCenter   string
	Terminal     bool
	Mandatory    *bool
	KitImpact    *float64
	FormulasText string
}

// NewTaskNode creates a task node with a fresh id. TaskType and WorkCenter
// become editable controls; the remaining attributes are stored as hidden
// defaults.
func NewTaskNode(spec TaskSpec) Node {
	taskType := spec.TaskType
	if taskType == "" {
		taskType = DefaultTaskType
	}
	wc := spec.WorkCenter
	if wc == "" {
		wc = DefaultWorkCenter
	}
	title := spec.Title
	if title == "" {
		title = spec.TaskType
	}
	if title == "" {
		title = "Task"
	}

	mandatory := true
	if spec.Mandatory != nil {
		mandatory = *spec.Mandatory
	}
	kit := float64(DefaultKitImpact)
	if spec.KitImpact != nil {
		kit = *spec.KitImpact
	}

	return Node{
		ID:    uuid.NewString(),
		Kind:  KindTask,
		Title: title,
		Controls: Overrides{
			TaskType:   ptr(taskType),
			WorkCenter: ptr(wc),
		},
		Defaults: Overrides{
			Terminal:     ptr(spec.Terminal),
			Mandatory:    ptr(mandatory),
			KitImpact:    ptr(kit),
			FormulasText: ptr(spec.FormulasText),
		},
	}
}

// NewStartNode creates the entry node of a production flow.
func NewStartNode() Node {
	return Node{
		ID:    uuid.NewString(),
		Kind:  KindStart,
		Title: "Start",
		Defaults: Overrides{
			TaskType:   ptr("START"),
			WorkCenter: ptr("START"),
			Terminal:   ptr(false),
		},
	}
}

// NewFinishNode creates the end node of a production flow.
func NewFinishNode() Node {
	return Node{
		ID:    uuid.NewString(),
		Kind:  KindFinish,
		Title: "Finish",
		Defaults: Overrides{
			TaskType:   ptr("FINISH"),
			WorkCenter: ptr("FINISH"),
			Terminal:   ptr(true),
		},
	}
}

// SeedGraph returns the roller blind demo graph: fabric and profile cutting
// both feed the terminal roller assembly.
func SeedGraph(id string) *Graph {
	fabric := NewTaskNode(TaskSpec{
		TaskType:     "CUT_FABRIC",
		WorkCenter:   "FAB",
		FormulasText: "fabric_length_mm = CEILING((height_mm + 20) * 1.01, 1)",
	})
	profile := NewTaskNode(TaskSpec{
		TaskType:     "CUT_PROFILE",
		WorkCenter:   "PRF",
		FormulasText: "tube_length_mm = ROUND(width_mm - 2, 0)",
	})
	assembly := NewTaskNode(TaskSpec{
		TaskType:   "ASM_ROLLER",
		WorkCenter: "ASM",
		Terminal:   true,
		KitImpact:  ptr(100.0),
	})
	fabric.Position = &Position{80, 180}
	profile.Position = &Position{560, 180}
	assembly.Position = &Position{1040, 180}

	return &Graph{
		ID:    id,
		Nodes: []Node{fabric, profile, assembly},
		Edges: []Edge{
			{ID: uuid.NewString(), From: fabric.ID, To: assembly.ID},
			{ID: uuid.NewString(), From: profile.ID, To: assembly.ID},
		},
	}
}

// AppendTask adds a task node to the right of the last node and returns it.
func (g *Graph) AppendTask(spec TaskSpec) Node {
	n := NewTaskNode(spec)
	pos := Position{80 + nodeSpacing, 180}
	if len(g.Nodes) > 0 {
		if last := g.Nodes[len(g.Nodes)-1].Position; last != nil {
			pos = Position{last[0] + nodeSpacing, last[1]}
		}
	}
	n.Position = &pos
	g.Nodes = append(g.Nodes, n)
	return n
}

// RemoveLast removes the last node together with every edge touching it.
// It reports false on an empty graph.
func (g *Graph) RemoveLast() (Node, bool) {
	if len(g.Nodes) == 0 {
		return Node{}, false
	}
	last := g.Nodes[len(g.Nodes)-1]
	g.Nodes = g.Nodes[:len(g.Nodes)-1]

	kept := make([]Edge, 0, len(g.Edges))
	for _, e := range g.Edges {
		if e.From != last.ID && e.To != last.ID {
			kept = append(kept, e)
		}
	}
	g.Edges = kept
	return last, true
}

func ptr[T any](v T) *T { return &v }
