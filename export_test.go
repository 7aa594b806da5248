package techrules

import (
	"bytes"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func taskNode(id, taskType string) Node {
	return Node{ID: id, Kind: KindTask, Title: taskType, Controls: Overrides{TaskType: ptr(taskType)}}
}

type fixedPositions map[string]Position

func (p fixedPositions) PositionOf(id string) (Position, bool) {
	pos, ok := p[id]
	return pos, ok
}

func TestResolveLayers(t *testing.T) {
	x := NewExporter()

	n := Node{
		ID:   "n1",
		Kind: KindTask,
		Controls: Overrides{
			TaskType:  ptr("CUT_FABRIC"),
			KitImpact: ptr(25.0),
		},
		Defaults: Overrides{
			WorkCenter: ptr("FAB"),
			KitImpact:  ptr(10.0),
			Mandatory:  ptr(false),
		},
	}
	rn := x.Resolve(n)
	assert.Equal(t, "CUT_FABRIC", rn.TaskType)
	assert.Equal(t, "FAB", rn.WorkCenter)
	assert.Equal(t, 25.0, rn.KitImpact)
	assert.False(t, rn.Mandatory)
	assert.False(t, rn.Terminal)
	assert.Equal(t, "", rn.FormulasText)
	assert.Equal(t, Position{0, 0}, rn.Position)

	bare := x.Resolve(Node{ID: "n2"})
	assert.Equal(t, KindTask, bare.Kind)
	assert.Equal(t, "TASK", bare.TaskType)
	assert.Equal(t, "WC", bare.WorkCenter)
	assert.True(t, bare.Mandatory)
	assert.Zero(t, bare.KitImpact)
}

func TestResolveEmptyTextFallsThrough(t *testing.T) {
	n := Node{
		ID:       "n1",
		Controls: Overrides{TaskType: ptr(""), WorkCenter: ptr(""), FormulasText: ptr("")},
		Defaults: Overrides{TaskType: ptr("CUT_PROFILE"), FormulasText: ptr("a = 1")},
	}
	rn := NewExporter().Resolve(n)
	assert.Equal(t, "CUT_PROFILE", rn.TaskType)
	assert.Equal(t, "WC", rn.WorkCenter)
	// An edited but empty formula box is still the user's value.
	assert.Equal(t, "", rn.FormulasText)
}

func TestResolveNonFiniteKitImpact(t *testing.T) {
	x := NewExporter()

	n := Node{
		ID:       "a",
		Controls: Overrides{KitImpact: ptr(math.NaN())},
		Defaults: Overrides{KitImpact: ptr(math.Inf(1))},
	}
	assert.Zero(t, x.Resolve(n).KitImpact)

	n.Defaults.KitImpact = ptr(12.5)
	assert.Equal(t, 12.5, x.Resolve(n).KitImpact)

	n.Controls.KitImpact = ptr(math.Inf(-1))
	n.Defaults.KitImpact = nil
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, x.Export(&Graph{Nodes: []Node{n}})))
	assert.Contains(t, buf.String(), `"kitImpact": 0`)
}

func TestResolveTerminalByKind(t *testing.T) {
	x := NewExporter()
	assert.True(t, x.Resolve(Node{ID: "f", Kind: KindFinish}).Terminal)
	assert.False(t, x.Resolve(Node{ID: "s", Kind: KindStart}).Terminal)
	assert.False(t, x.Resolve(Node{ID: "t", Kind: KindTask}).Terminal)
	assert.False(t, x.Resolve(Node{ID: "u"}).Terminal)

	assert.Equal(t, "FINISH", x.Resolve(Node{ID: "f", Kind: KindFinish}).TaskType)
	assert.Equal(t, "START", x.Resolve(Node{ID: "s", Kind: KindStart}).TaskType)
	assert.Equal(t, KindTask, x.Resolve(Node{ID: "w", Kind: "widget"}).Kind)
}

func TestResolvePosition(t *testing.T) {
	n := Node{ID: "a", Position: &Position{80, 180}}

	assert.Equal(t, Position{80, 180}, NewExporter().Resolve(n).Position)

	live := fixedPositions{"a": {300, 40}}
	assert.Equal(t, Position{300, 40}, NewExporter(WithPositions(live)).Resolve(n).Position)

	other := fixedPositions{"b": {1, 1}}
	assert.Equal(t, Position{80, 180}, NewExporter(WithPositions(other)).Resolve(n).Position)

	n.Position = &Position{math.NaN(), 180}
	assert.Equal(t, Position{0, 180}, NewExporter().Resolve(n).Position)
	assert.True(t, math.IsNaN(n.Position[0]))
}

func TestExportDependsOnEdgeOrder(t *testing.T) {
	g := &Graph{
		Nodes: []Node{taskNode("x", "CUT_FABRIC"), taskNode("y", "CUT_PROFILE"), taskNode("z", "ASM_ROLLER")},
		Edges: []Edge{{From: "y", To: "z"}, {From: "x", To: "z"}},
	}
	doc := NewExporter().Export(g)

	require.Len(t, doc.Runtime.Tasks, 3)
	assert.Equal(t, []string{}, doc.Runtime.Tasks[0].DependsOn)
	assert.Equal(t, []string{"CUT_PROFILE", "CUT_FABRIC"}, doc.Runtime.Tasks[2].DependsOn)
	assert.Equal(t, []Link{{From: "y", To: "z"}, {From: "x", To: "z"}}, doc.Graph.Edges)
}

func TestExportKeepsDuplicateEdges(t *testing.T) {
	g := &Graph{
		Nodes: []Node{taskNode("x", "A"), taskNode("z", "B")},
		Edges: []Edge{{From: "x", To: "z"}, {From: "x", To: "z"}},
	}
	doc := NewExporter().Export(g)
	assert.Equal(t, []string{"A", "A"}, doc.Runtime.Tasks[1].DependsOn)
	assert.Len(t, doc.Graph.Edges, 2)
}

func TestExportDropsUnknownPrerequisite(t *testing.T) {
	g := &Graph{
		Nodes: []Node{taskNode("x", "A"), taskNode("z", "B")},
		Edges: []Edge{{From: "ghost", To: "z"}, {From: "x", To: "z"}},
	}
	doc := NewExporter().Export(g)
	assert.Equal(t, []string{"A"}, doc.Runtime.Tasks[1].DependsOn)
	// The raw edge stays in the graph snapshot.
	assert.Len(t, doc.Graph.Edges, 2)
}

func TestExportDuplicateIDFirstWins(t *testing.T) {
	g := &Graph{
		Nodes: []Node{taskNode("x", "FIRST"), taskNode("x", "SECOND"), taskNode("z", "B")},
		Edges: []Edge{{From: "x", To: "z"}},
	}
	doc := NewExporter().Export(g)
	assert.Equal(t, []string{"FIRST"}, doc.Runtime.Tasks[2].DependsOn)
}

func TestExportKinds(t *testing.T) {
	start, finish := NewStartNode(), NewFinishNode()
	cut := taskNode("cut", "CUT_FABRIC")
	g := &Graph{
		Nodes: []Node{start, cut, finish},
		Edges: []Edge{{From: start.ID, To: cut.ID}, {From: cut.ID, To: finish.ID}},
	}

	doc := NewExporter().Export(g)
	require.Len(t, doc.Runtime.Tasks, 1)
	assert.Equal(t, "CUT_FABRIC", doc.Runtime.Tasks[0].TaskType)
	assert.Equal(t, []string{"START"}, doc.Runtime.Tasks[0].DependsOn)
	assert.Len(t, doc.Graph.Nodes, 3)

	flat := NewExporter(WithoutKinds()).Export(g)
	require.Len(t, flat.Runtime.Tasks, 3)
	assert.Equal(t, "START", flat.Runtime.Tasks[0].TaskType)
	assert.Equal(t, "FINISH", flat.Runtime.Tasks[2].TaskType)
	assert.True(t, flat.Runtime.Tasks[2].IsTerminal)
	assert.Equal(t, []string{"CUT_FABRIC"}, flat.Runtime.Tasks[2].DependsOn)
}

func TestExportFormulasByTask(t *testing.T) {
	withFormulas := taskNode("a", "CUT_FABRIC")
	withFormulas.Defaults.FormulasText = ptr("a = 1\nnot a line\nb = x + y")
	commentsOnly := taskNode("b", "CUT_PROFILE")
	commentsOnly.Defaults.FormulasText = ptr("# nothing here\n\n")
	empty := taskNode("c", "ASM_ROLLER")

	doc := NewExporter().Export(&Graph{Nodes: []Node{withFormulas, commentsOnly, empty}})

	require.Len(t, doc.Runtime.FormulasByTask, 1)
	f := doc.Runtime.FormulasByTask["CUT_FABRIC"]
	require.NotNil(t, f)
	assert.Equal(t, map[string]string{"a": "1", "b": "x + y"}, f.Map())
	assert.NotContains(t, doc.Runtime.FormulasByTask, "CUT_PROFILE")
	assert.NotContains(t, doc.Runtime.FormulasByTask, "ASM_ROLLER")
}

func TestExportProductCode(t *testing.T) {
	g := &Graph{Nodes: []Node{taskNode("a", "A")}}
	assert.Equal(t, "ROLLER_STD", NewExporter().Export(g).ProductCode)
	assert.Equal(t, "VENETIAN", NewExporter(WithProductCode("VENETIAN")).Export(g).ProductCode)

	g.ProductCode = "PLEATED"
	assert.Equal(t, "PLEATED", NewExporter(WithProductCode("VENETIAN")).Export(g).ProductCode)
}

func TestExportDeterministic(t *testing.T) {
	g := SeedGraph("roller")
	x := NewExporter()

	var first, second bytes.Buffer
	require.NoError(t, Encode(&first, x.Export(g)))
	require.NoError(t, Encode(&second, x.Export(g)))
	assert.Equal(t, first.String(), second.String())
}

func TestExportDoesNotMutateInput(t *testing.T) {
	g := SeedGraph("roller")
	g.Nodes = append(g.Nodes, Node{ID: "loose"})
	g.Edges = append(g.Edges, Edge{From: "ghost", To: "loose"})

	before := *g
	before.Nodes = append([]Node(nil), g.Nodes...)
	before.Edges = append([]Edge(nil), g.Edges...)

	NewExporter().Export(g)
	if diff := cmp.Diff(before, *g); diff != "" {
		t.Errorf("graph changed during export (-before +after):\n%s", diff)
	}
}

func TestExportEmptyGraph(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewExporter().Export(&Graph{})))

	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	graph := out["graph"].(map[string]any)
	runtime := out["runtime"].(map[string]any)
	assert.Equal(t, []any{}, graph["nodes"])
	assert.Equal(t, []any{}, graph["edges"])
	assert.Equal(t, []any{}, runtime["tasks"])
	assert.Equal(t, map[string]any{}, runtime["formulasByTask"])
}

func TestEncodeSeedDocument(t *testing.T) {
	g := SeedGraph("roller")
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewExporter().Export(g)))

	var doc struct {
		ProductCode string `json:"productCode"`
		Runtime     struct {
			Tasks []struct {
				TaskType   string   `json:"taskType"`
				WC         string   `json:"wc"`
				IsTerminal bool     `json:"isTerminal"`
				DependsOn  []string `json:"dependsOn"`
			} `json:"tasks"`
			FormulasByTask map[string]map[string]string `json:"formulasByTask"`
		} `json:"runtime"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))

	assert.Equal(t, "ROLLER_STD", doc.ProductCode)
	require.Len(t, doc.Runtime.Tasks, 3)
	assert.Equal(t, "ASM_ROLLER", doc.Runtime.Tasks[2].TaskType)
	assert.Equal(t, "ASM", doc.Runtime.Tasks[2].WC)
	assert.True(t, doc.Runtime.Tasks[2].IsTerminal)
	assert.Equal(t, []string{"CUT_FABRIC", "CUT_PROFILE"}, doc.Runtime.Tasks[2].DependsOn)
	assert.Equal(t, map[string]map[string]string{
		"CUT_FABRIC":  {"fabric_length_mm": "CEILING((height_mm + 20) * 1.01, 1)"},
		"CUT_PROFILE": {"tube_length_mm": "ROUND(width_mm - 2, 0)"},
	}, doc.Runtime.FormulasByTask)
	assert.Contains(t, buf.String(), "\n  \"graph\": {")
}

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, WriteFile(path, NewExporter().Export(SeedGraph("roller"))))

	var doc Document
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Len(t, doc.Graph.Nodes, 3)
	assert.Equal(t, 2, doc.Runtime.FormulasByTask["CUT_FABRIC"].Len()+doc.Runtime.FormulasByTask["CUT_PROFILE"].Len())
}

func TestEncodeKeepsComparisons(t *testing.T) {
	n := taskNode("a", "CUT_FABRIC")
	n.Defaults.FormulasText = ptr("narrow = IF(width_mm < 400, 1, 0)")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, NewExporter().Export(&Graph{Nodes: []Node{n}})))
	assert.Contains(t, buf.String(), `"narrow": "IF(width_mm < 400, 1, 0)"`)
}
