package techrules

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTaskNodeDefaults(t *testing.T) {
	n := NewTaskNode(TaskSpec{})
	require.NotEmpty(t, n.ID)
	assert.Equal(t, KindTask, n.Kind)
	assert.Equal(t, "Task", n.Title)

	rn := NewExporter().Resolve(n)
	assert.Equal(t, DefaultTaskType, rn.TaskType)
	assert.Equal(t, DefaultWorkCenter, rn.WorkCenter)
	assert.True(t, rn.Mandatory)
	assert.False(t, rn.Terminal)
	assert.Equal(t, float64(DefaultKitImpact), rn.KitImpact)
}

func TestNewTaskNodeSpec(t *testing.T) {
	n := NewTaskNode(TaskSpec{
		TaskType:     "ASM_ROLLER",
		WorkCenter:   "ASM",
		Terminal:     true,
		Mandatory:    ptr(false),
		KitImpact:    ptr(100.0),
		FormulasText: "qty = 1",
	})
	assert.Equal(t, "ASM_ROLLER", n.Title)
	assert.NotEqual(t, NewTaskNode(TaskSpec{}).ID, n.ID)

	rn := NewExporter().Resolve(n)
	assert.Equal(t, "ASM_ROLLER", rn.TaskType)
	assert.Equal(t, "ASM", rn.WorkCenter)
	assert.True(t, rn.Terminal)
	assert.False(t, rn.Mandatory)
	assert.Equal(t, 100.0, rn.KitImpact)
	assert.Equal(t, "qty = 1", rn.FormulasText)
}

func TestStartFinishNodes(t *testing.T) {
	x := NewExporter()

	start := x.Resolve(NewStartNode())
	assert.Equal(t, KindStart, start.Kind)
	assert.Equal(t, "START", start.TaskType)
	assert.False(t, start.Terminal)

	finish := x.Resolve(NewFinishNode())
	assert.Equal(t, KindFinish, finish.Kind)
	assert.Equal(t, "FINISH", finish.TaskType)
	assert.True(t, finish.Terminal)
}

func TestSeedGraph(t *testing.T) {
	g := SeedGraph("roller")
	assert.Equal(t, "roller", g.ID)
	require.Len(t, g.Nodes, 3)
	require.Len(t, g.Edges, 2)

	assert.Equal(t, g.Nodes[0].ID, g.Edges[0].From)
	assert.Equal(t, g.Nodes[1].ID, g.Edges[1].From)
	assert.Equal(t, g.Nodes[2].ID, g.Edges[0].To)
	assert.Equal(t, Position{1040, 180}, *g.Nodes[2].Position)
	assert.NoError(t, DetectCycle(g.Nodes, g.Edges))
}

func TestAppendTask(t *testing.T) {
	g := &Graph{}
	first := g.AppendTask(TaskSpec{TaskType: "TASK", WorkCenter: "WC"})
	assert.Equal(t, Position{560, 180}, *first.Position)

	g = SeedGraph("roller")
	n := g.AppendTask(TaskSpec{TaskType: "PACK", WorkCenter: "PCK"})
	require.Len(t, g.Nodes, 4)
	assert.Equal(t, n.ID, g.Nodes[3].ID)
	assert.Equal(t, Position{1520, 180}, *n.Position)
}

func TestRemoveLast(t *testing.T) {
	g := SeedGraph("roller")
	removed, ok := g.RemoveLast()
	require.True(t, ok)
	assert.Equal(t, "ASM_ROLLER", removed.Title)
	assert.Len(t, g.Nodes, 2)
	assert.Empty(t, g.Edges)

	g.RemoveLast()
	g.RemoveLast()
	_, ok = g.RemoveLast()
	assert.False(t, ok)
}

func TestRemoveLastLeavesCopiesIntact(t *testing.T) {
	g := SeedGraph("roller")
	g.AppendTask(TaskSpec{TaskType: "PACK", WorkCenter: "PCK"})
	last := g.Nodes[len(g.Nodes)-1].ID
	g.Edges = append([]Edge{{ID: "e0", From: g.Nodes[2].ID, To: last}}, g.Edges...)

	snapshot := *g
	before := slices.Clone(g.Edges)

	_, ok := g.RemoveLast()
	require.True(t, ok)
	assert.Len(t, g.Edges, len(before)-1)
	assert.Equal(t, before, snapshot.Edges)
}
