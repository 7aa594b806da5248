// Package memory provides an in-process techrules.Store.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/meikuraledutech/techrules"
)

// Store implements techrules.Store with mutex-guarded maps. Data lives for
// the lifetime of the process.
type Store struct {
	mu     sync.RWMutex
	graphs map[string]*graphEntry
	nodes  map[string]string // node id -> graph id
	edges  map[string]string // edge id -> graph id
}

type graphEntry struct {
	productCode string
	nodes       []techrules.Node
	edges       []techrules.Edge
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		graphs: make(map[string]*graphEntry),
		nodes:  make(map[string]string),
		edges:  make(map[string]string),
	}
}

// CreateSchema is a no-op.
func (s *Store) CreateSchema(context.Context) error { return nil }

// DropSchema discards every stored graph.
func (s *Store) DropSchema(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.graphs)
	clear(s.nodes)
	clear(s.edges)
	return nil
}

// SaveGraph stores a full graph, replacing any graph with the same ID.
func (s *Store) SaveGraph(_ context.Context, g *techrules.Graph) (*techrules.Graph, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := techrules.PrepareGraph(g, uuid.NewString); err != nil {
		return nil, err
	}

	known := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		known[n.ID] = true
	}
	for _, e := range g.Edges {
		if !known[e.From] || !known[e.To] {
			return nil, techrules.ErrNodeNotFound
		}
	}
	techrules.ClearRefs(g)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkIDsLocked(g); err != nil {
		return nil, err
	}
	s.dropLocked(g.ID)

	entry := &graphEntry{
		productCode: g.ProductCode,
		nodes:       cloneNodes(g.Nodes),
		edges:       slices.Clone(g.Edges),
	}
	for _, n := range entry.nodes {
		s.nodes[n.ID] = g.ID
	}
	for _, e := range entry.edges {
		s.edges[e.ID] = g.ID
	}
	s.graphs[g.ID] = entry
	return g, nil
}

// checkIDsLocked rejects node or edge ids repeated within g or owned by
// another graph. Ids already owned by g are fine since g is being replaced.
func (s *Store) checkIDsLocked(g *techrules.Graph) error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if owner, ok := s.nodes[n.ID]; seen[n.ID] || (ok && owner != g.ID) {
			return fmt.Errorf("%w: node %s", techrules.ErrDuplicateID, n.ID)
		}
		seen[n.ID] = true
	}
	clear(seen)
	for _, e := range g.Edges {
		if owner, ok := s.edges[e.ID]; seen[e.ID] || (ok && owner != g.ID) {
			return fmt.Errorf("%w: edge %s", techrules.ErrDuplicateID, e.ID)
		}
		seen[e.ID] = true
	}
	return nil
}

// GetGraph returns a copy of the graph, or nil, nil if it doesn't exist.
func (s *Store) GetGraph(_ context.Context, graphID string) (*techrules.Graph, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.graphs[graphID]
	if !ok {
		return nil, nil
	}
	return &techrules.Graph{
		ID:          graphID,
		ProductCode: entry.productCode,
		Nodes:       cloneNodes(entry.nodes),
		Edges:       slices.Clone(entry.edges),
	}, nil
}

// DeleteGraph removes a graph. No error if it doesn't exist.
func (s *Store) DeleteGraph(_ context.Context, graphID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropLocked(graphID)
	return nil
}

func (s *Store) dropLocked(graphID string) {
	entry, ok := s.graphs[graphID]
	if !ok {
		return
	}
	for _, n := range entry.nodes {
		delete(s.nodes, n.ID)
	}
	for _, e := range entry.edges {
		delete(s.edges, e.ID)
	}
	delete(s.graphs, graphID)
}

// AddNode appends a node to a graph, creating the graph if needed.
func (s *Store) AddNode(_ context.Context, graphID string, node *techrules.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.nodes[node.ID]; taken {
		return "", fmt.Errorf("%w: node %s", techrules.ErrDuplicateID, node.ID)
	}
	entry, ok := s.graphs[graphID]
	if !ok {
		entry = &graphEntry{}
		s.graphs[graphID] = entry
	}
	n := cloneNode(*node)
	n.Ref = ""
	entry.nodes = append(entry.nodes, n)
	s.nodes[n.ID] = graphID
	return n.ID, nil
}

// GetNode returns a node, or nil, nil if not found.
func (s *Store) GetNode(_ context.Context, nodeID string) (*techrules.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, entry := s.findNodeLocked(nodeID)
	if entry == nil {
		return nil, nil
	}
	n := cloneNode(entry.nodes[i])
	return &n, nil
}

// UpdateNode replaces a node's body. Returns ErrNodeNotFound if missing.
func (s *Store) UpdateNode(_ context.Context, node *techrules.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, entry := s.findNodeLocked(node.ID)
	if entry == nil {
		return techrules.ErrNodeNotFound
	}
	n := cloneNode(*node)
	n.Ref = ""
	entry.nodes[i] = n
	return nil
}

// DeleteNode removes a node and every edge touching it.
// No error if the node doesn't exist.
func (s *Store) DeleteNode(_ context.Context, nodeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, entry := s.findNodeLocked(nodeID)
	if entry == nil {
		return nil
	}
	entry.nodes = slices.Delete(entry.nodes, i, i+1)
	delete(s.nodes, nodeID)

	entry.edges = slices.DeleteFunc(entry.edges, func(e techrules.Edge) bool {
		if e.From == nodeID || e.To == nodeID {
			delete(s.edges, e.ID)
			return true
		}
		return false
	})
	return nil
}

// ListNodes returns the nodes of a graph in insertion order.
func (s *Store) ListNodes(_ context.Context, graphID string) ([]techrules.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.graphs[graphID]
	if !ok {
		return []techrules.Node{}, nil
	}
	return cloneNodes(entry.nodes), nil
}

// AddEdge appends an edge. Returns ErrNodeNotFound if an endpoint is not
// a node of the graph.
func (s *Store) AddEdge(_ context.Context, graphID string, edge *techrules.Edge) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.graphs[graphID]
	if !ok || s.nodes[edge.From] != graphID || s.nodes[edge.To] != graphID {
		return "", techrules.ErrNodeNotFound
	}
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}
	if _, taken := s.edges[edge.ID]; taken {
		return "", fmt.Errorf("%w: edge %s", techrules.ErrDuplicateID, edge.ID)
	}
	entry.edges = append(entry.edges, techrules.Edge{ID: edge.ID, From: edge.From, To: edge.To})
	s.edges[edge.ID] = graphID
	return edge.ID, nil
}

// GetEdge returns an edge, or nil, nil if not found.
func (s *Store) GetEdge(_ context.Context, edgeID string) (*techrules.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	i, entry := s.findEdgeLocked(edgeID)
	if entry == nil {
		return nil, nil
	}
	e := entry.edges[i]
	return &e, nil
}

// UpdateEdge rewires an edge. Returns ErrEdgeNotFound if missing.
func (s *Store) UpdateEdge(_ context.Context, edge *techrules.Edge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, entry := s.findEdgeLocked(edge.ID)
	if entry == nil {
		return techrules.ErrEdgeNotFound
	}
	graphID := s.edges[edge.ID]
	if s.nodes[edge.From] != graphID || s.nodes[edge.To] != graphID {
		return techrules.ErrNodeNotFound
	}
	entry.edges[i].From = edge.From
	entry.edges[i].To = edge.To
	return nil
}

// DeleteEdge removes an edge. No error if it doesn't exist.
func (s *Store) DeleteEdge(_ context.Context, edgeID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, entry := s.findEdgeLocked(edgeID)
	if entry == nil {
		return nil
	}
	entry.edges = slices.Delete(entry.edges, i, i+1)
	delete(s.edges, edgeID)
	return nil
}

// ListEdges returns the edges of a graph in insertion order.
func (s *Store) ListEdges(_ context.Context, graphID string) ([]techrules.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.graphs[graphID]
	if !ok {
		return []techrules.Edge{}, nil
	}
	return slices.Clone(entry.edges), nil
}

func (s *Store) findNodeLocked(nodeID string) (int, *graphEntry) {
	graphID, ok := s.nodes[nodeID]
	if !ok {
		return 0, nil
	}
	entry := s.graphs[graphID]
	i := slices.IndexFunc(entry.nodes, func(n techrules.Node) bool { return n.ID == nodeID })
	if i < 0 {
		return 0, nil
	}
	return i, entry
}

func (s *Store) findEdgeLocked(edgeID string) (int, *graphEntry) {
	graphID, ok := s.edges[edgeID]
	if !ok {
		return 0, nil
	}
	entry := s.graphs[graphID]
	i := slices.IndexFunc(entry.edges, func(e techrules.Edge) bool { return e.ID == edgeID })
	if i < 0 {
		return 0, nil
	}
	return i, entry
}

// cloneNode copies the pointer fields so callers can't mutate stored state.
func cloneNode(n techrules.Node) techrules.Node {
	if n.Position != nil {
		p := *n.Position
		n.Position = &p
	}
	n.Controls = cloneOverrides(n.Controls)
	n.Defaults = cloneOverrides(n.Defaults)
	return n
}

func cloneNodes(nodes []techrules.Node) []techrules.Node {
	out := make([]techrules.Node, len(nodes))
	for i, n := range nodes {
		out[i] = cloneNode(n)
	}
	return out
}

func cloneOverrides(o techrules.Overrides) techrules.Overrides {
	return techrules.Overrides{
		TaskType:     clonePtr(o.TaskType),
		WorkCenter:   clonePtr(o.WorkCenter),
		Terminal:     clonePtr(o.Terminal),
		Mandatory:    clonePtr(o.Mandatory),
		KitImpact:    clonePtr(o.KitImpact),
		FormulasText: clonePtr(o.FormulasText),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ techrules.Store = (*Store)(nil)
