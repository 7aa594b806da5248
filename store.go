package techrules

import (
	"context"
	"errors"
	"fmt"
)

var (
	ErrCycleDetected = errors.New("techrules: cycle detected in task graph")
	ErrGraphNotFound = errors.New("techrules: graph not found")
	ErrNodeNotFound  = errors.New("techrules: node not found")
	ErrEdgeNotFound  = errors.New("techrules: edge not found")
	ErrUnknownRef    = errors.New("techrules: unknown node ref")
	ErrDuplicateID   = errors.New("techrules: duplicate id")
)

// Store defines the contract for persisting and retrieving task graphs.
type Store interface {
	// Schema
	CreateSchema(ctx context.Context) error
	DropSchema(ctx context.Context) error

	// Graph (bulk operations)
	SaveGraph(ctx context.Context, g *Graph) (*Graph, error)
	GetGraph(ctx context.Context, graphID string) (*Graph, error)
	DeleteGraph(ctx context.Context, graphID string) error

	// Nodes
	AddNode(ctx context.Context, graphID string, node *Node) (string, error)
	GetNode(ctx context.Context, nodeID string) (*Node, error)
	UpdateNode(ctx context.Context, node *Node) error
	DeleteNode(ctx context.Context, nodeID string) error
	ListNodes(ctx context.Context, graphID string) ([]Node, error)

	// Edges
	AddEdge(ctx context.Context, graphID string, edge *Edge) (string, error)
	GetEdge(ctx context.Context, edgeID string) (*Edge, error)
	UpdateEdge(ctx context.Context, edge *Edge) error
	DeleteEdge(ctx context.Context, edgeID string) error
	ListEdges(ctx context.Context, graphID string) ([]Edge, error)
}

// PrepareGraph assigns ids to nodes and edges that lack one and resolves
// edge refs to node ids. It is shared by Store implementations ahead of
// SaveGraph.
func PrepareGraph(g *Graph, newID func() string) error {
	refs := make(map[string]string)
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if n.ID == "" {
			n.ID = newID()
		}
		if n.Ref != "" {
			refs[n.Ref] = n.ID
		}
	}

	for i := range g.Edges {
		e := &g.Edges[i]
		if e.ID == "" {
			e.ID = newID()
		}
		if e.FromRef != "" {
			id, ok := refs[e.FromRef]
			if !ok {
				return fmt.Errorf("%w: from %q", ErrUnknownRef, e.FromRef)
			}
			e.From = id
		}
		if e.ToRef != "" {
			id, ok := refs[e.ToRef]
			if !ok {
				return fmt.Errorf("%w: to %q", ErrUnknownRef, e.ToRef)
			}
			e.To = id
		}
	}
	return nil
}

// ClearRefs drops the wiring refs once a graph has been saved.
func ClearRefs(g *Graph) {
	for i := range g.Nodes {
		g.Nodes[i].Ref = ""
	}
	for i := range g.Edges {
		g.Edges[i].FromRef = ""
		g.Edges[i].ToRef = ""
	}
}
