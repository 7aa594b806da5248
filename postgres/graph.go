package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/techrules"
)

// SaveGraph saves a full graph (nodes + edges) in one transaction.
// Nodes/edges without IDs get auto-generated UUIDs.
// Edge refs (FromRef/ToRef) are resolved to real node IDs.
// Existing data for the graph ID is replaced. Cycles are accepted.
func (s *PGStore) SaveGraph(ctx context.Context, g *techrules.Graph) (*techrules.Graph, error) {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	if err := techrules.PrepareGraph(g, uuid.NewString); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("techrules: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: dropping the graph row cascades to nodes and edges.
	if _, err := tx.Exec(ctx, `DELETE FROM tr_graphs WHERE id = $1`, g.ID); err != nil {
		return nil, fmt.Errorf("techrules: delete graph: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO tr_graphs (id, product_code) VALUES ($1, $2)`, g.ID, g.ProductCode,
	); err != nil {
		return nil, fmt.Errorf("techrules: insert graph: %w", err)
	}

	for i := range g.Nodes {
		n := &g.Nodes[i]
		data, err := encodeNode(n)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO tr_nodes (id, graph_id, data) VALUES ($1, $2, $3)`,
			n.ID, g.ID, data,
		); err != nil {
			if isDuplicate(err) {
				return nil, fmt.Errorf("%w: node %s", techrules.ErrDuplicateID, n.ID)
			}
			return nil, fmt.Errorf("techrules: insert node %s: %w", n.ID, err)
		}
	}

	for _, e := range g.Edges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO tr_edges (id, graph_id, from_node_id, to_node_id) VALUES ($1, $2, $3, $4)`,
			e.ID, g.ID, e.From, e.To,
		); err != nil {
			if isMissingNode(err) {
				return nil, fmt.Errorf("%w: edge %s", techrules.ErrNodeNotFound, e.ID)
			}
			if isDuplicate(err) {
				return nil, fmt.Errorf("%w: edge %s", techrules.ErrDuplicateID, e.ID)
			}
			return nil, fmt.Errorf("techrules: insert edge %s: %w", e.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("techrules: commit: %w", err)
	}

	techrules.ClearRefs(g)
	return g, nil
}

// GetGraph retrieves a full graph (nodes + edges) by its ID.
// Returns nil, nil if the graph doesn't exist.
func (s *PGStore) GetGraph(ctx context.Context, graphID string) (*techrules.Graph, error) {
	g := &techrules.Graph{ID: graphID}

	err := s.db.QueryRow(ctx,
		`SELECT product_code FROM tr_graphs WHERE id = $1`, graphID,
	).Scan(&g.ProductCode)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("techrules: get graph: %w", err)
	}

	if g.Nodes, err = s.ListNodes(ctx, graphID); err != nil {
		return nil, err
	}
	if g.Edges, err = s.ListEdges(ctx, graphID); err != nil {
		return nil, err
	}
	return g, nil
}

// DeleteGraph removes a graph with all its nodes and edges.
// No error if the graph doesn't exist.
func (s *PGStore) DeleteGraph(ctx context.Context, graphID string) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM tr_graphs WHERE id = $1`, graphID); err != nil {
		return fmt.Errorf("techrules: delete graph: %w", err)
	}
	return nil
}
