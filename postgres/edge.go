package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/techrules"
)

// AddEdge inserts a single edge into a graph.
// If edge.ID is empty, a UUID is auto-generated.
// Returns ErrNodeNotFound if either endpoint is missing.
func (s *PGStore) AddEdge(ctx context.Context, graphID string, edge *techrules.Edge) (string, error) {
	if edge.ID == "" {
		edge.ID = uuid.NewString()
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO tr_edges (id, graph_id, from_node_id, to_node_id) VALUES ($1, $2, $3, $4)`,
		edge.ID, graphID, edge.From, edge.To,
	)
	if err != nil {
		if isMissingNode(err) {
			return "", techrules.ErrNodeNotFound
		}
		if isDuplicate(err) {
			return "", fmt.Errorf("%w: edge %s", techrules.ErrDuplicateID, edge.ID)
		}
		return "", fmt.Errorf("techrules: insert edge: %w", err)
	}

	return edge.ID, nil
}

// GetEdge fetches a single edge by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetEdge(ctx context.Context, edgeID string) (*techrules.Edge, error) {
	var e techrules.Edge
	err := s.db.QueryRow(ctx,
		`SELECT id, from_node_id, to_node_id FROM tr_edges WHERE id = $1`, edgeID,
	).Scan(&e.ID, &e.From, &e.To)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("techrules: get edge: %w", err)
	}

	return &e, nil
}

// UpdateEdge rewires an existing edge.
// Returns ErrEdgeNotFound if the edge doesn't exist.
func (s *PGStore) UpdateEdge(ctx context.Context, edge *techrules.Edge) error {
	ct, err := s.db.Exec(ctx,
		`UPDATE tr_edges SET from_node_id = $1, to_node_id = $2 WHERE id = $3`,
		edge.From, edge.To, edge.ID,
	)
	if err != nil {
		if isMissingNode(err) {
			return techrules.ErrNodeNotFound
		}
		return fmt.Errorf("techrules: update edge: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return techrules.ErrEdgeNotFound
	}
	return nil
}

// DeleteEdge deletes an edge by its ID.
// No error if the edge doesn't exist.
func (s *PGStore) DeleteEdge(ctx context.Context, edgeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM tr_edges WHERE id = $1`, edgeID)
	if err != nil {
		return fmt.Errorf("techrules: delete edge: %w", err)
	}
	return nil
}

// ListEdges returns all edges for a graph in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListEdges(ctx context.Context, graphID string) ([]techrules.Edge, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, from_node_id, to_node_id FROM tr_edges WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("techrules: list edges: %w", err)
	}
	defer rows.Close()

	edges := []techrules.Edge{}
	for rows.Next() {
		var e techrules.Edge
		if err := rows.Scan(&e.ID, &e.From, &e.To); err != nil {
			return nil, fmt.Errorf("techrules: scan edge: %w", err)
		}
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("techrules: rows edges: %w", err)
	}

	return edges, nil
}
