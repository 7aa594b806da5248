package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/techrules"
)

// AddNode inserts a single node into a graph, creating the graph if needed.
// If node.ID is empty, a UUID is auto-generated.
// Returns the node ID (generated or provided).
func (s *PGStore) AddNode(ctx context.Context, graphID string, node *techrules.Node) (string, error) {
	if node.ID == "" {
		node.ID = uuid.NewString()
	}
	data, err := encodeNode(node)
	if err != nil {
		return "", err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("techrules: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO tr_graphs (id) VALUES ($1) ON CONFLICT (id) DO NOTHING`, graphID,
	); err != nil {
		return "", fmt.Errorf("techrules: ensure graph: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO tr_nodes (id, graph_id, data) VALUES ($1, $2, $3)`,
		node.ID, graphID, data,
	); err != nil {
		if isDuplicate(err) {
			return "", fmt.Errorf("%w: node %s", techrules.ErrDuplicateID, node.ID)
		}
		return "", fmt.Errorf("techrules: insert node: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("techrules: commit: %w", err)
	}

	return node.ID, nil
}

// GetNode fetches a single node by its ID.
// Returns nil, nil if not found.
func (s *PGStore) GetNode(ctx context.Context, nodeID string) (*techrules.Node, error) {
	var raw []byte
	err := s.db.QueryRow(ctx,
		`SELECT data FROM tr_nodes WHERE id = $1`, nodeID,
	).Scan(&raw)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("techrules: get node: %w", err)
	}

	n, err := decodeNode(nodeID, raw)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// UpdateNode replaces the body of an existing node.
// Returns ErrNodeNotFound if the node doesn't exist.
func (s *PGStore) UpdateNode(ctx context.Context, node *techrules.Node) error {
	data, err := encodeNode(node)
	if err != nil {
		return err
	}
	ct, err := s.db.Exec(ctx,
		`UPDATE tr_nodes SET data = $1 WHERE id = $2`,
		data, node.ID,
	)
	if err != nil {
		return fmt.Errorf("techrules: update node: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return techrules.ErrNodeNotFound
	}
	return nil
}

// DeleteNode deletes a node by its ID.
// Associated edges are cascade-deleted by the DB.
// No error if the node doesn't exist.
func (s *PGStore) DeleteNode(ctx context.Context, nodeID string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM tr_nodes WHERE id = $1`, nodeID)
	if err != nil {
		return fmt.Errorf("techrules: delete node: %w", err)
	}
	return nil
}

// ListNodes returns all nodes for a graph in insertion order.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListNodes(ctx context.Context, graphID string) ([]techrules.Node, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, data FROM tr_nodes WHERE graph_id = $1 ORDER BY seq`, graphID)
	if err != nil {
		return nil, fmt.Errorf("techrules: list nodes: %w", err)
	}
	defer rows.Close()

	nodes := []techrules.Node{}
	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("techrules: scan node: %w", err)
		}
		n, err := decodeNode(id, raw)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("techrules: rows nodes: %w", err)
	}

	return nodes, nil
}
