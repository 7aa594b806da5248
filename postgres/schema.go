package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS tr_graphs (
    id           TEXT PRIMARY KEY,
    product_code TEXT NOT NULL DEFAULT '',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tr_nodes (
    id         TEXT PRIMARY KEY,
    graph_id   TEXT NOT NULL REFERENCES tr_graphs(id) ON DELETE CASCADE,
    seq        BIGSERIAL,
    data       JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS tr_edges (
    id           TEXT PRIMARY KEY,
    graph_id     TEXT NOT NULL REFERENCES tr_graphs(id) ON DELETE CASCADE,
    seq          BIGSERIAL,
    from_node_id TEXT NOT NULL REFERENCES tr_nodes(id) ON DELETE CASCADE,
    to_node_id   TEXT NOT NULL REFERENCES tr_nodes(id) ON DELETE CASCADE,
    created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_tr_nodes_graph_id ON tr_nodes(graph_id, seq);
CREATE INDEX IF NOT EXISTS idx_tr_edges_graph_id ON tr_edges(graph_id, seq);
CREATE INDEX IF NOT EXISTS idx_tr_edges_from     ON tr_edges(from_node_id);
CREATE INDEX IF NOT EXISTS idx_tr_edges_to       ON tr_edges(to_node_id);
`

// CreateSchema creates the tr_graphs, tr_nodes and tr_edges tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops the task graph tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS tr_edges, tr_nodes, tr_graphs CASCADE;`)
	return err
}
