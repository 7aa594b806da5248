package postgres

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/techrules"
)

// PGStore implements techrules.Store using PostgreSQL via pgx.
type PGStore struct {
	db *pgxpool.Pool
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// nodeData is the JSONB body of a stored node.
type nodeData struct {
	Kind     techrules.Kind      `json:"kind,omitempty"`
	Title    string              `json:"title"`
	Position *techrules.Position `json:"position,omitempty"`
	Controls techrules.Overrides `json:"controls"`
	Defaults techrules.Overrides `json:"defaults"`
}

func encodeNode(n *techrules.Node) ([]byte, error) {
	b, err := json.Marshal(nodeData{
		Kind:     n.Kind,
		Title:    n.Title,
		Position: n.Position,
		Controls: n.Controls,
		Defaults: n.Defaults,
	})
	if err != nil {
		return nil, fmt.Errorf("techrules: encode node %s: %w", n.ID, err)
	}
	return b, nil
}

func decodeNode(id string, raw []byte) (techrules.Node, error) {
	var d nodeData
	if err := json.Unmarshal(raw, &d); err != nil {
		return techrules.Node{}, fmt.Errorf("techrules: decode node %s: %w", id, err)
	}
	return techrules.Node{
		ID:       id,
		Kind:     d.Kind,
		Title:    d.Title,
		Position: d.Position,
		Controls: d.Controls,
		Defaults: d.Defaults,
	}, nil
}

// isNoRows checks if the error is a "no rows" error from pgx.
func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// isMissingNode reports a foreign key violation on an edge endpoint.
func isMissingNode(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

// isDuplicate reports a unique violation on a node or edge id.
func isDuplicate(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ techrules.Store = (*PGStore)(nil)
