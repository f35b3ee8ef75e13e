package graph

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// endpoint is one side of an edge being written.
type endpoint struct {
	node    *Node
	allowed bool
	side    string
}

// relate writes an edge of edgeType from start to end. Unbound endpoints
// are saved in the same transaction as the edge, and only when their flag
// allows it, so a failed call leaves the store unchanged. With merge set an
// existing edge of the same type is returned instead.
func (s *Store) relate(ctx context.Context, edgeType string, start, end endpoint, merge bool) (ogm.Edge, error) {
	for _, ep := range []endpoint{start, end} {
		if !ep.node.Bound() && !ep.allowed {
			return ogm.Edge{}, fmt.Errorf("%w: %s %v", ErrNodeNotBound, ep.side, ep.node)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ogm.Edge{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var saved []savedNode
	ids := map[*Node]string{}
	for _, ep := range []endpoint{start, end} {
		if ep.node.Bound() {
			ids[ep.node] = ep.node.ID
			continue
		}
		if _, ok := ids[ep.node]; ok {
			continue
		}
		sn, err := s.insertNode(ctx, tx, ep.node)
		if err != nil {
			return ogm.Edge{}, err
		}
		saved = append(saved, sn)
		ids[ep.node] = sn.id
	}
	startID, endID := ids[start.node], ids[end.node]

	var e ogm.Edge
	found := false
	if merge {
		if e, found, err = findEdge(ctx, tx, edgeType, startID, endID); err != nil {
			return ogm.Edge{}, err
		}
	}
	if !found {
		if e, err = createEdge(ctx, tx, edgeType, startID, endID); err != nil {
			return ogm.Edge{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ogm.Edge{}, err
	}

	for _, sn := range saved {
		sn.apply()
	}
	if !found {
		s.logger.Debug("edge created",
			slog.String("type", edgeType),
			slog.String("start", startID),
			slog.String("end", endID))
	}
	return e, nil
}

func createEdge(ctx context.Context, tx *sql.Tx, edgeType, startID, endID string) (ogm.Edge, error) {
	e := ogm.Edge{ID: uuid.NewString(), Type: edgeType, StartID: startID, EndID: endID}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO edges (id, start_id, end_id, edge_type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, e.ID, e.StartID, e.EndID, e.Type, time.Now())
	if err != nil {
		return ogm.Edge{}, fmt.Errorf("failed to create edge: %w", err)
	}
	return e, nil
}

func findEdge(ctx context.Context, tx *sql.Tx, edgeType, startID, endID string) (ogm.Edge, bool, error) {
	e := ogm.Edge{Type: edgeType, StartID: startID, EndID: endID}
	err := tx.QueryRowContext(ctx, `
		SELECT id FROM edges WHERE start_id = ? AND end_id = ? AND edge_type = ?
		ORDER BY created_at, id LIMIT 1
	`, startID, endID, edgeType).Scan(&e.ID)
	if err == sql.ErrNoRows {
		return ogm.Edge{}, false, nil
	}
	if err != nil {
		return ogm.Edge{}, false, err
	}
	return e, true, nil
}

func (s *Store) deleteEdges(ctx context.Context, edgeType, startID, endID string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM edges WHERE start_id = ? AND end_id = ? AND edge_type = ?
	`, startID, endID, edgeType)
	if err != nil {
		return fmt.Errorf("failed to delete edge: %w", err)
	}
	n, _ := res.RowsAffected()
	s.logger.Debug("edges deleted", slog.String("type", edgeType), slog.Int64("count", n))
	return nil
}

// neighbours returns the nodes across edgeType from id: end nodes for a
// forward query, start nodes for a reverse one.
func (s *Store) neighbours(ctx context.Context, id, edgeType string, q ogm.Query) ([]*Node, error) {
	near, far := "start_id", "end_id"
	if q.Reverse {
		near, far = far, near
	}

	var b strings.Builder
	fmt.Fprintf(&b, `
		SELECT n.id, n.class, n.labels, n.properties, n.created_at
		FROM edges e JOIN nodes n ON n.id = e.%s
		WHERE e.%s = ? AND e.edge_type = ?`, far, near)
	args := []any{id, edgeType}
	for _, label := range q.Labels {
		b.WriteString(` AND EXISTS (SELECT 1 FROM node_labels l WHERE l.node_id = n.id AND l.label = ?)`)
		args = append(args, label)
	}
	b.WriteString(` ORDER BY e.created_at, e.id`)

	rows, err := s.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to match edges: %w", err)
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := s.scanNode(rows)
		if err != nil {
			return nil, err
		}
		if matchProperties(n.Properties, q.Properties) {
			out = append(out, n)
		}
	}
	return out, rows.Err()
}

// Edges returns every edge, oldest first.
func (s *Store) Edges(ctx context.Context) ([]ogm.Edge, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, edge_type, start_id, end_id FROM edges ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ogm.Edge
	for rows.Next() {
		var e ogm.Edge
		if err := rows.Scan(&e.ID, &e.Type, &e.StartID, &e.EndID); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
