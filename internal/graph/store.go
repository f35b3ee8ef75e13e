// Package graph provides the SQLite-backed graph store that relations
// forward to. Nodes carry a class, labels and properties; edges are typed
// and directed.
package graph

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// DataDirEnv overrides the default data directory (~/.neoalchemy).
const DataDirEnv = "NEOALCHEMY_DATA_DIR"

// DatabaseFile is the name of the database inside the data directory.
const DatabaseFile = "graph.db"

var (
	// ErrNodeNotFound is returned when no node has the requested ID.
	ErrNodeNotFound = errors.New("graph: node not found")

	// ErrNodeNotBound is returned when an operation needs a node that has
	// not been saved and the relation does not allow unbound endpoints.
	ErrNodeNotBound = errors.New("graph: node is not bound")

	// ErrForeignNode is returned when a related object is not a node of the
	// same store.
	ErrForeignNode = errors.New("graph: related object is not a node of this store")
)

// Store persists nodes and typed edges in SQLite.
type Store struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// NewStore opens the store in the configured data directory, creating it if
// needed.
func NewStore() (*Store, error) {
	dataDir, err := DataDir()
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	return Open(filepath.Join(dataDir, DatabaseFile), nil)
}

// DataDir returns the data directory from the environment, falling back to
// ~/.neoalchemy.
func DataDir() (string, error) {
	if dir := os.Getenv(DataDirEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home dir: %w", err)
	}
	return filepath.Join(home, ".neoalchemy"), nil
}

// Open opens (or creates) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &Store{db: db, path: path, logger: logger}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to init schema: %w", err)
	}
	logger.Debug("graph store opened", slog.String("path", path))
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS nodes (
		id TEXT PRIMARY KEY,
		class TEXT NOT NULL,
		labels TEXT NOT NULL,
		properties BLOB,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_nodes_class ON nodes(class);

	CREATE TABLE IF NOT EXISTS node_labels (
		node_id TEXT NOT NULL,
		label TEXT NOT NULL,
		PRIMARY KEY (node_id, label),
		FOREIGN KEY (node_id) REFERENCES nodes(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_node_labels_label ON node_labels(label);

	CREATE TABLE IF NOT EXISTS edges (
		id TEXT PRIMARY KEY,
		start_id TEXT NOT NULL,
		end_id TEXT NOT NULL,
		edge_type TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (start_id) REFERENCES nodes(id) ON DELETE CASCADE,
		FOREIGN KEY (end_id) REFERENCES nodes(id) ON DELETE CASCADE
	);
	CREATE INDEX IF NOT EXISTS idx_edges_start_type ON edges(start_id, edge_type);
	CREATE INDEX IF NOT EXISTS idx_edges_end_type ON edges(end_id, edge_type);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// NewNode returns an unsaved node attached to the store. Without labels
// the class name is the node's only label.
func (s *Store) NewNode(class string, labels []string, props map[string]any) *Node {
	if len(labels) == 0 {
		labels = []string{class}
	}
	if props == nil {
		props = map[string]any{}
	}
	return &Node{
		Class:      class,
		Properties: props,
		labels:     append([]string(nil), labels...),
		store:      s,
	}
}

// CreateNode saves n and assigns its ID. Saving a bound node is a no-op.
func (s *Store) CreateNode(ctx context.Context, n *Node) error {
	if n.Bound() {
		return nil
	}
	if n.store != nil && n.store != s {
		return ErrForeignNode
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	saved, err := s.insertNode(ctx, tx, n)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	saved.apply()
	return nil
}

// savedNode holds the identity given to a node inside a transaction. It is
// applied to the node only after the commit succeeds.
type savedNode struct {
	node  *Node
	store *Store
	id    string
	at    time.Time
}

func (sn savedNode) apply() {
	sn.node.ID = sn.id
	sn.node.CreatedAt = sn.at
	sn.node.store = sn.store
}

func (s *Store) insertNode(ctx context.Context, tx *sql.Tx, n *Node) (savedNode, error) {
	props, err := encodeProperties(n.Properties)
	if err != nil {
		return savedNode{}, err
	}
	labelsJSON, _ := json.Marshal(n.labels)

	sn := savedNode{node: n, store: s, id: uuid.NewString(), at: time.Now()}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO nodes (id, class, labels, properties, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, sn.id, n.Class, string(labelsJSON), props, sn.at, sn.at); err != nil {
		return savedNode{}, fmt.Errorf("failed to insert node: %w", err)
	}
	for _, label := range n.labels {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO node_labels (node_id, label) VALUES (?, ?)`, sn.id, label); err != nil {
			return savedNode{}, fmt.Errorf("failed to insert label: %w", err)
		}
	}
	s.logger.Debug("node created", slog.String("id", sn.id), slog.String("class", n.Class))
	return sn, nil
}

// GetNode loads the node with the given ID.
func (s *Store) GetNode(ctx context.Context, id string) (*Node, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, class, labels, properties, created_at FROM nodes WHERE id = ?
	`, id)
	n, err := s.scanNode(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return n, err
}

// DeleteNode removes a node and, through cascade, its edges.
func (s *Store) DeleteNode(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM nodes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	return nil
}

// Nodes returns every node, oldest first.
func (s *Store) Nodes(ctx context.Context) ([]*Node, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, class, labels, properties, created_at FROM nodes ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Node
	for rows.Next() {
		n, err := s.scanNode(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// Count returns the number of nodes and edges.
func (s *Store) Count(ctx context.Context) (nodes, edges int, err error) {
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM nodes`).Scan(&nodes); err != nil {
		return 0, 0, err
	}
	if err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM edges`).Scan(&edges); err != nil {
		return 0, 0, err
	}
	return nodes, edges, nil
}

// Size returns the database file size as a human-readable string
func (s *Store) Size() (string, error) {
	info, err := os.Stat(s.path)
	if err != nil {
		return "unknown", err
	}

	size := info.Size()
	if size < 1024 {
		return fmt.Sprintf("%d B", size), nil
	} else if size < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(size)/1024), nil
	}
	return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024)), nil
}

// Import inserts nodes and edges that are not yet present, keeping their
// IDs. It returns how many of each were added.
func (s *Store) Import(ctx context.Context, nodes []*Node, edges []ogm.Edge) (addedNodes, addedEdges int, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, n := range nodes {
		if n.ID == "" {
			continue
		}
		props, err := encodeProperties(n.Properties)
		if err != nil {
			return 0, 0, err
		}
		labels := n.labels
		if len(labels) == 0 {
			labels = []string{n.Class}
		}
		labelsJSON, _ := json.Marshal(labels)
		created := n.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO nodes (id, class, labels, properties, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, n.ID, n.Class, string(labelsJSON), props, created, time.Now())
		if err != nil {
			return 0, 0, fmt.Errorf("failed to import node %s: %w", n.ID, err)
		}
		if k, _ := res.RowsAffected(); k > 0 {
			addedNodes++
			for _, label := range labels {
				if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO node_labels (node_id, label) VALUES (?, ?)`, n.ID, label); err != nil {
					return 0, 0, fmt.Errorf("failed to import label: %w", err)
				}
			}
		}
	}

	for _, e := range edges {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO edges (id, start_id, end_id, edge_type, created_at)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, e.StartID, e.EndID, e.Type, time.Now())
		if err != nil {
			return 0, 0, fmt.Errorf("failed to import edge %s: %w", e.ID, err)
		}
		if k, _ := res.RowsAffected(); k > 0 {
			addedEdges++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, err
	}
	return addedNodes, addedEdges, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanNode(row scanner) (*Node, error) {
	var (
		n          Node
		labelsJSON string
		props      []byte
	)
	if err := row.Scan(&n.ID, &n.Class, &labelsJSON, &props, &n.CreatedAt); err != nil {
		return nil, err
	}
	_ = json.Unmarshal([]byte(labelsJSON), &n.labels)
	m, err := decodeProperties(props)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", n.ID, err)
	}
	n.Properties = m
	n.store = s
	return &n, nil
}
