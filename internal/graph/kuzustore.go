//go:build cgo

package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	kuzu "github.com/kuzudb/go-kuzu"
)

// KuzuStore implements the Store interface using KuzuDB as the graph backend.
// It requires CGO because the go-kuzu driver wraps KuzuDB's C library.
//
// A KuzuDB connection is not safe for concurrent use, so every call is
// serialized on mu. PutGraph replaces a graph inside one transaction.
type KuzuStore struct {
	mu   sync.Mutex
	db   *kuzu.Database
	conn *kuzu.Connection
}

// Compile-time check that KuzuStore satisfies Store.
var _ Store = (*KuzuStore)(nil)

// NewKuzuStore creates a KuzuStore backed by an in-memory KuzuDB instance.
func NewKuzuStore() (*KuzuStore, error) {
	return openKuzu(":memory:")
}

// NewKuzuFileStore creates a KuzuStore backed by a file-based KuzuDB at the
// given directory path. KuzuDB creates the directory itself for new databases.
func NewKuzuFileStore(dbPath string) (*KuzuStore, error) {
	// Ensure parent directory exists (KuzuDB creates the leaf directory).
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("kuzu: create parent directory: %w", err)
	}
	return openKuzu(dbPath)
}

func openKuzu(path string) (*KuzuStore, error) {
	cfg := kuzu.DefaultSystemConfig()
	db, err := kuzu.OpenDatabase(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("kuzu: open database: %w", err)
	}
	conn, err := kuzu.OpenConnection(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("kuzu: open connection: %w", err)
	}
	return &KuzuStore{db: db, conn: conn}, nil
}

// Close releases the KuzuDB connection and database.
func (s *KuzuStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if s.db != nil {
		s.db.Close()
		s.db = nil
	}
	return nil
}

// ---------- Schema setup ----------

// ddlStatements defines the Cypher DDL executed by InitSchema.
// Order matters: node tables must precede relationship tables.
var ddlStatements = []string{
	`CREATE NODE TABLE IF NOT EXISTS DepGraph(
		id STRING,
		ecosystem STRING,
		moment INT64,
		roots STRING,
		PRIMARY KEY(id)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Package(
		key STRING,
		graph_id STRING,
		name STRING,
		ecosystem STRING,
		weight DOUBLE,
		ord INT64,
		PRIMARY KEY(key)
	)`,
	`CREATE NODE TABLE IF NOT EXISTS Version(
		key STRING,
		graph_id STRING,
		package STRING,
		name STRING,
		impact DOUBLE,
		ord INT64,
		PRIMARY KEY(key)
	)`,
	`CREATE REL TABLE IF NOT EXISTS HAS(FROM Package TO Version)`,
	`CREATE REL TABLE IF NOT EXISTS REQUIRES(FROM Version TO Package, constraint_text STRING, accepts STRING)`,
}

// InitSchema creates all node and relationship tables if they do not exist.
func (s *KuzuStore) InitSchema(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range ddlStatements {
		res, err := s.conn.Query(stmt)
		if err != nil {
			return fmt.Errorf("kuzu: init schema: %w", err)
		}
		res.Close()
	}
	return nil
}

// ---------- Write operations ----------

// PutGraph replaces the graph stored under g.ID().
func (s *KuzuStore) PutGraph(_ context.Context, g *Graph) error {
	if g == nil {
		return fmt.Errorf("kuzu: put graph: nil graph")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.exec("BEGIN TRANSACTION", nil); err != nil {
		return err
	}
	if err := s.putGraphLocked(g); err != nil {
		_ = s.exec("ROLLBACK", nil)
		return err
	}
	return s.exec("COMMIT", nil)
}

func (s *KuzuStore) putGraphLocked(g *Graph) error {
	if err := s.deleteGraphLocked(g.ID()); err != nil {
		return err
	}

	roots := make([]string, 0, len(g.Roots()))
	for _, r := range g.Roots() {
		roots = append(roots, g.Package(r).Name)
	}
	rootsJSON, err := json.Marshal(roots)
	if err != nil {
		return fmt.Errorf("kuzu: encode roots: %w", err)
	}
	if err := s.exec(
		"CREATE (g:DepGraph {id: $id, ecosystem: $eco, moment: $moment, roots: $roots})",
		map[string]any{
			"id":     g.ID(),
			"eco":    g.Ecosystem(),
			"moment": g.Moment().UnixNano(),
			"roots":  string(rootsJSON),
		},
	); err != nil {
		return err
	}

	for i, p := range g.Packages() {
		if err := s.exec(
			`CREATE (p:Package {
				key: $key,
				graph_id: $gid,
				name: $name,
				ecosystem: $eco,
				weight: $weight,
				ord: $ord
			})`,
			map[string]any{
				"key":    packageKey(g.ID(), p.Name),
				"gid":    g.ID(),
				"name":   p.Name,
				"eco":    p.Ecosystem,
				"weight": p.Weight,
				"ord":    int64(i),
			},
		); err != nil {
			return err
		}
		for j, v := range p.Versions {
			if err := s.exec(
				`CREATE (v:Version {
					key: $key,
					graph_id: $gid,
					package: $pkg,
					name: $name,
					impact: $impact,
					ord: $ord
				})`,
				map[string]any{
					"key":    versionKey(g.ID(), p.Name, v.Name),
					"gid":    g.ID(),
					"pkg":    p.Name,
					"name":   v.Name,
					"impact": v.Impact,
					"ord":    int64(j),
				},
			); err != nil {
				return err
			}
			if err := s.exec(
				`MATCH (a:Package {key: $src}), (b:Version {key: $dst})
				 CREATE (a)-[:HAS]->(b)`,
				map[string]any{
					"src": packageKey(g.ID(), p.Name),
					"dst": versionKey(g.ID(), p.Name, v.Name),
				},
			); err != nil {
				return err
			}
		}
	}

	// Edges last: every target package must exist.
	for _, p := range g.Packages() {
		for _, v := range p.Versions {
			for _, e := range v.Requires {
				target := g.Package(e.Target)
				names := make([]string, 0, len(target.Versions))
				for _, k := range e.Acceptable() {
					names = append(names, target.Versions[k].Name)
				}
				accepts, err := json.Marshal(names)
				if err != nil {
					return fmt.Errorf("kuzu: encode accepts: %w", err)
				}
				if err := s.exec(
					`MATCH (a:Version {key: $src}), (b:Package {key: $dst})
					 CREATE (a)-[:REQUIRES {constraint_text: $c, accepts: $acc}]->(b)`,
					map[string]any{
						"src": versionKey(g.ID(), p.Name, v.Name),
						"dst": packageKey(g.ID(), target.Name),
						"c":   e.Constraint,
						"acc": string(accepts),
					},
				); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// DeleteGraph removes the graph stored under id together with its packages,
// versions and relationships.
func (s *KuzuStore) DeleteGraph(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteGraphLocked(id)
}

func (s *KuzuStore) deleteGraphLocked(id string) error {
	stmts := []string{
		"MATCH (v:Version {graph_id: $gid}) DETACH DELETE v",
		"MATCH (p:Package {graph_id: $gid}) DETACH DELETE p",
		"MATCH (g:DepGraph {id: $gid}) DELETE g",
	}
	for _, stmt := range stmts {
		if err := s.exec(stmt, map[string]any{"gid": id}); err != nil {
			return err
		}
	}
	return nil
}

// ---------- Read operations ----------

// GetGraph rebuilds the graph stored under id.
func (s *KuzuStore) GetGraph(_ context.Context, id string) (*Graph, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.query(
		"MATCH (g:DepGraph {id: $gid}) RETURN g.ecosystem, g.moment, g.roots",
		map[string]any{"gid": id},
	)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrGraphNotFound, id)
	}
	doc := Document{
		ID:        id,
		Ecosystem: toString(rows[0][0]),
		Moment:    time.Unix(0, toInt64(rows[0][1])).UTC(),
	}
	if err := json.Unmarshal([]byte(toString(rows[0][2])), &doc.Roots); err != nil {
		return nil, fmt.Errorf("kuzu: decode roots: %w", err)
	}

	pkgRows, err := s.query(
		`MATCH (p:Package {graph_id: $gid})
		 RETURN p.name, p.ecosystem, p.weight
		 ORDER BY p.ord`,
		map[string]any{"gid": id},
	)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]int, len(pkgRows))
	for _, r := range pkgRows {
		w := toFloat64(r[2])
		byName[toString(r[0])] = len(doc.Packages)
		doc.Packages = append(doc.Packages, PackageSpec{
			Name:      toString(r[0]),
			Ecosystem: toString(r[1]),
			Weight:    &w,
		})
	}

	verRows, err := s.query(
		`MATCH (v:Version {graph_id: $gid})
		 RETURN v.package, v.name, v.impact
		 ORDER BY v.package, v.ord`,
		map[string]any{"gid": id},
	)
	if err != nil {
		return nil, err
	}
	type verRef struct{ pkg, ver int }
	versions := make(map[string]verRef, len(verRows))
	for _, r := range verRows {
		pi, ok := byName[toString(r[0])]
		if !ok {
			return nil, fmt.Errorf("kuzu: version of unknown package %q", toString(r[0]))
		}
		ps := &doc.Packages[pi]
		versions[versionKey(id, ps.Name, toString(r[1]))] = verRef{pkg: pi, ver: len(ps.Versions)}
		ps.Versions = append(ps.Versions, VersionSpec{
			Version: toString(r[1]),
			Impact:  toFloat64(r[2]),
		})
	}

	edgeRows, err := s.query(
		`MATCH (v:Version {graph_id: $gid})-[r:REQUIRES]->(p:Package)
		 RETURN v.key, p.name, r.constraint_text, r.accepts`,
		map[string]any{"gid": id},
	)
	if err != nil {
		return nil, err
	}
	for _, r := range edgeRows {
		ref, ok := versions[toString(r[0])]
		if !ok {
			return nil, fmt.Errorf("kuzu: edge from unknown version %q", toString(r[0]))
		}
		var accepts []string
		if err := json.Unmarshal([]byte(toString(r[3])), &accepts); err != nil {
			return nil, fmt.Errorf("kuzu: decode accepts: %w", err)
		}
		if accepts == nil {
			accepts = []string{}
		}
		vs := &doc.Packages[ref.pkg].Versions[ref.ver]
		if vs.Accepts == nil {
			vs.Accepts = make(map[string][]string)
			vs.Requires = make(map[string]string)
		}
		dep := toString(r[1])
		vs.Accepts[dep] = accepts
		vs.Requires[dep] = toString(r[2])
	}

	g, err := New(doc)
	if err != nil {
		return nil, fmt.Errorf("kuzu: rebuild graph %s: %w", id, err)
	}
	return g, nil
}

// ListGraphs returns a summary of every stored graph, sorted by id.
func (s *KuzuStore) ListGraphs(ctx context.Context) ([]GraphSummary, error) {
	s.mu.Lock()
	rows, err := s.query("MATCH (g:DepGraph) RETURN g.id ORDER BY g.id", nil)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}
	out := make([]GraphSummary, 0, len(rows))
	for _, r := range rows {
		g, err := s.GetGraph(ctx, toString(r[0]))
		if err != nil {
			return nil, err
		}
		out = append(out, g.Summary())
	}
	return out, nil
}

// ---------- Internal helpers ----------

// exec runs a parameterized Cypher statement that produces no result rows.
func (s *KuzuStore) exec(cypher string, params map[string]any) error {
	if len(params) == 0 {
		res, err := s.conn.Query(cypher)
		if err != nil {
			return fmt.Errorf("kuzu: execute: %w", err)
		}
		res.Close()
		return nil
	}
	stmt, err := s.conn.Prepare(cypher)
	if err != nil {
		return fmt.Errorf("kuzu: prepare: %w", err)
	}
	defer stmt.Close()

	res, err := s.conn.Execute(stmt, params)
	if err != nil {
		return fmt.Errorf("kuzu: execute: %w", err)
	}
	res.Close()
	return nil
}

// query runs a parameterized Cypher statement and collects all result rows.
// Each row is a []any slice with values in column order.
func (s *KuzuStore) query(cypher string, params map[string]any) ([][]any, error) {
	var res *kuzu.QueryResult
	var err error

	if len(params) == 0 {
		res, err = s.conn.Query(cypher)
	} else {
		var stmt *kuzu.PreparedStatement
		stmt, err = s.conn.Prepare(cypher)
		if err != nil {
			return nil, fmt.Errorf("kuzu: prepare: %w", err)
		}
		defer stmt.Close()
		res, err = s.conn.Execute(stmt, params)
	}
	if err != nil {
		return nil, fmt.Errorf("kuzu: query: %w", err)
	}
	defer res.Close()

	var rows [][]any
	for res.HasNext() {
		tuple, err := res.Next()
		if err != nil {
			return nil, fmt.Errorf("kuzu: next: %w", err)
		}
		vals, err := tuple.GetAsSlice()
		if err != nil {
			return nil, fmt.Errorf("kuzu: row values: %w", err)
		}
		rows = append(rows, vals)
	}
	return rows, nil
}

// packageKey and versionKey build primary keys that are unique across graphs.
func packageKey(graphID, name string) string {
	return graphID + "|" + name
}

func versionKey(graphID, pkg, version string) string {
	return graphID + "|" + pkg + "@" + version
}

// ---------- Type coercion helpers ----------
// KuzuDB returns typed Go values (int64, float64, bool, string).
// These helpers safely coerce any -> concrete type.

func toString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case int32:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func toFloat64(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}
