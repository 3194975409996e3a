// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package docs implements the internal-document stage: a SQLite FTS5 index
// over YAML document sets, queried by molecule with optional type and year
// filters.
package docs

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"

	"github.com/meshintel/pharmintel/pkg/types"
)

// Document is one internal document (strategy deck, field insight, memo).
type Document struct {
	ID           string   `json:"id" yaml:"id"`
	Molecule     string   `json:"molecule" yaml:"molecule"`
	Title        string   `json:"title" yaml:"title"`
	DocType      string   `json:"doc_type" yaml:"doc_type"`
	Year         int      `json:"year" yaml:"year"`
	Summary      string   `json:"summary" yaml:"summary"`
	KeyTakeaways []string `json:"key_takeaways" yaml:"key_takeaways"`
}

// Store manages the internal-document SQLite index.
type Store struct {
	db      *sql.DB
	docsDir string
}

// NewStore opens or creates the document index at cfg.IndexPath, creating
// the schema if it does not exist.
func NewStore(cfg types.DocsConfig) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(cfg.IndexPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}
	db, err := sql.Open("sqlite3", cfg.IndexPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, docsDir: cfg.DocsDir}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			molecule TEXT NOT NULL,
			title TEXT,
			doc_type TEXT,
			year INTEGER,
			summary TEXT,
			takeaways TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_molecule ON documents(molecule)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_type ON documents(doc_type)`,
		`CREATE TABLE IF NOT EXISTS ingest_status (
			source_file TEXT PRIMARY KEY,
			file_mod_time TEXT
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers for sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE documents_fts USING fts5(title, summary, takeaways, content=documents, content_rowid=rowid)`,
			`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
				INSERT INTO documents_fts(rowid, title, summary, takeaways) VALUES (new.rowid, new.title, new.summary, new.takeaways);
			END`,
			`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, summary, takeaways) VALUES('delete', old.rowid, old.title, old.summary, old.takeaways);
			END`,
			`CREATE TRIGGER documents_au AFTER UPDATE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, summary, takeaways) VALUES('delete', old.rowid, old.title, old.summary, old.takeaways);
				INSERT INTO documents_fts(rowid, title, summary, takeaways) VALUES (new.rowid, new.title, new.summary, new.takeaways);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// IngestSummary holds counts from an ingest run.
type IngestSummary struct {
	Indexed int
	Updated int
	Skipped int
	Failed  int
}

// Total returns the number of source files processed.
func (s IngestSummary) Total() int {
	return s.Indexed + s.Updated + s.Skipped + s.Failed
}

// Ingest reads YAML document sets from the configured docs directory and
// populates the index. Unchanged files (by mod time) are skipped so repeated
// runs are incremental.
func (s *Store) Ingest(ctx context.Context, w io.Writer) (IngestSummary, error) {
	if w == nil {
		w = io.Discard
	}
	entries, err := os.ReadDir(s.docsDir)
	if err != nil {
		return IngestSummary{}, fmt.Errorf("reading docs directory %s: %w", s.docsDir, err)
	}

	var summary IngestSummary
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		select {
		case <-ctx.Done():
			return summary, ctx.Err()
		default:
		}

		name := entry.Name()
		info, err := entry.Info()
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		modTime := info.ModTime().UTC().Format(time.RFC3339Nano)

		var storedModTime string
		err = s.db.QueryRowContext(ctx,
			`SELECT file_mod_time FROM ingest_status WHERE source_file = ?`, name,
		).Scan(&storedModTime)
		if err == nil && storedModTime == modTime {
			fmt.Fprintf(w, "skipped %s\n", name)
			summary.Skipped++
			continue
		}
		isUpdate := err == nil

		raw, err := os.ReadFile(filepath.Join(s.docsDir, name))
		if err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		var documents []Document
		if err := yaml.Unmarshal(raw, &documents); err != nil {
			fmt.Fprintf(w, "failed  %s: parse error: %v\n", name, err)
			summary.Failed++
			continue
		}

		if err := s.ingestFile(ctx, name, documents, modTime); err != nil {
			fmt.Fprintf(w, "failed  %s: %v\n", name, err)
			summary.Failed++
			continue
		}
		if isUpdate {
			fmt.Fprintf(w, "updated %s (%d documents)\n", name, len(documents))
			summary.Updated++
		} else {
			fmt.Fprintf(w, "indexing %s (%d documents)\n", name, len(documents))
			summary.Indexed++
		}
	}

	fmt.Fprintf(w, "\nindexed: %d, updated: %d, skipped: %d, failed: %d\n",
		summary.Indexed, summary.Updated, summary.Skipped, summary.Failed)
	return summary, nil
}

func (s *Store) ingestFile(ctx context.Context, name string, documents []Document, modTime string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO documents (id, molecule, title, doc_type, year, summary, takeaways)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			molecule=excluded.molecule, title=excluded.title, doc_type=excluded.doc_type,
			year=excluded.year, summary=excluded.summary, takeaways=excluded.takeaways`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, doc := range documents {
		takeawaysJSON, _ := json.Marshal(doc.KeyTakeaways)
		_, err := stmt.ExecContext(ctx,
			doc.ID, strings.ToLower(doc.Molecule), doc.Title, doc.DocType,
			doc.Year, doc.Summary, string(takeawaysJSON),
		)
		if err != nil {
			return fmt.Errorf("inserting document %s: %w", doc.ID, err)
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO ingest_status (source_file, file_mod_time) VALUES (?, ?)
		 ON CONFLICT(source_file) DO UPDATE SET file_mod_time=excluded.file_mod_time`,
		name, modTime,
	)
	if err != nil {
		return fmt.Errorf("updating ingest status: %w", err)
	}
	return tx.Commit()
}

// ByMolecule returns up to limit documents for a molecule, optionally
// filtered by doc type and year. Molecule matching is case-insensitive.
func (s *Store) ByMolecule(ctx context.Context, molecule, docType string, year, limit int) ([]Document, error) {
	query := `SELECT id, molecule, title, doc_type, year, summary, takeaways
		FROM documents WHERE molecule = ?`
	args := []any{strings.ToLower(molecule)}
	if docType != "" {
		query += ` AND doc_type = ?`
		args = append(args, docType)
	}
	if year != 0 {
		query += ` AND year = ?`
		args = append(args, year)
	}
	query += ` ORDER BY year DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

// Search runs a full-text query over titles, summaries, and takeaways.
func (s *Store) Search(ctx context.Context, text string, limit int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT d.id, d.molecule, d.title, d.doc_type, d.year, d.summary, d.takeaways
		 FROM documents_fts f JOIN documents d ON d.rowid = f.rowid
		 WHERE documents_fts MATCH ?
		 ORDER BY rank LIMIT ?`, text, limit)
	if err != nil {
		return nil, fmt.Errorf("full-text query: %w", err)
	}
	defer rows.Close()
	return scanDocuments(rows)
}

func scanDocuments(rows *sql.Rows) ([]Document, error) {
	var out []Document
	for rows.Next() {
		var doc Document
		var takeawaysJSON string
		if err := rows.Scan(&doc.ID, &doc.Molecule, &doc.Title, &doc.DocType, &doc.Year, &doc.Summary, &takeawaysJSON); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		if takeawaysJSON != "" {
			json.Unmarshal([]byte(takeawaysJSON), &doc.KeyTakeaways)
		}
		out = append(out, doc)
	}
	return out, rows.Err()
}
