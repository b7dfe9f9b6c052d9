// Package storage provides the SQLite implementation of the Storage interface.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"github.com/hyperjump/biblio/internal/models"
	"github.com/hyperjump/biblio/internal/query"
)

const (
	// DriverCGO is github.com/mattn/go-sqlite3.
	DriverCGO = "sqlite3"
	// DriverPureGo is modernc.org/sqlite.
	DriverPureGo = "sqlite"
)

// SQLiteStorage implements Storage using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath with the mattn driver.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	return OpenSQLite(DriverCGO, dbPath)
}

// OpenSQLite opens or creates a SQLite database at dbPath using driver (DriverCGO
// or DriverPureGo) and creates the schema if absent. Parent directories are created
// if they do not exist.
func OpenSQLite(driver, dbPath string) (*SQLiteStorage, error) {
	if driver == "" {
		driver = DriverCGO
	}
	dsn, err := dataSourceName(driver, dbPath)
	if err != nil {
		return nil, err
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db, path: dbPath}, nil
}

// dataSourceName adds per-connection pragmas in each driver's own syntax.
func dataSourceName(driver, dbPath string) (string, error) {
	switch driver {
	case DriverCGO:
		return dbPath + "?_foreign_keys=on&_busy_timeout=5000", nil
	case DriverPureGo:
		return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (want %q or %q)", driver, DriverCGO, DriverPureGo)
	}
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		author TEXT NOT NULL DEFAULT '',
		path TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS pages (
		document_id TEXT NOT NULL,
		page_number INTEGER NOT NULL CHECK (page_number >= 1),
		content TEXT NOT NULL,
		PRIMARY KEY (document_id, page_number),
		FOREIGN KEY (document_id) REFERENCES documents(id)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.path
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDocument(ctx context.Context, q queryer, id string) (*models.Document, error) {
	var (
		doc                  models.Document
		createdAt, updatedAt int64
	)
	err := q.QueryRowContext(ctx,
		`SELECT id, title, author, path, created_at, updated_at
		 FROM documents WHERE id = ?`, id,
	).Scan(&doc.ID, &doc.Title, &doc.Author, &doc.Path, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	doc.CreatedAt = time.Unix(0, createdAt)
	doc.UpdatedAt = time.Unix(0, updatedAt)
	return &doc, nil
}

// GetDocument returns a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return getDocument(ctx, s.db, id)
}

// ListPages returns all pages for a document ordered by page number.
func (s *SQLiteStorage) ListPages(ctx context.Context, docID string) ([]*models.Page, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT document_id, page_number, content
		 FROM pages WHERE document_id = ? ORDER BY page_number`,
		docID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*models.Page
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.DocumentID, &p.Number, &p.Content); err != nil {
			return nil, err
		}
		pages = append(pages, &p)
	}
	return pages, rows.Err()
}

// Search runs stmt. Page lists are normalized to ascending order whatever order
// the engine concatenated them in.
func (s *SQLiteStorage) Search(ctx context.Context, stmt *query.Statement) ([]*models.SearchResult, error) {
	rows, err := s.db.QueryContext(ctx, stmt.SQL, stmt.Args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	var results []*models.SearchResult
	for rows.Next() {
		var (
			r     models.SearchResult
			pages string
		)
		if err := rows.Scan(&r.Title, &r.Author, &r.ID, &pages, &r.Path); err != nil {
			return nil, err
		}
		nums, err := parsePageList(pages)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", r.ID, err)
		}
		r.PageNumbers = nums
		r.Pages = formatPageList(nums)
		results = append(results, &r)
	}
	return results, rows.Err()
}

func parsePageList(s string) ([]int, error) {
	var nums []int
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("bad page number %q: %w", f, err)
		}
		nums = append(nums, n)
	}
	sort.Ints(nums)
	return nums, nil
}

func formatPageList(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, query.PageSeparator)
}

// CountDocuments returns the total number of documents.
func (s *SQLiteStorage) CountDocuments(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents`).Scan(&count)
	return count, err
}

// CountPages returns the total number of pages.
func (s *SQLiteStorage) CountPages(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&count)
	return count, err
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// BeginIngest starts the run transaction and prepares the page insert.
func (s *SQLiteStorage) BeginIngest(ctx context.Context) (IngestTx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin ingest: %w", err)
	}
	insertPage, err := tx.PrepareContext(ctx,
		`INSERT INTO pages (document_id, page_number, content) VALUES (?, ?, ?)`,
	)
	if err != nil {
		_ = tx.Rollback()
		return nil, fmt.Errorf("prepare page insert: %w", err)
	}
	return &sqliteIngestTx{tx: tx, insertPage: insertPage}, nil
}

type sqliteIngestTx struct {
	tx         *sql.Tx
	insertPage *sql.Stmt
	savepoints int
	done       bool
}

func (t *sqliteIngestTx) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return getDocument(ctx, t.tx, id)
}

func (t *sqliteIngestTx) UpdateDocumentPath(ctx context.Context, id, path string) error {
	result, err := t.tx.ExecContext(ctx,
		`UPDATE documents SET path = ?, updated_at = ? WHERE id = ?`,
		path, time.Now().UnixNano(), id,
	)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, ErrNotFound)
	}
	return nil
}

func (t *sqliteIngestTx) CreateDocument(ctx context.Context, doc *models.Document) error {
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO documents (id, title, author, path, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.Author, doc.Path, now.UnixNano(), now.UnixNano(),
	)
	return err
}

func (t *sqliteIngestTx) CreatePage(ctx context.Context, page *models.Page) error {
	if page.Number < 1 {
		return fmt.Errorf("page number %d for %s: must be >= 1", page.Number, page.DocumentID)
	}
	_, err := t.insertPage.ExecContext(ctx, page.DocumentID, page.Number, page.Content)
	return err
}

func (t *sqliteIngestTx) WithSavepoint(ctx context.Context, fn func() error) error {
	t.savepoints++
	name := "sp" + strconv.Itoa(t.savepoints)
	if _, err := t.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := fn(); err != nil {
		// ROLLBACK TO keeps the savepoint open; RELEASE closes it.
		if _, rbErr := t.tx.ExecContext(ctx, "ROLLBACK TO "+name); rbErr != nil {
			return errors.Join(err, fmt.Errorf("rollback to savepoint: %w", rbErr))
		}
		if _, relErr := t.tx.ExecContext(ctx, "RELEASE "+name); relErr != nil {
			return errors.Join(err, fmt.Errorf("release savepoint: %w", relErr))
		}
		return err
	}
	if _, err := t.tx.ExecContext(ctx, "RELEASE "+name); err != nil {
		return fmt.Errorf("release savepoint: %w", err)
	}
	return nil
}

func (t *sqliteIngestTx) Commit() error {
	_ = t.insertPage.Close()
	t.done = true
	return t.tx.Commit()
}

func (t *sqliteIngestTx) Rollback() error {
	if t.done {
		return nil
	}
	_ = t.insertPage.Close()
	t.done = true
	return t.tx.Rollback()
}
